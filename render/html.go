package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/gin-contrib/multitemplate"

	"github.com/knilesh2212/exam-paper-saas/exam"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PreviewTemplate is the name the preview page is registered under.
const PreviewTemplate = "preview"

// HTML renders block lists as a printable web page.
type HTML struct {
	Title string
	tmpl  *template.Template
}

// NewHTML parses the embedded preview template.
func NewHTML() (*HTML, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/preview.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse preview template: %w", err)
	}
	return &HTML{tmpl: tmpl}, nil
}

// Templates returns a gin HTML renderer with the preview page registered.
func (h *HTML) Templates() multitemplate.Render {
	r := multitemplate.New()
	r.Add(PreviewTemplate, h.tmpl)
	return r
}

// Render writes the preview page for blocks.
func (h *HTML) Render(w io.Writer, blocks []exam.Block, geom Geometry) (Result, error) {
	if err := h.tmpl.Execute(w, NewPreview(h.Title, blocks, geom)); err != nil {
		return Result{}, fmt.Errorf("render preview: %w", err)
	}
	return Result{ContentType: "text/html; charset=utf-8"}, nil
}

// Preview is the data of the preview template.
type Preview struct {
	Title         string
	PageSize      template.CSS
	PageWidth     template.CSS
	PageHeight    template.CSS
	Margin        template.CSS
	FontFamily    template.CSS
	FontSize      template.CSS
	FooterContent template.CSS
	Blocks        []PreviewBlock
}

// PreviewBlock is one block with its hint classes.
type PreviewBlock struct {
	Kind  exam.Kind
	Class string
	Block exam.Block
}

// NewPreview prepares template data. Hints become CSS classes: atomic
// blocks avoid breaks inside, keep-with-next blocks avoid breaks after.
func NewPreview(title string, blocks []exam.Block, geom Geometry) Preview {
	orientation := "portrait"
	if geom.Landscape {
		orientation = "landscape"
	}
	p := Preview{
		Title:      title,
		PageSize:   template.CSS(strings.ToLower(geom.PaperSize) + " " + orientation),
		PageWidth:  mm(geom.PageWidth),
		PageHeight: mm(geom.PageHeight),
		Margin:     mm(geom.Margin),
		FontFamily: template.CSS(cssFont(geom.FontFamily)),
		FontSize:   template.CSS(strconv.FormatFloat(geom.FontSize, 'f', -1, 64) + "pt"),
		Blocks:     make([]PreviewBlock, 0, len(blocks)),
	}
	for _, b := range blocks {
		var class string
		if b.Hints().Atomic {
			class += " atomic"
		}
		if b.Hints().KeepWithNext {
			class += " keep-with-next"
		}
		if f, ok := b.(exam.FooterBlock); ok {
			p.FooterContent = footerCSS(f.Format)
		}
		p.Blocks = append(p.Blocks, PreviewBlock{Kind: b.Kind(), Class: class, Block: b})
	}
	if p.FooterContent == "" {
		p.FooterContent = "none"
	}
	return p
}

func mm(v float64) template.CSS {
	return template.CSS(strconv.FormatFloat(v, 'f', -1, 64) + "mm")
}

func cssFont(core string) string {
	switch core {
	case "Times":
		return `"Times New Roman", Times, serif`
	case "Courier":
		return `"Courier New", Courier, monospace`
	}
	return "Helvetica, Arial, sans-serif"
}

// footerCSS turns a footer template into a CSS content value, mapping
// {page} and {total} to the page counters.
func footerCSS(format string) template.CSS {
	var parts []string
	rest := format
	for rest != "" {
		i := strings.IndexByte(rest, '{')
		if i < 0 {
			parts = append(parts, cssString(rest))
			break
		}
		if i > 0 {
			parts = append(parts, cssString(rest[:i]))
		}
		rest = rest[i:]
		switch {
		case strings.HasPrefix(rest, "{page}"):
			parts = append(parts, "counter(page)")
			rest = rest[len("{page}"):]
		case strings.HasPrefix(rest, "{total}"):
			parts = append(parts, "counter(pages)")
			rest = rest[len("{total}"):]
		default:
			parts = append(parts, cssString("{"))
			rest = rest[1:]
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return template.CSS(strings.Join(parts, " "))
}

func cssString(s string) string {
	s = strings.NewReplacer(`\`, "", `"`, "", "\n", " ", "<", "", ">", "").Replace(s)
	return `"` + s + `"`
}
