package render

import (
	"io"
	"strings"

	"github.com/knilesh2212/exam-paper-saas/exam"
	"github.com/knilesh2212/exam-paper-saas/models"
)

// Result describes a finished render.
type Result struct {
	// Pages is the physical page count, or 0 when the output format
	// paginates later (HTML).
	Pages       int
	ContentType string
}

// Renderer turns a composed block list into a document.
type Renderer interface {
	Render(w io.Writer, blocks []exam.Block, geom Geometry) (Result, error)
}

// Geometry is the physical page setup of a render.
type Geometry struct {
	PaperSize  string  // A4, LETTER or LEGAL
	Landscape  bool    // orientation
	PageWidth  float64 // mm, orientation applied
	PageHeight float64 // mm, orientation applied
	Margin     float64 // mm, all four sides
	FontFamily string  // core font: Helvetica, Times or Courier
	FontSize   float64 // pt
}

// DefaultMarginMM is used when no positive margin is configured.
const DefaultMarginMM = 15

var paperSizes = map[string][2]float64{
	"A4":     {210, 297},
	"LETTER": {215.9, 279.4},
	"LEGAL":  {215.9, 355.6},
}

// GeometryFromStyle maps the exam style and a margin in millimetres to page
// geometry. Unknown paper sizes fall back to A4 and font sizes are clamped
// to 8..20pt.
func GeometryFromStyle(style models.StyleConfig, marginMM float64) Geometry {
	size := strings.ToUpper(style.PaperSize)
	dims, ok := paperSizes[size]
	if !ok {
		size = "A4"
		dims = paperSizes[size]
	}
	g := Geometry{
		PaperSize:  size,
		Landscape:  strings.EqualFold(style.Orientation, "landscape"),
		PageWidth:  dims[0],
		PageHeight: dims[1],
		Margin:     marginMM,
		FontFamily: coreFont(style.FontFamily),
		FontSize:   float64(style.FontSize),
	}
	if g.Landscape {
		g.PageWidth, g.PageHeight = g.PageHeight, g.PageWidth
	}
	if g.Margin <= 0 {
		g.Margin = DefaultMarginMM
	}
	switch {
	case g.FontSize <= 0:
		g.FontSize = 12
	case g.FontSize < 8:
		g.FontSize = 8
	case g.FontSize > 20:
		g.FontSize = 20
	}
	return g
}

// BodyWidth is the printable width between the side margins.
func (g Geometry) BodyWidth() float64 { return g.PageWidth - 2*g.Margin }

// BodyHeight is the printable height between the top and bottom margins.
func (g Geometry) BodyHeight() float64 { return g.PageHeight - 2*g.Margin }

// LineHeight is the height of one text line at size pt, in mm.
func LineHeight(size float64) float64 {
	return size * ptToMM * 1.5
}

const ptToMM = 25.4 / 72

func coreFont(family string) string {
	f := strings.ToLower(family)
	switch {
	case strings.Contains(f, "times"), strings.Contains(f, "serif") && !strings.Contains(f, "sans"),
		strings.Contains(f, "georgia"), strings.Contains(f, "garamond"):
		return "Times"
	case strings.Contains(f, "courier"), strings.Contains(f, "mono"):
		return "Courier"
	}
	return "Helvetica"
}
