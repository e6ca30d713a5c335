package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/knilesh2212/exam-paper-saas/exam"
)

// PDF renders block lists with fpdf core fonts.
type PDF struct {
	// Title is written to the document info dictionary.
	Title string
	// NoCompress leaves page streams uncompressed.
	NoCompress bool
	Log        *zap.Logger
}

// creationDate is fixed so identical input produces identical bytes.
var creationDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Render lays the blocks out twice: the first pass counts pages, the second
// draws the footer with the final count.
func (p PDF) Render(w io.Writer, blocks []exam.Block, geom Geometry) (Result, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	first, err := p.layout(blocks, geom, 0)
	if err != nil {
		return Result{}, err
	}
	total := first.PageNo()

	doc, err := p.layout(blocks, geom, total)
	if err != nil {
		return Result{}, err
	}
	if got := doc.PageNo(); got != total {
		log.Warn("page count changed between passes", zap.Int("first", total), zap.Int("second", got))
	}
	if err := doc.Output(w); err != nil {
		return Result{}, fmt.Errorf("write pdf: %w", err)
	}
	return Result{Pages: doc.PageNo(), ContentType: "application/pdf"}, nil
}

func (p PDF) layout(blocks []exam.Block, geom Geometry, total int) (*fpdf.Fpdf, error) {
	orientation := "P"
	if geom.Landscape {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", fpdfSize(geom.PaperSize), "")
	pdf.SetCreationDate(creationDate)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(!p.NoCompress)
	if p.Title != "" {
		pdf.SetTitle(p.Title, true)
	}
	pdf.SetCreator("exam-paper-saas", false)
	pdf.SetMargins(geom.Margin, geom.Margin, geom.Margin)
	pdf.SetAutoPageBreak(false, geom.Margin)
	pdf.SetDrawColor(120, 120, 120)
	pdf.SetFillColor(224, 224, 224)
	pdf.SetLineWidth(0.2)

	d := &drawer{pdf: pdf, geom: geom, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	var footer *exam.FooterBlock
	for _, b := range blocks {
		if f, ok := b.(exam.FooterBlock); ok {
			footer = &f
		}
	}
	if footer != nil {
		pdf.SetFooterFunc(func() {
			d.footer(footer.Resolve(pdf.PageNo(), total))
		})
	}

	pdf.AddPage()

	rows := make([][]row, len(blocks))
	spans := make([]span, len(blocks))
	for i, b := range blocks {
		rows[i] = d.rows(b)
		spans[i] = span{kind: b.Kind(), hints: b.Hints(), height: height(rows[i])}
	}

	body := geom.BodyHeight()
	for i := range blocks {
		if len(rows[i]) == 0 {
			continue
		}
		if breakBefore(spans, i, d.remaining(), body) {
			pdf.AddPage()
		}
		d.draw(rows[i])
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, nil
}

func fpdfSize(paper string) string {
	switch paper {
	case "LETTER":
		return "Letter"
	case "LEGAL":
		return "Legal"
	}
	return "A4"
}

// piece is one cell of a row, positioned relative to the left margin.
type piece struct {
	x, w   float64
	text   string
	align  string
	style  string
	size   float64
	border string
	fill   bool
}

// row is a horizontal strip of pieces drawn at the same y. A row without
// pieces is vertical spacing.
type row struct {
	h      float64
	pieces []piece
}

func height(rows []row) float64 {
	h := 0.0
	for _, r := range rows {
		h += r.h
	}
	return h
}

type drawer struct {
	pdf  *fpdf.Fpdf
	geom Geometry
	tr   func(string) string
}

func (d *drawer) bottom() float64 { return d.geom.PageHeight - d.geom.Margin }

func (d *drawer) remaining() float64 { return d.bottom() - d.pdf.GetY() }

func (d *drawer) atTop() bool { return d.pdf.GetY() <= d.geom.Margin+epsilon }

// draw places rows top to bottom, starting a new page whenever the next row
// would cross the bottom margin. Spacing rows are dropped at the top of a
// page.
func (d *drawer) draw(rows []row) {
	left := d.geom.Margin
	for _, r := range rows {
		if len(r.pieces) == 0 && d.atTop() {
			continue
		}
		if d.pdf.GetY()+r.h > d.bottom()+epsilon && !d.atTop() {
			d.pdf.AddPage()
			if len(r.pieces) == 0 {
				continue
			}
		}
		y := d.pdf.GetY()
		for _, p := range r.pieces {
			d.pdf.SetFont(d.geom.FontFamily, p.style, p.size)
			d.pdf.SetXY(left+p.x, y)
			d.pdf.CellFormat(p.w, r.h, p.text, p.border, 0, p.align, p.fill, 0, "")
		}
		d.pdf.SetXY(left, y+r.h)
	}
}

func (d *drawer) footer(text string) {
	size := d.geom.FontSize - 3
	lh := LineHeight(size)
	d.pdf.SetFont(d.geom.FontFamily, "", size)
	d.pdf.SetTextColor(102, 102, 102)
	d.pdf.SetXY(d.geom.Margin, d.geom.PageHeight-d.geom.Margin/2-lh/2)
	d.pdf.CellFormat(d.geom.BodyWidth(), lh, d.tr(text), "", 0, "C", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
}

// wrap splits text into lines that fit width w at the given style and size.
// The returned lines are already translated for the core font encoding.
func (d *drawer) wrap(text, style string, size, w float64) []string {
	d.pdf.SetFont(d.geom.FontFamily, style, size)
	var out []string
	for _, para := range strings.Split(text, "\n") {
		lines := d.pdf.SplitLines([]byte(d.tr(para)), w)
		if len(lines) == 0 {
			out = append(out, "")
			continue
		}
		for _, l := range lines {
			out = append(out, string(l))
		}
	}
	return out
}

func gap(h float64) row { return row{h: h} }

// textRows wraps text into one row per line across [x, x+w).
func (d *drawer) textRows(text string, x, w float64, align, style string, size float64) []row {
	lh := LineHeight(size)
	var rows []row
	for _, line := range d.wrap(text, style, size, w) {
		rows = append(rows, row{h: lh, pieces: []piece{{x: x, w: w, text: line, align: align, style: style, size: size}}})
	}
	return rows
}

func (d *drawer) rows(b exam.Block) []row {
	fs := d.geom.FontSize
	bw := d.geom.BodyWidth()

	switch b := b.(type) {
	case exam.HeaderBlock:
		rows := d.textRows(strings.ToUpper(b.Title()), 0, bw, "C", "B", fs+6)
		sub := d.textRows(b.Subtitle(), 0, bw, "C", "B", fs)
		rows = append(rows, gap(1))
		rows = append(rows, sub...)
		rows = append(rows, row{h: 2, pieces: []piece{{w: bw, border: "B", size: fs}}}, gap(5))
		return rows

	case exam.MetaRowBlock:
		items := b.Items()
		third := bw / 3
		size := fs - 1
		r := row{h: LineHeight(size)}
		for i, align := range []string{"L", "C", "R"} {
			r.pieces = append(r.pieces, piece{x: float64(i) * third, w: third, text: d.tr(items[i]), align: align, style: "B", size: size})
		}
		return []row{r, gap(3)}

	case exam.StudentFieldsBlock:
		size := fs - 1
		r := row{h: LineHeight(size)}
		half := bw / 2
		for i, f := range b.Fields {
			align := "L"
			if i%2 == 1 {
				align = "R"
			}
			r.pieces = append(r.pieces, piece{x: float64(i%2) * half, w: half, text: d.tr(f + ": ____________________"), align: align, size: size})
		}
		return []row{r, gap(5)}

	case exam.InstructionsBlock:
		size := fs - 1
		rows := d.textRows(b.Title+":", 0, bw, "L", "B", size)
		for _, line := range b.Lines() {
			rows = append(rows, d.textRows(line, 2, bw-2, "L", "", size)...)
		}
		return append(rows, gap(5))

	case exam.SectionHeaderBlock:
		rows := []row{gap(3)}
		lh := LineHeight(fs) + 1
		for _, line := range d.wrap(strings.ToUpper(b.Title), "B", fs, bw) {
			rows = append(rows, row{h: lh, pieces: []piece{{w: bw, text: line, align: "C", style: "B", size: fs, fill: true}}})
		}
		return append(rows, gap(3))

	case exam.SectionInstructionBlock:
		rows := d.textRows(b.Text, 0, bw, "C", "I", fs-1)
		return append(rows, gap(3))

	case exam.QuestionBlock:
		return d.questionRows(b)
	}
	// Footers are drawn by the page footer func; unknown kinds draw nothing.
	return nil
}

const (
	numberCol = 10.0
	marksCol  = 14.0
	labelCol  = 8.0
)

func (d *drawer) questionRows(b exam.QuestionBlock) []row {
	fs := d.geom.FontSize
	bw := d.geom.BodyWidth()
	contentX := numberCol
	contentW := bw - numberCol - marksCol
	lh := LineHeight(fs)

	var rows []row
	for i, line := range d.wrap(b.Text, "", fs, contentW) {
		r := row{h: lh, pieces: []piece{{x: contentX, w: contentW, text: line, align: "L", size: fs}}}
		if i == 0 {
			r.pieces = append(r.pieces, piece{w: numberCol, text: b.Label, align: "L", style: "B", size: fs})
			if b.MarksLabel != "" {
				r.pieces = append(r.pieces, piece{x: bw - marksCol, w: marksCol, text: b.MarksLabel, align: "R", style: "B", size: fs - 1})
			}
		}
		rows = append(rows, r)
	}

	for _, opt := range b.Options {
		lines := d.wrap(opt.Text, "", fs, contentW-labelCol)
		for i, line := range lines {
			r := row{h: lh, pieces: []piece{{x: contentX + labelCol, w: contentW - labelCol, text: line, align: "L", size: fs}}}
			if i == 0 {
				r.pieces = append(r.pieces, piece{x: contentX, w: labelCol, text: "(" + opt.Label + ")", align: "L", style: "B", size: fs})
			}
			rows = append(rows, r)
		}
	}

	if b.AnswerSpace {
		for i := 0; i < answerLines; i++ {
			rows = append(rows, row{h: lh * 1.4, pieces: []piece{{x: contentX, w: contentW, border: "B", size: fs}}})
		}
	}
	return append(rows, gap(4))
}

// answerLines is the number of ruled lines under a written-answer question.
const answerLines = 2
