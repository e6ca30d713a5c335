package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/knilesh2212/exam-paper-saas/exam"
	"github.com/knilesh2212/exam-paper-saas/models"
)

// ErrInvalidDocument wraps every decode and validation failure.
var ErrInvalidDocument = errors.New("invalid exam document")

// Document is the YAML form of a whole exam. Questions are nested under
// their section.
type Document struct {
	Meta     *models.ExamMeta    `yaml:"meta,omitempty"`
	Style    *models.StyleConfig `yaml:"style,omitempty"`
	Sections []SectionDoc        `yaml:"sections"`
}

// SectionDoc is one section with its questions in order.
type SectionDoc struct {
	ID           string        `yaml:"id,omitempty"`
	Title        string        `yaml:"title"`
	Instructions string        `yaml:"instructions,omitempty"`
	Questions    []QuestionDoc `yaml:"questions"`
}

// QuestionDoc is one question. Options are only written for mcq.
type QuestionDoc struct {
	ID         string         `yaml:"id,omitempty"`
	Type       string         `yaml:"type,omitempty"`
	Text       string         `yaml:"text"`
	Marks      models.FlexInt `yaml:"marks"`
	Difficulty string         `yaml:"difficulty,omitempty"`
	Options    []string       `yaml:"options,omitempty"`
}

// ValidationError names the offending position in a document.
// Section and Question are 1-based; 0 means not applicable.
type ValidationError struct {
	Section  int
	Question int
	Field    string
	Message  string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Section > 0 {
		fmt.Fprintf(&b, "section %d: ", e.Section)
	}
	if e.Question > 0 {
		fmt.Fprintf(&b, "question %d: ", e.Question)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "%s: ", e.Field)
	}
	b.WriteString(e.Message)
	return b.String()
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }

// ImportOptions supply ids and timestamps for imported records.
type ImportOptions struct {
	Now   func() time.Time
	NewID func() string
}

// Export writes snap as a YAML document. Questions are grouped by section
// using the same bucketing as the printed paper, so legacy questions are
// written under the first section.
func Export(w io.Writer, snap models.Snapshot) error {
	doc := Document{
		Meta:     &snap.Meta,
		Style:    &snap.Style,
		Sections: make([]SectionDoc, 0, len(snap.Sections)),
	}
	buckets := exam.Partition(snap.Sections, snap.Questions)
	for _, sec := range snap.Sections {
		sd := SectionDoc{
			ID:           sec.ID,
			Title:        sec.Title,
			Instructions: sec.Instructions,
			Questions:    []QuestionDoc{},
		}
		for _, q := range buckets[sec.ID] {
			qd := QuestionDoc{
				ID:         q.ID,
				Type:       string(q.Type),
				Text:       q.QuestionText,
				Marks:      q.Marks,
				Difficulty: string(q.Difficulty),
			}
			if q.Type == models.QuestionMCQ {
				qd.Options = append([]string{}, q.Options...)
			}
			sd.Questions = append(sd.Questions, qd)
		}
		doc.Sections = append(doc.Sections, sd)
		delete(buckets, sec.ID)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode exam yaml: %w", err)
	}
	return enc.Close()
}

// Import decodes and validates a YAML document. Unknown fields are
// rejected. Missing meta or style fall back to defaults; missing ids are
// generated.
func Import(r io.Reader, opts ImportOptions) (models.Snapshot, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	// Decode onto defaults so omitted meta and style fields keep them.
	meta := models.DefaultMeta(opts.Now())
	style := models.DefaultStyle()
	doc := Document{Meta: &meta, Style: &style}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return models.Snapshot{}, &ValidationError{Message: "document is empty"}
		}
		return models.Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return doc.Snapshot(opts)
}

// ImportFile reads a YAML document from path.
func ImportFile(path string, opts ImportOptions) (models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Import(bytes.NewReader(data), opts)
}

// Snapshot validates the document and converts it to exam records.
func (d Document) Snapshot(opts ImportOptions) (models.Snapshot, error) {
	now := opts.Now()
	snap := models.DefaultSnapshot(now)
	if d.Meta != nil {
		snap.Meta = *d.Meta
	}
	if d.Style != nil {
		snap.Style = *d.Style
		if err := validateStyle(&snap.Style); err != nil {
			return models.Snapshot{}, err
		}
	}
	if len(d.Sections) == 0 {
		return models.Snapshot{}, &ValidationError{Field: "sections", Message: "at least one section is required"}
	}

	snap.Sections = make([]models.Section, 0, len(d.Sections))
	snap.Questions = []models.Question{}
	sectionIDs := map[string]bool{}
	questionIDs := map[string]bool{}
	ts := now.UnixMilli()

	for si, sd := range d.Sections {
		id := sd.ID
		if id == "" {
			id = opts.NewID()
		}
		if sectionIDs[id] {
			return models.Snapshot{}, &ValidationError{Section: si + 1, Field: "id", Message: fmt.Sprintf("duplicate section id %q", id)}
		}
		sectionIDs[id] = true
		snap.Sections = append(snap.Sections, models.Section{
			ID:           id,
			Title:        sd.Title,
			Instructions: sd.Instructions,
		})

		for qi, qd := range sd.Questions {
			q, err := qd.question(si+1, qi+1)
			if err != nil {
				return models.Snapshot{}, err
			}
			if q.ID == "" {
				q.ID = opts.NewID()
			}
			if questionIDs[q.ID] {
				return models.Snapshot{}, &ValidationError{Section: si + 1, Question: qi + 1, Field: "id", Message: fmt.Sprintf("duplicate question id %q", q.ID)}
			}
			questionIDs[q.ID] = true
			q.SectionID = id
			q.Timestamp = ts
			snap.Questions = append(snap.Questions, q)
		}
	}
	return snap, nil
}

func (qd QuestionDoc) question(section, pos int) (models.Question, error) {
	fail := func(field, msg string) (models.Question, error) {
		return models.Question{}, &ValidationError{Section: section, Question: pos, Field: field, Message: msg}
	}
	if strings.TrimSpace(qd.Text) == "" {
		return fail("text", "question text is empty")
	}
	q := models.Question{
		ID:           qd.ID,
		Type:         models.QuestionType(qd.Type),
		QuestionText: qd.Text,
		Marks:        qd.Marks,
		Difficulty:   models.Difficulty(qd.Difficulty),
	}
	if qd.Type == "" {
		q.Type = models.QuestionShort
	} else if !q.Type.Valid() {
		return fail("type", fmt.Sprintf("unknown type %q, expected short, long or mcq", qd.Type))
	}
	if qd.Difficulty == "" {
		q.Difficulty = models.Medium
	} else if !q.Difficulty.Valid() {
		return fail("difficulty", fmt.Sprintf("unknown difficulty %q, expected Easy, Medium or Hard", qd.Difficulty))
	}
	if q.Marks < 0 {
		return fail("marks", "marks must not be negative")
	}
	if len(qd.Options) > models.MCQOptionCount {
		return fail("options", fmt.Sprintf("at most %d options are allowed", models.MCQOptionCount))
	}
	q.Options = models.NormalizeOptions(qd.Options)
	return q, nil
}

func validateStyle(s *models.StyleConfig) error {
	s.PaperSize = strings.ToUpper(s.PaperSize)
	s.Orientation = strings.ToLower(s.Orientation)
	if !models.ValidPaperSize(s.PaperSize) {
		return &ValidationError{Field: "style.paper_size", Message: fmt.Sprintf("unknown paper size %q", s.PaperSize)}
	}
	if !models.ValidOrientation(s.Orientation) {
		return &ValidationError{Field: "style.orientation", Message: fmt.Sprintf("unknown orientation %q", s.Orientation)}
	}
	return nil
}
