package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knilesh2212/exam-paper-saas/utils"
)

// QuestionType is the answer format of a question.
type QuestionType string

const (
	QuestionShort QuestionType = "short"
	QuestionLong  QuestionType = "long"
	QuestionMCQ   QuestionType = "mcq"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionShort, QuestionLong, QuestionMCQ:
		return true
	}
	return false
}

// Difficulty is an editorial tag; it never affects the printed paper.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// MCQOptionCount is the number of options every question carries.
const MCQOptionCount = 4

// DefaultSectionID is the id of the section present in a fresh exam.
const DefaultSectionID = "default"

// FlexInt is an integer that decodes from a JSON number or a numeric string.
// Any other JSON value decodes to 0 instead of failing.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(utils.CoerceInt(v))
	return nil
}

// UnmarshalYAML lets FlexInt accept quoted numbers in YAML documents too.
func (f *FlexInt) UnmarshalYAML(unmarshal func(any) error) error {
	var v any
	if err := unmarshal(&v); err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(utils.CoerceInt(v))
	return nil
}

// FlexString is a string that also decodes from a JSON number, keeping the
// number's literal text. Ids written by older editors were numbers.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// ExamMeta holds the institution and paper details printed in the header.
type ExamMeta struct {
	InstitutionName string   `json:"institutionName" yaml:"institution_name"`
	Subject         string   `json:"subject" yaml:"subject"`
	Grade           string   `json:"grade" yaml:"grade"`
	Date            string   `json:"date" yaml:"date"`
	Duration        FlexInt  `json:"duration" yaml:"duration"`
	TotalMarks      FlexInt  `json:"totalMarks" yaml:"total_marks"`
	Instructions    []string `json:"instructions" yaml:"instructions"`
}

// Section is a named grouping of questions. Its order is its position in
// the sections sequence.
type Section struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Instructions string `json:"instructions"`
}

// UnmarshalJSON accepts numeric section ids.
func (s *Section) UnmarshalJSON(data []byte) error {
	type plain Section
	aux := struct {
		*plain
		ID FlexString `json:"id"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.ID = string(aux.ID)
	return nil
}

// Question is a single item of the paper. An empty SectionID marks a legacy
// question that belongs to the first section.
type Question struct {
	ID           string       `json:"id"`
	SectionID    string       `json:"sectionId,omitempty"`
	Type         QuestionType `json:"type"`
	QuestionText string       `json:"questionText"`
	Marks        FlexInt      `json:"marks"`
	Difficulty   Difficulty   `json:"difficulty"`
	Options      []string     `json:"options"`
	Timestamp    int64        `json:"timestamp"` // unix milliseconds
}

// UnmarshalJSON accepts numeric question and section ids.
func (q *Question) UnmarshalJSON(data []byte) error {
	type plain Question
	aux := struct {
		*plain
		ID        FlexString `json:"id"`
		SectionID FlexString `json:"sectionId"`
	}{plain: (*plain)(q)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	q.ID = string(aux.ID)
	q.SectionID = string(aux.SectionID)
	return nil
}

// StyleConfig holds page geometry and display toggles.
type StyleConfig struct {
	PaperSize   string  `json:"paperSize" yaml:"paper_size"`    // A4, LETTER, LEGAL
	Orientation string  `json:"orientation" yaml:"orientation"` // portrait, landscape
	FontFamily  string  `json:"fontFamily" yaml:"font_family"`
	FontSize    FlexInt `json:"fontSize" yaml:"font_size"` // points
	ShowMarks   bool    `json:"showMarks" yaml:"show_marks"`
	ShowLines   bool    `json:"showLines" yaml:"show_lines"`
}

// ErrInvalidStyle reports an unsupported paper size or orientation.
var ErrInvalidStyle = errors.New("invalid style")

// ValidPaperSize reports whether size is A4, LETTER or LEGAL in any case.
func ValidPaperSize(size string) bool {
	switch strings.ToUpper(size) {
	case "A4", "LETTER", "LEGAL":
		return true
	}
	return false
}

// ValidOrientation reports whether o is portrait or landscape in any case.
func ValidOrientation(o string) bool {
	switch strings.ToLower(o) {
	case "portrait", "landscape":
		return true
	}
	return false
}

// DefaultMeta returns the metadata of a fresh exam dated on the day of now.
func DefaultMeta(now time.Time) ExamMeta {
	return ExamMeta{
		Date:       now.Format("2006-01-02"),
		Duration:   60,
		TotalMarks: 100,
		Instructions: []string{
			"All questions are compulsory.",
			"Read questions carefully before answering.",
		},
	}
}

// DefaultSections returns the single section a fresh exam starts with.
func DefaultSections() []Section {
	return []Section{{
		ID:           DefaultSectionID,
		Title:        "Section A",
		Instructions: "Attempt all questions in this section.",
	}}
}

// DefaultStyle returns the style of a fresh exam.
func DefaultStyle() StyleConfig {
	return StyleConfig{
		PaperSize:   "A4",
		Orientation: "portrait",
		FontFamily:  "Times New Roman",
		FontSize:    12,
		ShowMarks:   true,
		ShowLines:   true,
	}
}

// NormalizeOptions returns exactly MCQOptionCount options, padding with
// empty strings or dropping extra entries.
func NormalizeOptions(opts []string) []string {
	out := make([]string, MCQOptionCount)
	copy(out, opts)
	return out
}

// MetaPatch lists the metadata fields that may be changed. Nil fields are
// left untouched.
type MetaPatch struct {
	InstitutionName *string  `json:"institutionName"`
	Subject         *string  `json:"subject"`
	Grade           *string  `json:"grade"`
	Date            *string  `json:"date"`
	Duration        *FlexInt `json:"duration"`
	TotalMarks      *FlexInt `json:"totalMarks"`
	Instructions    []string `json:"instructions"` // nil keeps, [] clears
}

// Apply merges the patch into m and returns the result.
func (p MetaPatch) Apply(m ExamMeta) ExamMeta {
	if p.InstitutionName != nil {
		m.InstitutionName = *p.InstitutionName
	}
	if p.Subject != nil {
		m.Subject = *p.Subject
	}
	if p.Grade != nil {
		m.Grade = *p.Grade
	}
	if p.Date != nil {
		m.Date = *p.Date
	}
	if p.Duration != nil {
		m.Duration = *p.Duration
	}
	if p.TotalMarks != nil {
		m.TotalMarks = *p.TotalMarks
	}
	if p.Instructions != nil {
		m.Instructions = append([]string{}, p.Instructions...)
	}
	return m
}

// SectionPatch lists the section fields that may be changed.
type SectionPatch struct {
	Title        *string `json:"title"`
	Instructions *string `json:"instructions"`
}

// Apply merges the patch into s and returns the result.
func (p SectionPatch) Apply(s Section) Section {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Instructions != nil {
		s.Instructions = *p.Instructions
	}
	return s
}

// QuestionInput is the data of a new question. Id, section and timestamp
// are assigned by the store.
type QuestionInput struct {
	Type         QuestionType `json:"type" binding:"omitempty,oneof=short long mcq"`
	QuestionText string       `json:"questionText"`
	Marks        FlexInt      `json:"marks"`
	Difficulty   Difficulty   `json:"difficulty" binding:"omitempty,oneof=Easy Medium Hard"`
	Options      []string     `json:"options" binding:"max=4"`
}

// QuestionPatch lists the question fields that may be changed.
type QuestionPatch struct {
	SectionID    *string       `json:"sectionId"`
	Type         *QuestionType `json:"type" binding:"omitempty,oneof=short long mcq"`
	QuestionText *string       `json:"questionText"`
	Marks        *FlexInt      `json:"marks"`
	Difficulty   *Difficulty   `json:"difficulty" binding:"omitempty,oneof=Easy Medium Hard"`
	Options      []string      `json:"options" binding:"max=4"`
}

// Apply merges the patch into q and returns the result. Validation of the
// merged question is the caller's job.
func (p QuestionPatch) Apply(q Question) Question {
	if p.SectionID != nil {
		q.SectionID = *p.SectionID
	}
	if p.Type != nil {
		q.Type = *p.Type
	}
	if p.QuestionText != nil {
		q.QuestionText = *p.QuestionText
	}
	if p.Marks != nil {
		q.Marks = *p.Marks
	}
	if p.Difficulty != nil {
		q.Difficulty = *p.Difficulty
	}
	if p.Options != nil {
		q.Options = NormalizeOptions(p.Options)
	}
	return q
}

// StylePatch lists the style fields that may be changed.
type StylePatch struct {
	PaperSize   *string  `json:"paperSize"`   // any case; stored upper-case
	Orientation *string  `json:"orientation"` // any case; stored lower-case
	FontFamily  *string  `json:"fontFamily"`
	FontSize    *FlexInt `json:"fontSize"`
	ShowMarks   *bool    `json:"showMarks"`
	ShowLines   *bool    `json:"showLines"`
}

// Validate rejects paper sizes and orientations outside the supported sets.
// Case is ignored, as Apply normalises it.
func (p StylePatch) Validate() error {
	if p.PaperSize != nil && !ValidPaperSize(*p.PaperSize) {
		return fmt.Errorf("%w: unknown paper size %q", ErrInvalidStyle, *p.PaperSize)
	}
	if p.Orientation != nil && !ValidOrientation(*p.Orientation) {
		return fmt.Errorf("%w: unknown orientation %q", ErrInvalidStyle, *p.Orientation)
	}
	return nil
}

// Apply merges the patch into s and returns the result.
func (p StylePatch) Apply(s StyleConfig) StyleConfig {
	if p.PaperSize != nil {
		s.PaperSize = strings.ToUpper(*p.PaperSize)
	}
	if p.Orientation != nil {
		s.Orientation = strings.ToLower(*p.Orientation)
	}
	if p.FontFamily != nil {
		s.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	if p.ShowMarks != nil {
		s.ShowMarks = *p.ShowMarks
	}
	if p.ShowLines != nil {
		s.ShowLines = *p.ShowLines
	}
	return s
}

// AddQuestionRequest is the body of POST /api/v1/exam/questions.
type AddQuestionRequest struct {
	QuestionInput
	SectionID string `json:"sectionId"`
}

// ReorderRequest is the body of PUT /api/v1/exam/questions/order.
type ReorderRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// Snapshot is a copy of the whole exam: the four persisted records.
type Snapshot struct {
	Meta      ExamMeta    `json:"meta"`
	Sections  []Section   `json:"sections"`
	Questions []Question  `json:"questions"`
	Style     StyleConfig `json:"style"`
}

// DefaultSnapshot returns a fresh exam dated on the day of now.
func DefaultSnapshot(now time.Time) Snapshot {
	return Snapshot{
		Meta:      DefaultMeta(now),
		Sections:  DefaultSections(),
		Questions: []Question{},
		Style:     DefaultStyle(),
	}
}

// Clone returns a deep copy of s that shares no slices with it.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Meta:      s.Meta,
		Sections:  append([]Section{}, s.Sections...),
		Questions: make([]Question, len(s.Questions)),
		Style:     s.Style,
	}
	out.Meta.Instructions = append([]string{}, s.Meta.Instructions...)
	for i, q := range s.Questions {
		q.Options = append([]string{}, q.Options...)
		out.Questions[i] = q
	}
	return out
}
