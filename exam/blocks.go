package exam

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/knilesh2212/exam-paper-saas/models"
)

// Kind names a layout block type.
type Kind string

const (
	KindHeader             Kind = "header"
	KindMetaRow            Kind = "meta_row"
	KindStudentFields      Kind = "student_fields"
	KindInstructions       Kind = "instructions"
	KindSectionHeader      Kind = "section_header"
	KindSectionInstruction Kind = "section_instruction"
	KindQuestion           Kind = "question"
	KindFooter             Kind = "footer"
)

// Hints tell a renderer how a block may be split across pages.
type Hints struct {
	// Atomic blocks must not be split across a page boundary.
	Atomic bool `json:"atomic,omitempty"`
	// KeepWithNext blocks must not end a page without the block that follows.
	KeepWithNext bool `json:"keepWithNext,omitempty"`
}

// Block is one renderer-agnostic unit of the composed document.
type Block interface {
	Kind() Kind
	Hints() Hints
}

// FooterFormat is the page template carried by every FooterBlock.
const FooterFormat = "Page {page} of {total}"

// HeaderBlock carries the institution and paper identity.
type HeaderBlock struct {
	InstitutionName string `json:"institutionName"`
	Subject         string `json:"subject"`
	Grade           string `json:"grade"`
}

func (HeaderBlock) Kind() Kind   { return KindHeader }
func (HeaderBlock) Hints() Hints { return Hints{} }

// Title is the institution name, or a placeholder when it is empty.
func (b HeaderBlock) Title() string {
	if b.InstitutionName == "" {
		return "INSTITUTION NAME"
	}
	return b.InstitutionName
}

// Subtitle is "Subject | Grade", with a placeholder for an empty subject.
func (b HeaderBlock) Subtitle() string {
	s := b.Subject
	if s == "" {
		s = "SUBJECT"
	}
	if b.Grade != "" {
		s += " | " + b.Grade
	}
	return s
}

// MetaRowBlock carries duration, date and maximum marks.
type MetaRowBlock struct {
	Duration   int    `json:"duration"`
	Date       string `json:"date"`
	TotalMarks int    `json:"totalMarks"`
}

func (MetaRowBlock) Kind() Kind   { return KindMetaRow }
func (MetaRowBlock) Hints() Hints { return Hints{} }

// Items returns the row's display strings, left to right.
func (b MetaRowBlock) Items() []string {
	return []string{
		fmt.Sprintf("Time: %d mins", b.Duration),
		"Date: " + b.Date,
		fmt.Sprintf("Max Marks: %d", b.TotalMarks),
	}
}

// StudentFieldsBlock lists the blanks a student fills in.
type StudentFieldsBlock struct {
	Fields []string `json:"fields"`
}

func (StudentFieldsBlock) Kind() Kind   { return KindStudentFields }
func (StudentFieldsBlock) Hints() Hints { return Hints{} }

// InstructionsBlock holds the non-empty general instructions.
type InstructionsBlock struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

func (InstructionsBlock) Kind() Kind   { return KindInstructions }
func (InstructionsBlock) Hints() Hints { return Hints{} }

// Lines returns the instructions numbered from 1.
func (b InstructionsBlock) Lines() []string {
	out := make([]string, len(b.Items))
	for i, item := range b.Items {
		out[i] = strconv.Itoa(i+1) + ". " + item
	}
	return out
}

// SectionHeaderBlock is a section title. It must stay with what follows.
type SectionHeaderBlock struct {
	SectionID string `json:"sectionId"`
	Title     string `json:"title"`
}

func (SectionHeaderBlock) Kind() Kind   { return KindSectionHeader }
func (SectionHeaderBlock) Hints() Hints { return Hints{KeepWithNext: true} }

// SectionInstructionBlock is the instruction line under a section title.
type SectionInstructionBlock struct {
	SectionID string `json:"sectionId"`
	Text      string `json:"text"`
}

func (SectionInstructionBlock) Kind() Kind   { return KindSectionInstruction }
func (SectionInstructionBlock) Hints() Hints { return Hints{} }

// OptionItem is one labelled MCQ option.
type OptionItem struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// QuestionBlock is a numbered question. It is never split across pages.
type QuestionBlock struct {
	QuestionID  string              `json:"questionId"`
	Number      int                 `json:"number"`
	Label       string              `json:"label"`
	Text        string              `json:"text"`
	Type        models.QuestionType `json:"type"`
	MarksLabel  string              `json:"marksLabel,omitempty"`
	Options     []OptionItem        `json:"options,omitempty"`
	AnswerSpace bool                `json:"answerSpace"`
}

func (QuestionBlock) Kind() Kind   { return KindQuestion }
func (QuestionBlock) Hints() Hints { return Hints{Atomic: true} }

// FooterBlock carries the page template. The page count is only known to
// the renderer, so the text is produced by Resolve.
type FooterBlock struct {
	Format string `json:"format"`
}

func (FooterBlock) Kind() Kind   { return KindFooter }
func (FooterBlock) Hints() Hints { return Hints{} }

// Resolve fills the template for the given page of total pages.
func (b FooterBlock) Resolve(page, total int) string {
	return strings.NewReplacer(
		"{page}", strconv.Itoa(page),
		"{total}", strconv.Itoa(total),
	).Replace(b.Format)
}

// Layout is a composed block list with a stable JSON encoding.
type Layout []Block

type layoutEntry struct {
	Kind  Kind  `json:"kind"`
	Hints Hints `json:"hints"`
	Block Block `json:"block"`
}

// MarshalJSON encodes every block as {"kind", "hints", "block"}.
func (l Layout) MarshalJSON() ([]byte, error) {
	entries := make([]layoutEntry, len(l))
	for i, b := range l {
		entries[i] = layoutEntry{Kind: b.Kind(), Hints: b.Hints(), Block: b}
	}
	return json.Marshal(entries)
}
