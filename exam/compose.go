package exam

import (
	"fmt"
	"strings"

	"github.com/knilesh2212/exam-paper-saas/models"
	"github.com/knilesh2212/exam-paper-saas/utils"
)

// StudentFields are the blanks printed under the meta row.
var StudentFields = []string{"Student Name", "Roll No"}

// Compose turns exam data into an ordered block list. It depends only on its
// arguments: the same input always yields the same blocks.
//
// Questions are numbered 1..N across the whole document. Sections without
// questions are skipped. With no sections at all the questions are emitted
// without section headings.
func Compose(meta models.ExamMeta, sections []models.Section, questions []models.Question, style models.StyleConfig) []Block {
	blocks := []Block{
		HeaderBlock{
			InstitutionName: meta.InstitutionName,
			Subject:         meta.Subject,
			Grade:           meta.Grade,
		},
		MetaRowBlock{
			Duration:   int(meta.Duration),
			Date:       meta.Date,
			TotalMarks: int(meta.TotalMarks),
		},
		StudentFieldsBlock{Fields: append([]string{}, StudentFields...)},
	}

	if items := nonEmpty(meta.Instructions); len(items) > 0 {
		blocks = append(blocks, InstructionsBlock{Title: "INSTRUCTIONS", Items: items})
	}

	n := 0
	if len(sections) == 0 {
		for _, q := range questions {
			n++
			blocks = append(blocks, questionBlock(q, n, style))
		}
	}

	buckets := Partition(sections, questions)
	seen := make(map[string]bool, len(sections))
	for _, sec := range sections {
		if seen[sec.ID] {
			continue
		}
		seen[sec.ID] = true
		bucket := buckets[sec.ID]
		if len(bucket) == 0 {
			continue
		}
		blocks = append(blocks, SectionHeaderBlock{SectionID: sec.ID, Title: sec.Title})
		if text := strings.TrimSpace(sec.Instructions); text != "" {
			blocks = append(blocks, SectionInstructionBlock{SectionID: sec.ID, Text: text})
		}
		for _, q := range bucket {
			n++
			blocks = append(blocks, questionBlock(q, n, style))
		}
	}

	return append(blocks, FooterBlock{Format: FooterFormat})
}

// ComposeSnapshot composes a whole exam snapshot.
func ComposeSnapshot(s models.Snapshot) []Block {
	return Compose(s.Meta, s.Sections, s.Questions, s.Style)
}

func questionBlock(q models.Question, n int, style models.StyleConfig) QuestionBlock {
	b := QuestionBlock{
		QuestionID:  q.ID,
		Number:      n,
		Label:       fmt.Sprintf("%d.", n),
		Text:        q.QuestionText,
		Type:        q.Type,
		AnswerSpace: style.ShowLines && q.Type != models.QuestionMCQ,
	}
	if style.ShowMarks {
		b.MarksLabel = fmt.Sprintf("[%d]", q.Marks)
	}
	if q.Type == models.QuestionMCQ {
		b.Options = make([]OptionItem, len(q.Options))
		for i, opt := range q.Options {
			b.Options[i] = OptionItem{Label: utils.OptionLabel(i), Text: opt}
		}
	}
	return b
}

func nonEmpty(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
