package exam

import "github.com/knilesh2212/exam-paper-saas/models"

// SectionStats counts the questions and marks of one section.
type SectionStats struct {
	SectionID string `json:"sectionId"`
	Title     string `json:"title"`
	Questions int    `json:"questions"`
	Marks     int    `json:"marks"`
}

// Stats summarizes an exam for the editor.
type Stats struct {
	Questions     int                         `json:"questions"`
	Marks         int                         `json:"marks"`
	TotalMarks    int                         `json:"totalMarks"`
	MarksMismatch bool                        `json:"marksMismatch"`
	Sections      []SectionStats              `json:"sections"`
	ByType        map[models.QuestionType]int `json:"byType"`
	ByDifficulty  map[models.Difficulty]int   `json:"byDifficulty"`
}

// Summarize counts questions and marks overall, per section, per type and
// per difficulty. MarksMismatch is set when the question marks do not add
// up to the declared total.
func Summarize(s models.Snapshot) Stats {
	st := Stats{
		Questions:    len(s.Questions),
		TotalMarks:   int(s.Meta.TotalMarks),
		Sections:     make([]SectionStats, 0, len(s.Sections)),
		ByType:       map[models.QuestionType]int{},
		ByDifficulty: map[models.Difficulty]int{},
	}
	for _, q := range s.Questions {
		st.Marks += int(q.Marks)
		st.ByType[q.Type]++
		st.ByDifficulty[q.Difficulty]++
	}
	buckets := Partition(s.Sections, s.Questions)
	seen := make(map[string]bool, len(s.Sections))
	for _, sec := range s.Sections {
		if seen[sec.ID] {
			continue
		}
		seen[sec.ID] = true
		ss := SectionStats{SectionID: sec.ID, Title: sec.Title}
		for _, q := range buckets[sec.ID] {
			ss.Questions++
			ss.Marks += int(q.Marks)
		}
		st.Sections = append(st.Sections, ss)
	}
	st.MarksMismatch = st.Marks != st.TotalMarks
	return st
}
