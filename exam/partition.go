package exam

import "github.com/knilesh2212/exam-paper-saas/models"

// Partition buckets questions by section in a single pass. Questions with no
// section, or with a section that no longer exists, go to the first
// section's bucket. Order within a bucket is the global question order.
// Every section gets a bucket, possibly empty. With no sections the result
// is empty.
func Partition(sections []models.Section, questions []models.Question) map[string][]models.Question {
	buckets := make(map[string][]models.Question, len(sections))
	if len(sections) == 0 {
		return buckets
	}
	for _, s := range sections {
		if _, ok := buckets[s.ID]; !ok {
			buckets[s.ID] = []models.Question{}
		}
	}
	first := sections[0].ID
	for _, q := range questions {
		id := q.SectionID
		if _, ok := buckets[id]; !ok || id == "" {
			id = first
		}
		buckets[id] = append(buckets[id], q)
	}
	return buckets
}
