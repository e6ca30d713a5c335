package exam

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/knilesh2212/exam-paper-saas/models"
)

func ids(qs []models.Question) []string {
	out := []string{}
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}

func TestPartition(t *testing.T) {
	sections := []models.Section{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	questions := []models.Question{
		{ID: "1", SectionID: "b"},
		{ID: "2"},
		{ID: "3", SectionID: "a"},
		{ID: "4", SectionID: "gone"},
		{ID: "5", SectionID: "b"},
	}
	got := Partition(sections, questions)

	want := map[string][]string{
		"a": {"2", "3", "4"},
		"b": {"1", "5"},
		"c": {},
	}
	gotIDs := map[string][]string{}
	for k, v := range got {
		gotIDs[k] = ids(v)
	}
	if diff := cmp.Diff(want, gotIDs); diff != "" {
		t.Errorf("Partition (-want +got):\n%s", diff)
	}
}

func TestPartitionCoversEveryQuestionOnce(t *testing.T) {
	sections := []models.Section{{ID: "a"}, {ID: "b"}}
	var questions []models.Question
	for i, sec := range []string{"a", "", "b", "x", "a", "", "b"} {
		questions = append(questions, models.Question{ID: string(rune('p' + i)), SectionID: sec})
	}
	total := 0
	seen := map[string]int{}
	for _, bucket := range Partition(sections, questions) {
		total += len(bucket)
		for _, q := range bucket {
			seen[q.ID]++
		}
	}
	if total != len(questions) {
		t.Errorf("buckets hold %d questions, want %d", total, len(questions))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("question %s appears %d times", id, n)
		}
	}
}

func TestPartitionNoSections(t *testing.T) {
	if got := Partition(nil, []models.Question{{ID: "1"}}); len(got) != 0 {
		t.Errorf("expected no buckets, got %v", got)
	}
}
