package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/knilesh2212/exam-paper-saas/models"
)

var testNow = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

func seqIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestStore(t *testing.T) (*Store, *MemoryRecords) {
	t.Helper()
	recs := NewMemoryRecords()
	s := Open(context.Background(), recs, Options{
		Now:   func() time.Time { return testNow },
		NewID: seqIDs(),
	})
	return s, recs
}

func mustAdd(t *testing.T, s *Store, text, section string) models.Question {
	t.Helper()
	q, err := s.AddQuestion(context.Background(), models.QuestionInput{QuestionText: text, Marks: 2}, section)
	if err != nil {
		t.Fatalf("AddQuestion(%q): %v", text, err)
	}
	return q
}

func questionIDs(s *Store) []string {
	var out []string
	for _, q := range s.Snapshot().Questions {
		out = append(out, q.ID)
	}
	return out
}

func TestOpenDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	want := models.DefaultSnapshot(testNow)
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("fresh store (-want +got):\n%s", diff)
	}
	if !s.Fresh() {
		t.Error("empty backend should open fresh")
	}
}

func TestOpenFallbacks(t *testing.T) {
	recs := NewMemoryRecords()
	recs.Set(KeyMeta, []byte(`{not json`))
	recs.Set(KeySections, []byte(`[]`))
	recs.Set(KeyStyles, []byte(`{"paperSize":"LEGAL","fontSize":"14"}`))
	recs.Set(KeyQuestions, []byte(`[{"id":"q1","type":"short","questionText":"legacy","marks":"5"}]`))

	s := Open(context.Background(), recs, Options{Now: func() time.Time { return testNow }})
	snap := s.Snapshot()

	if diff := cmp.Diff(models.DefaultMeta(testNow), snap.Meta); diff != "" {
		t.Errorf("unparsable meta should fall back (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(models.DefaultSections(), snap.Sections); diff != "" {
		t.Errorf("empty sections should fall back (-want +got):\n%s", diff)
	}
	if snap.Style.PaperSize != "LEGAL" || snap.Style.FontSize != 14 || snap.Style.FontFamily != "Times New Roman" {
		t.Errorf("style should merge onto defaults, got %+v", snap.Style)
	}
	if len(snap.Questions) != 1 || snap.Questions[0].Marks != 5 {
		t.Errorf("questions = %+v", snap.Questions)
	}
	if s.Fresh() {
		t.Error("store with stored records is not fresh")
	}
}

func TestOpenNumericIDs(t *testing.T) {
	recs := NewMemoryRecords()
	recs.Set(KeySections, []byte(`[{"id":1,"title":"Section A"},{"id":"b","title":"Section B"}]`))
	recs.Set(KeyQuestions, []byte(`[
		{"id":1,"sectionId":1,"type":"mcq","questionText":"2+2?","marks":1,"difficulty":"Easy","options":["3","4","5","6"]},
		{"id":2,"sectionId":"b","type":"short","questionText":"Define force.","marks":2}
	]`))

	s := Open(context.Background(), recs, Options{Now: func() time.Time { return testNow }})
	snap := s.Snapshot()

	if len(snap.Sections) != 2 || snap.Sections[0].ID != "1" {
		t.Fatalf("sections = %+v", snap.Sections)
	}
	var got [][2]string
	for _, q := range snap.Questions {
		got = append(got, [2]string{q.ID, q.SectionID})
	}
	if diff := cmp.Diff([][2]string{{"1", "1"}, {"2", "b"}}, got); diff != "" {
		t.Errorf("question ids (-want +got):\n%s", diff)
	}

	if err := s.RemoveQuestion(context.Background(), "1"); err != nil {
		t.Errorf("RemoveQuestion by decoded id: %v", err)
	}
}

type failingGet struct{ *MemoryRecords }

func (failingGet) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func TestOpenReadErrorUsesDefaults(t *testing.T) {
	s := Open(context.Background(), failingGet{NewMemoryRecords()}, Options{Now: func() time.Time { return testNow }})
	if diff := cmp.Diff(models.DefaultSnapshot(testNow), s.Snapshot()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSetMeta(t *testing.T) {
	s, recs := newTestStore(t)
	ctx := context.Background()
	subject := "Math"
	dur := models.FlexInt(0)
	if err := json.Unmarshal([]byte(`"abc"`), &dur); err != nil {
		t.Fatal(err)
	}
	got, err := s.SetMeta(ctx, models.MetaPatch{Subject: &subject, Duration: &dur})
	if err != nil {
		t.Fatal(err)
	}
	if got.Subject != "Math" || got.Duration != 0 || got.TotalMarks != 100 {
		t.Errorf("SetMeta = %+v", got)
	}
	raw, err := recs.Get(ctx, KeyMeta)
	if err != nil {
		t.Fatalf("meta not persisted: %v", err)
	}
	var stored models.ExamMeta
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(got, stored); diff != "" {
		t.Errorf("stored meta (-want +got):\n%s", diff)
	}
}

func TestAddSectionTitles(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	var titles []string
	for i := 0; i < 27; i++ {
		sec, err := s.AddSection(ctx)
		if err != nil {
			t.Fatal(err)
		}
		titles = append(titles, sec.Title)
	}
	if titles[0] != "Section B" || titles[24] != "Section Z" || titles[25] != "Section AA" || titles[26] != "Section AB" {
		t.Errorf("titles = %v", titles)
	}
	seen := map[string]bool{}
	for _, sec := range s.Snapshot().Sections {
		if seen[sec.ID] {
			t.Fatalf("duplicate section id %q", sec.ID)
		}
		seen[sec.ID] = true
	}
}

func TestAddSectionSkipsTakenIDs(t *testing.T) {
	ids := []string{"default", "default", "fresh"}
	i := 0
	s := Open(context.Background(), NewMemoryRecords(), Options{NewID: func() string {
		id := ids[i]
		i++
		return id
	}})
	sec, err := s.AddSection(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sec.ID != "fresh" {
		t.Errorf("got id %q, want fresh", sec.ID)
	}
}

func TestUpdateSection(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	title := "Part One"
	sec, err := s.UpdateSection(ctx, models.DefaultSectionID, models.SectionPatch{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if sec.Title != "Part One" || sec.Instructions != "Attempt all questions in this section." {
		t.Errorf("UpdateSection = %+v", sec)
	}
	before := s.Snapshot()
	if _, err := s.UpdateSection(ctx, "nope", models.SectionPatch{Title: &title}); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("unknown id: err = %v", err)
	}
	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Errorf("unknown id changed state:\n%s", diff)
	}
}

func TestRemoveSection(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.RemoveSection(ctx, models.DefaultSectionID); !errors.Is(err, ErrLastSection) {
		t.Fatalf("removing the only section: err = %v", err)
	}

	b, _ := s.AddSection(ctx)
	c, _ := s.AddSection(ctx)
	mustAdd(t, s, "a1", models.DefaultSectionID)
	mustAdd(t, s, "b1", b.ID)
	mustAdd(t, s, "c1", c.ID)
	mustAdd(t, s, "b2", b.ID)

	if err := s.RemoveSection(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if len(snap.Sections) != 2 {
		t.Fatalf("got %d sections", len(snap.Sections))
	}
	if len(snap.Questions) != 4 {
		t.Fatalf("question count changed to %d", len(snap.Questions))
	}
	var moved []string
	for _, q := range snap.Questions {
		if q.SectionID == b.ID {
			t.Errorf("question %s still references removed section", q.QuestionText)
		}
		if q.SectionID == models.DefaultSectionID {
			moved = append(moved, q.QuestionText)
		}
	}
	if diff := cmp.Diff([]string{"a1", "b1", "b2"}, moved); diff != "" {
		t.Errorf("first section questions (-want +got):\n%s", diff)
	}

	if err := s.RemoveSection(ctx, "missing"); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("unknown id: err = %v", err)
	}
}

func TestRemoveFirstSectionMovesToNewFirst(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	b, _ := s.AddSection(ctx)
	q := mustAdd(t, s, "in default", "")
	if q.SectionID != models.DefaultSectionID {
		t.Fatalf("empty section id should resolve to first section, got %q", q.SectionID)
	}
	if err := s.RemoveSection(ctx, models.DefaultSectionID); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Questions[0].SectionID; got != b.ID {
		t.Errorf("question moved to %q, want %q", got, b.ID)
	}
}

func TestAddQuestion(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	q, err := s.AddQuestion(ctx, models.QuestionInput{QuestionText: "Define force.", Marks: -3, Options: []string{"x"}}, "")
	if err != nil {
		t.Fatal(err)
	}
	want := models.Question{
		ID:           q.ID,
		SectionID:    models.DefaultSectionID,
		Type:         models.QuestionShort,
		QuestionText: "Define force.",
		Marks:        0,
		Difficulty:   models.Medium,
		Options:      []string{"x", "", "", ""},
		Timestamp:    testNow.UnixMilli(),
	}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("AddQuestion (-want +got):\n%s", diff)
	}

	before := s.Snapshot()
	if _, err := s.AddQuestion(ctx, models.QuestionInput{QuestionText: "   "}, ""); !errors.Is(err, ErrEmptyQuestionText) {
		t.Errorf("blank text: err = %v", err)
	}
	if _, err := s.AddQuestion(ctx, models.QuestionInput{QuestionText: "x"}, "ghost"); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("unknown section: err = %v", err)
	}
	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Errorf("rejected adds changed state:\n%s", diff)
	}
}

func TestUpdateQuestion(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	q := mustAdd(t, s, "old", "")

	text := "new"
	marks := models.FlexInt(7)
	got, err := s.UpdateQuestion(ctx, q.ID, models.QuestionPatch{QuestionText: &text, Marks: &marks})
	if err != nil {
		t.Fatal(err)
	}
	if got.QuestionText != "new" || got.Marks != 7 || got.Timestamp != q.Timestamp || got.SectionID != q.SectionID {
		t.Errorf("UpdateQuestion = %+v", got)
	}

	blank := " "
	if _, err := s.UpdateQuestion(ctx, q.ID, models.QuestionPatch{QuestionText: &blank}); !errors.Is(err, ErrEmptyQuestionText) {
		t.Errorf("blank text: err = %v", err)
	}
	ghost := "ghost"
	if _, err := s.UpdateQuestion(ctx, q.ID, models.QuestionPatch{SectionID: &ghost}); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("dangling section: err = %v", err)
	}
	if _, err := s.UpdateQuestion(ctx, "nope", models.QuestionPatch{QuestionText: &text}); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("unknown id: err = %v", err)
	}
	if s.Snapshot().Questions[0].QuestionText != "new" {
		t.Error("rejected update changed the question")
	}
}

func TestRemoveAndDuplicateQuestion(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	b, _ := s.AddSection(ctx)
	q1 := mustAdd(t, s, "one", b.ID)
	q2 := mustAdd(t, s, "two", "")

	dup, err := s.DuplicateQuestion(ctx, q1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if dup.ID == q1.ID || dup.SectionID != b.ID || dup.QuestionText != "one" {
		t.Errorf("duplicate = %+v", dup)
	}
	if diff := cmp.Diff([]string{q1.ID, q2.ID, dup.ID}, questionIDs(s)); diff != "" {
		t.Errorf("order after duplicate (-want +got):\n%s", diff)
	}

	if err := s.RemoveQuestion(ctx, q1.ID); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{q2.ID, dup.ID}, questionIDs(s)); diff != "" {
		t.Errorf("order after remove (-want +got):\n%s", diff)
	}
	if len(s.Snapshot().Sections) != 2 {
		t.Error("removing a question touched sections")
	}
	if err := s.RemoveQuestion(ctx, q1.ID); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("second remove: err = %v", err)
	}
	if _, err := s.DuplicateQuestion(ctx, "nope"); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("duplicate unknown: err = %v", err)
	}
}

func TestReorderQuestions(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := mustAdd(t, s, "a", "")
	b := mustAdd(t, s, "b", "")
	c := mustAdd(t, s, "c", "")

	if err := s.ReorderQuestions(ctx, []string{c.ID, a.ID, b.ID}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{c.ID, a.ID, b.ID}, questionIDs(s)); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	for _, bad := range [][]string{
		{a.ID, b.ID},
		{a.ID, a.ID, b.ID},
		{a.ID, b.ID, "zzz"},
	} {
		if err := s.ReorderQuestions(ctx, bad); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("ReorderQuestions(%v): err = %v", bad, err)
		}
	}
}

func TestSetStyleAndReset(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	off := false
	style, err := s.SetStyle(ctx, models.StylePatch{ShowMarks: &off})
	if err != nil {
		t.Fatal(err)
	}
	if style.ShowMarks || !style.ShowLines {
		t.Errorf("SetStyle = %+v", style)
	}
	mustAdd(t, s, "q", "")
	s.AddSection(ctx)

	if err := s.ResetAll(ctx); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(models.DefaultSnapshot(testNow), s.Snapshot()); diff != "" {
		t.Errorf("after reset (-want +got):\n%s", diff)
	}
}

func TestSetStyleRejectsUnknownValues(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	before := s.Snapshot().Style

	a3 := "a3"
	if _, err := s.SetStyle(ctx, models.StylePatch{PaperSize: &a3}); !errors.Is(err, models.ErrInvalidStyle) {
		t.Errorf("paper size a3: err = %v", err)
	}
	up := "upside-down"
	if _, err := s.SetStyle(ctx, models.StylePatch{Orientation: &up}); !errors.Is(err, models.ErrInvalidStyle) {
		t.Errorf("orientation: err = %v", err)
	}
	if diff := cmp.Diff(before, s.Snapshot().Style); diff != "" {
		t.Errorf("style changed (-want +got):\n%s", diff)
	}

	letter, portrait := "letter", "PORTRAIT"
	style, err := s.SetStyle(ctx, models.StylePatch{PaperSize: &letter, Orientation: &portrait})
	if err != nil {
		t.Fatal(err)
	}
	if style.PaperSize != "LETTER" || style.Orientation != "portrait" {
		t.Errorf("SetStyle = %+v", style)
	}
}

func TestFailedWriteLeavesStateUnchanged(t *testing.T) {
	s, recs := newTestStore(t)
	ctx := context.Background()
	mustAdd(t, s, "keep me", "")
	before := s.Snapshot()

	boom := errors.New("backend down")
	recs.FailPut = boom
	subject := "Chem"
	if _, err := s.SetMeta(ctx, models.MetaPatch{Subject: &subject}); !errors.Is(err, boom) {
		t.Errorf("SetMeta err = %v", err)
	}
	if _, err := s.AddSection(ctx); !errors.Is(err, boom) {
		t.Errorf("AddSection err = %v", err)
	}
	if _, err := s.AddQuestion(ctx, models.QuestionInput{QuestionText: "x"}, ""); !errors.Is(err, boom) {
		t.Errorf("AddQuestion err = %v", err)
	}
	if err := s.ResetAll(ctx); !errors.Is(err, boom) {
		t.Errorf("ResetAll err = %v", err)
	}
	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Errorf("failed writes changed state:\n%s", diff)
	}

	recs.FailPut = nil
	if _, err := s.SetMeta(ctx, models.MetaPatch{Subject: &subject}); err != nil {
		t.Errorf("retry after recovery: %v", err)
	}
}

func TestReopenRestoresState(t *testing.T) {
	s, recs := newTestStore(t)
	ctx := context.Background()
	b, _ := s.AddSection(ctx)
	mustAdd(t, s, "persisted", b.ID)
	want := s.Snapshot()

	reopened := Open(ctx, recs, Options{Now: func() time.Time { return testNow }})
	if diff := cmp.Diff(want, reopened.Snapshot()); diff != "" {
		t.Errorf("reopened (-want +got):\n%s", diff)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s, _ := newTestStore(t)
	snap := s.Snapshot()
	snap.Sections[0].Title = "mutated"
	snap.Meta.Instructions[0] = "mutated"
	again := s.Snapshot()
	if again.Sections[0].Title == "mutated" || again.Meta.Instructions[0] == "mutated" {
		t.Error("snapshot aliases store state")
	}
}

func TestReplace(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	snap := models.Snapshot{
		Meta:     models.ExamMeta{Subject: "Bio", Date: "2024-02-02"},
		Sections: []models.Section{{ID: "s1", Title: "Part 1"}},
		Questions: []models.Question{
			{ID: "q1", SectionID: "s1", QuestionText: "Cell?", Type: "essay"},
		},
		Style: models.DefaultStyle(),
	}
	if err := s.Replace(ctx, snap); err != nil {
		t.Fatal(err)
	}
	got := s.Snapshot()
	if got.Meta.Subject != "Bio" || got.Questions[0].Type != models.QuestionShort || len(got.Questions[0].Options) != 4 {
		t.Errorf("Replace stored %+v", got)
	}

	bad := snap.Clone()
	bad.Questions[0].SectionID = "missing"
	if err := s.Replace(ctx, bad); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("dangling reference: err = %v", err)
	}
	bad = snap.Clone()
	bad.Sections = nil
	if err := s.Replace(ctx, bad); err == nil {
		t.Error("expected error for empty sections")
	}
}

func TestConcurrentMutations(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if _, err := s.AddQuestion(ctx, models.QuestionInput{QuestionText: fmt.Sprintf("q%d", i)}, ""); err != nil {
				t.Error(err)
			}
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	if n := len(s.Snapshot().Questions); n != 20 {
		t.Errorf("got %d questions, want 20", n)
	}
}
