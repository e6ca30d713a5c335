package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knilesh2212/exam-paper-saas/models"
	"github.com/knilesh2212/exam-paper-saas/utils"
)

var (
	ErrEmptyQuestionText = errors.New("question text is empty")
	ErrSectionNotFound   = errors.New("section not found")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrLastSection       = errors.New("cannot remove the last section")
	ErrInvalidOrder      = errors.New("order must list every question exactly once")
)

// Options configure a Store. Zero values select production defaults.
type Options struct {
	Logger *zap.Logger
	Now    func() time.Time
	NewID  func() string
}

// Store owns the exam. Every mutation is written through to the backend
// before it becomes visible, so a failed write changes nothing.
type Store struct {
	mu      sync.RWMutex
	records Records
	log     *zap.Logger
	now     func() time.Time
	newID   func() string
	data    models.Snapshot
	fresh   bool
}

// Open loads the exam from records. A missing or unreadable record is
// replaced by its default; load problems are logged, never returned.
func Open(ctx context.Context, records Records, opts Options) *Store {
	s := &Store{
		records: records,
		log:     opts.Logger,
		now:     opts.Now,
		newID:   opts.NewID,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}

	def := models.DefaultSnapshot(s.now())
	data := def.Clone()
	missing := 0
	for _, key := range AllKeys {
		var target any
		switch key {
		case KeyMeta:
			target = &data.Meta
		case KeyQuestions:
			target = &data.Questions
		case KeyStyles:
			target = &data.Style
		case KeySections:
			target = &data.Sections
		}
		if !s.load(ctx, key, target) {
			missing++
			s.resetRecord(&data, def, key)
		}
	}
	if len(data.Sections) == 0 {
		s.log.Warn("stored sections are empty, using default section")
		data.Sections = models.DefaultSections()
	}
	if data.Questions == nil {
		data.Questions = []models.Question{}
	}
	s.data = data
	s.fresh = missing == len(AllKeys)
	return s
}

// load decodes one record into target and reports whether it succeeded.
func (s *Store) load(ctx context.Context, key string, target any) bool {
	raw, err := s.records.Get(ctx, key)
	if errors.Is(err, ErrRecordNotFound) {
		s.log.Debug("record not found, using default", zap.String("key", key))
		return false
	}
	if err != nil {
		s.log.Warn("failed to read record, using default", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(raw, target); err != nil {
		s.log.Warn("failed to parse record, using default", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) resetRecord(data *models.Snapshot, def models.Snapshot, key string) {
	def = def.Clone()
	switch key {
	case KeyMeta:
		data.Meta = def.Meta
	case KeyQuestions:
		data.Questions = def.Questions
	case KeyStyles:
		data.Style = def.Style
	case KeySections:
		data.Sections = def.Sections
	}
}

// Fresh reports whether no record existed when the store was opened.
func (s *Store) Fresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fresh
}

// Snapshot returns a deep copy of the current exam.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// commit persists the named records of next and then makes next current.
// Callers hold the write lock.
func (s *Store) commit(ctx context.Context, next models.Snapshot, keys ...string) error {
	entries := make([]Record, 0, len(keys))
	for _, key := range keys {
		var v any
		switch key {
		case KeyMeta:
			v = next.Meta
		case KeyQuestions:
			v = next.Questions
		case KeyStyles:
			v = next.Style
		case KeySections:
			v = next.Sections
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		entries = append(entries, Record{Key: key, Value: raw})
	}
	if err := s.records.Put(ctx, entries...); err != nil {
		return fmt.Errorf("save %s: %w", strings.Join(keys, ","), err)
	}
	s.data = next
	s.fresh = false
	return nil
}

// SetMeta merges the patch into the exam metadata.
func (s *Store) SetMeta(ctx context.Context, patch models.MetaPatch) (models.ExamMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.data
	next.Meta = patch.Apply(s.data.Meta)
	if err := s.commit(ctx, next, KeyMeta); err != nil {
		return models.ExamMeta{}, err
	}
	return cloneMeta(next.Meta), nil
}

// SetStyle merges the patch into the style configuration.
func (s *Store) SetStyle(ctx context.Context, patch models.StylePatch) (models.StyleConfig, error) {
	if err := patch.Validate(); err != nil {
		return models.StyleConfig{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.data
	next.Style = patch.Apply(s.data.Style)
	if err := s.commit(ctx, next, KeyStyles); err != nil {
		return models.StyleConfig{}, err
	}
	return next.Style, nil
}

// AddSection appends a section titled after the number of existing
// sections: "Section A", "Section B", ... "Section AA".
func (s *Store) AddSection(ctx context.Context) (models.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := models.Section{
		ID:    s.freshID(func(id string) bool { return s.sectionIndex(id) >= 0 }),
		Title: utils.SectionTitle(len(s.data.Sections)),
	}
	next := s.data
	next.Sections = append(append([]models.Section{}, s.data.Sections...), sec)
	if err := s.commit(ctx, next, KeySections); err != nil {
		return models.Section{}, err
	}
	return sec, nil
}

// UpdateSection merges the patch into the section with the given id.
func (s *Store) UpdateSection(ctx context.Context, id string, patch models.SectionPatch) (models.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.sectionIndex(id)
	if i < 0 {
		return models.Section{}, ErrSectionNotFound
	}
	next := s.data
	next.Sections = append([]models.Section{}, s.data.Sections...)
	next.Sections[i] = patch.Apply(next.Sections[i])
	if err := s.commit(ctx, next, KeySections); err != nil {
		return models.Section{}, err
	}
	return next.Sections[i], nil
}

// RemoveSection deletes a section and moves its questions, in order, to the
// first remaining section. The last section cannot be removed.
func (s *Store) RemoveSection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.sectionIndex(id)
	if i < 0 {
		return ErrSectionNotFound
	}
	if len(s.data.Sections) <= 1 {
		return ErrLastSection
	}
	next := s.data
	next.Sections = make([]models.Section, 0, len(s.data.Sections)-1)
	next.Sections = append(next.Sections, s.data.Sections[:i]...)
	next.Sections = append(next.Sections, s.data.Sections[i+1:]...)
	fallback := next.Sections[0].ID

	moved := false
	questions := make([]models.Question, len(s.data.Questions))
	for j, q := range s.data.Questions {
		if q.SectionID == id {
			q.SectionID = fallback
			moved = true
		}
		questions[j] = q
	}
	keys := []string{KeySections}
	if moved {
		next.Questions = questions
		keys = append(keys, KeyQuestions)
	}
	if err := s.commit(ctx, next, keys...); err != nil {
		return err
	}
	s.log.Info("section removed", zap.String("section_id", id), zap.Bool("questions_moved", moved))
	return nil
}

// AddQuestion appends a new question to the given section, or to the first
// section when sectionID is empty.
func (s *Store) AddQuestion(ctx context.Context, in models.QuestionInput, sectionID string) (models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(in.QuestionText) == "" {
		return models.Question{}, ErrEmptyQuestionText
	}
	if sectionID == "" {
		sectionID = s.data.Sections[0].ID
	} else if s.sectionIndex(sectionID) < 0 {
		return models.Question{}, ErrSectionNotFound
	}
	q := normalizeQuestion(models.Question{
		ID:           s.freshID(func(id string) bool { return s.questionIndex(id) >= 0 }),
		SectionID:    sectionID,
		Type:         in.Type,
		QuestionText: in.QuestionText,
		Marks:        in.Marks,
		Difficulty:   in.Difficulty,
		Options:      in.Options,
		Timestamp:    s.now().UnixMilli(),
	})
	if err := s.appendQuestion(ctx, q); err != nil {
		return models.Question{}, err
	}
	return cloneQuestion(q), nil
}

// UpdateQuestion merges the patch into the question with the given id.
func (s *Store) UpdateQuestion(ctx context.Context, id string, patch models.QuestionPatch) (models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.questionIndex(id)
	if i < 0 {
		return models.Question{}, ErrQuestionNotFound
	}
	q := normalizeQuestion(patch.Apply(cloneQuestion(s.data.Questions[i])))
	if strings.TrimSpace(q.QuestionText) == "" {
		return models.Question{}, ErrEmptyQuestionText
	}
	if patch.SectionID != nil && s.sectionIndex(q.SectionID) < 0 {
		return models.Question{}, ErrSectionNotFound
	}
	next := s.data
	next.Questions = append([]models.Question{}, s.data.Questions...)
	next.Questions[i] = q
	if err := s.commit(ctx, next, KeyQuestions); err != nil {
		return models.Question{}, err
	}
	return cloneQuestion(q), nil
}

// RemoveQuestion deletes a question. Sections are untouched.
func (s *Store) RemoveQuestion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.questionIndex(id)
	if i < 0 {
		return ErrQuestionNotFound
	}
	next := s.data
	next.Questions = make([]models.Question, 0, len(s.data.Questions)-1)
	next.Questions = append(next.Questions, s.data.Questions[:i]...)
	next.Questions = append(next.Questions, s.data.Questions[i+1:]...)
	return s.commit(ctx, next, KeyQuestions)
}

// DuplicateQuestion appends a copy of a question with a fresh id and
// timestamp. The copy lands in the same section as the original.
func (s *Store) DuplicateQuestion(ctx context.Context, id string) (models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.questionIndex(id)
	if i < 0 {
		return models.Question{}, ErrQuestionNotFound
	}
	q := cloneQuestion(s.data.Questions[i])
	if q.SectionID == "" || s.sectionIndex(q.SectionID) < 0 {
		q.SectionID = s.data.Sections[0].ID
	}
	q.ID = s.freshID(func(id string) bool { return s.questionIndex(id) >= 0 })
	q.Timestamp = s.now().UnixMilli()
	if err := s.appendQuestion(ctx, q); err != nil {
		return models.Question{}, err
	}
	return cloneQuestion(q), nil
}

// ReorderQuestions sets the global question order. ids must list every
// current question exactly once.
func (s *Store) ReorderQuestions(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) != len(s.data.Questions) {
		return ErrInvalidOrder
	}
	byID := make(map[string]models.Question, len(s.data.Questions))
	for _, q := range s.data.Questions {
		byID[q.ID] = q
	}
	next := s.data
	next.Questions = make([]models.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return ErrInvalidOrder
		}
		delete(byID, id)
		next.Questions = append(next.Questions, q)
	}
	return s.commit(ctx, next, KeyQuestions)
}

// ResetAll restores every record to its default.
func (s *Store) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commit(ctx, models.DefaultSnapshot(s.now()), AllKeys...); err != nil {
		return err
	}
	s.log.Info("exam reset to defaults")
	return nil
}

// Replace swaps in a whole exam. The snapshot must have at least one
// section, unique ids and no dangling section references.
func (s *Store) Replace(ctx context.Context, snap models.Snapshot) error {
	if err := Validate(snap); err != nil {
		return err
	}
	next := snap.Clone()
	for i, q := range next.Questions {
		next.Questions[i] = normalizeQuestion(q)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, next, AllKeys...)
}

// Validate checks the structural invariants of a snapshot.
func Validate(snap models.Snapshot) error {
	if len(snap.Sections) == 0 {
		return errors.New("exam must have at least one section")
	}
	sections := make(map[string]bool, len(snap.Sections))
	for i, sec := range snap.Sections {
		if sec.ID == "" {
			return fmt.Errorf("section %d: missing id", i+1)
		}
		if sections[sec.ID] {
			return fmt.Errorf("section %d: duplicate id %q", i+1, sec.ID)
		}
		sections[sec.ID] = true
	}
	questions := make(map[string]bool, len(snap.Questions))
	for i, q := range snap.Questions {
		if q.ID == "" {
			return fmt.Errorf("question %d: missing id", i+1)
		}
		if questions[q.ID] {
			return fmt.Errorf("question %d: duplicate id %q", i+1, q.ID)
		}
		questions[q.ID] = true
		if strings.TrimSpace(q.QuestionText) == "" {
			return fmt.Errorf("question %d: %w", i+1, ErrEmptyQuestionText)
		}
		if q.SectionID != "" && !sections[q.SectionID] {
			return fmt.Errorf("question %d: %w: %q", i+1, ErrSectionNotFound, q.SectionID)
		}
	}
	return nil
}

func (s *Store) appendQuestion(ctx context.Context, q models.Question) error {
	next := s.data
	next.Questions = append(append([]models.Question{}, s.data.Questions...), q)
	return s.commit(ctx, next, KeyQuestions)
}

func (s *Store) freshID(taken func(string) bool) string {
	for {
		if id := s.newID(); id != "" && !taken(id) {
			return id
		}
	}
}

func (s *Store) sectionIndex(id string) int {
	for i, sec := range s.data.Sections {
		if sec.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) questionIndex(id string) int {
	for i, q := range s.data.Questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// normalizeQuestion fills defaults: short type, Medium difficulty,
// non-negative marks and exactly four options.
func normalizeQuestion(q models.Question) models.Question {
	if !q.Type.Valid() {
		q.Type = models.QuestionShort
	}
	if !q.Difficulty.Valid() {
		q.Difficulty = models.Medium
	}
	if q.Marks < 0 {
		q.Marks = 0
	}
	q.Options = models.NormalizeOptions(q.Options)
	return q
}

func cloneQuestion(q models.Question) models.Question {
	q.Options = append([]string{}, q.Options...)
	return q
}

func cloneMeta(m models.ExamMeta) models.ExamMeta {
	m.Instructions = append([]string{}, m.Instructions...)
	return m
}
