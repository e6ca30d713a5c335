package store

import (
	"context"
	"errors"
	"sync"
)

// Keys of the four persisted records.
const (
	KeyMeta      = "exam_meta"
	KeyQuestions = "exam_questions"
	KeyStyles    = "exam_styles"
	KeySections  = "exam_sections"
)

// AllKeys lists every record key in a fixed order.
var AllKeys = []string{KeyMeta, KeyQuestions, KeyStyles, KeySections}

// ErrRecordNotFound is returned by Records.Get for a key that was never written.
var ErrRecordNotFound = errors.New("record not found")

// Record is one keyed JSON document.
type Record struct {
	Key   string
	Value []byte
}

// Records is a durable key-value backend for the exam records.
type Records interface {
	// Get returns the stored value, or ErrRecordNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes all entries or none of them.
	Put(ctx context.Context, entries ...Record) error
}

// MemoryRecords keeps records in memory. It is safe for concurrent use.
type MemoryRecords struct {
	mu   sync.Mutex
	data map[string][]byte
	// FailPut, when set, is returned by every Put without writing anything.
	FailPut error
}

// NewMemoryRecords returns an empty in-memory backend.
func NewMemoryRecords() *MemoryRecords {
	return &MemoryRecords{data: map[string][]byte{}}
}

func (m *MemoryRecords) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryRecords) Put(ctx context.Context, entries ...Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut != nil {
		return m.FailPut
	}
	for _, e := range entries {
		m.data[e.Key] = append([]byte(nil), e.Value...)
	}
	return nil
}

// Set stores a raw value, bypassing validation. Used to seed fixtures.
func (m *MemoryRecords) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
}
