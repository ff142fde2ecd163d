package donation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown submission ids.
var ErrNotFound = errors.New("submission not found")

// Submission is an archived donation.
type Submission struct {
	ID        string
	Profile   string
	FileName  string
	CreatedAt time.Time
	Metadata  Metadata
	Body      json.RawMessage
}

// Store archives submissions.
type Store interface {
	Save(ctx context.Context, s Submission) error
	Get(ctx context.Context, id string) (Submission, error)
	// Purge deletes submissions created before the cutoff.
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// MemoryStore keeps submissions in process memory. It is used when no
// database is configured and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]Submission
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]Submission)}
}

// Save stores s, replacing any submission with the same id.
func (m *MemoryStore) Save(ctx context.Context, s Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s.Body = append(json.RawMessage(nil), s.Body...)
	m.subs[s.ID] = s
	return nil
}

// Get returns a stored submission.
func (m *MemoryStore) Get(ctx context.Context, id string) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.subs[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return s, nil
}

// Purge deletes submissions created before the cutoff.
func (m *MemoryStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, s := range m.subs {
		if s.CreatedAt.Before(before) {
			delete(m.subs, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored submissions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}
