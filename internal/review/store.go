package review

import (
	"sync"
	"time"

	"github.com/JonMunkholm/datadonation/internal/extract"
	"github.com/google/uuid"
)

// DefaultTTL is how long a session lives when no TTL is configured.
const DefaultTTL = 30 * time.Minute

// Store keeps sessions in memory and drops them after their TTL.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a store whose sessions expire after ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// TTL returns the session lifetime.
func (st *Store) TTL() time.Duration { return st.ttl }

// Create stores a new session for res and schedules its removal.
func (st *Store) Create(profileName, fileName string, res *extract.Result) *Session {
	id := uuid.New().String()
	sess := NewSession(id, profileName, fileName, res, st.now(), st.ttl)

	st.mu.Lock()
	st.sessions[id] = sess
	st.mu.Unlock()

	st.cleanup(id, st.ttl)
	return sess
}

// Get returns a live session.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.Expired(st.now()) {
		st.Delete(id)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Delete removes a session. It reports whether the session existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

// Len returns the number of stored sessions, expired ones included until
// they are swept.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes every expired session and returns how many were removed.
func (st *Store) Sweep() int {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for id, sess := range st.sessions {
		if sess.Expired(now) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// cleanup removes the session from tracking after a delay.
func (st *Store) cleanup(id string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		st.mu.Lock()
		delete(st.sessions, id)
		st.mu.Unlock()
	})
}
