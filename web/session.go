package web

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stepguide/brandpdf"
	"github.com/stepguide/brandpdf/preview"
)

// Session is the per-browser state of the web UI: the documents picked last and
// the pages rendered by the last preview. A session runs one generation at a
// time.
type Session struct {
	ID string

	mu        sync.Mutex
	busy      bool
	documents []brandpdf.Asset
	lastUsed  time.Time

	Gallery *preview.Gallery
}

// Begin marks the session busy. It returns brandpdf.ErrBusy when another run
// on the same session has not finished.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return brandpdf.ErrBusy
	}
	s.busy = true
	return nil
}

// End releases the session taken by Begin.
func (s *Session) End() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Documents returns the last uploaded source documents, in upload order.
func (s *Session) Documents() []brandpdf.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.documents)
}

// SetDocuments replaces the uploaded source documents.
func (s *Session) SetDocuments(docs []brandpdf.Asset) {
	s.mu.Lock()
	s.documents = slices.Clone(docs)
	s.mu.Unlock()
}

// documentNames joins the names of docs for display.
func documentNames(docs []brandpdf.Asset) string {
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return strings.Join(names, ", ")
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.busy && now.Sub(s.lastUsed) > ttl
}

// Store keeps sessions in memory and forgets them after an idle TTL.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a Store whose sessions expire after ttl without use.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the session with id, or a new session when id is unknown or
// expired. The second result reports whether a new session was created.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if s, ok := st.sessions[id]; ok && !s.idle(now, st.ttl) {
		s.touch(now)
		return s, false
	}

	s := &Session{
		ID:       uuid.NewString(),
		lastUsed: now,
		Gallery:  &preview.Gallery{},
	}
	st.sessions[s.ID] = s
	return s, true
}

// Sweep drops idle sessions and returns how many were removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	removed := 0
	for id, s := range st.sessions {
		if s.idle(now, st.ttl) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
