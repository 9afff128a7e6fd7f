package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicedev/vox/internal/domain"
)

// slot wraps one session with its own mutex so concurrent appends to the
// same session serialize without blocking appends to other sessions.
type slot struct {
	mu      sync.Mutex
	session domain.Session
}

// savedRun binds one recorded pipeline run to its originating session
type savedRun struct {
	sessionID string
	run       domain.PipelineRun
}

// MemoryStore is an in-memory session store. Sessions beyond the
// configured maximum are evicted oldest-first by creation time.
type MemoryStore struct {
	mu          sync.RWMutex
	slots       map[string]*slot
	runs        []savedRun
	maxSessions int
}

// NewMemoryStore creates an in-memory store holding at most maxSessions
// sessions (0 means unbounded).
func NewMemoryStore(maxSessions int) *MemoryStore {
	return &MemoryStore{
		slots:       make(map[string]*slot),
		maxSessions: maxSessions,
	}
}

// Create makes a new session with a fresh UUID
func (s *MemoryStore) Create(context domain.Context) (*domain.Session, error) {
	sess := domain.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Context:   context,
	}

	s.mu.Lock()
	s.slots[sess.ID] = &slot{session: sess}
	s.enforceLimit()
	s.mu.Unlock()

	return copySession(&sess), nil
}

// Get returns a snapshot of the session. The copy means readers observe
// a consistent prefix even while appends continue.
func (s *MemoryStore) Get(id string) (*domain.Session, error) {
	s.mu.RLock()
	sl, ok := s.slots[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	return copySession(&sl.session), nil
}

// Append adds one entry, serialized per session
func (s *MemoryStore) Append(id, role, content string) error {
	s.mu.RLock()
	sl, ok := s.slots[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	sl.mu.Lock()
	sl.session.History = append(sl.session.History, domain.Entry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	sl.mu.Unlock()
	return nil
}

// Delete removes a session. Recorded runs survive but lose their
// session binding.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[id]; !ok {
		return ErrNotFound
	}
	delete(s.slots, id)
	for i := range s.runs {
		if s.runs[i].sessionID == id {
			s.runs[i].sessionID = ""
		}
	}
	return nil
}

// List returns summaries ordered by creation time
func (s *MemoryStore) List() ([]domain.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]domain.Summary, 0, len(s.slots))
	for _, sl := range s.slots {
		sl.mu.Lock()
		summaries = append(summaries, sl.session.Summarize())
		sl.mu.Unlock()
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// SaveRun records a finished pipeline run
func (s *MemoryStore) SaveRun(sessionID string, run *domain.PipelineRun) error {
	copied := *run
	copied.Results = append([]domain.AgentResult(nil), run.Results...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sessionID != "" {
		if _, ok := s.slots[sessionID]; !ok {
			return ErrNotFound
		}
	}
	s.runs = append(s.runs, savedRun{sessionID: sessionID, run: copied})
	return nil
}

// Runs returns the recorded runs for a session in insertion order
func (s *MemoryStore) Runs(sessionID string) ([]domain.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sessionID != "" {
		if _, ok := s.slots[sessionID]; !ok {
			return nil, ErrNotFound
		}
	}

	var runs []domain.PipelineRun
	for _, sr := range s.runs {
		if sr.sessionID == sessionID {
			runs = append(runs, sr.run)
		}
	}
	return runs, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error { return nil }

// enforceLimit evicts oldest-created sessions over the cap.
// Caller holds the write lock.
func (s *MemoryStore) enforceLimit() {
	if s.maxSessions <= 0 {
		return
	}
	for len(s.slots) > s.maxSessions {
		oldestID := ""
		var oldest time.Time
		for id, sl := range s.slots {
			if oldestID == "" || sl.session.CreatedAt.Before(oldest) {
				oldestID = id
				oldest = sl.session.CreatedAt
			}
		}
		delete(s.slots, oldestID)
	}
}

func copySession(in *domain.Session) *domain.Session {
	out := *in
	out.Context = append(domain.Context(nil), in.Context...)
	out.History = append([]domain.Entry(nil), in.History...)
	return &out
}
