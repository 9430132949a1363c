package cleaning

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"insightcli/internal/dataset"
	"insightcli/internal/impute"
)

// Store hands out cleaning sessions by id. Each session carries its own
// lock, so the store only guards the id map; operations on distinct
// sessions never contend with each other.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	caps   impute.Capabilities
	logger *slog.Logger
	tracer *OperationTracer
}

// StoreStats is the health view of the session store.
type StoreStats struct {
	ActiveSessions  int `json:"active_sessions"`
	TotalOperations int `json:"total_operations"`
	TotalRows       int `json:"total_rows"`
}

// NewStore builds an empty session store. A nil logger falls back to
// slog.Default(); a nil tracer disables instrumentation.
func NewStore(caps impute.Capabilities, logger *slog.Logger, tracer *OperationTracer) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		caps:     caps,
		logger:   logger,
		tracer:   tracer,
	}
}

// Capabilities returns the strategy capabilities sessions are created with.
func (s *Store) Capabilities() impute.Capabilities { return s.caps }

// Create registers a new session around ds and returns it.
func (s *Store) Create(ctx context.Context, name string, ds *dataset.Dataset) *Session {
	session := NewSession(name, ds, s.caps, s.logger)
	session.setTracer(s.tracer)

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	s.tracer.SessionOpened(ctx)
	s.logger.InfoContext(ctx, "session created",
		slog.String("session_id", session.ID()),
		slog.String("dataset", name),
		slog.Int("rows", ds.Rows()),
		slog.Int("columns", ds.NumColumns()))
	return session
}

// Get looks up a session by id.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Delete removes a session. It reports whether the id was present.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		s.tracer.SessionClosed(ctx)
		s.logger.InfoContext(ctx, "session deleted", slog.String("session_id", id))
	}
	return ok
}

// List returns session summaries ordered by creation time, oldest first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt().Before(sessions[j].CreatedAt())
	})
	out := make([]Summary, len(sessions))
	for i, session := range sessions {
		out[i] = session.Summarize()
	}
	return out
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stats aggregates store-wide numbers for the health endpoint.
func (s *Store) Stats() StoreStats {
	summaries := s.List()
	stats := StoreStats{ActiveSessions: len(summaries)}
	for _, sm := range summaries {
		stats.TotalOperations += sm.Operations
		stats.TotalRows += sm.Rows
	}
	return stats
}
