package chat

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Exchange is one completed user/assistant pair.
type Exchange struct {
	Query  string
	Answer string
}

// SessionStore keeps per-session conversation history in memory,
// bounded to the most recent maxExchanges pairs.
type SessionStore struct {
	mu           sync.RWMutex
	maxExchanges int
	sessions     map[string][]Exchange
}

func NewSessionStore(maxExchanges int) *SessionStore {
	return &SessionStore{
		maxExchanges: maxExchanges,
		sessions:     make(map[string][]Exchange),
	}
}

// Create registers a new empty session and returns its ID.
func (s *SessionStore) Create() string {
	id := uuid.New().String()
	s.mu.Lock()
	s.sessions[id] = nil
	s.mu.Unlock()
	sessionsActive.Inc()
	return id
}

// Append records a completed exchange, evicting the oldest entries
// beyond the configured cap. Appending to an unknown ID creates the
// session, so callers may pass IDs minted elsewhere.
func (s *SessionStore) Append(id string, ex Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, ok := s.sessions[id]
	if !ok {
		sessionsActive.Inc()
	}
	history = append(history, ex)
	if s.maxExchanges > 0 && len(history) > s.maxExchanges {
		history = history[len(history)-s.maxExchanges:]
	}
	s.sessions[id] = history
}

// History renders a session transcript as alternating "User:" and
// "Assistant:" lines. Unknown or empty sessions yield "".
func (s *SessionStore) History(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.sessions[id]
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, 0, len(history)*2)
	for _, ex := range history {
		lines = append(lines, "User: "+ex.Query)
		lines = append(lines, "Assistant: "+ex.Answer)
	}
	return strings.Join(lines, "\n")
}

// Clear removes a session entirely.
func (s *SessionStore) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		sessionsActive.Dec()
	}
}
