// Package session owns conversation history across turns. The orchestrator
// is stateless; the HTTP layer loads history from here before each turn and
// appends the user/assistant pair afterwards.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/hrkit/interviewbot/provider"
)

// ErrNotFound is returned when a session ID is unknown.
var ErrNotFound = errors.New("session not found")

// Store holds interview sessions in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a generated ID.
func (s *Store) Create() *Session {
	sess := &Session{id: uuid.NewString()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
	return sess
}

// Get retrieves a session by ID.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes a session. Deleting an unknown ID is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Session is one candidate's interview transcript.
type Session struct {
	id string

	mu        sync.RWMutex
	messages  []provider.Message
	concluded bool
}

// ID returns the stable identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// History returns a copy of the transcript in chronological order.
func (s *Session) History() []provider.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]provider.Message, len(s.messages))
	copy(history, s.messages)
	return history
}

// Append adds messages to the transcript.
func (s *Session) Append(msgs ...provider.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
}

// MarkConcluded records that the interview reached its closing sentence.
func (s *Session) MarkConcluded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concluded = true
}

// Concluded reports whether the interview has ended.
func (s *Session) Concluded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.concluded
}
