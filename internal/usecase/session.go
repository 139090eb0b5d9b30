package usecase

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"content-crew/internal/domain"
)

// Session is the message history of one run. Handoffs keep the session;
// agent-as-tool runs get a fresh one.
type Session struct {
	mu        sync.RWMutex
	ID        string
	msgs      []domain.Message
	CreatedAt time.Time
}

// NewSession creates an empty session with a generated ULID.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        NewID(now),
		msgs:      make([]domain.Message, 0, 16),
		CreatedAt: now,
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID for t. IDs generated within the same millisecond
// sort in creation order.
func NewID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// AddMessage appends a message (thread-safe).
func (s *Session) AddMessage(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.msgs = append(s.msgs, msg)
}

// Messages returns a copy of the message history (thread-safe).
func (s *Session) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]domain.Message, len(s.msgs))
	copy(cp, s.msgs)
	return cp
}

// Len returns the number of messages.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}
