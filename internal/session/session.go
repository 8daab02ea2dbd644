package session

import (
	"sync"
	"time"

	"github.com/kidslingo/kidslingo/internal/schema"
)

// Session holds one conversation's messages and metadata.
type Session struct {
	Key       string
	Messages  schema.Messages
	CreatedAt time.Time
	UpdatedAt time.Time
	Metadata  map[string]any

	mu sync.Mutex
}

func newSession(key string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		Messages:  schema.NewMessages(),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]any{},
	}
}

// Replace stores a finished turn's conversation. System messages are dropped;
// the orchestrator supplies the canonical one on every turn.
func (s *Session) Replace(msgs []schema.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := schema.NewMessages()
	for _, m := range msgs {
		if m.Role != schema.RoleSystem {
			kept.Messages = append(kept.Messages, m)
		}
	}
	s.Messages = kept
	s.UpdatedAt = time.Now()
}

// History returns at most maxMessages recent messages, starting at a user
// message so no tool result is separated from the call that produced it.
func (s *Session) History(maxMessages int) []schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.Messages.Messages
	if maxMessages > 0 && len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	for len(msgs) > 0 && msgs[0].Role != schema.RoleUser {
		msgs = msgs[1:]
	}
	out := make([]schema.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Len returns the number of messages in the session.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Messages.Len()
}

// Clear drops all messages.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = schema.NewMessages()
	s.UpdatedAt = time.Now()
}
