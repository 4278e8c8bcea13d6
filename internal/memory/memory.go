// Package memory keeps a bounded conversation history per session. Only the
// most recent messages are retained; older ones are dropped, never summarized.
package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/MrJamesThe3rd/spendsight/internal/llm"
)

const DefaultWindow = 20

// Conversation is the history of one session.
type Conversation interface {
	Messages(ctx context.Context) ([]llm.Message, error)
	Append(ctx context.Context, msgs ...llm.Message) error
}

type Store interface {
	Conversation(sessionID string) Conversation
}

type ownerKey struct{}

// WithOwner binds conversations looked up through ctx to owner, so two
// callers reusing one session id never read each other's history.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// Key is the store key for sessionID under the owner carried by ctx. Session
// ids never contain ':', so owner and session cannot be confused.
func Key(ctx context.Context, sessionID string) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	if owner == "" {
		return sessionID
	}

	return owner + ":" + sessionID
}

// Window is an in-process sliding window of at most size messages.
type Window struct {
	mu       sync.Mutex
	size     int
	messages []llm.Message
}

func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindow
	}

	return &Window{size: size}
}

func (w *Window) Messages(context.Context) ([]llm.Message, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]llm.Message(nil), w.messages...), nil
}

func (w *Window) Append(_ context.Context, msgs ...llm.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.messages = append(w.messages, msgs...)
	if over := len(w.messages) - w.size; over > 0 {
		w.messages = append([]llm.Message(nil), w.messages[over:]...)
	}

	return nil
}

// InMemoryStore keeps one Window per session and forgets the least recently
// used session once maxSessions is reached.
type InMemoryStore struct {
	mu          sync.Mutex
	window      int
	maxSessions int
	order       *list.List
	sessions    map[string]*list.Element
}

type session struct {
	id     string
	window *Window
}

func NewInMemoryStore(window, maxSessions int) *InMemoryStore {
	if maxSessions <= 0 {
		maxSessions = 1024
	}

	return &InMemoryStore{
		window:      window,
		maxSessions: maxSessions,
		order:       list.New(),
		sessions:    make(map[string]*list.Element),
	}
}

func (s *InMemoryStore) Conversation(sessionID string) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.sessions[sessionID]; ok {
		s.order.MoveToFront(el)
		return el.Value.(*session).window
	}

	if s.order.Len() >= s.maxSessions {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.sessions, oldest.Value.(*session).id)
	}

	w := NewWindow(s.window)
	s.sessions[sessionID] = s.order.PushFront(&session{id: sessionID, window: w})

	return w
}

func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.order.Len()
}
