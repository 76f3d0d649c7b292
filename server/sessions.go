package server

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/shiftd-io/shiftd/server/channel"
)

var (
	errSessionNotFound = errors.New("session not found")
	errSessionsClosed  = errors.New("server is shutting down")
)

// sessionTable tracks the sessions opened through the network APIs by token.
// Tokens of recently closed sessions are remembered so that using one is
// reported as a stale session rather than an unknown one.
type sessionTable struct {
	registry *channel.Registry
	mu       sync.Mutex
	sessions map[string]*channel.Session
	released *lru.Cache
	closed   bool
}

func newSessionTable(registry *channel.Registry, releasedSize int) (*sessionTable, error) {
	released, err := lru.New(releasedSize)
	if err != nil {
		return nil, err
	}
	return &sessionTable{
		registry: registry,
		sessions: make(map[string]*channel.Session),
		released: released,
	}, nil
}

// open acquires the channel and starts tracking the new session.
func (t *sessionTable) open(id channel.ID) (*channel.Session, error) {
	sess, err := t.registry.Open(id)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		sess.Close()
		return nil, errSessionsClosed
	}
	t.sessions[sess.Token()] = sess
	t.mu.Unlock()
	return sess, nil
}

// get returns the live session for token.
func (t *sessionTable) get(token string) (*channel.Session, error) {
	t.mu.Lock()
	sess, ok := t.sessions[token]
	t.mu.Unlock()
	if ok {
		return sess, nil
	}
	if t.released.Contains(token) {
		return nil, channel.ErrStaleSession
	}
	return nil, errSessionNotFound
}

// close releases the session's channel and forgets the session.
func (t *sessionTable) close(token string) error {
	t.mu.Lock()
	sess, ok := t.sessions[token]
	if ok {
		delete(t.sessions, token)
	}
	t.mu.Unlock()
	if !ok {
		if t.released.Contains(token) {
			return channel.ErrStaleSession
		}
		return errSessionNotFound
	}
	t.released.Add(token, sess.Channel())
	return sess.Close()
}

// closeAll releases every tracked session and returns how many there were.
// Sessions opened afterwards are released immediately.
func (t *sessionTable) closeAll() int {
	t.mu.Lock()
	t.closed = true
	sessions := t.sessions
	t.sessions = make(map[string]*channel.Session)
	t.mu.Unlock()
	for token, sess := range sessions {
		t.released.Add(token, sess.Channel())
		sess.Close()
	}
	return len(sessions)
}

func (t *sessionTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
