// Package session owns the live binding between a user identity and one open
// connection, plus the registry of all such bindings.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/talkiehq/talkie/internal/domain"
	"github.com/talkiehq/talkie/internal/protocol"
)

// Conn is the transport endpoint a session exclusively owns. The adapter that
// created it must close underlying resources when the pumps exit.
type Conn interface {
	// TrySend queues a frame without blocking; returns an error when the
	// client cannot keep up.
	TrySend(f protocol.Frame) error
	// Ping sends a transport-level liveness probe.
	Ping() error
	// Close performs a closing handshake with the given close code, then
	// tears the connection down.
	Close(code int, reason string)
	// Terminate drops the connection without a closing handshake.
	Terminate()
}

// Session is one connected, identified user. Identity and transport are fixed
// at construction; the flags and the channel reference are guarded by mu.
type Session struct {
	sid  string
	user domain.User
	conn Conn

	mu            sync.Mutex
	authenticated bool
	alive         bool
	channel       domain.ChannelID
}

func newSession(user domain.User, conn Conn) *Session {
	return &Session{
		sid:   uuid.NewString(),
		user:  user,
		conn:  conn,
		alive: true,
	}
}

// SID distinguishes this socket from any earlier or later socket of the same
// user, so a stale close event cannot tear down a replacement session.
func (s *Session) SID() string       { return s.sid }
func (s *Session) User() domain.User { return s.user }
func (s *Session) Conn() Conn        { return s.conn }

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *Session) setAuthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
}

func (s *Session) Channel() domain.ChannelID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

func (s *Session) setChannel(id domain.ChannelID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = id
}

// TakeChannel atomically clears and returns the channel reference. The leave
// and disconnect paths both funnel through this, so the cascade for a given
// membership runs exactly once.
func (s *Session) TakeChannel() (domain.ChannelID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.channel
	s.channel = ""
	return id, id != ""
}

func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

func (s *Session) setAlive(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = v
}
