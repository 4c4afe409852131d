package session

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/talkiehq/talkie/internal/domain"
)

// Registry holds at most one Session per user id.
type Registry struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]*Session
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[domain.UserID]*Session)}
}

// Register inserts a fresh unauthenticated session for the user. An existing
// session for the same id is forcibly closed and handed back so the caller can
// run its cleanup cascade; its own close event becomes a no-op via RemoveIfSame.
func (r *Registry) Register(user domain.User, conn Conn) (sess, replaced *Session) {
	sess = newSession(user, conn)

	r.mu.Lock()
	replaced = r.byUser[user.ID]
	r.byUser[user.ID] = sess
	r.mu.Unlock()

	if replaced != nil {
		log.Info().Str("module", "session.registry").Str("user", string(user.ID)).Msg("replacing existing connection")
		replaced.Conn().Close(websocket.ClosePolicyViolation, "logged in elsewhere")
	}
	log.Info().Str("module", "session.registry").Str("user", string(user.ID)).Str("username", user.Username).Msg("connection added")
	return sess, replaced
}

func (r *Registry) Get(uid domain.UserID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUser[uid]
	return s, ok
}

// MarkAuthenticated is a no-op when the connection already closed.
func (r *Registry) MarkAuthenticated(uid domain.UserID) {
	if s, ok := r.Get(uid); ok {
		s.setAuthenticated()
		log.Info().Str("module", "session.registry").Str("user", string(uid)).Msg("authenticated")
	}
}

// SetChannelIfSame updates the session's weak channel reference only when the
// caller's socket is still the registered one. A frame that was already in
// flight when its session was torn down, or that arrived on a replaced socket,
// finds a mismatch here and must undo whatever directory state it created.
// Keeping the directory's member set in step is the caller's job.
func (r *Registry) SetChannelIfSame(uid domain.UserID, sid string, channelID domain.ChannelID) bool {
	s, ok := r.Get(uid)
	if !ok || s.SID() != sid {
		return false
	}
	s.setChannel(channelID)
	return true
}

// Remove deletes the user's session unconditionally.
func (r *Registry) Remove(uid domain.UserID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byUser[uid]
	if ok {
		delete(r.byUser, uid)
		log.Info().Str("module", "session.registry").Str("user", string(uid)).Msg("connection removed")
	}
	return s, ok
}

// RemoveIfSame deletes the user's session only when it is still the socket the
// caller saw. A close event from a replaced socket finds a different sid here
// and leaves the replacement alone.
func (r *Registry) RemoveIfSame(uid domain.UserID, sid string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byUser[uid]
	if !ok || s.SID() != sid {
		return nil, false
	}
	delete(r.byUser, uid)
	log.Info().Str("module", "session.registry").Str("user", string(uid)).Msg("connection removed")
	return s, true
}

// ByChannel returns a point-in-time snapshot of the members of a channel.
// Joins and leaves after the call are not visible in the returned slice.
func (r *Registry) ByChannel(channelID domain.ChannelID) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Session
	for _, s := range r.byUser {
		if s.Channel() == channelID {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.byUser))
	for _, s := range r.byUser {
		out = append(out, s)
	}
	return out
}

// MarkAliveIfSame refreshes liveness only for the socket the pong came from.
// A replaced socket lingering through its close handshake must not mask a
// dead replacement from the sweep.
func (r *Registry) MarkAliveIfSame(uid domain.UserID, sid string) {
	if s, ok := r.Get(uid); ok && s.SID() == sid {
		s.setAlive(true)
	}
}

// MarkPendingCheck clears the liveness flag; the transport's pong handler is
// expected to set it again before the next sweep.
func (r *Registry) MarkPendingCheck(uid domain.UserID) {
	if s, ok := r.Get(uid); ok {
		s.setAlive(false)
	}
}

// Unresponsive lists sessions whose liveness flag was not refreshed since the
// previous sweep.
func (r *Registry) Unresponsive() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Session
	for _, s := range r.byUser {
		if !s.Alive() {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

func (r *Registry) AuthenticatedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.byUser {
		if s.Authenticated() {
			n++
		}
	}
	return n
}
