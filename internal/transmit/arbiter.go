// Package transmit arbitrates the per-channel speaker lock. The channel models
// a shared radio: one party transmits at a time, everyone else listens.
package transmit

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/talkiehq/talkie/internal/domain"
)

// Lock records who currently holds a channel's transmission right.
type Lock struct {
	ChannelID domain.ChannelID
	UserID    domain.UserID
	Username  string
	StartTime time.Time
}

// Arbiter keeps at most one Lock per channel. All check-and-set steps happen
// under one mutex, so two concurrent Acquire calls for the same channel can
// never both succeed.
type Arbiter struct {
	mu    sync.Mutex
	locks map[domain.ChannelID]*Lock
	now   func() time.Time
}

func NewArbiter() *Arbiter {
	return &Arbiter{
		locks: make(map[domain.ChannelID]*Lock),
		now:   time.Now,
	}
}

type AcquireResult int

const (
	// Acquired means a fresh lock was created.
	Acquired AcquireResult = iota
	// Reacquired means the caller already held the lock; a duplicate client
	// retry, tolerated without creating new state.
	Reacquired
	// Busy means another user holds the lock.
	Busy
)

// Acquire takes the speaker lock for the channel. The check-and-set is one
// atomic step; on Busy the returned lock identifies the current holder and
// nothing is mutated. Reacquired keeps the original start time.
func (a *Arbiter) Acquire(channelID domain.ChannelID, uid domain.UserID, username string) (AcquireResult, *Lock) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, found := a.locks[channelID]; found {
		if existing.UserID == uid {
			return Reacquired, existing
		}
		return Busy, existing
	}

	l := &Lock{ChannelID: channelID, UserID: uid, Username: username, StartTime: a.now()}
	a.locks[channelID] = l
	log.Info().Str("module", "transmit.arbiter").Str("channel", string(channelID)).Str("user", string(uid)).Msg("transmission started")
	return Acquired, l
}

// Release clears the lock only when uid is the holder, returning the hold
// duration. A non-holder release returns false; that is an expected race at
// end-of-transmission, not an error.
func (a *Arbiter) Release(channelID domain.ChannelID, uid domain.UserID) (time.Duration, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, found := a.locks[channelID]
	if !found || l.UserID != uid {
		return 0, false
	}
	delete(a.locks, channelID)
	d := a.now().Sub(l.StartTime)
	log.Info().Str("module", "transmit.arbiter").Str("channel", string(channelID)).Str("user", string(uid)).Dur("held", d).Msg("transmission ended")
	return d, true
}

// Current returns the active lock for the channel, if any.
func (a *Arbiter) Current(channelID domain.ChannelID) (*Lock, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, found := a.locks[channelID]
	if !found {
		return nil, false
	}
	cp := *l
	return &cp, true
}

// IsHolder reports whether uid currently holds the channel's lock.
func (a *Arbiter) IsHolder(channelID domain.ChannelID, uid domain.UserID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, found := a.locks[channelID]
	return found && l.UserID == uid
}

func (a *Arbiter) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.locks)
}
