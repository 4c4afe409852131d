package transmit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkiehq/talkie/internal/domain"
)

func TestAcquireExclusive(t *testing.T) {
	a := NewArbiter()

	res, l := a.Acquire("general", "u1", "alice")
	require.Equal(t, Acquired, res)
	assert.Equal(t, "alice", l.Username)

	res, holder := a.Acquire("general", "u2", "bob")
	assert.Equal(t, Busy, res)
	assert.Equal(t, "alice", holder.Username, "busy result names the current holder")

	// A different channel is independent.
	res, _ = a.Acquire("random", "u2", "bob")
	assert.Equal(t, Acquired, res)
	assert.Equal(t, 2, a.Count())
}

func TestReacquireIsIdempotent(t *testing.T) {
	a := NewArbiter()

	res, first := a.Acquire("general", "u1", "alice")
	require.Equal(t, Acquired, res)

	res, again := a.Acquire("general", "u1", "alice")
	assert.Equal(t, Reacquired, res)
	assert.Equal(t, first.StartTime, again.StartTime, "retry must not reset the hold")
	assert.Equal(t, 1, a.Count())
}

func TestReleaseOnlyByHolder(t *testing.T) {
	a := NewArbiter()
	start := time.Now()
	a.now = func() time.Time { return start }
	a.Acquire("general", "u1", "alice")

	_, ok := a.Release("general", "u2")
	assert.False(t, ok, "non-holder release is a no-op")
	assert.True(t, a.IsHolder("general", "u1"))

	a.now = func() time.Time { return start.Add(1500 * time.Millisecond) }
	d, ok := a.Release("general", "u1")
	require.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, d)
	assert.Equal(t, 0, a.Count())

	_, ok = a.Release("general", "u1")
	assert.False(t, ok, "double release finds nothing")
}

func TestCurrent(t *testing.T) {
	a := NewArbiter()

	_, held := a.Current("general")
	assert.False(t, held)

	a.Acquire("general", "u1", "alice")
	l, held := a.Current("general")
	require.True(t, held)
	assert.Equal(t, "alice", l.Username)

	// The returned lock is a copy.
	l.Username = "mallory"
	l2, _ := a.Current("general")
	assert.Equal(t, "alice", l2.Username)
}

// Two users hammering Acquire on the same channel must produce exactly one
// holder per round, never two.
func TestConcurrentAcquireSingleWinner(t *testing.T) {
	a := NewArbiter()

	for round := 0; round < 200; round++ {
		var wg sync.WaitGroup
		results := make([]AcquireResult, 2)
		for i, uid := range []string{"u1", "u2"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], _ = a.Acquire("general", domain.UserID(uid), uid)
			}()
		}
		wg.Wait()

		acquired := 0
		for _, r := range results {
			if r == Acquired {
				acquired++
			}
		}
		require.Equal(t, 1, acquired, "exactly one winner per round")
		require.Equal(t, 1, a.Count())

		holder, _ := a.Current("general")
		_, ok := a.Release("general", holder.UserID)
		require.True(t, ok)
	}
}
