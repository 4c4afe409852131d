package hub

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Run drives the liveness sweep until ctx is cancelled. Main starts it in its
// own goroutine; the interval is independent of message traffic.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.PingPeriod)
	defer ticker.Stop()

	log.Info().Str("module", "hub.monitor").Dur("period", h.PingPeriod).Msg("liveness monitor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "hub.monitor").Msg("liveness monitor stopped")
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Sweep evicts every session that did not answer the previous probe, then
// probes the rest. Eviction funnels through the same disconnect path as a
// normal close, so a half-open socket cannot hold a speaker lock or channel
// seat forever.
func (h *Hub) Sweep() {
	for _, sess := range h.Registry.All() {
		if !sess.Alive() {
			log.Warn().Str("module", "hub.monitor").Str("user", string(sess.User().ID)).Str("username", sess.User().Username).Msg("terminating dead connection")
			h.Metrics.EvictionsTotal.Inc()
			sess.Conn().Terminate()
			h.OnDisconnect(sess)
			continue
		}

		h.Registry.MarkPendingCheck(sess.User().ID)
		if err := sess.Conn().Ping(); err != nil {
			log.Warn().Str("module", "hub.monitor").Str("user", string(sess.User().ID)).Err(err).Msg("ping failed")
		}
	}
}
