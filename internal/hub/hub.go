// Package hub routes inbound frames to the registry, directory and arbiter,
// and fans resulting events out to channel members.
package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/talkiehq/talkie/internal/auth"
	"github.com/talkiehq/talkie/internal/channel"
	"github.com/talkiehq/talkie/internal/domain"
	"github.com/talkiehq/talkie/internal/metrics"
	"github.com/talkiehq/talkie/internal/protocol"
	"github.com/talkiehq/talkie/internal/session"
	"github.com/talkiehq/talkie/internal/transmit"
)

// Hub is the top-level coordinator. All fields are set once at construction
// in main; there is no ambient global state.
type Hub struct {
	Registry  *session.Registry
	Directory *channel.Directory
	Arbiter   *transmit.Arbiter
	Verifier  auth.Verifier
	Metrics   *metrics.Metrics

	// AuthGrace is how long an auth_error frame gets to flush before the
	// socket is closed.
	AuthGrace time.Duration
	// PingPeriod is the liveness sweep interval.
	PingPeriod time.Duration
}

// Connect registers a new session for a handshake-supplied identity. When the
// user already had a live session, the old one is closed and its channel seat
// and speaker lock are unwound before the new session becomes visible to
// broadcasts. With an inline token authentication starts immediately;
// otherwise the client is told to send an auth frame.
func (h *Hub) Connect(ctx context.Context, user domain.User, conn session.Conn, token string) *session.Session {
	sess, replaced := h.Registry.Register(user, conn)
	if replaced != nil {
		h.unwind(replaced)
	}

	h.Metrics.ConnectionsTotal.Inc()
	h.Metrics.ActiveConnections.Set(float64(h.Registry.Count()))

	if token != "" {
		h.Authenticate(ctx, sess, token)
	} else {
		h.send(sess, protocol.Connected("Connected, send auth message with token"))
	}
	return sess
}

// Authenticate verifies the token with the external provider. Failure answers
// auth_error and closes the socket after AuthGrace with a policy-violation
// code; an identity mismatch is the same failure.
func (h *Hub) Authenticate(ctx context.Context, sess *session.Session, token string) {
	uid := sess.User().ID

	resolved, err := h.Verifier.Verify(ctx, token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		h.rejectAuth(sess, "Invalid or expired token", websocket.ClosePolicyViolation)
		return
	case err != nil:
		log.Error().Str("module", "hub").Str("user", string(uid)).Err(err).Msg("auth provider error")
		h.rejectAuth(sess, "Authentication error occurred", websocket.CloseInternalServerErr)
		return
	case resolved != uid:
		h.rejectAuth(sess, "UserId mismatch", websocket.ClosePolicyViolation)
		return
	}

	h.Registry.MarkAuthenticated(uid)
	h.Metrics.AuthenticatedSessions.Set(float64(h.Registry.AuthenticatedCount()))
	h.send(sess, protocol.AuthSuccess(string(uid), sess.User().Username))
	log.Info().Str("module", "hub").Str("user", string(uid)).Msg("user authenticated")
}

func (h *Hub) rejectAuth(sess *session.Session, msg string, closeCode int) {
	h.send(sess, protocol.AuthError(msg))
	conn := sess.Conn()
	time.AfterFunc(h.AuthGrace, func() {
		conn.Close(closeCode, "Authentication failed")
	})
}

// HandleFrame is the per-connection state machine. It runs on the connection's
// read loop, so frames of one sender are processed strictly in order.
func (h *Hub) HandleFrame(ctx context.Context, sess *session.Session, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		// Protocol errors keep the connection open.
		if errors.Is(err, protocol.ErrUnknownType) {
			h.send(sess, protocol.ErrorFrame(err.Error()))
		} else {
			h.send(sess, protocol.ErrorFrame("Invalid message format"))
		}
		return
	}

	if a, ok := msg.(*protocol.Auth); ok {
		h.Metrics.FramesReceived.WithLabelValues(string(protocol.TypeAuth)).Inc()
		h.Authenticate(ctx, sess, a.Token)
		return
	}

	if !sess.Authenticated() {
		h.send(sess, protocol.ErrorFrame("Not authenticated"))
		return
	}

	switch v := msg.(type) {
	case *protocol.JoinChannel:
		h.Metrics.FramesReceived.WithLabelValues(string(protocol.TypeJoinChannel)).Inc()
		h.handleJoin(sess, v)
	case *protocol.LeaveChannel:
		h.Metrics.FramesReceived.WithLabelValues(string(protocol.TypeLeaveChannel)).Inc()
		h.handleLeave(sess, v)
	case *protocol.StartTransmission:
		h.Metrics.FramesReceived.WithLabelValues(string(protocol.TypeStartTransmission)).Inc()
		h.handleStart(sess, v)
	case *protocol.AudioChunk:
		h.Metrics.FramesReceived.WithLabelValues(string(protocol.TypeAudioChunk)).Inc()
		h.handleAudio(sess, v)
	case *protocol.EndTransmission:
		h.Metrics.FramesReceived.WithLabelValues(string(protocol.TypeEndTransmission)).Inc()
		h.handleEnd(sess, v)
	case *protocol.ChatMessage:
		h.Metrics.FramesReceived.WithLabelValues(string(protocol.TypeMessage)).Inc()
		h.handleChat(sess, v)
	}
}

// handleJoin implements the single-channel-at-a-time policy: being in another
// channel implicitly leaves it first. Rejoining the current channel is a
// no-op, so the channel reference never goes dark mid-broadcast.
func (h *Hub) handleJoin(sess *session.Session, v *protocol.JoinChannel) {
	user := sess.User()
	channelID := domain.ChannelID(v.ChannelID)

	if sess.Channel() == channelID {
		return
	}
	if prev, had := sess.TakeChannel(); had {
		h.finishLeave(sess, prev)
	}

	if !h.Directory.AddMember(channelID, user.ID, user.Username) {
		h.send(sess, protocol.ErrorFrame("Channel not found"))
		return
	}
	if !h.Registry.SetChannelIfSame(user.ID, sess.SID(), channelID) {
		// The session was torn down while this frame was in flight. Undo the
		// seat so the directory never outlives the registry entry.
		h.Directory.RemoveMember(channelID, user.ID)
		return
	}

	log.Info().Str("module", "hub").Str("user", string(user.ID)).Str("channel", string(channelID)).Msg("joined channel")

	h.broadcast(channelID, protocol.UserJoined(string(channelID), string(user.ID), user.Username), protocol.TypeUserJoined)
	h.broadcastChannelUpdate(channelID)
}

func (h *Hub) handleLeave(sess *session.Session, v *protocol.LeaveChannel) {
	channelID := domain.ChannelID(v.ChannelID)

	if sess.Channel() != channelID {
		h.send(sess, protocol.ErrorFrame("Not in channel"))
		return
	}
	if cur, had := sess.TakeChannel(); had && cur == channelID {
		h.finishLeave(sess, channelID)
	}
}

// finishLeave unwinds one membership: speaker lock first, then the seat.
// The leaver's channel reference is already cleared, so it receives the
// transmission_ended frame directly but is excluded from the later fan-outs,
// matching the disconnect path.
func (h *Hub) finishLeave(sess *session.Session, channelID domain.ChannelID) {
	user := sess.User()

	if d, held := h.Arbiter.Release(channelID, user.ID); held {
		h.Metrics.ActiveTransmissions.Set(float64(h.Arbiter.Count()))
		frame := protocol.TransmissionEnded(string(channelID), string(user.ID), user.Username, d.Milliseconds())
		h.broadcast(channelID, frame, protocol.TypeTransmissionEnded)
		h.send(sess, frame)
	}

	h.Directory.RemoveMember(channelID, user.ID)

	log.Info().Str("module", "hub").Str("user", string(user.ID)).Str("channel", string(channelID)).Msg("left channel")

	h.broadcast(channelID, protocol.UserLeft(string(channelID), string(user.ID)), protocol.TypeUserLeft)
	h.broadcastChannelUpdate(channelID)
}

func (h *Hub) handleStart(sess *session.Session, v *protocol.StartTransmission) {
	user := sess.User()
	channelID := domain.ChannelID(v.ChannelID)

	if !h.Directory.IsMember(channelID, user.ID) {
		h.send(sess, protocol.ErrorFrame("Not in channel"))
		return
	}

	res, holder := h.Arbiter.Acquire(channelID, user.ID, user.Username)
	switch res {
	case transmit.Busy:
		h.send(sess, protocol.ErrorFrame(fmt.Sprintf("Channel busy - %s is speaking", holder.Username)))
	case transmit.Reacquired:
		// Duplicate client retry; the earlier broadcast already announced it.
	case transmit.Acquired:
		// The disconnect cascade releases only locks held before its
		// one-shot channel takeover; a lock taken after the session
		// vanished would stay held forever, so drop it here.
		if cur, ok := h.Registry.Get(user.ID); !ok || cur.SID() != sess.SID() {
			h.Arbiter.Release(channelID, user.ID)
			return
		}
		h.Metrics.ActiveTransmissions.Set(float64(h.Arbiter.Count()))
		h.broadcast(channelID, protocol.TransmissionStarted(string(channelID), string(user.ID), user.Username), protocol.TypeTransmissionStarted)
	}
}

// handleAudio relays a chunk to everyone but the sender. A chunk without a
// held lock is a normal race at end-of-transmission: dropped, never an error.
func (h *Hub) handleAudio(sess *session.Session, v *protocol.AudioChunk) {
	user := sess.User()
	channelID := domain.ChannelID(v.ChannelID)

	if !h.Arbiter.IsHolder(channelID, user.ID) {
		log.Warn().Str("module", "hub").Str("user", string(user.ID)).Str("channel", string(channelID)).Msg("audio chunk without speaker lock, dropped")
		return
	}

	h.Metrics.AudioChunksTotal.Inc()
	frame := protocol.AudioData(string(channelID), v.AudioData, string(user.ID), user.Username)
	n := 0
	for _, member := range h.Registry.ByChannel(channelID) {
		if member.User().ID == user.ID {
			continue
		}
		if err := member.Conn().TrySend(frame); err != nil {
			h.Metrics.DroppedSendsTotal.Inc()
			continue
		}
		n++
	}
	h.Metrics.FramesSent.WithLabelValues(string(protocol.TypeAudioData)).Add(float64(n))
}

func (h *Hub) handleEnd(sess *session.Session, v *protocol.EndTransmission) {
	user := sess.User()
	channelID := domain.ChannelID(v.ChannelID)

	d, held := h.Arbiter.Release(channelID, user.ID)
	if !held {
		// Already cleared by a disconnect or leave race; a no-op, not an error.
		return
	}
	h.Metrics.ActiveTransmissions.Set(float64(h.Arbiter.Count()))
	h.broadcast(channelID, protocol.TransmissionEnded(string(channelID), string(user.ID), user.Username, d.Milliseconds()), protocol.TypeTransmissionEnded)
}

func (h *Hub) handleChat(sess *session.Session, v *protocol.ChatMessage) {
	user := sess.User()
	channelID := domain.ChannelID(v.ChannelID)

	if !h.Directory.IsMember(channelID, user.ID) {
		h.send(sess, protocol.ErrorFrame("Not in a channel"))
		return
	}
	// Sender included so their own client renders the message.
	h.broadcast(channelID, protocol.Chat(string(channelID), v.Content, string(user.ID), user.Username), protocol.TypeMessage)
}

// OnDisconnect runs the full cleanup cascade for a closed socket. The identity
// guard makes it exactly-once: a second close event, or a close racing an
// explicit leave, finds nothing left to do.
func (h *Hub) OnDisconnect(sess *session.Session) {
	user := sess.User()
	if _, ok := h.Registry.RemoveIfSame(user.ID, sess.SID()); !ok {
		return
	}

	log.Info().Str("module", "hub").Str("user", string(user.ID)).Str("username", user.Username).Msg("user disconnected")
	h.unwind(sess)

	h.Metrics.DisconnectsTotal.Inc()
	h.Metrics.ActiveConnections.Set(float64(h.Registry.Count()))
	h.Metrics.AuthenticatedSessions.Set(float64(h.Registry.AuthenticatedCount()))
}

// unwind releases whatever channel state a dead session still holds.
func (h *Hub) unwind(sess *session.Session) {
	if ch, had := sess.TakeChannel(); had {
		h.finishLeave(sess, ch)
	}
}

// broadcast fans one frame out to the channel's current members. The member
// set is a snapshot: joins and leaves during iteration are not visible.
func (h *Hub) broadcast(channelID domain.ChannelID, frame protocol.Frame, t protocol.Type) {
	members := h.Registry.ByChannel(channelID)
	n := 0
	for _, member := range members {
		if err := member.Conn().TrySend(frame); err != nil {
			h.Metrics.DroppedSendsTotal.Inc()
			continue
		}
		n++
	}
	h.Metrics.FramesSent.WithLabelValues(string(t)).Add(float64(n))
	h.Metrics.BroadcastFanout.Observe(float64(n))
}

func (h *Hub) broadcastChannelUpdate(channelID domain.ChannelID) {
	info, ok := h.Directory.Info(channelID)
	if !ok {
		return
	}
	var speaker *string
	if l, held := h.Arbiter.Current(channelID); held {
		s := string(l.UserID)
		speaker = &s
	}
	h.broadcast(channelID, protocol.ChannelUpdate(protocol.ChannelUpdatePayload{
		ChannelID:      string(info.ID),
		Name:           info.Name,
		ActiveUsers:    info.ActiveUsers,
		ActiveCount:    info.ActiveCount,
		CurrentSpeaker: speaker,
	}), protocol.TypeChannelUpdate)
}

func (h *Hub) send(sess *session.Session, frame protocol.Frame) {
	if err := sess.Conn().TrySend(frame); err != nil {
		h.Metrics.DroppedSendsTotal.Inc()
	}
}
