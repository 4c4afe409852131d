// Package protocol defines the JSON wire frames exchanged with clients.
//
// Every frame is one JSON object: {type, payload, userId?, username?, timestamp}
// with timestamp in epoch milliseconds.
package protocol

import (
	"encoding/json"
	"time"
)

// Frame is one encoded wire message, ready to hand to a transport.
type Frame []byte

type Type string

const (
	TypeAuth        Type = "auth"
	TypeAuthSuccess Type = "auth_success"
	TypeAuthError   Type = "auth_error"

	TypeConnected Type = "connected"
	TypeError     Type = "error"

	TypeJoinChannel   Type = "join_channel"
	TypeLeaveChannel  Type = "leave_channel"
	TypeChannelUpdate Type = "channel_update"

	TypeUserJoined Type = "user_joined"
	TypeUserLeft   Type = "user_left"

	TypeStartTransmission   Type = "start_transmission"
	TypeAudioChunk          Type = "audio_chunk"
	TypeAudioData           Type = "audio_data"
	TypeEndTransmission     Type = "end_transmission"
	TypeTransmissionStarted Type = "transmission_started"
	TypeTransmissionEnded   Type = "transmission_ended"

	TypeMessage Type = "message"
)

type Envelope struct {
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Username  string          `json:"username,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func nowMillis() int64 { return time.Now().UnixMilli() }
