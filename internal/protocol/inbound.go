package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed   = errors.New("malformed frame")
	ErrUnknownType = errors.New("unknown frame type")
)

// Inbound is the closed set of client-to-server frames. Decode returns exactly
// one of the variants below; anything else is ErrUnknownType.
type Inbound interface {
	inbound()
}

type Auth struct {
	Token string `json:"token"`
}

type JoinChannel struct {
	ChannelID string  `json:"channelId"`
	User      UserRef `json:"user"`
}

// UserRef is the identity pair a client attaches to a join request.
type UserRef struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type LeaveChannel struct {
	ChannelID string `json:"channelId"`
}

type StartTransmission struct {
	ChannelID string `json:"channelId"`
}

type AudioChunk struct {
	ChannelID string `json:"channelId"`
	AudioData string `json:"audioData"` // base64 encoded
}

type EndTransmission struct {
	ChannelID string `json:"channelId"`
}

type ChatMessage struct {
	ChannelID string `json:"channelId"`
	Content   string `json:"content"`
}

func (Auth) inbound()              {}
func (JoinChannel) inbound()       {}
func (LeaveChannel) inbound()      {}
func (StartTransmission) inbound() {}
func (AudioChunk) inbound()        {}
func (EndTransmission) inbound()   {}
func (ChatMessage) inbound()       {}

// Decode parses a raw client frame into its typed variant.
func Decode(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	unmarshal := func(v Inbound) (Inbound, error) {
		if len(env.Payload) == 0 {
			return nil, fmt.Errorf("%w: missing payload for %q", ErrMalformed, env.Type)
		}
		if err := json.Unmarshal(env.Payload, v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return v, nil
	}

	switch env.Type {
	case TypeAuth:
		return unmarshal(&Auth{})
	case TypeJoinChannel:
		return unmarshal(&JoinChannel{})
	case TypeLeaveChannel:
		return unmarshal(&LeaveChannel{})
	case TypeStartTransmission:
		return unmarshal(&StartTransmission{})
	case TypeAudioChunk:
		return unmarshal(&AudioChunk{})
	case TypeEndTransmission:
		return unmarshal(&EndTransmission{})
	case TypeMessage:
		return unmarshal(&ChatMessage{})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
