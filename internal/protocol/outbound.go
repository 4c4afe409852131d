package protocol

import "encoding/json"

// Payloads of server-to-client frames.

type ConnectedPayload struct {
	Message string `json:"message"`
}

type AuthSuccessPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message,omitempty"`
}

type AuthErrorPayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type UserJoinedPayload struct {
	ChannelID string  `json:"channelId"`
	User      UserRef `json:"user"`
}

type UserLeftPayload struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
}

type ChannelUpdatePayload struct {
	ChannelID      string   `json:"channelId"`
	Name           string   `json:"name"`
	ActiveUsers    []string `json:"activeUsers"`
	ActiveCount    int      `json:"activeCount"`
	CurrentSpeaker *string  `json:"currentSpeaker"`
}

type TransmissionStartedPayload struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
}

type TransmissionEndedPayload struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	Duration  int64  `json:"duration"` // milliseconds held
}

type AudioDataPayload struct {
	ChannelID string `json:"channelId"`
	AudioData string `json:"audioData"`
}

type ChatPayload struct {
	ChannelID string `json:"channelId"`
	Content   string `json:"content"`
}

// encode marshals an envelope; payloads above are marshal-safe, so the error
// path is unreachable and dropped.
func encode(t Type, payload any, userID, username string) Frame {
	raw, _ := json.Marshal(payload)
	b, _ := json.Marshal(Envelope{
		Type:      t,
		Payload:   raw,
		UserID:    userID,
		Username:  username,
		Timestamp: nowMillis(),
	})
	return b
}

func Connected(message string) Frame {
	return encode(TypeConnected, ConnectedPayload{Message: message}, "", "")
}

func AuthSuccess(userID, username string) Frame {
	return encode(TypeAuthSuccess, AuthSuccessPayload{
		UserID:   userID,
		Username: username,
		Message:  "Authentication successful",
	}, "", "")
}

func AuthError(message string) Frame {
	return encode(TypeAuthError, AuthErrorPayload{Message: message}, "", "")
}

func ErrorFrame(text string) Frame {
	return encode(TypeError, ErrorPayload{Error: text}, "", "")
}

func UserJoined(channelID, userID, username string) Frame {
	return encode(TypeUserJoined, UserJoinedPayload{
		ChannelID: channelID,
		User:      UserRef{UserID: userID, Username: username},
	}, "", "")
}

func UserLeft(channelID, userID string) Frame {
	return encode(TypeUserLeft, UserLeftPayload{ChannelID: channelID, UserID: userID}, "", "")
}

func ChannelUpdate(p ChannelUpdatePayload) Frame {
	return encode(TypeChannelUpdate, p, "", "")
}

func TransmissionStarted(channelID, userID, username string) Frame {
	return encode(TypeTransmissionStarted, TransmissionStartedPayload{
		ChannelID: channelID,
		UserID:    userID,
		Username:  username,
	}, userID, username)
}

func TransmissionEnded(channelID, userID, username string, durationMillis int64) Frame {
	return encode(TypeTransmissionEnded, TransmissionEndedPayload{
		ChannelID: channelID,
		UserID:    userID,
		Duration:  durationMillis,
	}, userID, username)
}

func AudioData(channelID, audioData, userID, username string) Frame {
	return encode(TypeAudioData, AudioDataPayload{
		ChannelID: channelID,
		AudioData: audioData,
	}, userID, username)
}

func Chat(channelID, content, userID, username string) Frame {
	return encode(TypeMessage, ChatPayload{ChannelID: channelID, Content: content}, userID, username)
}
