package domain

type ChannelID string

// Channel is the directory's record of a room. Membership lives in the
// directory, not here.
type Channel struct {
	ID          ChannelID
	Name        string
	Description string
}

// ChannelSeed is what the snapshot collaborator hands us at startup.
type ChannelSeed struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
