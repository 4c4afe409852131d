// Package channel owns the set of known channels and their current members.
package channel

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/talkiehq/talkie/internal/domain"
)

// defaultSeeds keeps the server usable when the snapshot collaborator is down.
var defaultSeeds = []domain.ChannelSeed{
	{ID: "1", Name: "General", Description: "Main communication channel"},
	{ID: "2", Name: "Team Alpha", Description: "Team coordination channel"},
	{ID: "3", Name: "Emergency", Description: "Emergency communications only"},
}

type entry struct {
	meta    domain.Channel
	members map[domain.UserID]string // user id -> display name
}

// Info is a read-only view of one channel for reporting and channel_update
// frames. No transport fields.
type Info struct {
	ID          domain.ChannelID `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	ActiveUsers []string         `json:"activeUsers"`
	ActiveCount int              `json:"activeCount"`
}

type Directory struct {
	mu       sync.RWMutex
	channels map[domain.ChannelID]*entry
}

func NewDirectory() *Directory {
	return &Directory{channels: make(map[domain.ChannelID]*entry)}
}

// Load seeds the directory. An empty or nil snapshot falls back to the
// built-in default set so the server never starts with zero channels.
func (d *Directory) Load(seeds []domain.ChannelSeed) {
	if len(seeds) == 0 {
		seeds = defaultSeeds
		log.Warn().Str("module", "channel.directory").Msg("no channel snapshot, seeding defaults")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range seeds {
		id := domain.ChannelID(s.ID)
		d.channels[id] = &entry{
			meta:    domain.Channel{ID: id, Name: s.Name, Description: s.Description},
			members: make(map[domain.UserID]string),
		}
	}
	log.Info().Str("module", "channel.directory").Int("count", len(seeds)).Msg("channels loaded")
}

func (d *Directory) Get(id domain.ChannelID) (domain.Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.channels[id]
	if !ok {
		return domain.Channel{}, false
	}
	return e.meta, true
}

func (d *Directory) ListAll() []Info {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Info, 0, len(d.channels))
	for _, e := range d.channels {
		out = append(out, e.info())
	}
	return out
}

// Info reports one channel with its member list materialized.
func (d *Directory) Info(id domain.ChannelID) (Info, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.channels[id]
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

func (e *entry) info() Info {
	users := make([]string, 0, len(e.members))
	for uid := range e.members {
		users = append(users, string(uid))
	}
	return Info{
		ID:          e.meta.ID,
		Name:        e.meta.Name,
		Description: e.meta.Description,
		ActiveUsers: users,
		ActiveCount: len(users),
	}
}

// Create registers a fresh channel with an empty membership.
func (d *Directory) Create(name, description string) domain.Channel {
	id := domain.ChannelID("channel_" + uuid.NewString())
	ch := domain.Channel{ID: id, Name: name, Description: description}
	d.mu.Lock()
	d.channels[id] = &entry{meta: ch, members: make(map[domain.UserID]string)}
	d.mu.Unlock()
	log.Info().Str("module", "channel.directory").Str("channel", string(id)).Str("name", name).Msg("channel created")
	return ch
}

// Delete removes the channel record. Members are not disconnected; their weak
// channel references simply resolve to "not found" from here on.
func (d *Directory) Delete(id domain.ChannelID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.channels[id]; !ok {
		return false
	}
	delete(d.channels, id)
	log.Info().Str("module", "channel.directory").Str("channel", string(id)).Msg("channel deleted")
	return true
}

func (d *Directory) AddMember(id domain.ChannelID, uid domain.UserID, username string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.channels[id]
	if !ok {
		return false
	}
	e.members[uid] = username
	log.Info().Str("module", "channel.directory").Str("channel", string(id)).Str("user", string(uid)).Int("members", len(e.members)).Msg("member added")
	return true
}

func (d *Directory) RemoveMember(id domain.ChannelID, uid domain.UserID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.channels[id]
	if !ok {
		return false
	}
	delete(e.members, uid)
	log.Info().Str("module", "channel.directory").Str("channel", string(id)).Str("user", string(uid)).Int("members", len(e.members)).Msg("member removed")
	return true
}

func (d *Directory) IsMember(id domain.ChannelID, uid domain.UserID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.channels[id]
	if !ok {
		return false
	}
	_, in := e.members[uid]
	return in
}

// Members returns the display metadata of everyone present in the channel.
func (d *Directory) Members(id domain.ChannelID) []domain.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.channels[id]
	if !ok {
		return nil
	}
	out := make([]domain.User, 0, len(e.members))
	for uid, name := range e.members {
		out = append(out, domain.User{ID: uid, Username: name})
	}
	return out
}

func (d *Directory) MemberCounts() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int, len(d.channels))
	for id, e := range d.channels {
		out[string(id)] = len(e.members)
	}
	return out
}
