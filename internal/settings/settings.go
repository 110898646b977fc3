package settings

import (
	"maps"
	"slices"
)

type EventKind string

const (
	MessageEdit   EventKind = "message_edit"
	MessageDelete EventKind = "message_delete"
	UserChange    EventKind = "user_change"
	RoleChange    EventKind = "role_change"
	RoleCreate    EventKind = "role_create"
	RoleDelete    EventKind = "role_delete"
	VoiceChange   EventKind = "voice_change"
	UserJoin      EventKind = "user_join"
	UserLeft      EventKind = "user_left"
	ChannelChange EventKind = "channel_change"
	ChannelCreate EventKind = "channel_create"
	ChannelDelete EventKind = "channel_delete"
	GuildChange   EventKind = "guild_change"
	EmojiChange   EventKind = "emoji_change"
	CommandsUsed  EventKind = "commands_used"
	InviteCreated EventKind = "invite_created"
	InviteDeleted EventKind = "invite_deleted"
)

// EventKinds lists every loggable event in display order.
var EventKinds = []EventKind{
	MessageEdit,
	MessageDelete,
	UserChange,
	RoleChange,
	RoleCreate,
	RoleDelete,
	VoiceChange,
	UserJoin,
	UserLeft,
	ChannelChange,
	ChannelCreate,
	ChannelDelete,
	GuildChange,
	EmojiChange,
	CommandsUsed,
	InviteCreated,
	InviteDeleted,
}

func ParseEventKind(value string) (EventKind, bool) {
	kind := EventKind(value)

	return kind, slices.Contains(EventKinds, kind)
}

type EventSettings struct {
	Enabled        bool   `firestore:"enabled"`
	Embed          bool   `firestore:"embed"`
	Emoji          string `firestore:"emoji"`
	Colour         *int   `firestore:"colour"`
	Bots           bool   `firestore:"bots"`
	Nicknames      bool   `firestore:"nicknames"`
	CachedOnly     bool   `firestore:"cached_only"`
	BulkEnabled    bool   `firestore:"bulk_enabled"`
	BulkIndividual bool   `firestore:"bulk_individual"`
	// Channel overrides the guild modlog channel for this event.
	Channel string `firestore:"channel"`
}

type GuildSettings struct {
	GuildID         string                   `firestore:"guild_id"`
	ModlogChannel   string                   `firestore:"modlog_channel"`
	IgnoredChannels []string                 `firestore:"ignored_channels"`
	Events          map[string]EventSettings `firestore:"events"`
}

var defaultEmojis = map[EventKind]string{
	MessageEdit:   "\U0001F4DD",
	MessageDelete: "\U0001F5D1\uFE0F",
	UserChange:    "\U0001F468\u200D\U0001F4BC",
	RoleChange:    "\U0001F3F3\uFE0F",
	RoleCreate:    "\U0001F3F3\uFE0F",
	RoleDelete:    "\U0001F3F3\uFE0F",
	VoiceChange:   "\U0001F50A",
	UserJoin:      "\U0001F4E5",
	UserLeft:      "\U0001F4E4",
	ChannelChange: "\U0001F4C4",
	ChannelCreate: "\U0001F4C4",
	ChannelDelete: "\U0001F4C4",
	GuildChange:   "\U0001F3E2",
	EmojiChange:   "\U0001F603",
	CommandsUsed:  "\U0001F916",
	InviteCreated: "\U0001F517",
	InviteDeleted: "\U0001F517",
}

var defaultColours = map[EventKind]int{
	MessageEdit:   0xe67e22,
	MessageDelete: 0x992d22,
	UserChange:    0x99aab5,
	RoleChange:    0x3498db,
	RoleCreate:    0x3498db,
	RoleDelete:    0x206694,
	VoiceChange:   0xe91e63,
	UserJoin:      0x2ecc71,
	UserLeft:      0x1f8b4c,
	ChannelChange: 0x1abc9c,
	ChannelCreate: 0x1abc9c,
	ChannelDelete: 0x11806a,
	GuildChange:   0x7289da,
	EmojiChange:   0xf1c40f,
	CommandsUsed:  0xe74c3c,
	InviteCreated: 0x7289da,
	InviteDeleted: 0x7289da,
}

// DefaultEvent is the configuration of an event the guild never touched.
// Events start disabled.
func DefaultEvent(kind EventKind) EventSettings {
	return EventSettings{
		Embed:     true,
		Emoji:     defaultEmojis[kind],
		Nicknames: true,
	}
}

func Default(guildID string) GuildSettings {
	return GuildSettings{
		GuildID: guildID,
		Events:  make(map[string]EventSettings),
	}
}

func DefaultColour(kind EventKind) int {
	return defaultColours[kind]
}

// Event returns the guild's settings for kind, falling back to defaults.
func (g GuildSettings) Event(kind EventKind) EventSettings {
	if event, ok := g.Events[string(kind)]; ok {
		if event.Emoji == "" {
			event.Emoji = defaultEmojis[kind]
		}

		return event
	}

	return DefaultEvent(kind)
}

func (g *GuildSettings) SetEvent(kind EventKind, event EventSettings) {
	if g.Events == nil {
		g.Events = make(map[string]EventSettings)
	}

	g.Events[string(kind)] = event
}

// Destination is the channel that receives notifications for kind: the
// per-event override when set, else the guild modlog channel. An empty result
// means the guild has nowhere to log.
func (g GuildSettings) Destination(kind EventKind) string {
	if channel := g.Event(kind).Channel; channel != "" {
		return channel
	}

	return g.ModlogChannel
}

// Colour picks the override colour, then a non-zero role colour for role
// changes, then the event default.
func (g GuildSettings) Colour(kind EventKind, roleColour int) int {
	if override := g.Event(kind).Colour; override != nil {
		return *override
	}

	if kind == RoleChange && roleColour != 0 {
		return roleColour
	}

	return DefaultColour(kind)
}

// IsIgnored reports whether the channel or its parent category is ignored.
func (g GuildSettings) IsIgnored(channelID, parentID string) bool {
	for _, ignored := range g.IgnoredChannels {
		if ignored == channelID || (parentID != "" && ignored == parentID) {
			return true
		}
	}

	return false
}

// Clone returns a copy that shares no mutable state with g.
func (g GuildSettings) Clone() GuildSettings {
	clone := g
	clone.IgnoredChannels = slices.Clone(g.IgnoredChannels)
	clone.Events = maps.Clone(g.Events)

	if clone.Events == nil {
		clone.Events = make(map[string]EventSettings)
	}

	for key, event := range clone.Events {
		if event.Colour != nil {
			colour := *event.Colour
			event.Colour = &colour
			clone.Events[key] = event
		}
	}

	return clone
}
