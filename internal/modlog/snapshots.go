package modlog

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/TeddyKahwaji/spice-modlog/pkg/diff"
	"github.com/bwmarrin/discordgo"
)

var verificationLevels = map[discordgo.VerificationLevel]string{
	discordgo.VerificationLevelNone:     "None",
	discordgo.VerificationLevelLow:      "Low",
	discordgo.VerificationLevelMedium:   "Medium",
	discordgo.VerificationLevelHigh:     "High",
	discordgo.VerificationLevelVeryHigh: "Very High",
}

var channelTypes = map[discordgo.ChannelType]string{
	discordgo.ChannelTypeGuildText:       "Text",
	discordgo.ChannelTypeGuildVoice:      "Voice",
	discordgo.ChannelTypeGuildCategory:   "Category",
	discordgo.ChannelTypeGuildNews:       "Announcement",
	discordgo.ChannelTypeGuildStageVoice: "Stage",
	discordgo.ChannelTypeGuildForum:      "Forum",
}

func channelTypeName(channelType discordgo.ChannelType) string {
	if name, ok := channelTypes[channelType]; ok {
		return name
	}

	return "Unknown"
}

func isVoice(channel *discordgo.Channel) bool {
	return channel.Type == discordgo.ChannelTypeGuildVoice || channel.Type == discordgo.ChannelTypeGuildStageVoice
}

func watchedChannelAttributes(channel *discordgo.Channel) []diff.Attribute {
	if isVoice(channel) {
		return diff.VoiceChannelAttributes
	}

	return diff.TextChannelAttributes
}

func (c *Cog) channelName(channelID string) string {
	if channelID == "" {
		return ""
	}

	if channel, err := c.state.Channel(channelID); err == nil {
		return channel.Name
	}

	return channelID
}

func (c *Cog) channelSnapshot(channel *discordgo.Channel) diff.Snapshot {
	return diff.NewSnapshot(diff.Channel, channel.ID, map[string]string{
		diff.AttrName:      channel.Name,
		diff.AttrTopic:     channel.Topic,
		diff.AttrCategory:  c.channelName(channel.ParentID),
		diff.AttrSlowmode:  strconv.Itoa(channel.RateLimitPerUser),
		diff.AttrNSFW:      strconv.FormatBool(channel.NSFW),
		diff.AttrPosition:  strconv.Itoa(channel.Position),
		diff.AttrBitrate:   strconv.Itoa(channel.Bitrate),
		diff.AttrUserLimit: strconv.Itoa(channel.UserLimit),
	})
}

// overwrites resolves each overwrite's subject to a role or member name.
func (c *Cog) overwrites(channel *discordgo.Channel) []diff.Overwrite {
	result := make([]diff.Overwrite, 0, len(channel.PermissionOverwrites))

	for _, overwrite := range channel.PermissionOverwrites {
		if overwrite == nil {
			continue
		}

		subject, mention := c.userName(channel.GuildID, overwrite.ID), "<@"+overwrite.ID+">"
		if overwrite.Type == discordgo.PermissionOverwriteTypeRole {
			subject, mention = c.roleName(channel.GuildID, overwrite.ID), roleMention(channel.GuildID, overwrite.ID)
		}

		result = append(result, diff.Overwrite{
			SubjectID:      overwrite.ID,
			Subject:        subject,
			SubjectMention: mention,
			Allow:          overwrite.Allow,
			Deny:           overwrite.Deny,
		})
	}

	return result
}

func roleMention(guildID, roleID string) string {
	if roleID == guildID {
		return "@everyone"
	}

	return "<@&" + roleID + ">"
}

func (c *Cog) roleName(guildID, roleID string) string {
	if role, ok := c.snapshots.role(guildID, roleID); ok {
		return role.name
	}

	if role, err := c.state.Role(guildID, roleID); err == nil {
		return role.Name
	}

	return roleID
}

func (c *Cog) userName(guildID, userID string) string {
	if member, err := c.state.Member(guildID, userID); err == nil && member.User != nil {
		return member.User.Username
	}

	return userID
}

func (c *Cog) roleRefs(guildID string, roleIDs []string) []diff.Ref {
	refs := make([]diff.Ref, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		refs = append(refs, diff.Ref{
			ID:      roleID,
			Name:    c.roleName(guildID, roleID),
			Mention: roleMention(guildID, roleID),
		})
	}

	return refs
}

func roleSnapshot(role *discordgo.Role) diff.Snapshot {
	return diff.NewSnapshot(diff.Role, role.ID, map[string]string{
		diff.AttrName:        role.Name,
		diff.AttrColour:      fmt.Sprintf("#%06x", role.Color),
		diff.AttrMentionable: strconv.FormatBool(role.Mentionable),
		diff.AttrHoist:       strconv.FormatBool(role.Hoist),
	})
}

func memberSnapshot(userID string, member *discordgo.Member) diff.Snapshot {
	return diff.NewSnapshot(diff.Member, userID, map[string]string{
		diff.AttrNick: member.Nick,
	})
}

func (c *Cog) guildSnapshot(guild *discordgo.Guild) diff.Snapshot {
	owner := ""
	if guild.OwnerID != "" {
		owner = "<@" + guild.OwnerID + ">"
	}

	return diff.NewSnapshot(diff.Guild, guild.ID, map[string]string{
		diff.AttrName:              guild.Name,
		diff.AttrRegion:            guild.PreferredLocale,
		diff.AttrAFKTimeout:        strconv.Itoa(guild.AfkTimeout),
		diff.AttrAFKChannel:        c.channelName(guild.AfkChannelID),
		diff.AttrIcon:              guild.Icon,
		diff.AttrOwner:             owner,
		diff.AttrSplash:            guild.Splash,
		diff.AttrSystemChannel:     c.channelName(guild.SystemChannelID),
		diff.AttrVerificationLevel: verificationLevels[guild.VerificationLevel],
	})
}

func (c *Cog) emojiRefs(guildID string, emojis []*discordgo.Emoji) []diff.EmojiRef {
	refs := make([]diff.EmojiRef, 0, len(emojis))
	for _, emoji := range emojis {
		if emoji == nil {
			continue
		}

		refs = append(refs, diff.EmojiRef{
			ID:      emoji.ID,
			Name:    emoji.Name,
			Display: fmt.Sprintf("%s `%s`", emoji.MessageFormat(), emoji.Name),
			Roles:   c.roleRefs(guildID, emoji.Roles),
		})
	}

	return refs
}

func (c *Cog) voiceRef(voiceState *discordgo.VoiceState) diff.VoiceRef {
	if voiceState == nil {
		return diff.VoiceRef{}
	}

	ref := diff.VoiceRef{
		Deaf: voiceState.Deaf,
		Mute: voiceState.Mute,
	}

	if voiceState.ChannelID != "" {
		ref.Channel = diff.Ref{
			ID:      voiceState.ChannelID,
			Name:    c.channelName(voiceState.ChannelID),
			Mention: "<#" + voiceState.ChannelID + ">",
		}
	}

	return ref
}

type roleState struct {
	name        string
	colour      int
	permissions int64
	snapshot    diff.Snapshot
}

func newRoleState(role *discordgo.Role) roleState {
	return roleState{
		name:        role.Name,
		colour:      role.Color,
		permissions: role.Permissions,
		snapshot:    roleSnapshot(role),
	}
}

type guildState struct {
	guild    diff.Snapshot
	hasGuild bool
	roles    map[string]roleState
	channels map[string]discordgo.Channel
	emojis   []diff.EmojiRef
	// hasEmojis separates an unseeded emoji list from an empty one.
	hasEmojis bool
}

// snapshotCache remembers the last seen state of entities whose update
// events carry no previous value: guilds, roles, channels and emojis.
type snapshotCache struct {
	mu     sync.RWMutex
	guilds map[string]*guildState
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{guilds: make(map[string]*guildState)}
}

func (s *snapshotCache) entry(guildID string) *guildState {
	state, ok := s.guilds[guildID]
	if !ok {
		state = &guildState{
			roles:    make(map[string]roleState),
			channels: make(map[string]discordgo.Channel),
		}
		s.guilds[guildID] = state
	}

	return state
}

// swapGuild stores the new snapshot and returns the previous one.
func (s *snapshotCache) swapGuild(guildID string, snapshot diff.Snapshot) (diff.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.entry(guildID)
	previous, ok := state.guild, state.hasGuild
	state.guild, state.hasGuild = snapshot, true

	return previous, ok
}

func (s *snapshotCache) role(guildID, roleID string) (roleState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.guilds[guildID]
	if !ok {
		return roleState{}, false
	}

	role, ok := state.roles[roleID]

	return role, ok
}

// swapRole stores the new role state and returns the previous one.
func (s *snapshotCache) swapRole(guildID, roleID string, role roleState) (roleState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.entry(guildID)
	previous, ok := state.roles[roleID]
	state.roles[roleID] = role

	return previous, ok
}

func (s *snapshotCache) removeRole(guildID, roleID string) (roleState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.guilds[guildID]
	if !ok {
		return roleState{}, false
	}

	role, ok := state.roles[roleID]
	delete(state.roles, roleID)

	return role, ok
}

// copyChannel detaches a channel from the session state, which updates
// channels in place.
func copyChannel(channel *discordgo.Channel) discordgo.Channel {
	copied := *channel
	copied.PermissionOverwrites = make([]*discordgo.PermissionOverwrite, 0, len(channel.PermissionOverwrites))

	for _, overwrite := range channel.PermissionOverwrites {
		if overwrite != nil {
			o := *overwrite
			copied.PermissionOverwrites = append(copied.PermissionOverwrites, &o)
		}
	}

	copied.Messages = nil

	return copied
}

// swapChannel stores a copy of channel and returns the previous copy.
func (s *snapshotCache) swapChannel(guildID string, channel *discordgo.Channel) (*discordgo.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.entry(guildID)
	previous, ok := state.channels[channel.ID]
	state.channels[channel.ID] = copyChannel(channel)

	if !ok {
		return nil, false
	}

	return &previous, true
}

func (s *snapshotCache) removeChannel(guildID, channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.guilds[guildID]; ok {
		delete(state.channels, channelID)
	}
}

func (s *snapshotCache) swapEmojis(guildID string, emojis []diff.EmojiRef) ([]diff.EmojiRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.entry(guildID)
	previous, ok := state.emojis, state.hasEmojis
	state.emojis, state.hasEmojis = emojis, true

	return previous, ok
}

func (s *snapshotCache) forget(guildID string) {
	s.mu.Lock()
	delete(s.guilds, guildID)
	s.mu.Unlock()
}

// seed records a full guild as delivered by GUILD_CREATE.
func (c *Cog) seed(guild *discordgo.Guild) {
	c.snapshots.swapGuild(guild.ID, c.guildSnapshot(guild))

	for _, role := range guild.Roles {
		if role != nil {
			c.snapshots.swapRole(guild.ID, role.ID, newRoleState(role))
		}
	}

	for _, channel := range guild.Channels {
		if channel != nil {
			c.snapshots.swapChannel(guild.ID, channel)
		}
	}

	c.snapshots.swapEmojis(guild.ID, c.emojiRefs(guild.ID, guild.Emojis))
}
