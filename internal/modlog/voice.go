package modlog

import (
	"fmt"
	"strings"

	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/TeddyKahwaji/spice-modlog/pkg/auditlog"
	"github.com/TeddyKahwaji/spice-modlog/pkg/diff"
	"github.com/TeddyKahwaji/spice-modlog/pkg/notify"
	"github.com/bwmarrin/discordgo"
)

func (c *Cog) voiceStateUpdate(_ *discordgo.Session, update *discordgo.VoiceStateUpdate) {
	if update.VoiceState == nil {
		return
	}

	defer c.recoverHandler(settings.VoiceChange, update.GuildID)

	e, ok := c.begin(settings.VoiceChange, update.GuildID)
	if !ok {
		return
	}

	e.forUser(update.UserID)

	member := update.Member
	if member == nil {
		member, _ = c.state.Member(update.GuildID, update.UserID)
	}

	name := update.UserID
	if member != nil && member.User != nil {
		name = member.User.Username

		if member.User.Bot && !e.settings.Bots {
			c.skip(e, skipBot)
			return
		}
	}

	var previousChannel string
	if update.BeforeUpdate != nil {
		previousChannel = update.BeforeUpdate.ChannelID
	}

	if c.ignored(e, update.ChannelID) || c.ignored(e, previousChannel) {
		return
	}

	records := diff.DiffVoiceState(c.voiceRef(update.BeforeUpdate), c.voiceRef(update.VoiceState))
	if len(records) == 0 {
		c.skip(e, skipNothing)
		return
	}

	var attribution auditlog.Attribution
	if q, ok := voiceQuery(update.UserID, records); ok {
		attribution = c.correlate(e, q)
	}

	c.deliver(e, notify.Notification{
		Headline:    fmt.Sprintf("Updated Voice State for **%s** (`%s`)", name, update.UserID),
		AuthorName:  fmt.Sprintf("%s (%s) Voice State Update", name, update.UserID),
		Description: voiceDescription(update.UserID, records),
		Records:     records,
		Attribution: attribution,
	})
}

// voiceQuery attributes the last reported change: a channel move over a
// mute, a mute over a deafen. Joining a channel is never a moderator action.
func voiceQuery(userID string, records []diff.ChangeRecord) (auditlog.Query, bool) {
	last := records[len(records)-1]

	switch last.Attribute {
	case diff.AttrVoiceChannel:
		switch {
		case last.Before == "":
			return auditlog.Query{}, false
		case last.After == "":
			return auditlog.Query{Action: discordgo.AuditLogActionMemberDisconnect}, true
		default:
			return auditlog.Query{
				Action: discordgo.AuditLogActionMemberMove,
				Match:  auditlog.InChannel(last.SubjectID),
			}, true
		}
	case diff.AttrMute:
		return auditlog.Query{
			TargetID:   userID,
			Action:     discordgo.AuditLogActionMemberUpdate,
			RequireKey: discordgo.AuditLogChangeKeyMute,
		}, true
	default:
		return auditlog.Query{
			TargetID:   userID,
			Action:     discordgo.AuditLogActionMemberUpdate,
			RequireKey: discordgo.AuditLogChangeKeyDeaf,
		}, true
	}
}

func voiceDescription(userID string, records []diff.ChangeRecord) string {
	mention := "<@" + userID + ">"
	lines := make([]string, 0, len(records))

	for _, record := range records {
		switch record.Attribute {
		case diff.AttrDeaf:
			if record.After == "true" {
				lines = append(lines, mention+" was deafened.")
			} else {
				lines = append(lines, mention+" was undeafened.")
			}
		case diff.AttrMute:
			if record.After == "true" {
				lines = append(lines, mention+" was muted.")
			} else {
				lines = append(lines, mention+" was unmuted.")
			}
		case diff.AttrVoiceChannel:
			switch {
			case record.Before == "":
				lines = append(lines, fmt.Sprintf("%s has joined %s", mention, record.After))
			case record.After == "":
				lines = append(lines, fmt.Sprintf("%s has left %s", mention, record.Before))
			default:
				lines = append(lines, fmt.Sprintf("%s has moved from %s to %s", mention, record.Before, record.After))
			}
		}
	}

	return strings.Join(lines, "\n")
}
