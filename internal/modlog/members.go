package modlog

import (
	"fmt"
	"strconv"
	"time"

	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/TeddyKahwaji/spice-modlog/pkg/auditlog"
	"github.com/TeddyKahwaji/spice-modlog/pkg/diff"
	"github.com/TeddyKahwaji/spice-modlog/pkg/notify"
	"github.com/bwmarrin/discordgo"
)

func banKey(guildID, userID string) string {
	return guildID + ":" + userID
}

func (c *Cog) memberCount(guildID string) string {
	guild, err := c.state.Guild(guildID)
	if err != nil {
		return "Unknown"
	}

	return strconv.Itoa(guild.MemberCount)
}

// accountAge renders when a snowflake was created and how many days ago.
func accountAge(userID string, now time.Time) string {
	created, err := discordgo.SnowflakeTimestamp(userID)
	if err != nil {
		return "Unknown"
	}

	days := int(now.Sub(created).Hours() / 24)

	return fmt.Sprintf("<t:%d:F> (%d days ago)", created.Unix(), days)
}

func (c *Cog) memberAdd(_ *discordgo.Session, added *discordgo.GuildMemberAdd) {
	if added.Member == nil || added.User == nil {
		return
	}

	defer c.recoverHandler(settings.UserJoin, added.GuildID)

	e, ok := c.begin(settings.UserJoin, added.GuildID)
	if !ok {
		return
	}

	e.forUser(added.User.ID)

	user := added.User
	now := c.now()

	fields := []notify.Field{
		{Name: "Total Members", Value: c.memberCount(added.GuildID), Inline: true},
		{Name: "Account Created", Value: accountAge(user.ID, now), Inline: true},
	}

	var attribution auditlog.Attribution

	if user.Bot {
		attribution = c.correlate(e, auditlog.Query{
			TargetID: user.ID,
			Action:   discordgo.AuditLogActionBotAdd,
		})
	} else if link := c.inviteLink(e); link != "" {
		fields = append(fields, notify.Field{Name: "Invite Link", Value: link})
	}

	fields = append(fields, notify.Field{Name: "ID", Value: user.ID, Inline: true})

	c.deliver(e, notify.Notification{
		Time:        now,
		Headline:    fmt.Sprintf("**%s** (`%s`) joined the guild", user.Username, user.ID),
		Title:       "Member Joined",
		Description: fmt.Sprintf("<@%s> joined the guild", user.ID),
		AuthorName:  fmt.Sprintf("%s (%s) has joined the guild", user.Username, user.ID),
		AuthorIcon:  user.AvatarURL(""),
		Thumbnail:   user.AvatarURL(""),
		Fields:      fields,
		Attribution: attribution,
	})
}

func (c *Cog) banAdd(_ *discordgo.Session, ban *discordgo.GuildBanAdd) {
	if ban.User == nil {
		return
	}

	c.bans.Add(banKey(ban.GuildID, ban.User.ID), struct{}{})
}

// memberRemove waits for a ban to arrive before reporting a departure, so a
// banned member is never also logged as leaving.
func (c *Cog) memberRemove(_ *discordgo.Session, removed *discordgo.GuildMemberRemove) {
	if removed.Member == nil || removed.User == nil {
		return
	}

	defer c.recoverHandler(settings.UserLeft, removed.GuildID)

	e, ok := c.begin(settings.UserLeft, removed.GuildID)
	if !ok {
		return
	}

	e.forUser(removed.User.ID)

	if !e.wait(c.cfg.MemberLeaveDelay) {
		c.skip(e, skipCancelled)
		return
	}

	user := removed.User

	if c.bans.Contains(banKey(removed.GuildID, user.ID)) {
		c.skip(e, skipBanned)
		return
	}

	attribution := c.correlate(e, auditlog.Query{
		TargetID: user.ID,
		Action:   discordgo.AuditLogActionMemberKick,
	})

	title, verb := "Member Left", "left"
	if attribution.Found {
		title, verb = "Member Kicked", "was kicked from"
	}

	c.deliver(e, notify.Notification{
		Headline:    fmt.Sprintf("**%s** (`%s`) %s the guild", user.Username, user.ID, verb),
		Title:       title,
		Description: fmt.Sprintf("<@%s> %s the guild", user.ID, verb),
		AuthorName:  fmt.Sprintf("%s (%s) %s the guild", user.Username, user.ID, verb),
		AuthorIcon:  user.AvatarURL(""),
		Thumbnail:   user.AvatarURL(""),
		Fields: []notify.Field{
			{Name: "Total Users", Value: c.memberCount(removed.GuildID), Inline: true},
			{Name: "ID", Value: user.ID, Inline: true},
		},
		Attribution: attribution,
	})
}

func (c *Cog) memberUpdate(_ *discordgo.Session, updated *discordgo.GuildMemberUpdate) {
	if updated.Member == nil || updated.User == nil {
		return
	}

	defer c.recoverHandler(settings.UserChange, updated.GuildID)

	e, ok := c.begin(settings.UserChange, updated.GuildID)
	if !ok {
		return
	}

	e.forUser(updated.User.ID)

	user := updated.User
	if user.Bot && !e.settings.Bots {
		c.skip(e, skipBot)
		return
	}

	before := updated.BeforeUpdate
	if before == nil {
		c.skip(e, skipNoSnapshot)
		return
	}

	var records []diff.ChangeRecord
	if e.settings.Nicknames {
		records = diff.Diff(diff.Member, memberSnapshot(user.ID, before), memberSnapshot(user.ID, updated.Member), diff.MemberAttributes)
	}

	roles := diff.DiffRoleSet(c.roleRefs(updated.GuildID, before.Roles), c.roleRefs(updated.GuildID, updated.Roles))

	if len(records) == 0 && len(roles) == 0 {
		c.skip(e, skipNothing)
		return
	}

	action := discordgo.AuditLogActionMemberUpdate
	if len(roles) > 0 {
		action = discordgo.AuditLogActionMemberRoleUpdate
	}

	attribution := c.correlate(e, auditlog.Query{
		TargetID: user.ID,
		Action:   action,
	})

	c.deliver(e, notify.Notification{
		Headline:    fmt.Sprintf("Member updated **%s** (`%s`)", user.Username, user.ID),
		Title:       "Member updated",
		Description: "<@" + user.ID + ">",
		AuthorName:  fmt.Sprintf("%s (%s) updated", user.Username, user.ID),
		AuthorIcon:  user.AvatarURL(""),
		Records:     records,
		Sections:    []notify.Section{{Name: "Roles", Records: roles}},
		Attribution: attribution,
	})
}
