package modlog

import (
	"fmt"

	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/TeddyKahwaji/spice-modlog/pkg/auditlog"
	"github.com/TeddyKahwaji/spice-modlog/pkg/diff"
	"github.com/TeddyKahwaji/spice-modlog/pkg/notify"
	"github.com/bwmarrin/discordgo"
)

func (c *Cog) channelCreate(_ *discordgo.Session, created *discordgo.ChannelCreate) {
	if created.Channel == nil {
		return
	}

	c.snapshots.swapChannel(created.GuildID, created.Channel)
	c.reportChannelLifecycle(settings.ChannelCreate, created.Channel, discordgo.AuditLogActionChannelCreate, "created")
}

func (c *Cog) channelDelete(_ *discordgo.Session, deleted *discordgo.ChannelDelete) {
	if deleted.Channel == nil {
		return
	}

	c.snapshots.removeChannel(deleted.GuildID, deleted.ID)
	c.reportChannelLifecycle(settings.ChannelDelete, deleted.Channel, discordgo.AuditLogActionChannelDelete, "deleted")
}

func (c *Cog) reportChannelLifecycle(kind settings.EventKind, channel *discordgo.Channel, action discordgo.AuditLogAction, verb string) {
	defer c.recoverHandler(kind, channel.GuildID)

	e, ok := c.begin(kind, channel.GuildID)
	if !ok {
		return
	}

	if e.guild.IsIgnored(channel.ID, channel.ParentID) {
		c.skip(e, skipIgnored)
		return
	}

	attribution := c.correlate(e, auditlog.Query{
		TargetID: channel.ID,
		Action:   action,
	})

	typeName := channelTypeName(channel.Type)

	fields := []notify.Field{
		{Name: "Type", Value: typeName, Inline: true},
	}

	if category := c.channelName(channel.ParentID); category != "" {
		fields = append(fields, notify.Field{Name: "Category", Value: category, Inline: true})
	}

	fields = append(fields, notify.Field{Name: "ID", Value: channel.ID, Inline: true})

	c.deliver(e, notify.Notification{
		Headline:    fmt.Sprintf("%s channel %s `%s` (%s)", typeName, verb, channel.Name, channel.ID),
		Title:       fmt.Sprintf("%s channel %s", typeName, verb),
		Description: fmt.Sprintf("<#%s> `%s`", channel.ID, channel.Name),
		Fields:      fields,
		Attribution: attribution,
	})
}

func (c *Cog) channelUpdate(_ *discordgo.Session, updated *discordgo.ChannelUpdate) {
	if updated.Channel == nil {
		return
	}

	defer c.recoverHandler(settings.ChannelChange, updated.GuildID)

	before, known := c.snapshots.swapChannel(updated.GuildID, updated.Channel)

	e, ok := c.begin(settings.ChannelChange, updated.GuildID)
	if !ok {
		return
	}

	after := updated.Channel
	if !known {
		c.skip(e, skipNoSnapshot)
		return
	}

	if e.guild.IsIgnored(after.ID, after.ParentID) {
		c.skip(e, skipIgnored)
		return
	}

	records := diff.Diff(diff.Channel, c.channelSnapshot(before), c.channelSnapshot(after), watchedChannelAttributes(after))
	overwrites := diff.DiffOverwrites(c.overwrites(before), c.overwrites(after))

	if len(records) == 0 && len(overwrites) == 0 {
		c.skip(e, skipNothing)
		return
	}

	attribution := c.correlate(e, auditlog.Query{
		TargetID: after.ID,
		Action:   channelUpdateAction(records, overwrites),
	})

	typeName := channelTypeName(after.Type)

	c.deliver(e, notify.Notification{
		Headline:    fmt.Sprintf("%s channel updated `%s` (%s)", typeName, after.Name, after.ID),
		Title:       fmt.Sprintf("%s channel updated", typeName),
		Description: fmt.Sprintf("<#%s> `%s`", after.ID, after.Name),
		Records:     records,
		Sections:    []notify.Section{{Name: "Permissions", Records: overwrites}},
		Attribution: attribution,
	})
}

// channelUpdateAction picks the audit action that explains the change. An
// overwrite-only change is attributed to the overwrite action matching the
// first overwrite record.
func channelUpdateAction(records, overwrites []diff.ChangeRecord) discordgo.AuditLogAction {
	if len(records) > 0 || len(overwrites) == 0 {
		return discordgo.AuditLogActionChannelUpdate
	}

	switch overwrites[0].Op {
	case diff.OpAdded:
		return discordgo.AuditLogActionChannelOverwriteCreate
	case diff.OpRemoved:
		return discordgo.AuditLogActionChannelOverwriteDelete
	default:
		return discordgo.AuditLogActionChannelOverwriteUpdate
	}
}
