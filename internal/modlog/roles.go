package modlog

import (
	"fmt"

	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/TeddyKahwaji/spice-modlog/pkg/auditlog"
	"github.com/TeddyKahwaji/spice-modlog/pkg/diff"
	"github.com/TeddyKahwaji/spice-modlog/pkg/notify"
	"github.com/bwmarrin/discordgo"
)

func roleLabel(guildID string, roleID, name string) string {
	if roleID == guildID {
		return "@everyone"
	}

	return name
}

func (c *Cog) roleCreate(_ *discordgo.Session, created *discordgo.GuildRoleCreate) {
	if created.GuildRole == nil || created.Role == nil {
		return
	}

	defer c.recoverHandler(settings.RoleCreate, created.GuildID)

	role := created.Role
	c.snapshots.swapRole(created.GuildID, role.ID, newRoleState(role))

	e, ok := c.begin(settings.RoleCreate, created.GuildID)
	if !ok {
		return
	}

	attribution := c.correlate(e, auditlog.Query{
		TargetID: role.ID,
		Action:   discordgo.AuditLogActionRoleCreate,
	})

	c.deliver(e, notify.Notification{
		Headline:    fmt.Sprintf("Role created %s (%s)", role.Name, role.ID),
		Title:       "Role created",
		Description: fmt.Sprintf("<@&%s> `%s`", role.ID, role.Name),
		Fields: []notify.Field{
			{Name: "ID", Value: role.ID, Inline: true},
		},
		Attribution: attribution,
	})
}

func (c *Cog) roleDelete(_ *discordgo.Session, deleted *discordgo.GuildRoleDelete) {
	defer c.recoverHandler(settings.RoleDelete, deleted.GuildID)

	name := deleted.RoleID
	if role, ok := c.snapshots.removeRole(deleted.GuildID, deleted.RoleID); ok {
		name = role.name
	}

	e, ok := c.begin(settings.RoleDelete, deleted.GuildID)
	if !ok {
		return
	}

	attribution := c.correlate(e, auditlog.Query{
		TargetID: deleted.RoleID,
		Action:   discordgo.AuditLogActionRoleDelete,
	})

	c.deliver(e, notify.Notification{
		Headline:    fmt.Sprintf("Role deleted %s (%s)", name, deleted.RoleID),
		Title:       "Role deleted",
		Description: fmt.Sprintf("`%s`", name),
		Fields: []notify.Field{
			{Name: "ID", Value: deleted.RoleID, Inline: true},
		},
		Attribution: attribution,
	})
}

func (c *Cog) roleUpdate(_ *discordgo.Session, updated *discordgo.GuildRoleUpdate) {
	if updated.GuildRole == nil || updated.Role == nil {
		return
	}

	defer c.recoverHandler(settings.RoleChange, updated.GuildID)

	role := updated.Role
	after := newRoleState(role)
	before, seen := c.snapshots.swapRole(updated.GuildID, role.ID, after)

	e, ok := c.begin(settings.RoleChange, updated.GuildID)
	if !ok {
		return
	}

	if !seen {
		c.skip(e, skipNoSnapshot)
		return
	}

	records := diff.Diff(diff.Role, before.snapshot, after.snapshot, diff.RoleAttributes)
	permissions := diff.DiffPermissions(before.permissions, after.permissions)

	if len(records) == 0 && len(permissions) == 0 {
		c.skip(e, skipNothing)
		return
	}

	attribution := c.correlate(e, auditlog.Query{
		TargetID: role.ID,
		Action:   discordgo.AuditLogActionRoleUpdate,
	})

	label := roleLabel(updated.GuildID, role.ID, role.Name)

	c.deliver(e, notify.Notification{
		Headline:    fmt.Sprintf("Updated %s (%s) role", label, role.ID),
		AuthorName:  fmt.Sprintf("Updated %s (%s) role", label, role.ID),
		Description: roleMention(updated.GuildID, role.ID),
		Colour:      e.guild.Colour(settings.RoleChange, role.Color),
		Records:     records,
		Sections:    []notify.Section{{Name: "Permissions", Records: permissions}},
		Attribution: attribution,
	})
}
