package modlog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/TeddyKahwaji/spice-modlog/internal/invites"
	"github.com/TeddyKahwaji/spice-modlog/internal/logger"
	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/TeddyKahwaji/spice-modlog/internal/util"
	"github.com/TeddyKahwaji/spice-modlog/pkg/auditlog"
	"github.com/TeddyKahwaji/spice-modlog/pkg/funcs"
	"github.com/TeddyKahwaji/spice-modlog/pkg/notify"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (c *Cog) inviteCreate(_ *discordgo.Session, created *discordgo.InviteCreate) {
	if created.Invite == nil {
		return
	}

	defer c.recoverHandler(settings.InviteCreated, created.GuildID)

	record := invites.FromInvite(created.Invite)
	if record.ChannelID == "" {
		record.ChannelID = created.ChannelID
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = c.now()
	}

	if err := c.invites.Add(c.ctx, created.GuildID, record); err != nil {
		c.logger.Warn("could not store invite", zap.Error(err), logger.GuildID(created.GuildID))
	}

	e, ok := c.begin(settings.InviteCreated, created.GuildID)
	if !ok {
		return
	}

	n := notify.Notification{
		Headline: "Invite created " + record.URL(),
		Title:    "Invite Created",
		Fields:   inviteFields(record, false),
	}

	if record.InviterID != "" {
		n.Description = fmt.Sprintf("<@%s> created an invite for <#%s>.", record.InviterID, record.ChannelID)
	}

	c.deliver(e, n)
}

func (c *Cog) inviteDelete(_ *discordgo.Session, deleted *discordgo.InviteDelete) {
	defer c.recoverHandler(settings.InviteDeleted, deleted.GuildID)

	record, known, err := c.invites.Remove(c.ctx, deleted.GuildID, deleted.Code)
	if err != nil {
		c.logger.Warn("could not remove invite", zap.Error(err), logger.GuildID(deleted.GuildID))
	}

	if !known {
		record = invites.InviteRecord{Code: deleted.Code, ChannelID: deleted.ChannelID}
	}

	e, ok := c.begin(settings.InviteDeleted, deleted.GuildID)
	if !ok {
		return
	}

	n := notify.Notification{
		Headline: "Invite deleted " + record.URL(),
		Title:    "Invite Deleted",
		Fields:   inviteFields(record, true),
	}

	if record.InviterID != "" {
		n.Description = fmt.Sprintf("<@%s> deleted or used up an invite for <#%s>.", record.InviterID, record.ChannelID)
	}

	c.deliver(e, n)
}

// inviteFields lists the invite attributes that are set.
func inviteFields(record invites.InviteRecord, withUses bool) []notify.Field {
	fields := []notify.Field{
		{Name: "Code", Value: record.Code, Inline: true},
	}

	add := func(name, value string) {
		fields = append(fields, notify.Field{Name: name, Value: value, Inline: true})
	}

	if record.InviterID != "" {
		add("Inviter", "<@"+record.InviterID+">")
	}

	if record.ChannelID != "" {
		add("Channel", "<#"+record.ChannelID+">")
	}

	if record.MaxUses > 0 {
		add("Max Uses", strconv.Itoa(record.MaxUses))
	}

	if withUses && record.Uses > 0 {
		add("Used", strconv.Itoa(record.Uses))
	}

	if record.MaxAge > 0 {
		add("Max Age", (time.Duration(record.MaxAge) * time.Second).String())
	}

	if record.Temporary {
		add("Temporary", "true")
	}

	return fields
}

// inviteLink works out which invite a new member used: an invite whose uses
// went up, an invite used up by the join, an invite created since the table
// was last stored, and finally the vanity url.
func (c *Cog) inviteLink(e *event) string {
	stored := c.invites.Snapshot(e.guildID)

	if current, err := c.fetchInvites(e.ctx, e.guildID); err != nil {
		e.logger.Debug("could not fetch invites", zap.Error(err))
	} else if current != nil {
		if err := c.invites.Replace(e.ctx, e.guildID, current); err != nil {
			e.logger.Warn("could not store invites", zap.Error(err))
		}

		if record, ok := invites.Attribute(stored, current); ok {
			return describeInvite(record.URL(), record.InviterID)
		}
	}

	created := c.correlate(e, auditlog.Query{
		Action: discordgo.AuditLogActionInviteCreate,
		Match: func(entry *discordgo.AuditLogEntry) bool {
			code, ok := inviteCode(entry)
			_, known := stored[code]

			return ok && !known
		},
	})

	if created.Found {
		code, _ := inviteCode(created.Entry)

		return describeInvite(invites.InviteRecord{Code: code}.URL(), created.ActorID)
	}

	if guild, err := c.state.Guild(e.guildID); err == nil && guild.VanityURLCode != "" {
		return invites.InviteRecord{Code: guild.VanityURLCode}.URL()
	}

	return ""
}

func describeInvite(url, inviterID string) string {
	if inviterID == "" {
		return url
	}

	return fmt.Sprintf("%s\nInvited by <@%s>", url, inviterID)
}

func inviteCode(entry *discordgo.AuditLogEntry) (string, bool) {
	value, ok := auditlog.NewValue(entry, discordgo.AuditLogChangeKeyCode)
	if !ok {
		return "", false
	}

	code, ok := value.(string)

	return code, ok && code != ""
}

// fetchInvites returns nil without error when the bot may not list the
// guild's invites.
func (c *Cog) fetchInvites(ctx context.Context, guildID string) ([]invites.InviteRecord, error) {
	if !util.HasPermission(c.guildPermissions(guildID), discordgo.PermissionManageServer) {
		return nil, nil
	}

	current, err := c.discord.GuildInvites(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching invites: %w", err)
	}

	records := funcs.Map(funcs.Filter(current, func(invite *discordgo.Invite) bool {
		return invite != nil
	}), invites.FromInvite)
	if records == nil {
		records = []invites.InviteRecord{}
	}

	return records, nil
}

func (c *Cog) refreshGuildInvites(ctx context.Context, guildID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting to fetch invites: %w", err)
	}

	current, err := c.fetchInvites(ctx, guildID)
	if err != nil || current == nil {
		return err
	}

	if err := c.invites.Replace(ctx, guildID, current); err != nil {
		return fmt.Errorf("replacing invites: %w", err)
	}

	return nil
}

// refreshInvites replaces the invite table of every guild logging joins.
// Failures are per guild and never stop the others.
func (c *Cog) refreshInvites(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(c.cfg.InviteRefreshConcurrency)

	for _, guildID := range c.settings.GuildsWith(settings.UserJoin) {
		group.Go(func() error {
			defer c.recoverHandler(settings.UserJoin, guildID)

			err := c.refreshGuildInvites(ctx, guildID)
			c.metrics.ObserveInviteRefresh(err)

			if err != nil {
				c.logger.Warn("could not refresh invites", zap.Error(err), logger.GuildID(guildID))
			}

			return nil
		})
	}

	return group.Wait()
}

func (c *Cog) refreshInvitesLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.InviteRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.refreshInvites(c.ctx); err != nil {
				c.logger.Warn("invite refresh failed", zap.Error(err))
			}
		}
	}
}
