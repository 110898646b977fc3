package modlog

import (
	"context"
	"fmt"
	"time"

	"github.com/TeddyKahwaji/spice-modlog/internal/logger"
	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/TeddyKahwaji/spice-modlog/internal/util"
	"github.com/TeddyKahwaji/spice-modlog/pkg/auditlog"
	"github.com/TeddyKahwaji/spice-modlog/pkg/notify"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reasons an event produced no notification, as counted in metrics.
const (
	skipNoSettings   = "settings_unavailable"
	skipDisabled     = "disabled"
	skipNoChannel    = "configuration_missing"
	skipIgnored      = "ignored_channel"
	skipBot          = "bot"
	skipNothing      = "nothing_to_report"
	skipNoSnapshot   = "no_snapshot"
	skipCancelled    = "cancelled"
	skipBanned       = "banned"
	skipUncached     = "uncached"
	skipEmptyMessage = "empty_message"
)

// event is the per-invocation view a handler works from: a settings copy,
// the resolved destination and the bot's capabilities there.
type event struct {
	ctx         context.Context
	kind        settings.EventKind
	guildID     string
	guild       settings.GuildSettings
	settings    settings.EventSettings
	destination string
	embed       bool
	audit       bool
	logger      *zap.Logger
}

// forUser tags the event's log lines with the member it concerns.
func (e *event) forUser(userID string) {
	e.logger = e.logger.With(logger.UserID(userID))
}

// begin loads everything a handler needs to report kind for guildID. It
// returns false when the guild does not want or cannot receive the
// notification.
func (c *Cog) begin(kind settings.EventKind, guildID string) (*event, bool) {
	c.metrics.IncrementHandled(string(kind))

	if guildID == "" {
		return nil, false
	}

	eventLogger := c.logger.With(
		logger.GuildID(guildID),
		logger.EventKind(string(kind)),
		logger.EventID(uuid.NewString()),
	)

	guildSettings, err := c.settings.Get(c.ctx, guildID)
	if err != nil {
		eventLogger.Warn("could not load modlog settings", zap.Error(err))
		c.metrics.IncrementSkipped(string(kind), skipNoSettings)

		return nil, false
	}

	eventSettings := guildSettings.Event(kind)
	if !eventSettings.Enabled {
		c.metrics.IncrementSkipped(string(kind), skipDisabled)
		return nil, false
	}

	destination, channelPermissions, err := c.destination(guildSettings, kind)
	if err != nil {
		eventLogger.Debug("modlog notification aborted", zap.Error(err))
		c.metrics.IncrementSkipped(string(kind), skipNoChannel)

		return nil, false
	}

	return &event{
		ctx:         c.ctx,
		kind:        kind,
		guildID:     guildID,
		guild:       guildSettings,
		settings:    eventSettings,
		destination: destination,
		embed:       eventSettings.Embed && util.HasPermission(channelPermissions, discordgo.PermissionEmbedLinks),
		audit:       util.HasPermission(c.guildPermissions(guildID), discordgo.PermissionViewAuditLogs),
		logger:      eventLogger.With(logger.ChannelID(destination)),
	}, true
}

// destination resolves the channel kind is logged to and the bot's
// permissions in it.
func (c *Cog) destination(guildSettings settings.GuildSettings, kind settings.EventKind) (string, int64, error) {
	channelID := guildSettings.Destination(kind)
	if channelID == "" {
		return "", 0, fmt.Errorf("no modlog channel set: %w", ErrConfigurationMissing)
	}

	if _, err := c.state.Channel(channelID); err != nil {
		return "", 0, fmt.Errorf("modlog channel %s not found: %w", channelID, ErrConfigurationMissing)
	}

	permissions, err := c.state.UserChannelPermissions(c.botID(), channelID)
	if err != nil {
		return "", 0, fmt.Errorf("resolving permissions in %s: %v: %w", channelID, err, ErrConfigurationMissing)
	}

	if !util.HasPermission(permissions, discordgo.PermissionSendMessages) {
		return "", 0, fmt.Errorf("cannot send messages in %s: %w", channelID, ErrConfigurationMissing)
	}

	return channelID, permissions, nil
}

func (c *Cog) botID() string {
	if c.state.User == nil {
		return ""
	}

	return c.state.User.ID
}

func (c *Cog) guildPermissions(guildID string) int64 {
	guild, err := util.GetGuild(c.state, guildID)
	if err != nil {
		return 0
	}

	member, err := c.state.Member(guildID, c.botID())
	if err != nil {
		return 0
	}

	return util.GuildPermissions(guild, member)
}

func (c *Cog) skip(e *event, reason string) {
	c.metrics.IncrementSkipped(string(e.kind), reason)
}

// ignored reports whether channelID or its category is on the guild's
// ignore list.
func (c *Cog) ignored(e *event, channelID string) bool {
	if channelID == "" {
		return false
	}

	var parentID string
	if channel, err := c.state.Channel(channelID); err == nil {
		parentID = channel.ParentID
	}

	if e.guild.IsIgnored(channelID, parentID) {
		c.skip(e, skipIgnored)
		return true
	}

	return false
}

// correlate attributes the event through the audit log when the bot can read
// it.
func (c *Cog) correlate(e *event, q auditlog.Query) auditlog.Attribution {
	q.GuildID = e.guildID
	q.Visible = e.audit

	attribution := c.correlator.Correlate(e.ctx, q)
	if e.audit {
		c.metrics.ObserveCorrelation(attribution.Found)
	}

	return attribution
}

// collectActors gathers every distinct actor in the audit window, for
// changes several moderators may have made at once.
func (c *Cog) collectActors(e *event, q auditlog.Query) []auditlog.Attribution {
	q.GuildID = e.guildID
	q.Visible = e.audit

	actors := c.correlator.CollectActors(e.ctx, q)
	if e.audit {
		c.metrics.ObserveCorrelation(len(actors) > 0)
	}

	return actors
}

// deliver renders n and posts it to the event's destination. Nothing is sent
// once the event's context is done.
func (c *Cog) deliver(e *event, n notify.Notification) {
	if err := e.ctx.Err(); err != nil {
		c.skip(e, skipCancelled)
		return
	}

	n.Kind = string(e.kind)
	n.Emoji = e.settings.Emoji

	if n.Time.IsZero() {
		n.Time = c.now()
	}

	if n.Colour == 0 {
		n.Colour = e.guild.Colour(e.kind, 0)
	}

	presentation := notify.Plain
	if e.embed {
		presentation = notify.Embed
	}

	rendered := notify.Format(n, presentation)

	start := time.Now()
	_, err := c.discord.ChannelMessageSendComplex(e.destination, rendered.MessageSend(), discordgo.WithContext(e.ctx))
	c.metrics.ObserveDelivery(string(e.kind), start, err)

	if err != nil {
		e.logger.Warn("could not deliver modlog notification", zap.Error(fmt.Errorf("%w: %w", ErrDeliveryFailed, err)))
	}
}

// wait pauses the event for d, returning false if it was cancelled first.
func (e *event) wait(d time.Duration) bool {
	if d <= 0 {
		return e.ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-e.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
