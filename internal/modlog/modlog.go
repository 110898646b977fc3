// Package modlog posts a moderation log notification into a guild's modlog
// channel for every significant change the gateway reports.
package modlog

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/TeddyKahwaji/spice-modlog/internal/config"
	"github.com/TeddyKahwaji/spice-modlog/internal/invites"
	"github.com/TeddyKahwaji/spice-modlog/internal/logger"
	"github.com/TeddyKahwaji/spice-modlog/internal/metrics"
	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/TeddyKahwaji/spice-modlog/pkg/auditlog"
	"github.com/TeddyKahwaji/spice-modlog/pkg/commands"
	"github.com/TeddyKahwaji/spice-modlog/pkg/funcs"
	"github.com/bwmarrin/discordgo"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// recentBanTTL is how long a ban is remembered so the matching member leave
// is not reported as a departure.
const recentBanTTL = time.Minute

var (
	ErrConfigurationMissing = errors.New("modlog configuration missing")
	ErrDeliveryFailed       = errors.New("modlog delivery failed")
)

// Discord is the REST surface of a discordgo session the cog calls.
type Discord interface {
	auditlog.Reader
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildInvites(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Invite, error)
}

type CogConfig struct {
	Discord  Discord
	State    *discordgo.State
	Logger   *zap.Logger
	Settings *settings.Store
	Invites  *invites.Tracker
	Metrics  *metrics.Metrics
	Modlog   config.ModlogConfig
	// Now defaults to time.Now.
	Now func() time.Time
}

type Cog struct {
	discord    Discord
	state      *discordgo.State
	logger     *zap.Logger
	settings   *settings.Store
	invites    *invites.Tracker
	metrics    *metrics.Metrics
	correlator *auditlog.Correlator
	cfg        config.ModlogConfig
	now        func() time.Time

	messages  *lru.Cache[string, cachedMessage]
	bans      *expirable.LRU[string, struct{}]
	snapshots *snapshotCache
	limiter   *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCog(config *CogConfig) (*Cog, error) {
	if config == nil ||
		config.Discord == nil ||
		config.State == nil ||
		config.Logger == nil ||
		config.Settings == nil ||
		config.Invites == nil ||
		config.Metrics == nil {
		return nil, errors.New("config was populated with nil value")
	}

	messages, err := lru.New[string, cachedMessage](config.Modlog.MessageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating message cache: %w", err)
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())

	cog := &Cog{
		discord:    config.Discord,
		state:      config.State,
		logger:     config.Logger,
		settings:   config.Settings,
		invites:    config.Invites,
		metrics:    config.Metrics,
		correlator: auditlog.NewCorrelator(config.Discord, config.Logger, config.Modlog.AuditLookback),
		cfg:        config.Modlog,
		now:        now,
		messages:   messages,
		bans:       expirable.NewLRU[string, struct{}](config.Modlog.MessageCacheSize, nil, recentBanTTL),
		snapshots:  newSnapshotCache(),
		limiter:    rate.NewLimiter(rate.Limit(config.Modlog.InviteRefreshRate), 1),
		ctx:        ctx,
		cancel:     cancel,
	}

	return cog, nil
}

// Start subscribes every gateway handler, seeds guilds the session state
// already holds and starts the invite refresh loop. It must run before the
// session opens so no GUILD_CREATE is missed.
func (c *Cog) Start(session *discordgo.Session) {
	// This handler delegates commands to their handler and logs commands_used.
	session.AddHandler(c.interactionCreate)

	session.AddHandler(c.guildCreate)
	session.AddHandler(c.guildUpdate)
	session.AddHandler(c.guildDelete)
	session.AddHandler(c.guildEmojisUpdate)

	session.AddHandler(c.channelCreate)
	session.AddHandler(c.channelUpdate)
	session.AddHandler(c.channelDelete)

	session.AddHandler(c.roleCreate)
	session.AddHandler(c.roleUpdate)
	session.AddHandler(c.roleDelete)

	session.AddHandler(c.memberAdd)
	session.AddHandler(c.memberUpdate)
	session.AddHandler(c.memberRemove)
	session.AddHandler(c.banAdd)
	session.AddHandler(c.voiceStateUpdate)

	session.AddHandler(c.messageCreate)
	session.AddHandler(c.messageUpdate)
	session.AddHandler(c.messageDelete)
	session.AddHandler(c.messageDeleteBulk)

	session.AddHandler(c.inviteCreate)
	session.AddHandler(c.inviteDelete)

	c.loadStateGuilds()

	c.wg.Add(1)
	go c.refreshInvitesLoop()
}

// loadStateGuilds loads every available guild in the session state as if its
// GUILD_CREATE had just arrived.
func (c *Cog) loadStateGuilds() {
	c.state.RLock()
	guilds := slices.Clone(c.state.Guilds)
	c.state.RUnlock()

	for _, guild := range guilds {
		if guild != nil && !guild.Unavailable {
			c.loadGuild(guild)
		}
	}
}

// RegisterCommands overwrites the bot's application commands with the modlog
// command.
func (c *Cog) RegisterCommands(session *discordgo.Session) error {
	commandMapping := slices.Collect(maps.Values(c.getApplicationCommands()))
	commandsToRegister := funcs.Map(commandMapping, func(ac *commands.ApplicationCommand) *discordgo.ApplicationCommand {
		return ac.CommandConfiguration
	})

	if _, err := session.ApplicationCommandBulkOverwrite(session.State.Application.ID, "", commandsToRegister); err != nil {
		return fmt.Errorf("bulk overwriting commands: %w", err)
	}

	return nil
}

// Close stops the refresh loop and cancels every event still in flight.
func (c *Cog) Close() {
	c.cancel()
	c.wg.Wait()
}

// recoverHandler keeps a panicking handler from taking the gateway down.
func (c *Cog) recoverHandler(kind settings.EventKind, guildID string) {
	if r := recover(); r != nil {
		c.logger.Error("recovered from panic in modlog handler",
			logger.EventKind(string(kind)),
			logger.GuildID(guildID),
			zap.Any("recovery", r),
		)
	}
}
