package modlog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/TeddyKahwaji/spice-modlog/internal/embeds"
	"github.com/TeddyKahwaji/spice-modlog/internal/logger"
	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/TeddyKahwaji/spice-modlog/internal/util"
	"github.com/TeddyKahwaji/spice-modlog/pkg/commands"
	"github.com/TeddyKahwaji/spice-modlog/pkg/funcs"
	"github.com/TeddyKahwaji/spice-modlog/pkg/notify"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// errInvalidOption is returned for input the user can correct; its message is
// shown back to them.
var errInvalidOption = errors.New("invalid option")

const errorMessageLifetime = 30 * time.Second

func eventOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "event",
		Description: "The event to configure",
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    required,
		Choices: funcs.Map(settings.EventKinds, func(kind settings.EventKind) *discordgo.ApplicationCommandOptionChoice {
			return &discordgo.ApplicationCommandOptionChoice{Name: string(kind), Value: string(kind)}
		}),
	}
}

func enabledOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "enabled",
		Description: description,
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Required:    true,
	}
}

func channelOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:         "channel",
		Description:  description,
		Type:         discordgo.ApplicationCommandOptionChannel,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildCategory, discordgo.ChannelTypeGuildVoice},
		Required:     true,
	}
}

// eventFlag is a switch that only some events read.
type eventFlag struct {
	name        string
	description string
	kinds       []settings.EventKind
	set         func(*settings.EventSettings, bool)
	on, off     string
}

var eventFlags = []eventFlag{
	{
		name:        "bots",
		description: "Log messages and changes made by bots",
		kinds:       []settings.EventKind{settings.MessageEdit, settings.MessageDelete, settings.UserChange, settings.VoiceChange},
		set:         func(e *settings.EventSettings, v bool) { e.Bots = v },
		on:          "Bots are now logged for `%s`.",
		off:         "Bots are no longer logged for `%s`.",
	},
	{
		name:        "nicknames",
		description: "Log nickname changes",
		kinds:       []settings.EventKind{settings.UserChange},
		set:         func(e *settings.EventSettings, v bool) { e.Nicknames = v },
		on:          "Nickname changes are now logged for `%s`.",
		off:         "Nickname changes are no longer logged for `%s`.",
	},
	{
		name:        "cachedonly",
		description: "Only log deleted messages whose content is known",
		kinds:       []settings.EventKind{settings.MessageDelete},
		set:         func(e *settings.EventSettings, v bool) { e.CachedOnly = v },
		on:          "Only cached messages are now logged for `%s`.",
		off:         "Uncached messages are now logged for `%s`.",
	},
	{
		name:        "bulk",
		description: "Log bulk message deletes",
		kinds:       []settings.EventKind{settings.MessageDelete},
		set:         func(e *settings.EventSettings, v bool) { e.BulkEnabled = v },
		on:          "Bulk deletes are now logged for `%s`.",
		off:         "Bulk deletes are no longer logged for `%s`.",
	},
	{
		name:        "bulkindividual",
		description: "Log every cached message of a bulk delete on its own",
		kinds:       []settings.EventKind{settings.MessageDelete},
		set:         func(e *settings.EventSettings, v bool) { e.BulkIndividual = v },
		on:          "Messages of a bulk delete are now logged one by one for `%s`.",
		off:         "Messages of a bulk delete are no longer logged one by one for `%s`.",
	},
}

func findEventFlag(name string) (eventFlag, bool) {
	i := slices.IndexFunc(eventFlags, func(flag eventFlag) bool { return flag.name == name })
	if i < 0 {
		return eventFlag{}, false
	}

	return eventFlags[i], true
}

func (f eventFlag) subcommand() *discordgo.ApplicationCommandOption {
	option := &discordgo.ApplicationCommandOption{
		Name:        f.name,
		Description: f.description,
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Options:     []*discordgo.ApplicationCommandOption{enabledOption("Turn this on or off")},
	}

	if len(f.kinds) > 1 {
		event := eventOption(true)
		event.Choices = funcs.Filter(event.Choices, func(choice *discordgo.ApplicationCommandOptionChoice) bool {
			return slices.Contains(f.kinds, settings.EventKind(choice.Name))
		})
		option.Options = append([]*discordgo.ApplicationCommandOption{event}, option.Options...)
	}

	return option
}

// kind resolves the event a flag applies to. Flags read by a single event
// take no event option.
func (f eventFlag) kind(kind settings.EventKind, hasKind bool) (settings.EventKind, error) {
	if !hasKind {
		if len(f.kinds) == 1 {
			return f.kinds[0], nil
		}

		return "", fmt.Errorf("%w: choose an event", errInvalidOption)
	}

	if !slices.Contains(f.kinds, kind) {
		return "", fmt.Errorf("%w: `%s` does not apply to `%s`", errInvalidOption, f.name, kind)
	}

	return kind, nil
}

// parseColour reads "#rrggbb" or "rrggbb". "default" clears the override.
func parseColour(value string) (*int, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "default" {
		return nil, nil
	}

	hex := strings.TrimPrefix(value, "#")
	if len(hex) != 6 {
		return nil, fmt.Errorf("%w: colour must look like #1abc9c", errInvalidOption)
	}

	parsed, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: colour must look like #1abc9c", errInvalidOption)
	}

	colour := int(parsed)

	return &colour, nil
}

func (c *Cog) getApplicationCommands() map[string]*commands.ApplicationCommand {
	manageServer := int64(discordgo.PermissionManageServer)
	dmPermission := false

	return map[string]*commands.ApplicationCommand{
		"modlog": {
			Handler: c.modlogCommand,
			CommandConfiguration: &discordgo.ApplicationCommand{
				Name:                     "modlog",
				Description:              "Configure the moderation log",
				DefaultMemberPermissions: &manageServer,
				DMPermission:             &dmPermission,
				Options: append([]*discordgo.ApplicationCommandOption{
					{
						Name:        "status",
						Description: "Show the modlog settings of this server",
						Type:        discordgo.ApplicationCommandOptionSubCommand,
					},
					{
						Name:        "channel",
						Description: "Set the modlog channel, or the channel of one event",
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Options: []*discordgo.ApplicationCommandOption{
							channelOption("The channel notifications are posted to"),
							eventOption(false),
						},
					},
					{
						Name:        "toggle",
						Description: "Turn logging of an event on or off",
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Options: []*discordgo.ApplicationCommandOption{
							eventOption(true),
							enabledOption("Whether the event is logged"),
						},
					},
					{
						Name:        "embed",
						Description: "Choose between embeds and plain text for an event",
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Options: []*discordgo.ApplicationCommandOption{
							eventOption(true),
							enabledOption("Whether the event is posted as an embed"),
						},
					},
					{
						Name:        "ignore",
						Description: "Stop or resume logging a channel or category",
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Options: []*discordgo.ApplicationCommandOption{
							channelOption("The channel or category to toggle"),
						},
					},
					{
						Name:        "colour",
						Description: "Set the embed colour of an event",
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Options: []*discordgo.ApplicationCommandOption{
							eventOption(true),
							{
								Name:        "colour",
								Description: "A hex colour such as #1abc9c, or default",
								Type:        discordgo.ApplicationCommandOptionString,
								Required:    true,
							},
						},
					},
					{
						Name:        "emoji",
						Description: "Set the emoji that prefixes an event",
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Options: []*discordgo.ApplicationCommandOption{
							eventOption(true),
							{
								Name:        "emoji",
								Description: "The emoji, or default",
								Type:        discordgo.ApplicationCommandOptionString,
								Required:    true,
							},
						},
					},
				}, funcs.Map(eventFlags, eventFlag.subcommand)...),
			},
		},
	}
}

// interactionCreate runs the matching command and logs it as commands_used
// once the user has been answered.
func (c *Cog) interactionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := interaction.ApplicationCommandData()

	if command, ok := c.getApplicationCommands()[data.Name]; ok {
		if err := command.Handler(session, interaction); err != nil {
			c.logger.Error("an error occurred when executing command", zap.Error(err), zap.String("command", data.Name), logger.GuildID(interaction.GuildID))

			err := util.SendMessage(session, interaction.Interaction, false, util.MessageData{
				Embeds: embeds.UnexpectedErrorEmbed(),
				Type:   discordgo.InteractionResponseChannelMessageWithSource,
			}, util.WithDeletion(errorMessageLifetime, interaction.ChannelID))
			if err != nil {
				c.logger.Warn("failed to send unexpected error message", zap.Error(err))
			}
		}
	}

	c.commandUsed(interaction, data)
}

func (c *Cog) modlogCommand(session *discordgo.Session, interaction *discordgo.InteractionCreate) error {
	reply := func(embed *discordgo.MessageEmbed) error {
		return util.SendMessage(session, interaction.Interaction, false, util.MessageData{
			Embeds:      embed,
			FlagWrapper: &util.FlagWrapper{Flags: discordgo.MessageFlagsEphemeral},
			Type:        discordgo.InteractionResponseChannelMessageWithSource,
		})
	}

	if interaction.GuildID == "" || interaction.Member == nil {
		return reply(embeds.ErrorMessageEmbed("This command can only be used in a server."))
	}

	if !util.HasPermission(interaction.Member.Permissions, discordgo.PermissionManageServer) {
		return reply(embeds.ErrorMessageEmbed("You need the Manage Server permission to configure the modlog."))
	}

	data := interaction.ApplicationCommandData()
	if len(data.Options) == 0 {
		return reply(embeds.ErrorMessageEmbed("Choose a subcommand."))
	}

	embed, err := c.runModlogCommand(c.ctx, interaction.GuildID, data.Options[0])
	if errors.Is(err, errInvalidOption) {
		return reply(embeds.ErrorMessageEmbed(err.Error()))
	}

	if err != nil {
		return fmt.Errorf("running modlog %s: %w", data.Options[0].Name, err)
	}

	return reply(embed)
}

// runModlogCommand applies one /modlog subcommand to the guild's settings and
// returns the embed answering it.
func (c *Cog) runModlogCommand(ctx context.Context, guildID string, subcommand *discordgo.ApplicationCommandInteractionDataOption) (*discordgo.MessageEmbed, error) {
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(subcommand.Options))
	for _, option := range subcommand.Options {
		options[option.Name] = option
	}

	kind, hasKind, err := parseEventOption(options)
	if err != nil {
		return nil, err
	}

	switch subcommand.Name {
	case "status":
		guildSettings, err := c.settings.Get(ctx, guildID)
		if err != nil {
			return nil, err
		}

		return embeds.SettingsStatusEmbed(guildSettings), nil

	case "channel":
		channelID, err := channelIDOption(options)
		if err != nil {
			return nil, err
		}

		if _, err := c.settings.Update(ctx, guildID, func(gs *settings.GuildSettings) {
			if hasKind {
				event := gs.Event(kind)
				event.Channel = channelID
				gs.SetEvent(kind, event)

				return
			}

			gs.ModlogChannel = channelID
		}); err != nil {
			return nil, err
		}

		if hasKind {
			return embeds.SettingUpdatedEmbed(fmt.Sprintf("`%s` will be logged in <#%s>.", kind, channelID)), nil
		}

		return embeds.SettingUpdatedEmbed(fmt.Sprintf("Modlog channel set to <#%s>.", channelID)), nil

	case "toggle", "embed":
		if !hasKind {
			return nil, fmt.Errorf("%w: choose an event", errInvalidOption)
		}

		enabled, ok := options["enabled"]
		if !ok {
			return nil, fmt.Errorf("%w: choose whether to enable it", errInvalidOption)
		}

		value := enabled.BoolValue()

		if _, err := c.settings.Update(ctx, guildID, func(gs *settings.GuildSettings) {
			event := gs.Event(kind)
			if subcommand.Name == "toggle" {
				event.Enabled = value
			} else {
				event.Embed = value
			}

			gs.SetEvent(kind, event)
		}); err != nil {
			return nil, err
		}

		return embeds.SettingUpdatedEmbed(toggleMessage(subcommand.Name, kind, value)), nil

	case "ignore":
		channelID, err := channelIDOption(options)
		if err != nil {
			return nil, err
		}

		var ignored bool

		if _, err := c.settings.Update(ctx, guildID, func(gs *settings.GuildSettings) {
			if i := slices.Index(gs.IgnoredChannels, channelID); i >= 0 {
				gs.IgnoredChannels = slices.Delete(gs.IgnoredChannels, i, i+1)
				return
			}

			gs.IgnoredChannels = append(gs.IgnoredChannels, channelID)
			ignored = true
		}); err != nil {
			return nil, err
		}

		if ignored {
			return embeds.SettingUpdatedEmbed(fmt.Sprintf("<#%s> is now ignored.", channelID)), nil
		}

		return embeds.SettingUpdatedEmbed(fmt.Sprintf("<#%s> is no longer ignored.", channelID)), nil

	case "colour":
		if !hasKind {
			return nil, fmt.Errorf("%w: choose an event", errInvalidOption)
		}

		colour, err := parseColour(stringOptionValue(options, "colour"))
		if err != nil {
			return nil, err
		}

		if _, err := c.settings.Update(ctx, guildID, func(gs *settings.GuildSettings) {
			event := gs.Event(kind)
			event.Colour = colour
			gs.SetEvent(kind, event)
		}); err != nil {
			return nil, err
		}

		if colour == nil {
			return embeds.SettingUpdatedEmbed(fmt.Sprintf("`%s` uses its default colour.", kind)), nil
		}

		return embeds.SettingUpdatedEmbed(fmt.Sprintf("`%s` now uses #%06x.", kind, *colour)), nil

	case "emoji":
		if !hasKind {
			return nil, fmt.Errorf("%w: choose an event", errInvalidOption)
		}

		emoji := strings.TrimSpace(stringOptionValue(options, "emoji"))
		if emoji == "" {
			return nil, fmt.Errorf("%w: choose an emoji", errInvalidOption)
		}

		if emoji == "default" {
			emoji = ""
		}

		updated, err := c.settings.Update(ctx, guildID, func(gs *settings.GuildSettings) {
			event := gs.Event(kind)
			event.Emoji = emoji
			gs.SetEvent(kind, event)
		})
		if err != nil {
			return nil, err
		}

		return embeds.SettingUpdatedEmbed(fmt.Sprintf("`%s` is now prefixed with %s.", kind, updated.Event(kind).Emoji)), nil
	}

	flag, ok := findEventFlag(subcommand.Name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown subcommand %q", errInvalidOption, subcommand.Name)
	}

	kind, err = flag.kind(kind, hasKind)
	if err != nil {
		return nil, err
	}

	enabled, ok := options["enabled"]
	if !ok {
		return nil, fmt.Errorf("%w: choose whether to enable it", errInvalidOption)
	}

	value := enabled.BoolValue()

	if _, err := c.settings.Update(ctx, guildID, func(gs *settings.GuildSettings) {
		event := gs.Event(kind)
		flag.set(&event, value)
		gs.SetEvent(kind, event)
	}); err != nil {
		return nil, err
	}

	message := flag.off
	if value {
		message = flag.on
	}

	return embeds.SettingUpdatedEmbed(fmt.Sprintf(message, kind)), nil
}

func parseEventOption(options map[string]*discordgo.ApplicationCommandInteractionDataOption) (settings.EventKind, bool, error) {
	option, ok := options["event"]
	if !ok {
		return "", false, nil
	}

	kind, ok := settings.ParseEventKind(option.StringValue())
	if !ok {
		return "", false, fmt.Errorf("%w: unknown event %q", errInvalidOption, option.StringValue())
	}

	return kind, true, nil
}

func stringOptionValue(options map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if option, ok := options[name]; ok {
		return option.StringValue()
	}

	return ""
}

func channelIDOption(options map[string]*discordgo.ApplicationCommandInteractionDataOption) (string, error) {
	option, ok := options["channel"]
	if !ok {
		return "", fmt.Errorf("%w: choose a channel", errInvalidOption)
	}

	return option.ChannelValue(nil).ID, nil
}

func toggleMessage(subcommand string, kind settings.EventKind, value bool) string {
	if subcommand == "toggle" {
		if value {
			return fmt.Sprintf("`%s` is now logged.", kind)
		}

		return fmt.Sprintf("`%s` is no longer logged.", kind)
	}

	if value {
		return fmt.Sprintf("`%s` is now posted as an embed.", kind)
	}

	return fmt.Sprintf("`%s` is now posted as text.", kind)
}

// commandLine renders an invocation the way the user typed it.
func commandLine(data discordgo.ApplicationCommandInteractionData) string {
	parts := []string{"/" + data.Name}

	var walk func(options []*discordgo.ApplicationCommandInteractionDataOption)
	walk = func(options []*discordgo.ApplicationCommandInteractionDataOption) {
		for _, option := range options {
			switch option.Type {
			case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
				parts = append(parts, option.Name)
				walk(option.Options)
			default:
				parts = append(parts, fmt.Sprintf("%s:%v", option.Name, option.Value))
			}
		}
	}
	walk(data.Options)

	return strings.Join(parts, " ")
}

func (c *Cog) commandUsed(interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if interaction.Member == nil || interaction.Member.User == nil {
		return
	}

	defer c.recoverHandler(settings.CommandsUsed, interaction.GuildID)

	e, ok := c.begin(settings.CommandsUsed, interaction.GuildID)
	if !ok {
		return
	}

	if c.ignored(e, interaction.ChannelID) {
		return
	}

	user := interaction.Member.User
	line := commandLine(data)

	c.deliver(e, notify.Notification{
		Headline:    fmt.Sprintf("**%s** (`%s`) used `%s` in <#%s>", user.Username, user.ID, line, interaction.ChannelID),
		Title:       "Command used",
		Description: "<@" + user.ID + ">",
		AuthorName:  fmt.Sprintf("%s (%s) used a command", user.Username, user.ID),
		AuthorIcon:  user.AvatarURL(""),
		Fields: []notify.Field{
			{Name: "Channel", Value: "<#" + interaction.ChannelID + ">", Inline: true},
			{Name: "Command", Value: "`" + line + "`"},
		},
	})
}
