package modlog

import (
	"testing"

	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func subcommand(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:    name,
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Options: options,
	}
}

func stringOption(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func boolOption(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: value}
}

func channelIDValue(channelID string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Value: channelID}
}

func (s *ModlogSuite) TestToggleCommand() {
	embed, err := s.cog.runModlogCommand(s.ctx, guildID, subcommand("toggle",
		stringOption("event", string(settings.RoleChange)),
		boolOption("enabled", false),
	))
	s.Require().NoError(err)
	s.Contains(embed.Description, "`role_change` is no longer logged.")

	guildSettings, err := s.settings.Get(s.ctx, guildID)
	s.Require().NoError(err)
	s.False(guildSettings.Event(settings.RoleChange).Enabled)
	s.True(guildSettings.Event(settings.RoleCreate).Enabled)
}

func (s *ModlogSuite) TestEmbedCommand() {
	_, err := s.cog.runModlogCommand(s.ctx, guildID, subcommand("embed",
		stringOption("event", string(settings.UserJoin)),
		boolOption("enabled", true),
	))
	s.Require().NoError(err)

	guildSettings, err := s.settings.Get(s.ctx, guildID)
	s.Require().NoError(err)
	s.True(guildSettings.Event(settings.UserJoin).Embed)
	s.True(guildSettings.Event(settings.UserJoin).Enabled)
}

func (s *ModlogSuite) TestChannelCommand() {
	_, err := s.cog.runModlogCommand(s.ctx, guildID, subcommand("channel", channelIDValue("general")))
	s.Require().NoError(err)

	_, err = s.cog.runModlogCommand(s.ctx, guildID, subcommand("channel",
		channelIDValue("voice"),
		stringOption("event", string(settings.VoiceChange)),
	))
	s.Require().NoError(err)

	guildSettings, err := s.settings.Get(s.ctx, guildID)
	s.Require().NoError(err)
	s.Equal("general", guildSettings.ModlogChannel)
	s.Equal("voice", guildSettings.Destination(settings.VoiceChange))
	s.Equal("general", guildSettings.Destination(settings.RoleChange))
}

func (s *ModlogSuite) TestIgnoreCommandToggles() {
	embed, err := s.cog.runModlogCommand(s.ctx, guildID, subcommand("ignore", channelIDValue("general")))
	s.Require().NoError(err)
	s.Contains(embed.Description, "is now ignored")

	guildSettings, err := s.settings.Get(s.ctx, guildID)
	s.Require().NoError(err)
	s.Equal([]string{"general"}, guildSettings.IgnoredChannels)

	embed, err = s.cog.runModlogCommand(s.ctx, guildID, subcommand("ignore", channelIDValue("general")))
	s.Require().NoError(err)
	s.Contains(embed.Description, "no longer ignored")

	guildSettings, err = s.settings.Get(s.ctx, guildID)
	s.Require().NoError(err)
	s.Empty(guildSettings.IgnoredChannels)
}

func (s *ModlogSuite) TestStatusCommand() {
	embed, err := s.cog.runModlogCommand(s.ctx, guildID, subcommand("status"))
	s.Require().NoError(err)

	channel, ok := embedField(embed, "Modlog channel")
	s.Require().True(ok)
	s.Equal("<#modlog>", channel)
}

func (s *ModlogSuite) TestBulkCommandsEnableBulkNotifications() {
	_, err := s.cog.runModlogCommand(s.ctx, guildID, subcommand("bulk", boolOption("enabled", true)))
	s.Require().NoError(err)

	embed, err := s.cog.runModlogCommand(s.ctx, guildID, subcommand("bulkindividual", boolOption("enabled", true)))
	s.Require().NoError(err)
	s.Contains(embed.Description, "one by one for `message_delete`")

	s.cacheMessage("m1", "one")
	s.cog.messageDeleteBulk(nil, &discordgo.MessageDeleteBulk{
		GuildID:   guildID,
		ChannelID: "general",
		Messages:  []string{"m1", "m2"},
	})

	s.Len(s.sent(), 2)
}

func (s *ModlogSuite) TestFlagCommands() {
	_, err := s.cog.runModlogCommand(s.ctx, guildID, subcommand("bots",
		stringOption("event", string(settings.VoiceChange)),
		boolOption("enabled", true),
	))
	s.Require().NoError(err)

	_, err = s.cog.runModlogCommand(s.ctx, guildID, subcommand("nicknames", boolOption("enabled", false)))
	s.Require().NoError(err)

	_, err = s.cog.runModlogCommand(s.ctx, guildID, subcommand("cachedonly", boolOption("enabled", true)))
	s.Require().NoError(err)

	guildSettings, err := s.settings.Get(s.ctx, guildID)
	s.Require().NoError(err)
	s.True(guildSettings.Event(settings.VoiceChange).Bots)
	s.False(guildSettings.Event(settings.MessageEdit).Bots)
	s.False(guildSettings.Event(settings.UserChange).Nicknames)
	s.True(guildSettings.Event(settings.MessageDelete).CachedOnly)
}

func (s *ModlogSuite) TestFlagRejectsEventItDoesNotApplyTo() {
	_, err := s.cog.runModlogCommand(s.ctx, guildID, subcommand("bots",
		stringOption("event", string(settings.RoleChange)),
		boolOption("enabled", true),
	))
	s.ErrorIs(err, errInvalidOption)

	_, err = s.cog.runModlogCommand(s.ctx, guildID, subcommand("bots", boolOption("enabled", true)))
	s.ErrorIs(err, errInvalidOption)
}

func (s *ModlogSuite) TestColourCommand() {
	_, err := s.cog.runModlogCommand(s.ctx, guildID, subcommand("colour",
		stringOption("event", string(settings.ChannelChange)),
		stringOption("colour", "#123456"),
	))
	s.Require().NoError(err)

	guildSettings, err := s.settings.Get(s.ctx, guildID)
	s.Require().NoError(err)
	s.Equal(0x123456, guildSettings.Colour(settings.ChannelChange, 0))

	_, err = s.cog.runModlogCommand(s.ctx, guildID, subcommand("colour",
		stringOption("event", string(settings.ChannelChange)),
		stringOption("colour", "default"),
	))
	s.Require().NoError(err)

	guildSettings, err = s.settings.Get(s.ctx, guildID)
	s.Require().NoError(err)
	s.Equal(settings.DefaultColour(settings.ChannelChange), guildSettings.Colour(settings.ChannelChange, 0))

	_, err = s.cog.runModlogCommand(s.ctx, guildID, subcommand("colour",
		stringOption("event", string(settings.ChannelChange)),
		stringOption("colour", "blue"),
	))
	s.ErrorIs(err, errInvalidOption)
}

func (s *ModlogSuite) TestEmojiCommand() {
	embed, err := s.cog.runModlogCommand(s.ctx, guildID, subcommand("emoji",
		stringOption("event", string(settings.UserJoin)),
		stringOption("emoji", "\U0001F44B"),
	))
	s.Require().NoError(err)
	s.Contains(embed.Description, "\U0001F44B")

	guildSettings, err := s.settings.Get(s.ctx, guildID)
	s.Require().NoError(err)
	s.Equal("\U0001F44B", guildSettings.Event(settings.UserJoin).Emoji)

	_, err = s.cog.runModlogCommand(s.ctx, guildID, subcommand("emoji",
		stringOption("event", string(settings.UserJoin)),
		stringOption("emoji", "default"),
	))
	s.Require().NoError(err)

	guildSettings, err = s.settings.Get(s.ctx, guildID)
	s.Require().NoError(err)
	s.Equal(settings.DefaultEvent(settings.UserJoin).Emoji, guildSettings.Event(settings.UserJoin).Emoji)
}

func (s *ModlogSuite) TestUnknownEventIsRejected() {
	_, err := s.cog.runModlogCommand(s.ctx, guildID, subcommand("toggle",
		stringOption("event", "everything"),
		boolOption("enabled", true),
	))

	s.ErrorIs(err, errInvalidOption)
}

func TestModlogCommandConfiguration(t *testing.T) {
	cog := &Cog{}

	command, ok := cog.getApplicationCommands()["modlog"]
	assert.True(t, ok)
	assert.Equal(t, int64(discordgo.PermissionManageServer), *command.CommandConfiguration.DefaultMemberPermissions)

	names := make([]string, 0, len(command.CommandConfiguration.Options))
	for _, option := range command.CommandConfiguration.Options {
		names = append(names, option.Name)
	}

	assert.Equal(t, []string{
		"status", "channel", "toggle", "embed", "ignore", "colour", "emoji",
		"bots", "nicknames", "cachedonly", "bulk", "bulkindividual",
	}, names)
	assert.Len(t, eventOption(true).Choices, len(settings.EventKinds))

	bots := command.CommandConfiguration.Options[7]
	assert.Equal(t, "event", bots.Options[0].Name)
	assert.Len(t, bots.Options[0].Choices, 4)

	bulk := command.CommandConfiguration.Options[10]
	assert.Len(t, bulk.Options, 1)
}

func TestParseColour(t *testing.T) {
	tests := []struct {
		value   string
		want    *int
		wantErr bool
	}{
		{value: "#1abc9c", want: intPtr(0x1abc9c)},
		{value: "FF0000", want: intPtr(0xff0000)},
		{value: "default"},
		{value: "#fff", wantErr: true},
		{value: "#zzzzzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseColour(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalidOption)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func intPtr(v int) *int {
	return &v
}

func TestCommandLine(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: "modlog",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			subcommand("channel", channelIDValue("123"), stringOption("event", "user_join")),
		},
	}

	assert.Equal(t, "/modlog channel channel:123 event:user_join", commandLine(data))
}
