package embeds

import (
	"fmt"
	"strings"

	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/bwmarrin/discordgo"
)

const (
	errorColour   = 0x992D22
	successColour = 0x2ECC71
	statusColour  = 0x3498DB
)

func ErrorMessageEmbed(msg string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ **Invalid usage**",
		Description: msg,
		Color:       errorColour,
	}
}

func UnexpectedErrorEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ **Something went wrong**",
		Description: "An unexpected error occurred, please try again later.",
		Color:       errorColour,
	}
}

func SettingUpdatedEmbed(msg string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✅ **Modlog updated**",
		Description: msg,
		Color:       successColour,
	}
}

// SettingsStatusEmbed lists where the guild logs to and the state of every
// event kind.
func SettingsStatusEmbed(guildSettings settings.GuildSettings) *discordgo.MessageEmbed {
	channel := "Not set"
	if guildSettings.ModlogChannel != "" {
		channel = "<#" + guildSettings.ModlogChannel + ">"
	}

	ignored := "None"
	if len(guildSettings.IgnoredChannels) > 0 {
		mentions := make([]string, 0, len(guildSettings.IgnoredChannels))
		for _, channelID := range guildSettings.IgnoredChannels {
			mentions = append(mentions, "<#"+channelID+">")
		}

		ignored = strings.Join(mentions, ", ")
	}

	var events strings.Builder

	for _, kind := range settings.EventKinds {
		event := guildSettings.Event(kind)

		state := "off"
		if event.Enabled {
			state = "on"
		}

		presentation := "text"
		if event.Embed {
			presentation = "embed"
		}

		line := fmt.Sprintf("%s `%s` %s, %s", event.Emoji, kind, state, presentation)
		if event.Channel != "" {
			line += " in <#" + event.Channel + ">"
		}

		events.WriteString(line + "\n")
	}

	return &discordgo.MessageEmbed{
		Title: "Modlog settings",
		Color: statusColour,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Modlog channel", Value: channel, Inline: true},
			{Name: "Ignored channels", Value: ignored, Inline: true},
			{Name: "Events", Value: events.String()},
		},
	}
}
