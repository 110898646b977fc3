package util

import (
	"fmt"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
)

func DeleteMessageAfterTime(session *discordgo.Session, channelID string, messageID string, timeDelay time.Duration) error {
	message, err := session.ChannelMessage(channelID, messageID)
	if err != nil {
		return fmt.Errorf("getting channel message: %w", err)
	}

	_ = time.AfterFunc(timeDelay, func() {
		_ = session.ChannelMessageDelete(channelID, message.ID)
	})

	return nil
}

func GetGuild(state *discordgo.State, guildID string) (*discordgo.Guild, error) {
	guild, err := state.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("getting guild: %w", err)
	}

	return guild, nil
}

// GuildPermissions computes a member's guild-wide permissions from the
// @everyone role and the member's roles. Channel overwrites are not applied.
func GuildPermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil || member.User == nil {
		return 0
	}

	if guild.OwnerID == member.User.ID {
		return discordgo.PermissionAll
	}

	var permissions int64

	for _, role := range guild.Roles {
		if role.ID == guild.ID || slices.Contains(member.Roles, role.ID) {
			permissions |= role.Permissions
		}
	}

	if permissions&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}

	return permissions
}

// HasPermission reports whether every bit of permission is set in permissions.
func HasPermission(permissions, permission int64) bool {
	return permissions&permission == permission
}

type sendMessageOption struct {
	deletion      bool
	deletionTimer time.Duration
	channelID     string
}

type SendMessageOpt func(*sendMessageOption)

type FlagWrapper struct {
	Flags discordgo.MessageFlags
}
type MessageData struct {
	Embeds      *discordgo.MessageEmbed
	FlagWrapper *FlagWrapper
	Type        discordgo.InteractionResponseType
}

func WithDeletion(deletionTimer time.Duration, channelID string) SendMessageOpt {
	return func(opt *sendMessageOption) {
		opt.deletionTimer = deletionTimer
		opt.deletion = true
		opt.channelID = channelID
	}
}

func SendMessage(session *discordgo.Session, interaction *discordgo.Interaction, isFollowUp bool, msgData MessageData, opts ...SendMessageOpt) error {
	sendMessageOptions := sendMessageOption{}
	for _, opt := range opts {
		opt(&sendMessageOptions)
	}

	if isFollowUp {
		params := &discordgo.WebhookParams{
			Embeds: []*discordgo.MessageEmbed{msgData.Embeds},
		}

		if msgData.FlagWrapper != nil {
			params.Flags = msgData.FlagWrapper.Flags
		}

		_, err := session.FollowupMessageCreate(interaction, false, params)
		if err != nil {
			return fmt.Errorf("sending follow up message: %w", err)
		}
	} else {
		params := &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{msgData.Embeds},
		}

		if msgData.FlagWrapper != nil {
			params.Flags = msgData.FlagWrapper.Flags
		}

		err := session.InteractionRespond(interaction, &discordgo.InteractionResponse{
			Type: msgData.Type,
			Data: params,
		})
		if err != nil {
			return fmt.Errorf("sending interaction response: %w", err)
		}
	}

	if sendMessageOptions.deletion {
		message, err := session.InteractionResponse(interaction)
		if err != nil {
			return fmt.Errorf("retrieving messageID from interaction response: %w", err)
		}
		if err := DeleteMessageAfterTime(session, sendMessageOptions.channelID, message.ID, sendMessageOptions.deletionTimer); err != nil {
			return fmt.Errorf("deleting message: %w", err)
		}
	}

	return nil
}
