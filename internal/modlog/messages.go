package modlog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/TeddyKahwaji/spice-modlog/pkg/auditlog"
	"github.com/TeddyKahwaji/spice-modlog/pkg/notify"
	"github.com/bwmarrin/discordgo"
)

// cachedMessage is what the modlog keeps of a message so it can still report
// it once deleted or edited.
type cachedMessage struct {
	ID          string
	ChannelID   string
	GuildID     string
	AuthorID    string
	Author      string
	AuthorIcon  string
	Bot         bool
	Content     string
	Attachments []string
	CreatedAt   time.Time
}

func newCachedMessage(message *discordgo.Message) cachedMessage {
	cached := cachedMessage{
		ID:        message.ID,
		ChannelID: message.ChannelID,
		GuildID:   message.GuildID,
		Content:   message.Content,
		CreatedAt: message.Timestamp,
	}

	if message.Author != nil {
		cached.AuthorID = message.Author.ID
		cached.Author = message.Author.Username
		cached.AuthorIcon = message.Author.AvatarURL("")
		cached.Bot = message.Author.Bot
	}

	for _, attachment := range message.Attachments {
		if attachment != nil {
			cached.Attachments = append(cached.Attachments, attachment.Filename)
		}
	}

	return cached
}

func (m cachedMessage) jumpURL() string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", m.GuildID, m.ChannelID, m.ID)
}

// lookupMessage prefers the modlog cache and falls back to the copy the
// session state kept.
func (c *Cog) lookupMessage(messageID string, fallback *discordgo.Message) (cachedMessage, bool) {
	if cached, ok := c.messages.Get(messageID); ok {
		return cached, true
	}

	if fallback != nil && fallback.Author != nil {
		return newCachedMessage(fallback), true
	}

	return cachedMessage{}, false
}

func (c *Cog) messageCreate(_ *discordgo.Session, message *discordgo.MessageCreate) {
	if message.Message == nil || message.GuildID == "" {
		return
	}

	c.messages.Add(message.ID, newCachedMessage(message.Message))
}

func (c *Cog) messageUpdate(_ *discordgo.Session, update *discordgo.MessageUpdate) {
	if update.Message == nil || update.GuildID == "" {
		return
	}

	defer c.recoverHandler(settings.MessageEdit, update.GuildID)

	before, ok := c.lookupMessage(update.ID, update.BeforeUpdate)
	if !ok {
		if update.Author != nil {
			c.messages.Add(update.ID, newCachedMessage(update.Message))
		}

		return
	}

	after := before
	after.Content = update.Content
	c.messages.Add(update.ID, after)

	e, ok := c.begin(settings.MessageEdit, update.GuildID)
	if !ok {
		return
	}

	if before.Bot && !e.settings.Bots {
		c.skip(e, skipBot)
		return
	}

	if before.Content == after.Content {
		c.skip(e, skipNothing)
		return
	}

	if c.ignored(e, update.ChannelID) {
		return
	}

	c.deliver(e, messageEditNotification(before, after))
}

func messageEditNotification(before, after cachedMessage) notify.Notification {
	return notify.Notification{
		Headline: fmt.Sprintf("**%s** (`%s`) edited a message in <#%s>", before.Author, before.AuthorID, before.ChannelID),
		Time:     before.CreatedAt,
		// The embed leads with the author and the original content.
		Description: fmt.Sprintf("<@%s>: %s", before.AuthorID, before.Content),
		AuthorName:  fmt.Sprintf("%s (%s) - Edited Message", before.Author, before.AuthorID),
		AuthorIcon:  before.AuthorIcon,
		Fields: []notify.Field{
			{Name: "After Message", Value: fmt.Sprintf("[Click to see new message](%s)", after.jumpURL()), Inline: true},
			{Name: "Channel", Value: "<#" + before.ChannelID + ">", Inline: true},
		},
		Blocks: []notify.Block{
			{Name: "After", Text: after.Content},
		},
	}
}

func (c *Cog) messageDelete(_ *discordgo.Session, deleted *discordgo.MessageDelete) {
	if deleted.Message == nil || deleted.GuildID == "" {
		return
	}

	defer c.recoverHandler(settings.MessageDelete, deleted.GuildID)

	message, cached := c.lookupMessage(deleted.ID, deleted.BeforeDelete)
	c.messages.Remove(deleted.ID)

	e, ok := c.begin(settings.MessageDelete, deleted.GuildID)
	if !ok {
		return
	}

	if c.ignored(e, deleted.ChannelID) {
		return
	}

	if !cached {
		if e.settings.CachedOnly {
			c.skip(e, skipUncached)
			return
		}

		c.deliver(e, unknownMessageNotification(deleted.ID, deleted.ChannelID))

		return
	}

	if !c.reportableMessage(e, message) {
		return
	}

	attribution := c.correlate(e, auditlog.Query{
		TargetID: message.AuthorID,
		Action:   discordgo.AuditLogActionMessageDelete,
		Limit:    2,
		Match:    auditlog.InChannel(message.ChannelID),
	})

	c.deliver(e, messageDeleteNotification(message, attribution))
}

func (c *Cog) reportableMessage(e *event, message cachedMessage) bool {
	if message.Bot && !e.settings.Bots {
		c.skip(e, skipBot)
		return false
	}

	if message.Content == "" && len(message.Attachments) == 0 {
		c.skip(e, skipEmptyMessage)
		return false
	}

	return true
}

func unknownMessageNotification(messageID, channelID string) notify.Notification {
	return notify.Notification{
		Headline:    fmt.Sprintf("Unknown message deleted in <#%s>", channelID),
		Title:       "Unknown Message Deleted",
		Description: "*Message's content unknown.*",
		Fields: []notify.Field{
			{Name: "Channel", Value: "<#" + channelID + ">", Inline: true},
			{Name: "ID", Value: messageID, Inline: true},
		},
	}
}

func messageDeleteNotification(message cachedMessage, attribution auditlog.Attribution) notify.Notification {
	n := notify.Notification{
		Headline:   fmt.Sprintf("Message by **%s** (`%s`) deleted in <#%s>", message.Author, message.AuthorID, message.ChannelID),
		AuthorName: fmt.Sprintf("%s (%s) - Deleted Message", message.Author, message.AuthorID),
		AuthorIcon: message.AuthorIcon,
		Fields: []notify.Field{
			{Name: "Channel", Value: "<#" + message.ChannelID + ">", Inline: true},
			{Name: "ID", Value: message.ID, Inline: true},
		},
		Blocks: []notify.Block{
			{Name: "Message", Text: message.Content},
		},
		Attribution: attribution,
	}

	if len(message.Attachments) > 0 {
		n.Fields = append(n.Fields, notify.Field{Name: "Attachments", Value: strings.Join(message.Attachments, "\n")})
	}

	return n
}

// messageDeleteBulk reports a purge, optionally followed by one notification
// per cached message. Those follow-ups are not attributed.
func (c *Cog) messageDeleteBulk(_ *discordgo.Session, bulk *discordgo.MessageDeleteBulk) {
	if bulk.GuildID == "" {
		return
	}

	defer c.recoverHandler(settings.MessageDelete, bulk.GuildID)

	messages := make([]cachedMessage, 0, len(bulk.Messages))
	for _, messageID := range bulk.Messages {
		if message, ok := c.messages.Get(messageID); ok {
			messages = append(messages, message)
		}

		c.messages.Remove(messageID)
	}

	e, ok := c.begin(settings.MessageDelete, bulk.GuildID)
	if !ok {
		return
	}

	if !e.settings.BulkEnabled {
		c.skip(e, skipDisabled)
		return
	}

	if c.ignored(e, bulk.ChannelID) {
		return
	}

	c.deliver(e, notify.Notification{
		Headline: fmt.Sprintf("Bulk message delete in <#%s>", bulk.ChannelID),
		Title:    "Bulk Message Delete",
		Fields: []notify.Field{
			{Name: "Channel", Value: "<#" + bulk.ChannelID + ">", Inline: true},
			{Name: "# of Messages Deleted", Value: strconv.Itoa(len(bulk.Messages)), Inline: true},
		},
	})

	if !e.settings.BulkIndividual {
		return
	}

	for _, message := range messages {
		if c.reportableMessage(e, message) {
			c.deliver(e, messageDeleteNotification(message, auditlog.Attribution{}))
		}
	}
}
