// Package notify renders a moderation log notification as both a plain text
// message and an embed, within the limits of the delivery surface.
package notify

import (
	"time"

	"github.com/TeddyKahwaji/spice-modlog/pkg/auditlog"
	"github.com/TeddyKahwaji/spice-modlog/pkg/diff"
	"github.com/bwmarrin/discordgo"
)

type Presentation int

const (
	Plain Presentation = iota
	Embed
)

// Delivery surface limits, counted in runes.
const (
	MaxContentLength     = 2000
	MaxFields            = 25
	MaxFieldValueLength  = 1024
	MaxFieldNameLength   = 256
	MaxTitleLength       = 256
	MaxDescriptionLength = 4096
	MaxEmbedLength       = 6000

	// PageSize is the size of each field a long text block is split into.
	PageSize = 1000
	// MaxPages caps how many fields a single text block may occupy.
	MaxPages = 5
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Section groups structured change records under one heading. Its rendered
// lines are paginated into same-named fields.
type Section struct {
	Name    string
	Records []diff.ChangeRecord
}

// Block is free text paginated into same-named fields, such as deleted
// message content.
type Block struct {
	Name string
	Text string
}

// Notification is everything known about one logged event. Format only reads
// it, so the same Notification always renders the same output.
type Notification struct {
	Kind   string
	Time   time.Time
	Emoji  string
	Colour int

	// Headline is the one-line summary leading the plain text message.
	Headline    string
	Title       string
	Description string

	AuthorName string
	AuthorIcon string
	Thumbnail  string
	Image      string
	Footer     string

	Fields   []Field
	Records  []diff.ChangeRecord
	Sections []Section
	Blocks   []Block

	Attribution auditlog.Attribution
}

type Rendered struct {
	PlainText    string
	Embed        *discordgo.MessageEmbed
	Presentation Presentation
}

// Format renders n both ways. p only selects which one MessageSend delivers.
func Format(n Notification, p Presentation) Rendered {
	return Rendered{
		PlainText:    renderPlain(n),
		Embed:        renderEmbed(n),
		Presentation: p,
	}
}

// MessageSend builds the message for the selected presentation with every
// mention disabled.
func (r Rendered) MessageSend() *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}

	if r.Presentation == Embed {
		send.Embeds = []*discordgo.MessageEmbed{r.Embed}
	} else {
		send.Content = r.PlainText
	}

	return send
}
