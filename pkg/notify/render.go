package notify

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// renderPlain leads with the timestamp, action and actor so tail truncation
// never removes them.
func renderPlain(n Notification) string {
	var b strings.Builder

	b.WriteString(leadingLine(n))

	if n.Attribution.Found && n.Attribution.Reason != "" {
		b.WriteString("\nReason: " + n.Attribution.Reason)
	}

	if n.Description != "" {
		b.WriteString("\n" + n.Description)
	}

	for _, f := range n.Fields {
		b.WriteString(fmt.Sprintf("\n%s: %s", f.Name, f.Value))
	}

	for _, r := range n.Records {
		b.WriteString("\n" + Line(r))
	}

	for _, s := range n.Sections {
		if len(s.Records) == 0 {
			continue
		}

		b.WriteString(fmt.Sprintf("\n%s:\n%s", s.Name, sectionText(s)))
	}

	for _, block := range n.Blocks {
		if block.Text == "" {
			continue
		}

		b.WriteString(fmt.Sprintf("\n%s:\n%s", block.Name, block.Text))
	}

	return Truncate(b.String(), MaxContentLength)
}

func leadingLine(n Notification) string {
	parts := make([]string, 0, 4)

	if !n.Time.IsZero() {
		parts = append(parts, fmt.Sprintf("<t:%d:F>", n.Time.Unix()))
	}

	if n.Emoji != "" {
		parts = append(parts, n.Emoji)
	}

	if n.Headline != "" {
		parts = append(parts, n.Headline)
	}

	if n.Attribution.Found {
		parts = append(parts, fmt.Sprintf("by %s (%s)", n.Attribution.Actor, n.Attribution.ActorID))
	}

	return strings.Join(parts, " ")
}

func renderEmbed(n Notification) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       Truncate(n.Title, MaxTitleLength),
		Description: Truncate(n.Description, MaxDescriptionLength),
		Color:       n.Colour,
	}

	if !n.Time.IsZero() {
		embed.Timestamp = n.Time.UTC().Format(time.RFC3339)
	}

	if n.AuthorName != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    Truncate(n.AuthorName, MaxFieldNameLength),
			IconURL: n.AuthorIcon,
		}
	}

	if n.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: n.Thumbnail}
	}

	if n.Image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: n.Image}
	}

	if n.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: Truncate(n.Footer, 2048)}
	}

	embed.Fields = fitFields(embed, embedFields(n))

	if over := embedLength(embed) - MaxEmbedLength; over > 0 {
		keep := utf8.RuneCountInString(embed.Description) - over
		embed.Description = Truncate(embed.Description, max(keep, 0))
	}

	return embed
}

// embedFields orders fields by importance: caller fields, attribution, plain
// changes, then paginated sections and blocks. Trailing fields are the first
// dropped when the embed is over its limits.
func embedFields(n Notification) []*discordgo.MessageEmbedField {
	var fields []*discordgo.MessageEmbedField

	add := func(name, value string, inline bool) {
		fields = append(fields, field(name, value, inline))
	}

	for _, f := range n.Fields {
		add(f.Name, f.Value, f.Inline)
	}

	if n.Attribution.Found {
		add("Updated by", fmt.Sprintf("%s (%s)", n.Attribution.Actor, n.Attribution.ActorMention()), false)

		if n.Attribution.Reason != "" {
			add("Reason", n.Attribution.Reason, false)
		}
	}

	for _, r := range n.Records {
		add("Before "+r.Label, r.Before, true)
		add("After "+r.Label, r.After, true)
	}

	for _, s := range n.Sections {
		if len(s.Records) == 0 {
			continue
		}

		for _, page := range pages(sectionText(s)) {
			add(s.Name, page, false)
		}
	}

	for _, block := range n.Blocks {
		for _, page := range pages(block.Text) {
			add(block.Name, page, false)
		}
	}

	return fields
}

func pages(text string) []string {
	p := Pagify(text, PageSize)
	if len(p) > MaxPages {
		p = p[:MaxPages]
	}

	return p
}

func field(name, value string, inline bool) *discordgo.MessageEmbedField {
	if name == "" {
		name = "\u200b"
	}

	if value == "" {
		value = "None"
	}

	return &discordgo.MessageEmbedField{
		Name:   Truncate(name, MaxFieldNameLength),
		Value:  Truncate(value, MaxFieldValueLength),
		Inline: inline,
	}
}

func fitFields(embed *discordgo.MessageEmbed, fields []*discordgo.MessageEmbedField) []*discordgo.MessageEmbedField {
	if len(fields) > MaxFields {
		fields = fields[:MaxFields]
	}

	budget := MaxEmbedLength - embedLength(embed)

	for i, f := range fields {
		budget -= utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
		if budget < 0 {
			return fields[:i]
		}
	}

	return fields
}

func embedLength(embed *discordgo.MessageEmbed) int {
	total := utf8.RuneCountInString(embed.Title) + utf8.RuneCountInString(embed.Description)

	if embed.Author != nil {
		total += utf8.RuneCountInString(embed.Author.Name)
	}

	if embed.Footer != nil {
		total += utf8.RuneCountInString(embed.Footer.Text)
	}

	for _, f := range embed.Fields {
		total += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}

	return total
}
