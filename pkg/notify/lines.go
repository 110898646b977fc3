package notify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/TeddyKahwaji/spice-modlog/pkg/diff"
)

const ellipsis = "..."

// Line renders a single change record as one line of text.
func Line(r diff.ChangeRecord) string {
	subject := subjectOf(r)

	switch r.Op {
	case diff.OpAdded:
		return "+ " + subject
	case diff.OpRemoved:
		return "- " + subject
	case diff.OpRenamed:
		return fmt.Sprintf("%s renamed from %s to %s", subject, r.Before, r.After)
	case diff.OpRestricted:
		return fmt.Sprintf("%s roles %s -> %s", subject, orNone(r.Before), orNone(r.After))
	case diff.OpReset:
		return fmt.Sprintf("%s %s %s -> reset", subject, r.Attribute, r.Before)
	}

	if r.Subject != "" || r.SubjectMention != "" {
		return fmt.Sprintf("%s %s %s -> %s", subject, r.Label, r.Before, r.After)
	}

	return fmt.Sprintf("%s %s -> %s", r.Label, r.Before, r.After)
}

func subjectOf(r diff.ChangeRecord) string {
	switch {
	case r.SubjectMention != "":
		return r.SubjectMention
	case r.Subject != "":
		return r.Subject
	case r.After != "":
		return r.After
	default:
		return r.Before
	}
}

func orNone(value string) string {
	if value == "" {
		return "None"
	}

	return value
}

func sectionText(s Section) string {
	lines := make([]string, 0, len(s.Records))
	for _, r := range s.Records {
		lines = append(lines, Line(r))
	}

	return strings.Join(lines, "\n")
}

// Truncate shortens s to at most limit runes, marking the cut with an
// ellipsis. The kept text is always a prefix of s.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	if limit <= len(ellipsis) {
		return string([]rune(s)[:limit])
	}

	return string([]rune(s)[:limit-len(ellipsis)]) + ellipsis
}

// Pagify splits text into pages of at most size runes, preferring to break
// after a newline. No content is lost.
func Pagify(text string, size int) []string {
	var pages []string

	runes := []rune(text)
	for len(runes) > size {
		cut := size

		for i := size - 1; i > size/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}

		pages = append(pages, string(runes[:cut]))
		runes = runes[cut:]
	}

	if len(runes) > 0 {
		pages = append(pages, string(runes))
	}

	return pages
}
