package diff

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/TeddyKahwaji/spice-modlog/pkg/funcs"
)

// Ref identifies a role, channel or user by id with its display forms.
type Ref struct {
	ID      string
	Name    string
	Mention string
}

// DiffRoleSet reports the roles a member lost, then the roles gained, each in
// the order they appear in the input.
func DiffRoleSet(before, after []Ref) []ChangeRecord {
	beforeIDs := funcs.SetOf(before, refID)
	afterIDs := funcs.SetOf(after, refID)

	var records []ChangeRecord

	for _, role := range before {
		if _, kept := afterIDs[role.ID]; kept {
			continue
		}

		records = append(records, ChangeRecord{
			Entity:         Member,
			Attribute:      AttrRoles,
			Label:          "Roles:",
			Op:             OpRemoved,
			SubjectID:      role.ID,
			Subject:        role.Name,
			SubjectMention: role.Mention,
			Before:         role.Name,
		})
	}

	for _, role := range after {
		if _, existed := beforeIDs[role.ID]; existed {
			continue
		}

		records = append(records, ChangeRecord{
			Entity:         Member,
			Attribute:      AttrRoles,
			Label:          "Roles:",
			Op:             OpAdded,
			SubjectID:      role.ID,
			Subject:        role.Name,
			SubjectMention: role.Mention,
			After:          role.Name,
		})
	}

	return records
}

// EmojiRef is an emoji keyed by its stable id. Name and Roles are payload.
type EmojiRef struct {
	ID      string
	Name    string
	Display string
	Roles   []Ref
}

// ClassifyEmojis splits an emoji collection change into removed, added, and
// changed emojis. An emoji that keeps its id but changes name is renamed; one
// whose allowed roles differ is restricted. Both can apply to the same emoji.
func ClassifyEmojis(before, after []EmojiRef) []ChangeRecord {
	beforeByID := funcs.SetOf(before, emojiID)
	afterByID := funcs.SetOf(after, emojiID)

	var removed, added, changed []ChangeRecord

	for _, old := range before {
		if _, ok := afterByID[old.ID]; !ok {
			removed = append(removed, emojiRecord(old, OpRemoved, AttrName, old.Name, ""))
		}
	}

	for _, current := range after {
		old, existed := beforeByID[current.ID]
		if !existed {
			added = append(added, emojiRecord(current, OpAdded, AttrName, "", current.Name))

			continue
		}

		if old.Name != current.Name {
			changed = append(changed, emojiRecord(current, OpRenamed, AttrName, old.Name, current.Name))
		}

		if !slices.Equal(sortedRoleIDs(old.Roles), sortedRoleIDs(current.Roles)) {
			changed = append(changed, emojiRecord(current, OpRestricted, AttrEmojiRoles, renderRoleSet(old.Roles), renderRoleSet(current.Roles)))
		}
	}

	return slices.Concat(removed, added, changed)
}

func refID(r Ref) string { return r.ID }

func emojiID(e EmojiRef) string { return e.ID }

func emojiRecord(e EmojiRef, op Op, attribute, before, after string) ChangeRecord {
	return ChangeRecord{
		Entity:         Emoji,
		Attribute:      attribute,
		Label:          attribute,
		Op:             op,
		SubjectID:      e.ID,
		Subject:        e.Name,
		SubjectMention: e.Display,
		Before:         before,
		After:          after,
	}
}

// sortedRoleIDs is the identity of a restriction set. Role names change
// without the restriction changing.
func sortedRoleIDs(roles []Ref) []string {
	ids := funcs.Map(roles, refID)
	slices.Sort(ids)

	return ids
}

// renderRoleSet renders roles as "name (id)" sorted by id so that order in the
// payload never registers as a change.
func renderRoleSet(roles []Ref) string {
	sorted := slices.Clone(roles)
	slices.SortFunc(sorted, func(a, b Ref) int {
		return strings.Compare(a.ID, b.ID)
	})

	parts := make([]string, 0, len(sorted))
	for _, role := range sorted {
		parts = append(parts, fmt.Sprintf("%s (%s)", role.Name, role.ID))
	}

	return strings.Join(parts, ", ")
}

// VoiceRef is the slice of a voice state the modlog watches.
type VoiceRef struct {
	Channel Ref
	Deaf    bool
	Mute    bool
}

// DiffVoiceState reports server deafen, server mute, and channel moves, in that
// order. Channel values are rendered as "`name` (id)" and empty when the
// member is not connected.
func DiffVoiceState(before, after VoiceRef) []ChangeRecord {
	var records []ChangeRecord

	if before.Deaf != after.Deaf {
		records = append(records, voiceRecord(AttrDeaf, "Deafened:", strconv.FormatBool(before.Deaf), strconv.FormatBool(after.Deaf)))
	}

	if before.Mute != after.Mute {
		records = append(records, voiceRecord(AttrMute, "Muted:", strconv.FormatBool(before.Mute), strconv.FormatBool(after.Mute)))
	}

	if before.Channel.ID != after.Channel.ID {
		rec := voiceRecord(AttrVoiceChannel, "Channel:", renderChannel(before.Channel), renderChannel(after.Channel))
		rec.SubjectID = after.Channel.ID
		rec.Subject = after.Channel.Name
		rec.SubjectMention = after.Channel.Mention
		records = append(records, rec)
	}

	return records
}

func voiceRecord(attribute, label, before, after string) ChangeRecord {
	return ChangeRecord{
		Entity:    VoiceState,
		Attribute: attribute,
		Label:     label,
		Op:        OpModified,
		Before:    before,
		After:     after,
	}
}

func renderChannel(ch Ref) string {
	if ch.ID == "" {
		return ""
	}

	return fmt.Sprintf("`%s` (%s)", ch.Name, ch.ID)
}
