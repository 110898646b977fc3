// Package diff compares two snapshots of the same guild entity and reports the
// watched attributes that changed between them.
package diff

import "maps"

type EntityKind string

const (
	Channel    EntityKind = "channel"
	Role       EntityKind = "role"
	Member     EntityKind = "member"
	Guild      EntityKind = "guild"
	Emoji      EntityKind = "emoji"
	VoiceState EntityKind = "voice_state"
)

type Op string

const (
	OpModified   Op = "modified"
	OpAdded      Op = "added"
	OpRemoved    Op = "removed"
	OpRenamed    Op = "renamed"
	OpRestricted Op = "restricted"
	OpReset      Op = "reset"
)

// noneValue stands in for empty attribute values when rendered.
const noneValue = "None"

// ChangeRecord describes one attribute that differs between two snapshots.
// Records are only ever produced with Before != After.
type ChangeRecord struct {
	Entity    EntityKind
	Attribute string
	Label     string
	Op        Op

	// Subject is set by the structured diffs: the role or member owning a
	// permission overwrite, the role gained or lost by a member, the emoji.
	SubjectID      string
	Subject        string
	SubjectMention string

	Before string
	After  string
}

// Attribute is a watched attribute key with the label used to render it.
type Attribute struct {
	Key   string
	Label string
}

// Snapshot is an immutable point-in-time view of an entity's stringified
// attributes.
type Snapshot struct {
	Kind   EntityKind
	ID     string
	values map[string]string
}

func NewSnapshot(kind EntityKind, id string, values map[string]string) Snapshot {
	return Snapshot{
		Kind:   kind,
		ID:     id,
		values: maps.Clone(values),
	}
}

func (s Snapshot) Value(key string) string {
	return s.values[key]
}

func (s Snapshot) IsZero() bool {
	return s.ID == "" && len(s.values) == 0
}

// Diff walks the watched attributes in order and emits a record for every one
// whose value differs between before and after. Unwatched attributes are
// ignored even when they differ.
func Diff(kind EntityKind, before, after Snapshot, watched []Attribute) []ChangeRecord {
	var records []ChangeRecord

	for _, attr := range watched {
		beforeValue := before.Value(attr.Key)
		afterValue := after.Value(attr.Key)

		if beforeValue == afterValue {
			continue
		}

		records = append(records, ChangeRecord{
			Entity:    kind,
			Attribute: attr.Key,
			Label:     attr.Label,
			Op:        OpModified,
			Before:    orNone(beforeValue),
			After:     orNone(afterValue),
		})
	}

	return records
}

func orNone(value string) string {
	if value == "" {
		return noneValue
	}

	return value
}
