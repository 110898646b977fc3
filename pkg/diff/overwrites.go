package diff

import "github.com/TeddyKahwaji/spice-modlog/pkg/funcs"

const (
	stateAllow   = "allow"
	stateDeny    = "deny"
	stateInherit = "inherit"
)

// Overwrite is a channel permission overwrite for one role or member.
type Overwrite struct {
	SubjectID      string
	Subject        string
	SubjectMention string
	Allow          int64
	Deny           int64
}

func (o Overwrite) state(bit int64) string {
	switch {
	case o.Allow&bit != 0:
		return stateAllow
	case o.Deny&bit != 0:
		return stateDeny
	default:
		return stateInherit
	}
}

func (o Overwrite) record(op Op, attribute, before, after string) ChangeRecord {
	return ChangeRecord{
		Entity:         Channel,
		Attribute:      attribute,
		Label:          attribute,
		Op:             op,
		SubjectID:      o.SubjectID,
		Subject:        o.Subject,
		SubjectMention: o.SubjectMention,
		Before:         before,
		After:          after,
	}
}

// DiffOverwrites compares two overwrite sets subject by subject. Removed
// subjects report one reset per explicitly set permission, added subjects one
// record per explicitly set permission, and retained subjects one record per
// permission whose tri-state changed.
func DiffOverwrites(before, after []Overwrite) []ChangeRecord {
	subject := func(o Overwrite) string { return o.SubjectID }
	beforeBySubject := funcs.SetOf(before, subject)
	afterBySubject := funcs.SetOf(after, subject)

	var records []ChangeRecord

	for _, old := range before {
		current, kept := afterBySubject[old.SubjectID]
		if !kept {
			records = append(records, old.record(OpRemoved, AttrOverwrite, AttrOverwrite, ""))

			for _, perm := range Permissions {
				if state := old.state(perm.Bit); state != stateInherit {
					records = append(records, old.record(OpReset, perm.Name, state, stateInherit))
				}
			}

			continue
		}

		for _, perm := range Permissions {
			was, is := old.state(perm.Bit), current.state(perm.Bit)
			if was != is {
				records = append(records, current.record(OpModified, perm.Name, was, is))
			}
		}
	}

	for _, added := range after {
		if _, existed := beforeBySubject[added.SubjectID]; existed {
			continue
		}

		records = append(records, added.record(OpAdded, AttrOverwrite, "", AttrOverwrite))

		for _, perm := range Permissions {
			if state := added.state(perm.Bit); state != stateInherit {
				records = append(records, added.record(OpModified, perm.Name, stateInherit, state))
			}
		}
	}

	return records
}
