package modlog

import (
	"testing"
	"time"

	"github.com/TeddyKahwaji/spice-modlog/internal/invites"
	"github.com/TeddyKahwaji/spice-modlog/pkg/auditlog"
	"github.com/TeddyKahwaji/spice-modlog/pkg/diff"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelUpdateAction(t *testing.T) {
	rename := []diff.ChangeRecord{{Attribute: diff.AttrName, Op: diff.OpModified}}

	tests := []struct {
		name       string
		records    []diff.ChangeRecord
		overwrites []diff.ChangeRecord
		want       discordgo.AuditLogAction
	}{
		{"attribute change", rename, nil, discordgo.AuditLogActionChannelUpdate},
		{"attribute and overwrite change", rename, []diff.ChangeRecord{{Op: diff.OpAdded}}, discordgo.AuditLogActionChannelUpdate},
		{"overwrite added", nil, []diff.ChangeRecord{{Op: diff.OpAdded}}, discordgo.AuditLogActionChannelOverwriteCreate},
		{"overwrite removed", nil, []diff.ChangeRecord{{Op: diff.OpRemoved}}, discordgo.AuditLogActionChannelOverwriteDelete},
		{"overwrite changed", nil, []diff.ChangeRecord{{Op: diff.OpModified}}, discordgo.AuditLogActionChannelOverwriteUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, channelUpdateAction(tt.records, tt.overwrites))
		})
	}
}

func TestVoiceQuery(t *testing.T) {
	move := diff.ChangeRecord{Attribute: diff.AttrVoiceChannel, SubjectID: "b", Before: "`a` (a)", After: "`b` (b)"}

	q, ok := voiceQuery("user", []diff.ChangeRecord{move})
	require.True(t, ok)
	assert.Equal(t, discordgo.AuditLogActionMemberMove, q.Action)
	assert.True(t, q.Match(&discordgo.AuditLogEntry{Options: &discordgo.AuditLogOptions{ChannelID: "b"}}))
	assert.False(t, q.Match(&discordgo.AuditLogEntry{Options: &discordgo.AuditLogOptions{ChannelID: "a"}}))

	_, ok = voiceQuery("user", []diff.ChangeRecord{{Attribute: diff.AttrVoiceChannel, After: "`b` (b)"}})
	assert.False(t, ok)

	q, ok = voiceQuery("user", []diff.ChangeRecord{{Attribute: diff.AttrVoiceChannel, Before: "`a` (a)"}})
	require.True(t, ok)
	assert.Equal(t, discordgo.AuditLogActionMemberDisconnect, q.Action)

	q, ok = voiceQuery("user", []diff.ChangeRecord{{Attribute: diff.AttrDeaf}})
	require.True(t, ok)
	assert.Equal(t, "user", q.TargetID)
	assert.Equal(t, discordgo.AuditLogChangeKeyDeaf, q.RequireKey)
}

func TestEmojiAction(t *testing.T) {
	action, ok := emojiAction(diff.ChangeRecord{Op: diff.OpRenamed})
	assert.True(t, ok)
	assert.Equal(t, discordgo.AuditLogActionEmojiUpdate, action)

	_, ok = emojiAction(diff.ChangeRecord{Op: diff.OpRestricted})
	assert.False(t, ok)
}

func TestMergeAttributions(t *testing.T) {
	merged := mergeAttributions([]auditlog.Attribution{
		{ActorID: "1", Actor: "first", Reason: "cleanup", Found: true},
		{ActorID: "2", Actor: "second", Found: true},
	})

	assert.True(t, merged.Found)
	assert.Equal(t, "1", merged.ActorID)
	assert.Equal(t, "first, second", merged.Actor)
	assert.Equal(t, "cleanup", merged.Reason)

	assert.False(t, mergeAttributions(nil).Found)
}

func TestInviteFields(t *testing.T) {
	record := invites.InviteRecord{Code: "abc", Uses: 2, MaxAge: 3600, Temporary: true}

	fields := inviteFields(record, false)
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.Name)
	}

	assert.Equal(t, []string{"Code", "Max Age", "Temporary"}, names)
	assert.Equal(t, "1h0m0s", fields[1].Value)

	assert.Len(t, inviteFields(record, true), 4)
}

func TestAccountAge(t *testing.T) {
	assert.Equal(t, "Unknown", accountAge("not-a-snowflake", time.Now()))
}
