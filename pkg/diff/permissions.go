package diff

import "strconv"

type Permission struct {
	Bit  int64
	Name string
}

// Permissions lists the permission bits in their API order.
var Permissions = []Permission{
	{Bit: 1 << 0, Name: "create_instant_invite"},
	{Bit: 1 << 1, Name: "kick_members"},
	{Bit: 1 << 2, Name: "ban_members"},
	{Bit: 1 << 3, Name: "administrator"},
	{Bit: 1 << 4, Name: "manage_channels"},
	{Bit: 1 << 5, Name: "manage_guild"},
	{Bit: 1 << 6, Name: "add_reactions"},
	{Bit: 1 << 7, Name: "view_audit_log"},
	{Bit: 1 << 8, Name: "priority_speaker"},
	{Bit: 1 << 9, Name: "stream"},
	{Bit: 1 << 10, Name: "view_channel"},
	{Bit: 1 << 11, Name: "send_messages"},
	{Bit: 1 << 12, Name: "send_tts_messages"},
	{Bit: 1 << 13, Name: "manage_messages"},
	{Bit: 1 << 14, Name: "embed_links"},
	{Bit: 1 << 15, Name: "attach_files"},
	{Bit: 1 << 16, Name: "read_message_history"},
	{Bit: 1 << 17, Name: "mention_everyone"},
	{Bit: 1 << 18, Name: "use_external_emojis"},
	{Bit: 1 << 19, Name: "view_guild_insights"},
	{Bit: 1 << 20, Name: "connect"},
	{Bit: 1 << 21, Name: "speak"},
	{Bit: 1 << 22, Name: "mute_members"},
	{Bit: 1 << 23, Name: "deafen_members"},
	{Bit: 1 << 24, Name: "move_members"},
	{Bit: 1 << 25, Name: "use_voice_activation"},
	{Bit: 1 << 26, Name: "change_nickname"},
	{Bit: 1 << 27, Name: "manage_nicknames"},
	{Bit: 1 << 28, Name: "manage_roles"},
	{Bit: 1 << 29, Name: "manage_webhooks"},
	{Bit: 1 << 30, Name: "manage_emojis"},
	{Bit: 1 << 31, Name: "use_application_commands"},
	{Bit: 1 << 32, Name: "request_to_speak"},
	{Bit: 1 << 33, Name: "manage_events"},
	{Bit: 1 << 34, Name: "manage_threads"},
	{Bit: 1 << 35, Name: "create_public_threads"},
	{Bit: 1 << 36, Name: "create_private_threads"},
	{Bit: 1 << 37, Name: "use_external_stickers"},
	{Bit: 1 << 38, Name: "send_messages_in_threads"},
	{Bit: 1 << 39, Name: "use_embedded_activities"},
	{Bit: 1 << 40, Name: "moderate_members"},
}

// DiffPermissions reports every permission bit that flipped between two role
// permission sets.
func DiffPermissions(before, after int64) []ChangeRecord {
	var records []ChangeRecord

	for _, perm := range Permissions {
		had := before&perm.Bit != 0
		has := after&perm.Bit != 0

		if had == has {
			continue
		}

		records = append(records, ChangeRecord{
			Entity:    Role,
			Attribute: perm.Name,
			Label:     perm.Name,
			Op:        OpModified,
			Before:    strconv.FormatBool(had),
			After:     strconv.FormatBool(has),
		})
	}

	return records
}
