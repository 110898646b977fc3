package invites

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	fs "cloud.google.com/go/firestore"
	"github.com/TeddyKahwaji/spice-modlog/internal/firebase"
	"github.com/bwmarrin/discordgo"
)

const (
	invitesCollection = "ModlogInvites"
	invitesField      = "invites"
)

type InviteRecord struct {
	Code      string    `firestore:"code"`
	Uses      int       `firestore:"uses"`
	MaxUses   int       `firestore:"max_uses"`
	MaxAge    int       `firestore:"max_age"`
	Temporary bool      `firestore:"temporary"`
	CreatedAt time.Time `firestore:"created_at"`
	InviterID string    `firestore:"inviter_id"`
	Inviter   string    `firestore:"inviter"`
	ChannelID string    `firestore:"channel_id"`
}

func (r InviteRecord) URL() string {
	return "https://discord.gg/" + r.Code
}

func FromInvite(invite *discordgo.Invite) InviteRecord {
	record := InviteRecord{
		Code:      invite.Code,
		Uses:      invite.Uses,
		MaxUses:   invite.MaxUses,
		MaxAge:    invite.MaxAge,
		Temporary: invite.Temporary,
		CreatedAt: invite.CreatedAt,
	}

	if invite.Inviter != nil {
		record.InviterID = invite.Inviter.ID
		record.Inviter = invite.Inviter.Username
	}

	if invite.Channel != nil {
		record.ChannelID = invite.Channel.ID
	}

	return record
}

type inviteTable struct {
	Invites map[string]InviteRecord `firestore:"invites"`
}

type DocumentStore interface {
	GetDocument(ctx context.Context, collection string, document string, out interface{}) error
	SetDocument(ctx context.Context, collection string, document string, data interface{}) error
	UpdateDocument(ctx context.Context, collection string, document string, data map[string]interface{}) error
	DeleteDocument(ctx context.Context, collection string, document string) error
}

// Tracker holds the last known invite table of every guild. Tables are only
// ever replaced whole, so concurrent refreshes of one guild race and the last
// writer wins.
type Tracker struct {
	docs   DocumentStore
	mu     sync.Mutex
	tables map[string]map[string]InviteRecord
}

func NewTracker(docs DocumentStore) *Tracker {
	return &Tracker{
		docs:   docs,
		tables: make(map[string]map[string]InviteRecord),
	}
}

// Load reads the persisted table of a guild into memory.
func (t *Tracker) Load(ctx context.Context, guildID string) error {
	var table inviteTable

	err := t.docs.GetDocument(ctx, invitesCollection, guildID, &table)
	switch {
	case errors.Is(err, firebase.ErrDocumentNotFound):
		table.Invites = make(map[string]InviteRecord)
	case err != nil:
		return fmt.Errorf("loading invites for guild %s: %w", guildID, err)
	}

	if table.Invites == nil {
		table.Invites = make(map[string]InviteRecord)
	}

	t.mu.Lock()
	t.tables[guildID] = table.Invites
	t.mu.Unlock()

	return nil
}

// Snapshot returns a copy of the guild's table.
func (t *Tracker) Snapshot(guildID string) map[string]InviteRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	return maps.Clone(t.tables[guildID])
}

// Replace swaps in a freshly fetched table and persists it.
func (t *Tracker) Replace(ctx context.Context, guildID string, records []InviteRecord) error {
	table := make(map[string]InviteRecord, len(records))
	for _, record := range records {
		table[record.Code] = record
	}

	t.mu.Lock()
	t.tables[guildID] = table
	t.mu.Unlock()

	if err := t.docs.SetDocument(ctx, invitesCollection, guildID, inviteTable{Invites: maps.Clone(table)}); err != nil {
		return fmt.Errorf("saving invites for guild %s: %w", guildID, err)
	}

	return nil
}

func (t *Tracker) Add(ctx context.Context, guildID string, record InviteRecord) error {
	t.mu.Lock()
	table, ok := t.tables[guildID]
	if !ok {
		table = make(map[string]InviteRecord)
		t.tables[guildID] = table
	}
	table[record.Code] = record
	t.mu.Unlock()

	err := t.docs.UpdateDocument(ctx, invitesCollection, guildID, map[string]interface{}{
		invitesField + "." + record.Code: record,
	})
	if errors.Is(err, firebase.ErrDocumentNotFound) {
		err = t.docs.SetDocument(ctx, invitesCollection, guildID, inviteTable{Invites: t.Snapshot(guildID)})
	}

	if err != nil {
		return fmt.Errorf("adding invite %s for guild %s: %w", record.Code, guildID, err)
	}

	return nil
}

// Remove drops an invite and returns the record it had, if any.
func (t *Tracker) Remove(ctx context.Context, guildID string, code string) (InviteRecord, bool, error) {
	t.mu.Lock()
	record, ok := t.tables[guildID][code]
	delete(t.tables[guildID], code)
	t.mu.Unlock()

	if !ok {
		return InviteRecord{}, false, nil
	}

	err := t.docs.UpdateDocument(ctx, invitesCollection, guildID, map[string]interface{}{
		invitesField + "." + code: fs.Delete,
	})
	if err != nil && !errors.Is(err, firebase.ErrDocumentNotFound) {
		return record, true, fmt.Errorf("removing invite %s for guild %s: %w", code, guildID, err)
	}

	return record, true, nil
}

// Forget drops everything known about a guild the bot left.
func (t *Tracker) Forget(ctx context.Context, guildID string) error {
	t.mu.Lock()
	delete(t.tables, guildID)
	t.mu.Unlock()

	if err := t.docs.DeleteDocument(ctx, invitesCollection, guildID); err != nil {
		return fmt.Errorf("forgetting invites for guild %s: %w", guildID, err)
	}

	return nil
}

// Attribute picks the invite a new member most likely used: one whose use
// count rose since the stored table was taken, else a stored invite one use
// short of its limit that has since disappeared, lowest code first.
func Attribute(stored map[string]InviteRecord, current []InviteRecord) (InviteRecord, bool) {
	live := make(map[string]struct{}, len(current))

	for _, invite := range current {
		live[invite.Code] = struct{}{}

		if before, ok := stored[invite.Code]; ok && invite.Uses > before.Uses {
			return invite, true
		}
	}

	for _, code := range slices.Sorted(maps.Keys(stored)) {
		if _, ok := live[code]; ok {
			continue
		}

		if before := stored[code]; before.MaxUses > 0 && before.MaxUses-before.Uses == 1 {
			return before, true
		}
	}

	return InviteRecord{}, false
}
