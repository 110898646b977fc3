// Package auditlog attributes a guild change to the moderator who made it by
// scanning a bounded window of recent audit log entries.
package auditlog

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Reader is the audit log query capability of a discordgo session.
type Reader interface {
	GuildAuditLog(guildID, userID, beforeID string, actionType, limit int, options ...discordgo.RequestOption) (*discordgo.GuildAuditLog, error)
}

// Query selects the audit entry that explains a change.
type Query struct {
	GuildID  string
	TargetID string
	Action   discordgo.AuditLogAction
	// Limit bounds how many of the most recent entries are considered. Zero
	// means the correlator's default lookback.
	Limit int
	// Visible reports whether the bot may read the guild's audit log. When
	// false the query never reaches the API.
	Visible bool
	// RequireKey, when set, skips entries that do not record a new value for
	// that change key.
	RequireKey discordgo.AuditLogChangeKey
	// Match is an extra predicate applied after the target check.
	Match func(entry *discordgo.AuditLogEntry) bool
}

// Attribution is the actor and reason recorded for a change. Found is false
// when no entry matched.
type Attribution struct {
	ActorID string
	Actor   string
	Reason  string
	Found   bool
	// Entry is the matched audit entry.
	Entry *discordgo.AuditLogEntry
}

func (a Attribution) ActorMention() string {
	if a.ActorID == "" {
		return ""
	}

	return "<@" + a.ActorID + ">"
}

type Correlator struct {
	reader   Reader
	logger   *zap.Logger
	lookback int
}

func NewCorrelator(reader Reader, logger *zap.Logger, lookback int) *Correlator {
	if lookback <= 0 {
		lookback = 5
	}

	return &Correlator{
		reader:   reader,
		logger:   logger,
		lookback: lookback,
	}
}

// Correlate returns the actor of the most recent entry in the window whose
// target is q.TargetID. Lookup failures are logged and reported as no match.
func (c *Correlator) Correlate(ctx context.Context, q Query) Attribution {
	page, entries := c.window(ctx, q)

	for _, entry := range entries {
		if !c.matches(entry, q) {
			continue
		}

		return attribution(page, entry)
	}

	return Attribution{}
}

// CollectActors returns one attribution per distinct actor among the matching
// entries in the window, newest first.
func (c *Correlator) CollectActors(ctx context.Context, q Query) []Attribution {
	page, entries := c.window(ctx, q)

	var (
		actors []Attribution
		seen   = make(map[string]struct{})
	)

	for _, entry := range entries {
		if !c.matches(entry, q) {
			continue
		}

		if _, ok := seen[entry.UserID]; ok {
			continue
		}

		seen[entry.UserID] = struct{}{}
		actors = append(actors, attribution(page, entry))
	}

	return actors
}

func (c *Correlator) window(ctx context.Context, q Query) (*discordgo.GuildAuditLog, []*discordgo.AuditLogEntry) {
	if !q.Visible || ctx.Err() != nil {
		return nil, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = c.lookback
	}

	page, err := c.reader.GuildAuditLog(q.GuildID, "", "", int(q.Action), limit, discordgo.WithContext(ctx))
	if err != nil {
		c.logger.Debug("audit log lookup failed",
			zap.Error(err),
			zap.String("guild_id", q.GuildID),
			zap.Int("action", int(q.Action)),
		)

		return nil, nil
	}

	if page == nil {
		return nil, nil
	}

	entries := page.AuditLogEntries
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return page, entries
}

func (c *Correlator) matches(entry *discordgo.AuditLogEntry, q Query) bool {
	if entry == nil {
		return false
	}

	if q.TargetID != "" && entry.TargetID != q.TargetID {
		return false
	}

	if q.RequireKey != "" && !recordsNewValue(entry, q.RequireKey) {
		return false
	}

	if q.Match != nil && !q.Match(entry) {
		return false
	}

	return true
}

func recordsNewValue(entry *discordgo.AuditLogEntry, key discordgo.AuditLogChangeKey) bool {
	_, ok := NewValue(entry, key)

	return ok
}

// NewValue returns the value an entry recorded for key after the change.
func NewValue(entry *discordgo.AuditLogEntry, key discordgo.AuditLogChangeKey) (interface{}, bool) {
	for _, change := range entry.Changes {
		if change == nil || change.Key == nil {
			continue
		}

		if *change.Key == key && change.NewValue != nil {
			return change.NewValue, true
		}
	}

	return nil, false
}

func attribution(page *discordgo.GuildAuditLog, entry *discordgo.AuditLogEntry) Attribution {
	result := Attribution{
		ActorID: entry.UserID,
		Actor:   entry.UserID,
		Reason:  entry.Reason,
		Found:   true,
		Entry:   entry,
	}

	for _, user := range page.Users {
		if user != nil && user.ID == entry.UserID {
			result.Actor = user.Username
			break
		}
	}

	return result
}

// InChannel matches entries whose options name channelID, as message delete
// entries do.
func InChannel(channelID string) func(*discordgo.AuditLogEntry) bool {
	return func(entry *discordgo.AuditLogEntry) bool {
		return entry.Options != nil && entry.Options.ChannelID == channelID
	}
}
