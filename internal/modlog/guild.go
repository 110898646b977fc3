package modlog

import (
	"slices"
	"strings"

	"github.com/TeddyKahwaji/spice-modlog/internal/logger"
	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/TeddyKahwaji/spice-modlog/pkg/auditlog"
	"github.com/TeddyKahwaji/spice-modlog/pkg/diff"
	"github.com/TeddyKahwaji/spice-modlog/pkg/notify"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// guildCreate seeds the snapshot cache, settings and invite table of a guild
// as it becomes available.
func (c *Cog) guildCreate(_ *discordgo.Session, created *discordgo.GuildCreate) {
	if created.Guild == nil || created.Unavailable {
		return
	}

	c.loadGuild(created.Guild)
}

// loadGuild seeds snapshots and the invite table of a guild that became
// available.
func (c *Cog) loadGuild(guild *discordgo.Guild) {
	guildID := guild.ID
	guildLogger := c.logger.With(logger.GuildID(guildID))

	c.seed(guild)

	guildSettings, err := c.settings.Get(c.ctx, guildID)
	if err != nil {
		guildLogger.Warn("could not load modlog settings", zap.Error(err))
		return
	}

	if err := c.invites.Load(c.ctx, guildID); err != nil {
		guildLogger.Warn("could not load invite table", zap.Error(err))
		return
	}

	if guildSettings.Event(settings.UserJoin).Enabled {
		if err := c.refreshGuildInvites(c.ctx, guildID); err != nil {
			guildLogger.Warn("could not refresh invites", zap.Error(err))
		}
	}
}

func (c *Cog) guildDelete(_ *discordgo.Session, deleted *discordgo.GuildDelete) {
	if deleted.Guild == nil || deleted.Unavailable {
		return
	}

	c.settings.Forget(deleted.ID)
	c.snapshots.forget(deleted.ID)

	if err := c.invites.Forget(c.ctx, deleted.ID); err != nil {
		c.logger.Warn("could not forget invite table", zap.Error(err), logger.GuildID(deleted.ID))
	}

	c.logger.Info("bot has been removed from guild", logger.GuildID(deleted.ID))
}

func (c *Cog) guildUpdate(_ *discordgo.Session, updated *discordgo.GuildUpdate) {
	if updated.Guild == nil {
		return
	}

	defer c.recoverHandler(settings.GuildChange, updated.ID)

	guild := updated.Guild
	after := c.guildSnapshot(guild)
	before, seen := c.snapshots.swapGuild(guild.ID, after)

	e, ok := c.begin(settings.GuildChange, guild.ID)
	if !ok {
		return
	}

	if !seen {
		c.skip(e, skipNoSnapshot)
		return
	}

	changes := diff.Diff(diff.Guild, before, after, diff.GuildAttributes)
	if len(changes) == 0 {
		c.skip(e, skipNothing)
		return
	}

	n := notify.Notification{
		Headline:   "Guild updated",
		AuthorName: "Updated Guild",
		AuthorIcon: guild.IconURL(""),
		Thumbnail:  guild.IconURL(""),
	}

	// An icon change is shown as the new image rather than two hashes.
	n.Records = slices.DeleteFunc(slices.Clone(changes), func(r diff.ChangeRecord) bool {
		return r.Attribute == diff.AttrIcon
	})

	if len(n.Records) != len(changes) {
		n.Description = "Server Icon Updated"
		n.Image = guild.IconURL("")
	}

	actors := c.collectActors(e, auditlog.Query{
		Action: discordgo.AuditLogActionGuildUpdate,
		Limit:  len(changes),
	})
	n.Attribution = mergeAttributions(actors)

	c.deliver(e, n)
}

// mergeAttributions folds several actors into one attribution naming all of
// them. The first actor keeps its id.
func mergeAttributions(actors []auditlog.Attribution) auditlog.Attribution {
	if len(actors) == 0 {
		return auditlog.Attribution{}
	}

	merged := actors[0]
	names := make([]string, 0, len(actors))
	reasons := make([]string, 0, len(actors))

	for _, actor := range actors {
		names = append(names, actor.Actor)

		if actor.Reason != "" {
			reasons = append(reasons, actor.Reason)
		}
	}

	merged.Actor = strings.Join(names, ", ")
	merged.Reason = strings.Join(reasons, ", ")

	return merged
}

func (c *Cog) guildEmojisUpdate(_ *discordgo.Session, updated *discordgo.GuildEmojisUpdate) {
	defer c.recoverHandler(settings.EmojiChange, updated.GuildID)

	after := c.emojiRefs(updated.GuildID, updated.Emojis)
	before, seen := c.snapshots.swapEmojis(updated.GuildID, after)

	e, ok := c.begin(settings.EmojiChange, updated.GuildID)
	if !ok {
		return
	}

	if !seen {
		c.skip(e, skipNoSnapshot)
		return
	}

	records := diff.ClassifyEmojis(before, after)
	if len(records) == 0 {
		c.skip(e, skipNothing)
		return
	}

	var attribution auditlog.Attribution
	if action, ok := emojiAction(records[0]); ok {
		attribution = c.correlate(e, auditlog.Query{
			TargetID: records[0].SubjectID,
			Action:   action,
			Limit:    1,
		})
	}

	c.deliver(e, notify.Notification{
		Headline:    "Updated Server Emojis",
		AuthorName:  "Updated Server Emojis",
		Sections:    []notify.Section{{Name: "Emojis", Records: records}},
		Attribution: attribution,
	})
}

// emojiAction maps the first emoji change to its audit action. Role
// restriction changes are not written to the audit log.
func emojiAction(record diff.ChangeRecord) (discordgo.AuditLogAction, bool) {
	switch record.Op {
	case diff.OpRemoved:
		return discordgo.AuditLogActionEmojiDelete, true
	case diff.OpAdded:
		return discordgo.AuditLogActionEmojiCreate, true
	case diff.OpRenamed:
		return discordgo.AuditLogActionEmojiUpdate, true
	default:
		return 0, false
	}
}
