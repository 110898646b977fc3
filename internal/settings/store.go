package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/TeddyKahwaji/spice-modlog/internal/firebase"
)

const settingsCollection = "ModlogSettings"

type DocumentStore interface {
	GetDocument(ctx context.Context, collection string, document string, out interface{}) error
	SetDocument(ctx context.Context, collection string, document string, data interface{}) error
}

// Store loads guild settings from Firestore and keeps them cached for the
// life of the process. Callers always receive copies.
type Store struct {
	docs  DocumentStore
	mu    sync.RWMutex
	cache map[string]GuildSettings
	// writes serializes Update so concurrent commands never lose a change.
	writes sync.Mutex
}

func NewStore(docs DocumentStore) *Store {
	return &Store{
		docs:  docs,
		cache: make(map[string]GuildSettings),
	}
}

// Get returns the settings for guildID. A guild without a document gets the
// defaults.
func (s *Store) Get(ctx context.Context, guildID string) (GuildSettings, error) {
	s.mu.RLock()
	cached, ok := s.cache[guildID]
	s.mu.RUnlock()

	if ok {
		return cached.Clone(), nil
	}

	var loaded GuildSettings

	err := s.docs.GetDocument(ctx, settingsCollection, guildID, &loaded)
	switch {
	case errors.Is(err, firebase.ErrDocumentNotFound):
		loaded = Default(guildID)
	case err != nil:
		return GuildSettings{}, fmt.Errorf("loading settings for guild %s: %w", guildID, err)
	}

	loaded.GuildID = guildID

	s.mu.Lock()
	s.cache[guildID] = loaded.Clone()
	s.mu.Unlock()

	return loaded, nil
}

func (s *Store) Save(ctx context.Context, settings GuildSettings) error {
	if err := s.docs.SetDocument(ctx, settingsCollection, settings.GuildID, settings); err != nil {
		return fmt.Errorf("saving settings for guild %s: %w", settings.GuildID, err)
	}

	s.mu.Lock()
	s.cache[settings.GuildID] = settings.Clone()
	s.mu.Unlock()

	return nil
}

// Update applies fn to the current settings and persists the result.
func (s *Store) Update(ctx context.Context, guildID string, fn func(*GuildSettings)) (GuildSettings, error) {
	s.writes.Lock()
	defer s.writes.Unlock()

	current, err := s.Get(ctx, guildID)
	if err != nil {
		return GuildSettings{}, err
	}

	fn(&current)

	if err := s.Save(ctx, current); err != nil {
		return GuildSettings{}, err
	}

	return current, nil
}

// Forget drops the cached copy, e.g. when the bot leaves the guild.
func (s *Store) Forget(guildID string) {
	s.mu.Lock()
	delete(s.cache, guildID)
	s.mu.Unlock()
}

// GuildsWith returns the cached guilds that have kind enabled.
func (s *Store) GuildsWith(kind EventKind) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var guildIDs []string

	for guildID, guildSettings := range s.cache {
		if guildSettings.Event(kind).Enabled {
			guildIDs = append(guildIDs, guildID)
		}
	}

	return guildIDs
}
