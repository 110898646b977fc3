package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/TeddyKahwaji/spice-modlog/internal/firebase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeDocs struct {
	mu   sync.Mutex
	docs map[string]GuildSettings
	gets int
	err  error
}

func (f *fakeDocs) GetDocument(_ context.Context, _ string, document string, out interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++

	if f.err != nil {
		return f.err
	}

	doc, ok := f.docs[document]
	if !ok {
		return firebase.ErrDocumentNotFound
	}

	*out.(*GuildSettings) = doc.Clone()

	return nil
}

func (f *fakeDocs) SetDocument(_ context.Context, _ string, document string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.docs[document] = data.(GuildSettings).Clone()

	return nil
}

func TestEventDefaults(t *testing.T) {
	g := Default("1")

	for _, kind := range EventKinds {
		event := g.Event(kind)
		assert.False(t, event.Enabled, kind)
		assert.True(t, event.Embed, kind)
		assert.NotEmpty(t, event.Emoji, kind)
		assert.NotZero(t, DefaultColour(kind), kind)
	}

	assert.Len(t, EventKinds, 17)
}

func TestParseEventKind(t *testing.T) {
	kind, ok := ParseEventKind("voice_change")
	assert.True(t, ok)
	assert.Equal(t, VoiceChange, kind)

	_, ok = ParseEventKind("nope")
	assert.False(t, ok)
}

func TestDestination(t *testing.T) {
	g := Default("1")
	assert.Empty(t, g.Destination(MessageEdit))

	g.ModlogChannel = "log"
	assert.Equal(t, "log", g.Destination(MessageEdit))

	g.SetEvent(MessageEdit, EventSettings{Enabled: true, Channel: "edits"})
	assert.Equal(t, "edits", g.Destination(MessageEdit))
	assert.Equal(t, "log", g.Destination(MessageDelete))
}

func TestColour(t *testing.T) {
	g := Default("1")

	assert.Equal(t, 0x1abc9c, g.Colour(ChannelChange, 0))
	assert.Equal(t, 0x3498db, g.Colour(RoleChange, 0))
	assert.Equal(t, 0xff0000, g.Colour(RoleChange, 0xff0000))
	assert.Equal(t, 0x206694, g.Colour(RoleDelete, 0xff0000))

	override := 0x123456
	g.SetEvent(RoleChange, EventSettings{Colour: &override})
	assert.Equal(t, 0x123456, g.Colour(RoleChange, 0xff0000))
}

func TestIsIgnored(t *testing.T) {
	g := GuildSettings{IgnoredChannels: []string{"c1", "cat"}}

	assert.True(t, g.IsIgnored("c1", ""))
	assert.True(t, g.IsIgnored("c2", "cat"))
	assert.False(t, g.IsIgnored("c2", "other"))
	assert.False(t, g.IsIgnored("c2", ""))
}

func TestCloneIsIndependent(t *testing.T) {
	colour := 1
	g := GuildSettings{IgnoredChannels: []string{"a"}}
	g.SetEvent(UserJoin, EventSettings{Enabled: true, Colour: &colour})

	clone := g.Clone()
	clone.IgnoredChannels[0] = "b"
	clone.SetEvent(UserLeft, EventSettings{Enabled: true})
	*clone.Events[string(UserJoin)].Colour = 2

	assert.Equal(t, "a", g.IgnoredChannels[0])
	assert.False(t, g.Event(UserLeft).Enabled)
	assert.Equal(t, 1, *g.Event(UserJoin).Colour)
}

type StoreSuite struct {
	suite.Suite
	docs  *fakeDocs
	store *Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.docs = &fakeDocs{docs: make(map[string]GuildSettings)}
	s.store = NewStore(s.docs)
	s.ctx = context.Background()
}

func (s *StoreSuite) TestMissingDocumentYieldsDefaults() {
	got, err := s.store.Get(s.ctx, "g1")

	s.Require().NoError(err)
	s.Equal("g1", got.GuildID)
	s.False(got.Event(MessageDelete).Enabled)
}

func (s *StoreSuite) TestGetIsCached() {
	_, err := s.store.Get(s.ctx, "g1")
	s.Require().NoError(err)

	_, err = s.store.Get(s.ctx, "g1")
	s.Require().NoError(err)

	s.Equal(1, s.docs.gets)
}

func (s *StoreSuite) TestCallersReceiveCopies() {
	got, err := s.store.Get(s.ctx, "g1")
	s.Require().NoError(err)

	got.ModlogChannel = "mutated"
	got.SetEvent(UserJoin, EventSettings{Enabled: true})

	again, err := s.store.Get(s.ctx, "g1")
	s.Require().NoError(err)
	s.Empty(again.ModlogChannel)
	s.False(again.Event(UserJoin).Enabled)
}

func (s *StoreSuite) TestUpdatePersists() {
	_, err := s.store.Update(s.ctx, "g1", func(g *GuildSettings) {
		g.ModlogChannel = "log"
		g.SetEvent(UserJoin, EventSettings{Enabled: true, Embed: true})
	})
	s.Require().NoError(err)

	s.Equal("log", s.docs.docs["g1"].ModlogChannel)
	s.ElementsMatch([]string{"g1"}, s.store.GuildsWith(UserJoin))
	s.Empty(s.store.GuildsWith(UserLeft))
}

func (s *StoreSuite) TestConcurrentUpdatesKeepEveryChange() {
	const updates = 20

	var wg sync.WaitGroup

	for i := range updates {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := s.store.Update(s.ctx, "g1", func(g *GuildSettings) {
				g.IgnoredChannels = append(g.IgnoredChannels, fmt.Sprintf("c%d", i))
			})
			s.NoError(err)
		}()
	}

	wg.Wait()

	got, err := s.store.Get(s.ctx, "g1")
	s.Require().NoError(err)
	s.Len(got.IgnoredChannels, updates)
	s.Len(s.docs.docs["g1"].IgnoredChannels, updates)
}

func (s *StoreSuite) TestLoadErrorIsReturned() {
	s.docs.err = errors.New("unavailable")

	_, err := s.store.Get(s.ctx, "g1")

	s.Require().Error(err)
	s.ErrorIs(err, s.docs.err)
}

func (s *StoreSuite) TestForgetReloads() {
	_, err := s.store.Get(s.ctx, "g1")
	require.NoError(s.T(), err)

	s.store.Forget("g1")

	_, err = s.store.Get(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(2, s.docs.gets)
}
