package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualboard/pkg/cast"
	"visualboard/pkg/schema"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir())

	cs := cast.NewStore()
	id, _ := cs.ResolveOrCreate("Pestel", "")

	record := &schema.LastSuccessRecord{
		TurnID: "turn-1",
		State: schema.StoryState{
			Scenes: []schema.Scene{{
				Summary:        "The banquet begins.",
				Type:           schema.SceneHall,
				LocationName:   "왕궁 연회장",
				Characters:     []schema.SceneCharacter{{Name: "Pestel", RefID: id.String()}},
				DialogueImpact: schema.ImpactMedium,
			}},
		},
		Cast:      cs.Data(),
		Timestamp: 1724900000000,
	}

	require.NoError(t, s.Save("scenario-a", record))

	got := s.Load("scenario-a")
	require.NotNil(t, got)
	assert.Equal(t, "turn-1", got.TurnID)
	require.Len(t, got.State.Scenes, 1)
	assert.Equal(t, "왕궁 연회장", got.State.Scenes[0].LocationName)
	require.Contains(t, got.Cast.CharactersByID, id)
	assert.Equal(t, "Pestel", got.Cast.CharactersByID[id].CanonicalName)
}

func TestLoadMissingReturnsNil(t *testing.T) {
	s := New(t.TempDir())
	assert.Nil(t, s.Load("nothing-here"))
}

func TestLoadCorruptReturnsNil(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.record.json"), []byte(`{"turnId": truncat`), 0o644))
	assert.Nil(t, s.Load("bad"))
}

func TestLoadMigratesLegacyCastArray(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	legacy := `[{"name": "리리슈", "gender": "female"}, {"name": "Pestel", "gender": "male"}]`
	path := filepath.Join(dir, "old.record.json")
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	record := s.Load("old")
	require.NotNil(t, record)
	assert.Equal(t, schema.CastStoreVersion, record.Cast.Version)
	assert.Len(t, record.Cast.CharactersByID, 2)
	assert.Empty(t, record.State.Scenes)

	// each migrated entry got a fresh id and a single alias
	cs := cast.FromData(record.Cast)
	id, created := cs.ResolveOrCreate("리리슈", "")
	assert.False(t, created)
	assert.Equal(t, schema.GenderFemale, cs.Get(id).Gender)

	// the migrated shape was re-persisted: reloading takes the v2 path
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, byte('['), raw[0])

	again := s.Load("old")
	require.NotNil(t, again)
	assert.Len(t, again.Cast.CharactersByID, 2)
}

func TestDelete(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Save("gone", &schema.LastSuccessRecord{TurnID: "t"}))
	require.NotNil(t, s.Load("gone"))

	s.Delete("gone")
	assert.Nil(t, s.Load("gone"))
	s.Delete("gone") // idempotent
}

func TestScenarioKeysNeverCollide(t *testing.T) {
	s := New(t.TempDir())

	require.NoError(t, s.Save("room/a", &schema.LastSuccessRecord{TurnID: "slash"}))
	require.NoError(t, s.Save("room_a", &schema.LastSuccessRecord{TurnID: "underscore"}))

	first := s.Load("room/a")
	second := s.Load("room_a")
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, "slash", first.TurnID)
	assert.Equal(t, "underscore", second.TurnID)

	s.Delete("room_a")
	assert.NotNil(t, s.Load("room/a"), "deleting one key must not touch the other")
	assert.Nil(t, s.Load("room_a"))
}

func TestScenarioKeySanitized(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Save("../sneaky/key", &schema.LastSuccessRecord{TurnID: "t"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "record must land inside the store directory")

	got := s.Load("../sneaky/key")
	require.NotNil(t, got)
	assert.Equal(t, "t", got.TurnID)
}
