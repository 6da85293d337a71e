package cast

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualboard/pkg/schema"
)

func TestResolveOrCreateNormalizedAliasHit(t *testing.T) {
	s := NewStore()

	id, created := s.ResolveOrCreate("Pestel", "")
	require.True(t, created)

	// casing and whitespace variants resolve to the same identity
	for _, name := range []string{"pestel", " Pestel  ", "PESTEL"} {
		got, wasNew := s.ResolveOrCreate(name, "")
		assert.False(t, wasNew, "variant %q must not mint an identity", name)
		assert.Equal(t, id, got)
	}
	assert.Equal(t, 1, s.Len())
}

func TestResolveOrCreateRefIDAttachesAlias(t *testing.T) {
	s := NewStore()
	id, _ := s.ResolveOrCreate("리리슈", "")

	// model retitles the character but carries her id forward
	got, created := s.ResolveOrCreate("공작부인 리리슈", id.String())
	assert.False(t, created)
	assert.Equal(t, id, got)

	entry := s.Get(id)
	require.NotNil(t, entry)
	assert.Equal(t, "리리슈", entry.CanonicalName)
	assert.Contains(t, entry.Aliases, "공작부인 리리슈")

	// the new alias now resolves on its own
	again, _ := s.ResolveOrCreate("공작부인 리리슈", "")
	assert.Equal(t, id, again)
}

func TestResolveOrCreateUnknownRefIDBecomesGhost(t *testing.T) {
	s := NewStore()
	stray := uuid.New()

	id, created := s.ResolveOrCreate("황태자 전하", stray.String())
	require.True(t, created)
	assert.NotEqual(t, stray, id, "an unknown id must never be adopted")

	entry := s.Get(id)
	require.NotNil(t, entry)
	assert.True(t, entry.IsGhost)
	assert.Equal(t, "황태자 전하", entry.CanonicalName)
	assert.Nil(t, s.Get(stray))
}

func TestResolveOrCreateAliasOutranksRefID(t *testing.T) {
	s := NewStore()
	first, _ := s.ResolveOrCreate("Pestel", "")
	second, _ := s.ResolveOrCreate("리리슈", "")

	// a known alias wins even when the refId points elsewhere
	got, created := s.ResolveOrCreate("pestel", second.String())
	assert.False(t, created)
	assert.Equal(t, first, got)
}

func TestMigrateLegacy(t *testing.T) {
	s := MigrateLegacy([]schema.LegacyCastEntry{
		{Name: "리리슈", Gender: schema.GenderFemale},
		{Name: "Pestel", Gender: "???"},
		{Name: ""},
	})

	assert.Equal(t, 2, s.Len())

	id, created := s.ResolveOrCreate("리리슈", "")
	assert.False(t, created)
	entry := s.Get(id)
	require.NotNil(t, entry)
	assert.Equal(t, schema.GenderFemale, entry.Gender)
	assert.Equal(t, []string{"리리슈"}, entry.Aliases)
	assert.False(t, entry.IsGhost)

	pid, _ := s.ResolveOrCreate("pestel", "")
	assert.Equal(t, schema.GenderUnknown, s.Get(pid).Gender)
}

func TestFromDataRebuildsAliasIndex(t *testing.T) {
	id := uuid.New()
	data := schema.CastStore{
		Version: schema.CastStoreVersion,
		CharactersByID: map[uuid.UUID]*schema.CastEntry{
			id: {ID: id, CanonicalName: "Pestel", Aliases: []string{"Pestel", "공작님"}, Gender: schema.GenderMale},
		},
		// deliberately stale index
		AliasMap: map[string]uuid.UUID{},
	}

	s := FromData(data)
	got, created := s.ResolveOrCreate("공작님", "")
	assert.False(t, created)
	assert.Equal(t, id, got)
}

func TestApplyStateWritesResolvedIDs(t *testing.T) {
	s := NewStore()
	state := &schema.StoryState{Scenes: []schema.Scene{
		{Characters: []schema.SceneCharacter{{Name: "Pestel"}, {Name: "리리슈"}}},
		{Characters: []schema.SceneCharacter{{Name: "pestel"}}},
	}}

	seen := s.ApplyState(state)
	assert.Len(t, seen, 2)
	assert.Equal(t, 2, s.Len())

	first := state.Scenes[0].Characters[0].RefID
	require.NotEmpty(t, first)
	assert.Equal(t, first, state.Scenes[1].Characters[0].RefID, "same character resolves to one id across scenes")

	// running the same state again mints nothing
	s.ApplyState(state)
	assert.Equal(t, 2, s.Len())
}

func TestOnStageRetainsOffStageEntries(t *testing.T) {
	s := NewStore()
	pestel, _ := s.ResolveOrCreate("Pestel", "")
	lily, _ := s.ResolveOrCreate("리리슈", "")

	state := &schema.StoryState{Scenes: []schema.Scene{
		{Characters: []schema.SceneCharacter{{Name: "PESTEL"}}},
	}}

	stage := s.OnStage(state)
	assert.True(t, stage[pestel])
	assert.False(t, stage[lily])
	assert.Equal(t, 2, s.Len(), "off-stage identities are retained")
}

func TestSetGender(t *testing.T) {
	s := NewStore()
	id, _ := s.ResolveOrCreate("리리슈", "")

	assert.True(t, s.SetGender(id, schema.GenderFemale))
	assert.Equal(t, schema.GenderFemale, s.Get(id).Gender)

	assert.False(t, s.SetGender(id, "???"))
	assert.False(t, s.SetGender(uuid.New(), schema.GenderMale))
	assert.Equal(t, schema.GenderFemale, s.Get(id).Gender)
}

func TestSeedHints(t *testing.T) {
	s := NewStore()
	existing, _ := s.ResolveOrCreate("Pestel", "")

	pinned := uuid.New()
	s.SeedHints([]schema.CastHint{
		{ID: pinned.String(), CanonicalName: "리리슈", Aliases: []string{"공작부인", "리리슈 님"}, Gender: schema.GenderFemale},
		{CanonicalName: "pestel", Gender: schema.GenderMale}, // already known, ignored
		{CanonicalName: ""},
	})

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, schema.GenderUnknown, s.Get(existing).Gender, "hints never overwrite existing entries")

	got, created := s.ResolveOrCreate("공작부인", "")
	assert.False(t, created)
	assert.Equal(t, pinned, got, "parseable unclaimed hint id is honored")
	assert.Equal(t, schema.GenderFemale, s.Get(got).Gender)
}

func TestDataIsDeepCopy(t *testing.T) {
	s := NewStore()
	id, _ := s.ResolveOrCreate("Pestel", "")

	data := s.Data()
	data.CharactersByID[id].CanonicalName = "mutated"
	data.CharactersByID[id].Aliases = append(data.CharactersByID[id].Aliases, "extra")

	assert.Equal(t, "Pestel", s.Get(id).CanonicalName)
	assert.Equal(t, []string{"Pestel"}, s.Get(id).Aliases)
}
