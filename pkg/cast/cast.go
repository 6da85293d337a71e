// Package cast maps transient per-turn character names onto durable
// identities, so caller-side state (gender assignment, pinning) survives
// across turns even when the model renames, retitles, or misspells a
// character. Identity is the id, never the name. No operation in this
// package fails: unknown names always produce new identities, because the
// model's naming is inherently unreliable.
package cast

import (
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"visualboard/pkg/schema"
	"visualboard/pkg/utils"
)

// Store owns a schema.CastStore. It is an explicit handle passed into
// every operation; there is no ambient per-scenario state.
type Store struct {
	data schema.CastStore
}

// NewStore returns an empty v2 store.
func NewStore() *Store {
	return &Store{data: schema.CastStore{
		Version:        schema.CastStoreVersion,
		CharactersByID: make(map[uuid.UUID]*schema.CastEntry),
		AliasMap:       make(map[string]uuid.UUID),
	}}
}

// FromData wraps a previously persisted cast store, rebuilding the alias
// index so the invariant (every alias of every entry resolves to that
// entry's id) holds even if the stored index drifted.
func FromData(data schema.CastStore) *Store {
	s := NewStore()
	for id, entry := range data.CharactersByID {
		if entry == nil {
			continue
		}
		e := *entry
		e.ID = id
		if len(e.Aliases) == 0 {
			e.Aliases = []string{e.CanonicalName}
		}
		if !e.Gender.Valid() {
			e.Gender = schema.GenderUnknown
		}
		s.data.CharactersByID[id] = &e
		for _, alias := range e.Aliases {
			s.index(alias, id)
		}
	}
	return s
}

// MigrateLegacy converts the pre-v2 flat array shape into a store,
// assigning each entry a fresh id and a single alias equal to its name.
func MigrateLegacy(entries []schema.LegacyCastEntry) *Store {
	s := NewStore()
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		gender := e.Gender
		if !gender.Valid() {
			gender = schema.GenderUnknown
		}
		id := uuid.New()
		s.data.CharactersByID[id] = &schema.CastEntry{
			ID:            id,
			CanonicalName: e.Name,
			Aliases:       []string{e.Name},
			Gender:        gender,
		}
		s.index(e.Name, id)
	}
	return s
}

// Data returns a deep copy of the underlying store for persistence.
func (s *Store) Data() schema.CastStore {
	out := schema.CastStore{
		Version:        schema.CastStoreVersion,
		CharactersByID: make(map[uuid.UUID]*schema.CastEntry, len(s.data.CharactersByID)),
		AliasMap:       make(map[string]uuid.UUID, len(s.data.AliasMap)),
	}
	for id, entry := range s.data.CharactersByID {
		e := *entry
		e.Aliases = append([]string(nil), entry.Aliases...)
		out.CharactersByID[id] = &e
	}
	for k, v := range s.data.AliasMap {
		out.AliasMap[k] = v
	}
	return out
}

// Len returns the number of identities in the store.
func (s *Store) Len() int { return len(s.data.CharactersByID) }

// Get returns the entry for an id, or nil.
func (s *Store) Get(id uuid.UUID) *schema.CastEntry {
	return s.data.CharactersByID[id]
}

// ResolveOrCreate maps a raw name to a durable identity:
//  1. an existing alias wins and mutates nothing;
//  2. otherwise a valid refID pointing at a known entry adopts the raw
//     name as a new alias of that entry;
//  3. otherwise a brand-new identity is created. When a valid refID was
//     supplied but matched nothing, the new entry is flagged as a ghost.
//
// The second return reports whether a new identity was created.
func (s *Store) ResolveOrCreate(rawName, refID string) (uuid.UUID, bool) {
	key := utils.NormalizeKey(rawName)
	if id, ok := s.data.AliasMap[key]; ok {
		return id, false
	}

	ghost := false
	if refID != "" {
		if ref, err := uuid.Parse(refID); err == nil {
			if entry, ok := s.data.CharactersByID[ref]; ok {
				entry.Aliases = append(entry.Aliases, rawName)
				s.index(rawName, ref)
				log.Debug("registered alias", "alias", rawName, "canonical", entry.CanonicalName)
				return ref, false
			}
			// valid reference to nothing we know: the new identity is a
			// ghost, but the unknown id itself is never adopted
			ghost = true
		}
	}

	id := uuid.New()
	s.data.CharactersByID[id] = &schema.CastEntry{
		ID:            id,
		CanonicalName: rawName,
		Aliases:       []string{rawName},
		Gender:        schema.GenderUnknown,
		IsGhost:       ghost,
	}
	s.index(rawName, id)
	return id, true
}

// ApplyState resolves every character in every scene, writing the
// resolved id back into the character's RefID, and returns the set of ids
// seen this turn.
func (s *Store) ApplyState(state *schema.StoryState) map[uuid.UUID]struct{} {
	seen := make(map[uuid.UUID]struct{})
	if state == nil {
		return seen
	}
	for i := range state.Scenes {
		chars := state.Scenes[i].Characters
		for j := range chars {
			id, created := s.ResolveOrCreate(chars[j].Name, chars[j].RefID)
			chars[j].RefID = id.String()
			if created {
				log.Debug("new cast identity", "name", chars[j].Name, "id", id)
			}
			seen[id] = struct{}{}
		}
	}
	return seen
}

// OnStage reports, per identity, whether its canonical name or any alias
// matches a character name present in the state's scenes. Entries that
// fall off stage are retained, never deleted.
func (s *Store) OnStage(state *schema.StoryState) map[uuid.UUID]bool {
	present := make(map[string]struct{})
	if state != nil {
		for _, sc := range state.Scenes {
			for _, ch := range sc.Characters {
				present[utils.NormalizeKey(ch.Name)] = struct{}{}
			}
		}
	}

	out := make(map[uuid.UUID]bool, len(s.data.CharactersByID))
	for id, entry := range s.data.CharactersByID {
		out[id] = false
		for _, alias := range entry.Aliases {
			if _, ok := present[utils.NormalizeKey(alias)]; ok {
				out[id] = true
				break
			}
		}
	}
	return out
}

// SetGender mutates an identity's gender. This is the only metadata write;
// the resolver itself only creates entries and appends aliases.
func (s *Store) SetGender(id uuid.UUID, gender schema.Gender) bool {
	entry, ok := s.data.CharactersByID[id]
	if !ok || !gender.Valid() {
		return false
	}
	entry.Gender = gender
	return true
}

// SeedHints pre-registers caller-supplied identities before a turn. The
// caller caps hints at 30 entries and 10 aliases each; the store trusts
// that cap. Hints never overwrite existing entries.
func (s *Store) SeedHints(hints []schema.CastHint) {
	for _, h := range hints {
		if h.CanonicalName == "" {
			continue
		}
		if _, ok := s.data.AliasMap[utils.NormalizeKey(h.CanonicalName)]; ok {
			continue
		}

		id := uuid.New()
		if h.ID != "" {
			if parsed, err := uuid.Parse(h.ID); err == nil {
				if _, taken := s.data.CharactersByID[parsed]; !taken {
					id = parsed
				}
			}
		}

		gender := h.Gender
		if !gender.Valid() {
			gender = schema.GenderUnknown
		}
		entry := &schema.CastEntry{
			ID:            id,
			CanonicalName: h.CanonicalName,
			Aliases:       []string{h.CanonicalName},
			Gender:        gender,
		}
		s.data.CharactersByID[id] = entry
		s.index(h.CanonicalName, id)
		for _, alias := range h.Aliases {
			if alias == "" {
				continue
			}
			if _, ok := s.data.AliasMap[utils.NormalizeKey(alias)]; ok {
				continue
			}
			entry.Aliases = append(entry.Aliases, alias)
			s.index(alias, id)
		}
	}
}

func (s *Store) index(alias string, id uuid.UUID) {
	key := utils.NormalizeKey(alias)
	if key == "" {
		return
	}
	s.data.AliasMap[key] = id
}
