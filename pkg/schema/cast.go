package schema

import "github.com/google/uuid"

// Gender of a cast identity. Only ever changed by explicit caller action.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale || g == GenderUnknown
}

// CastEntry is a durable character identity. The id is the identity;
// names and aliases can change or collide.
type CastEntry struct {
	ID            uuid.UUID `json:"id"`
	CanonicalName string    `json:"canonicalName"`
	Aliases       []string  `json:"aliases"`
	Gender        Gender    `json:"gender"`
	IsGhost       bool      `json:"isGhost,omitempty"`
}

// CastStoreVersion tags the current persisted cast shape.
const CastStoreVersion = "v2"

// CastStore maps durable ids to entries plus a normalized-alias index.
// Alias keys are produced only by utils.NormalizeKey; every alias of every
// entry has exactly one AliasMap key pointing back at that entry's id.
type CastStore struct {
	Version        string                   `json:"version"`
	CharactersByID map[uuid.UUID]*CastEntry `json:"charactersById"`
	AliasMap       map[string]uuid.UUID     `json:"aliasMap"`
}

// LegacyCastEntry is the pre-v2 persisted cast shape: a flat array of
// name/gender pairs. Migration input only.
type LegacyCastEntry struct {
	Name   string `json:"name"`
	Gender Gender `json:"gender"`
}

// CastHint seeds the resolver with caller-known identities before a turn.
// The caller caps hints at 30 entries and 10 aliases each; the core trusts
// that cap.
type CastHint struct {
	ID            string   `json:"id,omitempty"`
	CanonicalName string   `json:"canonicalName"`
	Aliases       []string `json:"aliases"`
	Gender        Gender   `json:"gender"`
}

// LastSuccessRecord is the durable unit persisted after every successful
// turn, keyed by scenario. It is replaced atomically, never partially
// written.
type LastSuccessRecord struct {
	TurnID    string     `json:"turnId"`
	State     StoryState `json:"state"`
	Cast      CastStore  `json:"cast"`
	Timestamp int64      `json:"timestamp"`
	LastError string     `json:"lastError,omitempty"`
}
