// Package store persists the latest validated story state and cast per
// scenario key. Writes replace the whole record atomically; reads never
// fail, so a corrupt blob costs the caller its history but not its turn.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"visualboard/pkg/cast"
	"visualboard/pkg/schema"
	"visualboard/pkg/utils"
)

const recordSuffix = ".record.json"

// Store keeps one LastSuccessRecord file per scenario key under dir.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(scenarioKey string) string {
	name := utils.SanitizeFilename(scenarioKey)
	if name == "" {
		name = "default"
	}
	return filepath.Join(s.dir, name+recordSuffix)
}

// Save atomically overwrites the record for a scenario key.
func (s *Store) Save(scenarioKey string, record *schema.LastSuccessRecord) error {
	return utils.Save(s.path(scenarioKey), record)
}

// Load returns the last persisted record for a scenario key, or nil when
// nothing usable is stored. It never fails: corrupt or unreadable data is
// logged and treated as absent, so the caller starts from an empty store.
// A legacy flat-array cast blob is migrated to the current shape and
// immediately re-persisted.
func (s *Store) Load(scenarioKey string) *schema.LastSuccessRecord {
	path := s.path(scenarioKey)
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("failed reading stored record", "scenario", scenarioKey, "error", err)
		}
		return nil
	}

	if legacy, ok := decodeLegacyCast(raw); ok {
		log.Warn("migrating legacy cast shape", "scenario", scenarioKey, "entries", len(legacy))
		record := &schema.LastSuccessRecord{
			Cast:      cast.MigrateLegacy(legacy).Data(),
			Timestamp: time.Now().UnixMilli(),
		}
		if err := s.Save(scenarioKey, record); err != nil {
			log.Warn("failed re-persisting migrated cast", "scenario", scenarioKey, "error", err)
		}
		return record
	}

	var record schema.LastSuccessRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		log.Warn("discarding corrupt stored record", "scenario", scenarioKey, "error", err)
		return nil
	}
	if record.Cast.CharactersByID == nil || record.Cast.AliasMap == nil {
		record.Cast = *emptyCast()
	}
	return &record
}

// Delete removes the stored record for a scenario key.
func (s *Store) Delete(scenarioKey string) {
	if err := os.Remove(s.path(scenarioKey)); err != nil && !os.IsNotExist(err) {
		log.Warn("failed deleting stored record", "scenario", scenarioKey, "error", err)
	}
}

// decodeLegacyCast recognizes the pre-record storage format: a bare JSON
// array of {name, gender} entries.
func decodeLegacyCast(raw []byte) ([]schema.LegacyCastEntry, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}
	var legacy []schema.LegacyCastEntry
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, false
	}
	return legacy, true
}

func emptyCast() *schema.CastStore {
	data := cast.NewStore().Data()
	return &data
}
