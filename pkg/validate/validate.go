// Package validate turns parsed but untrusted model JSON into a versioned
// story state. It recognizes both the current multi-scene shape (v2) and
// the legacy single-scene shape (v1), migrating the latter losslessly into
// a one-element v2 state.
package validate

import (
	"encoding/json"
	"math"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"visualboard/pkg/schema"
)

// Parse validates raw JSON (already made strictly parseable by the
// repairer) into a StoryState. It fails only on structurally required
// fields; soft issues are normalized: optional strings default to empty,
// malformed refIds are dropped with a diagnostic, bounded scores are
// clamped and rounded, and activeSceneIndex is clamped into range.
func Parse(raw []byte) (*schema.StoryState, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, formatErr(-1)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, formatErr(-1)
	}

	if scenes, ok := obj["scenes"].([]any); ok && len(scenes) > 0 {
		return parseV2(obj, scenes)
	}

	scene, hasScene := obj["scene"].(map[string]any)
	_, hasChars := obj["characters"].([]any)
	if hasScene && hasChars {
		return parseV1(obj, scene)
	}

	return nil, formatErr(-1)
}

func parseV2(obj map[string]any, scenes []any) (*schema.StoryState, error) {
	out := make([]schema.Scene, 0, len(scenes))
	for i, rawScene := range scenes {
		m, ok := rawScene.(map[string]any)
		if !ok {
			return nil, sceneErr(i, "scene")
		}
		s, err := parseScene(m, i)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}

	active := 0
	if f, ok := obj["activeSceneIndex"].(float64); ok {
		active = int(math.Round(f))
	}
	if active < 0 {
		active = 0
	}
	if active >= len(out) {
		active = len(out) - 1
	}

	return &schema.StoryState{Scenes: out, ActiveSceneIndex: active}, nil
}

// parseV1 synthesizes a one-element v2 state from the legacy flat shape
// {scene, characters, relations, dialogue_impact}.
func parseV1(obj, scene map[string]any) (*schema.StoryState, error) {
	flat := make(map[string]any, len(scene)+3)
	for k, v := range scene {
		flat[k] = v
	}
	flat["characters"] = obj["characters"]
	if rel, ok := obj["relations"]; ok {
		flat["relations"] = rel
	}
	flat["dialogue_impact"] = obj["dialogue_impact"]

	s, err := parseScene(flat, 0)
	if err != nil {
		return nil, err
	}
	return &schema.StoryState{Scenes: []schema.Scene{*s}, ActiveSceneIndex: 0}, nil
}

func parseScene(m map[string]any, idx int) (*schema.Scene, error) {
	summary, ok := m["summary"].(string)
	if !ok {
		return nil, sceneErr(idx, "summary")
	}
	typ, ok := m["type"].(string)
	if !ok || !schema.SceneType(typ).Valid() {
		return nil, sceneErr(idx, "type")
	}

	rawChars, ok := m["characters"].([]any)
	if !ok {
		return nil, sceneErr(idx, "characters")
	}
	chars := make([]schema.SceneCharacter, 0, len(rawChars))
	for j, rawChar := range rawChars {
		c, err := parseCharacter(rawChar, idx, j)
		if err != nil {
			return nil, err
		}
		chars = append(chars, *c)
	}

	impact, ok := m["dialogue_impact"].(string)
	if !ok || !schema.DialogueImpact(impact).Valid() {
		return nil, impactErr(idx)
	}

	return &schema.Scene{
		Summary:        summary,
		Type:           schema.SceneType(typ),
		LocationName:   optString(m, "location_name"),
		BackdropStyle:  optString(m, "backdrop_style"),
		Characters:     chars,
		Relations:      parseRelations(m, idx),
		DialogueImpact: schema.DialogueImpact(impact),
	}, nil
}

func parseCharacter(raw any, sceneIdx, charIdx int) (*schema.SceneCharacter, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, characterErr(sceneIdx, charIdx, "character")
	}
	name, ok := m["name"].(string)
	if !ok || name == "" {
		return nil, characterErr(sceneIdx, charIdx, "name")
	}

	c := schema.SceneCharacter{
		Name:      name,
		VisualKey: optString(m, "visualKey"),
	}

	if slot, ok := m["slot"]; ok {
		s, isStr := slot.(string)
		if !isStr || !schema.Slot(s).Valid() {
			return nil, characterErr(sceneIdx, charIdx, "slot")
		}
		c.Slot = schema.Slot(s)
	}

	// moodState is soft: kept only when fully well-formed
	if mood, ok := m["moodState"].(map[string]any); ok {
		label, lok := mood["label"].(string)
		desc, dok := mood["description"].(string)
		if lok && dok && schema.MoodLabel(label).Valid() {
			c.MoodState = &schema.MoodState{Label: schema.MoodLabel(label), Description: desc}
		}
	}

	if isNew, ok := m["isNew"].(bool); ok {
		c.IsNew = isNew
	}

	// a malformed refId is treated as absent, never as an error
	if ref, ok := m["refId"].(string); ok && ref != "" {
		if validUUID(ref) {
			c.RefID = ref
		} else {
			log.Debug("dropping malformed refId", "scene", sceneIdx, "character", charIdx, "refId", ref)
		}
	}

	return &c, nil
}

// parseRelations validates relation entries softly: malformed entries are
// skipped, bounded scores are clamped to [0,100] and rounded.
func parseRelations(m map[string]any, sceneIdx int) []schema.Relation {
	raw, ok := m["relations"]
	if !ok || raw == nil {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		log.Debug("ignoring non-array relations", "scene", sceneIdx)
		return nil
	}

	var out []schema.Relation
	for _, item := range list {
		rm, ok := item.(map[string]any)
		if !ok {
			continue
		}
		a, aok := rm["a"].(string)
		b, bok := rm["b"].(string)
		if !aok || !bok || a == "" || b == "" {
			continue
		}
		out = append(out, schema.Relation{
			A:         a,
			B:         b,
			Tension:   clampScore(rm["tension"]),
			Affection: clampScore(rm["affection"]),
		})
	}
	return out
}

func clampScore(v any) int {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	n := int(math.Round(f))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func optString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func validUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
