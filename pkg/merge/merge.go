// Package merge collapses adjacent scenes that share a location. The
// source model tends to over-split one continuous scene into several JSON
// entries when only mood or phrasing changes; merging consolidates those
// boundaries without dropping character or dialogue information.
package merge

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/log"

	"visualboard/pkg/schema"
	"visualboard/pkg/utils"
)

// Scenes merges consecutive scenes whose normalized location names are
// equal and non-empty. Relative order is preserved, inputs are never
// mutated, and the result of merging an already-merged slice is the same
// slice (idempotent). A blank location never merges with its neighbors.
func Scenes(in []schema.Scene) []schema.Scene {
	out := make([]schema.Scene, 0, len(in))
	for _, sc := range in {
		if len(out) > 0 && sameLocation(out[len(out)-1].LocationName, sc.LocationName) {
			out[len(out)-1] = combine(out[len(out)-1], sc)
			continue
		}
		out = append(out, cloneScene(sc))
	}
	return out
}

func sameLocation(a, b string) bool {
	na, nb := utils.NormalizeKey(a), utils.NormalizeKey(b)
	return na != "" && na == nb
}

// combine merges scene b (later) into scene a (earlier, same location) and
// returns a new scene value. Every tie prefers the earlier scene.
func combine(a, b schema.Scene) schema.Scene {
	merged := schema.Scene{
		Summary:        mergeSummary(a.Summary, b.Summary),
		Type:           a.Type,
		LocationName:   a.LocationName,
		BackdropStyle:  longerOf(a.BackdropStyle, b.BackdropStyle),
		Characters:     mergeCharacters(a.Characters, b.Characters),
		Relations:      mergeRelations(a.Relations, b.Relations),
		DialogueImpact: a.DialogueImpact,
	}
	if b.DialogueImpact.Rank() > a.DialogueImpact.Rank() {
		merged.DialogueImpact = b.DialogueImpact
	}
	return merged
}

// mergeSummary keeps the earlier summary when the two are the same text,
// otherwise concatenates so no narrative content is lost.
func mergeSummary(a, b string) string {
	if summaryKey(a) == summaryKey(b) {
		return a
	}
	log.Debug("concatenating scene summaries", "diff", utils.LimitStr(utils.DiffSummary(a, b), 200))
	return a + " / " + b
}

// summaryKey folds case and strips all whitespace, not just runs of it:
// the model drops or inserts spacing between otherwise identical
// summaries, especially in Korean text where spacing is inconsistent.
func summaryKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// longerOf implements the richer-field-wins heuristic: the longer string
// wins, the earlier one on ties.
func longerOf(a, b string) string {
	if len([]rune(b)) > len([]rune(a)) {
		return b
	}
	return a
}

// mergeCharacters unions by raw character name (folded for matching, never
// by resolved identity), keeping the earlier scene's ordering first.
func mergeCharacters(a, b []schema.SceneCharacter) []schema.SceneCharacter {
	out := make([]schema.SceneCharacter, 0, len(a)+len(b))
	idx := make(map[string]int, len(a))
	for _, ch := range a {
		idx[utils.NormalizeKey(ch.Name)] = len(out)
		out = append(out, cloneCharacter(ch))
	}
	for _, ch := range b {
		k := utils.NormalizeKey(ch.Name)
		if i, ok := idx[k]; ok {
			out[i] = combineCharacter(out[i], ch)
			continue
		}
		idx[k] = len(out)
		out = append(out, cloneCharacter(ch))
	}
	return out
}

func combineCharacter(a, b schema.SceneCharacter) schema.SceneCharacter {
	a.Slot = cmp.Or(a.Slot, b.Slot)
	a.VisualKey = cmp.Or(a.VisualKey, b.VisualKey)
	a.RefID = cmp.Or(a.RefID, b.RefID)
	a.MoodState = richerMood(a.MoodState, b.MoodState)
	return a
}

// richerMood prefers whichever mood has the longer description; equal
// lengths keep the earlier scene's.
func richerMood(a, b *schema.MoodState) *schema.MoodState {
	switch {
	case a == nil:
		return cloneMood(b)
	case b == nil:
		return cloneMood(a)
	case len([]rune(b.Description)) > len([]rune(a.Description)):
		return cloneMood(b)
	default:
		return cloneMood(a)
	}
}

// mergeRelations unions by unordered pair key; the earlier scene's row
// wins on conflict.
func mergeRelations(a, b []schema.Relation) []schema.Relation {
	out := make([]schema.Relation, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a))
	for _, r := range a {
		seen[pairKey(r.A, r.B)] = struct{}{}
		out = append(out, r)
	}
	for _, r := range b {
		k := pairKey(r.A, r.B)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func pairKey(a, b string) string {
	na, nb := utils.NormalizeKey(a), utils.NormalizeKey(b)
	if nb < na {
		na, nb = nb, na
	}
	return na + "\x00" + nb
}

func cloneScene(s schema.Scene) schema.Scene {
	out := s
	out.Characters = make([]schema.SceneCharacter, len(s.Characters))
	for i, ch := range s.Characters {
		out.Characters[i] = cloneCharacter(ch)
	}
	if s.Relations != nil {
		out.Relations = append([]schema.Relation(nil), s.Relations...)
	}
	return out
}

func cloneCharacter(c schema.SceneCharacter) schema.SceneCharacter {
	c.MoodState = cloneMood(c.MoodState)
	return c
}

func cloneMood(m *schema.MoodState) *schema.MoodState {
	if m == nil {
		return nil
	}
	out := *m
	return &out
}
