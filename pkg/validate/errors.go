package validate

import "fmt"

// Error codes for structural schema violations. Soft issues (missing
// optional fields, malformed refIds) never produce these.
const (
	CodeInvalidResponseFormat  = "INVALID_RESPONSE_FORMAT"
	CodeInvalidSceneFields     = "INVALID_SCENE_FIELDS"
	CodeInvalidCharacterFields = "INVALID_CHARACTER_FIELDS"
	CodeInvalidDialogueImpact  = "INVALID_DIALOGUE_IMPACT"
)

// Error identifies the offending scene/character index and field of a
// structural validation failure. Scene and Character are -1 when the
// failure is not scoped to one.
type Error struct {
	Code      string
	Scene     int
	Character int
	Field     string
}

// Tag renders the index-qualified error code, e.g.
// INVALID_CHARACTER_FIELDS[2][0].
func (e *Error) Tag() string {
	tag := e.Code
	if e.Scene >= 0 {
		tag = fmt.Sprintf("%s[%d]", tag, e.Scene)
	}
	if e.Character >= 0 {
		tag = fmt.Sprintf("%s[%d]", tag, e.Character)
	}
	return tag
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Tag()
	}
	return e.Tag() + ": " + e.Field
}

func formatErr(scene int) *Error {
	return &Error{Code: CodeInvalidResponseFormat, Scene: scene, Character: -1}
}

func sceneErr(scene int, field string) *Error {
	return &Error{Code: CodeInvalidSceneFields, Scene: scene, Character: -1, Field: field}
}

func characterErr(scene, char int, field string) *Error {
	return &Error{Code: CodeInvalidCharacterFields, Scene: scene, Character: char, Field: field}
}

func impactErr(scene int) *Error {
	return &Error{Code: CodeInvalidDialogueImpact, Scene: scene, Character: -1, Field: "dialogue_impact"}
}
