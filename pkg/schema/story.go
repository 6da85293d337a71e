package schema

// MoodLabel classifies a character's emotional state.
type MoodLabel string

const (
	MoodJoy      MoodLabel = "joy"
	MoodTension  MoodLabel = "tension"
	MoodAnger    MoodLabel = "anger"
	MoodSadness  MoodLabel = "sadness"
	MoodFear     MoodLabel = "fear"
	MoodSurprise MoodLabel = "surprise"
	MoodNeutral  MoodLabel = "neutral"
	MoodLove     MoodLabel = "love"
	MoodContempt MoodLabel = "contempt"
)

func (m MoodLabel) Valid() bool {
	switch m {
	case MoodJoy, MoodTension, MoodAnger, MoodSadness, MoodFear, MoodSurprise, MoodNeutral, MoodLove, MoodContempt:
		return true
	}
	return false
}

type MoodState struct {
	Label       MoodLabel `json:"label" jsonschema:"enum=joy,enum=tension,enum=anger,enum=sadness,enum=fear,enum=surprise,enum=neutral,enum=love,enum=contempt" jsonschema_description:"Current emotional state of the character"`
	Description string    `json:"description" jsonschema_description:"One or two sentences describing the character's current emotional state"`
}

// SceneType names the backdrop category a scene plays out in.
type SceneType string

const (
	SceneCastle   SceneType = "castle"
	SceneRoom     SceneType = "room"
	SceneGarden   SceneType = "garden"
	SceneHall     SceneType = "hall"
	SceneCarriage SceneType = "carriage"
	SceneForest   SceneType = "forest"
)

func (t SceneType) Valid() bool {
	switch t {
	case SceneCastle, SceneRoom, SceneGarden, SceneHall, SceneCarriage, SceneForest:
		return true
	}
	return false
}

// Slot is a stage position for a character sprite.
type Slot string

const (
	SlotLeft   Slot = "left"
	SlotCenter Slot = "center"
	SlotRight  Slot = "right"
)

func (s Slot) Valid() bool {
	return s == SlotLeft || s == SlotCenter || s == SlotRight
}

// DialogueImpact is the emotional intensity of a scene on an ordinal scale.
type DialogueImpact string

const (
	ImpactLow    DialogueImpact = "low"
	ImpactMedium DialogueImpact = "medium"
	ImpactHigh   DialogueImpact = "high"
)

func (d DialogueImpact) Valid() bool {
	return d == ImpactLow || d == ImpactMedium || d == ImpactHigh
}

// Rank orders impacts low < medium < high. Unknown values rank below low.
func (d DialogueImpact) Rank() int {
	switch d {
	case ImpactLow:
		return 0
	case ImpactMedium:
		return 1
	case ImpactHigh:
		return 2
	}
	return -1
}

// SceneCharacter is one character as it appears in a single scene.
// RefID, when present, is a durable identity hint and outranks IsNew.
type SceneCharacter struct {
	Name      string     `json:"name" jsonschema_description:"Character name as written in the text"`
	Slot      Slot       `json:"slot,omitempty" jsonschema:"enum=left,enum=center,enum=right" jsonschema_description:"Stage position of the character"`
	MoodState *MoodState `json:"moodState,omitempty" jsonschema_description:"Current emotional state, if it can be inferred"`
	VisualKey string     `json:"visualKey,omitempty" jsonschema_description:"Optional stable key for the character's sprite"`
	RefID     string     `json:"refId,omitempty" jsonschema_description:"UUID of a previously established character identity, if known"`
	IsNew     bool       `json:"isNew,omitempty" jsonschema_description:"True when the character appears for the first time"`
}

// Relation is a scored relationship between two named characters.
// Scores are clamped to [0,100] at validation time.
type Relation struct {
	A         string `json:"a" jsonschema_description:"First character name"`
	B         string `json:"b" jsonschema_description:"Second character name"`
	Tension   int    `json:"tension" jsonschema_description:"Tension between the two, 0-100"`
	Affection int    `json:"affection" jsonschema_description:"Affection between the two, 0-100"`
}

// Scene is one location/segment of the narrative. Scenes are values: the
// merge engine produces new scenes rather than mutating existing ones.
type Scene struct {
	Summary        string           `json:"summary" jsonschema_description:"One-line summary of the scene"`
	Type           SceneType        `json:"type" jsonschema:"enum=castle,enum=room,enum=garden,enum=hall,enum=carriage,enum=forest" jsonschema_description:"Backdrop category of the scene"`
	LocationName   string           `json:"location_name,omitempty" jsonschema_description:"Concrete location name, e.g. 'the palace ballroom'"`
	BackdropStyle  string           `json:"backdrop_style,omitempty" jsonschema_description:"Short phrase describing the backdrop's mood or style"`
	Characters     []SceneCharacter `json:"characters" jsonschema_description:"Characters present in this scene"`
	Relations      []Relation       `json:"relations,omitempty" jsonschema_description:"Scored relationships between characters in this scene"`
	DialogueImpact DialogueImpact   `json:"dialogue_impact" jsonschema:"enum=low,enum=medium,enum=high" jsonschema_description:"Emotional intensity of the dialogue"`
}

// StoryState is the current versioned narrative state (v2). The legacy
// single-scene v1 shape is recognized only by the validator, which
// synthesizes a one-element v2 state from it.
type StoryState struct {
	Scenes           []Scene `json:"scenes" jsonschema_description:"Ordered scenes of the narrative"`
	ActiveSceneIndex int     `json:"activeSceneIndex" jsonschema_description:"Index of the scene currently on stage"`
}

// ActiveScene returns the scene at ActiveSceneIndex, or nil when the state
// holds no scenes.
func (s *StoryState) ActiveScene() *Scene {
	if s == nil || len(s.Scenes) == 0 {
		return nil
	}
	i := s.ActiveSceneIndex
	if i < 0 || i >= len(s.Scenes) {
		i = len(s.Scenes) - 1
	}
	return &s.Scenes[i]
}
