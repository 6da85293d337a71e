package turn

import (
	"visualboard/pkg/schema"
	"visualboard/pkg/utils"
)

const systemPrompt = `You are the stage director of a romantic fantasy novel. Analyze the given dialogue or narrative text and extract the scenes, characters, emotions, and relationships as JSON.

You must follow this exact JSON structure:

{
  "scenes": [
    {
      "summary": "one-line summary of the scene",
      "type": "castle" | "room" | "garden" | "hall" | "carriage" | "forest",
      "location_name": "concrete location name (e.g. 'the palace ballroom', 'the study', 'the rose path in the garden')",
      "backdrop_style": "short phrase describing the backdrop (e.g. 'lit by ornate chandeliers', 'dim candlelight', 'flooded with sunlight')",
      "characters": [
        {
          "name": "character name",
          "slot": "left" | "center" | "right",
          "moodState": {
            "label": "joy" | "tension" | "anger" | "sadness" | "fear" | "surprise" | "neutral" | "love" | "contempt",
            "description": "1-2 sentences describing the character's current emotional state"
          },
          "refId": "UUID of this character from the previous state, when the same character"
        }
      ],
      "relations": [
        { "a": "character A name", "b": "character B name", "tension": 0-100, "affection": 0-100 }
      ],
      "dialogue_impact": "low" | "medium" | "high"
    }
  ],
  "activeSceneIndex": 0
}

Rules:
- Start a new scene only when the location actually changes; do not split a continuous scene because the mood shifts.
- "type" must be one of the six backdrop categories.
- "location_name" must be a concrete, vivid place name.
- Include at most 3 main characters per scene (slots left, center, right).
- "moodState.label" must be one of the nine listed values.
- Include "relations" only when a relationship is evident; otherwise use an empty array.
- "tension" and "affection" are integers between 0 and 100.
- "dialogue_impact" reflects the emotional intensity of the dialogue.
- "activeSceneIndex" points at the scene currently playing.

Return only the JSON, with no extra commentary.`

const updateRules = `

Important update rules:
- Keep characters, backdrops, and relations that the new text does not mention.
- When the location changes, start a new scene with updated location_name and backdrop_style.
- When a character's emotion changes, update moodState to match the new text.
- When a character carries a refId in the previous state, keep that refId.
- Add newly appearing characters; drop characters who have left the stage.`

// buildUserPrompt embeds the previous state, when there is one, so the
// model updates rather than reinvents it.
func buildUserPrompt(text string, previous *schema.StoryState) string {
	prompt := "Narrative text to analyze:\n\"\"\"" + text + "\"\"\"\n"
	if previous == nil || len(previous.Scenes) == 0 {
		return prompt + "\nBuild a fresh story state from this text alone. Return only JSON matching the structure above."
	}
	return prompt +
		"\nThe story state known so far (StoryState JSON):\n" + utils.PrettyJSON(previous) +
		"\n\nUpdate this state to reflect the new text." + updateRules +
		"\n\nReturn only JSON matching the structure above."
}
