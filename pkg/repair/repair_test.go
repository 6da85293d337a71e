package repair

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairValidInputPassesThrough(t *testing.T) {
	in := `{"scenes":[{"summary":"a"}],"activeSceneIndex":0}`
	out, err := Repair(in)
	require.NoError(t, err)
	assert.JSONEq(t, in, out)
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "markdown fences",
			input: "```json\n{\"summary\": \"a\"}\n```",
			want:  `{"summary": "a"}`,
		},
		{
			name:  "leading prose",
			input: "Here is the analysis you asked for:\n{\"summary\": \"a\"}",
			want:  `{"summary": "a"}`,
		},
		{
			name:  "trailing prose",
			input: `{"summary": "a"} Hope that helps!`,
			want:  `{"summary": "a"}`,
		},
		{
			name:  "prose on both sides",
			input: "Sure! Here you go:\n{\"summary\": \"a\"}\nLet me know if you need anything else.",
			want:  `{"summary": "a"}`,
		},
		{
			name:  "braces inside trailing prose",
			input: `{"summary": "a"} (note: {} braces above are intentional)`,
			want:  `{"summary": "a"}`,
		},
		{
			name:  "trailing comma in object",
			input: `{"summary": "a", "type": "room",}`,
			want:  `{"summary": "a", "type": "room"}`,
		},
		{
			name:  "trailing comma in array",
			input: `{"scenes": [1, 2,]}`,
			want:  `{"scenes": [1, 2]}`,
		},
		{
			name:  "truncated mid string",
			input: `{"summary": "she turned aw`,
			want:  `{"summary": "she turned aw"}`,
		},
		{
			name:  "truncated after colon",
			input: `{"summary": "a", "type":`,
			want:  `{"summary": "a", "type": null}`,
		},
		{
			name:  "truncated bare literal",
			input: `{"isNew": tru`,
			want:  `{"isNew": true}`,
		},
		{
			name:  "unclosed nesting",
			input: `{"scenes": [{"summary": "a"`,
			want:  `{"scenes": [{"summary": "a"}]}`,
		},
		{
			name:  "raw newline inside string",
			input: "{\"summary\": \"line one\nline two\"}",
			want:  `{"summary": "line one\nline two"}`,
		},
		{
			name:  "stray closing bracket",
			input: `{"scenes": [1, 2]]}`,
			want:  `{"scenes": [1, 2]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Repair(tt.input)
			require.NoError(t, err)
			assert.True(t, json.Valid([]byte(out)), "repaired output must be valid JSON: %s", out)
			assert.JSONEq(t, tt.want, out)
		})
	}
}

func TestRepairKoreanContentSurvives(t *testing.T) {
	in := "```json\n{\"summary\": \"그녀가 화를 냈다\", \"location_name\": \"왕궁 연회장\"\n```"
	out, err := Repair(in)
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "그녀가 화를 냈다", m["summary"])
	assert.Equal(t, "왕궁 연회장", m["location_name"])
}

func TestRepairUnrepairable(t *testing.T) {
	for _, in := range []string{
		"",
		"The model refused to answer.",
		"I cannot produce JSON for that request",
	} {
		_, err := Repair(in)
		assert.ErrorIs(t, err, ErrParse, "input %q", in)
	}
}
