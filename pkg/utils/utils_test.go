package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pestel", "pestel"},
		{" Pestel  ", "pestel"},
		{"공작부인   리리슈", "공작부인 리리슈"},
		{"\tThe  Crown\nPrince ", "the crown prince"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.in), "input %q", tt.in)
	}
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "..%2Fsneaky%2Fkey", SanitizeFilename("../sneaky/key"))
	assert.Equal(t, "c%3A%5Cscenario", SanitizeFilename(`c:\scenario`))
	assert.Equal(t, "room_a", SanitizeFilename("room_a"))
	assert.NotEqual(t, SanitizeFilename("room_a"), SanitizeFilename("room/a"))
}

func TestLimitStr(t *testing.T) {
	assert.Equal(t, "abc", LimitStr("abc", 5))
	assert.Equal(t, "abcde...", LimitStr("abcdefgh", 5))
}

func TestDiffSummary(t *testing.T) {
	assert.Empty(t, DiffSummary("same text", "same text"))

	out := DiffSummary("she smiled warmly", "she frowned warmly")
	assert.Contains(t, out, "-smiled")
	assert.Contains(t, out, "+frowned")
}
