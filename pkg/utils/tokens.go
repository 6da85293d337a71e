package utils

import (
	"github.com/pkoukk/tiktoken-go"
)

// tokenizerModel picks the tiktoken encoding. The cl100k family is close
// enough for budgeting regardless of which chat model actually serves the
// turn.
const tokenizerModel = "gpt-4-0613"

// NumTokensFromMessages counts prompt tokens so a turn can size its
// completion budget: a long prompt (large previous state, long narrative
// chunk) needs a proportionally large completion ceiling or the state
// JSON comes back truncated.
func NumTokensFromMessages(text string) (int, error) {
	tkm, err := tiktoken.EncodingForModel(tokenizerModel)
	if err != nil {
		return 0, err
	}

	return len(tkm.Encode(text, nil, nil)), nil
}
