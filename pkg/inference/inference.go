// Package inference abstracts the upstream language model. The pipeline
// treats it as a black box that returns raw text or fails.
package inference

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
)

// ErrEmpty reports a completion that came back without content. The turn
// pipeline surfaces it as EMPTY_RESPONSE and does not retry.
var ErrEmpty = errors.New("empty completion content")

// Inferencer runs one model call.
type Inferencer interface {
	Infer(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error)
}
