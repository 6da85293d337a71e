// Package turn runs one request/response cycle: raw narrative text goes
// through inference, repair, validation, scene merging, and identity
// resolution, and the result is persisted as the scenario's last success
// record. Each turn is a single sequential pipeline; recoverable failures
// retry the whole pipeline exactly once with a fresh model call.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go/v3"
	"github.com/segmentio/ksuid"

	"visualboard/pkg/cast"
	"visualboard/pkg/inference"
	"visualboard/pkg/merge"
	"visualboard/pkg/repair"
	"visualboard/pkg/schema"
	"visualboard/pkg/store"
	"visualboard/pkg/utils"
	"visualboard/pkg/validate"
)

// MaxChatRunes caps the narrative text accepted per turn.
const MaxChatRunes = 50000

// Error codes that are not index-qualified validation failures.
const (
	CodeParseError    = "PARSE_ERROR"
	CodeOpenAIError   = "OPENAI_ERROR"
	CodeEmptyResponse = "EMPTY_RESPONSE"
)

// Error is the tagged failure a turn surfaces to its caller.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return e.Code + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// retriable reports whether a failure category is worth one fresh model
// call: parse and schema failures are, upstream generation failures are
// not.
func (e *Error) retriable() bool {
	return e.Code == CodeParseError || strings.HasPrefix(e.Code, "INVALID_")
}

// Input is one turn's request from the calling layer.
type Input struct {
	ChatText      string             `json:"chatText"`
	PreviousState *schema.StoryState `json:"previousState,omitempty"`
	CastHints     []schema.CastHint  `json:"castHints,omitempty"`
	// MessageID, when the caller has one, becomes the turn id; otherwise
	// the id is derived from the text so duplicate submissions dedupe.
	MessageID string `json:"messageId,omitempty"`
}

// Result is a successful turn: the merged state with resolved identities,
// and the cast store after resolution.
type Result struct {
	TurnID string
	State  *schema.StoryState
	Cast   *cast.Store
}

// Runner owns the per-turn pipeline for all scenarios. It assumes one
// active writer per scenario key at a time; concurrent writers race and
// the later write wins.
type Runner struct {
	Inferencer inference.Inferencer
	Store      *store.Store
}

// ComputeTurnID derives a stable id from the turn text: length plus a
// 50-rune prefix, so resubmitting identical text yields the same id.
func ComputeTurnID(text, messageID string) string {
	if messageID != "" {
		return messageID
	}
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return fmt.Sprintf("%d:%s", len([]rune(trimmed)), string(runes))
}

// Run executes one turn for a scenario. On success the last success
// record is replaced atomically; on failure the previously persisted
// record is left untouched and remains authoritative.
func (r *Runner) Run(ctx context.Context, scenarioKey string, in Input) (*Result, error) {
	// input validation is the caller's job; this guard only keeps an
	// accidental empty call from burning a model request
	text := strings.TrimSpace(in.ChatText)
	if text == "" {
		return nil, errors.New("chat text is empty")
	}
	if runes := []rune(text); len(runes) > MaxChatRunes {
		text = string(runes[:MaxChatRunes])
	}

	turnID := ComputeTurnID(text, in.MessageID)

	prior := r.Store.Load(scenarioKey)
	castStore := cast.NewStore()
	if prior != nil {
		castStore = cast.FromData(prior.Cast)
	}
	castStore.SeedHints(in.CastHints)

	previous := in.PreviousState
	if previous == nil && prior != nil && len(prior.State.Scenes) > 0 {
		state := prior.State
		previous = &state
	}

	state, err := r.attempt(ctx, 1, text, previous)
	if err != nil {
		var turnErr *Error
		if !errors.As(err, &turnErr) || !turnErr.retriable() {
			r.recordFailure(scenarioKey, prior, err)
			return nil, err
		}
		log.Warn("turn attempt failed, retrying once", "scenario", scenarioKey, "code", turnErr.Code)
		state, err = r.attempt(ctx, 2, text, previous)
		if err != nil {
			r.recordFailure(scenarioKey, prior, err)
			return nil, err
		}
	}

	castStore.ApplyState(state)

	record := &schema.LastSuccessRecord{
		TurnID:    turnID,
		State:     *state,
		Cast:      castStore.Data(),
		Timestamp: time.Now().UnixMilli(),
	}
	if err := r.Store.Save(scenarioKey, record); err != nil {
		// the turn itself succeeded; losing the record only costs history
		log.Warn("failed persisting last success record", "scenario", scenarioKey, "error", err)
	}

	log.Info("turn complete", "scenario", scenarioKey, "turn", utils.LimitStr(turnID, 40),
		"scenes", len(state.Scenes), "cast", castStore.Len())
	return &Result{TurnID: turnID, State: state, Cast: castStore}, nil
}

// attempt is one full generation+parse pass: infer, repair, validate,
// merge, and check invariants.
func (r *Runner) attempt(ctx context.Context, n int, text string, previous *schema.StoryState) (*schema.StoryState, error) {
	attemptID := ksuid.New().String()
	started := time.Now()
	user := buildUserPrompt(text, previous)

	params := &openai.ChatCompletionNewParams{
		Temperature:    openai.Float(0.7),
		ResponseFormat: schema.StructuredOutputsResponseFormat(),
	}
	if tokens, err := utils.NumTokensFromMessages(systemPrompt + user); err == nil {
		params.MaxCompletionTokens = openai.Int(max(int64(tokens), 3000))
		log.Debug("turn attempt started", "attempt", n, "id", attemptID, "tokens", tokens)
	} else {
		log.Debug("turn attempt started", "attempt", n, "id", attemptID, "chars", len(user))
	}

	out, err := r.Inferencer.Infer(ctx, params, systemPrompt, user)
	if err != nil {
		if errors.Is(err, inference.ErrEmpty) {
			log.Error("model returned empty response", "attempt", n, "id", attemptID)
			return nil, &Error{Code: CodeEmptyResponse, Err: err}
		}
		log.Error("model call failed", "attempt", n, "id", attemptID, "error", err)
		return nil, &Error{Code: CodeOpenAIError, Err: err}
	}

	if strings.Contains(out, "<think>") {
		if idx := strings.LastIndex(out, "</think>"); idx != -1 {
			out = out[idx+len("</think>"):]
		}
	}

	repaired, err := repair.Repair(out)
	if err != nil {
		log.Error("unrepairable model output", "attempt", n, "id", attemptID)
		log.Debug("raw output", "output", utils.LimitStr(out, 500))
		return nil, &Error{Code: CodeParseError, Err: err}
	}

	state, err := validate.Parse([]byte(repaired))
	if err != nil {
		var vErr *validate.Error
		if errors.As(err, &vErr) {
			log.Error("schema validation failed", "attempt", n, "id", attemptID, "code", vErr.Tag(), "field", vErr.Field)
			return nil, &Error{Code: vErr.Tag(), Err: err}
		}
		return nil, &Error{Code: validate.CodeInvalidResponseFormat, Err: err}
	}

	state.Scenes = merge.Scenes(state.Scenes)
	if len(state.Scenes) == 0 {
		return nil, &Error{Code: validate.CodeInvalidResponseFormat, Err: errors.New("no scenes after merge")}
	}
	if state.ActiveSceneIndex >= len(state.Scenes) {
		state.ActiveSceneIndex = len(state.Scenes) - 1
	}

	log.Debug("turn attempt succeeded", "attempt", n, "id", attemptID,
		"scenes", len(state.Scenes), "took", time.Since(started))
	return state, nil
}

// recordFailure stamps the failure code onto the existing record without
// touching its state or cast, so the last good state stays authoritative.
func (r *Runner) recordFailure(scenarioKey string, prior *schema.LastSuccessRecord, err error) {
	if prior == nil {
		return
	}
	var turnErr *Error
	if !errors.As(err, &turnErr) {
		return
	}
	prior.LastError = turnErr.Code
	if saveErr := r.Store.Save(scenarioKey, prior); saveErr != nil {
		log.Warn("failed recording turn failure", "scenario", scenarioKey, "error", saveErr)
	}
}
