package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"visualboard/pkg/board"
	"visualboard/pkg/schema"
	"visualboard/pkg/turn"
)

// The resolver trusts hint caps, so the transport layer enforces them.
const (
	maxCastHints       = 30
	maxAliasesPerHint  = 10
	defaultScenarioKey = "default"
)

type analyzeRequest struct {
	ScenarioKey string `json:"scenarioKey,omitempty"`
	turn.Input
}

// handlePostAnalyze runs one turn: repair, validate, merge, resolve, and
// persist. Identical in-flight or recently finished turns share one model
// call through the flight cache.
func (s *Server) handlePostAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ChatText == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "chatText is required"})
	}
	if req.ScenarioKey == "" {
		req.ScenarioKey = defaultScenarioKey
	}
	req.CastHints = capHints(req.CastHints)

	turnID := turn.ComputeTurnID(req.ChatText, req.MessageID)
	key := req.ScenarioKey + "\x00" + turnID

	result, err := s.Flights.Do(key, func() (*turn.Result, error) {
		return s.Runner.Run(c.Request().Context(), req.ScenarioKey, req.Input)
	})
	if err != nil {
		var turnErr *turn.Error
		if !errors.As(err, &turnErr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		switch turnErr.Code {
		case turn.CodeOpenAIError, turn.CodeEmptyResponse:
			return c.JSON(http.StatusBadGateway, echo.Map{"error": turnErr.Code})
		default:
			// parse and schema failures after the retry: the client keeps
			// its previous state, so this is a payload, not a transport
			// failure
			return c.JSON(http.StatusOK, echo.Map{"error": turnErr.Code})
		}
	}

	s.Hub.Broadcast(board.NewStateUpdate(req.ScenarioKey, result.State))

	return c.JSON(http.StatusOK, echo.Map{
		"turnId": result.TurnID,
		"state":  result.State,
	})
}

// handlePostReset wipes a scenario's record and tells attached viewers to
// clear their boards.
func (s *Server) handlePostReset(c echo.Context) error {
	scenario := c.Param("scenario")

	s.Store.Delete(scenario)
	s.Hub.Broadcast(board.NewReset(scenario))

	return c.JSON(http.StatusOK, echo.Map{"status": "reset"})
}

func capHints(hints []schema.CastHint) []schema.CastHint {
	if len(hints) > maxCastHints {
		hints = hints[:maxCastHints]
	}
	for i := range hints {
		if len(hints[i].Aliases) > maxAliasesPerHint {
			hints[i].Aliases = hints[i].Aliases[:maxAliasesPerHint]
		}
	}
	return hints
}
