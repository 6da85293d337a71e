package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleGetRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "Visualboard Analysis API",
		"status":  "ok",
	})
}

// handleGetState returns the scenario's last persisted success record, so
// a viewer joining late can catch up without waiting for the next turn.
func (s *Server) handleGetState(c echo.Context) error {
	scenario := c.Param("scenario")

	record := s.Store.Load(scenario)
	if record == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no state for scenario"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"turnId":    record.TurnID,
		"state":     record.State,
		"timestamp": record.Timestamp,
	})
}
