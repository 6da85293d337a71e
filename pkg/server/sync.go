package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"visualboard/pkg/board"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// viewers embed the board from arbitrary origins
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleGetSync upgrades to a websocket and parks the viewer on the hub.
// The viewer gets the current state immediately, then live updates as
// turns complete.
func (s *Server) handleGetSync(c echo.Context) error {
	scenario := c.Param("scenario")

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "scenario", scenario, "error", err)
		return err
	}

	if record := s.Store.Load(scenario); record != nil && len(record.State.Scenes) > 0 {
		state := record.State
		if err := conn.WriteJSON(board.NewStateUpdate(scenario, &state)); err != nil {
			_ = conn.Close()
			return nil
		}
	}

	log.Debug("viewer joining", "scenario", scenario, "viewers", s.Hub.ViewerCount(scenario)+1)
	s.Hub.Attach(scenario, conn)
	return nil
}
