package server

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"visualboard/pkg/board"
	"visualboard/pkg/flight"
	"visualboard/pkg/inference"
	"visualboard/pkg/store"
	"visualboard/pkg/turn"
)

// flightTTL keeps a finished turn around long enough for a client
// that retries the same request to get the cached result instead of
// a second model call.
const flightTTL = 30 * time.Second

type Server struct {
	Echo    *echo.Echo
	Runner  *turn.Runner
	Store   *store.Store
	Hub     *board.Hub
	Flights *flight.Cache[string, *turn.Result]
	Ctx     context.Context
}

func NewServer(ctx context.Context, inf inference.Inferencer, st *store.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.CORS())

	s := &Server{
		Echo:    e,
		Runner:  &turn.Runner{Inferencer: inf, Store: st},
		Store:   st,
		Hub:     board.NewHub(),
		Flights: flight.New[string, *turn.Result](flightTTL),
		Ctx:     ctx,
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.Echo.GET("/", s.handleGetRoot)

	api := s.Echo.Group("/api")
	api.POST("/analyze", s.handlePostAnalyze)       // chat text -> repaired, validated, merged state
	api.GET("/state/:scenario", s.handleGetState)   // last persisted state for a scenario
	api.GET("/sync/:scenario", s.handleGetSync)     // websocket, viewer joins the broadcast hub
	api.POST("/reset/:scenario", s.handlePostReset) // wipe the scenario and tell the viewers
}

func (s *Server) Start(addr string) error {
	log.Info("server listening", "addr", addr)
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("shutting down server")
	return s.Echo.Shutdown(ctx)
}
