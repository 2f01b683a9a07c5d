// Package httpapi exposes a running session over HTTP and pushes state
// changes to browser renderers over a WebSocket.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/session"
	"github.com/hammamikhairi/vocalpal/internal/shop"
)

// Runner executes work on the session's event loop. Do waits for fn to
// finish; Post does not.
type Runner interface {
	Post(fn func())
	Do(ctx context.Context, fn func()) error
}

// Controller is the session surface the API drives. Every method is called
// on the loop through Runner.
type Controller interface {
	State() session.State
	HandleTranscript(text string)
	ToggleMic()
	ShopView(done func(shop.View, error))
	Unlock(itemID string, done func(shop.View, error))
	Equip(itemID string, done func(shop.View, error))
}

// Compile-time interface check.
var _ Controller = (*session.Controller)(nil)

// Server is the HTTP surface for one session.
type Server struct {
	echo   *echo.Echo
	runner Runner
	ctrl   Controller
	hub    *hub
	log    *logger.Logger
}

// New builds the server and registers its routes. Wire Publish as a
// session observer so WebSocket clients see every change.
func New(runner Runner, ctrl Controller, log *logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("%s %s -> %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))

	s := &Server{
		echo:   e,
		runner: runner,
		ctrl:   ctrl,
		hub:    newHub(log),
		log:    log,
	}
	s.register()
	return s
}

func (s *Server) register() {
	s.echo.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	api := s.echo.Group("/api")
	api.GET("/state", s.state)
	api.POST("/transcript", s.transcript)
	api.POST("/mic", s.mic)
	api.GET("/shop", s.shopList)
	api.POST("/shop/:id/unlock", s.shopUnlock)
	api.POST("/shop/:id/equip", s.shopEquip)
	api.GET("/ws", s.stream)
}

// Handler returns the HTTP handler, for tests and custom servers.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr. It blocks until Shutdown and then returns nil.
func (s *Server) Start(addr string) error {
	s.log.Info("http api listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	return s.echo.Shutdown(ctx)
}

// Publish fans a state out to WebSocket clients. It never blocks.
func (s *Server) Publish(st session.State) {
	s.hub.publish(st)
}

// ── Handlers ─────────────────────────────────────────────────────

type transcriptRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) state(c echo.Context) error {
	return s.respondState(c, nil)
}

func (s *Server) transcript(c echo.Context) error {
	var req transcriptRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "text is required"})
	}
	return s.respondState(c, func() { s.ctrl.HandleTranscript(text) })
}

func (s *Server) mic(c echo.Context) error {
	return s.respondState(c, s.ctrl.ToggleMic)
}

func (s *Server) shopList(c echo.Context) error {
	return s.respondShop(c, func(done func(shop.View, error)) { s.ctrl.ShopView(done) })
}

func (s *Server) shopUnlock(c echo.Context) error {
	id := c.Param("id")
	return s.respondShop(c, func(done func(shop.View, error)) { s.ctrl.Unlock(id, done) })
}

func (s *Server) shopEquip(c echo.Context) error {
	id := c.Param("id")
	return s.respondShop(c, func(done func(shop.View, error)) { s.ctrl.Equip(id, done) })
}

// respondState runs action on the loop, if any, and replies with the state
// it left behind.
func (s *Server) respondState(c echo.Context, action func()) error {
	var st session.State
	err := s.runner.Do(c.Request().Context(), func() {
		if action != nil {
			action()
		}
		st = s.ctrl.State()
	})
	if err != nil {
		return s.loopError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

type shopReply struct {
	view shop.View
	err  error
}

// respondShop starts a shop call on the loop and waits for its completion,
// which arrives on the loop once the write has landed.
func (s *Server) respondShop(c echo.Context, call func(done func(shop.View, error))) error {
	ctx := c.Request().Context()
	replies := make(chan shopReply, 1)
	err := s.runner.Do(ctx, func() {
		call(func(v shop.View, err error) { replies <- shopReply{v, err} })
	})
	if err != nil {
		return s.loopError(c, err)
	}

	select {
	case r := <-replies:
		if r.err != nil {
			return c.JSON(shopStatus(r.err), errorResponse{Error: r.err.Error()})
		}
		return c.JSON(http.StatusOK, r.view)
	case <-ctx.Done():
		return s.loopError(c, ctx.Err())
	}
}

func (s *Server) loopError(c echo.Context, err error) error {
	s.log.Warn("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "session unavailable"})
}

func shopStatus(err error) int {
	var perr *domain.PersistenceError
	switch {
	case errors.Is(err, domain.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotEnoughStars),
		errors.Is(err, domain.ErrAlreadyUnlocked),
		errors.Is(err, domain.ErrNotUnlocked),
		errors.Is(err, domain.ErrNotEquippable):
		return http.StatusConflict
	case errors.As(err, &perr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
