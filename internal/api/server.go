// Package api provides the HTTP action surface of the farm.
// GET endpoints read state; POST endpoints perform player actions.
// Admin endpoints (speed, save) require a bearer token.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/talgya/valley-farm/internal/advisor"
	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/engine"
	"github.com/talgya/valley-farm/internal/farm"
	"github.com/talgya/valley-farm/internal/persistence"
)

// Server serves the farm over HTTP.
type Server struct {
	Farm     *farm.Farm
	Eng      *engine.Engine
	Crops    *crops.Table
	Mentor   advisor.Service // answers /api/mentor; nil = offline tip
	DB       *persistence.DB // optional; enables /save and event history
	Hub      *Hub
	Port     int
	AdminKey string // Bearer token for admin endpoints. Empty = admin disabled.

	CORSOrigins []string

	// Save persists the farm; wired by the binary so /save matches autosave.
	Save func() error

	echo *echo.Echo
}

// Handler builds the routes. Safe to call once; Start calls it.
func (s *Server) Handler() *echo.Echo {
	if s.echo != nil {
		return s.echo
	}
	if s.Crops == nil {
		s.Crops = crops.Default()
	}
	if s.Hub == nil {
		s.Hub = NewHub(DefaultMaxStreams)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.allowedOrigins(),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	// Rate limiters for endpoints that may call an LLM.
	mentorLimiter := NewRateLimiter(30, time.Hour)

	v1 := e.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.GET("/farm", s.handleFarm)
	v1.GET("/events", s.handleEvents)
	v1.GET("/farms", s.handleFarms)
	v1.GET("/schema", s.handleSchema)
	v1.GET("/export.xlsx", s.handleExport)
	v1.GET("/stream", s.handleStream)
	v1.GET("/recommendations", s.handleRecommendations)

	plots := v1.Group("/plots/:key")
	plots.GET("", s.handlePlot)
	plots.POST("/plant", s.handlePlant)
	plots.POST("/water", s.handleWater)
	plots.POST("/fertilize", s.handleFertilize)
	plots.POST("/harvest", s.handleHarvest)
	plots.POST("/assets", s.handleInstall)
	plots.DELETE("/assets", s.handleRemoveOne)
	plots.DELETE("/assets/:asset", s.handleRemove)
	plots.GET("/probability", s.handlePlotProbability)

	v1.POST("/market/sell", s.handleSell)
	v1.POST("/market/sell-all", s.handleSellAll)
	v1.POST("/storage/cereals", s.handleStoreCereals)
	v1.POST("/storage/produce", s.handleStoreProduce)
	v1.POST("/support", s.handleSupport)
	v1.POST("/seeds", s.handleBuySeeds)
	v1.POST("/prices/refresh", s.handleRefreshPrices)
	v1.POST("/mentor", s.handleAskMentor, RateLimit(mentorLimiter))

	settings := v1.Group("/settings")
	settings.PUT("/soil", s.handleSetSoil)
	settings.POST("/practices/:name", s.handleTogglePractice)
	settings.PUT("/fertilizer", s.handleSetFertilizer)
	settings.PUT("/weather", s.handleSetWeather)
	settings.PUT("/ph", s.handleSetPH)
	settings.PUT("/crop", s.handleSelectCrop)

	// Admin endpoints.
	v1.GET("/speed", s.handleSpeed)
	v1.POST("/speed", s.handleSpeed, s.adminOnly)
	v1.POST("/save", s.handleSave, s.adminOnly)

	// Reference backend: the price, mentor and probability services the
	// remote clients talk to, so one farmsim can serve another.
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5851f42d4c957f2d))
	ref := e.Group("/api")
	ref.POST("/prices", s.handleReferencePrices(rng))
	ref.POST("/mentor", s.handleReferenceMentor, RateLimit(mentorLimiter))
	ref.POST("/probability", s.handleReferenceProbability)

	s.echo = e
	return e
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	e := s.Handler()
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server and closes live streams.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.echo == nil {
		return nil
	}
	return s.echo.Shutdown(ctx)
}

// allowedOrigins returns the local dev servers plus configured origins.
func (s *Server) allowedOrigins() []string {
	origins := []string{
		"http://localhost:5173",
		"http://localhost:4173",
		"http://localhost:3000",
	}
	for _, o := range s.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get(echo.HeaderAuthorization)
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires the bearer token.
func (s *Server) adminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.AdminKey == "" {
			return c.String(http.StatusForbidden, "admin endpoints disabled (no ADMIN_KEY set)")
		}
		if !s.checkBearerToken(c.Request()) {
			return c.String(http.StatusUnauthorized, "unauthorized")
		}
		return next(c)
	}
}

type okBody struct {
	OK     bool `json:"ok"`
	Result any  `json:"result,omitempty"`
}

type errorBody struct {
	OK     bool   `json:"ok"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// statusOf maps an action failure kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, farm.ErrInsufficientResource):
		return http.StatusPaymentRequired
	case errors.Is(err, farm.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, farm.ErrUnsuitableConditions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, farm.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, farm.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func reply(c echo.Context, result any, err error) error {
	if err != nil {
		return c.JSON(statusOf(err), errorBody{Kind: farm.KindName(err), Reason: farm.Reason(err)})
	}
	return c.JSON(http.StatusOK, okBody{OK: true, Result: result})
}

func badRequest(c echo.Context, reason string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Kind: "invalid_input", Reason: reason})
}

func (s *Server) handleStatus(c echo.Context) error {
	res := s.Farm.Resources()
	status := map[string]any{
		"farm":     s.Farm.ID(),
		"revision": s.Farm.Revision(),
		"seeds":    res.Seeds,
		"coins":    res.Coins,
		"water":    res.Water,
		"weather":  s.Farm.Params().Weather,
		"streams":  s.Hub.Count(),
	}
	if s.Eng != nil {
		status["tick"] = s.Eng.Tick()
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleFarm(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Farm.View())
}

func (s *Server) handleEvents(c echo.Context) error {
	if s.DB == nil {
		return c.JSON(http.StatusOK, []farm.Event{})
	}
	events, err := s.DB.RecentEvents(s.Farm.ID(), 100)
	if err != nil {
		slog.Error("load events failed", "error", err)
		return c.String(http.StatusInternalServerError, "event history unavailable")
	}
	return c.JSON(http.StatusOK, events)
}

// farmSummary is a saved farm without its snapshot document.
type farmSummary struct {
	ID      string    `json:"id"`
	Soil    string    `json:"soil"`
	Tick    uint64    `json:"tick"`
	Coins   int       `json:"coins"`
	SavedAt time.Time `json:"savedAt"`
	Current bool      `json:"current"`
}

func (s *Server) handleFarms(c echo.Context) error {
	if s.DB == nil {
		return c.JSON(http.StatusOK, []farmSummary{})
	}
	recs, err := s.DB.ListFarms()
	if err != nil {
		slog.Error("list farms failed", "error", err)
		return c.String(http.StatusInternalServerError, "farm list unavailable")
	}
	out := make([]farmSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, farmSummary{
			ID:      r.ID,
			Soil:    r.Soil,
			Tick:    r.Tick,
			Coins:   r.Coins,
			SavedAt: time.UnixMilli(r.SavedAt).UTC(),
			Current: r.ID == s.Farm.ID(),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSchema(c echo.Context) error {
	b, err := farm.Schema()
	if err != nil {
		slog.Error("schema generation failed", "error", err)
		return c.String(http.StatusInternalServerError, "schema unavailable")
	}
	return c.JSONBlob(http.StatusOK, b)
}

func (s *Server) handleRecommendations(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"hint":            s.Farm.LiveHint(),
		"recommendations": s.Farm.Recommendations(),
	})
}

func (s *Server) handleSpeed(c echo.Context) error {
	if s.Eng == nil {
		return c.String(http.StatusServiceUnavailable, "engine not running")
	}
	if c.Request().Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := c.Bind(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid json")
		}
		if req.Speed < 0 || req.Speed > 1000 {
			return c.String(http.StatusBadRequest, "speed must be 0-1000")
		}
		s.Eng.SetSpeed(req.Speed)
	}
	return c.JSON(http.StatusOK, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSave(c echo.Context) error {
	if s.Save == nil {
		return c.String(http.StatusServiceUnavailable, "persistence not configured")
	}
	if err := s.Save(); err != nil {
		slog.Error("manual save failed", "error", err)
		return c.String(http.StatusInternalServerError, "save failed")
	}
	return c.JSON(http.StatusOK, okBody{OK: true})
}
