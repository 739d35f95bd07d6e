package api

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/talgya/valley-farm/internal/advisor"
	"github.com/talgya/valley-farm/internal/pricing"
)

// lockedRand makes a *rand.Rand safe for concurrent handlers.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// handleReferencePrices answers POST /api/prices with jittered table prices.
// An empty crop list quotes every crop.
func (s *Server) handleReferencePrices(rng *rand.Rand) echo.HandlerFunc {
	src := &lockedRand{rng: rng}
	return func(c echo.Context) error {
		var req pricing.Request
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&req); err != nil {
				return c.String(http.StatusBadRequest, "invalid json")
			}
		}
		return c.JSON(http.StatusOK, pricing.Response{Prices: pricing.Quote(s.Crops, req.Crops, src)})
	}
}

// handleReferenceMentor answers POST /api/mentor. Without a configured model
// it returns the offline tip; model failures return the error tip.
func (s *Server) handleReferenceMentor(c echo.Context) error {
	var req advisor.Request
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid json")
	}
	req.Normalize()

	if s.Mentor == nil {
		return c.JSON(http.StatusOK, advisor.Response{Answer: advisor.OfflineTip})
	}
	resp, err := s.Mentor.Ask(c.Request().Context(), req)
	if err != nil || resp.Answer == "" {
		slog.Warn("mentor model failed", "error", err)
		return c.JSON(http.StatusOK, advisor.Response{Answer: advisor.ErrorTip})
	}
	return c.JSON(http.StatusOK, resp)
}

// handleReferenceProbability answers POST /api/probability.
func (s *Server) handleReferenceProbability(c echo.Context) error {
	var req advisor.ProbabilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	p, err := advisor.Probability(s.Crops, req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]float64{"probability": p})
}
