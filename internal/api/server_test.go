package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/valley-farm/internal/advisor"
	"github.com/talgya/valley-farm/internal/clock"
	"github.com/talgya/valley-farm/internal/engine"
	"github.com/talgya/valley-farm/internal/farm"
	"github.com/talgya/valley-farm/internal/persistence"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	f := farm.New(farm.Options{
		ID:        "api-test",
		Scheduler: clock.NewManual(time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)),
	})
	t.Cleanup(f.Close)
	return &Server{Farm: f, Eng: engine.NewEngine(), AdminKey: "secret"}
}

func do(t *testing.T, s *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestPlantAndErrorMapping(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/plots/1-1/plant", `{"crop":"rice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("plant: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["ok"] != true {
		t.Fatalf("expected ok body got %v", body)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/plots/1-1/plant", `{"crop":"rice"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("replant: expected 409 got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["ok"] != false || body["kind"] != "invalid_state" || body["reason"] == "" {
		t.Fatalf("unexpected error body %v", body)
	}

	if rec := do(t, s, http.MethodPost, "/api/v1/plots/9-9/plant", `{"crop":"rice"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("outside grid: expected 400 got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/plots/abc/plant", `{"crop":"rice"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad key: expected 400 got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/market/sell-all", ""); rec.Code != http.StatusConflict {
		t.Fatalf("sell-all empty: expected 409 got %d", rec.Code)
	}
}

func TestSetPHAcceptsStringsAndRejectsGarbage(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/api/v1/settings/ph", `{"ph":"12"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := s.Farm.Params().PH; got != 9 {
		t.Fatalf("expected pH clamped to 9 got %v", got)
	}
	if rec := do(t, s, http.MethodPut, "/api/v1/settings/ph", `{"ph":"acid"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	s := newTestServer(t)

	if rec := do(t, s, http.MethodPost, "/api/v1/speed", `{"speed":5}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401 got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/speed", `{"speed":5}`, "Authorization", "Bearer nope"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: expected 401 got %d", rec.Code)
	}
	rec := do(t, s, http.MethodPost, "/api/v1/speed", `{"speed":5}`, "Authorization", "Bearer secret")
	if rec.Code != http.StatusOK || s.Eng.Speed() != 5 {
		t.Fatalf("expected speed 5, got %d / %v", rec.Code, s.Eng.Speed())
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/speed", ""); rec.Code != http.StatusOK {
		t.Fatalf("GET speed should be public, got %d", rec.Code)
	}

	s2 := newTestServer(t)
	s2.AdminKey = ""
	if rec := do(t, s2, http.MethodPost, "/api/v1/save", "", "Authorization", "Bearer "); rec.Code != http.StatusForbidden {
		t.Fatalf("admin disabled: expected 403 got %d", rec.Code)
	}
}

func TestReferenceEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/prices", `{"crops":["rice","tea"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("prices: expected 200 got %d", rec.Code)
	}
	prices := decode(t, rec)["prices"].(map[string]any)
	if len(prices) != 2 {
		t.Fatalf("expected two quotes got %v", prices)
	}
	rice := prices["rice"].(float64)
	if rice < 35*0.9-1.5 || rice > 35*1.1+1.5 {
		t.Fatalf("rice quote %v outside band", rice)
	}

	rec = do(t, s, http.MethodPost, "/api/mentor", `{"question":""}`)
	if got := decode(t, rec)["answer"]; got != advisor.OfflineTip {
		t.Fatalf("expected offline tip got %v", got)
	}

	rec = do(t, s, http.MethodPost, "/api/probability", `{"crop":"rice","soil":"alluvial"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("probability: expected 200 got %d", rec.Code)
	}
	if p := decode(t, rec)["probability"].(float64); p <= 0 || p > 1 {
		t.Fatalf("probability %v out of range", p)
	}
	if rec := do(t, s, http.MethodPost, "/api/probability", `{"crop":"rice","soil":"desert"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad soil: expected 400 got %d", rec.Code)
	}
}

func TestReadEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/farm", "")
	if rec.Code != http.StatusOK || decode(t, rec)["id"] != "api-test" {
		t.Fatalf("farm view: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/schema", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Valley farm snapshot") {
		t.Fatalf("schema: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/events", ""); rec.Code != http.StatusOK {
		t.Fatalf("events without db: %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/v1/export.xlsx", "")
	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Fatalf("export: %d len %d", rec.Code, rec.Body.Len())
	}
}

func TestHubLimitsAndNeverBlocks(t *testing.T) {
	h := NewHub(1)
	ch, ok := h.Subscribe()
	if !ok {
		t.Fatalf("first subscriber refused")
	}
	if _, ok := h.Subscribe(); ok {
		t.Fatalf("second subscriber should be refused")
	}
	for i := 0; i < streamBuffer*2; i++ {
		h.Publish(farm.Event{Kind: farm.EventNews})
	}
	if len(ch) != streamBuffer {
		t.Fatalf("expected full buffer of %d got %d", streamBuffer, len(ch))
	}
	h.Unsubscribe(ch)
	if h.Count() != 0 {
		t.Fatalf("expected no subscribers")
	}
	h.Close()
	if _, ok := h.Subscribe(); ok {
		t.Fatalf("closed hub accepted a subscriber")
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("other clients are independent")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Fatalf("expected retry after 61 got %d", got)
	}
	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("window reset should allow again")
	}
}

func TestFarmsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/farms", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("farms without db: %d %s", rec.Code, rec.Body.String())
	}

	db, err := persistence.Open(filepath.Join(t.TempDir(), "farms.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := db.SaveFarm(s.Farm.Snapshot(), 12); err != nil {
		t.Fatalf("save farm: %v", err)
	}
	s.DB = db

	rec = do(t, s, http.MethodGet, "/api/v1/farms", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("farms: %d %s", rec.Code, rec.Body.String())
	}
	var out []farmSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode farms: %v", err)
	}
	if len(out) != 1 || out[0].ID != "api-test" || out[0].Tick != 12 || !out[0].Current {
		t.Fatalf("unexpected farms %+v", out)
	}
}
