package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/talgya/valley-farm/internal/agronomy"
)

func TestMapToFarm(t *testing.T) {
	cases := []struct {
		name string
		c    *Conditions
		want agronomy.Weather
	}{
		{"nil", nil, agronomy.Normal},
		{"clear", &Conditions{Temp: 28, Humidity: 60}, agronomy.Normal},
		{"hail", &Conditions{Temp: 12, IsHail: true, IsRain: true, IsStorm: true}, agronomy.Hail},
		{"downpour", &Conditions{Temp: 26, IsRain: true, RainMM: 14}, agronomy.Flood},
		{"storm", &Conditions{Temp: 26, IsRain: true, IsStorm: true, RainMM: 2}, agronomy.Flood},
		{"heatwave", &Conditions{Temp: 42, Humidity: 18}, agronomy.Drought},
		{"humid heat", &Conditions{Temp: 42, Humidity: 70}, agronomy.Normal},
	}
	for _, c := range cases {
		if got := MapToFarm(c.c); got != c.want {
			t.Fatalf("%s: expected %s got %s", c.name, c.want, got)
		}
	}
}

func TestClientParsesAndCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("q") != "Patna,IN" || r.URL.Query().Get("appid") != "key" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"main":{"temp":24.5,"humidity":88},"weather":[{"id":502,"main":"Rain","description":"heavy intensity rain"}],"wind":{"speed":4},"rain":{"1h":12.5}}`))
	}))
	defer srv.Close()

	c := NewClient("key", "")
	c.baseURL = srv.URL
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	w, err := c.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if w != agronomy.Flood {
		t.Fatalf("expected flood got %s", w)
	}
	if _, err := c.Current(context.Background()); err != nil || calls != 1 {
		t.Fatalf("expected cached second call, calls=%d err=%v", calls, err)
	}
	now = now.Add(6 * time.Minute)
	if _, err := c.Current(context.Background()); err != nil || calls != 2 {
		t.Fatalf("expected refetch after TTL, calls=%d err=%v", calls, err)
	}
}

func TestClientBackoff(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("key", "Shimla,IN")
	c.baseURL = srv.URL
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := c.Fetch(context.Background()); err == nil || calls != 1 {
		t.Fatalf("expected backoff without a call, calls=%d", calls)
	}
	now = now.Add(61 * time.Second)
	c.Fetch(context.Background())
	if calls != 2 || c.failBackoff != 2*time.Minute {
		t.Fatalf("expected retry and doubled backoff, calls=%d backoff=%s", calls, c.failBackoff)
	}
}

func TestNewClientDisabled(t *testing.T) {
	if NewClient("", "x") != nil {
		t.Fatalf("expected nil client without key")
	}
}

func TestRollerDeterministic(t *testing.T) {
	a, b := NewRoller(42), NewRoller(42)
	seen := map[agronomy.Weather]bool{}
	for i := 0; i < 500; i++ {
		wa, wb := a.Next(), b.Next()
		if wa != wb {
			t.Fatalf("step %d: same seed diverged %s vs %s", i, wa, wb)
		}
		seen[wa] = true
	}
	if !seen[agronomy.Normal] {
		t.Fatalf("expected normal weather in a long series")
	}
}

func TestBand(t *testing.T) {
	cases := map[float64]agronomy.Weather{
		0.1:  agronomy.Drought,
		0.5:  agronomy.Normal,
		0.85: agronomy.Flood,
		0.95: agronomy.Hail,
	}
	for n, want := range cases {
		if got := band(n); got != want {
			t.Fatalf("band(%v) = %s want %s", n, got, want)
		}
	}
}
