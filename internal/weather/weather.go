// Package weather drives the farm's weather: live OpenWeatherMap conditions
// mapped onto farm weather, or a noise-driven roller for simulated seasons.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/talgya/valley-farm/internal/agronomy"
)

// Source reports the weather the farm should currently have.
type Source interface {
	Current(ctx context.Context) (agronomy.Weather, error)
}

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// Client fetches weather data from OpenWeatherMap.
type Client struct {
	apiKey   string
	location string
	baseURL  string
	client   *http.Client
	now      func() time.Time

	mu          sync.Mutex
	cached      *Conditions
	cachedAt    time.Time
	cacheTTL    time.Duration
	lastFailAt  time.Time
	failBackoff time.Duration
}

// NewClient creates a weather API client. Returns nil if apiKey is empty.
func NewClient(apiKey, location string) *Client {
	if apiKey == "" {
		return nil
	}
	if location == "" {
		location = "Patna,IN"
	}
	return &Client{
		apiKey:   apiKey,
		location: location,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
		cacheTTL: 5 * time.Minute,
	}
}

// Conditions holds parsed weather data from the API.
type Conditions struct {
	Temp        float64 `json:"temp"` // Celsius
	Humidity    float64 `json:"humidity"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"` // m/s
	RainMM      float64 `json:"rain_mm"`    // last hour
	IsStorm     bool    `json:"is_storm"`
	IsRain      bool    `json:"is_rain"`
	IsHail      bool    `json:"is_hail"`
}

// Current fetches conditions and maps them to farm weather.
func (c *Client) Current(ctx context.Context) (agronomy.Weather, error) {
	cond, err := c.Fetch(ctx)
	if err != nil {
		return agronomy.Normal, err
	}
	return MapToFarm(cond), nil
}

// Fetch retrieves current weather conditions, using cache if fresh.
func (c *Client) Fetch(ctx context.Context) (*Conditions, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.cached != nil && now.Sub(c.cachedAt) < c.cacheTTL {
		return c.cached, nil
	}

	// Backoff on repeated failures (up to 10 minutes).
	if c.failBackoff > 0 && now.Sub(c.lastFailAt) < c.failBackoff {
		if c.cached != nil {
			return c.cached, nil
		}
		return nil, fmt.Errorf("weather API backoff (%s remaining)", c.failBackoff-now.Sub(c.lastFailAt))
	}

	conditions, err := c.fetchFromAPI(ctx)
	if err != nil {
		c.lastFailAt = now
		if c.failBackoff == 0 {
			c.failBackoff = 1 * time.Minute
		} else if c.failBackoff < 10*time.Minute {
			c.failBackoff *= 2
		}
		slog.Warn("weather fetch failed", "location", c.location, "backoff", c.failBackoff, "error", err)
		if c.cached != nil {
			return c.cached, nil
		}
		return nil, err
	}

	c.cached = conditions
	c.cachedAt = now
	c.failBackoff = 0 // Reset backoff on success.
	return conditions, nil
}

func (c *Client) fetchFromAPI(ctx context.Context) (*Conditions, error) {
	apiURL := fmt.Sprintf("%s?q=%s&appid=%s&units=metric",
		c.baseURL, url.QueryEscape(c.location), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create weather request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather API call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API error %d: %s", resp.StatusCode, string(body))
	}

	// Parse OpenWeatherMap response.
	var owm struct {
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			ID          int    `json:"id"`
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Rain struct {
			OneHour float64 `json:"1h"`
		} `json:"rain"`
	}

	if err := json.Unmarshal(body, &owm); err != nil {
		return nil, fmt.Errorf("parse weather: %w", err)
	}

	conditions := &Conditions{
		Temp:      owm.Main.Temp,
		Humidity:  owm.Main.Humidity,
		WindSpeed: owm.Wind.Speed,
		RainMM:    owm.Rain.OneHour,
	}

	if len(owm.Weather) > 0 {
		w := owm.Weather[0]
		conditions.Description = w.Description
		main := strings.ToLower(w.Main)
		conditions.IsRain = main == "rain" || main == "drizzle" || main == "thunderstorm"
		conditions.IsStorm = main == "thunderstorm" || conditions.WindSpeed > 15
		// 906 is the legacy hail code; newer payloads only mention it in the description.
		conditions.IsHail = w.ID == 906 || strings.Contains(strings.ToLower(w.Description), "hail")
	}

	slog.Debug("weather fetched", "temp", conditions.Temp, "desc", conditions.Description, "rain_mm", conditions.RainMM)
	return conditions, nil
}

// Thresholds for mapping live conditions onto farm weather.
const (
	FloodRainMM     = 10.0
	DroughtTemp     = 38.0
	DroughtHumidity = 30.0
)

// MapToFarm converts real weather conditions to the farm's weather.
func MapToFarm(c *Conditions) agronomy.Weather {
	switch {
	case c == nil:
		return agronomy.Normal
	case c.IsHail:
		return agronomy.Hail
	case c.RainMM >= FloodRainMM || (c.IsStorm && c.IsRain):
		return agronomy.Flood
	case !c.IsRain && c.Temp >= DroughtTemp && c.Humidity < DroughtHumidity:
		return agronomy.Drought
	}
	return agronomy.Normal
}
