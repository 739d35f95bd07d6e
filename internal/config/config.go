// Package config loads service settings from a .env file and the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Weather drivers.
const (
	WeatherManual    = "manual"
	WeatherSimulated = "simulated"
	WeatherLive      = "live"
)

// Config holds every runtime setting for farmsim and farmhand.
type Config struct {
	Port         int
	DBPath       string
	FarmID       string
	SoilType     string
	GridRows     int
	GridCols     int
	TickInterval time.Duration

	PriceServiceURL  string
	MentorServiceURL string
	AnthropicAPIKey  string

	WeatherMode     string
	OpenWeatherKey  string
	WeatherLocation string

	AdminKey    string
	CORSOrigins []string
	LogLevel    slog.Level

	FarmAPIURL       string
	FarmhandInterval time.Duration
}

// Load reads .env (if present) then the environment, applying defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) Config {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}
	getInt := func(k string, def int) int {
		v := get(k, "")
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			slog.Warn("invalid integer setting, using default", "key", k, "value", v, "default", def)
			return def
		}
		return n
	}
	getDuration := func(k string, def time.Duration) time.Duration {
		v := get(k, "")
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("invalid duration setting, using default", "key", k, "value", v, "default", def)
			return def
		}
		return d
	}

	cfg := Config{
		Port:             getInt("PORT", 8080),
		DBPath:           get("DB_PATH", "data/farm.db"),
		FarmID:           get("FARM_ID", ""),
		SoilType:         strings.ToLower(get("SOIL_TYPE", "alluvial")),
		GridRows:         getInt("GRID_ROWS", 4),
		GridCols:         getInt("GRID_COLS", 6),
		TickInterval:     getDuration("TICK_INTERVAL", time.Second),
		PriceServiceURL:  get("PRICE_SERVICE_URL", ""),
		MentorServiceURL: get("MENTOR_SERVICE_URL", ""),
		AnthropicAPIKey:  get("ANTHROPIC_API_KEY", ""),
		WeatherMode:      strings.ToLower(get("WEATHER_MODE", WeatherManual)),
		OpenWeatherKey:   get("OPENWEATHER_API_KEY", ""),
		WeatherLocation:  get("WEATHER_LOCATION", "Patna,IN"),
		AdminKey:         get("ADMIN_KEY", ""),
		LogLevel:         parseLevel(get("LOG_LEVEL", "info")),
		FarmAPIURL:       strings.TrimRight(get("FARM_API_URL", "http://localhost:8080"), "/"),
		FarmhandInterval: getDuration("FARMHAND_INTERVAL", 20*time.Second),
	}
	for _, o := range strings.Split(get("CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	switch cfg.WeatherMode {
	case WeatherManual, WeatherSimulated, WeatherLive:
	default:
		slog.Warn("unknown weather mode, using manual", "mode", cfg.WeatherMode)
		cfg.WeatherMode = WeatherManual
	}
	return cfg
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Logger returns a text logger at the configured level.
func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: c.LogLevel}))
}
