package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `toml:"service_name"`
	HTTPPort    string `toml:"http_port"`

	// StoreBackend selects the progress gateway: memory, sqlite or postgres.
	StoreBackend string `toml:"store_backend"`
	PostgresDSN  string `toml:"postgres_dsn"`
	SQLitePath   string `toml:"sqlite_path"`

	MaxEnergy          int           `toml:"max_energy"`
	FlushDelay         time.Duration `toml:"-"`
	FlushDelayMillis   int           `toml:"flush_delay_millis"`
	LeaderboardWindow  int           `toml:"leaderboard_window"`
	EnableSwaggerRoute bool          `toml:"enable_swagger_route"`
}

// Load reads defaults first, then overlays the optional TOML file named by
// TAPCOINS_CONFIG, then the environment. Env values win over the file.
func Load() (Config, error) {
	cfg := Config{
		ServiceName:        "tapcoins",
		HTTPPort:           "8080",
		StoreBackend:       "memory",
		SQLitePath:         "tapcoins.db",
		LeaderboardWindow:  50,
		EnableSwaggerRoute: true,
	}

	if path := strings.TrimSpace(os.Getenv("TAPCOINS_CONFIG")); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		cfg.HTTPPort = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.StoreBackend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := envInt("MAX_ENERGY", 0); v > 0 {
		cfg.MaxEnergy = v
	}
	if v := envInt("FLUSH_DELAY_MILLIS", 0); v > 0 {
		cfg.FlushDelayMillis = v
	}
	if v := envInt("LEADERBOARD_WINDOW", 0); v > 0 {
		cfg.LeaderboardWindow = v
	}
	cfg.EnableSwaggerRoute = envBool("ENABLE_SWAGGER_ROUTE", cfg.EnableSwaggerRoute)

	cfg.FlushDelay = time.Duration(cfg.FlushDelayMillis) * time.Millisecond

	switch cfg.StoreBackend {
	case "memory", "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == "postgres" && cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("store backend postgres requires POSTGRES_DSN")
	}
	return cfg, nil
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
