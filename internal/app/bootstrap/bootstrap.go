package bootstrap

import (
	"context"
	"log/slog"
	"strings"

	"tapcoins/contexts/game-core/leaderboard"
	leaderboardapp "tapcoins/contexts/game-core/leaderboard/application"
	tapengine "tapcoins/contexts/game-core/tap-engine"
	"tapcoins/contexts/game-core/tap-engine/adapters/memory"
	postgresadapter "tapcoins/contexts/game-core/tap-engine/adapters/postgres"
	sqliteadapter "tapcoins/contexts/game-core/tap-engine/adapters/sqlite"
	"tapcoins/contexts/game-core/tap-engine/adapters/system"
	"tapcoins/contexts/game-core/tap-engine/ports"
	"tapcoins/internal/platform/config"
	"tapcoins/internal/platform/db"
	"tapcoins/internal/platform/events"
	"tapcoins/internal/platform/httpserver"
	"tapcoins/internal/platform/metrics"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server    *httpserver.Server
	tapEngine tapengine.Module
	postgres  *db.Postgres
	sqlite    *sqliteadapter.Store
	logger    *slog.Logger

	cancelSubscribers context.CancelFunc
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	app := &APIApp{logger: logger}
	gateway, err := app.buildGateway(cfg, logger)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(logger)
	leaderboardModule := leaderboard.NewModule(logger)

	tapModule := tapengine.NewModule(tapengine.Dependencies{
		Gateway:     metrics.InstrumentGateway{Next: gateway},
		Clock:       system.Clock{},
		Scheduler:   system.Scheduler{},
		IDGenerator: system.IDGenerator{},
		Projector:   projectorBridge{projector: leaderboardModule.Projector},
		Events:      bus,
		MaxEnergy:   cfg.MaxEnergy,
		FlushDelay:  cfg.FlushDelay,
		Logger:      logger,
	})
	app.tapEngine = tapModule

	subCtx, cancel := context.WithCancel(context.Background())
	app.cancelSubscribers = cancel
	bus.Subscribe(subCtx, func(_ context.Context, event ports.Event) {
		if event.Type == ports.EventAchievementUnlocked {
			metrics.AchievementUnlocksTotal.Inc()
		}
		logger.Info("domain event",
			"event", "tap_engine_domain_event",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"event_type", event.Type,
			"user_id", event.UserID,
		)
	})

	app.server = httpserver.New(tapModule, leaderboardModule, logger, httpserver.Options{
		Addr:          normalizeAddr(cfg.HTTPPort),
		EnableSwagger: cfg.EnableSwaggerRoute,
	})
	return app, nil
}

func (a *APIApp) buildGateway(cfg config.Config, logger *slog.Logger) (ports.Gateway, error) {
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.postgres = pg
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if err := repo.Migrate(); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return repo, nil

	case "sqlite":
		store, err := sqliteadapter.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		a.sqlite = store
		return store, nil

	default:
		return memory.NewStore(), nil
	}
}

func (a *APIApp) Run(_ context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

// Close ends every session (flushing pending progress, cancelling timers)
// before releasing the store.
func (a *APIApp) Close() error {
	if a.tapEngine.Service != nil {
		a.tapEngine.Service.Close()
	}
	if a.cancelSubscribers != nil {
		a.cancelSubscribers()
	}
	if a.postgres != nil {
		return a.postgres.Close()
	}
	if a.sqlite != nil {
		return a.sqlite.Close()
	}
	return nil
}

// projectorBridge feeds tap-engine leaderboard rows into the leaderboard
// context without coupling the two contexts' ports.
type projectorBridge struct {
	projector *leaderboardapp.Projector
}

func (b projectorBridge) Upsert(row ports.LeaderboardRow) {
	b.projector.Upsert(leaderboardapp.Entry{
		UserID:      row.UserID,
		DisplayName: row.DisplayName,
		Username:    row.Username,
		Coins:       row.Coins,
		TotalTaps:   row.TotalTaps,
	})
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
