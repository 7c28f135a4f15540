package tapengine

import (
	"log/slog"
	"time"

	httpadapter "tapcoins/contexts/game-core/tap-engine/adapters/http"
	"tapcoins/contexts/game-core/tap-engine/adapters/memory"
	"tapcoins/contexts/game-core/tap-engine/adapters/system"
	"tapcoins/contexts/game-core/tap-engine/application"
	"tapcoins/contexts/game-core/tap-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service *application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Gateway     ports.Gateway
	Clock       ports.Clock
	Scheduler   ports.Scheduler
	IDGenerator ports.IDGenerator
	Projector   ports.Projector
	Events      ports.EventPublisher

	MaxEnergy             int
	FlushDelay            time.Duration
	UnlockDisplayDuration time.Duration

	Logger *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := &application.Service{
		Gateway:               deps.Gateway,
		Clock:                 deps.Clock,
		Scheduler:             deps.Scheduler,
		IDGen:                 deps.IDGenerator,
		Projector:             deps.Projector,
		Events:                deps.Events,
		Logger:                deps.Logger,
		MaxEnergy:             deps.MaxEnergy,
		FlushDelay:            deps.FlushDelay,
		UnlockDisplayDuration: deps.UnlockDisplayDuration,
	}
	return Module{
		Service: service,
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
	}
}

// NewInMemoryModule wires the engine against the in-memory gateway and the
// real wall clock. Used by development mode and the HTTP-level tests.
func NewInMemoryModule(projector ports.Projector, events ports.EventPublisher, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Gateway:     store,
		Clock:       system.Clock{},
		Scheduler:   system.Scheduler{},
		IDGenerator: store,
		Projector:   projector,
		Events:      events,
		Logger:      logger,
	})
	module.Store = store
	return module
}
