package leaderboard

import (
	"log/slog"

	httpadapter "tapcoins/contexts/game-core/leaderboard/adapters/http"
	"tapcoins/contexts/game-core/leaderboard/application"
)

type Module struct {
	Handler   httpadapter.Handler
	Projector *application.Projector
}

func NewModule(logger *slog.Logger) Module {
	projector := application.NewProjector()
	return Module{
		Projector: projector,
		Handler: httpadapter.Handler{
			Projector: projector,
			Logger:    logger,
		},
	}
}
