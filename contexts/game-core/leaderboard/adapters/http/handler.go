package httpadapter

import (
	"context"
	"log/slog"

	"tapcoins/contexts/game-core/leaderboard/application"
	httptransport "tapcoins/contexts/game-core/leaderboard/transport/http"
)

type Handler struct {
	Projector *application.Projector
	Logger    *slog.Logger
}

// GetLeaderboardHandler returns the ranked window; when viewerID is set and
// ranks below the window, the viewer's own standing rides along.
func (h Handler) GetLeaderboardHandler(_ context.Context, limit int, viewerID string) (httptransport.LeaderboardResponse, error) {
	standings := h.Projector.Top(limit)
	resp := httptransport.LeaderboardResponse{
		Status: "success",
		Data:   make([]httptransport.StandingDTO, 0, len(standings)),
	}
	inWindow := false
	for _, standing := range standings {
		if standing.Entry.UserID == viewerID {
			inWindow = true
		}
		resp.Data = append(resp.Data, standingDTO(standing))
	}
	if viewerID != "" && !inWindow {
		if standing, ok := h.Projector.StandingOf(viewerID); ok {
			dto := standingDTO(standing)
			resp.Viewer = &dto
		}
	}
	return resp, nil
}

func standingDTO(standing application.Standing) httptransport.StandingDTO {
	return httptransport.StandingDTO{
		Position:    standing.Position,
		UserID:      standing.Entry.UserID,
		DisplayName: standing.Entry.DisplayName,
		Username:    standing.Entry.Username,
		Coins:       standing.Entry.Coins,
		TotalTaps:   standing.Entry.TotalTaps,
	}
}
