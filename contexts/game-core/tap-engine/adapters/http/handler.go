package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"tapcoins/contexts/game-core/tap-engine/application"
	"tapcoins/contexts/game-core/tap-engine/domain/achievements"
	"tapcoins/contexts/game-core/tap-engine/ports"
	httptransport "tapcoins/contexts/game-core/tap-engine/transport/http"
)

type Handler struct {
	Service *application.Service
	Logger  *slog.Logger
}

func (h Handler) StartSessionHandler(ctx context.Context, req httptransport.StartSessionRequest) (httptransport.StartSessionResponse, error) {
	snapshot, err := h.Service.StartSession(ctx, ports.Identity{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Username:    req.Username,
		ReferredBy:  req.ReferredBy,
	})
	if err != nil {
		return httptransport.StartSessionResponse{}, err
	}
	return httptransport.StartSessionResponse{
		Status: "success",
		Data:   progressDTO(snapshot),
	}, nil
}

func (h Handler) TapHandler(ctx context.Context, userID string) (httptransport.TapResponse, error) {
	outcome, snapshot, err := h.Service.Tap(ctx, userID)
	if err != nil {
		return httptransport.TapResponse{}, err
	}
	resp := httptransport.TapResponse{Status: "success"}
	resp.Data.Progress = progressDTO(snapshot)
	resp.Data.EnergyDepleted = outcome.EnergyDepleted
	resp.Data.NewLevel = outcome.NewLevel
	if outcome.NewRank != nil {
		rank := string(*outcome.NewRank)
		resp.Data.NewRank = &rank
	}
	if outcome.Unlocked != nil {
		dto := achievementDTO(*outcome.Unlocked)
		resp.Data.Unlocked = &dto
	}
	resp.Data.UnlockedCount = outcome.UnlockedCount
	resp.Data.RewardCoins = outcome.RewardCoins
	return resp, nil
}

func (h Handler) GetProgressHandler(ctx context.Context, userID string) (httptransport.ProgressResponse, error) {
	snapshot, err := h.Service.Snapshot(ctx, userID)
	if err != nil {
		return httptransport.ProgressResponse{}, err
	}
	return httptransport.ProgressResponse{
		Status: "success",
		Data:   progressDTO(snapshot),
	}, nil
}

func (h Handler) ListAchievementsHandler(ctx context.Context, userID string) (httptransport.AchievementListResponse, error) {
	statuses, err := h.Service.AchievementStatuses(ctx, userID)
	if err != nil {
		return httptransport.AchievementListResponse{}, err
	}
	resp := httptransport.AchievementListResponse{
		Status: "success",
		Data:   make([]httptransport.AchievementStatusDTO, 0, len(statuses)),
	}
	for _, status := range statuses {
		resp.Data = append(resp.Data, httptransport.AchievementStatusDTO{
			Achievement: achievementDTO(status.Achievement),
			Unlocked:    status.Unlocked,
			Fraction:    status.Fraction,
			Current:     status.Current,
		})
	}
	return resp, nil
}

func (h Handler) ApplyReferralHandler(ctx context.Context, userID string) (httptransport.ReferralResponse, error) {
	snapshot, err := h.Service.ApplyReferral(ctx, userID)
	if err != nil {
		return httptransport.ReferralResponse{}, err
	}
	return httptransport.ReferralResponse{
		Status: "success",
		Data:   progressDTO(snapshot),
	}, nil
}

func (h Handler) EndSessionHandler(ctx context.Context, userID string) (httptransport.EndSessionResponse, error) {
	if err := h.Service.EndSession(ctx, userID); err != nil {
		return httptransport.EndSessionResponse{}, err
	}
	return httptransport.EndSessionResponse{Status: "success"}, nil
}

func progressDTO(snapshot application.ProgressSnapshot) httptransport.ProgressDTO {
	dto := httptransport.ProgressDTO{
		UserID:             snapshot.UserID,
		DisplayName:        snapshot.DisplayName,
		Username:           snapshot.Username,
		Coins:              snapshot.Coins,
		TotalTaps:          snapshot.TotalTaps,
		Energy:             snapshot.Energy,
		MaxEnergy:          snapshot.MaxEnergy,
		EnergyRefillInSecs: int(snapshot.EnergyRefillIn / time.Second),
		EnergyDepletions:   snapshot.EnergyDepletions,
		Level:              snapshot.Level,
		Rank:               string(snapshot.Rank),
		Achievements:       snapshot.Achievements,
		ReferralCode:       snapshot.ReferralCode,
		ReferralCount:      snapshot.ReferralCount,
	}
	if dto.Achievements == nil {
		dto.Achievements = []string{}
	}
	if snapshot.ActiveUnlock != nil {
		unlock := achievementDTO(*snapshot.ActiveUnlock)
		dto.ActiveUnlock = &unlock
	}
	return dto
}

func achievementDTO(achievement achievements.Achievement) httptransport.AchievementDTO {
	return httptransport.AchievementDTO{
		ID:          achievement.ID,
		Name:        achievement.Name,
		Description: achievement.Description,
		Icon:        achievement.Icon,
		Reward:      achievement.Reward.Coins,
	}
}
