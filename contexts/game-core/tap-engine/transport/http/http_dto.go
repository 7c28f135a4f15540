package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StartSessionRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username,omitempty"`
	ReferredBy  string `json:"referred_by,omitempty"`
}

// ProgressDTO is the shared progress payload of session, tap and snapshot
// responses.
type ProgressDTO struct {
	UserID             string          `json:"user_id"`
	DisplayName        string          `json:"display_name"`
	Username           string          `json:"username,omitempty"`
	Coins              int             `json:"coins"`
	TotalTaps          int             `json:"total_taps"`
	Energy             int             `json:"energy"`
	MaxEnergy          int             `json:"max_energy"`
	EnergyRefillInSecs int             `json:"energy_refill_in_seconds"`
	EnergyDepletions   int             `json:"energy_depletions"`
	Level              int             `json:"level"`
	Rank               string          `json:"rank"`
	Achievements       []string        `json:"achievements"`
	ReferralCode       string          `json:"referral_code"`
	ReferralCount      int             `json:"referral_count"`
	ActiveUnlock       *AchievementDTO `json:"active_unlock,omitempty"`
}

type AchievementDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Reward      int    `json:"reward"`
}

type StartSessionResponse struct {
	Status string      `json:"status"`
	Data   ProgressDTO `json:"data"`
}

type TapResponse struct {
	Status string `json:"status"`
	Data   struct {
		Progress       ProgressDTO     `json:"progress"`
		EnergyDepleted bool            `json:"energy_depleted,omitempty"`
		NewLevel       *int            `json:"new_level,omitempty"`
		NewRank        *string         `json:"new_rank,omitempty"`
		Unlocked       *AchievementDTO `json:"unlocked,omitempty"`
		UnlockedCount  int             `json:"unlocked_count,omitempty"`
		RewardCoins    int             `json:"reward_coins,omitempty"`
	} `json:"data"`
}

type ProgressResponse struct {
	Status string      `json:"status"`
	Data   ProgressDTO `json:"data"`
}

type AchievementStatusDTO struct {
	Achievement AchievementDTO `json:"achievement"`
	Unlocked    bool           `json:"unlocked"`
	Fraction    float64        `json:"fraction"`
	Current     int            `json:"current"`
}

type AchievementListResponse struct {
	Status string                 `json:"status"`
	Data   []AchievementStatusDTO `json:"data"`
}

type ReferralResponse struct {
	Status string      `json:"status"`
	Data   ProgressDTO `json:"data"`
}

type EndSessionResponse struct {
	Status string `json:"status"`
}
