package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StandingDTO struct {
	Position    int    `json:"position"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username,omitempty"`
	Coins       int    `json:"coins"`
	TotalTaps   int    `json:"total_taps"`
}

type LeaderboardResponse struct {
	Status string        `json:"status"`
	Data   []StandingDTO `json:"data"`
	// Viewer is the requesting user's own standing when it falls outside
	// the returned window.
	Viewer *StandingDTO `json:"viewer,omitempty"`
}
