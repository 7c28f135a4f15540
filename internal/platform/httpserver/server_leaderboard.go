package httpserver

import (
	"net/http"
	"strconv"
	"strings"
)

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if limitRaw := query.Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed < 0 {
			writeTapEngineError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	viewerID := strings.TrimSpace(query.Get("user_id"))

	resp, err := s.leaderboard.Handler.GetLeaderboardHandler(r.Context(), limit, viewerID)
	if err != nil {
		writeTapEngineError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
