package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	tapengineerrors "tapcoins/contexts/game-core/tap-engine/domain/errors"
	tapenginehttp "tapcoins/contexts/game-core/tap-engine/transport/http"
	"tapcoins/internal/platform/metrics"
)

func writeTapEngineError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, tapenginehttp.ErrorResponse{Code: code, Message: message})
}

func writeTapEngineDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tapengineerrors.ErrInvalidInput):
		writeTapEngineError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, tapengineerrors.ErrUserNotFound):
		writeTapEngineError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, tapengineerrors.ErrSessionNotFound):
		writeTapEngineError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, tapengineerrors.ErrPersistenceUnavailable):
		writeTapEngineError(w, http.StatusFailedDependency, "persistence_unavailable", err.Error())
	default:
		writeTapEngineError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req tapenginehttp.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTapEngineError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.tapEngine.Handler.StartSessionHandler(r.Context(), req)
	if err != nil {
		writeTapEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("user_id"))
	if userID == "" {
		writeTapEngineError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	resp, err := s.tapEngine.Handler.TapHandler(r.Context(), userID)
	if err != nil {
		if errors.Is(err, tapengineerrors.ErrEnergyExhausted) {
			// A defined rejection, not a server fault: the client keeps
			// its snapshot and waits for the refill.
			metrics.TapRejectionsTotal.Inc()
			writeTapEngineError(w, http.StatusConflict, "energy_exhausted", err.Error())
			return
		}
		writeTapEngineDomainError(w, err)
		return
	}
	metrics.TapsTotal.Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("user_id"))
	resp, err := s.tapEngine.Handler.GetProgressHandler(r.Context(), userID)
	if err != nil {
		writeTapEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("user_id"))
	resp, err := s.tapEngine.Handler.ListAchievementsHandler(r.Context(), userID)
	if err != nil {
		writeTapEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleApplyReferral(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("user_id"))
	resp, err := s.tapEngine.Handler.ApplyReferralHandler(r.Context(), userID)
	if err != nil {
		writeTapEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("user_id"))
	resp, err := s.tapEngine.Handler.EndSessionHandler(r.Context(), userID)
	if err != nil {
		writeTapEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
