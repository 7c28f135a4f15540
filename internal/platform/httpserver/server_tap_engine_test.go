package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tapcoins/contexts/game-core/leaderboard"
	leaderboardapp "tapcoins/contexts/game-core/leaderboard/application"
	tapengine "tapcoins/contexts/game-core/tap-engine"
	"tapcoins/contexts/game-core/tap-engine/ports"
)

type testBridge struct {
	projector *leaderboardapp.Projector
}

func (b testBridge) Upsert(row ports.LeaderboardRow) {
	b.projector.Upsert(leaderboardapp.Entry{
		UserID:      row.UserID,
		DisplayName: row.DisplayName,
		Username:    row.Username,
		Coins:       row.Coins,
		TotalTaps:   row.TotalTaps,
	})
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	leaderboardModule := leaderboard.NewModule(nil)
	tapModule := tapengine.NewInMemoryModule(testBridge{projector: leaderboardModule.Projector}, nil, nil)
	t.Cleanup(tapModule.Service.Close)
	return New(tapModule, leaderboardModule, nil, Options{})
}

func doJSON(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSessionTapAndLeaderboardFlow(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/sessions",
		`{"user_id":"u1","display_name":"Player One","username":"playerone"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("start session: status %d body %s", rec.Code, rec.Body.String())
	}
	var started struct {
		Status string `json:"status"`
		Data   struct {
			Coins        int    `json:"coins"`
			Energy       int    `json:"energy"`
			ReferralCode string `json:"referral_code"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if started.Status != "success" || started.Data.Coins != 0 {
		t.Fatalf("unexpected session payload: %+v", started)
	}
	if !strings.HasPrefix(started.Data.ReferralCode, "PLA") {
		t.Fatalf("expected referral code from username prefix, got %q", started.Data.ReferralCode)
	}

	rec = doJSON(t, server, http.MethodPost, "/v1/users/u1/taps", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("tap: status %d body %s", rec.Code, rec.Body.String())
	}
	var tapped struct {
		Data struct {
			Progress struct {
				Coins     int `json:"coins"`
				TotalTaps int `json:"total_taps"`
			} `json:"progress"`
			Unlocked *struct {
				ID string `json:"id"`
			} `json:"unlocked"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tapped); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tapped.Data.Progress.Coins != 101 || tapped.Data.Progress.TotalTaps != 1 {
		t.Fatalf("unexpected tap payload: %+v", tapped.Data.Progress)
	}
	if tapped.Data.Unlocked == nil || tapped.Data.Unlocked.ID != "first_tap" {
		t.Fatalf("expected first_tap unlock, got %+v", tapped.Data.Unlocked)
	}

	rec = doJSON(t, server, http.MethodGet, "/v1/leaderboard?user_id=u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard: status %d", rec.Code)
	}
	var board struct {
		Data []struct {
			Position int    `json:"position"`
			UserID   string `json:"user_id"`
			Coins    int    `json:"coins"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &board); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(board.Data) != 1 || board.Data[0].UserID != "u1" || board.Data[0].Coins != 101 {
		t.Fatalf("unexpected leaderboard: %+v", board.Data)
	}

	rec = doJSON(t, server, http.MethodDelete, "/v1/sessions/u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("end session: status %d", rec.Code)
	}
}

func TestListAchievementsReturnsFullCatalog(t *testing.T) {
	server := newTestServer(t)
	doJSON(t, server, http.MethodPost, "/v1/sessions",
		`{"user_id":"u1","display_name":"Player One"}`)
	doJSON(t, server, http.MethodPost, "/v1/users/u1/taps", "")

	rec := doJSON(t, server, http.MethodGet, "/v1/users/u1/achievements", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("achievements: status %d", rec.Code)
	}
	var list struct {
		Data []struct {
			Achievement struct {
				ID string `json:"id"`
			} `json:"achievement"`
			Unlocked bool `json:"unlocked"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Data) != 7 {
		t.Fatalf("expected 7 catalog entries, got %d", len(list.Data))
	}
	if list.Data[0].Achievement.ID != "first_tap" || !list.Data[0].Unlocked {
		t.Fatalf("expected unlocked first_tap first, got %+v", list.Data[0])
	}
	if list.Data[1].Unlocked {
		t.Fatal("expected hundred_taps still locked")
	}
}

func TestTapWithoutSessionReturns404(t *testing.T) {
	server := newTestServer(t)
	rec := doJSON(t, server, http.MethodPost, "/v1/users/ghost/taps", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var errResp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != "session_not_found" {
		t.Fatalf("expected session_not_found, got %q", errResp.Code)
	}
}

func TestStartSessionRejectsInvalidJSON(t *testing.T) {
	server := newTestServer(t)
	rec := doJSON(t, server, http.MethodPost, "/v1/sessions", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartSessionRejectsBlankIdentity(t *testing.T) {
	server := newTestServer(t)
	rec := doJSON(t, server, http.MethodPost, "/v1/sessions", `{"user_id":"","display_name":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLeaderboardRejectsBadLimit(t *testing.T) {
	server := newTestServer(t)
	rec := doJSON(t, server, http.MethodGet, "/v1/leaderboard?limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
