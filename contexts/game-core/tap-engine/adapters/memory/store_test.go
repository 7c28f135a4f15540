package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	domainerrors "tapcoins/contexts/game-core/tap-engine/domain/errors"
	"tapcoins/contexts/game-core/tap-engine/domain/progression"
	"tapcoins/contexts/game-core/tap-engine/ports"
)

func TestLoadUnknownUser(t *testing.T) {
	store := NewStore()
	_, err := store.LoadUser(context.Background(), "nobody")
	if !errors.Is(err, domainerrors.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreateThenLoadRoundTrip(t *testing.T) {
	store := NewStore()
	progress := ports.UserProgress{
		UserID:       "u1",
		DisplayName:  "Player",
		Coins:        10,
		Achievements: []string{"first_tap"},
		Rank:         progression.RankBeginner,
	}
	if err := store.CreateUser(context.Background(), progress); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateUser(context.Background(), progress); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected duplicate create rejection, got %v", err)
	}

	loaded, err := store.LoadUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Coins != 10 || len(loaded.Achievements) != 1 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestIncrementalUpdateAppliesDeltasAndOverwrites(t *testing.T) {
	store := NewStore()
	store.SeedUser(ports.UserProgress{UserID: "u1", Coins: 100, TotalTaps: 50, Energy: 10})

	level := 3
	rank := progression.RankBronze
	err := store.ApplyIncrementalUpdate(context.Background(), "u1", ports.ProgressUpdate{
		CoinsDelta:   25,
		TapsDelta:    25,
		EnergyDelta:  -5,
		Level:        &level,
		Rank:         &rank,
		LastActiveAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	loaded, _ := store.LoadUser(context.Background(), "u1")
	if loaded.Coins != 125 || loaded.TotalTaps != 75 || loaded.Energy != 5 {
		t.Fatalf("unexpected counters: %+v", loaded)
	}
	if loaded.Level != 3 || loaded.Rank != progression.RankBronze {
		t.Fatalf("unexpected overwrites: level=%d rank=%s", loaded.Level, loaded.Rank)
	}
}

func TestIncrementalUpdateUnknownUser(t *testing.T) {
	store := NewStore()
	err := store.ApplyIncrementalUpdate(context.Background(), "ghost", ports.ProgressUpdate{CoinsDelta: 1})
	if !errors.Is(err, domainerrors.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLeaderboardOrdersByCoinsWithStableTies(t *testing.T) {
	store := NewStore()
	upsert := func(userID string, coins int) {
		err := store.UpsertLeaderboardEntry(context.Background(), ports.LeaderboardUpsert{
			UserID: userID,
			Coins:  coins,
		})
		if err != nil {
			t.Fatalf("upsert %s: %v", userID, err)
		}
	}
	upsert("low", 1)
	upsert("tie_a", 50)
	upsert("tie_b", 50)
	upsert("high", 900)

	rows, err := store.QueryTopLeaderboard(context.Background(), 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected limit 3, got %d", len(rows))
	}
	want := []string{"high", "tie_a", "tie_b"}
	for i, userID := range want {
		if rows[i].UserID != userID {
			t.Fatalf("position %d: expected %s, got %s", i, userID, rows[i].UserID)
		}
	}

	// Re-upserting a tied entry keeps its place.
	upsert("tie_a", 50)
	rows, _ = store.QueryTopLeaderboard(context.Background(), 3)
	if rows[1].UserID != "tie_a" {
		t.Fatalf("tie order changed after re-upsert: %s", rows[1].UserID)
	}
}
