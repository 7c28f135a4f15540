// Package memory is the in-memory gateway used for tests and local play.
// It also serves as the Clock and IDGenerator, mirroring how the real
// adapters bundle those concerns.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainerrors "tapcoins/contexts/game-core/tap-engine/domain/errors"
	"tapcoins/contexts/game-core/tap-engine/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	users       map[string]ports.UserProgress
	leaderboard map[string]ports.LeaderboardUpsert
	order       []string // leaderboard upsert order, for stable ties
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]ports.UserProgress),
		leaderboard: make(map[string]ports.LeaderboardUpsert),
	}
}

// SeedUser inserts a progress record directly, bypassing CreateUser
// validation. Test helper.
func (s *Store) SeedUser(progress ports.UserProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.TrimSpace(progress.UserID)] = progress
}

func (s *Store) LoadUser(_ context.Context, userID string) (ports.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	progress, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return ports.UserProgress{}, domainerrors.ErrUserNotFound
	}
	progress.Achievements = append([]string(nil), progress.Achievements...)
	return progress, nil
}

func (s *Store) CreateUser(_ context.Context, progress ports.UserProgress) error {
	userID := strings.TrimSpace(progress.UserID)
	if userID == "" {
		return domainerrors.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; ok {
		return domainerrors.ErrInvalidInput
	}
	s.users[userID] = progress
	return nil
}

func (s *Store) UpdateProfile(_ context.Context, userID string, displayName string, username string, lastActiveAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	progress, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return domainerrors.ErrUserNotFound
	}
	progress.DisplayName = displayName
	if username != "" {
		progress.Username = username
	}
	progress.LastActiveAt = lastActiveAt.UTC()
	s.users[strings.TrimSpace(userID)] = progress
	return nil
}

func (s *Store) ApplyIncrementalUpdate(_ context.Context, userID string, update ports.ProgressUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(userID)
	progress, ok := s.users[key]
	if !ok {
		return domainerrors.ErrUserNotFound
	}
	progress.Coins += update.CoinsDelta
	progress.TotalTaps += update.TapsDelta
	progress.Energy += update.EnergyDelta
	progress.EnergyDepletions += update.EnergyDepletionsDelta
	progress.ReferralCount += update.ReferralsDelta
	if update.Level != nil {
		progress.Level = *update.Level
	}
	if update.Rank != nil {
		progress.Rank = *update.Rank
	}
	if !update.LastActiveAt.IsZero() {
		progress.LastActiveAt = update.LastActiveAt.UTC()
	}
	s.users[key] = progress
	return nil
}

func (s *Store) RefreshEnergy(_ context.Context, userID string, energy int, refreshedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(userID)
	progress, ok := s.users[key]
	if !ok {
		return domainerrors.ErrUserNotFound
	}
	progress.Energy = energy
	progress.LastEnergyRefreshAt = refreshedAt.UTC()
	s.users[key] = progress
	return nil
}

func (s *Store) UpsertLeaderboardEntry(_ context.Context, entry ports.LeaderboardUpsert) error {
	key := strings.TrimSpace(entry.UserID)
	if key == "" {
		return domainerrors.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leaderboard[key]; !ok {
		s.order = append(s.order, key)
	}
	s.leaderboard[key] = entry
	return nil
}

func (s *Store) QueryTopLeaderboard(_ context.Context, limit int) ([]ports.LeaderboardRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows := make([]ports.LeaderboardRow, 0, len(s.leaderboard))
	for _, key := range s.order {
		entry := s.leaderboard[key]
		rows = append(rows, ports.LeaderboardRow{
			UserID:      entry.UserID,
			DisplayName: entry.DisplayName,
			Username:    entry.Username,
			Coins:       entry.Coins,
			TotalTaps:   entry.TotalTaps,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Coins > rows[j].Coins
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
