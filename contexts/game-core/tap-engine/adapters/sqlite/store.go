// Package sqliteadapter is the single-node gateway: a local sqlite file
// behind sqlx, useful for development and for installs without a remote
// backend.
package sqliteadapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainerrors "tapcoins/contexts/game-core/tap-engine/domain/errors"
	"tapcoins/contexts/game-core/tap-engine/domain/progression"
	"tapcoins/contexts/game-core/tap-engine/ports"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_progress (
	user_id                TEXT PRIMARY KEY,
	display_name           TEXT NOT NULL DEFAULT '',
	username               TEXT NOT NULL DEFAULT '',
	coins                  INTEGER NOT NULL DEFAULT 0,
	total_taps             INTEGER NOT NULL DEFAULT 0,
	energy                 INTEGER NOT NULL DEFAULT 0,
	max_energy             INTEGER NOT NULL DEFAULT 0,
	last_energy_refresh_at TIMESTAMP NOT NULL,
	energy_depletions      INTEGER NOT NULL DEFAULT 0,
	level                  INTEGER NOT NULL DEFAULT 1,
	rank                   TEXT NOT NULL DEFAULT 'Beginner',
	achievements_json      TEXT NOT NULL DEFAULT '[]',
	referral_code          TEXT NOT NULL DEFAULT '',
	referred_by            TEXT NOT NULL DEFAULT '',
	referral_count         INTEGER NOT NULL DEFAULT 0,
	created_at             TIMESTAMP NOT NULL,
	last_active_at         TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_user_progress_referral_code
	ON user_progress (referral_code) WHERE referral_code <> '';

CREATE TABLE IF NOT EXISTS leaderboard_entries (
	user_id      TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	username     TEXT NOT NULL DEFAULT '',
	coins        INTEGER NOT NULL DEFAULT 0,
	total_taps   INTEGER NOT NULL DEFAULT 0,
	updated_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leaderboard_coins
	ON leaderboard_entries (coins DESC);
`

type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open opens (creating if absent) the sqlite file at path and applies the
// schema. WAL keeps single-writer flushes from blocking readers.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

type userProgressRow struct {
	UserID              string    `db:"user_id"`
	DisplayName         string    `db:"display_name"`
	Username            string    `db:"username"`
	Coins               int       `db:"coins"`
	TotalTaps           int       `db:"total_taps"`
	Energy              int       `db:"energy"`
	MaxEnergy           int       `db:"max_energy"`
	LastEnergyRefreshAt time.Time `db:"last_energy_refresh_at"`
	EnergyDepletions    int       `db:"energy_depletions"`
	Level               int       `db:"level"`
	Rank                string    `db:"rank"`
	AchievementsJSON    string    `db:"achievements_json"`
	ReferralCode        string    `db:"referral_code"`
	ReferredBy          string    `db:"referred_by"`
	ReferralCount       int       `db:"referral_count"`
	CreatedAt           time.Time `db:"created_at"`
	LastActiveAt        time.Time `db:"last_active_at"`
}

func (s *Store) LoadUser(ctx context.Context, userID string) (ports.UserProgress, error) {
	var row userProgressRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM user_progress WHERE user_id = ?`, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.UserProgress{}, domainerrors.ErrUserNotFound
		}
		return ports.UserProgress{}, s.logError("tap_sqlite_load_user_failed", err, "user_id", userID)
	}
	var unlocked []string
	_ = json.Unmarshal([]byte(row.AchievementsJSON), &unlocked)
	return ports.UserProgress{
		UserID:              row.UserID,
		DisplayName:         row.DisplayName,
		Username:            row.Username,
		Coins:               row.Coins,
		TotalTaps:           row.TotalTaps,
		Energy:              row.Energy,
		MaxEnergy:           row.MaxEnergy,
		LastEnergyRefreshAt: row.LastEnergyRefreshAt,
		EnergyDepletions:    row.EnergyDepletions,
		Level:               row.Level,
		Rank:                progression.Rank(row.Rank),
		Achievements:        unlocked,
		ReferralCode:        row.ReferralCode,
		ReferredBy:          row.ReferredBy,
		ReferralCount:       row.ReferralCount,
		CreatedAt:           row.CreatedAt,
		LastActiveAt:        row.LastActiveAt,
	}, nil
}

func (s *Store) CreateUser(ctx context.Context, progress ports.UserProgress) error {
	achievementsJSON, err := json.Marshal(progress.Achievements)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_progress (
			user_id, display_name, username, coins, total_taps,
			energy, max_energy, last_energy_refresh_at, energy_depletions,
			level, rank, achievements_json,
			referral_code, referred_by, referral_count,
			created_at, last_active_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(progress.UserID), progress.DisplayName, progress.Username,
		progress.Coins, progress.TotalTaps,
		progress.Energy, progress.MaxEnergy, progress.LastEnergyRefreshAt.UTC(), progress.EnergyDepletions,
		progress.Level, string(progress.Rank), string(achievementsJSON),
		progress.ReferralCode, progress.ReferredBy, progress.ReferralCount,
		progress.CreatedAt.UTC(), progress.LastActiveAt.UTC(),
	)
	if err != nil {
		return s.logError("tap_sqlite_create_user_failed", err, "user_id", progress.UserID)
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, displayName string, username string, lastActiveAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_progress
		SET display_name = ?,
		    username = CASE WHEN ? <> '' THEN ? ELSE username END,
		    last_active_at = ?
		WHERE user_id = ?`,
		displayName, username, username, lastActiveAt.UTC(), strings.TrimSpace(userID))
	if err != nil {
		return s.logError("tap_sqlite_update_profile_failed", err, "user_id", userID)
	}
	return s.requireRow(res)
}

func (s *Store) ApplyIncrementalUpdate(ctx context.Context, userID string, update ports.ProgressUpdate) error {
	if update.Empty() && update.LastActiveAt.IsZero() {
		return nil
	}
	level := sql.NullInt64{}
	if update.Level != nil {
		level = sql.NullInt64{Int64: int64(*update.Level), Valid: true}
	}
	rank := sql.NullString{}
	if update.Rank != nil {
		rank = sql.NullString{String: string(*update.Rank), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_progress
		SET coins = MAX(coins + ?, 0),
		    total_taps = MAX(total_taps + ?, 0),
		    energy = MIN(MAX(energy + ?, 0), max_energy),
		    energy_depletions = energy_depletions + ?,
		    referral_count = referral_count + ?,
		    level = COALESCE(?, level),
		    rank = COALESCE(?, rank),
		    last_active_at = CASE WHEN ? THEN ? ELSE last_active_at END
		WHERE user_id = ?`,
		update.CoinsDelta, update.TapsDelta, update.EnergyDelta,
		update.EnergyDepletionsDelta, update.ReferralsDelta,
		level, rank,
		!update.LastActiveAt.IsZero(), update.LastActiveAt.UTC(),
		strings.TrimSpace(userID))
	if err != nil {
		return s.logError("tap_sqlite_incremental_update_failed", err, "user_id", userID)
	}
	return s.requireRow(res)
}

func (s *Store) RefreshEnergy(ctx context.Context, userID string, energy int, refreshedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_progress
		SET energy = ?, last_energy_refresh_at = ?
		WHERE user_id = ?`,
		energy, refreshedAt.UTC(), strings.TrimSpace(userID))
	if err != nil {
		return s.logError("tap_sqlite_refresh_energy_failed", err, "user_id", userID)
	}
	return s.requireRow(res)
}

func (s *Store) UpsertLeaderboardEntry(ctx context.Context, entry ports.LeaderboardUpsert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leaderboard_entries (user_id, display_name, username, coins, total_taps, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = excluded.display_name,
			username = excluded.username,
			coins = excluded.coins,
			total_taps = excluded.total_taps,
			updated_at = excluded.updated_at`,
		strings.TrimSpace(entry.UserID), entry.DisplayName, entry.Username,
		entry.Coins, entry.TotalTaps, entry.UpdatedAt.UTC())
	if err != nil {
		return s.logError("tap_sqlite_leaderboard_upsert_failed", err, "user_id", entry.UserID)
	}
	return nil
}

func (s *Store) QueryTopLeaderboard(ctx context.Context, limit int) ([]ports.LeaderboardRow, error) {
	if limit <= 0 {
		limit = 50
	}
	type row struct {
		UserID      string `db:"user_id"`
		DisplayName string `db:"display_name"`
		Username    string `db:"username"`
		Coins       int    `db:"coins"`
		TotalTaps   int    `db:"total_taps"`
	}
	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, display_name, username, coins, total_taps
		FROM leaderboard_entries
		ORDER BY coins DESC, updated_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, s.logError("tap_sqlite_leaderboard_query_failed", err)
	}
	items := make([]ports.LeaderboardRow, 0, len(rows))
	for _, r := range rows {
		items = append(items, ports.LeaderboardRow(r))
	}
	return items, nil
}

func (s *Store) requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

func (s *Store) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "game-core/tap-engine",
		"layer", "adapters/sqlite",
		"error", err,
	}, args...)
	s.logger.Error("sqlite gateway operation failed", fields...)
	return err
}
