package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainerrors "tapcoins/contexts/game-core/tap-engine/domain/errors"
	"tapcoins/contexts/game-core/tap-engine/domain/progression"
	"tapcoins/contexts/game-core/tap-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// Migrate creates or updates the backing tables.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&userProgressModel{}, &leaderboardEntryModel{})
}

type userProgressModel struct {
	UserID              string    `gorm:"column:user_id;primaryKey"`
	DisplayName         string    `gorm:"column:display_name"`
	Username            string    `gorm:"column:username"`
	Coins               int       `gorm:"column:coins"`
	TotalTaps           int       `gorm:"column:total_taps"`
	Energy              int       `gorm:"column:energy"`
	MaxEnergy           int       `gorm:"column:max_energy"`
	LastEnergyRefreshAt time.Time `gorm:"column:last_energy_refresh_at"`
	EnergyDepletions    int       `gorm:"column:energy_depletions"`
	Level               int       `gorm:"column:level"`
	Rank                string    `gorm:"column:rank"`
	AchievementsJSON    string    `gorm:"column:achievements_json"`
	ReferralCode        string    `gorm:"column:referral_code;uniqueIndex"`
	ReferredBy          string    `gorm:"column:referred_by"`
	ReferralCount       int       `gorm:"column:referral_count"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	LastActiveAt        time.Time `gorm:"column:last_active_at"`
}

func (userProgressModel) TableName() string { return "user_progress" }

type leaderboardEntryModel struct {
	UserID      string    `gorm:"column:user_id;primaryKey"`
	DisplayName string    `gorm:"column:display_name"`
	Username    string    `gorm:"column:username"`
	Coins       int       `gorm:"column:coins;index:idx_leaderboard_coins,sort:desc"`
	TotalTaps   int       `gorm:"column:total_taps"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (leaderboardEntryModel) TableName() string { return "leaderboard_entries" }

func (r *Repository) LoadUser(ctx context.Context, userID string) (ports.UserProgress, error) {
	var row userProgressModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.UserProgress{}, domainerrors.ErrUserNotFound
		}
		return ports.UserProgress{}, r.logError("tap_repo_load_user_failed", err, "user_id", strings.TrimSpace(userID))
	}
	return row.toProgress(), nil
}

func (r *Repository) CreateUser(ctx context.Context, progress ports.UserProgress) error {
	row, err := modelFromProgress(progress)
	if err != nil {
		return err
	}
	if createErr := r.db.WithContext(ctx).Create(&row).Error; createErr != nil {
		if isUniqueViolation(createErr) {
			return domainerrors.ErrInvalidInput
		}
		return r.logError("tap_repo_create_user_failed", createErr, "user_id", row.UserID)
	}
	return nil
}

func (r *Repository) UpdateProfile(ctx context.Context, userID string, displayName string, username string, lastActiveAt time.Time) error {
	updates := map[string]any{
		"display_name":   displayName,
		"last_active_at": lastActiveAt.UTC(),
	}
	if username != "" {
		updates["username"] = username
	}
	tx := r.db.WithContext(ctx).Model(&userProgressModel{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Updates(updates)
	if tx.Error != nil {
		return r.logError("tap_repo_update_profile_failed", tx.Error, "user_id", strings.TrimSpace(userID))
	}
	if tx.RowsAffected == 0 {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

// ApplyIncrementalUpdate applies one batched flush in a single statement:
// counter fields are commutative increments, level/rank are last-write-wins
// overwrites. Energy is clamped into [0, max_energy] at the write boundary.
func (r *Repository) ApplyIncrementalUpdate(ctx context.Context, userID string, update ports.ProgressUpdate) error {
	updates := map[string]any{}
	if update.CoinsDelta != 0 {
		updates["coins"] = gorm.Expr("GREATEST(coins + ?, 0)", update.CoinsDelta)
	}
	if update.TapsDelta != 0 {
		updates["total_taps"] = gorm.Expr("GREATEST(total_taps + ?, 0)", update.TapsDelta)
	}
	if update.EnergyDelta != 0 {
		updates["energy"] = gorm.Expr("LEAST(GREATEST(energy + ?, 0), max_energy)", update.EnergyDelta)
	}
	if update.EnergyDepletionsDelta != 0 {
		updates["energy_depletions"] = gorm.Expr("energy_depletions + ?", update.EnergyDepletionsDelta)
	}
	if update.ReferralsDelta != 0 {
		updates["referral_count"] = gorm.Expr("referral_count + ?", update.ReferralsDelta)
	}
	if update.Level != nil {
		updates["level"] = *update.Level
	}
	if update.Rank != nil {
		updates["rank"] = string(*update.Rank)
	}
	if !update.LastActiveAt.IsZero() {
		updates["last_active_at"] = update.LastActiveAt.UTC()
	}
	if len(updates) == 0 {
		return nil
	}
	tx := r.db.WithContext(ctx).Model(&userProgressModel{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Updates(updates)
	if tx.Error != nil {
		return r.logError("tap_repo_incremental_update_failed", tx.Error, "user_id", strings.TrimSpace(userID))
	}
	if tx.RowsAffected == 0 {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

func (r *Repository) RefreshEnergy(ctx context.Context, userID string, energy int, refreshedAt time.Time) error {
	tx := r.db.WithContext(ctx).Model(&userProgressModel{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Updates(map[string]any{
			"energy":                 energy,
			"last_energy_refresh_at": refreshedAt.UTC(),
		})
	if tx.Error != nil {
		return r.logError("tap_repo_refresh_energy_failed", tx.Error, "user_id", strings.TrimSpace(userID))
	}
	if tx.RowsAffected == 0 {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

func (r *Repository) UpsertLeaderboardEntry(ctx context.Context, entry ports.LeaderboardUpsert) error {
	row := leaderboardEntryModel{
		UserID:      strings.TrimSpace(entry.UserID),
		DisplayName: entry.DisplayName,
		Username:    entry.Username,
		Coins:       entry.Coins,
		TotalTaps:   entry.TotalTaps,
		UpdatedAt:   entry.UpdatedAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"display_name": row.DisplayName,
			"username":     row.Username,
			"coins":        row.Coins,
			"total_taps":   row.TotalTaps,
			"updated_at":   row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("tap_repo_leaderboard_upsert_failed", create.Error, "user_id", row.UserID)
	}
	return nil
}

func (r *Repository) QueryTopLeaderboard(ctx context.Context, limit int) ([]ports.LeaderboardRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []leaderboardEntryModel
	err := r.db.WithContext(ctx).
		Order("coins DESC").
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("tap_repo_leaderboard_query_failed", err)
	}
	items := make([]ports.LeaderboardRow, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.LeaderboardRow{
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			Username:    row.Username,
			Coins:       row.Coins,
			TotalTaps:   row.TotalTaps,
		})
	}
	return items, nil
}

func modelFromProgress(progress ports.UserProgress) (userProgressModel, error) {
	achievementsJSON, err := json.Marshal(progress.Achievements)
	if err != nil {
		return userProgressModel{}, err
	}
	return userProgressModel{
		UserID:              strings.TrimSpace(progress.UserID),
		DisplayName:         progress.DisplayName,
		Username:            progress.Username,
		Coins:               progress.Coins,
		TotalTaps:           progress.TotalTaps,
		Energy:              progress.Energy,
		MaxEnergy:           progress.MaxEnergy,
		LastEnergyRefreshAt: progress.LastEnergyRefreshAt.UTC(),
		EnergyDepletions:    progress.EnergyDepletions,
		Level:               progress.Level,
		Rank:                string(progress.Rank),
		AchievementsJSON:    string(achievementsJSON),
		ReferralCode:        progress.ReferralCode,
		ReferredBy:          progress.ReferredBy,
		ReferralCount:       progress.ReferralCount,
		CreatedAt:           progress.CreatedAt.UTC(),
		LastActiveAt:        progress.LastActiveAt.UTC(),
	}, nil
}

func (m userProgressModel) toProgress() ports.UserProgress {
	var unlocked []string
	if m.AchievementsJSON != "" {
		_ = json.Unmarshal([]byte(m.AchievementsJSON), &unlocked)
	}
	return ports.UserProgress{
		UserID:              m.UserID,
		DisplayName:         m.DisplayName,
		Username:            m.Username,
		Coins:               m.Coins,
		TotalTaps:           m.TotalTaps,
		Energy:              m.Energy,
		MaxEnergy:           m.MaxEnergy,
		LastEnergyRefreshAt: m.LastEnergyRefreshAt,
		EnergyDepletions:    m.EnergyDepletions,
		Level:               m.Level,
		Rank:                progression.Rank(m.Rank),
		Achievements:        unlocked,
		ReferralCode:        m.ReferralCode,
		ReferredBy:          m.ReferredBy,
		ReferralCount:       m.ReferralCount,
		CreatedAt:           m.CreatedAt,
		LastActiveAt:        m.LastActiveAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "game-core/tap-engine",
		"layer", "adapters/postgres",
		"error", err,
	}, args...)
	r.logger.Error("postgres gateway operation failed", fields...)
	return err
}
