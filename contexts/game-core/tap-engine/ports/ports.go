package ports

import (
	"context"
	"time"

	"tapcoins/contexts/game-core/tap-engine/domain/progression"
)

// Identity is the hosting platform's user handoff: a stable opaque id plus
// mutable profile mirrors.
type Identity struct {
	UserID      string
	DisplayName string
	Username    string
	// ReferredBy is the inviter's referral code, set only on the handoff
	// that creates the user.
	ReferredBy string
}

// UserProgress is the per-identity progress record. Local session state is
// authoritative for display; the gateway holds a lagging mirror.
type UserProgress struct {
	UserID              string
	DisplayName         string
	Username            string
	Coins               int
	TotalTaps           int
	Energy              int
	MaxEnergy           int
	LastEnergyRefreshAt time.Time
	EnergyDepletions    int
	Level               int
	Rank                progression.Rank
	Achievements        []string
	ReferralCode        string
	ReferredBy          string
	ReferralCount       int
	CreatedAt           time.Time
	LastActiveAt        time.Time
}

// ProgressUpdate is one batched incremental write. Delta fields are
// commutative increments; pointer fields are last-write-wins overwrites
// computed from live state at flush time.
type ProgressUpdate struct {
	CoinsDelta            int
	TapsDelta             int
	EnergyDelta           int
	EnergyDepletionsDelta int
	ReferralsDelta        int
	Level                 *int
	Rank                  *progression.Rank
	LastActiveAt          time.Time
}

// Empty reports whether the update carries nothing worth persisting.
func (u ProgressUpdate) Empty() bool {
	return u.CoinsDelta == 0 && u.TapsDelta == 0 && u.EnergyDelta == 0 &&
		u.EnergyDepletionsDelta == 0 && u.ReferralsDelta == 0 &&
		u.Level == nil && u.Rank == nil
}

// LeaderboardUpsert is the remote leaderboard mirror payload.
type LeaderboardUpsert struct {
	UserID      string
	DisplayName string
	Username    string
	Coins       int
	TotalTaps   int
	UpdatedAt   time.Time
}

// LeaderboardRow is one entry read back from the remote ranked collection,
// ordered by coins descending.
type LeaderboardRow struct {
	UserID      string
	DisplayName string
	Username    string
	Coins       int
	TotalTaps   int
}

// Gateway abstracts the remote persistent store. Every operation is
// independently failable; a failure never rolls back local progress.
type Gateway interface {
	LoadUser(ctx context.Context, userID string) (UserProgress, error)
	CreateUser(ctx context.Context, progress UserProgress) error
	UpdateProfile(ctx context.Context, userID string, displayName string, username string, lastActiveAt time.Time) error
	ApplyIncrementalUpdate(ctx context.Context, userID string, update ProgressUpdate) error
	RefreshEnergy(ctx context.Context, userID string, energy int, refreshedAt time.Time) error
	UpsertLeaderboardEntry(ctx context.Context, entry LeaderboardUpsert) error
	QueryTopLeaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
}

// Clock is the time source for regeneration windows and debounce timers.
type Clock interface {
	Now() time.Time
}

// Timer is a cancellable scheduled task handle.
type Timer interface {
	// Stop cancels the pending fire; it reports whether the timer was
	// still pending.
	Stop() bool
}

// Scheduler produces cancellable timers so tests can drive time
// deterministically instead of sleeping.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// IDGenerator supplies opaque unique tokens (referral codes).
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Projector receives push updates for the local ranked leaderboard view.
type Projector interface {
	Upsert(row LeaderboardRow)
}

// Event is a domain occurrence published to the in-process bus.
type Event struct {
	Type        string
	UserID      string
	Achievement string
	Level       int
	Rank        progression.Rank
	OccurredAt  time.Time
}

const (
	EventAchievementUnlocked = "achievement.unlocked"
	EventLevelChanged        = "level.changed"
	EventRankChanged         = "rank.changed"
)

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}
