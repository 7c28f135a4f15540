package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tapcoins/contexts/game-core/tap-engine/domain/achievements"
	"tapcoins/contexts/game-core/tap-engine/domain/energy"
	domainerrors "tapcoins/contexts/game-core/tap-engine/domain/errors"
	"tapcoins/contexts/game-core/tap-engine/domain/progression"
	"tapcoins/contexts/game-core/tap-engine/ports"
)

const (
	// DefaultMaxEnergy is the reference energy capacity.
	DefaultMaxEnergy = 4104
	// DefaultFlushDelay is the write-batch debounce window.
	DefaultFlushDelay = 500 * time.Millisecond
	// DefaultUnlockDisplayDuration is how long an unlock popup stays in
	// snapshots before auto-clearing.
	DefaultUnlockDisplayDuration = 3 * time.Second

	leaderboardWindow = 50
	gatewayTimeout    = 10 * time.Second
)

// Service is the tap economy engine. It owns one Session per identity and
// serializes every mutation of a session under that session's lock; remote
// persistence is debounced and never blocks the interaction path.
type Service struct {
	Gateway   ports.Gateway
	Clock     ports.Clock
	Scheduler ports.Scheduler
	IDGen     ports.IDGenerator
	Projector ports.Projector
	Events    ports.EventPublisher
	Logger    *slog.Logger

	MaxEnergy             int
	FlushDelay            time.Duration
	UnlockDisplayDuration time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu    sync.Mutex
	state ports.UserProgress

	unlocked map[string]bool
	pending  ports.ProgressUpdate

	flushTimer    ports.Timer
	flushInFlight bool
	flushDeferred bool

	lastPersistedLevel int
	lastPersistedRank  progression.Rank

	regenTimer ports.Timer
	closed     bool

	activeUnlock      *achievements.Achievement
	activeUnlockUntil time.Time
}

// TapOutcome describes what a single accepted tap changed beyond the
// counters themselves.
type TapOutcome struct {
	EnergyDepleted bool
	NewLevel       *int
	NewRank        *progression.Rank
	// Unlocked is the first newly earned achievement in catalog order;
	// the presentation layer shows exactly this one even when several
	// unlock at once.
	Unlocked      *achievements.Achievement
	UnlockedCount int
	RewardCoins   int
}

// ProgressSnapshot is the read-only view the presentation layer renders.
type ProgressSnapshot struct {
	ports.UserProgress
	EnergyRefillIn time.Duration
	// ActiveUnlock is the transient popup, present only within its
	// display window.
	ActiveUnlock *achievements.Achievement
}

// AchievementStatus is one catalog entry with the caller's progress.
type AchievementStatus struct {
	Achievement achievements.Achievement
	Unlocked    bool
	Fraction    float64
	Current     int
}

// StartSession loads or creates the progress record for an identity and
// activates its session. A due energy refill is applied immediately on
// load; the leaderboard projector is seeded from the remote window.
func (s *Service) StartSession(ctx context.Context, identity ports.Identity) (ProgressSnapshot, error) {
	userID := strings.TrimSpace(identity.UserID)
	displayName := strings.TrimSpace(identity.DisplayName)
	if userID == "" || displayName == "" {
		return ProgressSnapshot{}, domainerrors.ErrInvalidInput
	}
	identity.UserID = userID
	identity.DisplayName = displayName
	identity.Username = strings.TrimSpace(identity.Username)
	identity.ReferredBy = strings.TrimSpace(identity.ReferredBy)

	if sess := s.session(userID); sess != nil {
		return s.resumeSession(ctx, sess, identity), nil
	}

	now := s.now()
	state, err := s.loadOrCreate(ctx, identity, now)
	if err != nil {
		return ProgressSnapshot{}, err
	}

	sess := &session{
		state:              state,
		unlocked:           make(map[string]bool, len(state.Achievements)),
		lastPersistedLevel: state.Level,
		lastPersistedRank:  state.Rank,
	}
	for _, id := range state.Achievements {
		sess.unlocked[id] = true
	}

	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = make(map[string]*session)
	}
	if existing, ok := s.sessions[userID]; ok {
		// Lost the race against a concurrent StartSession for the same
		// identity; keep the first session.
		s.mu.Unlock()
		return s.resumeSession(ctx, existing, identity), nil
	}
	s.sessions[userID] = sess
	s.mu.Unlock()

	s.seedProjector(ctx, sess)
	s.scheduleRegen(sess)

	s.logger().Info("session started",
		"event", "tap_engine_session_started",
		"module", "game-core/tap-engine",
		"layer", "application",
		"user_id", userID,
		"coins", state.Coins,
		"energy", state.Energy,
	)
	return s.snapshotLocked(sess), nil
}

// Tap applies one unit of play input. With zero energy the call is a
// defined rejection (ErrEnergyExhausted) and changes nothing.
func (s *Service) Tap(ctx context.Context, userID string) (TapOutcome, ProgressSnapshot, error) {
	sess := s.session(strings.TrimSpace(userID))
	if sess == nil {
		return TapOutcome{}, ProgressSnapshot{}, domainerrors.ErrSessionNotFound
	}

	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return TapOutcome{}, ProgressSnapshot{}, domainerrors.ErrSessionNotFound
	}
	if sess.state.Energy <= 0 {
		snapshot := s.snapshot(sess)
		sess.mu.Unlock()
		return TapOutcome{}, snapshot, domainerrors.ErrEnergyExhausted
	}

	previousLevel := sess.state.Level
	previousRank := sess.state.Rank

	sess.state.Coins++
	sess.state.TotalTaps++
	sess.state.Energy--
	depleted := sess.state.Energy == 0
	if depleted {
		sess.state.EnergyDepletions++
	}

	evaluation := achievements.Evaluate(sess.unlocked, achievements.Context{
		TotalTaps:        sess.state.TotalTaps,
		Coins:            sess.state.Coins,
		EnergyDepletions: sess.state.EnergyDepletions,
		Referrals:        sess.state.ReferralCount,
	})
	outcome := s.applyEvaluation(sess, evaluation)
	outcome.EnergyDepleted = depleted

	sess.state.Level = progression.LevelForTaps(sess.state.TotalTaps)
	sess.state.Rank = progression.RankForCoins(sess.state.Coins)
	if sess.state.Level != previousLevel {
		level := sess.state.Level
		outcome.NewLevel = &level
	}
	if sess.state.Rank != previousRank {
		rank := sess.state.Rank
		outcome.NewRank = &rank
	}

	sess.pending.CoinsDelta += 1 + evaluation.TotalReward
	sess.pending.TapsDelta++
	sess.pending.EnergyDelta--
	if depleted {
		sess.pending.EnergyDepletionsDelta++
	}
	s.armFlushTimer(sess)

	s.clampInvariants(sess)
	events := s.outcomeEvents(sess.state, outcome)
	row := leaderboardRow(sess.state)
	snapshot := s.snapshot(sess)
	sess.mu.Unlock()

	if s.Projector != nil {
		s.Projector.Upsert(row)
	}
	s.publish(ctx, events)
	return outcome, snapshot, nil
}

// ApplyReferral records one external referral event for the code owner and
// re-runs achievement evaluation; referral counts never change via taps.
func (s *Service) ApplyReferral(ctx context.Context, userID string) (ProgressSnapshot, error) {
	sess := s.session(strings.TrimSpace(userID))
	if sess == nil {
		return ProgressSnapshot{}, domainerrors.ErrSessionNotFound
	}

	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return ProgressSnapshot{}, domainerrors.ErrSessionNotFound
	}
	previousRank := sess.state.Rank
	sess.state.ReferralCount++

	evaluation := achievements.Evaluate(sess.unlocked, achievements.Context{
		TotalTaps:        sess.state.TotalTaps,
		Coins:            sess.state.Coins,
		EnergyDepletions: sess.state.EnergyDepletions,
		Referrals:        sess.state.ReferralCount,
	})
	outcome := s.applyEvaluation(sess, evaluation)
	sess.state.Rank = progression.RankForCoins(sess.state.Coins)
	if sess.state.Rank != previousRank {
		rank := sess.state.Rank
		outcome.NewRank = &rank
	}

	sess.pending.ReferralsDelta++
	sess.pending.CoinsDelta += evaluation.TotalReward
	s.armFlushTimer(sess)

	events := s.outcomeEvents(sess.state, outcome)
	snapshot := s.snapshot(sess)
	sess.mu.Unlock()

	s.publish(ctx, events)
	return snapshot, nil
}

// Snapshot returns the current read-only progress view.
func (s *Service) Snapshot(_ context.Context, userID string) (ProgressSnapshot, error) {
	sess := s.session(strings.TrimSpace(userID))
	if sess == nil {
		return ProgressSnapshot{}, domainerrors.ErrSessionNotFound
	}
	return s.snapshotLocked(sess), nil
}

// AchievementStatuses lists the catalog with unlock flags and progress for
// one user.
func (s *Service) AchievementStatuses(_ context.Context, userID string) ([]AchievementStatus, error) {
	sess := s.session(strings.TrimSpace(userID))
	if sess == nil {
		return nil, domainerrors.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	ctx := achievements.Context{
		TotalTaps:        sess.state.TotalTaps,
		Coins:            sess.state.Coins,
		EnergyDepletions: sess.state.EnergyDepletions,
		Referrals:        sess.state.ReferralCount,
	}
	catalog := achievements.Catalog()
	statuses := make([]AchievementStatus, 0, len(catalog))
	for _, achievement := range catalog {
		fraction, current := achievements.Progress(achievement, ctx)
		statuses = append(statuses, AchievementStatus{
			Achievement: achievement,
			Unlocked:    sess.unlocked[achievement.ID],
			Fraction:    fraction,
			Current:     current,
		})
	}
	return statuses, nil
}

// EndSession cancels the session's timers and synchronously flushes any
// pending batch. No timers survive the session.
func (s *Service) EndSession(_ context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	s.mu.Lock()
	sess := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()
	if sess == nil {
		return domainerrors.ErrSessionNotFound
	}
	s.closeSession(sess)
	return nil
}

// Close ends every active session.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = nil
	s.mu.Unlock()

	for _, sess := range sessions {
		s.closeSession(sess)
	}
}

func (s *Service) loadOrCreate(ctx context.Context, identity ports.Identity, now time.Time) (ports.UserProgress, error) {
	state, err := s.Gateway.LoadUser(ctx, identity.UserID)
	switch {
	case err == nil:
		state.DisplayName = identity.DisplayName
		if identity.Username != "" {
			state.Username = identity.Username
		}
		state.LastActiveAt = now
		if profileErr := s.Gateway.UpdateProfile(ctx, state.UserID, state.DisplayName, state.Username, now); profileErr != nil {
			s.logGatewayFailure("tap_engine_profile_update_failed", state.UserID, profileErr)
		}
		if state.MaxEnergy <= 0 {
			state.MaxEnergy = s.maxEnergy()
		}
		if decision := energy.CheckRefill(now, state.LastEnergyRefreshAt, state.MaxEnergy); decision.Refill {
			state.Energy = decision.NewEnergy
			state.LastEnergyRefreshAt = decision.NewLastRefreshAt
			if refillErr := s.Gateway.RefreshEnergy(ctx, state.UserID, state.Energy, state.LastEnergyRefreshAt); refillErr != nil {
				s.logGatewayFailure("tap_engine_refill_persist_failed", state.UserID, refillErr)
			}
		}
		// Derived fields are recomputed from counters on every load;
		// the stored copies are a mirror, not a source.
		state.Level = progression.LevelForTaps(state.TotalTaps)
		state.Rank = progression.RankForCoins(state.Coins)
		return state, nil

	case errors.Is(err, domainerrors.ErrUserNotFound):
		code, codeErr := s.referralCode(ctx, identity)
		if codeErr != nil {
			return ports.UserProgress{}, fmt.Errorf("%w: %w", domainerrors.ErrPersistenceUnavailable, codeErr)
		}
		state = ports.UserProgress{
			UserID:              identity.UserID,
			DisplayName:         identity.DisplayName,
			Username:            identity.Username,
			Energy:              s.maxEnergy(),
			MaxEnergy:           s.maxEnergy(),
			LastEnergyRefreshAt: now,
			Level:               1,
			Rank:                progression.RankBeginner,
			ReferralCode:        code,
			ReferredBy:          identity.ReferredBy,
			CreatedAt:           now,
			LastActiveAt:        now,
		}
		if createErr := s.Gateway.CreateUser(ctx, state); createErr != nil {
			return ports.UserProgress{}, fmt.Errorf("%w: %w", domainerrors.ErrPersistenceUnavailable, createErr)
		}
		return state, nil

	default:
		return ports.UserProgress{}, fmt.Errorf("%w: %w", domainerrors.ErrPersistenceUnavailable, err)
	}
}

func (s *Service) resumeSession(ctx context.Context, sess *session, identity ports.Identity) ProgressSnapshot {
	sess.mu.Lock()
	sess.state.DisplayName = identity.DisplayName
	if identity.Username != "" {
		sess.state.Username = identity.Username
	}
	sess.state.LastActiveAt = s.now()
	userID := sess.state.UserID
	displayName := sess.state.DisplayName
	username := sess.state.Username
	lastActive := sess.state.LastActiveAt
	snapshot := s.snapshot(sess)
	sess.mu.Unlock()

	if err := s.Gateway.UpdateProfile(ctx, userID, displayName, username, lastActive); err != nil {
		s.logGatewayFailure("tap_engine_profile_update_failed", userID, err)
	}
	return snapshot
}

// applyEvaluation mutates the session with an evaluation result and
// returns the partial outcome. Caller holds the session lock and is
// responsible for the level/rank recompute on the resulting state.
func (s *Service) applyEvaluation(sess *session, evaluation achievements.Result) TapOutcome {
	outcome := TapOutcome{
		UnlockedCount: len(evaluation.NewlyUnlocked),
		RewardCoins:   evaluation.TotalReward,
	}
	if len(evaluation.NewlyUnlocked) == 0 {
		return outcome
	}
	for _, achievement := range evaluation.NewlyUnlocked {
		sess.unlocked[achievement.ID] = true
		sess.state.Achievements = append(sess.state.Achievements, achievement.ID)
	}
	sess.state.Coins += evaluation.TotalReward

	first := evaluation.NewlyUnlocked[0]
	outcome.Unlocked = &first
	sess.activeUnlock = &first
	sess.activeUnlockUntil = s.now().Add(s.unlockDisplayDuration())
	return outcome
}

func (s *Service) seedProjector(ctx context.Context, sess *session) {
	if s.Projector == nil {
		return
	}
	rows, err := s.Gateway.QueryTopLeaderboard(ctx, leaderboardWindow)
	if err != nil {
		s.logGatewayFailure("tap_engine_leaderboard_seed_failed", sess.state.UserID, err)
	}
	for _, row := range rows {
		s.Projector.Upsert(row)
	}
	sess.mu.Lock()
	own := leaderboardRow(sess.state)
	sess.mu.Unlock()
	s.Projector.Upsert(own)
}

func (s *Service) outcomeEvents(state ports.UserProgress, outcome TapOutcome) []ports.Event {
	now := s.now()
	var events []ports.Event
	if outcome.Unlocked != nil {
		events = append(events, ports.Event{
			Type:        ports.EventAchievementUnlocked,
			UserID:      state.UserID,
			Achievement: outcome.Unlocked.ID,
			OccurredAt:  now,
		})
	}
	if outcome.NewLevel != nil {
		events = append(events, ports.Event{
			Type:       ports.EventLevelChanged,
			UserID:     state.UserID,
			Level:      *outcome.NewLevel,
			OccurredAt: now,
		})
	}
	if outcome.NewRank != nil {
		events = append(events, ports.Event{
			Type:       ports.EventRankChanged,
			UserID:     state.UserID,
			Rank:       *outcome.NewRank,
			OccurredAt: now,
		})
	}
	return events
}

func (s *Service) publish(ctx context.Context, events []ports.Event) {
	if s.Events == nil {
		return
	}
	for _, event := range events {
		s.Events.Publish(ctx, event)
	}
}

// clampInvariants keeps energy inside [0, max]. Out-of-range values are
// logged and clamped; a long-running session never crashes on drift.
func (s *Service) clampInvariants(sess *session) {
	if sess.state.Energy < 0 {
		s.logger().Error("energy invariant violated, clamping",
			"event", "tap_engine_invariant_violation",
			"module", "game-core/tap-engine",
			"layer", "application",
			"user_id", sess.state.UserID,
			"energy", sess.state.Energy,
			"error", domainerrors.ErrInvariantViolation,
		)
		sess.state.Energy = 0
	}
	if sess.state.Energy > sess.state.MaxEnergy {
		s.logger().Error("energy invariant violated, clamping",
			"event", "tap_engine_invariant_violation",
			"module", "game-core/tap-engine",
			"layer", "application",
			"user_id", sess.state.UserID,
			"energy", sess.state.Energy,
			"error", domainerrors.ErrInvariantViolation,
		)
		sess.state.Energy = sess.state.MaxEnergy
	}
}

func (s *Service) referralCode(ctx context.Context, identity ports.Identity) (string, error) {
	token, err := s.IDGen.NewID(ctx)
	if err != nil {
		return "", err
	}
	prefix := "USR"
	if identity.Username != "" {
		prefix = strings.ToUpper(identity.Username)
		if len(prefix) > 3 {
			prefix = prefix[:3]
		}
	}
	var suffix strings.Builder
	for _, r := range strings.ToUpper(token) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			suffix.WriteRune(r)
			if suffix.Len() == 6 {
				break
			}
		}
	}
	return prefix + suffix.String(), nil
}

func (s *Service) session(userID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// snapshot copies the session state; caller holds the session lock.
func (s *Service) snapshot(sess *session) ProgressSnapshot {
	now := s.now()
	snapshot := ProgressSnapshot{UserProgress: sess.state}
	snapshot.Achievements = append([]string(nil), sess.state.Achievements...)
	if decision := energy.CheckRefill(now, sess.state.LastEnergyRefreshAt, sess.state.MaxEnergy); !decision.Refill {
		snapshot.EnergyRefillIn = decision.Remaining
	}
	if sess.activeUnlock != nil && now.Before(sess.activeUnlockUntil) {
		unlock := *sess.activeUnlock
		snapshot.ActiveUnlock = &unlock
	}
	return snapshot
}

func (s *Service) snapshotLocked(sess *session) ProgressSnapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.snapshot(sess)
}

func leaderboardRow(state ports.UserProgress) ports.LeaderboardRow {
	return ports.LeaderboardRow{
		UserID:      state.UserID,
		DisplayName: state.DisplayName,
		Username:    state.Username,
		Coins:       state.Coins,
		TotalTaps:   state.TotalTaps,
	}
}

func (s *Service) logGatewayFailure(event string, userID string, err error) {
	s.logger().Error("gateway call failed, local state remains authoritative",
		"event", event,
		"module", "game-core/tap-engine",
		"layer", "application",
		"user_id", userID,
		"error", err,
	)
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) maxEnergy() int {
	if s.MaxEnergy <= 0 {
		return DefaultMaxEnergy
	}
	return s.MaxEnergy
}

func (s *Service) flushDelay() time.Duration {
	if s.FlushDelay <= 0 {
		return DefaultFlushDelay
	}
	return s.FlushDelay
}

func (s *Service) unlockDisplayDuration() time.Duration {
	if s.UnlockDisplayDuration <= 0 {
		return DefaultUnlockDisplayDuration
	}
	return s.UnlockDisplayDuration
}
