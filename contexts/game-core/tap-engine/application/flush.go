package application

import (
	"context"

	"tapcoins/contexts/game-core/tap-engine/ports"
)

// Flushing is debounce-with-accumulation: every tap resets the session's
// flush timer; when it finally fires with no newer tap, the accumulated
// batch goes out as one gateway update. At most one flush is in flight per
// session; deltas accumulated meanwhile form the next batch, scheduled
// once the in-flight call settles. A failed flush merges its batch back
// into the accumulator and waits for the next timer arming.

// armFlushTimer (re)starts the debounce window. Caller holds the session
// lock.
func (s *Service) armFlushTimer(sess *session) {
	if s.Scheduler == nil {
		return
	}
	if sess.flushTimer != nil {
		sess.flushTimer.Stop()
	}
	sess.flushTimer = s.Scheduler.AfterFunc(s.flushDelay(), func() {
		s.flush(sess)
	})
}

func (s *Service) flush(sess *session) {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return
	}
	if sess.flushInFlight {
		sess.flushDeferred = true
		sess.mu.Unlock()
		return
	}
	batch, entry, ok := s.takeBatch(sess)
	if !ok {
		sess.mu.Unlock()
		return
	}
	sess.flushInFlight = true
	sess.mu.Unlock()

	err := s.writeBatch(sess.state.UserID, batch, entry)

	sess.mu.Lock()
	sess.flushInFlight = false
	if err != nil {
		// Not retried automatically: the delta survives in the
		// accumulator until a later timer flushes it.
		s.mergeBack(sess, batch)
		s.logGatewayFailure("tap_engine_flush_failed", sess.state.UserID, err)
	} else {
		if batch.Level != nil {
			sess.lastPersistedLevel = *batch.Level
		}
		if batch.Rank != nil {
			sess.lastPersistedRank = *batch.Rank
		}
	}
	deferred := sess.flushDeferred
	sess.flushDeferred = false
	if deferred && !sess.closed {
		s.armFlushTimer(sess)
	}
	sess.mu.Unlock()
}

// takeBatch drains the accumulator and stamps the overwrite fields from
// live state at flush time, not from whatever was current when the timer
// was scheduled. Caller holds the session lock.
func (s *Service) takeBatch(sess *session) (ports.ProgressUpdate, ports.LeaderboardUpsert, bool) {
	batch := sess.pending
	sess.pending = ports.ProgressUpdate{}

	if sess.state.Level != sess.lastPersistedLevel {
		level := sess.state.Level
		batch.Level = &level
	}
	if sess.state.Rank != sess.lastPersistedRank {
		rank := sess.state.Rank
		batch.Rank = &rank
	}
	batch.LastActiveAt = s.now()
	if batch.Empty() {
		return ports.ProgressUpdate{}, ports.LeaderboardUpsert{}, false
	}

	entry := ports.LeaderboardUpsert{
		UserID:      sess.state.UserID,
		DisplayName: sess.state.DisplayName,
		Username:    sess.state.Username,
		Coins:       sess.state.Coins,
		TotalTaps:   sess.state.TotalTaps,
		UpdatedAt:   batch.LastActiveAt,
	}
	return batch, entry, true
}

func (s *Service) writeBatch(userID string, batch ports.ProgressUpdate, entry ports.LeaderboardUpsert) error {
	ctx, cancel := context.WithTimeout(context.Background(), gatewayTimeout)
	defer cancel()

	if err := s.Gateway.ApplyIncrementalUpdate(ctx, userID, batch); err != nil {
		return err
	}
	// The leaderboard mirror rides on successful flushes; losing one is
	// tolerable, it converges on the next flush.
	if err := s.Gateway.UpsertLeaderboardEntry(ctx, entry); err != nil {
		s.logGatewayFailure("tap_engine_leaderboard_upsert_failed", userID, err)
	}
	return nil
}

// mergeBack returns a failed batch's increments to the accumulator.
// Overwrite fields are dropped: they are recomputed from live state on the
// next flush anyway. Caller holds the session lock.
func (s *Service) mergeBack(sess *session, batch ports.ProgressUpdate) {
	sess.pending.CoinsDelta += batch.CoinsDelta
	sess.pending.TapsDelta += batch.TapsDelta
	sess.pending.EnergyDelta += batch.EnergyDelta
	sess.pending.EnergyDepletionsDelta += batch.EnergyDepletionsDelta
	sess.pending.ReferralsDelta += batch.ReferralsDelta
}

// closeSession stops the session's timers and flushes synchronously.
func (s *Service) closeSession(sess *session) {
	sess.mu.Lock()
	sess.closed = true
	if sess.flushTimer != nil {
		sess.flushTimer.Stop()
		sess.flushTimer = nil
	}
	if sess.regenTimer != nil {
		sess.regenTimer.Stop()
		sess.regenTimer = nil
	}
	batch, entry, ok := s.takeBatch(sess)
	userID := sess.state.UserID
	sess.mu.Unlock()

	if !ok {
		return
	}
	if err := s.writeBatch(userID, batch, entry); err != nil {
		// The session is over; the delta is lost remotely but was
		// never authoritative. Log and move on.
		s.logGatewayFailure("tap_engine_final_flush_failed", userID, err)
	}
}
