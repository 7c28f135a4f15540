package application

import (
	"context"

	"tapcoins/contexts/game-core/tap-engine/domain/energy"
)

// Energy refills are polled: no external timer callback is guaranteed, so
// each session re-evaluates the refill decision once per poll interval and
// applies it as a serialized mutation relative to taps.

func (s *Service) scheduleRegen(sess *session) {
	if s.Scheduler == nil {
		return
	}
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return
	}
	sess.regenTimer = s.Scheduler.AfterFunc(energy.PollInterval, func() {
		s.pollRefill(sess)
	})
	sess.mu.Unlock()
}

func (s *Service) pollRefill(sess *session) {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return
	}
	now := s.now()
	decision := energy.CheckRefill(now, sess.state.LastEnergyRefreshAt, sess.state.MaxEnergy)
	var (
		userID      string
		refilled    bool
		refreshedAt = decision.NewLastRefreshAt
		newEnergy   = decision.NewEnergy
	)
	if decision.Refill {
		sess.state.Energy = decision.NewEnergy
		sess.state.LastEnergyRefreshAt = decision.NewLastRefreshAt
		userID = sess.state.UserID
		refilled = true
	}
	sess.mu.Unlock()

	if refilled {
		s.logger().Info("energy refilled",
			"event", "tap_engine_energy_refilled",
			"module", "game-core/tap-engine",
			"layer", "application",
			"user_id", userID,
			"energy", newEnergy,
		)
		ctx, cancel := context.WithTimeout(context.Background(), gatewayTimeout)
		if err := s.Gateway.RefreshEnergy(ctx, userID, newEnergy, refreshedAt); err != nil {
			s.logGatewayFailure("tap_engine_refill_persist_failed", userID, err)
		}
		cancel()
	}

	s.scheduleRegen(sess)
}
