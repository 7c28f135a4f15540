// Package energy implements the regeneration decision for the capped tap
// energy resource. The decision is a pure function of (now, lastRefreshAt);
// applying it is the caller's serialized mutation.
package energy

import "time"

// RefillPeriod is the cooldown after which energy resets to capacity.
const RefillPeriod = 2 * time.Hour

// PollInterval is how often a session re-evaluates the refill decision.
// Refills are polled, not event-driven, so a due refill is observed within
// one interval of becoming due.
const PollInterval = time.Minute

// Decision is the outcome of a refill check.
type Decision struct {
	Refill           bool
	NewEnergy        int
	NewLastRefreshAt time.Time
	Remaining        time.Duration
}

// CheckRefill reports whether a full refill is due at now given the last
// refill timestamp. Calling it repeatedly inside the same window keeps
// returning Refill=false with a shrinking Remaining.
func CheckRefill(now, lastRefreshAt time.Time, maxEnergy int) Decision {
	elapsed := now.Sub(lastRefreshAt)
	if elapsed >= RefillPeriod {
		return Decision{
			Refill:           true,
			NewEnergy:        maxEnergy,
			NewLastRefreshAt: now,
		}
	}
	return Decision{Remaining: RefillPeriod - elapsed}
}
