// Package system provides the production Clock and Scheduler: plain
// wall-clock time and time.AfterFunc timers. Tests substitute the ports
// with deterministic fakes instead of sleeping.
package system

import (
	"time"

	"tapcoins/contexts/game-core/tap-engine/ports"
)

type Clock struct{}

func (Clock) Now() time.Time { return time.Now().UTC() }

type Scheduler struct{}

type timer struct {
	t *time.Timer
}

func (t timer) Stop() bool { return t.t.Stop() }

func (Scheduler) AfterFunc(d time.Duration, fn func()) ports.Timer {
	return timer{t: time.AfterFunc(d, fn)}
}
