package application

import (
	"context"
	"testing"
	"time"

	"tapcoins/contexts/game-core/tap-engine/adapters/memory"
	"tapcoins/contexts/game-core/tap-engine/domain/progression"
	"tapcoins/contexts/game-core/tap-engine/ports"
)

func (f *fixture) tapN(t *testing.T, userID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, _, err := f.service.Tap(context.Background(), userID); err != nil {
			t.Fatalf("tap %d: %v", i+1, err)
		}
	}
}

func TestRapidTapsCoalesceIntoOneFlush(t *testing.T) {
	f := newFixture(t)
	f.seed("u1", func(p *ports.UserProgress) {
		p.Achievements = allAchievementIDs()
	})
	f.start(t, "u1")

	f.tapN(t, "u1", 5)

	// Nothing persisted while the debounce window keeps resetting.
	persisted, _ := f.store.LoadUser(context.Background(), "u1")
	if persisted.Coins != 0 || persisted.TotalTaps != 0 {
		t.Fatalf("expected no persistence before flush, got coins=%d taps=%d", persisted.Coins, persisted.TotalTaps)
	}
	if live := f.scheduler.livePending(DefaultFlushDelay); live != 1 {
		t.Fatalf("expected exactly one live flush timer, got %d", live)
	}

	if fired := f.scheduler.fire(DefaultFlushDelay); fired != 1 {
		t.Fatalf("expected one flush fire, got %d", fired)
	}

	calls, batch := f.gateway.stats()
	if calls != 1 {
		t.Fatalf("expected one incremental update, got %d", calls)
	}
	if batch.CoinsDelta != 5 || batch.TapsDelta != 5 || batch.EnergyDelta != -5 {
		t.Fatalf("unexpected batch: %+v", batch)
	}

	persisted, _ = f.store.LoadUser(context.Background(), "u1")
	if persisted.Coins != 5 || persisted.TotalTaps != 5 {
		t.Fatalf("expected persisted coins=5 taps=5, got %d %d", persisted.Coins, persisted.TotalTaps)
	}
	if persisted.Energy != DefaultMaxEnergy-5 {
		t.Fatalf("expected persisted energy %d, got %d", DefaultMaxEnergy-5, persisted.Energy)
	}
}

func TestFlushStampsLevelAndRankFromLiveState(t *testing.T) {
	f := newFixture(t)
	f.seed("u1", func(p *ports.UserProgress) {
		p.TotalTaps = 98
		p.Coins = 998
		p.Achievements = allAchievementIDs()
	})
	f.start(t, "u1")

	// Two taps cross both the level-2 and Bronze boundaries before the
	// single flush goes out.
	f.tapN(t, "u1", 2)
	f.scheduler.fire(DefaultFlushDelay)

	_, batch := f.gateway.stats()
	if batch.Level == nil || *batch.Level != 2 {
		t.Fatalf("expected level overwrite 2, got %+v", batch.Level)
	}
	if batch.Rank == nil || *batch.Rank != progression.RankBronze {
		t.Fatalf("expected rank overwrite Bronze, got %+v", batch.Rank)
	}

	// A second flush without boundary crossings carries no overwrites.
	f.tapN(t, "u1", 1)
	f.scheduler.fire(DefaultFlushDelay)
	_, batch = f.gateway.stats()
	if batch.Level != nil || batch.Rank != nil {
		t.Fatalf("expected no overwrites when level/rank unchanged, got %+v %+v", batch.Level, batch.Rank)
	}
}

func TestFailedFlushRetainsAccumulator(t *testing.T) {
	f := newFixture(t)
	f.seed("u1", func(p *ports.UserProgress) {
		p.Achievements = allAchievementIDs()
	})
	f.start(t, "u1")

	f.gateway.setFailApply(true)
	f.tapN(t, "u1", 2)
	f.scheduler.fire(DefaultFlushDelay)

	calls, _ := f.gateway.stats()
	if calls != 1 {
		t.Fatalf("expected one failed attempt, got %d", calls)
	}
	persisted, _ := f.store.LoadUser(context.Background(), "u1")
	if persisted.Coins != 0 {
		t.Fatal("failed flush must not partially persist")
	}
	if f.scheduler.livePending(DefaultFlushDelay) != 0 {
		t.Fatal("failed flush must not auto-retry")
	}

	// The merged-back delta rides out with the next tap's flush.
	f.gateway.setFailApply(false)
	f.tapN(t, "u1", 1)
	f.scheduler.fire(DefaultFlushDelay)

	_, batch := f.gateway.stats()
	if batch.CoinsDelta != 3 || batch.TapsDelta != 3 || batch.EnergyDelta != -3 {
		t.Fatalf("expected retained delta in next batch, got %+v", batch)
	}
	persisted, _ = f.store.LoadUser(context.Background(), "u1")
	if persisted.Coins != 3 || persisted.TotalTaps != 3 {
		t.Fatalf("expected converged persistence, got coins=%d taps=%d", persisted.Coins, persisted.TotalTaps)
	}
}

// blockingGateway parks ApplyIncrementalUpdate until released, to exercise
// the one-in-flight flush rule.
type blockingGateway struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
}

func (g *blockingGateway) ApplyIncrementalUpdate(ctx context.Context, userID string, update ports.ProgressUpdate) error {
	g.entered <- struct{}{}
	<-g.release
	return g.Store.ApplyIncrementalUpdate(ctx, userID, update)
}

func TestTimerFiringDuringInFlightFlushDefers(t *testing.T) {
	store := memory.NewStore()
	gateway := &blockingGateway{
		Store:   store,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	clock := newFakeClock()
	scheduler := &manualScheduler{}
	service := &Service{
		Gateway:   gateway,
		Clock:     clock,
		Scheduler: scheduler,
		IDGen:     store,
	}
	defer func() {
		close(gateway.release)
		service.Close()
	}()

	store.SeedUser(ports.UserProgress{
		UserID:              "u1",
		DisplayName:         "Player u1",
		Energy:              DefaultMaxEnergy,
		MaxEnergy:           DefaultMaxEnergy,
		LastEnergyRefreshAt: clock.Now(),
		Level:               1,
		Rank:                progression.RankBeginner,
		Achievements:        allAchievementIDs(),
	})
	if _, err := service.StartSession(context.Background(), ports.Identity{UserID: "u1", DisplayName: "Player u1"}); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, _, err := service.Tap(context.Background(), "u1"); err != nil {
		t.Fatalf("tap: %v", err)
	}

	flushDone := make(chan struct{})
	go func() {
		scheduler.fire(DefaultFlushDelay)
		close(flushDone)
	}()
	<-gateway.entered // first flush is now parked inside the gateway

	// A tap lands mid-flight and its timer fires; the flush must defer,
	// not run concurrently.
	if _, _, err := service.Tap(context.Background(), "u1"); err != nil {
		t.Fatalf("tap: %v", err)
	}
	if fired := scheduler.fire(DefaultFlushDelay); fired != 1 {
		t.Fatalf("expected the second timer to fire, got %d", fired)
	}

	gateway.release <- struct{}{}
	<-flushDone

	// Settling the first flush re-armed the deferred one.
	deadline := time.After(2 * time.Second)
	for scheduler.livePending(DefaultFlushDelay) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected deferred flush to re-arm after in-flight settle")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	secondDone := make(chan struct{})
	go func() {
		scheduler.fire(DefaultFlushDelay)
		close(secondDone)
	}()
	<-gateway.entered
	gateway.release <- struct{}{}
	<-secondDone

	persisted, _ := store.LoadUser(context.Background(), "u1")
	if persisted.TotalTaps != 2 {
		t.Fatalf("expected both taps persisted across two flushes, got %d", persisted.TotalTaps)
	}
}

func TestEndSessionFlushesSynchronouslyAndStopsTimers(t *testing.T) {
	f := newFixture(t)
	f.seed("u1", func(p *ports.UserProgress) {
		p.Achievements = allAchievementIDs()
	})
	f.start(t, "u1")
	f.tapN(t, "u1", 3)

	if err := f.service.EndSession(context.Background(), "u1"); err != nil {
		t.Fatalf("end session: %v", err)
	}

	persisted, _ := f.store.LoadUser(context.Background(), "u1")
	if persisted.TotalTaps != 3 {
		t.Fatalf("expected final flush on end, got taps=%d", persisted.TotalTaps)
	}
	if f.scheduler.livePending(DefaultFlushDelay) != 0 {
		t.Fatal("expected flush timer stopped")
	}
	if f.scheduler.livePending(time.Minute) != 0 {
		t.Fatal("expected regen timer stopped")
	}

	if _, _, err := f.service.Tap(context.Background(), "u1"); err == nil {
		t.Fatal("expected tap after end to fail")
	}
}

func TestNoFlushWithoutChanges(t *testing.T) {
	f := newFixture(t)
	f.start(t, "u1")

	// No taps: no timer armed, and a stray fire persists nothing.
	if live := f.scheduler.livePending(DefaultFlushDelay); live != 0 {
		t.Fatalf("expected no flush timer before first tap, got %d", live)
	}
	calls, _ := f.gateway.stats()
	if calls != 0 {
		t.Fatalf("expected no incremental updates, got %d", calls)
	}
}
