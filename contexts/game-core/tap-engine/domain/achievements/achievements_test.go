package achievements

import "testing"

func TestEvaluateFirstTap(t *testing.T) {
	result := Evaluate(map[string]bool{}, Context{TotalTaps: 1, Coins: 1})
	if len(result.NewlyUnlocked) != 1 {
		t.Fatalf("expected exactly one unlock, got %d", len(result.NewlyUnlocked))
	}
	if result.NewlyUnlocked[0].ID != "first_tap" {
		t.Fatalf("expected first_tap, got %q", result.NewlyUnlocked[0].ID)
	}
	if result.TotalReward != 100 {
		t.Fatalf("expected reward 100, got %d", result.TotalReward)
	}
}

func TestEvaluateNeverReturnsAlreadyUnlocked(t *testing.T) {
	unlocked := map[string]bool{"first_tap": true}
	result := Evaluate(unlocked, Context{TotalTaps: 50, Coins: 50})
	for _, achievement := range result.NewlyUnlocked {
		if achievement.ID == "first_tap" {
			t.Fatal("evaluate returned an already-unlocked id")
		}
	}
}

func TestEvaluateMultipleUnlocksCatalogOrder(t *testing.T) {
	// A context that crosses several thresholds at once must return all of
	// them in catalog order, rewards summed, in one pass.
	result := Evaluate(map[string]bool{}, Context{TotalTaps: 100, Coins: 1000})
	wantIDs := []string{"first_tap", "hundred_taps", "first_thousand_coins"}
	if len(result.NewlyUnlocked) != len(wantIDs) {
		t.Fatalf("expected %d unlocks, got %d", len(wantIDs), len(result.NewlyUnlocked))
	}
	for i, id := range wantIDs {
		if result.NewlyUnlocked[i].ID != id {
			t.Fatalf("unlock %d = %q, want %q", i, result.NewlyUnlocked[i].ID, id)
		}
	}
	if result.TotalReward != 100+500+1000 {
		t.Fatalf("expected reward %d, got %d", 100+500+1000, result.TotalReward)
	}
}

func TestEvaluateSinglePassNoChaining(t *testing.T) {
	// 950 coins plus the first_tap reward would cross the 1,000-coin
	// threshold, but evaluation runs against the context as passed.
	result := Evaluate(map[string]bool{}, Context{TotalTaps: 1, Coins: 950})
	for _, achievement := range result.NewlyUnlocked {
		if achievement.ID == "first_thousand_coins" {
			t.Fatal("evaluation chained reward coins into the same pass")
		}
	}
}

func TestEvaluateReferralMetric(t *testing.T) {
	result := Evaluate(map[string]bool{}, Context{Referrals: 1})
	if len(result.NewlyUnlocked) != 1 || result.NewlyUnlocked[0].ID != "referral_starter" {
		t.Fatalf("expected referral_starter unlock, got %+v", result.NewlyUnlocked)
	}
	if result.TotalReward != 2500 {
		t.Fatalf("expected reward 2500, got %d", result.TotalReward)
	}
}

func TestProgressClamps(t *testing.T) {
	catalog := Catalog()
	var energyMaster Achievement
	for _, achievement := range catalog {
		if achievement.ID == "energy_master" {
			energyMaster = achievement
		}
	}
	fraction, current := Progress(energyMaster, Context{EnergyDepletions: 3})
	if current != 3 {
		t.Fatalf("expected current 3, got %d", current)
	}
	if fraction != 0.6 {
		t.Fatalf("expected fraction 0.6, got %v", fraction)
	}
	fraction, _ = Progress(energyMaster, Context{EnergyDepletions: 50})
	if fraction != 1 {
		t.Fatalf("expected clamped fraction 1, got %v", fraction)
	}
}
