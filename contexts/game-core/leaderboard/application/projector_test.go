package application

import "testing"

func entry(userID string, coins int) Entry {
	return Entry{UserID: userID, DisplayName: userID, Coins: coins}
}

func TestTopOrdersByCoinsDescending(t *testing.T) {
	p := NewProjector()
	p.Upsert(entry("low", 10))
	p.Upsert(entry("high", 300))
	p.Upsert(entry("mid", 42))

	top := p.Top(10)
	if len(top) != 3 {
		t.Fatalf("expected 3 standings, got %d", len(top))
	}
	want := []string{"high", "mid", "low"}
	for i, userID := range want {
		if top[i].Entry.UserID != userID {
			t.Fatalf("position %d: expected %s, got %s", i+1, userID, top[i].Entry.UserID)
		}
		if top[i].Position != i+1 {
			t.Fatalf("expected position %d, got %d", i+1, top[i].Position)
		}
	}
}

func TestUpsertReplacesByUserID(t *testing.T) {
	p := NewProjector()
	p.Upsert(entry("alice", 5))
	p.Upsert(entry("alice", 900))

	if p.Len() != 1 {
		t.Fatalf("expected a single entry, got %d", p.Len())
	}
	top := p.Top(1)
	if top[0].Entry.Coins != 900 {
		t.Fatalf("expected replaced coins 900, got %d", top[0].Entry.Coins)
	}
}

func TestTiesKeepFirstSeenOrder(t *testing.T) {
	p := NewProjector()
	p.Upsert(entry("first", 100))
	p.Upsert(entry("second", 100))

	top := p.Top(2)
	if top[0].Entry.UserID != "first" || top[1].Entry.UserID != "second" {
		t.Fatalf("tie order changed: %s, %s", top[0].Entry.UserID, top[1].Entry.UserID)
	}

	// Re-upserting the tied first entry must not demote it.
	p.Upsert(entry("first", 100))
	top = p.Top(2)
	if top[0].Entry.UserID != "first" {
		t.Fatalf("re-upsert demoted tied entry to %s", top[0].Entry.UserID)
	}
}

func TestTopTruncatesToWindow(t *testing.T) {
	p := NewProjector()
	for i := 0; i < DefaultWindow+25; i++ {
		p.Upsert(Entry{UserID: string(rune('a'+i%26)) + string(rune('a'+i/26)), Coins: i})
	}
	if got := len(p.Top(0)); got != DefaultWindow {
		t.Fatalf("expected window of %d, got %d", DefaultWindow, got)
	}
}

func TestStandingOfOutsideWindow(t *testing.T) {
	p := NewProjector()
	for i := 0; i < 60; i++ {
		p.Upsert(Entry{UserID: string(rune('A'+i/26)) + string(rune('A'+i%26)), Coins: 1000 - i})
	}
	p.Upsert(entry("viewer", 1))

	standing, ok := p.StandingOf("viewer")
	if !ok {
		t.Fatal("expected viewer standing")
	}
	if standing.Position != 61 {
		t.Fatalf("expected position 61, got %d", standing.Position)
	}
}
