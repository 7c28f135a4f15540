package progression

import "testing"

func TestLevelForTapsAnchors(t *testing.T) {
	cases := []struct {
		taps int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{499, 2},
		{500, 3},
		{999, 3},
		{1000, 4},
		{2500, 5},
		{9999, 6},
		{10000, 7},
		{25000, 8},
		{99999, 9},
		{100000, 10},
		{5000000, 10},
	}
	for _, c := range cases {
		if got := LevelForTaps(c.taps); got != c.want {
			t.Fatalf("LevelForTaps(%d) = %d, want %d", c.taps, got, c.want)
		}
	}
}

func TestLevelForTapsMonotonic(t *testing.T) {
	previous := LevelForTaps(0)
	if previous != 1 {
		t.Fatalf("LevelForTaps(0) = %d, want 1", previous)
	}
	for taps := 1; taps <= 120000; taps += 7 {
		level := LevelForTaps(taps)
		if level < previous {
			t.Fatalf("level decreased at taps=%d: %d -> %d", taps, previous, level)
		}
		previous = level
	}
}

func TestRankForCoinsAnchors(t *testing.T) {
	cases := []struct {
		coins int
		want  Rank
	}{
		{0, RankBeginner},
		{999, RankBeginner},
		{1000, RankBronze},
		{9999, RankBronze},
		{10000, RankClassic},
		{20000, RankPro},
		{50000, RankRoyalChampion},
		{100000, RankUltraElite},
		{149999, RankUltraElite},
		{150000, RankLegendary},
	}
	for _, c := range cases {
		if got := RankForCoins(c.coins); got != c.want {
			t.Fatalf("RankForCoins(%d) = %q, want %q", c.coins, got, c.want)
		}
	}
}

func TestRankForCoinsMonotonic(t *testing.T) {
	order := map[Rank]int{
		RankBeginner:      0,
		RankBronze:        1,
		RankClassic:       2,
		RankPro:           3,
		RankRoyalChampion: 4,
		RankUltraElite:    5,
		RankLegendary:     6,
	}
	previous := order[RankForCoins(0)]
	for coins := 1; coins <= 200000; coins += 11 {
		current := order[RankForCoins(coins)]
		if current < previous {
			t.Fatalf("rank decreased at coins=%d", coins)
		}
		previous = current
	}
}
