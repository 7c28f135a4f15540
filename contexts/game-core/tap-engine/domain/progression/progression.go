// Package progression holds the pure level and rank step functions.
// No state, no I/O: both are total, deterministic, and monotonic
// non-decreasing over their inputs.
package progression

// Rank is a named tier derived from a coin balance.
type Rank string

const (
	RankBeginner      Rank = "Beginner"
	RankBronze        Rank = "Bronze"
	RankClassic       Rank = "Classic"
	RankPro           Rank = "Pro"
	RankRoyalChampion Rank = "Royal Champion"
	RankUltraElite    Rank = "Ultra Elite"
	RankLegendary     Rank = "Legendary"
)

// MaxLevel is the level the tap curve saturates at.
const MaxLevel = 10

var levelBreakpoints = []int{100, 500, 1000, 2500, 5000, 10000, 25000, 50000, 100000}

// LevelForTaps maps a lifetime tap count onto levels 1..10.
func LevelForTaps(totalTaps int) int {
	level := 1
	for _, breakpoint := range levelBreakpoints {
		if totalTaps < breakpoint {
			return level
		}
		level++
	}
	return MaxLevel
}

type rankStep struct {
	threshold int
	rank      Rank
}

var rankSteps = []rankStep{
	{150000, RankLegendary},
	{100000, RankUltraElite},
	{50000, RankRoyalChampion},
	{20000, RankPro},
	{10000, RankClassic},
	{1000, RankBronze},
}

// RankForCoins maps a coin balance onto the named tier ladder.
func RankForCoins(coins int) Rank {
	for _, step := range rankSteps {
		if coins >= step.threshold {
			return step.rank
		}
	}
	return RankBeginner
}
