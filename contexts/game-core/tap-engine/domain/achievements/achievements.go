// Package achievements holds the static achievement catalog and the
// single-pass unlock evaluator.
package achievements

// Metric names a progress counter an achievement requirement tests.
type Metric string

const (
	MetricTotalTaps        Metric = "totalTaps"
	MetricCoins            Metric = "coins"
	MetricEnergyDepletions Metric = "energyDepletions"
	MetricReferrals        Metric = "referrals"
)

// Requirement is an earn condition: the named metric must reach Threshold.
type Requirement struct {
	Metric    Metric
	Threshold int
}

// Reward is the one-time payout granted on unlock.
type Reward struct {
	Coins int
}

// Achievement is one entry of the static catalog.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Category    string
	Requirement Requirement
	Reward      Reward
}

// Context is the post-mutation progress snapshot an evaluation runs against.
type Context struct {
	TotalTaps        int
	Coins            int
	EnergyDepletions int
	Referrals        int
}

func (c Context) metric(m Metric) int {
	switch m {
	case MetricTotalTaps:
		return c.TotalTaps
	case MetricCoins:
		return c.Coins
	case MetricEnergyDepletions:
		return c.EnergyDepletions
	case MetricReferrals:
		return c.Referrals
	default:
		return 0
	}
}

var catalog = []Achievement{
	{
		ID:          "first_tap",
		Name:        "First Steps",
		Description: "Make your first tap",
		Icon:        "👆",
		Category:    "milestone",
		Requirement: Requirement{Metric: MetricTotalTaps, Threshold: 1},
		Reward:      Reward{Coins: 100},
	},
	{
		ID:          "hundred_taps",
		Name:        "Getting Started",
		Description: "Reach 100 total taps",
		Icon:        "💪",
		Category:    "milestone",
		Requirement: Requirement{Metric: MetricTotalTaps, Threshold: 100},
		Reward:      Reward{Coins: 500},
	},
	{
		ID:          "thousand_taps",
		Name:        "Dedicated Tapper",
		Description: "Reach 1,000 total taps",
		Icon:        "🔥",
		Category:    "milestone",
		Requirement: Requirement{Metric: MetricTotalTaps, Threshold: 1000},
		Reward:      Reward{Coins: 2000},
	},
	{
		ID:          "ten_thousand_taps",
		Name:        "Tap Master",
		Description: "Reach 10,000 total taps",
		Icon:        "⭐",
		Category:    "milestone",
		Requirement: Requirement{Metric: MetricTotalTaps, Threshold: 10000},
		Reward:      Reward{Coins: 10000},
	},
	{
		ID:          "first_thousand_coins",
		Name:        "Coin Collector",
		Description: "Earn your first 1,000 coins",
		Icon:        "🪙",
		Category:    "wealth",
		Requirement: Requirement{Metric: MetricCoins, Threshold: 1000},
		Reward:      Reward{Coins: 1000},
	},
	{
		ID:          "energy_master",
		Name:        "Energy Efficient",
		Description: "Use all energy 5 times",
		Icon:        "⚡",
		Category:    "efficiency",
		Requirement: Requirement{Metric: MetricEnergyDepletions, Threshold: 5},
		Reward:      Reward{Coins: 3000},
	},
	{
		ID:          "referral_starter",
		Name:        "Friend Maker",
		Description: "Refer your first friend",
		Icon:        "👥",
		Category:    "social",
		Requirement: Requirement{Metric: MetricReferrals, Threshold: 1},
		Reward:      Reward{Coins: 2500},
	},
}

// Catalog returns the full static catalog in display order.
func Catalog() []Achievement {
	return append([]Achievement(nil), catalog...)
}

// Result is the outcome of one evaluation pass.
type Result struct {
	// NewlyUnlocked is in catalog order. The first entry is the one the
	// presentation layer shows when several unlock at once.
	NewlyUnlocked []Achievement
	TotalReward   int
}

// Evaluate runs a single pass over the catalog against the context as
// passed. Reward coins granted here do not feed back into the same pass;
// already-unlocked ids are never returned again.
func Evaluate(unlocked map[string]bool, ctx Context) Result {
	var result Result
	for _, achievement := range catalog {
		if unlocked[achievement.ID] {
			continue
		}
		if ctx.metric(achievement.Requirement.Metric) >= achievement.Requirement.Threshold {
			result.NewlyUnlocked = append(result.NewlyUnlocked, achievement)
			result.TotalReward += achievement.Reward.Coins
		}
	}
	return result
}

// Progress reports how far a context is toward one achievement, as a
// fraction clamped to [0, 1] and the raw current value.
func Progress(achievement Achievement, ctx Context) (float64, int) {
	current := ctx.metric(achievement.Requirement.Metric)
	if achievement.Requirement.Threshold <= 0 {
		return 1, current
	}
	fraction := float64(current) / float64(achievement.Requirement.Threshold)
	if fraction > 1 {
		fraction = 1
	}
	return fraction, current
}
