// Package metrics exposes Prometheus counters for the tap economy and a
// gateway decorator that observes persistence traffic.
package metrics

import (
	"context"
	"net/http"
	"time"

	"tapcoins/contexts/game-core/tap-engine/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tapcoins_taps_total",
		Help: "Accepted tap mutations.",
	})
	TapRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tapcoins_tap_rejections_total",
		Help: "Taps rejected for exhausted energy.",
	})
	AchievementUnlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tapcoins_achievement_unlocks_total",
		Help: "Achievements unlocked across all sessions.",
	})
	EnergyRefillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tapcoins_energy_refills_total",
		Help: "Full energy refills applied.",
	})
	GatewayCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tapcoins_gateway_calls_total",
		Help: "Persistence gateway calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tapcoins_gateway_latency_seconds",
		Help:    "Persistence gateway call latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// Handler returns the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// InstrumentGateway wraps a gateway so every call is counted and timed.
type InstrumentGateway struct {
	Next ports.Gateway
}

func (g InstrumentGateway) LoadUser(ctx context.Context, userID string) (ports.UserProgress, error) {
	done := observe("load_user")
	progress, err := g.Next.LoadUser(ctx, userID)
	done(err)
	return progress, err
}

func (g InstrumentGateway) CreateUser(ctx context.Context, progress ports.UserProgress) error {
	done := observe("create_user")
	err := g.Next.CreateUser(ctx, progress)
	done(err)
	return err
}

func (g InstrumentGateway) UpdateProfile(ctx context.Context, userID string, displayName string, username string, lastActiveAt time.Time) error {
	done := observe("update_profile")
	err := g.Next.UpdateProfile(ctx, userID, displayName, username, lastActiveAt)
	done(err)
	return err
}

func (g InstrumentGateway) ApplyIncrementalUpdate(ctx context.Context, userID string, update ports.ProgressUpdate) error {
	done := observe("apply_incremental_update")
	err := g.Next.ApplyIncrementalUpdate(ctx, userID, update)
	done(err)
	return err
}

func (g InstrumentGateway) RefreshEnergy(ctx context.Context, userID string, energy int, refreshedAt time.Time) error {
	done := observe("refresh_energy")
	err := g.Next.RefreshEnergy(ctx, userID, energy, refreshedAt)
	done(err)
	if err == nil {
		EnergyRefillsTotal.Inc()
	}
	return err
}

func (g InstrumentGateway) UpsertLeaderboardEntry(ctx context.Context, entry ports.LeaderboardUpsert) error {
	done := observe("upsert_leaderboard_entry")
	err := g.Next.UpsertLeaderboardEntry(ctx, entry)
	done(err)
	return err
}

func (g InstrumentGateway) QueryTopLeaderboard(ctx context.Context, limit int) ([]ports.LeaderboardRow, error) {
	done := observe("query_top_leaderboard")
	rows, err := g.Next.QueryTopLeaderboard(ctx, limit)
	done(err)
	return rows, err
}

func observe(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		GatewayCallsTotal.WithLabelValues(operation, outcome).Inc()
		GatewayLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
