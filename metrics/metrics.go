package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Distribution
var defaultMillisecondsDistribution = view.Distribution(0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 5000, 10000, 20000, 50000, 100000)

// Global Tags
var (
	Endpoint, _ = tag.NewKey("endpoint")
	Action, _   = tag.NewKey("action")
	Refused, _  = tag.NewKey("refused")
)

// Measures
var (
	APIRequestDuration = stats.Float64("api/request_duration_ms", "Duration of remote ledger requests", stats.UnitMilliseconds)
	SettlementOutcomes = stats.Int64("settlement/outcomes", "Counter for close workflow outcomes", stats.UnitDimensionless)
)

var (
	APIRequestDurationView = &view.View{
		Name:        "api/request_duration_ms",
		Measure:     APIRequestDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{Endpoint},
	}
	SettlementOutcomesView = &view.View{
		Name:        "settlement/outcomes",
		Measure:     SettlementOutcomes,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Action, Refused},
	}
)

var DefaultViews = []*view.View{
	APIRequestDurationView,
	SettlementOutcomesView,
}

// copy from "github.com/filecoin-project/lotus/metrics/metrics.go"

// SinceInMilliseconds returns the duration of time since the provide time as a float64.
func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Nanoseconds()) / 1e6
}

// Timer is a function stopwatch, calling it starts the timer,
// calling the returned function will record the duration.
func Timer(ctx context.Context, m *stats.Float64Measure) func() {
	start := time.Now()
	return func() {
		stats.Record(ctx, m.M(SinceInMilliseconds(start)))
	}
}
