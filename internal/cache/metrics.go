package cache

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("saferoute.cache")

var (
	graphGets     metric.Int64Counter
	graphHits     metric.Int64Counter
	graphBuilds   metric.Int64Counter
	graphBuildDur metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments once; later calls are no-ops.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		if graphGets, err = meter.Int64Counter("graph_cache_gets_total",
			metric.WithDescription("Graph cache lookups")); err != nil {
			metricsErr = err
			return
		}
		if graphHits, err = meter.Int64Counter("graph_cache_hits_total",
			metric.WithDescription("Graph cache lookups served from cache")); err != nil {
			metricsErr = err
			return
		}
		if graphBuilds, err = meter.Int64Counter("graph_builds_total",
			metric.WithDescription("Graphs built on cache miss")); err != nil {
			metricsErr = err
			return
		}
		graphBuildDur, metricsErr = meter.Float64Histogram("graph_build_duration_seconds",
			metric.WithDescription("Time spent building a region graph"),
			metric.WithUnit("s"))
	})
	return metricsErr
}

func recordGet(ctx context.Context) {
	if initMetrics() == nil {
		graphGets.Add(ctx, 1)
	}
}

func recordHit(ctx context.Context) {
	if initMetrics() == nil {
		graphHits.Add(ctx, 1)
	}
}

func recordBuild(ctx context.Context, d time.Duration) {
	if initMetrics() == nil {
		graphBuilds.Add(ctx, 1)
		graphBuildDur.Record(ctx, d.Seconds())
	}
}
