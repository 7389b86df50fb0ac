package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("boincstats.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var memoryGauge, _ = meter.Int64Gauge("allocated_mb")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// Probe is an application gauge sampled alongside the process stats,
// e.g. the number of indexed cache entries.
type Probe struct {
	Name string
	Read func() int64
}

type probeGauge struct {
	gauge metric.Int64Gauge
	read  func() int64
}

// InstrumentPerfStats samples process stats and probes every interval until
// ctx is done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration, probes ...Probe) {
	var gauges []probeGauge
	for _, p := range probes {
		g, err := meter.Int64Gauge(p.Name)
		if err != nil {
			slog.Debug("failed to create probe gauge", "name", p.Name, "err", err)
			continue
		}
		gauges = append(gauges, probeGauge{gauge: g, read: p.Read})
	}

	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, 0, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil {
					slog.Debug("failed to read cpu usage", "err", err)
				}

				memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
				for _, g := range gauges {
					g.gauge.Record(ctx, g.read())
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
