package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("go.perf_stats")

// InstrumentPerfStats records process gauges every interval until ctx is done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	cpuGauge, _ := meter.Float64Gauge("cpu_usage")
	memoryGauge, _ := meter.Int64Gauge("allocated_mb")
	goroutineGauge, _ := meter.Int64Gauge("goroutine_count")

	record := func() {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		cpuUsage, err := cpu.PercentWithContext(ctx, 0, false)
		if err == nil && len(cpuUsage) > 0 {
			cpuGauge.Record(ctx, cpuUsage[0])
		} else if err != nil {
			slog.Debug("failed to read cpu usage", "err", err)
		}
		memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
		goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		record()
		for {
			select {
			case <-ticker.C:
				record()
			case <-ctx.Done():
				return
			}
		}
	}()
}
