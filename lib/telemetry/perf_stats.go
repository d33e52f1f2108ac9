package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("perf_stats")

// InstrumentPerfStats records runtime and cpu gauges every 30 seconds
// until the context is cancelled.
func InstrumentPerfStats(ctx context.Context) {
	cpuGauge, _ := meter.Float64Gauge("cpu_usage")
	memoryGauge, _ := meter.Int64Gauge("allocated_mb")
	liveObjectsGauge, _ := meter.Int64Gauge("live_objects")
	goroutineGauge, _ := meter.Int64Gauge("goroutine_count")

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		var memStats runtime.MemStats
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)
				memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				liveObjectsGauge.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))

				usage, err := cpu.Percent(time.Minute, false)
				if err != nil {
					slog.WarnContext(ctx, "failed to read cpu usage", slog.String("err", err.Error()))
					continue
				}
				cpuGauge.Record(ctx, usage[0])
			}
		}
	}()
}
