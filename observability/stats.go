package observability

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// KindStats aggregates journal rows of one kind.
type KindStats struct {
	Kind          string  `json:"kind"`
	Runs          int64   `json:"runs"`
	Errors        int64   `json:"errors"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	Slides        int64   `json:"slides"`
	OutputBytes   int64   `json:"output_bytes"`
}

// Stats aggregates runs created after since, one row per kind.
func (j *Journal) Stats(ctx context.Context, since time.Time) ([]KindStats, error) {
	if j == nil {
		return []KindStats{}, nil
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT kind, COUNT(*),
		       SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
		       AVG(duration_ms), SUM(slide_count), SUM(output_bytes)
		FROM deck_runs WHERE created_at >= ?
		GROUP BY kind ORDER BY kind`, StatusError, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("journal: stats: %w", err)
	}
	defer rows.Close()

	out := []KindStats{}
	for rows.Next() {
		var s KindStats
		if err := rows.Scan(&s.Kind, &s.Runs, &s.Errors, &s.AvgDurationMs, &s.Slides, &s.OutputBytes); err != nil {
			return nil, fmt.Errorf("journal: stats scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RuntimeMetrics captures Go process health at a point in time.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemorySysMB   float64 `json:"memory_sys_mb"`
	GCCount       uint32  `json:"gc_count"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

var startedAt = time.Now()

// CollectRuntimeMetrics reads current Go runtime stats.
func CollectRuntimeMetrics() RuntimeMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return RuntimeMetrics{
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: float64(mem.Alloc) / 1024 / 1024,
		MemorySysMB:   float64(mem.Sys) / 1024 / 1024,
		GCCount:       mem.NumGC,
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
	}
}
