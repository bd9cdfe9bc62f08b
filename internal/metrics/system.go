// Package metrics supplies host resource readings to the alert rules.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// SystemCollector reads CPU and memory usage of the dashboard host via
// gopsutil. Readings are cached briefly so that multiple rules evaluating in
// one cycle share a single measurement.
type SystemCollector struct {
	logger *zap.Logger

	mu       sync.Mutex
	cacheFor time.Duration
	lastAt   time.Time
	lastCPU  float64
	lastMem  float64
}

// NewSystemCollector creates a collector caching readings for the given
// duration. A non-positive duration disables caching.
func NewSystemCollector(logger *zap.Logger, cacheFor time.Duration) *SystemCollector {
	return &SystemCollector{
		logger:   logger.Named("system-metrics"),
		cacheFor: cacheFor,
	}
}

// Usage returns current CPU and memory usage percentages.
func (c *SystemCollector) Usage(ctx context.Context) (float64, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cacheFor > 0 && time.Since(c.lastAt) < c.cacheFor {
		return c.lastCPU, c.lastMem, nil
	}

	cpuPercent, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get CPU usage: %w", err)
	}
	if len(cpuPercent) == 0 {
		return 0, 0, fmt.Errorf("no CPU usage data available")
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get memory usage: %w", err)
	}

	c.lastAt = time.Now()
	c.lastCPU = cpuPercent[0]
	c.lastMem = memInfo.UsedPercent

	c.logger.Debug("Host usage sampled",
		zap.Float64("cpu_percent", c.lastCPU),
		zap.Float64("memory_percent", c.lastMem))

	return c.lastCPU, c.lastMem, nil
}
