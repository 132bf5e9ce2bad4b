package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"bricsflow/logger"
)

// resourceSnapshot captures one sample of host level resource utilisation.
type resourceSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	CPUPercent  float64   `json:"cpu_percent"`
	MemoryUsed  uint64    `json:"memory_used"`
	MemoryTotal uint64    `json:"memory_total"`
	MemoryPct   float64   `json:"memory_percent"`
	DiskUsed    uint64    `json:"disk_used"`
	DiskTotal   uint64    `json:"disk_total"`
	DiskPct     float64   `json:"disk_percent"`
}

type resourceSampler struct {
	mu       sync.RWMutex
	items    []resourceSnapshot
	limit    int
	interval time.Duration

	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup
	log     *logger.Log
}

func newResourceSampler(limit int, interval time.Duration, log *logger.Log) *resourceSampler {
	if limit <= 0 {
		limit = 200
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &resourceSampler{limit: limit, interval: interval, log: log}
}

func (s *resourceSampler) start(ctx context.Context) {
	if s == nil || s.running.Swap(true) {
		return
	}
	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.run(childCtx)
	}()
}

func (s *resourceSampler) stop() {
	if s == nil {
		return
	}
	if cancel := s.cancel; cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *resourceSampler) snapshot() []resourceSnapshot {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]resourceSnapshot, len(s.items))
	copy(out, s.items)
	return out
}

func (s *resourceSampler) run(ctx context.Context) {
	log := s.log.WithComponent("resource_sampler")
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cpuSamples, err := cpu.PercentWithContext(ctx, s.interval, false)
		if err != nil {
			log.WithError(err).Debug("failed to sample cpu usage")
			continue
		}
		memStats, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			log.WithError(err).Debug("failed to sample memory usage")
			continue
		}
		diskStats, err := disk.UsageWithContext(ctx, "/")
		if err != nil {
			log.WithError(err).Debug("failed to sample disk usage")
			continue
		}

		cpuPct := 0.0
		if len(cpuSamples) > 0 {
			cpuPct = cpuSamples[0]
		}

		s.mu.Lock()
		s.items = append(s.items, resourceSnapshot{
			Timestamp:   time.Now(),
			CPUPercent:  cpuPct,
			MemoryUsed:  memStats.Used,
			MemoryTotal: memStats.Total,
			MemoryPct:   memStats.UsedPercent,
			DiskUsed:    diskStats.Used,
			DiskTotal:   diskStats.Total,
			DiskPct:     diskStats.UsedPercent,
		})
		if len(s.items) > s.limit {
			s.items = append([]resourceSnapshot(nil), s.items[len(s.items)-s.limit:]...)
		}
		s.mu.Unlock()
	}
}
