package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type tierStat struct {
	firings int64
	txs     int64
}

var (
	errorsScheduler  int64
	errorsMarketdata int64
	warnsScheduler   int64
	warnsMarketdata  int64
	integrityFaults  int64
	fallbackFetches  int64
	archiveWrites    int64
	tiers            sync.Map // map[string]*tierStat
)

func recordWarn(component string) {
	if strings.Contains(component, "scheduler") || strings.Contains(component, "tier") {
		atomic.AddInt64(&warnsScheduler, 1)
	} else if strings.Contains(component, "marketdata") {
		atomic.AddInt64(&warnsMarketdata, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "scheduler") || strings.Contains(component, "tier") {
		atomic.AddInt64(&errorsScheduler, 1)
	} else if strings.Contains(component, "marketdata") {
		atomic.AddInt64(&errorsMarketdata, 1)
	}
}

// IncrementTierFiring records one firing of the named scheduler tier along
// with the number of transactions it produced.
func IncrementTierFiring(tier string, transactions int) {
	v, _ := tiers.LoadOrStore(tier, &tierStat{})
	ts := v.(*tierStat)
	atomic.AddInt64(&ts.firings, 1)
	atomic.AddInt64(&ts.txs, int64(transactions))
}

// IncrementIntegrityFault records a transaction that referenced an unknown
// obligor and was skipped.
func IncrementIntegrityFault() {
	atomic.AddInt64(&integrityFaults, 1)
}

// IncrementFallbackFetch records a market data fetch that fell back to its
// hardcoded constant.
func IncrementFallbackFetch() {
	atomic.AddInt64(&fallbackFetches, 1)
}

// IncrementArchiveWrite records one history archive flush.
func IncrementArchiveWrite() {
	atomic.AddInt64(&archiveWrites, 1)
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and scheduler statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")

	tierData := map[string]map[string]int64{}
	tiers.Range(func(k, v any) bool {
		name := k.(string)
		ts := v.(*tierStat)
		tierData[name] = map[string]int64{
			"firings":      atomic.LoadInt64(&ts.firings),
			"transactions": atomic.LoadInt64(&ts.txs),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"errors_scheduler":  atomic.LoadInt64(&errorsScheduler),
		"errors_marketdata": atomic.LoadInt64(&errorsMarketdata),
		"warns_scheduler":   atomic.LoadInt64(&warnsScheduler),
		"warns_marketdata":  atomic.LoadInt64(&warnsMarketdata),
		"integrity_faults":  atomic.LoadInt64(&integrityFaults),
		"fallback_fetches":  atomic.LoadInt64(&fallbackFetches),
		"archive_writes":    atomic.LoadInt64(&archiveWrites),
		"goroutines":        runtime.NumGoroutine(),
		"cpu_percent":       cpuPct,
		"memory_mb":         int64(memStats.Used) / 1024 / 1024,
		"disk_mb":           int64(diskStats.Used) / 1024 / 1024,
		"tiers":             tierData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsScheduler"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsScheduler)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsMarketdata"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsMarketdata)))},
		cwtypes.MetricDatum{MetricName: aws.String("IntegrityFaults"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&integrityFaults)))},
		cwtypes.MetricDatum{MetricName: aws.String("FallbackFetches"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&fallbackFetches)))},
		cwtypes.MetricDatum{MetricName: aws.String("ArchiveWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&archiveWrites)))},
	)

	for name, stats := range tierData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("TierFirings"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Tier"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["firings"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("TierTransactions"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Tier"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["transactions"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
