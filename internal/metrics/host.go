package metrics

import (
	"context"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"
)

var (
	hostCPUDesc = prometheus.NewDesc("sentinel_host_cpu_percent",
		"Percentage of CPU utilization across all cores.", nil, nil)
	hostMemoryDesc = prometheus.NewDesc("sentinel_host_memory_percent",
		"Percentage of used virtual memory.", nil, nil)
	hostDiskDesc = prometheus.NewDesc("sentinel_host_disk_percent",
		"Percentage of disk space used on the monitored filesystem.", []string{"path"}, nil)
)

// HostSampler reads device resource usage. It is also a prometheus.Collector.
type HostSampler struct {
	diskPath string
	logger   zerolog.Logger

	cpuPercent func(ctx context.Context) (float64, error)
	memPercent func(ctx context.Context) (float64, error)
	diskUsage  func(ctx context.Context, path string) (float64, error)
}

// NewHostSampler creates a sampler reporting disk usage of diskPath ("/" when empty).
func NewHostSampler(diskPath string, logger zerolog.Logger) *HostSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostSampler{
		diskPath:   diskPath,
		logger:     logger,
		cpuPercent: cpuPercent,
		memPercent: memPercent,
		diskUsage:  diskUsage,
	}
}

func cpuPercent(ctx context.Context) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil || len(percentages) == 0 {
		return 0, err
	}
	return percentages[0], nil
}

func memPercent(ctx context.Context) (float64, error) {
	stats, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return stats.UsedPercent, nil
}

func diskUsage(ctx context.Context, path string) (float64, error) {
	stats, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return stats.UsedPercent, nil
}

// Sample collects one reading. Individual failures are logged and leave the field zero.
func (h *HostSampler) Sample(ctx context.Context) models.HostStats {
	var stats models.HostStats
	var err error

	if stats.CPUPercent, err = h.cpuPercent(ctx); err != nil {
		h.logger.Error().Err(err).Msg("Failed to get CPU usage")
	}
	if stats.MemoryPercent, err = h.memPercent(ctx); err != nil {
		h.logger.Error().Err(err).Msg("Failed to retrieve memory statistics")
	}
	if stats.DiskPercent, err = h.diskUsage(ctx, h.diskPath); err != nil {
		h.logger.Error().Err(err).Str("path", h.diskPath).Msg("Failed to get disk usage")
	}
	return stats
}

// Describe implements prometheus.Collector.
func (h *HostSampler) Describe(ch chan<- *prometheus.Desc) {
	ch <- hostCPUDesc
	ch <- hostMemoryDesc
	ch <- hostDiskDesc
}

// Collect implements prometheus.Collector.
func (h *HostSampler) Collect(ch chan<- prometheus.Metric) {
	stats := h.Sample(context.Background())
	ch <- prometheus.MustNewConstMetric(hostCPUDesc, prometheus.GaugeValue, stats.CPUPercent)
	ch <- prometheus.MustNewConstMetric(hostMemoryDesc, prometheus.GaugeValue, stats.MemoryPercent)
	ch <- prometheus.MustNewConstMetric(hostDiskDesc, prometheus.GaugeValue, stats.DiskPercent, h.diskPath)
}
