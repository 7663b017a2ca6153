package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// cpuSampleWindow is how long cpu.Percent averages over. 100ms keeps a
// single scrape fast without reading an uninitialised first sample.
const cpuSampleWindow = 100 * time.Millisecond

// HostHealth is one host-level sample: CPU and memory utilization.
type HostHealth struct {
	CPUPercent        float64
	MemoryUsedPercent float64
}

// SampleHostHealth blocks for cpuSampleWindow while gopsutil measures
// CPU utilization, then reads current memory utilization.
func SampleHostHealth() (HostHealth, error) {
	cpuPercent, err := cpu.Percent(cpuSampleWindow, false)
	if err != nil {
		return HostHealth{}, fmt.Errorf("telemetry: sampling CPU: %w", err)
	}
	var cp float64
	if len(cpuPercent) > 0 {
		cp = cpuPercent[0]
	}

	vmem, err := mem.VirtualMemory()
	if err != nil {
		return HostHealth{}, fmt.Errorf("telemetry: sampling memory: %w", err)
	}

	return HostHealth{CPUPercent: cp, MemoryUsedPercent: vmem.UsedPercent}, nil
}

// HostCollector is a prometheus.Collector that samples host health on
// every scrape rather than maintaining its own polling goroutine —
// CPU/memory readings are cheap enough to take inline, and a failed
// sample should only blank that one scrape, not the whole exporter.
type HostCollector struct {
	cpuDesc *prometheus.Desc
	memDesc *prometheus.Desc
}

// NewHostCollector builds a HostCollector ready to register against a
// prometheus.Registerer.
func NewHostCollector() *HostCollector {
	return &HostCollector{
		cpuDesc: prometheus.NewDesc(
			"cctalkd_host_cpu_percent",
			"Host CPU utilization percent, sampled over 100ms at scrape time.",
			nil, nil,
		),
		memDesc: prometheus.NewDesc(
			"cctalkd_host_memory_used_percent",
			"Host memory utilization percent at scrape time.",
			nil, nil,
		),
	}
}

func (c *HostCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.cpuDesc
	descs <- c.memDesc
}

func (c *HostCollector) Collect(metrics chan<- prometheus.Metric) {
	health, err := SampleHostHealth()
	if err != nil {
		return
	}
	metrics <- prometheus.MustNewConstMetric(c.cpuDesc, prometheus.GaugeValue, health.CPUPercent)
	metrics <- prometheus.MustNewConstMetric(c.memDesc, prometheus.GaugeValue, health.MemoryUsedPercent)
}
