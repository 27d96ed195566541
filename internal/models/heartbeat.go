package models

import "time"

// Heartbeat is the periodic agent status report.
type Heartbeat struct {
	Timestamp      time.Time  `json:"timestamp"`
	Status         string     `json:"status"`
	TripState      string     `json:"trip_state"`
	TripID         string     `json:"trip_id,omitempty"`
	ReroutePending bool       `json:"reroute_pending,omitempty"`
	CachedAlerts   int        `json:"cached_alerts"`
	Host           *HostStats `json:"host,omitempty"`
}

// HostStats is a sample of the device resource usage, in percent.
type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
}
