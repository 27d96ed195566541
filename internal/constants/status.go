package constants

// Heartbeat statuses
const (
	StatusAlive    = "alive"
	StatusDegraded = "degraded"
)
