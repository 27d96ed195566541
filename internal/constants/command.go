package constants

import "time"

// CommandTimeout bounds the handling of a single user command.
const CommandTimeout = 45 * time.Second

// User commands accepted by the command service
const (
	CommandStartTrip        = "start_trip"
	CommandCancelTrip       = "cancel_trip"
	CommandSetHazardVisible = "set_hazard_visible"
)

// Command statuses
const (
	// CommandStatusFailed indicates that the command execution has failed
	CommandStatusFailed = "failed"
	// CommandStatusSuccess indicates that the command execution was successful
	CommandStatusSuccess = "success"
)
