package models

// Command is a user command received from the presentation layer.
type Command struct {
	Name        string    `json:"command"`
	Origin      string    `json:"origin,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Type        AlertType `json:"type,omitempty"`
	Visible     bool      `json:"visible,omitempty"`
}

// CommandResponse reports the result of a command.
type CommandResponse struct {
	Command string `json:"command"`
	Status  string `json:"status"`
	TripID  string `json:"trip_id,omitempty"`
	Error   string `json:"error,omitempty"`
}
