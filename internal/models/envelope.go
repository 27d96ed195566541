package models

import "time"

// Envelope wraps every structured message the agent publishes.
type Envelope struct {
	AgentID string      `json:"agent_id"`
	SentAt  time.Time   `json:"sent_at"`
	Payload interface{} `json:"payload"`
}
