package entity

import (
	"time"
)

// Edge represents a directed "source relates to target" relationship between identities
type Edge struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
	Pending   bool      `json:"pending,omitempty"`
}

// EdgeEventType names a mutation of the edge set
type EdgeEventType string

const (
	EdgeCreated EdgeEventType = "created"
	EdgeDeleted EdgeEventType = "deleted"
)

// EdgeEvent is published after a mutation has been confirmed
type EdgeEvent struct {
	Type       EdgeEventType `json:"type"`
	Edge       Edge          `json:"edge"`
	OccurredAt time.Time     `json:"occurred_at"`
}
