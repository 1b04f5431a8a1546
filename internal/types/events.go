package types

import "time"

// EventType categorizes audit events recorded against queue items
type EventType string

const (
	EventCreated       EventType = "created"
	EventStatusChanged EventType = "status_changed"
	EventUpdated       EventType = "updated"
)

// Event is one audit record in a queue item's history. Events are written
// in the same transaction as the mutation they describe.
type Event struct {
	ID        int64     `json:"id"`
	ItemID    string    `json:"item_id"`
	EventType EventType `json:"event_type"`
	Actor     string    `json:"actor,omitempty"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
