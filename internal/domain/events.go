package domain

import "time"

// ChangeType is the kind of write that touched a collection.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent announces that one user's collection changed. Consumers
// re-fetch and recompute; the event carries no record payload.
type ChangeEvent struct {
	Collection Collection `json:"collection"`
	Type       ChangeType `json:"type"`
	UserID     string     `json:"user_id"`
	RecordID   string     `json:"record_id,omitempty"`
	At         time.Time  `json:"at"`
}

// NewChangeEvent stamps an event with the current time.
func NewChangeEvent(c Collection, t ChangeType, userID, recordID string) ChangeEvent {
	return ChangeEvent{Collection: c, Type: t, UserID: userID, RecordID: recordID, At: time.Now()}
}
