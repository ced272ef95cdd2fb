package domain

import "time"

// EntityChangedEvent announces a successful mutation so cached reads for the
// affected namespace can be invalidated.
type EntityChangedEvent struct {
	Namespace  string    `json:"namespace"`
	Operation  string    `json:"operation"`
	EntityID   int64     `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
