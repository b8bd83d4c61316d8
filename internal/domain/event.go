package domain

import "time"

type EventType string

const (
	EventRideCreated           EventType = "ride.created"
	EventRequestConfirmed      EventType = "request.confirmed"
	EventRequestCancelled      EventType = "request.cancelled"
	EventContractStatusChanged EventType = "contract.statusChanged"
)

// Event is the side-channel notification handed to collaborators.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	EntityID   int32     `json:"entity_id"`
	State      string    `json:"state"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MaterializeResult reports what one materialization pass did.
type MaterializeResult struct {
	Created []int32      `json:"created"`
	Skipped []time.Time  `json:"skipped"`
	Failed  []DayFailure `json:"failed,omitempty"`
}

type DayFailure struct {
	Day time.Time `json:"day"`
	Err string    `json:"error"`
}

// TickReport summarises one run of the daily rolling materialization.
type TickReport struct {
	Contracts int `json:"contracts"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
	Failures  int `json:"failures"`
}
