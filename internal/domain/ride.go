package domain

import "time"

type RideStatus string

const (
	RideStatusOpen      RideStatus = "OPEN"
	RideStatusClosed    RideStatus = "CLOSED"
	RideStatusCompleted RideStatus = "COMPLETED"
)

// Ride is one dated occurrence, either posted directly or materialized from
// a contract. Address and seat fields are snapshots taken at creation.
type Ride struct {
	ID            int32      `json:"id"`
	OwnerID       int32      `json:"owner_id"`
	StartLocation Address    `json:"start_location"`
	EndLocation   Address    `json:"end_location"`
	DateTime      time.Time  `json:"date_time"`
	BasePrice     float64    `json:"base_price"`
	Seats         int32      `json:"seats"`
	Status        RideStatus `json:"status"`
	IsRecurring   bool       `json:"is_recurring"`
	ContractID    *int32     `json:"contract_id,omitempty"`
	OccurrenceDay *time.Time `json:"occurrence_day,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (r *Ride) IsOpen() bool {
	return r.Status == RideStatusOpen
}

// CanMoveTo reports whether the owner may move the ride to next.
func (r *Ride) CanMoveTo(next RideStatus) bool {
	switch r.Status {
	case RideStatusOpen:
		return next == RideStatusClosed || next == RideStatusCompleted
	case RideStatusClosed:
		return next == RideStatusOpen || next == RideStatusCompleted
	default:
		return false
	}
}

// RideFilter narrows the open-ride listing.
type RideFilter struct {
	Destination string
	Date        *time.Time
	Limit       int32
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int32  `json:"count"`
}

// RideInput carries the caller-supplied fields for a standalone ride.
type RideInput struct {
	StartLocation Address
	EndLocation   Address
	DateTime      time.Time
	BasePrice     float64
	Seats         int32
}

// RideHistory lists rides a user posted and rides joined through a confirmed request.
type RideHistory struct {
	PostedRides []Ride `json:"posted_rides"`
	JoinedRides []Ride `json:"joined_rides"`
}

type Stats struct {
	Contracts []StatusCount `json:"contracts"`
	Rides     []StatusCount `json:"rides"`
	Requests  []StatusCount `json:"requests"`
}
