package domain

import "time"

type RideRequestStatus string

const (
	RideRequestStatusPending   RideRequestStatus = "PENDING"
	RideRequestStatusConfirmed RideRequestStatus = "CONFIRMED"
	RideRequestStatusCancelled RideRequestStatus = "CANCELLED"
)

type RideRequest struct {
	ID          int32             `json:"id"`
	RideID      int32             `json:"ride_id"`
	RequesterID int32             `json:"requester_id"`
	BidPrice    float64           `json:"bid_price"`
	Status      RideRequestStatus `json:"status"`
	RequestedAt time.Time         `json:"requested_at"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
}

func (r *RideRequest) IsPending() bool {
	return r.Status == RideRequestStatusPending
}

// RideRequestWithRide pairs a request with the ride it targets.
type RideRequestWithRide struct {
	Request RideRequest `json:"request"`
	Ride    Ride        `json:"ride"`
}
