package domain

import "time"

type ContractStatus string

const (
	ContractStatusActive    ContractStatus = "ACTIVE"
	ContractStatusCompleted ContractStatus = "COMPLETED"
	ContractStatusCancelled ContractStatus = "CANCELLED"
)

const (
	MinContractNameLength = 3
	MinContractSeats      = 2
	MaxContractSeats      = 20
)

type Address struct {
	Address string `json:"address"`
}

type Route struct {
	StartLocation Address `json:"start_location"`
	EndLocation   Address `json:"end_location"`
}

type Contract struct {
	ID                 int32          `json:"id"`
	Name               string         `json:"name"`
	CreatorID          int32          `json:"creator_id"`
	Members            []int32        `json:"members"`
	StartDate          time.Time      `json:"start_date"`
	EndDate            time.Time      `json:"end_date"`
	TotalSeats         int32          `json:"total_seats"`
	Route              Route          `json:"route"`
	WeeklySchedule     WeeklySchedule `json:"weekly_schedule"`
	AutoPostExtraSeats bool           `json:"auto_post_extra_seats"`
	Status             ContractStatus `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// ExtraSeats is the number of seats not taken by members. It is negative
// only if the member invariant has been broken upstream.
func (c *Contract) ExtraSeats() int32 {
	return c.TotalSeats - int32(len(c.Members))
}

func (c *Contract) IsMember(userID int32) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

func (c *Contract) IsActive() bool {
	return c.Status == ContractStatusActive
}

// ContractInput carries the caller-supplied fields for a new contract.
type ContractInput struct {
	Name               string
	MemberIDs          []int32
	StartDate          time.Time
	EndDate            time.Time
	TotalSeats         int32
	Route              Route
	WeeklySchedule     WeeklySchedule
	AutoPostExtraSeats bool
}
