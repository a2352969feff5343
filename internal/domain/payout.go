package domain

import "time"

// Payout is the batch commit that claims a set of previously-unpaid
// allocations for one staff member.
type Payout struct {
	ID        uint      `json:"id"`
	StaffID   uint      `json:"staff_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
