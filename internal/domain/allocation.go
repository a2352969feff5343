package domain

import "time"

// TipAllocation credits part of a tip to a staff member, or to the venue pool
// when StaffID is nil. Rows are immutable once written except for PayoutID,
// which is stamped exactly once when the allocation is settled.
type TipAllocation struct {
	ID        uint      `json:"id"`
	TipID     uint      `json:"tip_id"`
	Position  int       `json:"position"`
	StaffID   *uint     `json:"staff_id,omitempty"`
	Amount    int64     `json:"amount"`
	Fallback  bool      `json:"fallback"`
	PayoutID  *uint     `json:"payout_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PlanEntry is one line of an allocation plan. A nil StaffID means the venue
// pool. Fallback marks entries that were redirected to the pool because the
// requested staff member could not receive the tip.
type PlanEntry struct {
	StaffID  *uint
	Amount   int64
	Fallback bool
}

// AllocationPlan is an ordered list of plan entries summing to the tip's net
// amount.
type AllocationPlan []PlanEntry

func (p AllocationPlan) Total() int64 {
	var total int64
	for _, e := range p {
		total += e.Amount
	}
	return total
}

// ReconciliationResult reports a balance repair for one staff member.
type ReconciliationResult struct {
	StaffID   uint  `json:"staff_id"`
	Previous  int64 `json:"previous"`
	Corrected int64 `json:"corrected"`
	Delta     int64 `json:"delta"`
}
