package domain

import "time"

type Staff struct {
	ID          uint      `json:"id"`
	VenueID     uint      `json:"venue_id"`
	UserID      *uint     `json:"user_id,omitempty"`
	DisplayName string    `json:"display_name"`
	Balance     int64     `json:"balance"` // smallest currency unit, cache over unpaid allocations
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
