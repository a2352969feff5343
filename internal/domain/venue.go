package domain

import "time"

type DistributionMode string

const (
	DistributionPooled   DistributionMode = "POOLED"
	DistributionPersonal DistributionMode = "PERSONAL"
)

type Venue struct {
	ID               uint             `json:"id"`
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	DistributionMode DistributionMode `json:"distribution_mode"`
	AllowStaffChoice bool             `json:"allow_staff_choice"`
	// UnassignedPolicy overrides the platform-wide policy for PERSONAL-mode
	// tips without a staff choice. Empty means use the configured default.
	UnassignedPolicy string `json:"unassigned_policy,omitempty"`
	OwnerID          uint   `json:"owner_id"`
	Staff            []Staff          `json:"staff,omitempty"`
	QRCodes          []QRCode         `json:"qr_codes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (v *Venue) IsPooled() bool {
	return v.DistributionMode == DistributionPooled
}

type QRCodeKind string

const (
	QRCodeVenue QRCodeKind = "venue"
	QRCodeTable QRCodeKind = "table"
	QRCodeStaff QRCodeKind = "staff"
)

type QRCode struct {
	ID         uint       `json:"id"`
	VenueID    uint       `json:"venue_id"`
	Slug       string     `json:"slug"`
	Kind       QRCodeKind `json:"kind"`
	TableLabel string     `json:"table_label,omitempty"`
	StaffID    *uint      `json:"staff_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
