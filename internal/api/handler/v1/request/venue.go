package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/tipdrop/tipdrop-api/internal/domain"
)

type CreateVenueRequest struct {
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	DistributionMode string `json:"distribution_mode"`
	AllowStaffChoice bool   `json:"allow_staff_choice"`
}

func (r CreateVenueRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Slug, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.DistributionMode, validation.In(
			string(domain.DistributionPooled),
			string(domain.DistributionPersonal),
		)),
	)
}

type UpdateVenueModeRequest struct {
	DistributionMode string `json:"distribution_mode"`
	AllowStaffChoice bool   `json:"allow_staff_choice"`
	// Empty keeps the platform-wide policy for unassigned PERSONAL tips.
	UnassignedPolicy string `json:"unassigned_policy"`
}

func (r UpdateVenueModeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DistributionMode, validation.Required, validation.In(
			string(domain.DistributionPooled),
			string(domain.DistributionPersonal),
		)),
		validation.Field(&r.UnassignedPolicy, validation.In("pool", "even_split", "reject")),
	)
}

type AddStaffRequest struct {
	DisplayName string `json:"display_name"`
	UserID      *uint  `json:"user_id"`
}

func (r AddStaffRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 100)),
	)
}

type SetStaffActiveRequest struct {
	Active *bool `json:"active"`
}

func (r SetStaffActiveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Active, validation.NotNil),
	)
}

type CreateQRCodeRequest struct {
	Kind       string `json:"kind"`
	TableLabel string `json:"table_label"`
	StaffID    *uint  `json:"staff_id"`
}

func (r CreateQRCodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required, validation.In(
			string(domain.QRCodeVenue),
			string(domain.QRCodeTable),
			string(domain.QRCodeStaff),
		)),
	)
}
