package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type CreateTipRequest struct {
	Amount  int64  `json:"amount"`
	QRSlug  string `json:"qr_slug"`
	StaffID *uint  `json:"staff_id"`
}

func (r CreateTipRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Amount, validation.Required, validation.Min(1)),
		validation.Field(&r.QRSlug, validation.Required),
	)
}
