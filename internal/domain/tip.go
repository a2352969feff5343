package domain

import (
	"time"
)

type TipStatus string

const (
	TipPending TipStatus = "PENDING"
	TipPaid    TipStatus = "PAID"
	TipFailed  TipStatus = "FAILED"
)

type Tip struct {
	ID            uint      `json:"id"`
	VenueID       uint      `json:"venue_id"`
	Amount        int64     `json:"amount"`
	Fee           int64     `json:"fee"`
	NetAmount     int64     `json:"net_amount"`
	Currency      string    `json:"currency"`
	Status        TipStatus `json:"status"`
	TargetStaffID *uint     `json:"target_staff_id,omitempty"`
	QRCodeID      *uint     `json:"qr_code_id,omitempty"`
	PaymentRef    string    `json:"payment_ref,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (t *Tip) IsValid() bool {
	if t.Amount <= 0 {
		return false
	}
	if t.NetAmount < 0 || t.NetAmount > t.Amount {
		return false
	}
	return true
}

// PaymentConfirmation is the trusted payment-confirmation event handed to the
// ledger after the surrounding system has verified gateway authenticity.
type PaymentConfirmation struct {
	TipID      uint
	NetAmount  int64
	PaymentRef string
}
