package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tipdrop/tipdrop-api/internal/domain"
)

var (
	ErrStaffChoiceNotAllowed = errors.New("venue does not allow choosing a staff member")
	ErrStaffInactive         = errors.New("staff member is not active")
	ErrQRCodeMismatch        = errors.New("qr code does not belong to this venue")
)

// PaymentGateway creates a gateway charge for a tip and returns the gateway
// reference plus the client secret the customer's device needs to complete it.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (ref, clientSecret string, err error)
}

type TipLedgerRepository interface {
	CreateTip(ctx context.Context, tip domain.Tip) (domain.Tip, error)
	GetTipByID(ctx context.Context, id uint) (domain.Tip, error)
}

type TipVenueRepository interface {
	GetVenueByID(ctx context.Context, id uint) (domain.Venue, error)
	GetStaffByID(ctx context.Context, id uint) (domain.Staff, error)
	GetQRCodeBySlug(ctx context.Context, slug string) (domain.QRCode, error)
}

// TipService creates pending tips from QR scans. Allocation only happens once
// the gateway confirms payment, through LedgerService.
type TipService struct {
	repo      TipLedgerRepository
	venueRepo TipVenueRepository
	gateway   PaymentGateway

	feeBasisPoints int64
	currency       string
}

func NewTipService(repo TipLedgerRepository, venueRepo TipVenueRepository, gateway PaymentGateway, feeBasisPoints int64, currency string) *TipService {
	return &TipService{
		repo:           repo,
		venueRepo:      venueRepo,
		gateway:        gateway,
		feeBasisPoints: feeBasisPoints,
		currency:       currency,
	}
}

// CreateTip registers a pending tip and opens the gateway payment for it.
// Targeting rules: a staff QR targets its staff member directly; an explicit
// customer choice additionally requires the venue's allow_staff_choice flag.
func (s *TipService) CreateTip(ctx context.Context, venueID uint, amount int64, qrSlug string, chosenStaffID *uint) (domain.Tip, string, error) {
	venue, err := s.venueRepo.GetVenueByID(ctx, venueID)
	if err != nil {
		return domain.Tip{}, "", fmt.Errorf("s.venueRepo.GetVenueByID -> %w", err)
	}

	var qrCodeID *uint
	var targetStaffID *uint

	if qrSlug != "" {
		qr, err := s.venueRepo.GetQRCodeBySlug(ctx, qrSlug)
		if err != nil {
			return domain.Tip{}, "", fmt.Errorf("s.venueRepo.GetQRCodeBySlug -> %w", err)
		}
		if qr.VenueID != venue.ID {
			return domain.Tip{}, "", ErrQRCodeMismatch
		}

		qrCodeID = &qr.ID
		if qr.Kind == domain.QRCodeStaff {
			targetStaffID = qr.StaffID
		}
	}

	if chosenStaffID != nil {
		if !venue.AllowStaffChoice {
			return domain.Tip{}, "", ErrStaffChoiceNotAllowed
		}

		staff, err := s.venueRepo.GetStaffByID(ctx, *chosenStaffID)
		if err != nil {
			return domain.Tip{}, "", fmt.Errorf("s.venueRepo.GetStaffByID -> %w", err)
		}
		if staff.VenueID != venue.ID {
			return domain.Tip{}, "", ErrInvalidTarget
		}
		if !staff.Active {
			return domain.Tip{}, "", ErrStaffInactive
		}

		targetStaffID = chosenStaffID
	}

	fee := amount * s.feeBasisPoints / 10000

	metadata := map[string]string{
		"venue_id": strconv.FormatUint(uint64(venue.ID), 10),
	}
	ref, clientSecret, err := s.gateway.CreatePaymentIntent(ctx, amount, s.currency, metadata)
	if err != nil {
		return domain.Tip{}, "", fmt.Errorf("s.gateway.CreatePaymentIntent -> %w", err)
	}

	tip := domain.Tip{
		VenueID:       venue.ID,
		Amount:        amount,
		Fee:           fee,
		NetAmount:     amount - fee,
		Currency:      s.currency,
		Status:        domain.TipPending,
		TargetStaffID: targetStaffID,
		QRCodeID:      qrCodeID,
		PaymentRef:    ref,
	}

	created, err := s.repo.CreateTip(ctx, tip)
	if err != nil {
		return domain.Tip{}, "", fmt.Errorf("s.repo.CreateTip -> %w", err)
	}

	return created, clientSecret, nil
}

func (s *TipService) GetTip(ctx context.Context, tipID uint) (domain.Tip, error) {
	tip, err := s.repo.GetTipByID(ctx, tipID)
	if err != nil {
		return domain.Tip{}, fmt.Errorf("s.repo.GetTipByID -> %w", err)
	}

	return tip, nil
}
