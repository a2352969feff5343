package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/repository"
)

var (
	ErrVenueNotFound   = repository.ErrVenueNotFound
	ErrVenueSlugExists = repository.ErrVenueSlugExists
	ErrQRCodeNotFound  = repository.ErrQRCodeNotFound

	ErrStaffQRNeedsStaff = errors.New("a staff qr code needs a staff member")
)

type VenueRepository interface {
	CreateVenue(ctx context.Context, venue domain.Venue) (domain.Venue, error)
	GetVenueByID(ctx context.Context, id uint) (domain.Venue, error)
	GetVenueBySlug(ctx context.Context, slug string) (domain.Venue, error)
	UpdateVenueMode(ctx context.Context, venueID uint, mode domain.DistributionMode, allowStaffChoice bool, unassignedPolicy string) error
	CreateStaff(ctx context.Context, staff domain.Staff) (domain.Staff, error)
	GetStaffByID(ctx context.Context, id uint) (domain.Staff, error)
	ListStaffByVenue(ctx context.Context, venueID uint, activeOnly bool) ([]domain.Staff, error)
	SetStaffActive(ctx context.Context, staffID uint, active bool) error
	CreateQRCode(ctx context.Context, code domain.QRCode) (domain.QRCode, error)
	GetQRCodeBySlug(ctx context.Context, slug string) (domain.QRCode, error)
	IsVenueOwner(ctx context.Context, venueID, userID uint) (bool, error)
}

type VenueService struct {
	repo VenueRepository
}

func NewVenueService(repo VenueRepository) *VenueService {
	return &VenueService{
		repo: repo,
	}
}

func (s *VenueService) CreateVenue(ctx context.Context, venue domain.Venue, ownerID uint) (domain.Venue, error) {
	venue.OwnerID = ownerID
	if venue.DistributionMode == "" {
		venue.DistributionMode = domain.DistributionPooled
	}

	created, err := s.repo.CreateVenue(ctx, venue)
	if err != nil {
		return domain.Venue{}, fmt.Errorf("s.repo.CreateVenue -> %w", err)
	}

	return created, nil
}

func (s *VenueService) GetVenue(ctx context.Context, venueID uint) (domain.Venue, error) {
	venue, err := s.repo.GetVenueByID(ctx, venueID)
	if err != nil {
		return domain.Venue{}, fmt.Errorf("s.repo.GetVenueByID -> %w", err)
	}

	return venue, nil
}

// UpdateVenueMode changes the distribution mode going forward. Existing
// allocations are never rewritten by a mode change.
func (s *VenueService) UpdateVenueMode(ctx context.Context, venueID uint, mode domain.DistributionMode, allowStaffChoice bool, unassignedPolicy string) error {
	if err := s.repo.UpdateVenueMode(ctx, venueID, mode, allowStaffChoice, unassignedPolicy); err != nil {
		return fmt.Errorf("s.repo.UpdateVenueMode -> %w", err)
	}

	return nil
}

func (s *VenueService) AddStaff(ctx context.Context, staff domain.Staff) (domain.Staff, error) {
	if _, err := s.repo.GetVenueByID(ctx, staff.VenueID); err != nil {
		return domain.Staff{}, fmt.Errorf("s.repo.GetVenueByID -> %w", err)
	}

	staff.Active = true
	staff.Balance = 0

	created, err := s.repo.CreateStaff(ctx, staff)
	if err != nil {
		return domain.Staff{}, fmt.Errorf("s.repo.CreateStaff -> %w", err)
	}

	return created, nil
}

func (s *VenueService) GetStaff(ctx context.Context, staffID uint) (domain.Staff, error) {
	staff, err := s.repo.GetStaffByID(ctx, staffID)
	if err != nil {
		return domain.Staff{}, fmt.Errorf("s.repo.GetStaffByID -> %w", err)
	}

	return staff, nil
}

func (s *VenueService) ListStaff(ctx context.Context, venueID uint, activeOnly bool) ([]domain.Staff, error) {
	staff, err := s.repo.ListStaffByVenue(ctx, venueID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("s.repo.ListStaffByVenue -> %w", err)
	}

	return staff, nil
}

func (s *VenueService) SetStaffActive(ctx context.Context, staffID uint, active bool) error {
	if err := s.repo.SetStaffActive(ctx, staffID, active); err != nil {
		return fmt.Errorf("s.repo.SetStaffActive -> %w", err)
	}

	return nil
}

// CreateQRCode mints a scannable code for the venue, a table or a staff
// member. Rendering the image is out of scope; the slug is what gets encoded.
func (s *VenueService) CreateQRCode(ctx context.Context, venueID uint, kind domain.QRCodeKind, tableLabel string, staffID *uint) (domain.QRCode, error) {
	if _, err := s.repo.GetVenueByID(ctx, venueID); err != nil {
		return domain.QRCode{}, fmt.Errorf("s.repo.GetVenueByID -> %w", err)
	}

	if kind == domain.QRCodeStaff {
		if staffID == nil {
			return domain.QRCode{}, ErrStaffQRNeedsStaff
		}
		staff, err := s.repo.GetStaffByID(ctx, *staffID)
		if err != nil {
			return domain.QRCode{}, fmt.Errorf("s.repo.GetStaffByID -> %w", err)
		}
		if staff.VenueID != venueID {
			return domain.QRCode{}, ErrInvalidTarget
		}
	} else {
		staffID = nil
	}

	code := domain.QRCode{
		VenueID:    venueID,
		Slug:       uuid.NewString(),
		Kind:       kind,
		TableLabel: tableLabel,
		StaffID:    staffID,
	}

	created, err := s.repo.CreateQRCode(ctx, code)
	if err != nil {
		return domain.QRCode{}, fmt.Errorf("s.repo.CreateQRCode -> %w", err)
	}

	return created, nil
}

func (s *VenueService) IsVenueOwner(ctx context.Context, venueID, userID uint) (bool, error) {
	isOwner, err := s.repo.IsVenueOwner(ctx, venueID, userID)
	if err != nil {
		return false, fmt.Errorf("s.repo.IsVenueOwner -> %w", err)
	}

	return isOwner, nil
}
