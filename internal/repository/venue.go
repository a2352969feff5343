package repository

import (
	"context"
	"fmt"

	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/repository/dao"
)

var (
	ErrVenueNotFound   = dao.ErrVenueNotFound
	ErrVenueSlugExists = dao.ErrVenueSlugExists
	ErrStaffNotFound   = dao.ErrStaffNotFound
	ErrQRCodeNotFound  = dao.ErrQRCodeNotFound
)

type VenueDAO interface {
	CreateVenue(ctx context.Context, venue dao.Venue) (dao.Venue, error)
	GetVenueByID(ctx context.Context, id uint) (dao.Venue, error)
	GetVenueBySlug(ctx context.Context, slug string) (dao.Venue, error)
	UpdateVenueMode(ctx context.Context, venueID uint, mode string, allowStaffChoice bool, unassignedPolicy string) error
	CreateStaff(ctx context.Context, staff dao.Staff) (dao.Staff, error)
	GetStaffByID(ctx context.Context, id uint) (dao.Staff, error)
	ListStaffByVenue(ctx context.Context, venueID uint, activeOnly bool) ([]dao.Staff, error)
	SetStaffActive(ctx context.Context, staffID uint, active bool) error
	CreateQRCode(ctx context.Context, code dao.QRCode) (dao.QRCode, error)
	GetQRCodeBySlug(ctx context.Context, slug string) (dao.QRCode, error)
	IsVenueOwner(ctx context.Context, venueID, userID uint) (bool, error)
}

type VenueRepository struct {
	dao VenueDAO
}

func NewVenueRepository(dao VenueDAO) *VenueRepository {
	return &VenueRepository{
		dao: dao,
	}
}

func (r *VenueRepository) venueDomainToDao(v domain.Venue) dao.Venue {
	return dao.Venue{
		ID:               v.ID,
		Name:             v.Name,
		Slug:             v.Slug,
		DistributionMode: string(v.DistributionMode),
		AllowStaffChoice: v.AllowStaffChoice,
		UnassignedPolicy: v.UnassignedPolicy,
		OwnerID:          v.OwnerID,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

func (r *VenueRepository) venueDaoToDomain(v dao.Venue) domain.Venue {
	return domain.Venue{
		ID:               v.ID,
		Name:             v.Name,
		Slug:             v.Slug,
		DistributionMode: domain.DistributionMode(v.DistributionMode),
		AllowStaffChoice: v.AllowStaffChoice,
		UnassignedPolicy: v.UnassignedPolicy,
		OwnerID:          v.OwnerID,
		Staff:            r.staffDaosToDomain(v.Staff),
		QRCodes:          r.qrCodeDaosToDomain(v.QRCodes),
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

func (r *VenueRepository) staffDomainToDao(s domain.Staff) dao.Staff {
	return dao.Staff{
		ID:          s.ID,
		VenueID:     s.VenueID,
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
		Balance:     s.Balance,
		Active:      s.Active,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (r *VenueRepository) staffDaoToDomain(s dao.Staff) domain.Staff {
	return domain.Staff{
		ID:          s.ID,
		VenueID:     s.VenueID,
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
		Balance:     s.Balance,
		Active:      s.Active,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (r *VenueRepository) staffDaosToDomain(staff []dao.Staff) []domain.Staff {
	if len(staff) == 0 {
		return nil
	}

	out := make([]domain.Staff, len(staff))
	for i, s := range staff {
		out[i] = r.staffDaoToDomain(s)
	}
	return out
}

func (r *VenueRepository) qrCodeDomainToDao(c domain.QRCode) dao.QRCode {
	return dao.QRCode{
		ID:         c.ID,
		VenueID:    c.VenueID,
		Slug:       c.Slug,
		Kind:       string(c.Kind),
		TableLabel: c.TableLabel,
		StaffID:    c.StaffID,
		CreatedAt:  c.CreatedAt,
	}
}

func (r *VenueRepository) qrCodeDaoToDomain(c dao.QRCode) domain.QRCode {
	return domain.QRCode{
		ID:         c.ID,
		VenueID:    c.VenueID,
		Slug:       c.Slug,
		Kind:       domain.QRCodeKind(c.Kind),
		TableLabel: c.TableLabel,
		StaffID:    c.StaffID,
		CreatedAt:  c.CreatedAt,
	}
}

func (r *VenueRepository) qrCodeDaosToDomain(codes []dao.QRCode) []domain.QRCode {
	if len(codes) == 0 {
		return nil
	}

	out := make([]domain.QRCode, len(codes))
	for i, c := range codes {
		out[i] = r.qrCodeDaoToDomain(c)
	}
	return out
}

func (r *VenueRepository) CreateVenue(ctx context.Context, venue domain.Venue) (domain.Venue, error) {
	created, err := r.dao.CreateVenue(ctx, r.venueDomainToDao(venue))
	if err != nil {
		return domain.Venue{}, fmt.Errorf("r.dao.CreateVenue -> %w", err)
	}

	return r.venueDaoToDomain(created), nil
}

func (r *VenueRepository) GetVenueByID(ctx context.Context, id uint) (domain.Venue, error) {
	venue, err := r.dao.GetVenueByID(ctx, id)
	if err != nil {
		return domain.Venue{}, fmt.Errorf("r.dao.GetVenueByID -> %w", err)
	}

	return r.venueDaoToDomain(venue), nil
}

func (r *VenueRepository) GetVenueBySlug(ctx context.Context, slug string) (domain.Venue, error) {
	venue, err := r.dao.GetVenueBySlug(ctx, slug)
	if err != nil {
		return domain.Venue{}, fmt.Errorf("r.dao.GetVenueBySlug -> %w", err)
	}

	return r.venueDaoToDomain(venue), nil
}

func (r *VenueRepository) UpdateVenueMode(ctx context.Context, venueID uint, mode domain.DistributionMode, allowStaffChoice bool, unassignedPolicy string) error {
	if err := r.dao.UpdateVenueMode(ctx, venueID, string(mode), allowStaffChoice, unassignedPolicy); err != nil {
		return fmt.Errorf("r.dao.UpdateVenueMode -> %w", err)
	}

	return nil
}

func (r *VenueRepository) CreateStaff(ctx context.Context, staff domain.Staff) (domain.Staff, error) {
	created, err := r.dao.CreateStaff(ctx, r.staffDomainToDao(staff))
	if err != nil {
		return domain.Staff{}, fmt.Errorf("r.dao.CreateStaff -> %w", err)
	}

	return r.staffDaoToDomain(created), nil
}

func (r *VenueRepository) GetStaffByID(ctx context.Context, id uint) (domain.Staff, error) {
	staff, err := r.dao.GetStaffByID(ctx, id)
	if err != nil {
		return domain.Staff{}, fmt.Errorf("r.dao.GetStaffByID -> %w", err)
	}

	return r.staffDaoToDomain(staff), nil
}

func (r *VenueRepository) ListStaffByVenue(ctx context.Context, venueID uint, activeOnly bool) ([]domain.Staff, error) {
	staff, err := r.dao.ListStaffByVenue(ctx, venueID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListStaffByVenue -> %w", err)
	}

	return r.staffDaosToDomain(staff), nil
}

func (r *VenueRepository) SetStaffActive(ctx context.Context, staffID uint, active bool) error {
	if err := r.dao.SetStaffActive(ctx, staffID, active); err != nil {
		return fmt.Errorf("r.dao.SetStaffActive -> %w", err)
	}

	return nil
}

func (r *VenueRepository) CreateQRCode(ctx context.Context, code domain.QRCode) (domain.QRCode, error) {
	created, err := r.dao.CreateQRCode(ctx, r.qrCodeDomainToDao(code))
	if err != nil {
		return domain.QRCode{}, fmt.Errorf("r.dao.CreateQRCode -> %w", err)
	}

	return r.qrCodeDaoToDomain(created), nil
}

func (r *VenueRepository) GetQRCodeBySlug(ctx context.Context, slug string) (domain.QRCode, error) {
	code, err := r.dao.GetQRCodeBySlug(ctx, slug)
	if err != nil {
		return domain.QRCode{}, fmt.Errorf("r.dao.GetQRCodeBySlug -> %w", err)
	}

	return r.qrCodeDaoToDomain(code), nil
}

func (r *VenueRepository) IsVenueOwner(ctx context.Context, venueID, userID uint) (bool, error) {
	isOwner, err := r.dao.IsVenueOwner(ctx, venueID, userID)
	if err != nil {
		return false, fmt.Errorf("r.dao.IsVenueOwner -> %w", err)
	}

	return isOwner, nil
}
