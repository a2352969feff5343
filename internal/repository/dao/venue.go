package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrVenueNotFound   = errors.New("venue not found")
	ErrVenueSlugExists = errors.New("venue slug already taken")
	ErrStaffNotFound   = errors.New("staff member not found")
	ErrQRCodeNotFound  = errors.New("qr code not found")
)

type Venue struct {
	ID uint `gorm:"primaryKey"`

	Name             string `gorm:"not null"`
	Slug             string `gorm:"unique;not null"`
	DistributionMode string `gorm:"not null;default:'POOLED'"`
	AllowStaffChoice bool   `gorm:"not null;default:false"`
	UnassignedPolicy string `gorm:"not null;default:''"` // empty inherits the platform policy
	OwnerID          uint   `gorm:"not null;index"`

	Staff   []Staff  `gorm:"foreignKey:VenueID"`
	QRCodes []QRCode `gorm:"foreignKey:VenueID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Staff struct {
	ID uint `gorm:"primaryKey"`

	VenueID     uint  `gorm:"not null;index"`
	UserID      *uint `gorm:"index"`
	DisplayName string `gorm:"not null"`
	Balance     int64  `gorm:"not null;default:0"` // cache over unpaid tip_allocations
	Active      bool   `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Staff) TableName() string {
	return "staffs"
}

type QRCode struct {
	ID uint `gorm:"primaryKey"`

	VenueID    uint   `gorm:"not null;index"`
	Slug       string `gorm:"unique;not null"`
	Kind       string `gorm:"not null"` // "venue", "table", or "staff"
	TableLabel string
	StaffID    *uint `gorm:"index"`

	CreatedAt time.Time
}

func (QRCode) TableName() string {
	return "qr_codes"
}

type VenueDAO struct {
	db *gorm.DB
}

func NewVenueDAO(db *gorm.DB) *VenueDAO {
	return &VenueDAO{
		db: db,
	}
}

func (d *VenueDAO) CreateVenue(ctx context.Context, venue Venue) (Venue, error) {
	result := d.db.WithContext(ctx).Create(&venue)
	if result.Error != nil {
		var err *pgconn.PgError
		if errors.As(result.Error, &err) &&
			err.Code == pgerrcode.UniqueViolation &&
			strings.Contains(err.Message, `unique constraint "uni_venues_slug"`) {
			return Venue{}, ErrVenueSlugExists
		}

		return Venue{}, result.Error
	}

	return venue, nil
}

func (d *VenueDAO) GetVenueByID(ctx context.Context, id uint) (Venue, error) {
	var venue Venue

	result := d.db.WithContext(ctx).First(&venue, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Venue{}, ErrVenueNotFound
		}

		return Venue{}, result.Error
	}

	return venue, nil
}

func (d *VenueDAO) GetVenueBySlug(ctx context.Context, slug string) (Venue, error) {
	var venue Venue

	result := d.db.WithContext(ctx).First(&venue, "slug = ?", slug)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Venue{}, ErrVenueNotFound
		}

		return Venue{}, result.Error
	}

	return venue, nil
}

func (d *VenueDAO) UpdateVenueMode(ctx context.Context, venueID uint, mode string, allowStaffChoice bool, unassignedPolicy string) error {
	result := d.db.WithContext(ctx).Model(&Venue{}).
		Where("id = ?", venueID).
		Updates(map[string]interface{}{
			"distribution_mode":  mode,
			"allow_staff_choice": allowStaffChoice,
			"unassigned_policy":  unassignedPolicy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVenueNotFound
	}

	return nil
}

func (d *VenueDAO) CreateStaff(ctx context.Context, staff Staff) (Staff, error) {
	result := d.db.WithContext(ctx).Create(&staff)
	if result.Error != nil {
		return Staff{}, result.Error
	}

	return staff, nil
}

func (d *VenueDAO) GetStaffByID(ctx context.Context, id uint) (Staff, error) {
	var staff Staff

	result := d.db.WithContext(ctx).First(&staff, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Staff{}, ErrStaffNotFound
		}

		return Staff{}, result.Error
	}

	return staff, nil
}

func (d *VenueDAO) ListStaffByVenue(ctx context.Context, venueID uint, activeOnly bool) ([]Staff, error) {
	var staff []Staff

	query := d.db.WithContext(ctx).Where("venue_id = ?", venueID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	result := query.Order("id asc").Find(&staff)
	if result.Error != nil {
		return nil, result.Error
	}

	return staff, nil
}

func (d *VenueDAO) SetStaffActive(ctx context.Context, staffID uint, active bool) error {
	result := d.db.WithContext(ctx).Model(&Staff{}).
		Where("id = ?", staffID).
		UpdateColumn("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaffNotFound
	}

	return nil
}

func (d *VenueDAO) CreateQRCode(ctx context.Context, code QRCode) (QRCode, error) {
	result := d.db.WithContext(ctx).Create(&code)
	if result.Error != nil {
		return QRCode{}, result.Error
	}

	return code, nil
}

func (d *VenueDAO) GetQRCodeBySlug(ctx context.Context, slug string) (QRCode, error) {
	var code QRCode

	result := d.db.WithContext(ctx).First(&code, "slug = ?", slug)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return QRCode{}, ErrQRCodeNotFound
		}

		return QRCode{}, result.Error
	}

	return code, nil
}

func (d *VenueDAO) IsVenueOwner(ctx context.Context, venueID, userID uint) (bool, error) {
	var count int64

	result := d.db.WithContext(ctx).Model(&Venue{}).
		Where("id = ? AND owner_id = ?", venueID, userID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}
