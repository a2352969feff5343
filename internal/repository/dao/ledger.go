package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTipNotFound      = errors.New("tip not found")
	ErrTipNotPayable    = errors.New("tip cannot transition to paid")
	ErrTipNotPaid       = errors.New("tip is not paid")
	ErrAlreadyAllocated = errors.New("tip allocation already in progress")
	ErrNothingToPayout  = errors.New("no unpaid allocations to settle")
	ErrConflict         = errors.New("concurrent write conflict")
)

type Tip struct {
	ID uint `gorm:"primaryKey"`

	VenueID       uint   `gorm:"not null;index"`
	Amount        int64  `gorm:"not null"`
	Fee           int64  `gorm:"not null;default:0"`
	NetAmount     int64  `gorm:"not null"`
	Currency      string `gorm:"not null;default:'eur'"`
	Status        string `gorm:"not null;default:'PENDING'"`
	TargetStaffID *uint  `gorm:"index"`
	QRCodeID      *uint
	PaymentRef    string `gorm:"unique;not null"`
	PaidAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type TipAllocation struct {
	ID uint `gorm:"primaryKey"`

	TipID    uint  `gorm:"not null;uniqueIndex:idx_tip_allocations_position"`
	Position int   `gorm:"not null;uniqueIndex:idx_tip_allocations_position"`
	StaffID  *uint `gorm:"index"`
	Amount   int64 `gorm:"not null"`
	Fallback bool  `gorm:"not null;default:false"`
	PayoutID *uint `gorm:"index"`

	CreatedAt time.Time
}

type Payout struct {
	ID uint `gorm:"primaryKey"`

	StaffID uint  `gorm:"not null;index"`
	Amount  int64 `gorm:"not null;default:0"`

	CreatedAt time.Time
}

type LedgerDAO struct {
	db *gorm.DB
}

func NewLedgerDAO(db *gorm.DB) *LedgerDAO {
	return &LedgerDAO{
		db: db,
	}
}

func (d *LedgerDAO) CreateTip(ctx context.Context, tip Tip) (Tip, error) {
	result := d.db.WithContext(ctx).Create(&tip)
	if result.Error != nil {
		return Tip{}, translateError(result.Error)
	}

	return tip, nil
}

func (d *LedgerDAO) GetTipByID(ctx context.Context, id uint) (Tip, error) {
	var tip Tip

	result := d.db.WithContext(ctx).First(&tip, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Tip{}, ErrTipNotFound
		}

		return Tip{}, result.Error
	}

	return tip, nil
}

func (d *LedgerDAO) GetTipByPaymentRef(ctx context.Context, ref string) (Tip, error) {
	var tip Tip

	result := d.db.WithContext(ctx).First(&tip, "payment_ref = ?", ref)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Tip{}, ErrTipNotFound
		}

		return Tip{}, result.Error
	}

	return tip, nil
}

// MarkTipPaid transitions a pending tip to PAID with the confirmed net amount.
// Calling it again for an already-paid tip returns the tip unchanged, so
// duplicate webhook delivery is harmless.
func (d *LedgerDAO) MarkTipPaid(ctx context.Context, tipID uint, netAmount int64) (Tip, error) {
	now := time.Now()
	result := d.db.WithContext(ctx).Model(&Tip{}).
		Where("id = ? AND status = ?", tipID, "PENDING").
		Updates(map[string]interface{}{
			"status":     "PAID",
			"net_amount": netAmount,
			"paid_at":    &now,
		})
	if result.Error != nil {
		return Tip{}, translateError(result.Error)
	}

	tip, err := d.GetTipByID(ctx, tipID)
	if err != nil {
		return Tip{}, err
	}

	if result.RowsAffected == 0 && tip.Status != "PAID" {
		return Tip{}, ErrTipNotPayable
	}

	return tip, nil
}

func (d *LedgerDAO) MarkTipFailed(ctx context.Context, tipID uint) (Tip, error) {
	result := d.db.WithContext(ctx).Model(&Tip{}).
		Where("id = ? AND status = ?", tipID, "PENDING").
		UpdateColumn("status", "FAILED")
	if result.Error != nil {
		return Tip{}, translateError(result.Error)
	}

	tip, err := d.GetTipByID(ctx, tipID)
	if err != nil {
		return Tip{}, err
	}

	if result.RowsAffected == 0 && tip.Status != "FAILED" {
		return Tip{}, ErrTipNotPayable
	}

	return tip, nil
}

// CommitAllocations inserts the allocation rows for a paid tip and applies the
// matching balance increments in one transaction. If allocations already exist
// for the tip they are returned as-is. A unique index on (tip_id, position)
// turns a racing duplicate commit into ErrAlreadyAllocated, which the caller
// resolves by retrying the read.
func (d *LedgerDAO) CommitAllocations(ctx context.Context, tipID uint, rows []TipAllocation) ([]TipAllocation, error) {
	var out []TipAllocation

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tip Tip
		if err := tx.First(&tip, tipID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTipNotFound
			}
			return err
		}
		if tip.Status != "PAID" {
			return ErrTipNotPaid
		}

		var existing []TipAllocation
		if err := tx.Where("tip_id = ?", tipID).Order("position asc").Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			out = existing
			return nil
		}

		for i := range rows {
			rows[i].ID = 0
			rows[i].TipID = tipID
			rows[i].Position = i
			rows[i].PayoutID = nil
		}

		if err := tx.Create(&rows).Error; err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) &&
				pgErr.Code == pgerrcode.UniqueViolation &&
				strings.Contains(pgErr.Message, "idx_tip_allocations_position") {
				return ErrAlreadyAllocated
			}
			return err
		}

		for _, row := range rows {
			if row.StaffID == nil {
				continue
			}
			result := tx.Model(&Staff{}).
				Where("id = ?", *row.StaffID).
				UpdateColumn("balance", gorm.Expr("balance + ?", row.Amount))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrStaffNotFound
			}
		}

		out = rows
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}

	return out, nil
}

func (d *LedgerDAO) GetAllocationsByTipID(ctx context.Context, tipID uint) ([]TipAllocation, error) {
	var rows []TipAllocation

	result := d.db.WithContext(ctx).
		Where("tip_id = ?", tipID).
		Order("position asc").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	return rows, nil
}

func (d *LedgerDAO) GetStaffBalance(ctx context.Context, staffID uint) (int64, error) {
	var staff Staff

	result := d.db.WithContext(ctx).Select("id", "balance").First(&staff, staffID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, ErrStaffNotFound
		}

		return 0, result.Error
	}

	return staff.Balance, nil
}

// SettleStaff claims every unpaid allocation of the staff member, records a
// payout for the claimed sum and decrements the cached balance, all in one
// transaction. The claim predicate (payout_id IS NULL) is checked and set in
// a single UPDATE, so two concurrent settlements can never claim the same row.
func (d *LedgerDAO) SettleStaff(ctx context.Context, staffID uint) (Payout, error) {
	var payout Payout

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payout = Payout{StaffID: staffID}
		if err := tx.Create(&payout).Error; err != nil {
			return err
		}

		claim := tx.Model(&TipAllocation{}).
			Where("staff_id = ? AND payout_id IS NULL", staffID).
			UpdateColumn("payout_id", payout.ID)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			// Rolls the empty payout row back.
			return ErrNothingToPayout
		}

		var total int64
		if err := tx.Model(&TipAllocation{}).
			Where("payout_id = ?", payout.ID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&total).Error; err != nil {
			return err
		}

		if err := tx.Model(&Payout{}).
			Where("id = ?", payout.ID).
			UpdateColumn("amount", total).Error; err != nil {
			return err
		}

		result := tx.Model(&Staff{}).
			Where("id = ?", staffID).
			UpdateColumn("balance", gorm.Expr("balance - ?", total))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaffNotFound
		}

		payout.Amount = total
		return nil
	})
	if err != nil {
		return Payout{}, translateError(err)
	}

	return payout, nil
}

func (d *LedgerDAO) ListPayoutsByStaff(ctx context.Context, staffID uint) ([]Payout, error) {
	var payouts []Payout

	result := d.db.WithContext(ctx).
		Where("staff_id = ?", staffID).
		Order("created_at desc").
		Find(&payouts)
	if result.Error != nil {
		return nil, result.Error
	}

	return payouts, nil
}

// ReconcileStaff recomputes the balance from unpaid allocation rows and
// overwrites the cache when it drifted. The staff row is locked only for the
// sum and the write; an increment committed after our sum wins the race and is
// picked up by the next run (last writer wins, the job is rerunnable).
func (d *LedgerDAO) ReconcileStaff(ctx context.Context, staffID uint) (previous, corrected int64, err error) {
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var staff Staff
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&staff, staffID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStaffNotFound
			}
			return err
		}

		var correct int64
		if err := tx.Model(&TipAllocation{}).
			Where("staff_id = ? AND payout_id IS NULL", staffID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&correct).Error; err != nil {
			return err
		}

		previous = staff.Balance
		corrected = correct

		if correct != staff.Balance {
			if err := tx.Model(&Staff{}).
				Where("id = ?", staffID).
				UpdateColumn("balance", correct).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, 0, translateError(err)
	}

	return previous, corrected, nil
}

func (d *LedgerDAO) ListStaffIDs(ctx context.Context) ([]uint, error) {
	var ids []uint

	result := d.db.WithContext(ctx).Model(&Staff{}).Order("id asc").Pluck("id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}

	return ids, nil
}

// translateError maps retryable postgres failures onto ErrConflict so callers
// can distinguish contention from real errors.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return ErrConflict
		}
	}

	return err
}
