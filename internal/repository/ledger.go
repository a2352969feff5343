package repository

import (
	"context"
	"fmt"

	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/repository/dao"
)

var (
	ErrTipNotFound      = dao.ErrTipNotFound
	ErrTipNotPayable    = dao.ErrTipNotPayable
	ErrTipNotPaid       = dao.ErrTipNotPaid
	ErrAlreadyAllocated = dao.ErrAlreadyAllocated
	ErrNothingToPayout  = dao.ErrNothingToPayout
	ErrConflict         = dao.ErrConflict
)

type LedgerDAO interface {
	CreateTip(ctx context.Context, tip dao.Tip) (dao.Tip, error)
	GetTipByID(ctx context.Context, id uint) (dao.Tip, error)
	GetTipByPaymentRef(ctx context.Context, ref string) (dao.Tip, error)
	MarkTipPaid(ctx context.Context, tipID uint, netAmount int64) (dao.Tip, error)
	MarkTipFailed(ctx context.Context, tipID uint) (dao.Tip, error)
	CommitAllocations(ctx context.Context, tipID uint, rows []dao.TipAllocation) ([]dao.TipAllocation, error)
	GetAllocationsByTipID(ctx context.Context, tipID uint) ([]dao.TipAllocation, error)
	GetStaffBalance(ctx context.Context, staffID uint) (int64, error)
	SettleStaff(ctx context.Context, staffID uint) (dao.Payout, error)
	ListPayoutsByStaff(ctx context.Context, staffID uint) ([]dao.Payout, error)
	ReconcileStaff(ctx context.Context, staffID uint) (previous, corrected int64, err error)
	ListStaffIDs(ctx context.Context) ([]uint, error)
}

type LedgerRepository struct {
	dao LedgerDAO
}

func NewLedgerRepository(dao LedgerDAO) *LedgerRepository {
	return &LedgerRepository{
		dao: dao,
	}
}

func (r *LedgerRepository) tipDomainToDao(t domain.Tip) dao.Tip {
	return dao.Tip{
		ID:            t.ID,
		VenueID:       t.VenueID,
		Amount:        t.Amount,
		Fee:           t.Fee,
		NetAmount:     t.NetAmount,
		Currency:      t.Currency,
		Status:        string(t.Status),
		TargetStaffID: t.TargetStaffID,
		QRCodeID:      t.QRCodeID,
		PaymentRef:    t.PaymentRef,
		PaidAt:        t.PaidAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (r *LedgerRepository) tipDaoToDomain(t dao.Tip) domain.Tip {
	return domain.Tip{
		ID:            t.ID,
		VenueID:       t.VenueID,
		Amount:        t.Amount,
		Fee:           t.Fee,
		NetAmount:     t.NetAmount,
		Currency:      t.Currency,
		Status:        domain.TipStatus(t.Status),
		TargetStaffID: t.TargetStaffID,
		QRCodeID:      t.QRCodeID,
		PaymentRef:    t.PaymentRef,
		PaidAt:        t.PaidAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (r *LedgerRepository) allocationDaoToDomain(a dao.TipAllocation) domain.TipAllocation {
	return domain.TipAllocation{
		ID:        a.ID,
		TipID:     a.TipID,
		Position:  a.Position,
		StaffID:   a.StaffID,
		Amount:    a.Amount,
		Fallback:  a.Fallback,
		PayoutID:  a.PayoutID,
		CreatedAt: a.CreatedAt,
	}
}

func (r *LedgerRepository) allocationDaosToDomain(rows []dao.TipAllocation) []domain.TipAllocation {
	out := make([]domain.TipAllocation, len(rows))
	for i, a := range rows {
		out[i] = r.allocationDaoToDomain(a)
	}
	return out
}

func (r *LedgerRepository) payoutDaoToDomain(p dao.Payout) domain.Payout {
	return domain.Payout{
		ID:        p.ID,
		StaffID:   p.StaffID,
		Amount:    p.Amount,
		CreatedAt: p.CreatedAt,
	}
}

func (r *LedgerRepository) CreateTip(ctx context.Context, tip domain.Tip) (domain.Tip, error) {
	created, err := r.dao.CreateTip(ctx, r.tipDomainToDao(tip))
	if err != nil {
		return domain.Tip{}, fmt.Errorf("r.dao.CreateTip -> %w", err)
	}

	return r.tipDaoToDomain(created), nil
}

func (r *LedgerRepository) GetTipByID(ctx context.Context, id uint) (domain.Tip, error) {
	tip, err := r.dao.GetTipByID(ctx, id)
	if err != nil {
		return domain.Tip{}, fmt.Errorf("r.dao.GetTipByID -> %w", err)
	}

	return r.tipDaoToDomain(tip), nil
}

func (r *LedgerRepository) GetTipByPaymentRef(ctx context.Context, ref string) (domain.Tip, error) {
	tip, err := r.dao.GetTipByPaymentRef(ctx, ref)
	if err != nil {
		return domain.Tip{}, fmt.Errorf("r.dao.GetTipByPaymentRef -> %w", err)
	}

	return r.tipDaoToDomain(tip), nil
}

func (r *LedgerRepository) MarkTipPaid(ctx context.Context, tipID uint, netAmount int64) (domain.Tip, error) {
	tip, err := r.dao.MarkTipPaid(ctx, tipID, netAmount)
	if err != nil {
		return domain.Tip{}, fmt.Errorf("r.dao.MarkTipPaid -> %w", err)
	}

	return r.tipDaoToDomain(tip), nil
}

func (r *LedgerRepository) MarkTipFailed(ctx context.Context, tipID uint) (domain.Tip, error) {
	tip, err := r.dao.MarkTipFailed(ctx, tipID)
	if err != nil {
		return domain.Tip{}, fmt.Errorf("r.dao.MarkTipFailed -> %w", err)
	}

	return r.tipDaoToDomain(tip), nil
}

func (r *LedgerRepository) CommitAllocations(ctx context.Context, tipID uint, plan domain.AllocationPlan) ([]domain.TipAllocation, error) {
	rows := make([]dao.TipAllocation, len(plan))
	for i, entry := range plan {
		rows[i] = dao.TipAllocation{
			StaffID:  entry.StaffID,
			Amount:   entry.Amount,
			Fallback: entry.Fallback,
		}
	}

	committed, err := r.dao.CommitAllocations(ctx, tipID, rows)
	if err != nil {
		return nil, fmt.Errorf("r.dao.CommitAllocations -> %w", err)
	}

	return r.allocationDaosToDomain(committed), nil
}

func (r *LedgerRepository) GetAllocationsByTipID(ctx context.Context, tipID uint) ([]domain.TipAllocation, error) {
	rows, err := r.dao.GetAllocationsByTipID(ctx, tipID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.GetAllocationsByTipID -> %w", err)
	}

	return r.allocationDaosToDomain(rows), nil
}

func (r *LedgerRepository) GetStaffBalance(ctx context.Context, staffID uint) (int64, error) {
	balance, err := r.dao.GetStaffBalance(ctx, staffID)
	if err != nil {
		return 0, fmt.Errorf("r.dao.GetStaffBalance -> %w", err)
	}

	return balance, nil
}

func (r *LedgerRepository) SettleStaff(ctx context.Context, staffID uint) (domain.Payout, error) {
	payout, err := r.dao.SettleStaff(ctx, staffID)
	if err != nil {
		return domain.Payout{}, fmt.Errorf("r.dao.SettleStaff -> %w", err)
	}

	return r.payoutDaoToDomain(payout), nil
}

func (r *LedgerRepository) ListPayoutsByStaff(ctx context.Context, staffID uint) ([]domain.Payout, error) {
	payouts, err := r.dao.ListPayoutsByStaff(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListPayoutsByStaff -> %w", err)
	}

	out := make([]domain.Payout, len(payouts))
	for i, p := range payouts {
		out[i] = r.payoutDaoToDomain(p)
	}

	return out, nil
}

func (r *LedgerRepository) ReconcileStaff(ctx context.Context, staffID uint) (domain.ReconciliationResult, error) {
	previous, corrected, err := r.dao.ReconcileStaff(ctx, staffID)
	if err != nil {
		return domain.ReconciliationResult{}, fmt.Errorf("r.dao.ReconcileStaff -> %w", err)
	}

	return domain.ReconciliationResult{
		StaffID:   staffID,
		Previous:  previous,
		Corrected: corrected,
		Delta:     corrected - previous,
	}, nil
}

func (r *LedgerRepository) ListStaffIDs(ctx context.Context) ([]uint, error) {
	ids, err := r.dao.ListStaffIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListStaffIDs -> %w", err)
	}

	return ids, nil
}
