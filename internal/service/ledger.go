package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/repository"
)

var (
	ErrTipNotFound      = repository.ErrTipNotFound
	ErrTipNotPayable    = repository.ErrTipNotPayable
	ErrTipNotPaid       = repository.ErrTipNotPaid
	ErrAlreadyAllocated = repository.ErrAlreadyAllocated
	ErrNothingToPayout  = repository.ErrNothingToPayout
	ErrConflict         = repository.ErrConflict
	ErrStaffNotFound    = repository.ErrStaffNotFound

	ErrPlanMismatch = errors.New("allocation plan does not sum to the tip's net amount")
)

const (
	conflictMaxAttempts = 3
	conflictBackoff     = 25 * time.Millisecond
)

type LedgerRepository interface {
	GetTipByID(ctx context.Context, id uint) (domain.Tip, error)
	GetTipByPaymentRef(ctx context.Context, ref string) (domain.Tip, error)
	MarkTipPaid(ctx context.Context, tipID uint, netAmount int64) (domain.Tip, error)
	MarkTipFailed(ctx context.Context, tipID uint) (domain.Tip, error)
	CommitAllocations(ctx context.Context, tipID uint, plan domain.AllocationPlan) ([]domain.TipAllocation, error)
	GetAllocationsByTipID(ctx context.Context, tipID uint) ([]domain.TipAllocation, error)
	GetStaffBalance(ctx context.Context, staffID uint) (int64, error)
	SettleStaff(ctx context.Context, staffID uint) (domain.Payout, error)
	ListPayoutsByStaff(ctx context.Context, staffID uint) ([]domain.Payout, error)
	ReconcileStaff(ctx context.Context, staffID uint) (domain.ReconciliationResult, error)
	ListStaffIDs(ctx context.Context) ([]uint, error)
}

type LedgerVenueRepository interface {
	GetVenueByID(ctx context.Context, id uint) (domain.Venue, error)
	GetStaffByID(ctx context.Context, id uint) (domain.Staff, error)
	ListStaffByVenue(ctx context.Context, venueID uint, activeOnly bool) ([]domain.Staff, error)
}

// LedgerService is the write path of the tip ledger: it consumes confirmed
// payment events, resolves and commits allocations, settles payouts and
// repairs drifted balances.
type LedgerService struct {
	repo      LedgerRepository
	venueRepo LedgerVenueRepository
	resolver  *DistributionResolver
}

func NewLedgerService(repo LedgerRepository, venueRepo LedgerVenueRepository, resolver *DistributionResolver) *LedgerService {
	return &LedgerService{
		repo:      repo,
		venueRepo: venueRepo,
		resolver:  resolver,
	}
}

// ConfirmPayment handles a verified payment-confirmation event: the tip
// transitions to PAID exactly once and its allocations are committed. The
// whole operation is idempotent, so at-least-once webhook delivery is safe.
func (s *LedgerService) ConfirmPayment(ctx context.Context, conf domain.PaymentConfirmation) (domain.Tip, []domain.TipAllocation, error) {
	tip, err := s.findTip(ctx, conf)
	if err != nil {
		return domain.Tip{}, nil, err
	}

	// Gateway events carry no fee breakdown, so a zero confirmation amount
	// keeps the net computed when the tip was created.
	netAmount := conf.NetAmount
	if netAmount == 0 {
		netAmount = tip.NetAmount
	}

	tip, err = s.repo.MarkTipPaid(ctx, tip.ID, netAmount)
	if err != nil {
		return domain.Tip{}, nil, fmt.Errorf("s.repo.MarkTipPaid -> %w", err)
	}

	allocations, err := s.Allocate(ctx, tip)
	if err != nil {
		// The tip is recorded as paid; the caller must treat allocation
		// failure as distinct from payment failure and retry it.
		return tip, nil, err
	}

	return tip, allocations, nil
}

// FailPayment records a failed gateway payment for a pending tip.
func (s *LedgerService) FailPayment(ctx context.Context, conf domain.PaymentConfirmation) (domain.Tip, error) {
	tip, err := s.findTip(ctx, conf)
	if err != nil {
		return domain.Tip{}, err
	}

	failed, err := s.repo.MarkTipFailed(ctx, tip.ID)
	if err != nil {
		return domain.Tip{}, fmt.Errorf("s.repo.MarkTipFailed -> %w", err)
	}

	return failed, nil
}

func (s *LedgerService) findTip(ctx context.Context, conf domain.PaymentConfirmation) (domain.Tip, error) {
	if conf.TipID != 0 {
		tip, err := s.repo.GetTipByID(ctx, conf.TipID)
		if err != nil {
			return domain.Tip{}, fmt.Errorf("s.repo.GetTipByID -> %w", err)
		}
		return tip, nil
	}

	tip, err := s.repo.GetTipByPaymentRef(ctx, conf.PaymentRef)
	if err != nil {
		return domain.Tip{}, fmt.Errorf("s.repo.GetTipByPaymentRef -> %w", err)
	}

	return tip, nil
}

// Allocate resolves the distribution plan for a paid tip and commits it.
func (s *LedgerService) Allocate(ctx context.Context, tip domain.Tip) ([]domain.TipAllocation, error) {
	venue, err := s.venueRepo.GetVenueByID(ctx, tip.VenueID)
	if err != nil {
		return nil, fmt.Errorf("s.venueRepo.GetVenueByID -> %w", err)
	}

	var target *domain.Staff
	if tip.TargetStaffID != nil {
		staff, err := s.venueRepo.GetStaffByID(ctx, *tip.TargetStaffID)
		if err != nil {
			return nil, fmt.Errorf("s.venueRepo.GetStaffByID -> %w", err)
		}
		target = &staff
	}

	roster, err := s.venueRepo.ListStaffByVenue(ctx, venue.ID, true)
	if err != nil {
		return nil, fmt.Errorf("s.venueRepo.ListStaffByVenue -> %w", err)
	}

	plan, err := s.resolver.Resolve(venue, tip, roster, target)
	if err != nil {
		return nil, fmt.Errorf("s.resolver.Resolve -> %w", err)
	}

	for _, entry := range plan {
		if entry.Fallback {
			zap.L().Warn("tip allocation fell back to venue pool",
				zap.Uint("tip_id", tip.ID),
				zap.Uint("venue_id", venue.ID),
				zap.Uintp("target_staff_id", tip.TargetStaffID))
		}
	}

	return s.Commit(ctx, tip, plan)
}

// Commit writes the allocations for a paid tip and applies the balance
// increments atomically. Duplicate commits return the existing allocation set;
// transient conflicts are retried a bounded number of times before ErrConflict
// surfaces to the caller.
func (s *LedgerService) Commit(ctx context.Context, tip domain.Tip, plan domain.AllocationPlan) ([]domain.TipAllocation, error) {
	if tip.Status != domain.TipPaid {
		return nil, ErrTipNotPaid
	}
	if plan.Total() != tip.NetAmount {
		return nil, ErrPlanMismatch
	}

	var lastErr error
	for attempt := 1; attempt <= conflictMaxAttempts; attempt++ {
		allocations, err := s.repo.CommitAllocations(ctx, tip.ID, plan)
		if err == nil {
			return allocations, nil
		}
		lastErr = err

		if errors.Is(err, ErrAlreadyAllocated) {
			// A concurrent writer won the race; its rows are the result.
			existing, readErr := s.repo.GetAllocationsByTipID(ctx, tip.ID)
			if readErr == nil && len(existing) > 0 {
				return existing, nil
			}
		} else if !errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("s.repo.CommitAllocations -> %w", err)
		}

		zap.L().Warn("retrying allocation commit",
			zap.Uint("tip_id", tip.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		time.Sleep(time.Duration(attempt) * conflictBackoff)
	}

	return nil, fmt.Errorf("s.repo.CommitAllocations -> %w", lastErr)
}

func (s *LedgerService) GetTip(ctx context.Context, tipID uint) (domain.Tip, error) {
	tip, err := s.repo.GetTipByID(ctx, tipID)
	if err != nil {
		return domain.Tip{}, fmt.Errorf("s.repo.GetTipByID -> %w", err)
	}

	return tip, nil
}

func (s *LedgerService) GetAllocations(ctx context.Context, tipID uint) ([]domain.TipAllocation, error) {
	allocations, err := s.repo.GetAllocationsByTipID(ctx, tipID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.GetAllocationsByTipID -> %w", err)
	}

	return allocations, nil
}

// GetBalance reads the cached balance for a staff member.
func (s *LedgerService) GetBalance(ctx context.Context, staffID uint) (int64, error) {
	balance, err := s.repo.GetStaffBalance(ctx, staffID)
	if err != nil {
		return 0, fmt.Errorf("s.repo.GetStaffBalance -> %w", err)
	}

	return balance, nil
}

// Settle claims every unpaid allocation of the staff member into a new payout.
func (s *LedgerService) Settle(ctx context.Context, staffID uint) (domain.Payout, error) {
	var lastErr error
	for attempt := 1; attempt <= conflictMaxAttempts; attempt++ {
		payout, err := s.repo.SettleStaff(ctx, staffID)
		if err == nil {
			return payout, nil
		}
		lastErr = err

		if !errors.Is(err, ErrConflict) {
			return domain.Payout{}, fmt.Errorf("s.repo.SettleStaff -> %w", err)
		}

		zap.L().Warn("retrying payout settlement",
			zap.Uint("staff_id", staffID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		time.Sleep(time.Duration(attempt) * conflictBackoff)
	}

	return domain.Payout{}, fmt.Errorf("s.repo.SettleStaff -> %w", lastErr)
}

func (s *LedgerService) ListPayouts(ctx context.Context, staffID uint) ([]domain.Payout, error) {
	payouts, err := s.repo.ListPayoutsByStaff(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.ListPayoutsByStaff -> %w", err)
	}

	return payouts, nil
}

// Reconcile recomputes a staff balance from unpaid allocation rows and
// overwrites the cache when it drifted. Running it twice with no intervening
// writes yields a zero delta on the second run.
func (s *LedgerService) Reconcile(ctx context.Context, staffID uint) (domain.ReconciliationResult, error) {
	result, err := s.repo.ReconcileStaff(ctx, staffID)
	if err != nil {
		return domain.ReconciliationResult{}, fmt.Errorf("s.repo.ReconcileStaff -> %w", err)
	}

	if result.Delta != 0 {
		zap.L().Warn("balance drift corrected",
			zap.Uint("staff_id", staffID),
			zap.Int64("previous", result.Previous),
			zap.Int64("corrected", result.Corrected),
			zap.Int64("delta", result.Delta))
	}

	return result, nil
}

// ReconcileAll sweeps every staff member. Per-staff failures are logged and
// skipped so one bad row cannot stall the whole repair run.
func (s *LedgerService) ReconcileAll(ctx context.Context) ([]domain.ReconciliationResult, error) {
	ids, err := s.repo.ListStaffIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.repo.ListStaffIDs -> %w", err)
	}

	results := make([]domain.ReconciliationResult, 0, len(ids))
	for _, id := range ids {
		result, err := s.Reconcile(ctx, id)
		if err != nil {
			zap.L().Error("reconciliation failed for staff",
				zap.Uint("staff_id", id),
				zap.Error(err))
			continue
		}
		results = append(results, result)
	}

	return results, nil
}
