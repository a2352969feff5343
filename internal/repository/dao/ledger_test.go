package dao_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tipdrop/tipdrop-api/internal/repository/dao"
)

// setupTestDB spins up a throwaway Postgres container. The claim and
// idempotency guarantees live in SQL, so they only get real coverage against
// the real database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}

	resource, err := pool.Run("postgres", "16-alpine", []string{
		"POSTGRES_PASSWORD=secret",
		"POSTGRES_DB=tipdrop_test",
	})
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})

	var db *gorm.DB
	err = pool.Retry(func() error {
		dsn := fmt.Sprintf("host=localhost port=%v user=postgres password=secret dbname=tipdrop_test sslmode=disable", resource.GetPort("5432/tcp"))
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		return err
	})
	require.NoError(t, err)

	require.NoError(t, dao.InitTables(db))

	return db
}

func seedStaff(t *testing.T, db *gorm.DB, venueID uint) dao.Staff {
	t.Helper()

	staff := dao.Staff{VenueID: venueID, DisplayName: "Anna", Active: true}
	require.NoError(t, db.Create(&staff).Error)
	return staff
}

func seedPaidTip(t *testing.T, db *gorm.DB, d *dao.LedgerDAO, venueID uint, net int64, ref string) dao.Tip {
	t.Helper()

	tip, err := d.CreateTip(context.Background(), dao.Tip{
		VenueID:    venueID,
		Amount:     net,
		NetAmount:  net,
		Status:     "PENDING",
		PaymentRef: ref,
	})
	require.NoError(t, err)

	paid, err := d.MarkTipPaid(context.Background(), tip.ID, net)
	require.NoError(t, err)
	return paid
}

func TestLedgerDAO_MarkTipPaid(t *testing.T) {
	db := setupTestDB(t)
	d := dao.NewLedgerDAO(db)
	ctx := context.Background()

	tip, err := d.CreateTip(ctx, dao.Tip{VenueID: 1, Amount: 1000, NetAmount: 950, Status: "PENDING", PaymentRef: "pi_paid"})
	require.NoError(t, err)

	paid, err := d.MarkTipPaid(ctx, tip.ID, 950)
	require.NoError(t, err)
	assert.Equal(t, "PAID", paid.Status)
	assert.NotNil(t, paid.PaidAt)

	// Second delivery of the same confirmation is a no-op.
	again, err := d.MarkTipPaid(ctx, tip.ID, 950)
	require.NoError(t, err)
	assert.Equal(t, paid.PaidAt.Unix(), again.PaidAt.Unix())

	// A failed tip can no longer be paid.
	failedTip, err := d.CreateTip(ctx, dao.Tip{VenueID: 1, Amount: 1000, NetAmount: 1000, Status: "PENDING", PaymentRef: "pi_failed"})
	require.NoError(t, err)
	_, err = d.MarkTipFailed(ctx, failedTip.ID)
	require.NoError(t, err)
	_, err = d.MarkTipPaid(ctx, failedTip.ID, 1000)
	assert.ErrorIs(t, err, dao.ErrTipNotPayable)
}

func TestLedgerDAO_CommitAllocationsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	d := dao.NewLedgerDAO(db)
	ctx := context.Background()

	staff := seedStaff(t, db, 1)
	tip := seedPaidTip(t, db, d, 1, 5000, "pi_commit")

	rows := []dao.TipAllocation{{TipID: tip.ID, Position: 0, StaffID: &staff.ID, Amount: 5000}}

	first, err := d.CommitAllocations(ctx, tip.ID, rows)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := d.CommitAllocations(ctx, tip.ID, rows)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)

	// The balance increment applied exactly once.
	balance, err := d.GetStaffBalance(ctx, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance)
}

func TestLedgerDAO_CommitAllocationsConcurrently(t *testing.T) {
	db := setupTestDB(t)
	d := dao.NewLedgerDAO(db)
	ctx := context.Background()

	staff := seedStaff(t, db, 1)
	tip := seedPaidTip(t, db, d, 1, 3000, "pi_race")

	const writers = 8
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			rows := []dao.TipAllocation{{TipID: tip.ID, Position: 0, StaffID: &staff.ID, Amount: 3000}}
			_, err := d.CommitAllocations(ctx, tip.ID, rows)
			if err != nil {
				losing := errors.Is(err, dao.ErrAlreadyAllocated) || errors.Is(err, dao.ErrConflict)
				assert.True(t, losing, "unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	allocations, err := d.GetAllocationsByTipID(ctx, tip.ID)
	require.NoError(t, err)
	assert.Len(t, allocations, 1)

	balance, err := d.GetStaffBalance(ctx, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), balance)
}

func TestLedgerDAO_SettleStaff(t *testing.T) {
	db := setupTestDB(t)
	d := dao.NewLedgerDAO(db)
	ctx := context.Background()

	staff := seedStaff(t, db, 1)

	for i, amount := range []int64{1000, 2000, 1500} {
		tip := seedPaidTip(t, db, d, 1, amount, fmt.Sprintf("pi_settle_%d", i))
		_, err := d.CommitAllocations(ctx, tip.ID, []dao.TipAllocation{{TipID: tip.ID, Position: 0, StaffID: &staff.ID, Amount: amount}})
		require.NoError(t, err)
	}

	payout, err := d.SettleStaff(ctx, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), payout.Amount)

	balance, err := d.GetStaffBalance(ctx, staff.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	// Everything is claimed; settling again has nothing left.
	_, err = d.SettleStaff(ctx, staff.ID)
	assert.ErrorIs(t, err, dao.ErrNothingToPayout)

	// No empty payout row survives a failed settle.
	payouts, err := d.ListPayoutsByStaff(ctx, staff.ID)
	require.NoError(t, err)
	assert.Len(t, payouts, 1)
}

func TestLedgerDAO_ReconcileStaff(t *testing.T) {
	db := setupTestDB(t)
	d := dao.NewLedgerDAO(db)
	ctx := context.Background()

	staff := seedStaff(t, db, 1)
	tip := seedPaidTip(t, db, d, 1, 2500, "pi_reconcile")
	_, err := d.CommitAllocations(ctx, tip.ID, []dao.TipAllocation{{TipID: tip.ID, Position: 0, StaffID: &staff.ID, Amount: 2500}})
	require.NoError(t, err)

	// Corrupt the cached balance.
	require.NoError(t, db.Model(&dao.Staff{}).Where("id = ?", staff.ID).UpdateColumn("balance", 9999).Error)

	previous, corrected, err := d.ReconcileStaff(ctx, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9999), previous)
	assert.Equal(t, int64(2500), corrected)

	previous, corrected, err = d.ReconcileStaff(ctx, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, previous, corrected)
}
