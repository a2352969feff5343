package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/service"
)

type fakeTipStore struct {
	venues  map[uint]domain.Venue
	staff   map[uint]domain.Staff
	qrCodes map[string]domain.QRCode
	tips    map[uint]domain.Tip

	nextTipID uint
}

func newFakeTipStore() *fakeTipStore {
	return &fakeTipStore{
		venues:  make(map[uint]domain.Venue),
		staff:   make(map[uint]domain.Staff),
		qrCodes: make(map[string]domain.QRCode),
		tips:    make(map[uint]domain.Tip),
	}
}

func (f *fakeTipStore) CreateTip(_ context.Context, tip domain.Tip) (domain.Tip, error) {
	f.nextTipID++
	tip.ID = f.nextTipID
	f.tips[tip.ID] = tip
	return tip, nil
}

func (f *fakeTipStore) GetTipByID(_ context.Context, id uint) (domain.Tip, error) {
	tip, ok := f.tips[id]
	if !ok {
		return domain.Tip{}, service.ErrTipNotFound
	}
	return tip, nil
}

func (f *fakeTipStore) GetVenueByID(_ context.Context, id uint) (domain.Venue, error) {
	venue, ok := f.venues[id]
	if !ok {
		return domain.Venue{}, service.ErrVenueNotFound
	}
	return venue, nil
}

func (f *fakeTipStore) GetStaffByID(_ context.Context, id uint) (domain.Staff, error) {
	staff, ok := f.staff[id]
	if !ok {
		return domain.Staff{}, service.ErrStaffNotFound
	}
	return staff, nil
}

func (f *fakeTipStore) GetQRCodeBySlug(_ context.Context, slug string) (domain.QRCode, error) {
	qr, ok := f.qrCodes[slug]
	if !ok {
		return domain.QRCode{}, service.ErrQRCodeNotFound
	}
	return qr, nil
}

type fakeGateway struct {
	calls int
}

func (f *fakeGateway) CreatePaymentIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (string, string, error) {
	f.calls++
	ref := fmt.Sprintf("pi_%d", f.calls)
	return ref, ref + "_secret", nil
}

func newTipService(store *fakeTipStore) (*service.TipService, *fakeGateway) {
	gateway := &fakeGateway{}
	svc := service.NewTipService(store, store, gateway, 500, "eur")
	return svc, gateway
}

func TestCreateTip_VenueQRCode(t *testing.T) {
	store := newFakeTipStore()
	store.venues[1] = domain.Venue{ID: 1, DistributionMode: domain.DistributionPooled}
	store.qrCodes["qr-venue"] = domain.QRCode{ID: 5, VenueID: 1, Slug: "qr-venue", Kind: domain.QRCodeVenue}

	svc, gateway := newTipService(store)

	tip, clientSecret, err := svc.CreateTip(context.Background(), 1, 10000, "qr-venue", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, gateway.calls)
	assert.Equal(t, "pi_1_secret", clientSecret)
	assert.Equal(t, domain.TipPending, tip.Status)
	assert.Equal(t, "pi_1", tip.PaymentRef)
	assert.Nil(t, tip.TargetStaffID)
	require.NotNil(t, tip.QRCodeID)
	assert.Equal(t, uint(5), *tip.QRCodeID)

	// 5% platform fee.
	assert.Equal(t, int64(500), tip.Fee)
	assert.Equal(t, int64(9500), tip.NetAmount)
	assert.Equal(t, "eur", tip.Currency)
}

func TestCreateTip_StaffQRCodeTargetsTheStaff(t *testing.T) {
	store := newFakeTipStore()
	// Staff QR targeting works even when the venue disallows explicit choice.
	store.venues[1] = domain.Venue{ID: 1, DistributionMode: domain.DistributionPersonal, AllowStaffChoice: false}
	store.staff[3] = domain.Staff{ID: 3, VenueID: 1, Active: true}
	store.qrCodes["qr-staff"] = domain.QRCode{ID: 6, VenueID: 1, Slug: "qr-staff", Kind: domain.QRCodeStaff, StaffID: uintPtr(3)}

	svc, _ := newTipService(store)

	tip, _, err := svc.CreateTip(context.Background(), 1, 2000, "qr-staff", nil)

	require.NoError(t, err)
	require.NotNil(t, tip.TargetStaffID)
	assert.Equal(t, uint(3), *tip.TargetStaffID)
}

func TestCreateTip_ExplicitChoice(t *testing.T) {
	store := newFakeTipStore()
	store.staff[3] = domain.Staff{ID: 3, VenueID: 1, Active: true}
	store.qrCodes["qr-venue"] = domain.QRCode{ID: 5, VenueID: 1, Slug: "qr-venue", Kind: domain.QRCodeVenue}

	t.Run("allowed when the venue opts in", func(t *testing.T) {
		store.venues[1] = domain.Venue{ID: 1, DistributionMode: domain.DistributionPersonal, AllowStaffChoice: true}
		svc, _ := newTipService(store)

		tip, _, err := svc.CreateTip(context.Background(), 1, 2000, "qr-venue", uintPtr(3))

		require.NoError(t, err)
		require.NotNil(t, tip.TargetStaffID)
		assert.Equal(t, uint(3), *tip.TargetStaffID)
	})

	t.Run("rejected when the venue opts out", func(t *testing.T) {
		store.venues[1] = domain.Venue{ID: 1, DistributionMode: domain.DistributionPersonal, AllowStaffChoice: false}
		svc, _ := newTipService(store)

		_, _, err := svc.CreateTip(context.Background(), 1, 2000, "qr-venue", uintPtr(3))

		assert.ErrorIs(t, err, service.ErrStaffChoiceNotAllowed)
	})

	t.Run("rejected for inactive staff", func(t *testing.T) {
		store.venues[1] = domain.Venue{ID: 1, DistributionMode: domain.DistributionPersonal, AllowStaffChoice: true}
		store.staff[4] = domain.Staff{ID: 4, VenueID: 1, Active: false}
		svc, _ := newTipService(store)

		_, _, err := svc.CreateTip(context.Background(), 1, 2000, "qr-venue", uintPtr(4))

		assert.ErrorIs(t, err, service.ErrStaffInactive)
	})

	t.Run("rejected for staff of another venue", func(t *testing.T) {
		store.venues[1] = domain.Venue{ID: 1, DistributionMode: domain.DistributionPersonal, AllowStaffChoice: true}
		store.staff[9] = domain.Staff{ID: 9, VenueID: 2, Active: true}
		svc, _ := newTipService(store)

		_, _, err := svc.CreateTip(context.Background(), 1, 2000, "qr-venue", uintPtr(9))

		assert.ErrorIs(t, err, service.ErrInvalidTarget)
	})
}

func TestCreateTip_QRCodeFromAnotherVenue(t *testing.T) {
	store := newFakeTipStore()
	store.venues[1] = domain.Venue{ID: 1, DistributionMode: domain.DistributionPooled}
	store.qrCodes["qr-other"] = domain.QRCode{ID: 7, VenueID: 2, Slug: "qr-other", Kind: domain.QRCodeVenue}

	svc, gateway := newTipService(store)

	_, _, err := svc.CreateTip(context.Background(), 1, 2000, "qr-other", nil)

	assert.ErrorIs(t, err, service.ErrQRCodeMismatch)
	assert.Zero(t, gateway.calls)
}

func TestCreateTip_UnknownVenue(t *testing.T) {
	store := newFakeTipStore()
	svc, _ := newTipService(store)

	_, _, err := svc.CreateTip(context.Background(), 42, 2000, "qr-venue", nil)

	assert.ErrorIs(t, err, service.ErrVenueNotFound)
}
