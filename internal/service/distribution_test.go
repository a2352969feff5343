package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/service"
)

func uintPtr(v uint) *uint {
	return &v
}

func buildRoster(ids ...uint) []domain.Staff {
	roster := make([]domain.Staff, 0, len(ids))
	for _, id := range ids {
		roster = append(roster, domain.Staff{
			ID:      id,
			VenueID: 1,
			Active:  true,
		})
	}
	return roster
}

func TestResolve_PooledVenueGoesToPool(t *testing.T) {
	resolver := service.NewDistributionResolver(service.UnassignedToPool)

	venue := domain.Venue{ID: 1, DistributionMode: domain.DistributionPooled}
	tip := domain.Tip{ID: 10, VenueID: 1, NetAmount: 10000, Status: domain.TipPaid}

	plan, err := resolver.Resolve(venue, tip, buildRoster(1, 2, 3), nil)

	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Nil(t, plan[0].StaffID)
	assert.Equal(t, int64(10000), plan[0].Amount)
	assert.False(t, plan[0].Fallback)
	assert.Equal(t, tip.NetAmount, plan.Total())
}

func TestResolve_ExplicitTargetWinsRegardlessOfMode(t *testing.T) {
	resolver := service.NewDistributionResolver(service.UnassignedToPool)

	venue := domain.Venue{ID: 1, DistributionMode: domain.DistributionPooled}
	tip := domain.Tip{ID: 10, VenueID: 1, NetAmount: 5000, Status: domain.TipPaid, TargetStaffID: uintPtr(2)}
	target := domain.Staff{ID: 2, VenueID: 1, Active: true}

	plan, err := resolver.Resolve(venue, tip, buildRoster(1, 2, 3), &target)

	require.NoError(t, err)
	require.Len(t, plan, 1)
	require.NotNil(t, plan[0].StaffID)
	assert.Equal(t, uint(2), *plan[0].StaffID)
	assert.Equal(t, int64(5000), plan[0].Amount)
}

func TestResolve_InactiveTargetFallsBackToPool(t *testing.T) {
	resolver := service.NewDistributionResolver(service.UnassignedToPool)

	venue := domain.Venue{ID: 1, DistributionMode: domain.DistributionPersonal}
	tip := domain.Tip{ID: 10, VenueID: 1, NetAmount: 3000, Status: domain.TipPaid, TargetStaffID: uintPtr(2)}
	target := domain.Staff{ID: 2, VenueID: 1, Active: false}

	plan, err := resolver.Resolve(venue, tip, buildRoster(1, 3), &target)

	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Nil(t, plan[0].StaffID)
	assert.Equal(t, int64(3000), plan[0].Amount)
	assert.True(t, plan[0].Fallback)
}

func TestResolve_TargetFromAnotherVenueIsRejected(t *testing.T) {
	resolver := service.NewDistributionResolver(service.UnassignedToPool)

	venue := domain.Venue{ID: 1, DistributionMode: domain.DistributionPersonal}
	tip := domain.Tip{ID: 10, VenueID: 1, NetAmount: 3000, Status: domain.TipPaid, TargetStaffID: uintPtr(9)}
	target := domain.Staff{ID: 9, VenueID: 2, Active: true}

	_, err := resolver.Resolve(venue, tip, buildRoster(1, 3), &target)

	assert.ErrorIs(t, err, service.ErrInvalidTarget)
}

func TestResolve_PersonalWithoutChoice(t *testing.T) {
	venue := domain.Venue{ID: 1, DistributionMode: domain.DistributionPersonal}
	tip := domain.Tip{ID: 10, VenueID: 1, NetAmount: 100, Status: domain.TipPaid}

	t.Run("pool policy credits the pool", func(t *testing.T) {
		resolver := service.NewDistributionResolver(service.UnassignedToPool)

		plan, err := resolver.Resolve(venue, tip, buildRoster(1, 2, 3), nil)

		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.Nil(t, plan[0].StaffID)
		assert.Equal(t, int64(100), plan[0].Amount)
	})

	t.Run("even split covers the whole net amount", func(t *testing.T) {
		resolver := service.NewDistributionResolver(service.UnassignedEvenSplit)

		plan, err := resolver.Resolve(venue, tip, buildRoster(3, 1, 2), nil)

		require.NoError(t, err)
		require.Len(t, plan, 3)
		assert.Equal(t, tip.NetAmount, plan.Total())

		// Remainder lands on the lowest staff ID.
		require.NotNil(t, plan[0].StaffID)
		assert.Equal(t, uint(1), *plan[0].StaffID)
		assert.Equal(t, int64(34), plan[0].Amount)
		assert.Equal(t, int64(33), plan[1].Amount)
		assert.Equal(t, int64(33), plan[2].Amount)
	})

	t.Run("even split skips inactive staff", func(t *testing.T) {
		resolver := service.NewDistributionResolver(service.UnassignedEvenSplit)

		roster := buildRoster(1, 2, 3)
		roster[1].Active = false

		plan, err := resolver.Resolve(venue, tip, roster, nil)

		require.NoError(t, err)
		require.Len(t, plan, 2)
		assert.Equal(t, tip.NetAmount, plan.Total())
	})

	t.Run("even split with empty roster falls back to pool", func(t *testing.T) {
		resolver := service.NewDistributionResolver(service.UnassignedEvenSplit)

		plan, err := resolver.Resolve(venue, tip, nil, nil)

		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.Nil(t, plan[0].StaffID)
		assert.True(t, plan[0].Fallback)
	})

	t.Run("reject policy returns an error", func(t *testing.T) {
		resolver := service.NewDistributionResolver(service.UnassignedReject)

		_, err := resolver.Resolve(venue, tip, buildRoster(1, 2), nil)

		assert.ErrorIs(t, err, service.ErrChoiceRequired)
	})

	t.Run("venue override beats the platform policy", func(t *testing.T) {
		resolver := service.NewDistributionResolver(service.UnassignedToPool)

		overridden := venue
		overridden.UnassignedPolicy = string(service.UnassignedReject)

		_, err := resolver.Resolve(overridden, tip, buildRoster(1, 2), nil)

		assert.ErrorIs(t, err, service.ErrChoiceRequired)
	})
}

func TestResolve_PlanAlwaysSumsToNetAmount(t *testing.T) {
	amounts := []int64{1, 2, 99, 100, 101, 9999, 10000}

	for _, policy := range []service.UnassignedPersonalPolicy{service.UnassignedToPool, service.UnassignedEvenSplit} {
		resolver := service.NewDistributionResolver(policy)

		for _, net := range amounts {
			venue := domain.Venue{ID: 1, DistributionMode: domain.DistributionPersonal}
			tip := domain.Tip{ID: 10, VenueID: 1, NetAmount: net, Status: domain.TipPaid}

			plan, err := resolver.Resolve(venue, tip, buildRoster(1, 2, 3), nil)

			require.NoError(t, err)
			assert.Equalf(t, net, plan.Total(), "policy %v, net %v", policy, net)
		}
	}
}
