package service

import (
	"errors"
	"sort"

	"github.com/tipdrop/tipdrop-api/internal/domain"
)

// UnassignedPersonalPolicy decides what happens to a tip for a PERSONAL-mode
// venue when the customer made no staff choice. Product has not settled on a
// default, so the policy is configuration, never hard-coded.
type UnassignedPersonalPolicy string

const (
	UnassignedToPool    UnassignedPersonalPolicy = "pool"
	UnassignedEvenSplit UnassignedPersonalPolicy = "even_split"
	UnassignedReject    UnassignedPersonalPolicy = "reject"
)

var (
	ErrInvalidTarget  = errors.New("target staff does not belong to the tip's venue")
	ErrChoiceRequired = errors.New("venue requires an explicit staff choice")
)

// DistributionResolver turns a confirmed tip into an allocation plan. It is a
// pure function over its inputs; persistence happens in the ledger service.
type DistributionResolver struct {
	unassignedPolicy UnassignedPersonalPolicy
}

func NewDistributionResolver(policy UnassignedPersonalPolicy) *DistributionResolver {
	if policy == "" {
		policy = UnassignedToPool
	}

	return &DistributionResolver{
		unassignedPolicy: policy,
	}
}

// Resolve builds the allocation plan for a tip. The plan always sums to the
// tip's net amount exactly. An explicit target wins regardless of venue mode;
// an inactive target falls back to the venue pool with the fallback marked so
// the redirect stays auditable.
func (r *DistributionResolver) Resolve(venue domain.Venue, tip domain.Tip, roster []domain.Staff, target *domain.Staff) (domain.AllocationPlan, error) {
	net := tip.NetAmount

	if target != nil {
		if target.VenueID != venue.ID {
			return nil, ErrInvalidTarget
		}
		if !target.Active {
			return domain.AllocationPlan{{StaffID: nil, Amount: net, Fallback: true}}, nil
		}

		staffID := target.ID
		return domain.AllocationPlan{{StaffID: &staffID, Amount: net}}, nil
	}

	if venue.DistributionMode == domain.DistributionPersonal {
		policy := r.unassignedPolicy
		if venue.UnassignedPolicy != "" {
			policy = UnassignedPersonalPolicy(venue.UnassignedPolicy)
		}

		switch policy {
		case UnassignedEvenSplit:
			return evenSplitPlan(net, roster), nil
		case UnassignedReject:
			return nil, ErrChoiceRequired
		default:
			return domain.AllocationPlan{{StaffID: nil, Amount: net}}, nil
		}
	}

	return domain.AllocationPlan{{StaffID: nil, Amount: net}}, nil
}

func evenSplitPlan(net int64, roster []domain.Staff) domain.AllocationPlan {
	active := make([]domain.Staff, 0, len(roster))
	for _, s := range roster {
		if s.Active {
			active = append(active, s)
		}
	}

	if len(active) == 0 {
		return domain.AllocationPlan{{StaffID: nil, Amount: net, Fallback: true}}
	}

	// Stable order so the remainder lands deterministically.
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	shares := splitEven(net, len(active))
	plan := make(domain.AllocationPlan, len(active))
	for i := range active {
		staffID := active[i].ID
		plan[i] = domain.PlanEntry{StaffID: &staffID, Amount: shares[i]}
	}

	return plan
}

// splitEven divides amount into n integer shares whose sum is exactly amount.
// The remainder goes to the first share.
func splitEven(amount int64, n int) []int64 {
	share := amount / int64(n)
	remainder := amount % int64(n)

	out := make([]int64, n)
	for i := range out {
		out[i] = share
	}
	out[0] += remainder

	return out
}
