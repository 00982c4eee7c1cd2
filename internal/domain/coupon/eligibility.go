package coupon

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/inventory"
)

// EligibilityQuery selects inventory of one kind discounted for a stay or
// trip spanning Start..End (inclusive days).
type EligibilityQuery struct {
	Kind  inventory.Kind
	Start time.Time
	End   time.Time
}

// Eligibility lists the active coupons whose window covers the query range
// and the union of their entity ids for the queried kind.
type Eligibility struct {
	Coupons   []Summary
	EntityIDs []int64
}

// FindEligibleEntities scans active coupons, keeps those that cover the
// whole range and unions their ids for q.Kind. Ids are sorted and unique.
// Without WithStrictEligibility the ids may reference deleted entities.
func (s *Service) FindEligibleEntities(ctx context.Context, q EligibilityQuery) (_ *Eligibility, err error) {
	ctx, span := s.start(ctx, "FindEligibleEntities", attribute.String("inventory.kind", string(q.Kind)))
	defer func() { endSpan(span, err) }()

	if !q.Kind.Valid() {
		return nil, invalid("entityType", "unknown inventory kind")
	}
	if q.Start.IsZero() {
		return nil, invalid("startDate", "is required")
	}
	if q.End.IsZero() {
		return nil, invalid("endDate", "is required")
	}
	if StartOfDay(q.Start).After(StartOfDay(q.End)) {
		return nil, invalid("endDate", "must not be before startDate")
	}

	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active coupons")
	}

	out := &Eligibility{
		Coupons:   []Summary{},
		EntityIDs: []int64{},
	}
	for i := range active {
		c := &active[i]
		if !c.IsActive || !CoversRange(c, q.Start, q.End) {
			continue
		}
		out.Coupons = append(out.Coupons, c.Summary())
		out.EntityIDs = append(out.EntityIDs, c.IDs(q.Kind)...)
	}
	slices.Sort(out.EntityIDs)
	out.EntityIDs = slices.Compact(out.EntityIDs)

	if s.inventory != nil && len(out.EntityIDs) > 0 {
		existing, err := s.inventory.ExistingIDs(ctx, q.Kind, out.EntityIDs)
		if err != nil {
			return nil, errors.Wrap(err, "check inventory")
		}
		ids := append([]int64{}, existing...)
		slices.Sort(ids)
		out.EntityIDs = slices.Compact(ids)
	}

	return out, nil
}
