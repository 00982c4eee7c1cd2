package coupon

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/inventory"
)

// SetAssignments replaces the coupon's linked inventory for every kind in a.
// Each kind follows replace-not-merge semantics; kinds absent from a are left
// untouched. Referenced ids are not checked for existence.
func (s *Service) SetAssignments(ctx context.Context, id int64, a Assignments) (_ *Coupon, err error) {
	ctx, span := s.start(ctx, "SetAssignments", attribute.Int64("coupon.id", id))
	defer func() { endSpan(span, err) }()

	norm, err := NormalizeAssignments(a)
	if err != nil {
		return nil, err
	}
	if len(norm) == 0 {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.SetAssignments(ctx, id, norm)
}

// NormalizeAssignments validates kinds and ids and returns a copy whose id
// sets are sorted and free of duplicates. A nil set becomes an empty one.
func NormalizeAssignments(a Assignments) (Assignments, error) {
	out := make(Assignments, len(a))
	for kind, ids := range a {
		if !kind.Valid() {
			return nil, invalid("assignments", fmt.Sprintf("unknown inventory kind %q", kind))
		}
		norm, err := NormalizeIDs(ids)
		if err != nil {
			return nil, invalid(kind.Plural(), err.Error())
		}
		out[kind] = norm
	}
	return out, nil
}

// NormalizeIDs sorts ids and removes duplicates. Ids must be positive.
func NormalizeIDs(ids []int64) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("id %d must be a positive integer", id)
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// Diff returns the ids to unlink (in current, not in next) and to link (in
// next, not in current). Both inputs must be sorted and duplicate free.
func Diff(current, next []int64) (removed, added []int64) {
	i, j := 0, 0
	for i < len(current) && j < len(next) {
		switch {
		case current[i] == next[j]:
			i++
			j++
		case current[i] < next[j]:
			removed = append(removed, current[i])
			i++
		default:
			added = append(added, next[j])
			j++
		}
	}
	removed = append(removed, current[i:]...)
	added = append(added, next[j:]...)
	return removed, added
}

// Kinds returns the kinds present in a, in inventory.Kinds order.
func (a Assignments) Kinds() []inventory.Kind {
	kinds := make([]inventory.Kind, 0, len(a))
	for _, k := range inventory.Kinds {
		if _, ok := a[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
