package coupon

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// MaxUsesLimit is the largest quota the store can hold.
const MaxUsesLimit = math.MaxInt32

// CreateParams holds the fields of a new coupon. DiscountValue and the
// window are required; a nil IsActive defaults to true.
type CreateParams struct {
	Code          string
	Name          string
	Description   string
	DiscountValue *decimal.Decimal
	MaxUses       *int
	ValidFrom     time.Time
	ValidUntil    time.Time
	IsActive      *bool
	Assignments   Assignments
}

// UpdateParams is a partial update. Nil fields are left unchanged;
// UnlimitedUses clears MaxUses.
type UpdateParams struct {
	Code          *string
	Name          *string
	Description   *string
	DiscountValue *decimal.Decimal
	MaxUses       *int
	UnlimitedUses bool
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	IsActive      *bool
	Assignments   Assignments
}

// Create validates p and stores a coupon with zero current uses, linking the
// given inventory through the same path as SetAssignments.
func (s *Service) Create(ctx context.Context, p CreateParams) (_ *Coupon, err error) {
	ctx, span := s.start(ctx, "Create")
	defer func() { endSpan(span, err) }()

	c := &Coupon{
		Code:        NormalizeCode(p.Code),
		Name:        p.Name,
		Description: p.Description,
		MaxUses:     p.MaxUses,
		ValidFrom:   p.ValidFrom,
		ValidUntil:  p.ValidUntil,
		IsActive:    true,
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.DiscountValue == nil {
		return nil, invalid("discountValue", "is required")
	}
	c.DiscountValue = *p.DiscountValue

	if err := validateFields(c); err != nil {
		return nil, err
	}
	a, err := NormalizeAssignments(p.Assignments)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, c, a)
	if err != nil {
		if errors.Is(err, ErrCodeExists) {
			return nil, ErrCodeExists
		}
		return nil, errors.Wrap(err, "create coupon")
	}
	return created, nil
}

// Update applies p to the coupon with the given id. When either window bound
// changes, the resulting pair is validated together. Current uses are never
// written by an update.
func (s *Service) Update(ctx context.Context, id int64, p UpdateParams) (_ *Coupon, err error) {
	ctx, span := s.start(ctx, "Update", attribute.Int64("coupon.id", id))
	defer func() { endSpan(span, err) }()

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Code != nil {
		c.Code = NormalizeCode(*p.Code)
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.DiscountValue != nil {
		c.DiscountValue = *p.DiscountValue
	}
	switch {
	case p.UnlimitedUses:
		c.MaxUses = nil
	case p.MaxUses != nil:
		c.MaxUses = p.MaxUses
	}
	if p.ValidFrom != nil {
		c.ValidFrom = *p.ValidFrom
	}
	if p.ValidUntil != nil {
		c.ValidUntil = *p.ValidUntil
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}

	if err := validateFields(c); err != nil {
		return nil, err
	}
	a, err := NormalizeAssignments(p.Assignments)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, c, a)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, ErrCodeExists):
			return nil, ErrCodeExists
		}
		return nil, errors.Wrap(err, "update coupon")
	}
	return updated, nil
}

// Delete removes the coupon and all its join-table links.
func (s *Service) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := s.start(ctx, "Delete", attribute.Int64("coupon.id", id))
	defer func() { endSpan(span, err) }()

	return s.repo.Delete(ctx, id)
}

// Get returns a single coupon by id.
func (s *Service) Get(ctx context.Context, id int64) (*Coupon, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every coupon, newest first.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return coupons, nil
}

func validateFields(c *Coupon) error {
	if c.Code == "" {
		return invalid("code", "is required")
	}
	if c.Name == "" {
		return invalid("name", "is required")
	}
	if c.DiscountValue.IsNegative() {
		return invalid("discountValue", "must not be negative")
	}
	if c.MaxUses != nil && *c.MaxUses < 0 {
		return invalid("maxUses", "must not be negative")
	}
	if c.MaxUses != nil && *c.MaxUses > MaxUsesLimit {
		return invalid("maxUses", fmt.Sprintf("must not exceed %d", MaxUsesLimit))
	}
	return validateWindow(c.ValidFrom, c.ValidUntil)
}
