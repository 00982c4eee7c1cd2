package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Reason explains why a code cannot be redeemed.
type Reason string

const (
	ReasonNotFound      Reason = "NOT_FOUND"
	ReasonInactive      Reason = "INACTIVE"
	ReasonNotYetValid   Reason = "NOT_YET_VALID"
	ReasonExpired       Reason = "EXPIRED"
	ReasonQuotaExceeded Reason = "QUOTA_EXCEEDED"
)

// Message is the user-facing text for r.
func (r Reason) Message() string {
	switch r {
	case ReasonNotFound:
		return "coupon not found"
	case ReasonInactive:
		return "coupon is not active"
	case ReasonNotYetValid:
		return "coupon is not valid yet"
	case ReasonExpired:
		return "coupon has expired"
	case ReasonQuotaExceeded:
		return "coupon usage limit reached"
	}
	return string(r)
}

// Outcome is the result of a redemption check. Reason is empty when the code
// is redeemable.
type Outcome struct {
	Coupon *Coupon
	Reason Reason
}

// Valid reports whether the code can be redeemed.
func (o Outcome) Valid() bool {
	return o.Reason == ""
}

// DiscountValue returns the coupon's discount, or zero when invalid.
func (o Outcome) DiscountValue() decimal.Decimal {
	if !o.Valid() || o.Coupon == nil {
		return decimal.Zero
	}
	return o.Coupon.DiscountValue
}

// Check applies the redemption rules to a loaded coupon in order: active
// flag, window start, window end, quota. The first failing rule wins.
func Check(c *Coupon, now time.Time) Reason {
	switch {
	case c == nil:
		return ReasonNotFound
	case !c.IsActive:
		return ReasonInactive
	case !IsWithinInstant(c, now):
		if now.Before(c.ValidFrom) {
			return ReasonNotYetValid
		}
		return ReasonExpired
	case c.MaxUses != nil && c.CurrentUses >= *c.MaxUses:
		return ReasonQuotaExceeded
	}
	return ""
}

// Validate answers whether code is redeemable at now. It never mutates
// state; callers redeem through RecordRedemption or Redeem afterwards.
func (s *Service) Validate(ctx context.Context, code string, now time.Time) (_ Outcome, err error) {
	code = NormalizeCode(code)
	ctx, span := s.start(ctx, "Validate", attribute.String("coupon.code", code))
	defer func() { endSpan(span, err) }()

	if code == "" {
		return Outcome{}, invalid("code", "is required")
	}

	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Outcome{}, errors.Wrap(err, "lookup coupon")
		}
		c = nil
	}

	o := Outcome{Coupon: c, Reason: Check(c, now)}
	s.recordValidation(ctx, o.Reason)
	return o, nil
}

func (s *Service) recordValidation(ctx context.Context, r Reason) {
	result := string(r)
	if result == "" {
		result = "VALID"
	}
	s.validations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
