package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Redemption is the quota state after a recorded use.
type Redemption struct {
	Code        string
	CurrentUses int
}

// RecordRedemption increments current uses of code by one with a single
// store-side statement. It does not check the quota: callers validate first.
// Two concurrent callers may both pass validation and both increment, so
// current uses can exceed max uses by the number of racing redemptions.
// Redeem closes that window.
func (s *Service) RecordRedemption(ctx context.Context, code string) (_ *Redemption, err error) {
	code = NormalizeCode(code)
	ctx, span := s.start(ctx, "RecordRedemption", attribute.String("coupon.code", code))
	defer func() { endSpan(span, err) }()

	if code == "" {
		return nil, invalid("code", "is required")
	}

	uses, err := s.repo.IncrementUses(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "increment coupon uses")
	}
	s.redemptions.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", "unchecked")))

	return &Redemption{Code: code, CurrentUses: uses}, nil
}

// Redeem validates code at now and, when valid, increments current uses only
// if the quota still allows it, in the same store statement. A lost race on
// the last use yields ReasonQuotaExceeded instead of over-redeeming.
func (s *Service) Redeem(ctx context.Context, code string, now time.Time) (_ Outcome, err error) {
	o, err := s.Validate(ctx, code, now)
	if err != nil || !o.Valid() {
		return o, err
	}

	ctx, span := s.start(ctx, "Redeem", attribute.String("coupon.code", o.Coupon.Code))
	defer func() { endSpan(span, err) }()

	uses, err := s.repo.IncrementUsesWithinQuota(ctx, o.Coupon.Code)
	switch {
	case errors.Is(err, ErrQuotaExhausted):
		return Outcome{Coupon: o.Coupon, Reason: ReasonQuotaExceeded}, nil
	case errors.Is(err, ErrNotFound):
		return Outcome{Reason: ReasonNotFound}, nil
	case err != nil:
		return Outcome{}, errors.Wrap(err, "increment coupon uses")
	}
	s.redemptions.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", "checked")))

	redeemed := *o.Coupon
	redeemed.CurrentUses = uses
	return Outcome{Coupon: &redeemed}, nil
}
