package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/inventory"
)

const instrumentationName = "github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/coupon"

// Service is the coupon engine. It holds no mutable state of its own; the
// Repository is the only shared resource.
type Service struct {
	repo      Repository
	inventory inventory.Checker

	tracer      trace.Tracer
	validations metric.Int64Counter
	redemptions metric.Int64Counter
}

type options struct {
	inventory      inventory.Checker
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// Option configures a Service.
type Option func(*options)

// WithStrictEligibility makes FindEligibleEntities drop ids that do not
// exist in the inventory tables.
func WithStrictEligibility(c inventory.Checker) Option {
	return func(o *options) { o.inventory = c }
}

// WithMeterProvider sets the provider for validation and redemption counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider sets the provider for engine spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// NewService creates a Service backed by repo.
func NewService(repo Repository, opts ...Option) (*Service, error) {
	o := options{
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.meterProvider.Meter(instrumentationName)
	validations, err := meter.Int64Counter("coupon.validations",
		metric.WithDescription("Coupon validation outcomes by reason"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create validations counter")
	}
	redemptions, err := meter.Int64Counter("coupon.redemptions",
		metric.WithDescription("Recorded coupon redemptions"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create redemptions counter")
	}

	return &Service{
		repo:        repo,
		inventory:   o.inventory,
		tracer:      o.tracerProvider.Tracer(instrumentationName),
		validations: validations,
		redemptions: redemptions,
	}, nil
}

func (s *Service) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "coupon."+name, trace.WithAttributes(attrs...))
}

// endSpan records err on span unless it is a typed domain outcome.
func endSpan(span trace.Span, err error) {
	var vErr *ValidationError
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.As(err, &vErr) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
