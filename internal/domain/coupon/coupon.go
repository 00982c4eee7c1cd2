// Package coupon implements the coupon engine: temporal validity, inventory
// assignment, quota tracking, date-range eligibility and redemption checks.
package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/inventory"
)

var (
	// ErrNotFound is returned when no coupon matches the given id or code.
	ErrNotFound = errors.New("coupon not found")
	// ErrCodeExists is returned when a create or rename collides with an
	// existing code.
	ErrCodeExists = errors.New("coupon code already exists")
	// ErrQuotaExhausted is returned by Repository.IncrementUsesWithinQuota
	// when the conditional increment matched no row.
	ErrQuotaExhausted = errors.New("coupon quota exhausted")
)

// ValidationError reports malformed input: a missing required field, a bad
// date order or a non-integer id.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Coupon is a promotional code together with its window, quota and the
// inventory it is assigned to.
type Coupon struct {
	ID            int64
	Code          string
	Name          string
	Description   string
	DiscountValue decimal.Decimal
	// MaxUses is nil for unlimited coupons.
	MaxUses     *int
	CurrentUses int
	ValidFrom   time.Time
	ValidUntil  time.Time
	IsActive    bool

	FlightIDs         []int64
	HotelIDs          []int64
	RentalIDs         []int64
	DynamicProductIDs []int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IDs returns the assigned entity ids for kind.
func (c *Coupon) IDs(kind inventory.Kind) []int64 {
	switch kind {
	case inventory.Flight:
		return c.FlightIDs
	case inventory.Hotel:
		return c.HotelIDs
	case inventory.Rental:
		return c.RentalIDs
	case inventory.DynamicProduct:
		return c.DynamicProductIDs
	}
	return nil
}

// SetIDs replaces the assigned entity ids for kind.
func (c *Coupon) SetIDs(kind inventory.Kind, ids []int64) {
	switch kind {
	case inventory.Flight:
		c.FlightIDs = ids
	case inventory.Hotel:
		c.HotelIDs = ids
	case inventory.Rental:
		c.RentalIDs = ids
	case inventory.DynamicProduct:
		c.DynamicProductIDs = ids
	}
}

// Summary is the short form returned by eligibility searches.
type Summary struct {
	ID            int64
	Code          string
	Name          string
	DiscountValue decimal.Decimal
}

// Summary returns the short form of c.
func (c *Coupon) Summary() Summary {
	return Summary{
		ID:            c.ID,
		Code:          c.Code,
		Name:          c.Name,
		DiscountValue: c.DiscountValue,
	}
}

// NormalizeCode trims and uppercases a code. Codes are stored and looked up
// in this form only.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Assignments maps an inventory kind to the complete replacement id set for
// that kind. Kinds missing from the map are left untouched; a kind mapped to
// an empty set is cleared.
type Assignments map[inventory.Kind][]int64

// Repository is the entity store used by the engine. Implementations must
// write the id arrays and the join tables of a coupon in one transaction and
// increment current uses with a single store-side statement.
type Repository interface {
	Create(ctx context.Context, c *Coupon, a Assignments) (*Coupon, error)
	// Update writes descriptive fields and the window. It never writes
	// current uses.
	Update(ctx context.Context, c *Coupon, a Assignments) (*Coupon, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Coupon, error)
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	ListActive(ctx context.Context) ([]Coupon, error)
	SetAssignments(ctx context.Context, id int64, a Assignments) (*Coupon, error)
	IncrementUses(ctx context.Context, code string) (int, error)
	IncrementUsesWithinQuota(ctx context.Context, code string) (int, error)
}
