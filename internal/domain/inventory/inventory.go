// Package inventory describes the bookable entities coupons can be assigned
// to. The coupon engine treats them as opaque numeric ids.
package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the inventory tables a coupon can reference.
type Kind string

const (
	Flight         Kind = "flight"
	Hotel          Kind = "hotel"
	Rental         Kind = "rental"
	DynamicProduct Kind = "dynamicProduct"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{Flight, Hotel, Rental, DynamicProduct}

// ErrUnknownKind is returned by ParseKind for unsupported names.
var ErrUnknownKind = errors.New("unknown inventory kind")

// ParseKind accepts singular or plural names in any case, with or without
// underscores: "hotels", "Hotel", "dynamic_products", "dynamicProducts".
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	name = strings.TrimSuffix(name, "s")
	switch name {
	case "flight":
		return Flight, nil
	case "hotel":
		return Hotel, nil
	case "rental":
		return Rental, nil
	case "dynamicproduct":
		return DynamicProduct, nil
	}
	return "", errors.Wrapf(ErrUnknownKind, "%q", s)
}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	switch k {
	case Flight, Hotel, Rental, DynamicProduct:
		return true
	}
	return false
}

// Plural is the wire name used in request and response bodies.
func (k Kind) Plural() string {
	return string(k) + "s"
}

// Category groups dynamic products.
type Category struct {
	ID   int64
	Name string
}

// FlightEntity is a bookable flight leg.
type FlightEntity struct {
	ID          int64
	Airline     string
	Origin      string
	Destination string
	DepartsAt   time.Time
	Price       decimal.Decimal
}

// Stay is a hotel or rental listing; both tables share this shape.
type Stay struct {
	ID    int64
	Name  string
	City  string
	Price decimal.Decimal
}

// DynamicProductEntity is a product whose kind is defined by its category.
type DynamicProductEntity struct {
	ID         int64
	CategoryID *int64
	Name       string
	Price      decimal.Decimal
}

// Checker reports which of the given ids exist in the table for kind.
type Checker interface {
	ExistingIDs(ctx context.Context, kind Kind, ids []int64) ([]int64, error)
}
