package handler

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/coupon"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/inventory"
)

// couponInput is a decoded create or update body. Absent fields stay nil.
type couponInput struct {
	Code          *string
	Name          *string
	Description   *string
	DiscountValue *decimal.Decimal
	MaxUses       *int
	MaxUsesNull   bool
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	IsActive      *bool
	Assignments   coupon.Assignments
}

func (in *couponInput) createParams() coupon.CreateParams {
	p := coupon.CreateParams{
		DiscountValue: in.DiscountValue,
		MaxUses:       in.MaxUses,
		IsActive:      in.IsActive,
		Assignments:   in.Assignments,
	}
	if in.Code != nil {
		p.Code = *in.Code
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.ValidFrom != nil {
		p.ValidFrom = *in.ValidFrom
	}
	if in.ValidUntil != nil {
		p.ValidUntil = *in.ValidUntil
	}
	return p
}

func (in *couponInput) updateParams() coupon.UpdateParams {
	return coupon.UpdateParams{
		Code:          in.Code,
		Name:          in.Name,
		Description:   in.Description,
		DiscountValue: in.DiscountValue,
		MaxUses:       in.MaxUses,
		UnlimitedUses: in.MaxUsesNull,
		ValidFrom:     in.ValidFrom,
		ValidUntil:    in.ValidUntil,
		IsActive:      in.IsActive,
		Assignments:   in.Assignments,
	}
}

func invalidField(field, msg string) error {
	return &coupon.ValidationError{Field: field, Message: msg}
}

func malformed(err error) error {
	var vErr *coupon.ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	return invalidField("", "malformed JSON body: "+err.Error())
}

func decodeCouponInput(body []byte) (*couponInput, error) {
	in := &couponInput{}
	d := jx.DecodeBytes(body)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		field := string(key)
		if d.Next() == jx.Null {
			if field == "maxUses" {
				in.MaxUsesNull = true
			}
			return d.Null()
		}
		switch field {
		case "code":
			return decodeStr(d, field, &in.Code)
		case "name":
			return decodeStr(d, field, &in.Name)
		case "description":
			return decodeStr(d, field, &in.Description)
		case "discountValue":
			v, err := decodeDecimal(d, field)
			in.DiscountValue = v
			return err
		case "maxUses":
			v, err := decodeInt64(d, field)
			if err != nil {
				return err
			}
			n := int(v)
			in.MaxUses = &n
			return nil
		case "validFrom":
			return decodeTime(d, field, &in.ValidFrom)
		case "validUntil":
			return decodeTime(d, field, &in.ValidUntil)
		case "isActive":
			if d.Next() != jx.Bool {
				return invalidField(field, "must be a boolean")
			}
			v, err := d.Bool()
			in.IsActive = &v
			return err
		}
		if kind, ok := assignmentKind(field); ok {
			ids, err := decodeIDs(d, field)
			if err != nil {
				return err
			}
			if in.Assignments == nil {
				in.Assignments = coupon.Assignments{}
			}
			in.Assignments[kind] = ids
			return nil
		}
		return d.Skip()
	})
	if err != nil {
		return nil, malformed(err)
	}
	return in, nil
}

// decodeAssignments reads an assign body. Only the four id-list keys count.
func decodeAssignments(body []byte) (coupon.Assignments, error) {
	a := coupon.Assignments{}
	d := jx.DecodeBytes(body)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		kind, ok := assignmentKind(string(key))
		if !ok {
			return d.Skip()
		}
		ids, err := decodeIDs(d, string(key))
		if err != nil {
			return err
		}
		a[kind] = ids
		return nil
	})
	if err != nil {
		return nil, malformed(err)
	}
	return a, nil
}

// decodeCode reads a {"code": "..."} body.
func decodeCode(body []byte) (string, error) {
	var code *string
	d := jx.DecodeBytes(body)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "code" {
			return d.Skip()
		}
		return decodeStr(d, "code", &code)
	})
	if err != nil {
		return "", malformed(err)
	}
	if code == nil {
		return "", invalidField("code", "is required")
	}
	return *code, nil
}

// assignmentKind maps "hotels", "hotelIds" and similar keys to a kind.
func assignmentKind(key string) (inventory.Kind, bool) {
	name := strings.TrimSuffix(key, "Ids")
	if name == key && !strings.HasSuffix(key, "s") {
		return "", false
	}
	kind, err := inventory.ParseKind(name)
	if err != nil {
		return "", false
	}
	return kind, true
}

func decodeStr(d *jx.Decoder, field string, dst **string) error {
	if d.Next() != jx.String {
		return invalidField(field, "must be a string")
	}
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder, field string) (*decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return nil, err
		}
		raw = s
	default:
		return nil, invalidField(field, "must be a number")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, invalidField(field, "must be a number")
	}
	return &v, nil
}

func decodeInt64(d *jx.Decoder, field string) (int64, error) {
	if d.Next() != jx.Number {
		return 0, invalidField(field, "must be an integer")
	}
	n, err := d.Num()
	if err != nil {
		return 0, err
	}
	if !n.IsInt() {
		return 0, invalidField(field, "must be an integer")
	}
	v, err := n.Int64()
	if err != nil {
		return 0, invalidField(field, "must be an integer")
	}
	return v, nil
}

// decodeIDs reads an array of integer ids. Any other element type, including
// 1.5 or "3", is a validation error.
func decodeIDs(d *jx.Decoder, field string) ([]int64, error) {
	if d.Next() != jx.Array {
		return nil, invalidField(field, "must be an array of integer ids")
	}
	ids := []int64{}
	err := d.Arr(func(d *jx.Decoder) error {
		v, err := decodeInt64(d, field)
		if err != nil {
			return invalidField(field, "must be an array of integer ids")
		}
		ids = append(ids, v)
		return nil
	})
	return ids, err
}

func decodeTime(d *jx.Decoder, field string, dst **time.Time) error {
	if d.Next() != jx.String {
		return invalidField(field, "must be a date string")
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	t, err := coupon.ParseTime(s)
	if err != nil {
		return invalidField(field, "must be YYYY-MM-DD or RFC 3339")
	}
	*dst = &t
	return nil
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func encodeIDs(e *jx.Encoder, ids []int64) {
	e.ArrStart()
	for _, id := range ids {
		e.Int64(id)
	}
	e.ArrEnd()
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("description")
	e.Str(c.Description)
	e.FieldStart("discountValue")
	encodeDecimal(e, c.DiscountValue)
	e.FieldStart("maxUses")
	if c.MaxUses == nil {
		e.Null()
	} else {
		e.Int(*c.MaxUses)
	}
	e.FieldStart("currentUses")
	e.Int(c.CurrentUses)
	e.FieldStart("validFrom")
	encodeTime(e, c.ValidFrom)
	e.FieldStart("validUntil")
	encodeTime(e, c.ValidUntil)
	e.FieldStart("isActive")
	e.Bool(c.IsActive)
	for _, kind := range inventory.Kinds {
		e.FieldStart(string(kind) + "Ids")
		encodeIDs(e, c.IDs(kind))
	}
	if !c.CreatedAt.IsZero() {
		e.FieldStart("createdAt")
		encodeTime(e, c.CreatedAt)
		e.FieldStart("updatedAt")
		encodeTime(e, c.UpdatedAt)
	}
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s coupon.Summary) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(s.ID)
	e.FieldStart("code")
	e.Str(s.Code)
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("discountValue")
	encodeDecimal(e, s.DiscountValue)
	e.ObjEnd()
}

// encodeOutcome writes {"valid": true, "discountValue": n, "coupon": {...}}.
func encodeOutcome(e *jx.Encoder, o coupon.Outcome) {
	e.ObjStart()
	e.FieldStart("valid")
	e.Bool(o.Valid())
	e.FieldStart("discountValue")
	encodeDecimal(e, o.DiscountValue())
	if o.Coupon != nil {
		e.FieldStart("coupon")
		encodeCoupon(e, o.Coupon)
	}
	e.ObjEnd()
}
