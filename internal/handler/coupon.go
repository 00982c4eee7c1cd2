package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/coupon"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/inventory"
)

const maxBodyBytes = 1 << 20

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, invalidField("", "unreadable body: "+err.Error())
	}
	return body, nil
}

func couponID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidField("id", "must be a positive integer")
	}
	return id, nil
}

func writeCoupon(w http.ResponseWriter, status int, c *coupon.Coupon) {
	var e jx.Encoder
	encodeCoupon(&e, c)
	writeJSON(w, status, e.Bytes())
}

// List handles GET /coupons.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for i := range coupons {
		encodeCoupon(&e, &coupons[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

// Get handles GET /coupons/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := couponID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.coupons.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCoupon(w, http.StatusOK, c)
}

// Create handles POST /coupons.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	in, err := decodeCouponInput(body)
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.coupons.Create(r.Context(), in.createParams())
	if err != nil {
		fail(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Coupon created", zap.Int64("coupon_id", c.ID), zap.String("code", c.Code))
	writeCoupon(w, http.StatusCreated, c)
}

// Update handles PUT /coupons/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := couponID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	in, err := decodeCouponInput(body)
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.coupons.Update(r.Context(), id, in.updateParams())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCoupon(w, http.StatusOK, c)
}

// Delete handles DELETE /coupons/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := couponID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.coupons.Delete(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Coupon deleted", zap.Int64("coupon_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// Assign handles POST /coupons/{id}/assign.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := couponID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	a, err := decodeAssignments(body)
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.coupons.SetAssignments(r.Context(), id, a)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCoupon(w, http.StatusOK, c)
}

// Validate handles POST /coupons/validate. It never consumes a use.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	code, err := decodeCode(body)
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.coupons.Validate(r.Context(), code, h.now())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOutcome(w, r, o)
}

// Redeem handles POST /coupons/redeem: validation and a quota-checked
// increment in one call.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	code, err := decodeCode(body)
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.coupons.Redeem(r.Context(), code, h.now())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOutcome(w, r, o)
}

func writeOutcome(w http.ResponseWriter, r *http.Request, o coupon.Outcome) {
	if !o.Valid() {
		zctx.From(r.Context()).Debug("Coupon rejected", zap.String("reason", string(o.Reason)))
		writeReason(w, o.Reason)
		return
	}
	var e jx.Encoder
	encodeOutcome(&e, o)
	writeJSON(w, http.StatusOK, e.Bytes())
}

// Use handles POST /coupons/use: an unchecked increment for callers that
// validated first.
func (h *Handler) Use(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	code, err := decodeCode(body)
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := h.coupons.RecordRedemption(r.Context(), code)
	if err != nil {
		fail(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Str(res.Code)
	e.FieldStart("currentUses")
	e.Int(res.CurrentUses)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

// httpEntityTypes are the kinds searchable by date range.
var httpEntityTypes = map[string]inventory.Kind{
	"flights": inventory.Flight,
	"hotels":  inventory.Hotel,
	"rentals": inventory.Rental,
}

// ValidateDateRange handles
// GET /coupons/validate-date-range?entityType=hotels&startDate=2024-06-10&endDate=2024-06-12.
func (h *Handler) ValidateDateRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	entityType := q.Get("entityType")
	kind, ok := httpEntityTypes[entityType]
	if !ok {
		fail(w, r, invalidField("entityType", "must be one of flights, hotels, rentals"))
		return
	}
	start, err := coupon.ParseTime(q.Get("startDate"))
	if err != nil {
		fail(w, r, invalidField("startDate", "must be YYYY-MM-DD"))
		return
	}
	end, err := coupon.ParseTime(q.Get("endDate"))
	if err != nil {
		fail(w, r, invalidField("endDate", "must be YYYY-MM-DD"))
		return
	}

	res, err := h.coupons.FindEligibleEntities(r.Context(), coupon.EligibilityQuery{
		Kind:  kind,
		Start: start,
		End:   end,
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("entityType")
	e.Str(entityType)
	e.FieldStart("startDate")
	e.Str(coupon.StartOfDay(start).Format(coupon.DateLayout))
	e.FieldStart("endDate")
	e.Str(coupon.StartOfDay(end).Format(coupon.DateLayout))
	e.FieldStart("validCoupons")
	e.ArrStart()
	for _, s := range res.Coupons {
		encodeSummary(&e, s)
	}
	e.ArrEnd()
	e.FieldStart("entityIds")
	encodeIDs(&e, res.EntityIDs)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}
