package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/coupon"
)

// writeError writes {"code": status, "message": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeEnvelope(w, status, msg, "", "")
}

func writeEnvelope(w http.ResponseWriter, status int, msg, reason, field string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	if reason != "" {
		e.FieldStart("reason")
		e.Str(reason)
	}
	if field != "" {
		e.FieldStart("field")
		e.Str(field)
	}
	e.ObjEnd()
	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeReason renders a failed redemption check: 404 for an unknown code,
// 400 for every other reason.
func writeReason(w http.ResponseWriter, r coupon.Reason) {
	status := http.StatusBadRequest
	if r == coupon.ReasonNotFound {
		status = http.StatusNotFound
	}
	writeEnvelope(w, status, r.Message(), string(r), "")
}

// fail maps a domain error to its HTTP status. Anything unrecognized is a
// store failure: logged and reported as 500 without details.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *coupon.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeEnvelope(w, http.StatusBadRequest, vErr.Error(), "", vErr.Field)
	case errors.Is(err, coupon.ErrNotFound):
		writeEnvelope(w, http.StatusNotFound, err.Error(), string(coupon.ReasonNotFound), "")
	case errors.Is(err, coupon.ErrCodeExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
