// Package handler exposes the coupon engine over HTTP using a chi router and
// a jx wire codec.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/auth"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/coupon"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/pkg/httpmiddleware"
)

// Authenticator resolves a raw API key for a scope.
type Authenticator interface {
	Authenticate(ctx context.Context, key, scope string) (*auth.APIKeyInfo, error)
}

// Config holds the non-domain dependencies of the router.
type Config struct {
	// Auth guards admin and checkout routes. Required.
	Auth Authenticator
	// Throttle limits validate and redeem calls per client; nil disables it.
	Throttle httpmiddleware.Middleware
	// Now is the redemption clock; time.Now when nil.
	Now func() time.Time
}

// Handler serves the coupon endpoints.
type Handler struct {
	coupons *coupon.Service
	auth    Authenticator
	now     func() time.Time
}

// New creates a Handler over svc.
func New(svc *coupon.Service, cfg Config) *Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{coupons: svc, auth: cfg.Auth, now: now}
}

// Router mounts the coupon endpoints:
//
//	GET    /coupons                      admin
//	POST   /coupons                      admin
//	GET    /coupons/{id}                 admin
//	PUT    /coupons/{id}                 admin
//	DELETE /coupons/{id}                 admin
//	POST   /coupons/{id}/assign          admin
//	POST   /coupons/validate             public, throttled
//	GET    /coupons/validate-date-range  public
//	POST   /coupons/use                  checkout
//	POST   /coupons/redeem               checkout, throttled
func Router(h *Handler, cfg Config) chi.Router {
	throttle := cfg.Throttle
	if throttle == nil {
		throttle = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()
	r.Use(httpmiddleware.LogRequests())
	r.Use(httpmiddleware.RouteSpanName())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/coupons", func(r chi.Router) {
		r.With(throttle).Post("/validate", h.Validate)
		r.Get("/validate-date-range", h.ValidateDateRange)

		r.Group(func(r chi.Router) {
			r.Use(h.requireScope(auth.ScopeCheckout))
			r.Post("/use", h.Use)
			r.With(throttle).Post("/redeem", h.Redeem)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireScope(auth.ScopeAdmin))
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/assign", h.Assign)
		})
	})
	return r
}
