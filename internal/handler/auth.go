package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/auth"
)

// headerAPIKey carries the raw API key.
const headerAPIKey = "api_key"

func (h *Handler) requireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := h.auth.Authenticate(r.Context(), r.Header.Get(headerAPIKey), scope)
			if errors.Is(err, auth.ErrUnauthorized) {
				zctx.From(r.Context()).Debug("API key rejected",
					zap.String("scope", scope),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if err != nil {
				fail(w, r, err)
				return
			}
			zctx.From(r.Context()).Debug("API key accepted",
				zap.String("key_id", info.ID),
				zap.String("scope", scope),
			)
			next.ServeHTTP(w, r)
		})
	}
}
