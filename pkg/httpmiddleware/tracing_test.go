package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRouteSpanName(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	r := chi.NewRouter()
	r.Use(RouteSpanName())
	r.Route("/coupons", func(r chi.Router) {
		r.Get("/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	h := otelhttp.NewHandler(r, "test",
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method
		}),
	)

	for _, path := range []string{"/coupons/1", "/coupons/2", "/nope/3"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	spans := rec.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "GET /coupons/{id}", spans[0].Name())
	assert.Equal(t, "GET /coupons/{id}", spans[1].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("http.route", "/coupons/{id}"))
	// Unmatched paths must not leak into span names.
	assert.Equal(t, "GET", spans[2].Name())
}
