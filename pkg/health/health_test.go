package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func decodeStatus(t *testing.T, body []byte) (string, map[string]string) {
	t.Helper()
	var (
		status string
		checks = map[string]string{}
	)
	err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "status":
			v, err := d.Str()
			status = v
			return err
		case "checks":
			return d.ObjBytes(func(d *jx.Decoder, name []byte) error {
				v, err := d.Str()
				checks[string(name)] = v
				return err
			})
		}
		return d.Skip()
	})
	require.NoError(t, err)
	return status, checks
}

func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(1<<20))

	w := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	status, checks := decodeStatus(t, w.Body.Bytes())
	assert.Equal(t, "ok", status)
	assert.Equal(t, "ok", checks["goroutines"])
}

func TestCheckThresholds(t *testing.T) {
	ctx := context.Background()
	c := newCheck("db", time.Second, PingCheck(pinger{err: errors.New("refused")}))

	c.run(ctx)
	c.run(ctx)
	assert.True(t, c.healthy.Load(), "below failure threshold")
	c.run(ctx)
	assert.False(t, c.healthy.Load())
	assert.ErrorContains(t, c.err(), "refused")

	c.fn = PingCheck(pinger{})
	c.run(ctx)
	assert.True(t, c.healthy.Load())
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, PingCheck(pinger{}))

	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "not ready until SetReady")

	h.SetReady(true)
	w = serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestReadyEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, PingCheck(pinger{err: errors.New("down")}))
	h.SetReady(true)
	h.Start(t.Context(), time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, time.Millisecond)

	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	status, checks := decodeStatus(t, w.Body.Bytes())
	assert.Equal(t, "unavailable", status)
	assert.Contains(t, checks["postgres"], "down")
}

func TestReadyEndpoint_HealthyCheckStaysReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, PingCheck(pinger{}))
	h.SetReady(true)
	h.Start(t.Context(), time.Millisecond)
	defer h.Stop()

	// Well past the failure threshold of three runs.
	time.Sleep(50 * time.Millisecond)

	w := serve(h.ReadyEndpoint)
	require.Equal(t, http.StatusOK, w.Code)
	status, checks := decodeStatus(t, w.Body.Bytes())
	assert.Equal(t, "ok", status)
	assert.Equal(t, "ok", checks["postgres"])
}

func TestPingCheck(t *testing.T) {
	require.NoError(t, PingCheck(pinger{})(context.Background()))
	assert.ErrorContains(t, PingCheck(pinger{err: errors.New("refused")})(context.Background()), "refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1<<20)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
