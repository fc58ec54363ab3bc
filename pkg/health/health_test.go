package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

type probe struct {
	code   int
	status string
	checks map[string]string
}

func call(t *testing.T, endpoint http.HandlerFunc) probe {
	t.Helper()
	rec := httptest.NewRecorder()
	endpoint(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	p := probe{code: rec.Code, checks: map[string]string{}}
	err := jx.DecodeBytes(rec.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			s, err := d.Str()
			p.status = s
			return err
		case "checks":
			return d.Obj(func(d *jx.Decoder, name string) error {
				msg, err := d.Str()
				p.checks[name] = msg
				return err
			})
		default:
			return d.Skip()
		}
	})
	require.NoError(t, err)
	return p
}

func runN(c *check, n int) {
	for range n {
		c.run(context.Background())
	}
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passing)
	h.AddLivenessCheck("gc", time.Second, passing)

	p := call(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, p.code)
	assert.Equal(t, "ok", p.status)
	assert.Empty(t, p.checks)
}

func TestLiveEndpoint_NoChecks(t *testing.T) {
	p := call(t, New().LiveEndpoint)
	assert.Equal(t, http.StatusOK, p.code)
}

func TestLiveEndpoint_FailureThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("storage", time.Second, failing("data dir gone"))
	c := h.liveness[0]

	runN(c, 2)
	assert.Equal(t, http.StatusOK, call(t, h.LiveEndpoint).code, "two failures stay under the default threshold")

	runN(c, 1)
	p := call(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, p.code)
	assert.Equal(t, "unhealthy", p.status)
	assert.Equal(t, "data dir gone", p.checks["storage"])
}

func TestCheckOptions(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, failing("refused"), WithFailureThreshold(1), WithSuccessThreshold(2))
	c := h.readiness[0]

	runN(c, 1)
	assert.False(t, c.healthy.Load())

	c.fn = passing
	runN(c, 1)
	assert.False(t, c.healthy.Load(), "one success is below the success threshold")
	runN(c, 1)
	assert.True(t, c.healthy.Load())
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("storage", time.Second, passing)

	p := call(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, p.code)
	assert.Contains(t, p.checks, "server")
	assert.False(t, h.IsReady())

	h.SetReady(true)
	p = call(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, p.code)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, call(t, h.ReadyEndpoint).code)
	assert.False(t, h.IsReady())
}

func TestReadyEndpoint_OneFailing(t *testing.T) {
	h := New()
	h.AddReadinessCheck("storage", time.Second, passing)
	h.AddReadinessCheck("cache", time.Second, failing("cold"))
	h.SetReady(true)
	runN(h.readiness[1], 3)

	p := call(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, p.code)
	assert.Equal(t, map[string]string{"cache": "cold"}, p.checks)
	assert.False(t, h.IsReady())
}

func TestCheck_LastError(t *testing.T) {
	h := New()
	h.AddLivenessCheck("storage", time.Second, failing("timeout"))
	c := h.liveness[0]

	assert.Nil(t, c.err())
	runN(c, 1)
	assert.EqualError(t, c.err(), "timeout")
}

func TestStartStop_Concurrent(t *testing.T) {
	h := New()
	h.AddLivenessCheck("storage", time.Second, failing("err"))
	h.AddReadinessCheck("storage", time.Second, passing)
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	h.Stop()
	h.Stop()
}

func TestCheckers(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, GoroutineCountCheck(100000)(ctx))
	assert.ErrorContains(t, GoroutineCountCheck(0)(ctx), "limit 0")
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(ctx))

	assert.NoError(t, PingCheck("file", func(context.Context) error { return nil })(ctx))
	err := PingCheck("postgres", func(context.Context) error { return errors.New("refused") })(ctx)
	assert.EqualError(t, err, "postgres ping: refused")
}
