package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Helpers ---

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func probeOf(t *testing.T, h *Health, kind Kind, i int) *probe {
	t.Helper()
	probes := h.snapshot(kind)
	require.Greater(t, len(probes), i)
	return probes[i]
}

func get(handler http.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	return rec
}

// --- Tests ---

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		runs       int
		check      CheckFunc
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no runs yet",
			check:      failing("down"),
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "below failure threshold",
			runs:       2,
			check:      failing("temporary"),
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "past failure threshold",
			runs:       3,
			check:      failing("connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"unhealthy","checks":{"dep":"connection refused"}}`,
		},
		{
			name:       "passing",
			runs:       5,
			check:      passing(),
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.AddLivenessCheck("dep", time.Second, tt.check)
			p := probeOf(t, h, Liveness, 0)
			for range tt.runs {
				p.run(context.Background())
			}

			rec := get(h.LiveEndpoint)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("catalog", time.Second, passing())
	h.AddReadinessCheck("cache", time.Second, failing("cache miss"))

	rec := get(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, rec.Body.String())

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, get(h.ReadyEndpoint).Code)

	cache := probeOf(t, h, Readiness, 1)
	for range 3 {
		cache.run(context.Background())
	}
	rec = get(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"cache":"cache miss"}}`, rec.Body.String())
}

func TestReadyWhen(t *testing.T) {
	var loaded atomic.Bool
	h := New()
	h.SetReady(true)
	h.ReadyWhen(loaded.Load)

	assert.False(t, h.IsReady())
	rec := get(h.ReadyEndpoint)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is starting"}}`, rec.Body.String())

	loaded.Store(true)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady(), "draining overrides the condition")
}

func TestThresholds(t *testing.T) {
	down := true
	h := New()
	h.Add(Liveness, Check{
		Name:             "flaky",
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Func: func(context.Context) error {
			if down {
				return errors.New("down")
			}
			return nil
		},
	})
	p := probeOf(t, h, Liveness, 0)
	ctx := context.Background()

	p.run(ctx)
	assert.True(t, p.healthy.Load())
	p.run(ctx)
	assert.False(t, p.healthy.Load())
	assert.Equal(t, "down", p.failure())

	down = false
	p.run(ctx)
	assert.False(t, p.healthy.Load(), "one success is not enough")
	p.run(ctx)
	assert.True(t, p.healthy.Load())
	assert.Empty(t, p.failure())
}

func TestStartStop(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.AddLivenessCheck("count", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no runs after Stop returns")
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.AddLivenessCheck("live", time.Second, failing("err"))
	h.AddReadinessCheck("ready", time.Second, passing())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.IsReady()
				get(h.LiveEndpoint)
				get(h.ReadyEndpoint)
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}

func TestGCMaxPauseCheck(t *testing.T) {
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}
