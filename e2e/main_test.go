package e2e

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/akann/events-booking/internal/api/router"
	"github.com/akann/events-booking/internal/application"
	"github.com/akann/events-booking/internal/config"
	redisinfra "github.com/akann/events-booking/internal/infrastructure/redis"
	"github.com/akann/events-booking/internal/pkg/clock"
	"github.com/akann/events-booking/internal/pkg/metrics"
)

var startTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// TestServer はE2Eテスト用のサーバー
// ストアはインメモリRedis、時刻は手動で進める
type TestServer struct {
	Echo     *echo.Echo
	Redis    *miniredis.Miniredis
	Clock    *clock.Manual
	Registry *prometheus.Registry
}

type serverOptions struct {
	metricsAuth config.MetricsConfig
	useLock     bool
}

type serverOption func(*serverOptions)

func withMetricsAuth(user, password string) serverOption {
	return func(o *serverOptions) { o.metricsAuth = config.MetricsConfig{User: user, Password: password} }
}

func withLock() serverOption {
	return func(o *serverOptions) { o.useLock = true }
}

// NewTestServer はテスト用サーバーを作成
func NewTestServer(t *testing.T, opts ...serverOption) *TestServer {
	t.Helper()
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	clk := clock.NewManual(startTime)
	store := redisinfra.NewEventStore(client)

	seatOpts := []application.SeatServiceOption{
		application.WithClock(clk),
		application.WithMetrics(m),
		application.WithRetryPolicy(application.RetryPolicy{
			MaxAttempts: 50, BaseDelay: 100 * time.Microsecond, MaxDelay: 2 * time.Millisecond,
		}),
	}
	if o.useLock {
		locker := redisinfra.NewEventLocker(redisinfra.NewLockManager(client), redisinfra.EventLockOptions{
			TTL: 2 * time.Second, MaxRetries: 500, RetryDelay: time.Millisecond,
		}, m)
		seatOpts = append(seatOpts, application.WithLocker(locker))
	}

	e := router.New(router.Deps{
		Events:         application.NewEventService(store, clk, m),
		Seats:          application.NewSeatService(store, seatOpts...),
		Store:          store,
		RequestTimeout: 5 * time.Second,
		Metrics:        m,
		Gatherer:       reg,
		MetricsAuth:    o.metricsAuth,
	})

	return &TestServer{Echo: e, Redis: mr, Clock: clk, Registry: reg}
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}
