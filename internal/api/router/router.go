package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akann/events-booking/internal/api"
	"github.com/akann/events-booking/internal/api/handler"
	"github.com/akann/events-booking/internal/api/middleware"
	"github.com/akann/events-booking/internal/config"
	"github.com/akann/events-booking/internal/pkg/metrics"
)

// Deps はルーティングに必要な依存
type Deps struct {
	Events         handler.EventServiceInterface
	Seats          handler.SeatServiceInterface
	Store          handler.Pinger
	RequestTimeout time.Duration

	// Metrics が nil の場合は /metrics を公開しない
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer // nil ならデフォルトレジストリ
	MetricsAuth config.MetricsConfig
}

// New はミドルウェアとルートを設定した Echo を返す
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e, d.RequestTimeout)

	health := handler.NewHealthHandler(d.Store)
	e.GET("/health", health.Check)

	if d.Metrics != nil {
		e.Use(middleware.PrometheusMiddleware(d.Metrics))

		gatherer := d.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		e.GET("/metrics",
			echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
			middleware.MetricsBasicAuth(d.MetricsAuth),
		)
	}

	events := handler.NewEventHandler(d.Events)
	seats := handler.NewSeatHandler(d.Seats)

	v1 := e.Group("/api/v1")
	v1.GET("/health", health.Check)
	v1.POST("/events", events.Create)
	v1.GET("/events/:event_id", events.GetByID)
	v1.GET("/events/:event_id/seats", events.ListAvailableSeats)
	v1.POST("/events/:event_id/seats/:seat_id/hold", seats.Hold)
	v1.POST("/events/:event_id/seats/:seat_id/reserve", seats.Reserve)
	v1.POST("/events/:event_id/seats/:seat_id/refresh", seats.Refresh)

	return e
}
