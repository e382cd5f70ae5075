package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chuo_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	resultsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chuo_results_published_total",
			Help: "Total number of final exam results published",
		},
	)

	registrationChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chuo_registration_checks_total",
			Help: "Total number of registration eligibility checks",
		},
		[]string{"eligible"},
	)
)

func requestMetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if ctx.Path() == "/metrics" {
				return err
			}
			status := ctx.Response().Status
			if err != nil {
				if herr, ok := err.(*echo.HTTPError); ok {
					status = herr.Code
				}
			}
			apiRequestDuration.
				WithLabelValues(ctx.Path(), ctx.Request().Method, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
