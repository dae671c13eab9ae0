package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/camellia/pkg/metrics"
)

// Logger records request metrics and writes one line per request. Probe and scrape traffic is
// logged at debug.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			elapsed := time.Since(start)

			req, res := c.Request(), c.Response()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(res.Status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(req.Method, route).Observe(elapsed.Seconds())

			log := logger.WithContext(req.Context()).WithFields(map[string]any{
				"request_id":  GetRequestID(req.Context()),
				"method":      req.Method,
				"route":       route,
				"uri":         req.RequestURI,
				"status":      res.Status,
				"duration_ms": elapsed.Milliseconds(),
				"bytes":       res.Size,
			})
			switch {
			case isProbe(route):
				log.Debug("Request")
			case res.Status >= http.StatusInternalServerError:
				log.Warn("Request failed")
			default:
				log.Info("Request")
			}
			return nil
		}
	}
}

func isProbe(route string) bool {
	return route == "/metrics" || strings.HasPrefix(route, "/health")
}
