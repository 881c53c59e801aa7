package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "GridCast/pkg/logger"
)

var requestLogger *applogger.Logger

// SetLogger wires the structured logger used by RequestLogging.
func SetLogger(l *applogger.Logger) {
	requestLogger = l
}

// RequestLogging logs HTTP requests.
func RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			if requestLogger != nil {
				requestLogger.Info("http request",
					applogger.String("method", req.Method),
					applogger.String("uri", req.RequestURI),
					applogger.String("remote", req.RemoteAddr),
					applogger.Int("status", res.Status),
					applogger.Duration("latency_ms", time.Since(start)),
				)
			}

			return err
		}
	}
}
