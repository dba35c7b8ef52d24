package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/medication-adherence/internal/logging"
)

// RequestLogger writes one zerolog line per request. Server errors log at
// error level, client errors at warn, the rest at info.
func RequestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			var ev *zerolog.Event
			switch {
			case v.Status >= 500:
				ev = logging.Error().Err(v.Error)
			case v.Status >= 400:
				ev = logging.Warn()
			default:
				ev = logging.Info()
			}
			ev = ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Str("route", v.RoutePath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("ip", v.RemoteIP)
			if v.RequestID != "" {
				ev = ev.Str("request_id", v.RequestID)
			}
			if id, ok := CurrentUser(c); ok {
				ev = ev.Uint64("user_id", id.ID)
			}
			ev.Msg("request")
			return nil
		},
	})
}
