package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/medication-adherence/internal/logging"
	"github.com/iliyamo/medication-adherence/internal/validation"
)

// dbTimeout bounds every store call made on behalf of a request.
const dbTimeout = 5 * time.Second

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// errorResponder writes the 500 body; outside production it includes the
// underlying error text.
type errorResponder struct {
	Debug bool
}

func (r errorResponder) internal(c echo.Context, msg string, err error) error {
	logging.Error().Err(err).Str("path", c.Path()).Msg(msg)
	body := echo.Map{"message": msg}
	if r.Debug {
		body["error"] = err.Error()
	}
	return c.JSON(http.StatusInternalServerError, body)
}

func validationFailed(c echo.Context, verr *validation.RequestValidationError) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"message": "Validation failed",
		"errors":  verr.Fields,
	})
}

// bindJSON decodes the body into dst. A malformed body becomes a 400 that
// HTTPErrorHandler renders.
func bindJSON(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}
	return nil
}

func parseID(c echo.Context) (uint64, bool) {
	// 63 bits: database/sql refuses uint64 arguments with the high bit set.
	id, err := strconv.ParseUint(c.Param("id"), 10, 63)
	return id, err == nil && id > 0
}

// HTTPErrorHandler renders errors that escape handlers (unknown routes,
// wrong methods, oversized bodies, panics turned into errors) as
// {"message": ...}.
func HTTPErrorHandler(debug bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "Internal server error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			switch code {
			case http.StatusNotFound:
				msg = "Route not found"
			case http.StatusInternalServerError:
			default:
				if m, ok := he.Message.(string); ok {
					msg = m
				} else {
					msg = http.StatusText(code)
				}
			}
		}

		body := echo.Map{"message": msg}
		if code >= http.StatusInternalServerError {
			logging.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
			if debug {
				body["error"] = err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logging.Error().Err(err).Msg("write error response")
		}
	}
}
