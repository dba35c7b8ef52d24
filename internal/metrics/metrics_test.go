package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAuthFailure(t *testing.T) {
	before := testutil.ToFloat64(AuthFailures.WithLabelValues("expired"))
	RecordAuthFailure("expired")
	assert.Equal(t, before+1, testutil.ToFloat64(AuthFailures.WithLabelValues("expired")))
}

func TestRecordEventPublish(t *testing.T) {
	okBefore := testutil.ToFloat64(EventsPublished.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(EventsPublished.WithLabelValues("error"))

	RecordEventPublish(nil)
	RecordEventPublish(errors.New("broker down"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(EventsPublished.WithLabelValues("ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(EventsPublished.WithLabelValues("error")))
}

func TestRecordEventSkipped(t *testing.T) {
	before := testutil.ToFloat64(EventsPublished.WithLabelValues("skipped"))
	RecordEventSkipped()
	assert.Equal(t, before+1, testutil.ToFloat64(EventsPublished.WithLabelValues("skipped")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/medications/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) })

	ok := HTTPRequests.WithLabelValues(http.MethodGet, "/api/medications/:id", "204")
	teapot := HTTPRequests.WithLabelValues(http.MethodGet, "/boom", "418")
	okBefore, teapotBefore := testutil.ToFloat64(ok), testutil.ToFloat64(teapot)

	for _, p := range []string{"/api/medications/1", "/api/medications/2", "/boom"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	assert.Equal(t, okBefore+2, testutil.ToFloat64(ok))
	assert.Equal(t, teapotBefore+1, testutil.ToFloat64(teapot))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordDoseMarked()
	e := echo.New()
	e.GET("/metrics", Handler())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "medication_doses_marked_total"))
}
