// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/medication-adherence/internal/handler"
	"github.com/iliyamo/medication-adherence/internal/metrics"
	"github.com/iliyamo/medication-adherence/internal/middleware"
	"github.com/iliyamo/medication-adherence/internal/model"
)

// Deps is everything the route tables need.
type Deps struct {
	Auth        *handler.AuthHandler
	Medications *handler.MedicationHandler
	Dashboard   *handler.DashboardHandler

	Tokens middleware.TokenVerifier
	Users  middleware.UserLookup

	// Cache runs after the auth gate on protected groups; nil disables it.
	Cache echo.MiddlewareFunc
}

// Register mounts every route. api is the /api group; rate limiting and
// other cross-cutting middleware are applied by the caller.
func Register(e *echo.Echo, api *echo.Group, d Deps) {
	e.GET("/metrics", metrics.Handler())
	api.GET("/health", handler.Health)

	protected := []echo.MiddlewareFunc{
		middleware.AuthGate(d.Tokens, d.Users),
		middleware.RequireRole(model.RolePatient, model.RoleCaretaker),
	}
	if d.Cache != nil {
		protected = append(protected, d.Cache)
	}

	auth := api.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.GET("/verify", d.Auth.Verify, protected...)

	meds := api.Group("/medications", protected...)
	meds.GET("", d.Medications.List)
	meds.POST("", d.Medications.Create)
	// static segment wins over :id in echo's router
	meds.GET("/adherence", d.Medications.Adherence)
	meds.PUT("/:id", d.Medications.Update)
	meds.DELETE("/:id", d.Medications.Delete)
	meds.POST("/:id/taken", d.Medications.MarkTaken)

	dash := api.Group("/dashboard", protected...)
	dash.GET("/stats", d.Dashboard.Stats)
	dash.GET("/activity", d.Dashboard.Activity)

	e.RouteNotFound("/*", routeNotFound)
	api.RouteNotFound("/*", routeNotFound)
}

func routeNotFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Route not found"})
}
