// Package server assembles the echo instance: global middleware, stores,
// handlers and routes.
package server

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/medication-adherence/internal/config"
	"github.com/iliyamo/medication-adherence/internal/database"
	"github.com/iliyamo/medication-adherence/internal/handler"
	"github.com/iliyamo/medication-adherence/internal/metrics"
	"github.com/iliyamo/medication-adherence/internal/middleware"
	"github.com/iliyamo/medication-adherence/internal/repository"
	"github.com/iliyamo/medication-adherence/internal/router"
	"github.com/iliyamo/medication-adherence/internal/service"
	"github.com/iliyamo/medication-adherence/internal/utils"
)

// Options carries the process-wide dependencies. Redis and Publisher are
// optional; Now defaults to time.Now.
type Options struct {
	Config    config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	DB        *sql.DB
	Dialect   database.Dialect
	Redis     *redis.Client
	Publisher service.Publisher
	Now       func() time.Time
}

// New builds the HTTP server. It fails only when the token service cannot
// be created.
func New(o Options) (*echo.Echo, error) {
	tokens, err := utils.NewTokenService(o.Config.JWTSecret, o.Config.TokenTTL)
	if err != nil {
		return nil, err
	}
	debug := !o.Config.IsProduction()

	users := repository.NewUserRepo(o.DB, o.Dialect)
	meds := repository.NewMedicationRepo(o.DB)
	logs := repository.NewMedicationLogRepo(o.DB, o.Dialect)

	mh := handler.NewMedicationHandler(meds, logs, o.Publisher, debug)
	dh := handler.NewDashboardHandler(meds, logs, debug)
	if o.Now != nil {
		mh.Now = o.Now
		dh.Now = o.Now
		tokens.WithClock(o.Now)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler(debug)

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{DisableStackAll: true}))
	e.Use(echomw.RequestID())
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Secure())
	if o.Config.CORSOrigin != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{o.Config.CORSOrigin},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
			AllowCredentials: true,
		}))
	}
	e.Use(echomw.BodyLimit("10M"))

	api := e.Group("/api", middleware.NewRateLimiter(o.RateLimit, o.Redis))

	var cache echo.MiddlewareFunc
	if o.Cache.Enabled && o.Redis != nil {
		cache = middleware.NewResponseCache(o.Cache, o.Redis)
	}

	router.Register(e, api, router.Deps{
		Auth:        handler.NewAuthHandler(o.Config, users, tokens),
		Medications: mh,
		Dashboard:   dh,
		Tokens:      tokens,
		Users:       middleware.NewCachedUserLookup(users, o.Redis, o.Config.UserCacheTTL),
		Cache:       cache,
	})
	return e, nil
}
