package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/medication-adherence/internal/logging"
	"github.com/iliyamo/medication-adherence/internal/metrics"
	"github.com/iliyamo/medication-adherence/internal/model"
	"github.com/iliyamo/medication-adherence/internal/repository"
	"github.com/iliyamo/medication-adherence/internal/utils"
)

// TokenVerifier turns a bearer token into a user id. *utils.TokenService
// implements it.
type TokenVerifier interface {
	Verify(raw string) (uint64, error)
}

// UserLookup loads a user by id and returns repository.ErrNotFound when the
// user no longer exists. *repository.UserRepo implements it.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthGate admits a request only with a valid token of a user that still
// exists. The user is re-read on every request, so deleting an account
// revokes its outstanding tokens. On success the caller's Identity is
// available through CurrentUser.
func AuthGate(tokens TokenVerifier, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c.Request())
			if raw == "" {
				metrics.RecordAuthFailure("missing")
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Access token required"})
			}

			userID, err := tokens.Verify(raw)
			if err != nil {
				reason := "invalid"
				if errors.Is(err, utils.ErrTokenExpired) {
					reason = "expired"
				}
				metrics.RecordAuthFailure(reason)
				logging.Debug().Str("reason", reason).Err(err).Str("path", c.Path()).Msg("token rejected")
				return c.JSON(http.StatusForbidden, echo.Map{"message": "Invalid or expired token"})
			}

			u, err := users.GetByID(c.Request().Context(), userID)
			if errors.Is(err, repository.ErrNotFound) {
				metrics.RecordAuthFailure("user_not_found")
				logging.Info().Uint64("user_id", userID).Msg("token for unknown user")
				return c.JSON(http.StatusForbidden, echo.Map{"message": "User not found"})
			}
			if err != nil {
				logging.Error().Err(err).Uint64("user_id", userID).Msg("auth user lookup failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Database error"})
			}

			setIdentity(c, IdentityOf(u))
			return next(c)
		}
	}
}
