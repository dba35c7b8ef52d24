package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/medication-adherence/internal/model"
)

// identityKey is the echo context key under which AuthGate stores the caller.
const identityKey = "identity"

// Identity is the authenticated caller as loaded from the store on this
// request. It never carries the password hash.
type Identity struct {
	ID    uint64     `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// IdentityOf projects a stored user onto an Identity.
func IdentityOf(u *model.User) Identity {
	return Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// CurrentUser returns the identity AuthGate attached to c. ok is false on
// routes not behind the gate.
func CurrentUser(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

func setIdentity(c echo.Context, id Identity) {
	c.Set(identityKey, id)
}

// userKey identifies the caller for rate-limit and cache keys; "guest" when
// the request is anonymous.
func userKey(c echo.Context) string {
	if id, ok := CurrentUser(c); ok {
		return strconv.FormatUint(id.ID, 10)
	}
	return "guest"
}
