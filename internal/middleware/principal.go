package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	principalIDHeader   = "X-User-ID"
	principalRoleHeader = "X-User-Role"

	// PrincipalIDKey and PrincipalRoleKey are the fiber.Ctx locals under
	// which Principal stores the resolved identity. Handlers read the
	// caller through them.
	PrincipalIDKey   = "principal_id"
	PrincipalRoleKey = "principal_role"

	// RoleAdmin marks callers allowed on administrative routes.
	RoleAdmin = "admin"
)

// Principal resolves the calling identity from the trusted gateway
// headers. Authentication happens upstream; requests reaching this
// service without an identity are rejected.
func Principal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(principalIDHeader))
		if id == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing principal")
		}

		c.Locals(PrincipalIDKey, id)
		c.Locals(PrincipalRoleKey, strings.ToLower(strings.TrimSpace(c.Get(principalRoleHeader))))
		return c.Next()
	}
}

// RequireAdmin rejects requests whose principal does not carry the
// admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(PrincipalRoleKey).(string)
		if role != RoleAdmin {
			return fiber.NewError(http.StatusForbidden, "admin role required")
		}
		return c.Next()
	}
}
