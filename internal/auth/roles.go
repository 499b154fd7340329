package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Role labels an authenticated operator.
type Role string

const (
	// RoleAdmin may manage agents and route tickets.
	RoleAdmin Role = "ADMIN"
	// RoleService is held by integrations such as the external classifier callback.
	RoleService Role = "SERVICE"
)

// RequireRole ensures the principal holds one of the allowed roles.
func RequireRole(allowed ...Role) fiber.Handler {
	allowedSet := make(map[Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
