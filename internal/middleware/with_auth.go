package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// Auth role constants used by WithAuth helper.
const (
	AuthRoleAny     = "any"
	AuthRoleAdmin   = "admin"
	AuthRoleStaff   = "staff"
	AuthRoleStudent = "student"
)

var authRoleSets = map[string]roleSet{
	AuthRoleAdmin:   newRoleSet(RoleAdmin),
	AuthRoleStaff:   newRoleSet(RoleAdmin, RoleTeacher),
	AuthRoleStudent: newRoleSet(RoleStudent),
}

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth guards a single handler. Any role other than AuthRoleAny implies
// an authenticated user.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := normalizeRoleValue(opts.Role)
	if role == "" {
		role = AuthRoleAny
	}

	allowed, known := authRoleSets[role]
	if !known && role != AuthRoleAny {
		allowed = newRoleSet(role)
	}
	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		if requireUser && !hasUser(c) {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if role != AuthRoleAny && !allowed.allows(roleFromLocals(c)) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return handler(c)
	}
}
