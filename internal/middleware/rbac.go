package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// Roles carried in access tokens.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type roleSet map[string]struct{}

func newRoleSet(roles ...string) roleSet {
	set := make(roleSet, len(roles))
	for _, role := range roles {
		if normalized := normalizeRoleValue(role); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

func (s roleSet) allows(role string) bool {
	_, ok := s[role]
	return ok
}

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := newRoleSet(roles...)

	return func(c *fiber.Ctx) error {
		role := roleFromLocals(c)
		if role == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if !allowed.allows(role) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return c.Next()
	}
}

// RequireStaff admits teachers and administrators.
func RequireStaff() fiber.Handler {
	return RequireRole(RoleAdmin, RoleTeacher)
}

// RequireAdmin admits administrators only.
func RequireAdmin() fiber.Handler {
	return RequireRole(RoleAdmin)
}

func roleFromLocals(c *fiber.Ctx) string {
	return normalizeRoleValue(c.Locals("user_role"))
}

func hasUser(c *fiber.Ctx) bool {
	switch id := c.Locals("user_id").(type) {
	case uint:
		return id > 0
	case int:
		return id > 0
	default:
		return false
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
