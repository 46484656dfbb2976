package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-grading-api/internal/utils"
)

const tokenLeeway = 30 * time.Second

// actorClaims accepts the subject under "sub", "user_id" or "id" and the role
// under "role" or "roles".
type actorClaims struct {
	UserID interface{} `json:"user_id,omitempty"`
	ID     interface{} `json:"id,omitempty"`
	Role   interface{} `json:"role,omitempty"`
	Roles  interface{} `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c actorClaims) actorID() (uint, bool) {
	candidates := []interface{}{c.Subject, c.UserID, c.ID}
	for _, candidate := range candidates {
		if id, err := normalizeUserID(candidate); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

func (c actorClaims) actorRole() string {
	for _, candidate := range []interface{}{c.Role, c.Roles} {
		if role := firstRole(candidate); role != "" {
			return role
		}
	}
	return ""
}

// JWTProtected validates HMAC bearer tokens and exposes the caller as the
// user_id and user_role locals.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(tokenLeeway),
	)
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return utils.Fail(c, fiber.StatusUnauthorized, err.Error(), nil)
		}

		var claims actorClaims
		token, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			message := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				message = "token expired"
			}
			return utils.Fail(c, fiber.StatusUnauthorized, message, nil)
		}

		userID, ok := claims.actorID()
		if !ok {
			return utils.Fail(c, fiber.StatusUnauthorized, "token subject missing", nil)
		}

		c.Locals("user_id", userID)
		if role := claims.actorRole(); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("authorization header missing")
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", errors.New("invalid authorization header")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("invalid token")
	}
	return token, nil
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 || v != float64(uint(v)) {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported subject type %T", value)
	}
}

func firstRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return normalizeRoleValue(v)
	case []interface{}:
		for _, item := range v {
			if role, ok := item.(string); ok {
				if normalized := normalizeRoleValue(role); normalized != "" {
					return normalized
				}
			}
		}
	}
	return ""
}
