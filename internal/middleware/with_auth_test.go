package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/middleware"
)

func guardedApp(userID interface{}, role string, opts middleware.AuthOptions) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != nil {
			c.Locals("user_id", userID)
		}
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	}, opts))
	return app
}

func TestWithAuth(t *testing.T) {
	cases := []struct {
		name   string
		userID interface{}
		role   string
		opts   middleware.AuthOptions
		status int
	}{
		{"student submits", uint(10), "Student", middleware.AuthOptions{Role: middleware.AuthRoleStudent}, fiber.StatusNoContent},
		{"teacher cannot submit", uint(7), "teacher", middleware.AuthOptions{Role: middleware.AuthRoleStudent}, fiber.StatusForbidden},
		{"staff admits teacher", uint(7), "teacher", middleware.AuthOptions{Role: middleware.AuthRoleStaff}, fiber.StatusNoContent},
		{"admin rejects teacher", uint(7), "teacher", middleware.AuthOptions{Role: middleware.AuthRoleAdmin}, fiber.StatusForbidden},
		{"role implies user", nil, "student", middleware.AuthOptions{Role: middleware.AuthRoleStudent}, fiber.StatusUnauthorized},
		{"zero id is anonymous", uint(0), "student", middleware.AuthOptions{Role: middleware.AuthRoleStudent}, fiber.StatusUnauthorized},
		{"any with user required", nil, "", middleware.AuthOptions{RequireUser: true}, fiber.StatusUnauthorized},
		{"any with user present", uint(3), "", middleware.AuthOptions{RequireUser: true}, fiber.StatusNoContent},
		{"anonymous allowed", nil, "", middleware.AuthOptions{}, fiber.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := perform(t, guardedApp(tc.userID, tc.role, tc.opts), nil)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func perform(t *testing.T, app *fiber.App, header http.Header) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
