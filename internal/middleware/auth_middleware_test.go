package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func privilegeApp(granted []string, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if granted != nil {
			c.Locals("user_privileges", granted)
		}
		return c.Next()
	}, guard, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestPrivilegeGuards(t *testing.T) {
	tests := []struct {
		name    string
		granted []string
		guard   fiber.Handler
		status  int
	}{
		{"single granted", []string{"order:view"}, RequirePrivilege("order:view"), fiber.StatusNoContent},
		{"single missing", []string{"order:create"}, RequirePrivilege("order:view"), fiber.StatusForbidden},
		{"any matches second", []string{"order:manage"}, RequireAnyPrivilege("order:view", "order:manage"), fiber.StatusNoContent},
		{"any matches none", []string{"outbound:view"}, RequireAnyPrivilege("order:view", "order:manage"), fiber.StatusForbidden},
		{"no privileges in context", nil, RequireAnyPrivilege("order:view"), fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := privilegeApp(tt.granted, tt.guard).Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRequireAuth_RejectsMissingOrMalformedHeader(t *testing.T) {
	app := fiber.New()
	app.Get("/", RequireAuth(nil), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	for _, header := range []string{"", "Token abc", "Bearer"} {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, header)
	}
}
