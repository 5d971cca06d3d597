package middleware

import (
	"slices"
	"strings"

	"go-scan-pos/internal/repository"
	"go-scan-pos/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth is middleware that validates JWT token and sets user info in context
func RequireAuth(userRepo repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		tokenString := parts[1]

		// Validate token
		claims, err := jwt.ValidateToken(tokenString)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		// Deactivated operators lose access before their token expires
		user, err := userRepo.FindByID(c.UserContext(), claims.UserID.String())
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "User not found"})
		}
		if !user.IsActive {
			return c.Status(401).JSON(fiber.Map{"error": "User account is inactive"})
		}

		// Set user info in context for downstream handlers.
		// Privileges come from the current role, not the token.
		c.Locals("user_id", user.ID.String())
		c.Locals("user_email", user.Email)
		c.Locals("user_name", user.FullName)
		c.Locals("user_privileges", user.PrivilegeCodes())

		return c.Next()
	}
}

// RequirePrivilege checks if the authenticated user has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return requireOneOf("Forbidden: requires '"+requiredPrivilege+"' privilege", requiredPrivilege)
}

// RequireAnyPrivilege lets the request through when the operator holds at
// least one of the listed privileges.
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return requireOneOf("Forbidden: requires one of "+strings.Join(requiredPrivileges, ", ")+" privileges", requiredPrivileges...)
}

func requireOneOf(forbidden string, required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Set by RequireAuth
		privileges, ok := c.Locals("user_privileges").([]string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No privileges found"})
		}
		for _, p := range required {
			if slices.Contains(privileges, p) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": forbidden})
	}
}

// OperatorID returns the authenticated operator id set by RequireAuth.
func OperatorID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
