package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"foodorder/internal/models"
	"foodorder/internal/services"
)

// Locals keys set by AuthRequired.
const (
	LocalUserID = "user_id"
	LocalRole   = "role"
	LocalEmail  = "email"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return deny(c, fiber.StatusUnauthorized, services.KindUnauthenticated, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return deny(c, fiber.StatusUnauthorized, services.KindUnauthenticated, "Authorization header format must be 'Bearer <token>'")
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			logrus.WithError(err).WithField("path", c.Path()).Debug("JWT validation failed")
			return deny(c, fiber.StatusUnauthorized, services.KindUnauthenticated, "Invalid or expired token")
		}

		// Store claims in Fiber context for subsequent handlers
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalRole, claims.Role)
		c.Locals(LocalEmail, claims.Email)

		return c.Next()
	}
}

// AdminOnly lets only admin tokens through. Use after AuthRequired.
func AdminOnly() fiber.Handler {
	return requireRole(models.RoleAdmin, "Admin access required")
}

// CustomerOnly lets only customer tokens through. Use after AuthRequired.
func CustomerOnly() fiber.Handler {
	return requireRole(models.RoleCustomer, "Customer access required")
}

func requireRole(role, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if got, _ := c.Locals(LocalRole).(string); got != role {
			return deny(c, fiber.StatusForbidden, services.KindAuthorization, message)
		}
		return c.Next()
	}
}

// CurrentActor returns the authenticated caller stored by AuthRequired.
func CurrentActor(c *fiber.Ctx) services.Actor {
	id, _ := c.Locals(LocalUserID).(string)
	role, _ := c.Locals(LocalRole).(string)
	return services.Actor{ID: id, Role: role}
}

func deny(c *fiber.Ctx, status int, kind services.Kind, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   kind,
		"message": message,
	})
}
