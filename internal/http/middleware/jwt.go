package middleware

import (
	"strings"

	"hospital-queue/internal/config"

	"github.com/gofiber/fiber/v2"
)

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Missing authorization header")
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return unauthorized(c, "Invalid authorization format")
		}

		claims, err := config.ValidateToken(secret, tokenParts[1])
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("name", claims.Name)
		c.Locals("role", claims.Role)
		c.Locals("hospital_id", claims.HospitalID)

		return c.Next()
	}
}

func RoleAuth(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)

		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				return c.Next()
			}
		}

		return forbidden(c, "You do not have access to this resource")
	}
}

// HospitalScope limits staff to queues of the hospital in their token.
// Routes without a :hospitalId param fall back to the hospital_id query.
func HospitalScope() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claimed, _ := c.Locals("hospital_id").(string)

		target := c.Params("hospitalId")
		if target == "" {
			target = c.Query("hospital_id")
		}
		if claimed == "" || target != claimed {
			return forbidden(c, "Staff token is not valid for this hospital")
		}
		return c.Next()
	}
}
