package middleware

import (
	"strings"

	"go-crm-sync/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates bearer tokens and injects operator claims into the
// request context. With skipAuth set (local development) a synthetic admin
// operator is injected instead.
func AuthMiddleware(skipAuth bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipAuth {
			c.Locals(utils.OperatorClaimsKey, &utils.OperatorClaims{
				OperatorID: "local-operator",
				Roles:      []string{"admin"},
			})
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(utils.OperatorClaimsKey, claims)
		return c.Next()
	}
}
