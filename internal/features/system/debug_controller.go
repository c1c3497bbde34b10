package system

import (
	"go-crm-sync/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type DebugController struct{}

func NewDebugController() *DebugController {
	return &DebugController{}
}

// GetCurrentUser godoc
// @Summary Get current token claims
// @Tags debug
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/debug/me [get]
func (c *DebugController) GetCurrentUser(ctx *fiber.Ctx) error {
	claims, _ := ctx.Locals(utils.OperatorClaimsKey).(*utils.OperatorClaims)
	if claims == nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "no claims in context",
		})
	}

	return ctx.JSON(fiber.Map{
		"operator_id": claims.OperatorID,
		"roles":       claims.Roles,
	})
}
