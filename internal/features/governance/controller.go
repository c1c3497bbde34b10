package governance

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type GovernanceController struct {
	Service GateService
}

func NewGovernanceController(service GateService) *GovernanceController {
	return &GovernanceController{
		Service: service,
	}
}

// GetFlags godoc
// @Summary Read governance flags
// @Description Returns the current governance flag snapshot
// @Tags governance
// @Produce json
// @Success 200 {object} Flags
// @Router /api/governance/flags [get]
func (ctrl *GovernanceController) GetFlags(c *fiber.Ctx) error {
	flags, err := ctrl.Service.Snapshot(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(flags)
}

// SetFlag godoc
// @Summary Set a governance flag
// @Description Validated write of one governance flag; mutual-exclusion violations return 409
// @Tags governance
// @Accept json
// @Produce json
// @Param body body object true "{\"key\": \"write_mode_enabled\", \"value\": true}"
// @Success 200 {object} Flags
// @Failure 409 {object} map[string]interface{}
// @Router /api/governance/flags [put]
func (ctrl *GovernanceController) SetFlag(c *fiber.Ctx) error {
	var req struct {
		Key   FlagKey `json:"key"`
		Value bool    `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	flags, err := ctrl.Service.SetFlag(c.Context(), req.Key, req.Value)
	if err != nil {
		var policyErr *PolicyError
		if errors.As(err, &policyErr) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": policyErr.Reason,
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(flags)
}
