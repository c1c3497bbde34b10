package mapping

import (
	"github.com/gofiber/fiber/v2"
)

type MappingController struct {
	Service MappingService
}

func NewMappingController(service MappingService) *MappingController {
	return &MappingController{
		Service: service,
	}
}

// SetMapping godoc
// @Summary Set a mapping
// @Description Map an external entity to an internal one. An empty internal_id removes the mapping; "ignore" marks it explicitly ignored.
// @Tags mapping
// @Accept json
// @Produce json
// @Param kind path string true "Mapping kind (pipeline|stage|user|field)"
// @Param body body MappingEntry true "Mapping entry"
// @Success 200 {object} map[string]interface{}
// @Router /api/mappings/{kind} [post]
func (ctrl *MappingController) SetMapping(c *fiber.Ctx) error {
	var entry MappingEntry
	if err := c.BodyParser(&entry); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	entry.Kind = MappingKind(c.Params("kind"))

	if err := ctrl.Service.SetMapping(c.Context(), &entry); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Mapping saved",
		"data":    entry,
	})
}

// ListMappings godoc
// @Summary List mappings of one kind
// @Tags mapping
// @Produce json
// @Param kind path string true "Mapping kind (pipeline|stage|user|field)"
// @Success 200 {object} map[string]interface{}
// @Router /api/mappings/{kind} [get]
func (ctrl *MappingController) ListMappings(c *fiber.Ctx) error {
	kind := MappingKind(c.Params("kind"))

	entries, err := ctrl.Service.ListMappings(c.Context(), kind)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": entries,
	})
}

// Coverage godoc
// @Summary Mapping coverage per kind
// @Description Mapped/total ratio per entity kind, measured against the catalog
// @Tags mapping
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/mappings/coverage [get]
func (ctrl *MappingController) Coverage(c *fiber.Ctx) error {
	stats, err := ctrl.Service.Coverage(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": stats,
	})
}
