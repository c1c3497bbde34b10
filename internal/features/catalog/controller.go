package catalog

import (
	common_models "go-crm-sync/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type CatalogController struct {
	Service CatalogService
}

func NewCatalogController(service CatalogService) *CatalogController {
	return &CatalogController{
		Service: service,
	}
}

// UpsertEntry godoc
// @Summary Upsert a catalog entry
// @Description Create or correct one external entity (manual entry)
// @Tags catalog
// @Accept json
// @Produce json
// @Param body body CatalogEntry true "Catalog entry"
// @Success 200 {object} map[string]interface{}
// @Router /api/catalog [post]
func (ctrl *CatalogController) UpsertEntry(c *fiber.Ctx) error {
	var entry CatalogEntry
	if err := c.BodyParser(&entry); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.Upsert(c.Context(), &entry); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Catalog entry saved",
		"data":    entry,
	})
}

// ListEntries godoc
// @Summary List catalog entries
// @Description List catalog entries by entity type, optionally filtered by parent
// @Tags catalog
// @Produce json
// @Param type path string true "Entity type (pipeline|stage|user|field)"
// @Param parent query string false "Parent external ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/catalog/{type} [get]
func (ctrl *CatalogController) ListEntries(c *fiber.Ctx) error {
	entityType := common_models.EntityType(c.Params("type"))
	parent := c.Query("parent")

	entries, err := ctrl.Service.List(c.Context(), entityType, parent)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": entries,
	})
}

// RenameEntry godoc
// @Summary Rename a catalog entry
// @Tags catalog
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/catalog/{id}/rename [put]
func (ctrl *CatalogController) RenameEntry(c *fiber.Ctx) error {
	id := c.Params("id")

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.Rename(c.Context(), id, req.Name); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Catalog entry renamed",
	})
}

// SyncCatalog godoc
// @Summary Sync catalog from provider
// @Description Pull one entity kind from the provider API and mirror it locally
// @Tags catalog
// @Produce json
// @Param type path string true "Entity type (pipeline|stage|user|field)"
// @Success 200 {object} map[string]interface{}
// @Router /api/catalog/{type}/sync [post]
func (ctrl *CatalogController) SyncCatalog(c *fiber.Ctx) error {
	entityType := common_models.EntityType(c.Params("type"))

	count, err := ctrl.Service.SyncFromProvider(c.Context(), entityType)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Catalog synced",
		"count":   count,
	})
}
