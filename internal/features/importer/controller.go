package importer

import (
	"go-crm-sync/internal/features/events"

	"github.com/gofiber/fiber/v2"
)

type ImportController struct {
	Service ImportService
}

func NewImportController(service ImportService) *ImportController {
	return &ImportController{
		Service: service,
	}
}

// ImportFile godoc
// @Summary Import a replay file
// @Description Upload a CSV or XLSX replay file; valid rows enter the normal ingestion path, flagged rows are reported back
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Replay file"
// @Param mode formData string false "Import mode (replay|new_lead)"
// @Param default_stage_id formData string false "Default stage for new_lead mode"
// @Success 200 {object} map[string]interface{}
// @Router /api/import [post]
func (ctrl *ImportController) ImportFile(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer file.Close()

	mode := c.FormValue("mode")
	defaultStageID := c.FormValue("default_stage_id")

	result, err := ctrl.Service.ImportFile(c.Context(), fileHeader.Filename, file, mode, defaultStageID)
	if err == events.ErrIngestDisabled {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"message": "Import complete",
		"data":    result,
	})
}
