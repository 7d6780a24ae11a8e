package controller

import (
	"accelerator/config"
	"accelerator/models"
	"accelerator/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EnrichmentController proxies the external contact-search provider and
// imports selected results as leads.
type EnrichmentController struct {
	DB     *gorm.DB
	Client *utils.EnrichmentClient
	Logger *logrus.Entry
}

func NewEnrichmentController(db *gorm.DB, logger *logrus.Logger) *EnrichmentController {
	return &EnrichmentController{
		DB:     db,
		Client: utils.NewEnrichmentClient(config.AppConfig.Enrich),
		Logger: logger.WithField("component", "enrichment"),
	}
}

// Search runs a people-search query against the enrichment provider.
func (ec *EnrichmentController) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Query parameter q is required", nil)
	}
	limit := c.QueryInt("limit", 25)

	results, err := ec.Client.Search(c.Context(), query, limit)
	if err != nil {
		ec.Logger.WithError(err).Warn("enrichment search failed")
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Enrichment provider unavailable", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"results": results,
		"count":   len(results),
	}))
}

type importContactsInput struct {
	Contacts []utils.EnrichedContact `json:"contacts" validate:"required,min=1"`
}

// ImportContacts saves selected search results as leads, deduplicating
// by email against the existing lead base.
func (ec *EnrichmentController) ImportContacts(c *fiber.Ctx) error {
	var input importContactsInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	imported := 0
	skipped := 0
	for _, contact := range input.Contacts {
		if contact.Email == "" {
			skipped++
			continue
		}

		var existing models.Lead
		if err := ec.DB.Where("email = ?", contact.Email).First(&existing).Error; err == nil {
			skipped++
			continue
		}

		lead := models.Lead{
			Email:       contact.Email,
			FirstName:   contact.FirstName,
			LastName:    contact.LastName,
			Company:     contact.Company,
			Title:       contact.Title,
			Industry:    contact.Industry,
			CompanySize: contact.CompanySize,
			Phone:       contact.Phone,
			Source:      models.LeadSourceEnrichment,
		}
		if err := ec.DB.Create(&lead).Error; err != nil {
			ec.Logger.WithError(err).WithField("email", contact.Email).Warn("failed to import contact")
			skipped++
			continue
		}
		imported++
	}

	ec.Logger.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("enrichment import finished")

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"imported": imported,
		"skipped":  skipped,
	}))
}
