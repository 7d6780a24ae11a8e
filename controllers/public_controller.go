package controller

import (
	"encoding/json"
	"time"

	"accelerator/models"
	"accelerator/utils"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"
)

// PublicController serves the unauthenticated marketing-site endpoints:
// pricing, program info, lead capture, and checkout.
type PublicController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewPublicController(db *gorm.DB, logger *logrus.Logger) *PublicController {
	return &PublicController{
		DB:     db,
		Logger: logger.WithField("component", "public"),
	}
}

// GetPricing returns the active pricing plans for the marketing site.
func (pc *PublicController) GetPricing(c *fiber.Ctx) error {
	var plans []models.Plan
	if err := pc.DB.Where("is_active = ?", true).Order("price_cents asc").Find(&plans).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch plans", nil)
	}
	return c.JSON(utils.SuccessResponse(plans))
}

// GetProgram returns the program outline rendered on the marketing site.
// Content is static; the site owns presentation.
func (pc *PublicController) GetProgram(c *fiber.Ctx) error {
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"name":     "Enterprise Data Engineering Accelerator",
		"duration": "12 weeks",
		"format":   "remote cohort with weekly live sessions",
		"modules": []fiber.Map{
			{"week": 1, "title": "Data platform foundations"},
			{"week": 2, "title": "Batch pipelines and orchestration"},
			{"week": 4, "title": "Streaming and event-driven systems"},
			{"week": 7, "title": "Warehouse modeling and analytics"},
			{"week": 10, "title": "Production operations and cost"},
			{"week": 12, "title": "Capstone delivery"},
		},
	}))
}

type captureInput struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Title     string `json:"title"`
	Phone     string `json:"phone"`
	FormType  string `json:"form_type" validate:"required,oneof=contact brochure demo newsletter"`
}

// CaptureLead records a marketing-form submission as a lead. Resubmissions
// with the same email update the existing record instead of duplicating it.
func (pc *PublicController) CaptureLead(c *fiber.Ctx) error {
	var input captureInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", nil)
	}

	var lead models.Lead
	err := pc.DB.Where("email = ?", input.Email).First(&lead).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to capture lead", nil)
	}

	if err == gorm.ErrRecordNotFound {
		lead = models.Lead{
			Email:     input.Email,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Company:   input.Company,
			Title:     input.Title,
			Phone:     input.Phone,
			Source:    models.LeadSourceForm,
			FormType:  input.FormType,
		}
		if err := pc.DB.Create(&lead).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to capture lead", nil)
		}
		pc.Logger.WithFields(logrus.Fields{
			"lead_id":   lead.ID,
			"form_type": input.FormType,
		}).Info("captured new lead")
	} else {
		// Fill in blanks only; a form submission never erases known data.
		updates := map[string]interface{}{"form_type": input.FormType}
		if lead.FirstName == "" && input.FirstName != "" {
			updates["first_name"] = input.FirstName
		}
		if lead.LastName == "" && input.LastName != "" {
			updates["last_name"] = input.LastName
		}
		if lead.Company == "" && input.Company != "" {
			updates["company"] = input.Company
		}
		if lead.Title == "" && input.Title != "" {
			updates["title"] = input.Title
		}
		if lead.Phone == "" && input.Phone != "" {
			updates["phone"] = input.Phone
		}
		if err := pc.DB.Model(&lead).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to capture lead", nil)
		}
		pc.Logger.WithField("lead_id", lead.ID).Info("updated lead from repeat submission")
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"lead_id": lead.ID,
	}))
}

type checkoutInput struct {
	PlanSlug string `json:"plan_slug" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

// CreateCheckout starts a hosted payment session for a pricing plan.
func (pc *PublicController) CreateCheckout(c *fiber.Ctx) error {
	var input checkoutInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var plan models.Plan
	if err := pc.DB.Where("slug = ? AND is_active = ?", input.PlanSlug, true).First(&plan).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Plan not found", nil)
	}

	url, err := utils.CreateCheckoutSession(&plan, input.Email)
	if err != nil {
		pc.Logger.WithError(err).Error("checkout session failed")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start checkout", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"checkout_url": url,
	}))
}

// HandleStripeWebhook processes payment completion events. A completed
// checkout marks the matching lead converted.
func (pc *PublicController) HandleStripeWebhook(c *fiber.Ctx) error {
	event, err := utils.ConstructStripeEvent(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		pc.Logger.WithError(err).Warn("rejected webhook with bad signature")
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid webhook signature", nil)
	}

	if event.Type == "checkout.session.completed" {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid event payload", nil)
		}

		email := session.CustomerEmail
		if email == "" && session.CustomerDetails != nil {
			email = session.CustomerDetails.Email
		}
		if email != "" {
			if err := pc.markLeadConverted(email, session.Metadata["plan_slug"]); err != nil {
				pc.Logger.WithError(err).WithField("email", email).Error("failed to convert lead from checkout")
			}
		}
	}

	return c.JSON(fiber.Map{"received": true})
}

func (pc *PublicController) markLeadConverted(email, planSlug string) error {
	var lead models.Lead
	err := pc.DB.Where("email = ?", email).First(&lead).Error
	if err == gorm.ErrRecordNotFound {
		// Direct purchase without a prior form touch still becomes a lead.
		lead = models.Lead{
			Email:  email,
			Source: models.LeadSourceForm,
			Status: models.LeadStatusConverted,
		}
		return pc.DB.Create(&lead).Error
	}
	if err != nil {
		return err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":          models.LeadStatusConverted,
		"last_contact_at": &now,
	}
	if err := pc.DB.Model(&lead).Updates(updates).Error; err != nil {
		return err
	}

	outcome := models.OutreachOutcome{
		LeadID:      lead.ID,
		OutcomeType: models.OutcomeConverted,
		Detail:      "checkout completed: " + planSlug,
		OccurredAt:  now,
	}
	return pc.DB.Create(&outcome).Error
}
