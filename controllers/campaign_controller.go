package controller

import (
	"time"

	"accelerator/config"
	"accelerator/models"
	"accelerator/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CampaignController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewCampaignController(db *gorm.DB, logger *logrus.Logger) *CampaignController {
	return &CampaignController{
		DB:     db,
		Logger: logger.WithField("component", "campaigns"),
	}
}

type campaignInput struct {
	Name           string                    `json:"name" validate:"required,min=2"`
	Type           string                    `json:"type" validate:"required,oneof=cold_outbound warm_nurture re_engagement"`
	SequenceID     uint                      `json:"sequence_id" validate:"required"`
	Targeting      *models.TargetingCriteria `json:"targeting_criteria"`
	Settings       *models.CampaignSettings  `json:"settings"`
	AISystemPrompt string                    `json:"ai_system_prompt"`
	BudgetTotal    float64                   `json:"budget_total" validate:"gte=0"`
}

// CreateCampaign creates a campaign in draft status.
func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	var input campaignInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var sequence models.Sequence
	if err := cc.DB.First(&sequence, input.SequenceID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	campaign := models.Campaign{
		Name:           input.Name,
		Type:           input.Type,
		Status:         models.CampaignStatusDraft,
		SequenceID:     input.SequenceID,
		AISystemPrompt: input.AISystemPrompt,
		BudgetTotal:    input.BudgetTotal,
	}
	if input.Targeting != nil {
		campaign.Targeting = *input.Targeting
	}
	if input.Settings != nil {
		campaign.Settings = *input.Settings
	}
	if campaign.Settings.MaxLeadsPerCycle <= 0 {
		campaign.Settings.MaxLeadsPerCycle = config.AppConfig.Outreach.DefaultMaxPerCyc
	}

	if err := cc.DB.Create(&campaign).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create campaign", nil)
	}

	cc.Logger.WithField("campaign_id", campaign.ID).Info("campaign created")
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(campaign))
}

// GetCampaigns lists campaigns with enrollment counts.
func (cc *CampaignController) GetCampaigns(c *fiber.Ctx) error {
	query := cc.DB.Model(&models.Campaign{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if ctype := c.Query("type"); ctype != "" {
		query = query.Where("type = ?", ctype)
	}

	var campaigns []models.Campaign
	if err := query.Order("created_at desc").Find(&campaigns).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch campaigns", nil)
	}

	type campaignListItem struct {
		models.Campaign
		EnrollmentCount int64 `json:"enrollment_count"`
		ActiveCount     int64 `json:"active_count"`
	}

	items := make([]campaignListItem, 0, len(campaigns))
	for _, campaign := range campaigns {
		item := campaignListItem{Campaign: campaign}
		cc.DB.Model(&models.Enrollment{}).Where("campaign_id = ?", campaign.ID).Count(&item.EnrollmentCount)
		cc.DB.Model(&models.Enrollment{}).
			Where("campaign_id = ? AND status = ?", campaign.ID, models.EnrollmentStatusActive).
			Count(&item.ActiveCount)
		items = append(items, item)
	}

	return c.JSON(utils.SuccessResponse(items))
}

// GetCampaign returns the campaign detail view: the campaign, its sequence,
// headline stats, and which console tabs apply to its current status.
func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}

	var sequence models.Sequence
	cc.DB.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_number asc")
	}).First(&sequence, campaign.SequenceID)

	var enrolled, active, completed, removed int64
	cc.DB.Model(&models.Enrollment{}).Where("campaign_id = ?", campaign.ID).Count(&enrolled)
	cc.DB.Model(&models.Enrollment{}).
		Where("campaign_id = ? AND status = ?", campaign.ID, models.EnrollmentStatusActive).Count(&active)
	cc.DB.Model(&models.Enrollment{}).
		Where("campaign_id = ? AND status = ?", campaign.ID, models.EnrollmentStatusCompleted).Count(&completed)
	cc.DB.Model(&models.Enrollment{}).
		Where("campaign_id = ? AND status = ?", campaign.ID, models.EnrollmentStatusRemoved).Count(&removed)

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"campaign": campaign,
		"sequence": sequence,
		"stats": fiber.Map{
			"enrolled":  enrolled,
			"active":    active,
			"completed": completed,
			"removed":   removed,
		},
		"tabs": campaignTabs(&campaign),
	}))
}

// campaignTabs lists the console capabilities available for a campaign's
// status. Draft campaigns only expose setup; running ones add monitoring
// surfaces.
func campaignTabs(campaign *models.Campaign) []string {
	if campaign.Status == models.CampaignStatusDraft {
		return []string{"overview", "targeting", "prompts", "settings"}
	}
	return []string{"overview", "analytics", "targeting", "gtm", "prompts", "leads", "crm", "settings"}
}

// UpdateCampaign edits draft campaign fields. Non-draft campaigns only
// accept settings and prompt changes through their dedicated endpoints.
func (cc *CampaignController) UpdateCampaign(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}
	if campaign.Status != models.CampaignStatusDraft {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Only draft campaigns can be edited", nil)
	}

	var input campaignInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var sequence models.Sequence
	if err := cc.DB.First(&sequence, input.SequenceID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	campaign.Name = input.Name
	campaign.Type = input.Type
	campaign.SequenceID = input.SequenceID
	campaign.AISystemPrompt = input.AISystemPrompt
	campaign.BudgetTotal = input.BudgetTotal
	if input.Targeting != nil {
		campaign.Targeting = *input.Targeting
	}
	if input.Settings != nil {
		campaign.Settings = *input.Settings
	}

	if err := cc.DB.Save(&campaign).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update campaign", nil)
	}
	return c.JSON(utils.SuccessResponse(campaign))
}

// ActivateCampaign moves a draft or paused campaign to active. Activation
// requires a sequence with at least one step and non-empty targeting.
func (cc *CampaignController) ActivateCampaign(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}
	if !campaign.CanTransition(models.CampaignStatusActive) {
		return utils.ErrorResponse(c, fiber.StatusConflict,
			"Campaign cannot be activated from status "+campaign.Status, nil)
	}

	var stepCount int64
	if err := cc.DB.Model(&models.SequenceStep{}).
		Where("sequence_id = ?", campaign.SequenceID).
		Count(&stepCount).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check sequence", nil)
	}
	if stepCount == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Campaign sequence has no steps", nil)
	}
	if campaign.Targeting.IsEmpty() {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Campaign has no targeting criteria", nil)
	}

	updates := map[string]interface{}{"status": models.CampaignStatusActive}
	if campaign.ActivatedAt == nil {
		now := time.Now()
		updates["activated_at"] = &now
	}
	if err := cc.DB.Model(&campaign).Updates(updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to activate campaign", nil)
	}

	cc.Logger.WithField("campaign_id", campaign.ID).Info("campaign activated")
	return c.JSON(utils.SuccessResponse(campaign))
}

// PauseCampaign stops the scheduler from picking up the campaign's
// enrollments. Individual enrollments keep their own status.
func (cc *CampaignController) PauseCampaign(c *fiber.Ctx) error {
	return cc.transition(c, models.CampaignStatusPaused, "campaign paused")
}

// CompleteCampaign closes the campaign permanently and completes all of
// its still-running enrollments.
func (cc *CampaignController) CompleteCampaign(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}
	if !campaign.CanTransition(models.CampaignStatusCompleted) {
		return utils.ErrorResponse(c, fiber.StatusConflict,
			"Campaign cannot be completed from status "+campaign.Status, nil)
	}

	now := time.Now()
	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&campaign).Updates(map[string]interface{}{
			"status":       models.CampaignStatusCompleted,
			"completed_at": &now,
		}).Error; err != nil {
			return err
		}
		var running []models.Enrollment
		if err := tx.Where("campaign_id = ? AND status IN ?", campaign.ID,
			[]string{models.EnrollmentStatusActive, models.EnrollmentStatusPaused}).
			Find(&running).Error; err != nil {
			return err
		}
		for i := range running {
			record := running[i].TransitionTo(models.EnrollmentStatusCompleted, "campaign_completed", now)
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Enrollment{}).
			Where("campaign_id = ? AND status IN ?", campaign.ID,
				[]string{models.EnrollmentStatusActive, models.EnrollmentStatusPaused}).
			Updates(map[string]interface{}{
				"status":           models.EnrollmentStatusCompleted,
				"outcome":          models.EnrollmentOutcomeSequenceDone,
				"last_activity_at": &now,
				"next_action_at":   nil,
			}).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to complete campaign", nil)
	}

	cc.Logger.WithField("campaign_id", campaign.ID).Info("campaign completed")
	return c.JSON(utils.SuccessResponse(campaign))
}

func (cc *CampaignController) transition(c *fiber.Ctx, to, logMsg string) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}
	if !campaign.CanTransition(to) {
		return utils.ErrorResponse(c, fiber.StatusConflict,
			"Campaign cannot move from "+campaign.Status+" to "+to, nil)
	}
	if err := cc.DB.Model(&campaign).Update("status", to).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update campaign", nil)
	}
	cc.Logger.WithField("campaign_id", campaign.ID).Info(logMsg)
	return c.JSON(utils.SuccessResponse(campaign))
}

// UpdateSettings changes pacing knobs on any non-completed campaign.
func (cc *CampaignController) UpdateSettings(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}
	if campaign.Status == models.CampaignStatusCompleted {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Completed campaigns cannot be edited", nil)
	}

	var settings models.CampaignSettings
	if err := c.BodyParser(&settings); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if settings.MaxLeadsPerCycle < 0 || settings.SendDelaySeconds < 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Pacing values must be non-negative", nil)
	}

	campaign.Settings = settings
	if err := cc.DB.Save(&campaign).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update settings", nil)
	}
	return c.JSON(utils.SuccessResponse(campaign))
}

type promptInput struct {
	AISystemPrompt string `json:"ai_system_prompt" validate:"required"`
}

// UpdatePrompt changes the messaging prompt. Applies to future sends only;
// already-recorded actions keep the copy that was sent.
func (cc *CampaignController) UpdatePrompt(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}
	if campaign.Status == models.CampaignStatusCompleted {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Completed campaigns cannot be edited", nil)
	}

	var input promptInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if err := cc.DB.Model(&campaign).Update("ai_system_prompt", input.AISystemPrompt).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update prompt", nil)
	}
	return c.JSON(utils.SuccessResponse(campaign))
}

// GetCampaignLeads lists enrollments with their leads for the campaign's
// leads tab.
func (cc *CampaignController) GetCampaignLeads(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))

	var campaign models.Campaign
	if err := cc.DB.First(&campaign, campaignID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 25
	}

	query := cc.DB.Model(&models.Enrollment{}).Where("campaign_id = ?", campaignID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count enrollments", nil)
	}

	var enrollments []models.Enrollment
	if err := query.Preload("Lead").
		Order("enrolled_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&enrollments).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch enrollments", nil)
	}

	type enrolledLead struct {
		Enrollment models.Enrollment `json:"enrollment"`
		Lead       models.Lead       `json:"lead"`
	}
	items := make([]enrolledLead, 0, len(enrollments))
	for _, e := range enrollments {
		items = append(items, enrolledLead{Enrollment: e, Lead: e.Lead})
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  items,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
