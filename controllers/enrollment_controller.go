package controller

import (
	"errors"
	"time"

	"accelerator/models"
	"accelerator/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type EnrollmentController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewEnrollmentController(db *gorm.DB, logger *logrus.Logger) *EnrollmentController {
	return &EnrollmentController{
		DB:     db,
		Logger: logger.WithField("component", "enrollments"),
	}
}

type enrollInput struct {
	CampaignID uint `json:"campaign_id" validate:"required"`
	LeadID     uint `json:"lead_id" validate:"required"`
}

// EnrollLead puts a single lead into a campaign's sequence. The first step
// is due immediately. A lead can only hold one non-removed enrollment per
// campaign.
func (ec *EnrollmentController) EnrollLead(c *fiber.Ctx) error {
	var input enrollInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var campaign models.Campaign
	if err := ec.DB.First(&campaign, input.CampaignID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}
	if campaign.Status == models.CampaignStatusCompleted {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Campaign is completed", nil)
	}

	var lead models.Lead
	if err := ec.DB.First(&lead, input.LeadID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}
	if !lead.IsContactable() {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Lead is removed or on the do-not-contact list", nil)
	}

	enrollment, err := ec.enroll(&campaign, &lead)
	if err == errAlreadyEnrolled {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Lead is already enrolled in this campaign", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to enroll lead", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(enrollment))
}

type bulkEnrollInput struct {
	CampaignID uint `json:"campaign_id" validate:"required"`
	Limit      int  `json:"limit" validate:"gte=0"`
}

// BulkEnrollMatching enrolls every contactable lead that matches the
// campaign's targeting criteria. Leads previously removed from the campaign
// are excluded from matching.
func (ec *EnrollmentController) BulkEnrollMatching(c *fiber.Ctx) error {
	var input bulkEnrollInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var campaign models.Campaign
	if err := ec.DB.First(&campaign, input.CampaignID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}
	if campaign.Status == models.CampaignStatusCompleted {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Campaign is completed", nil)
	}
	if campaign.Targeting.IsEmpty() {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Campaign has no targeting criteria", nil)
	}

	var leads []models.Lead
	if err := ec.DB.Where("status NOT IN ?", []string{
		models.LeadStatusRemoved, models.LeadStatusDNC,
	}).Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", nil)
	}

	enrolled := 0
	skipped := 0
	for i := range leads {
		if input.Limit > 0 && enrolled >= input.Limit {
			break
		}
		if !campaign.Targeting.Matches(&leads[i]) {
			continue
		}
		_, err := ec.enroll(&campaign, &leads[i])
		if err == errAlreadyEnrolled || err == errExcludedFromMatch {
			skipped++
			continue
		}
		if err != nil {
			ec.Logger.WithError(err).WithField("lead_id", leads[i].ID).Warn("bulk enroll failed for lead")
			skipped++
			continue
		}
		enrolled++
	}

	ec.Logger.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"enrolled":    enrolled,
		"skipped":     skipped,
	}).Info("bulk enrollment finished")

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"enrolled": enrolled,
		"skipped":  skipped,
	}))
}

var (
	errAlreadyEnrolled   = errors.New("lead already enrolled")
	errExcludedFromMatch = errors.New("lead excluded from matching")
)

func (ec *EnrollmentController) enroll(campaign *models.Campaign, lead *models.Lead) (*models.Enrollment, error) {
	var existing models.Enrollment
	err := ec.DB.Where("campaign_id = ? AND lead_id = ?", campaign.ID, lead.ID).
		Order("created_at desc").First(&existing).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if err == nil {
		if existing.Status != models.EnrollmentStatusRemoved {
			return nil, errAlreadyEnrolled
		}
		if existing.ExcludeFromMatch {
			return nil, errExcludedFromMatch
		}
	}

	now := time.Now()
	enrollment := models.Enrollment{
		CampaignID:   campaign.ID,
		LeadID:       lead.ID,
		Status:       models.EnrollmentStatusActive,
		EnrolledAt:   now,
		NextActionAt: &now,
	}
	err = ec.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&enrollment).Error; err != nil {
			return err
		}
		return tx.Create(&models.EnrollmentTransition{
			EnrollmentID: enrollment.ID,
			CampaignID:   campaign.ID,
			LeadID:       lead.ID,
			ToStatus:     models.EnrollmentStatusActive,
			Reason:       "enrolled",
			OccurredAt:   now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// GetEnrollment returns one enrollment with its lead.
func (ec *EnrollmentController) GetEnrollment(c *fiber.Ctx) error {
	var enrollment models.Enrollment
	if err := ec.DB.Preload("Lead").First(&enrollment, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Enrollment not found", nil)
	}
	return c.JSON(utils.SuccessResponse(enrollment))
}

// PauseEnrollment holds a single lead's progression without touching the
// rest of the campaign.
func (ec *EnrollmentController) PauseEnrollment(c *fiber.Ctx) error {
	var enrollment models.Enrollment
	if err := ec.DB.First(&enrollment, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Enrollment not found", nil)
	}
	if !enrollment.CanTransition(models.EnrollmentStatusPaused) {
		return utils.ErrorResponse(c, fiber.StatusConflict,
			"Enrollment cannot be paused from status "+enrollment.Status, nil)
	}

	now := time.Now()
	record := enrollment.TransitionTo(models.EnrollmentStatusPaused, "operator_pause", now)
	err := ec.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&enrollment).Updates(map[string]interface{}{
			"status":           models.EnrollmentStatusPaused,
			"last_activity_at": &now,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to pause enrollment", nil)
	}
	return c.JSON(utils.SuccessResponse(enrollment))
}

// ResumeEnrollment reactivates a paused enrollment. The pending step's
// delay restarts from now so a long pause does not produce an immediate
// overdue burst.
func (ec *EnrollmentController) ResumeEnrollment(c *fiber.Ctx) error {
	var enrollment models.Enrollment
	if err := ec.DB.First(&enrollment, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Enrollment not found", nil)
	}
	if !enrollment.CanTransition(models.EnrollmentStatusActive) {
		return utils.ErrorResponse(c, fiber.StatusConflict,
			"Enrollment cannot be resumed from status "+enrollment.Status, nil)
	}

	var campaign models.Campaign
	if err := ec.DB.First(&campaign, enrollment.CampaignID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load campaign", nil)
	}

	now := time.Now()
	next := now
	var step models.SequenceStep
	err := ec.DB.Where("sequence_id = ? AND step_number = ?",
		campaign.SequenceID, enrollment.CurrentStepIndex+1).First(&step).Error
	if err == nil && step.DelayDays > 0 {
		next = now.Add(time.Duration(step.DelayDays) * 24 * time.Hour)
	}

	record := enrollment.TransitionTo(models.EnrollmentStatusActive, "operator_resume", now)
	txErr := ec.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&enrollment).Updates(map[string]interface{}{
			"status":           models.EnrollmentStatusActive,
			"last_activity_at": &now,
			"next_action_at":   &next,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if txErr != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resume enrollment", nil)
	}
	return c.JSON(utils.SuccessResponse(enrollment))
}

type removeEnrollmentInput struct {
	MarkDNC          bool `json:"mark_dnc"`
	ExcludeFromMatch bool `json:"exclude_from_match"`
}

// RemoveEnrollment terminally removes a lead from a campaign. Optionally
// flags the lead do-not-contact and/or excludes it from future auto-match.
func (ec *EnrollmentController) RemoveEnrollment(c *fiber.Ctx) error {
	var enrollment models.Enrollment
	if err := ec.DB.First(&enrollment, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Enrollment not found", nil)
	}
	if !enrollment.CanTransition(models.EnrollmentStatusRemoved) {
		return utils.ErrorResponse(c, fiber.StatusConflict,
			"Enrollment cannot be removed from status "+enrollment.Status, nil)
	}

	var input removeEnrollmentInput
	_ = c.BodyParser(&input) // body is optional

	now := time.Now()
	record := enrollment.TransitionTo(models.EnrollmentStatusRemoved, models.EnrollmentOutcomeOperatorRemove, now)
	err := ec.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&enrollment).Updates(map[string]interface{}{
			"status":             models.EnrollmentStatusRemoved,
			"outcome":            models.EnrollmentOutcomeOperatorRemove,
			"last_activity_at":   &now,
			"next_action_at":     nil,
			"exclude_from_match": input.ExcludeFromMatch,
		}).Error; err != nil {
			return err
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if input.MarkDNC {
			return tx.Model(&models.Lead{}).
				Where("id = ?", enrollment.LeadID).
				Update("status", models.LeadStatusDNC).Error
		}
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove enrollment", nil)
	}

	ec.Logger.WithFields(logrus.Fields{
		"enrollment_id": enrollment.ID,
		"mark_dnc":      input.MarkDNC,
	}).Info("enrollment removed by operator")

	return c.JSON(utils.SuccessResponse(enrollment))
}

// GetEnrollmentTimeline merges the enrollment's actions and outcomes into
// one chronological feed.
func (ec *EnrollmentController) GetEnrollmentTimeline(c *fiber.Ctx) error {
	enrollmentID := utils.ParseUint(c.Params("id"))

	var enrollment models.Enrollment
	if err := ec.DB.First(&enrollment, enrollmentID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Enrollment not found", nil)
	}

	var actions []models.OutreachAction
	if err := ec.DB.Where("enrollment_id = ?", enrollmentID).Order("sent_at asc").Find(&actions).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch actions", nil)
	}
	var outcomes []models.OutreachOutcome
	if err := ec.DB.Where("enrollment_id = ?", enrollmentID).Order("occurred_at asc").Find(&outcomes).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch outcomes", nil)
	}
	var transitions []models.EnrollmentTransition
	if err := ec.DB.Where("enrollment_id = ?", enrollmentID).Order("occurred_at asc").Find(&transitions).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch transitions", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"enrollment": enrollment,
		"timeline":   mergeTimeline(actions, outcomes, transitions),
	}))
}
