package controller

import (
	"time"

	"accelerator/models"
	"accelerator/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OutcomeController records responses to outreach, from manual operator
// logging and from channel delivery callbacks. Recording an outcome
// adjusts the lead's score and temperature and may terminate the
// enrollment.
type OutcomeController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewOutcomeController(db *gorm.DB, logger *logrus.Logger) *OutcomeController {
	return &OutcomeController{
		DB:     db,
		Logger: logger.WithField("component", "outcomes"),
	}
}

type outcomeInput struct {
	EnrollmentID uint   `json:"enrollment_id" validate:"required"`
	ActionID     *uint  `json:"action_id"`
	OutcomeType  string `json:"outcome_type" validate:"required"`
	Detail       string `json:"detail"`
}

// RecordOutcome logs an outcome against an enrollment from the admin
// console.
func (oc *OutcomeController) RecordOutcome(c *fiber.Ctx) error {
	var input outcomeInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if !validOutcomeType(input.OutcomeType) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid outcome type", nil)
	}

	var enrollment models.Enrollment
	if err := oc.DB.First(&enrollment, input.EnrollmentID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Enrollment not found", nil)
	}

	outcome, err := oc.apply(&enrollment, input.ActionID, input.OutcomeType, input.Detail, time.Now())
	if err != nil {
		oc.Logger.WithError(err).Error("failed to record outcome")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record outcome", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(outcome))
}

type channelEventInput struct {
	MessageID  string `json:"message_id" validate:"required"`
	Event      string `json:"event" validate:"required"`
	Detail     string `json:"detail"`
	OccurredAt string `json:"occurred_at"`
}

// HandleChannelWebhook ingests delivery events from the email and voice
// providers, correlated to actions by message id. Unknown message ids are
// acknowledged and dropped so the provider does not retry forever.
func (oc *OutcomeController) HandleChannelWebhook(c *fiber.Ctx) error {
	var input channelEventInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	outcomeType := channelEventOutcome(input.Event)
	if outcomeType == "" {
		return c.JSON(fiber.Map{"received": true, "ignored": "unknown event"})
	}

	var action models.OutreachAction
	if err := oc.DB.Where("message_id = ?", input.MessageID).First(&action).Error; err != nil {
		oc.Logger.WithField("message_id", input.MessageID).Warn("webhook for unknown message id")
		return c.JSON(fiber.Map{"received": true, "ignored": "unknown message id"})
	}

	var enrollment models.Enrollment
	if err := oc.DB.First(&enrollment, action.EnrollmentID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load enrollment", nil)
	}

	occurredAt := time.Now()
	if input.OccurredAt != "" {
		if t, err := time.Parse(time.RFC3339, input.OccurredAt); err == nil {
			occurredAt = t
		}
	}

	if _, err := oc.apply(&enrollment, &action.ID, outcomeType, input.Detail, occurredAt); err != nil {
		oc.Logger.WithError(err).Error("failed to apply channel outcome")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record outcome", nil)
	}

	return c.JSON(fiber.Map{"received": true})
}

// channelEventOutcome maps provider event names onto outcome types.
// Transient voice events (call_failed, call_no_answer) map to nothing:
// the number may still be reachable, so they are acknowledged without
// touching the enrollment.
func channelEventOutcome(event string) string {
	switch event {
	case "open", "opened":
		return models.OutcomeOpened
	case "click", "clicked":
		return models.OutcomeClicked
	case "reply", "replied", "call_answered_positive":
		return models.OutcomeReplied
	case "bounce", "bounced", "call_invalid_number":
		return models.OutcomeBounced
	case "unsubscribe", "unsubscribed":
		return models.OutcomeUnsubscribed
	case "complaint", "dnc_request", "call_opt_out":
		return models.OutcomeDNCRequest
	}
	return ""
}

// apply stores the outcome and its side effects in one transaction:
// lead score/temperature movement plus any terminal enrollment change.
func (oc *OutcomeController) apply(enrollment *models.Enrollment, actionID *uint, outcomeType, detail string, occurredAt time.Time) (*models.OutreachOutcome, error) {
	outcome := &models.OutreachOutcome{
		ActionID:     actionID,
		EnrollmentID: enrollment.ID,
		CampaignID:   enrollment.CampaignID,
		LeadID:       enrollment.LeadID,
		OutcomeType:  outcomeType,
		Detail:       detail,
		OccurredAt:   occurredAt,
	}

	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(outcome).Error; err != nil {
			return err
		}

		var lead models.Lead
		if err := tx.First(&lead, enrollment.LeadID).Error; err != nil {
			return err
		}

		if delta := utils.ScoreDelta(outcomeType); delta != 0 {
			newScore := utils.ClampScore(lead.LeadScore + delta)
			newTemp := utils.TemperatureForScore(newScore)

			updates := map[string]interface{}{"lead_score": newScore}
			if newTemp != lead.LeadTemperature {
				updates["lead_temperature"] = newTemp
				if err := tx.Create(&models.LeadTemperatureHistory{
					LeadID:              lead.ID,
					PreviousTemperature: lead.LeadTemperature,
					NewTemperature:      newTemp,
					TriggerType:         "outcome",
					TriggerDetail:       outcomeType,
				}).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&lead).Updates(updates).Error; err != nil {
				return err
			}
		}

		return oc.applyEnrollmentEffect(tx, enrollment, &lead, outcomeType, occurredAt)
	})
	if err != nil {
		return nil, err
	}

	oc.Logger.WithFields(logrus.Fields{
		"enrollment_id": enrollment.ID,
		"outcome_type":  outcomeType,
	}).Info("outcome recorded")

	return outcome, nil
}

// applyEnrollmentEffect terminates or flags the enrollment for outcomes
// that end the conversation.
func (oc *OutcomeController) applyEnrollmentEffect(tx *gorm.DB, enrollment *models.Enrollment, lead *models.Lead, outcomeType string, occurredAt time.Time) error {
	if enrollment.IsTerminal() {
		return nil
	}

	terminate := func(status, enrollmentOutcome string) error {
		if err := tx.Model(enrollment).Updates(map[string]interface{}{
			"status":           status,
			"outcome":          enrollmentOutcome,
			"last_activity_at": &occurredAt,
			"next_action_at":   nil,
		}).Error; err != nil {
			return err
		}
		record := enrollment.TransitionTo(status, enrollmentOutcome, occurredAt)
		return tx.Create(&record).Error
	}

	switch outcomeType {
	case models.OutcomeReplied:
		if err := terminate(models.EnrollmentStatusCompleted, models.EnrollmentOutcomeReplied); err != nil {
			return err
		}
		if lead.Status == models.LeadStatusNew || lead.Status == models.LeadStatusContacted {
			return tx.Model(lead).Update("status", models.LeadStatusQualified).Error
		}
		return nil

	case models.OutcomeBookedMeeting:
		return terminate(models.EnrollmentStatusCompleted, models.EnrollmentOutcomeMeetingBooked)

	case models.OutcomeConverted:
		if err := terminate(models.EnrollmentStatusCompleted, models.EnrollmentOutcomeConverted); err != nil {
			return err
		}
		return tx.Model(lead).Update("status", models.LeadStatusConverted).Error

	case models.OutcomeUnsubscribed, models.OutcomeDNCRequest:
		if err := tx.Model(enrollment).Updates(map[string]interface{}{
			"status":             models.EnrollmentStatusRemoved,
			"outcome":            models.EnrollmentOutcomeDNC,
			"last_activity_at":   &occurredAt,
			"next_action_at":     nil,
			"exclude_from_match": true,
		}).Error; err != nil {
			return err
		}
		record := enrollment.TransitionTo(models.EnrollmentStatusRemoved, models.EnrollmentOutcomeDNC, occurredAt)
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Model(lead).Update("status", models.LeadStatusDNC).Error

	case models.OutcomeBounced:
		// A hard bounce ends this enrollment; the lead stays contactable
		// on other channels.
		return terminate(models.EnrollmentStatusRemoved, models.EnrollmentOutcomeDeliveryFailed)
	}

	return nil
}

func validOutcomeType(t string) bool {
	for _, known := range models.OutcomeTypes {
		if known == t {
			return true
		}
	}
	return false
}
