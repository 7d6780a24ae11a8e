package controller

import (
	"testing"
	"time"

	"accelerator/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedEnrolledLead(t *testing.T, db *gorm.DB) (*models.Campaign, *models.Lead, *models.Enrollment) {
	campaign := seedActiveCampaign(t, db)
	lead := models.Lead{Email: "dana@acme.test", Industry: "SaaS", Status: models.LeadStatusContacted}
	require.NoError(t, db.Create(&lead).Error)

	now := time.Now()
	enrollment := models.Enrollment{
		CampaignID: campaign.ID, LeadID: lead.ID,
		Status: models.EnrollmentStatusActive, EnrolledAt: now, NextActionAt: &now,
	}
	require.NoError(t, db.Create(&enrollment).Error)
	return campaign, &lead, &enrollment
}

func TestRecordReplyCompletesEnrollment(t *testing.T) {
	db := setupTestDB(t)
	oc := NewOutcomeController(db, testLogger())

	app := fiber.New()
	app.Post("/outcomes", oc.RecordOutcome)

	_, lead, enrollment := seedEnrolledLead(t, db)

	resp := postJSON(t, app, "/outcomes", map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"outcome_type":  models.OutcomeReplied,
		"detail":        "interested, asked for syllabus",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var gotEnrollment models.Enrollment
	require.NoError(t, db.First(&gotEnrollment, enrollment.ID).Error)
	assert.Equal(t, models.EnrollmentStatusCompleted, gotEnrollment.Status)
	assert.Equal(t, models.EnrollmentOutcomeReplied, gotEnrollment.Outcome)
	assert.Nil(t, gotEnrollment.NextActionAt)

	var gotLead models.Lead
	require.NoError(t, db.First(&gotLead, lead.ID).Error)
	assert.Equal(t, 25, gotLead.LeadScore)
	assert.Equal(t, models.TemperatureWarm, gotLead.LeadTemperature)
	assert.Equal(t, models.LeadStatusQualified, gotLead.Status)

	// temperature change leaves an audit row
	var history models.LeadTemperatureHistory
	require.NoError(t, db.Where("lead_id = ?", lead.ID).First(&history).Error)
	assert.Equal(t, models.TemperatureCold, history.PreviousTemperature)
	assert.Equal(t, models.TemperatureWarm, history.NewTemperature)
	assert.Equal(t, "outcome", history.TriggerType)
}

func TestRecordDNCRemovesAndFlagsLead(t *testing.T) {
	db := setupTestDB(t)
	oc := NewOutcomeController(db, testLogger())

	app := fiber.New()
	app.Post("/outcomes", oc.RecordOutcome)

	_, lead, enrollment := seedEnrolledLead(t, db)

	resp := postJSON(t, app, "/outcomes", map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"outcome_type":  models.OutcomeDNCRequest,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var gotEnrollment models.Enrollment
	require.NoError(t, db.First(&gotEnrollment, enrollment.ID).Error)
	assert.Equal(t, models.EnrollmentStatusRemoved, gotEnrollment.Status)
	assert.Equal(t, models.EnrollmentOutcomeDNC, gotEnrollment.Outcome)
	assert.True(t, gotEnrollment.ExcludeFromMatch)

	var gotLead models.Lead
	require.NoError(t, db.First(&gotLead, lead.ID).Error)
	assert.Equal(t, models.LeadStatusDNC, gotLead.Status)
	assert.Equal(t, 0, gotLead.LeadScore, "negative deltas clamp at zero")
}

func TestRecordOutcomeRejectsUnknownType(t *testing.T) {
	db := setupTestDB(t)
	oc := NewOutcomeController(db, testLogger())

	app := fiber.New()
	app.Post("/outcomes", oc.RecordOutcome)

	_, _, enrollment := seedEnrolledLead(t, db)

	resp := postJSON(t, app, "/outcomes", map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"outcome_type":  "ghosted",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestChannelWebhookCorrelatesByMessageID(t *testing.T) {
	db := setupTestDB(t)
	oc := NewOutcomeController(db, testLogger())

	app := fiber.New()
	app.Post("/webhooks/channel", oc.HandleChannelWebhook)

	campaign, lead, enrollment := seedEnrolledLead(t, db)

	action := models.OutreachAction{
		EnrollmentID: enrollment.ID,
		CampaignID:   campaign.ID,
		LeadID:       lead.ID,
		Channel:      models.ChannelEmail,
		MessageID:    "msg-abc-123",
		Status:       models.ActionStatusSent,
		SentAt:       time.Now(),
	}
	require.NoError(t, db.Create(&action).Error)

	resp := postJSON(t, app, "/webhooks/channel", map[string]interface{}{
		"message_id": "msg-abc-123",
		"event":      "opened",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var outcome models.OutreachOutcome
	require.NoError(t, db.Where("lead_id = ?", lead.ID).First(&outcome).Error)
	assert.Equal(t, models.OutcomeOpened, outcome.OutcomeType)
	require.NotNil(t, outcome.ActionID)
	assert.Equal(t, action.ID, *outcome.ActionID)

	var gotLead models.Lead
	require.NoError(t, db.First(&gotLead, lead.ID).Error)
	assert.Equal(t, 5, gotLead.LeadScore)
}

func TestChannelWebhookUnknownMessageIsAcknowledged(t *testing.T) {
	db := setupTestDB(t)
	oc := NewOutcomeController(db, testLogger())

	app := fiber.New()
	app.Post("/webhooks/channel", oc.HandleChannelWebhook)

	resp := postJSON(t, app, "/webhooks/channel", map[string]interface{}{
		"message_id": "never-sent",
		"event":      "opened",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var count int64
	db.Model(&models.OutreachOutcome{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestChannelWebhookTransientCallFailureKeepsEnrollment(t *testing.T) {
	db := setupTestDB(t)
	oc := NewOutcomeController(db, testLogger())

	app := fiber.New()
	app.Post("/webhooks/channel", oc.HandleChannelWebhook)

	campaign, lead, enrollment := seedEnrolledLead(t, db)

	action := models.OutreachAction{
		EnrollmentID: enrollment.ID,
		CampaignID:   campaign.ID,
		LeadID:       lead.ID,
		Channel:      models.ChannelVoice,
		MessageID:    "call-777",
		Status:       models.ActionStatusSent,
		SentAt:       time.Now(),
	}
	require.NoError(t, db.Create(&action).Error)

	// a busy or unanswered call is not a dead number
	resp := postJSON(t, app, "/webhooks/channel", map[string]interface{}{
		"message_id": "call-777",
		"event":      "call_failed",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var gotEnrollment models.Enrollment
	require.NoError(t, db.First(&gotEnrollment, enrollment.ID).Error)
	assert.Equal(t, models.EnrollmentStatusActive, gotEnrollment.Status)

	var count int64
	db.Model(&models.OutreachOutcome{}).Count(&count)
	assert.EqualValues(t, 0, count)

	// a dead number still removes the enrollment
	resp = postJSON(t, app, "/webhooks/channel", map[string]interface{}{
		"message_id": "call-777",
		"event":      "call_invalid_number",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NoError(t, db.First(&gotEnrollment, enrollment.ID).Error)
	assert.Equal(t, models.EnrollmentStatusRemoved, gotEnrollment.Status)
	assert.Equal(t, models.EnrollmentOutcomeDeliveryFailed, gotEnrollment.Outcome)
}

func TestOutcomeOnTerminalEnrollmentKeepsState(t *testing.T) {
	db := setupTestDB(t)
	oc := NewOutcomeController(db, testLogger())

	app := fiber.New()
	app.Post("/outcomes", oc.RecordOutcome)

	_, lead, enrollment := seedEnrolledLead(t, db)
	require.NoError(t, db.Model(enrollment).Updates(map[string]interface{}{
		"status":  models.EnrollmentStatusCompleted,
		"outcome": models.EnrollmentOutcomeSequenceDone,
	}).Error)

	// a late reply after sequence completion still scores the lead
	resp := postJSON(t, app, "/outcomes", map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"outcome_type":  models.OutcomeReplied,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var gotEnrollment models.Enrollment
	require.NoError(t, db.First(&gotEnrollment, enrollment.ID).Error)
	assert.Equal(t, models.EnrollmentOutcomeSequenceDone, gotEnrollment.Outcome,
		"terminal enrollments never change outcome")

	var gotLead models.Lead
	require.NoError(t, db.First(&gotLead, lead.ID).Error)
	assert.Equal(t, 25, gotLead.LeadScore)
}
