package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"accelerator/config"
	"accelerator/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDB(db))
	return db
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func putJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func seedActiveCampaign(t *testing.T, db *gorm.DB) *models.Campaign {
	sequence := models.Sequence{
		Name: "Intro",
		Steps: []models.SequenceStep{
			{StepNumber: 1, Channel: models.ChannelEmail, Template: "Hi {first_name}"},
		},
	}
	require.NoError(t, db.Create(&sequence).Error)

	campaign := models.Campaign{
		Name:       "Outbound",
		Type:       models.CampaignTypeColdOutbound,
		Status:     models.CampaignStatusActive,
		SequenceID: sequence.ID,
		Targeting:  models.TargetingCriteria{Industries: []string{"SaaS"}},
	}
	require.NoError(t, db.Create(&campaign).Error)
	return &campaign
}

func TestEnrollLeadConflictOnDuplicate(t *testing.T) {
	db := setupTestDB(t)
	ec := NewEnrollmentController(db, testLogger())

	app := fiber.New()
	app.Post("/enrollments", ec.EnrollLead)

	campaign := seedActiveCampaign(t, db)
	lead := models.Lead{Email: "dana@acme.test", Industry: "SaaS"}
	require.NoError(t, db.Create(&lead).Error)

	body := map[string]interface{}{"campaign_id": campaign.ID, "lead_id": lead.ID}

	resp := postJSON(t, app, "/enrollments", body)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/enrollments", body)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// the successful enroll is audited
	var transitions int64
	db.Model(&models.EnrollmentTransition{}).Where("reason = ?", "enrolled").Count(&transitions)
	assert.EqualValues(t, 1, transitions)
}

func TestEnrollLeadAgainAfterRemoval(t *testing.T) {
	db := setupTestDB(t)
	ec := NewEnrollmentController(db, testLogger())

	app := fiber.New()
	app.Post("/enrollments", ec.EnrollLead)
	app.Post("/enrollments/:id/remove", ec.RemoveEnrollment)

	campaign := seedActiveCampaign(t, db)
	lead := models.Lead{Email: "dana@acme.test", Industry: "SaaS"}
	require.NoError(t, db.Create(&lead).Error)

	body := map[string]interface{}{"campaign_id": campaign.ID, "lead_id": lead.ID}
	resp := postJSON(t, app, "/enrollments", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var enrollment models.Enrollment
	require.NoError(t, db.Where("lead_id = ?", lead.ID).First(&enrollment).Error)

	resp = postJSON(t, app, fmt.Sprintf("/enrollments/%d/remove", enrollment.ID),
		map[string]interface{}{})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// removal is terminal for that enrollment, but re-enrollment is allowed
	resp = postJSON(t, app, "/enrollments", body)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var count int64
	db.Model(&models.Enrollment{}).Where("lead_id = ?", lead.ID).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestEnrollRejectsDNCLead(t *testing.T) {
	db := setupTestDB(t)
	ec := NewEnrollmentController(db, testLogger())

	app := fiber.New()
	app.Post("/enrollments", ec.EnrollLead)

	campaign := seedActiveCampaign(t, db)
	lead := models.Lead{Email: "dnc@acme.test", Status: models.LeadStatusDNC}
	require.NoError(t, db.Create(&lead).Error)

	resp := postJSON(t, app, "/enrollments",
		map[string]interface{}{"campaign_id": campaign.ID, "lead_id": lead.ID})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestRemoveWithDNCFlagsLead(t *testing.T) {
	db := setupTestDB(t)
	ec := NewEnrollmentController(db, testLogger())

	app := fiber.New()
	app.Post("/enrollments/:id/remove", ec.RemoveEnrollment)

	campaign := seedActiveCampaign(t, db)
	lead := models.Lead{Email: "optout@acme.test", Industry: "SaaS"}
	require.NoError(t, db.Create(&lead).Error)

	now := time.Now()
	enrollment := models.Enrollment{
		CampaignID: campaign.ID, LeadID: lead.ID,
		Status: models.EnrollmentStatusActive, EnrolledAt: now, NextActionAt: &now,
	}
	require.NoError(t, db.Create(&enrollment).Error)

	resp := postJSON(t, app, fmt.Sprintf("/enrollments/%d/remove", enrollment.ID),
		map[string]interface{}{"mark_dnc": true, "exclude_from_match": true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var gotLead models.Lead
	require.NoError(t, db.First(&gotLead, lead.ID).Error)
	assert.Equal(t, models.LeadStatusDNC, gotLead.Status)

	var gotEnrollment models.Enrollment
	require.NoError(t, db.First(&gotEnrollment, enrollment.ID).Error)
	assert.Equal(t, models.EnrollmentStatusRemoved, gotEnrollment.Status)
	assert.Equal(t, models.EnrollmentOutcomeOperatorRemove, gotEnrollment.Outcome)
	assert.True(t, gotEnrollment.ExcludeFromMatch)
	assert.Nil(t, gotEnrollment.NextActionAt)

	var transition models.EnrollmentTransition
	require.NoError(t, db.Where("enrollment_id = ?", enrollment.ID).First(&transition).Error)
	assert.Equal(t, models.EnrollmentStatusActive, transition.FromStatus)
	assert.Equal(t, models.EnrollmentStatusRemoved, transition.ToStatus)
}

func TestBulkEnrollMatching(t *testing.T) {
	db := setupTestDB(t)
	ec := NewEnrollmentController(db, testLogger())

	app := fiber.New()
	app.Post("/enrollments/bulk", ec.BulkEnrollMatching)

	campaign := seedActiveCampaign(t, db)

	leads := []models.Lead{
		{Email: "a@x.test", Industry: "SaaS"},
		{Email: "b@x.test", Industry: "SaaS"},
		{Email: "c@x.test", Industry: "Retail"},                               // targeting mismatch
		{Email: "d@x.test", Industry: "SaaS", Status: models.LeadStatusDNC},   // filtered out
	}
	for i := range leads {
		require.NoError(t, db.Create(&leads[i]).Error)
	}

	resp := postJSON(t, app, "/enrollments/bulk",
		map[string]interface{}{"campaign_id": campaign.ID})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 2, data["enrolled"])

	var count int64
	db.Model(&models.Enrollment{}).Where("campaign_id = ?", campaign.ID).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestBulkEnrollSkipsExcludedLeads(t *testing.T) {
	db := setupTestDB(t)
	ec := NewEnrollmentController(db, testLogger())

	app := fiber.New()
	app.Post("/enrollments/bulk", ec.BulkEnrollMatching)

	campaign := seedActiveCampaign(t, db)
	lead := models.Lead{Email: "gone@x.test", Industry: "SaaS"}
	require.NoError(t, db.Create(&lead).Error)

	now := time.Now()
	require.NoError(t, db.Create(&models.Enrollment{
		CampaignID: campaign.ID, LeadID: lead.ID,
		Status: models.EnrollmentStatusRemoved, EnrolledAt: now,
		ExcludeFromMatch: true,
	}).Error)

	resp := postJSON(t, app, "/enrollments/bulk",
		map[string]interface{}{"campaign_id": campaign.ID})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var count int64
	db.Model(&models.Enrollment{}).
		Where("campaign_id = ? AND status != ?", campaign.ID, models.EnrollmentStatusRemoved).
		Count(&count)
	assert.EqualValues(t, 0, count, "excluded lead is never re-enrolled by matching")
}

func TestResumeRecomputesNextAction(t *testing.T) {
	db := setupTestDB(t)
	ec := NewEnrollmentController(db, testLogger())

	app := fiber.New()
	app.Post("/enrollments/:id/pause", ec.PauseEnrollment)
	app.Post("/enrollments/:id/resume", ec.ResumeEnrollment)

	sequence := models.Sequence{
		Name: "Two step",
		Steps: []models.SequenceStep{
			{StepNumber: 1, Channel: models.ChannelEmail},
			{StepNumber: 2, Channel: models.ChannelEmail, DelayDays: 3},
		},
	}
	require.NoError(t, db.Create(&sequence).Error)
	campaign := models.Campaign{
		Name: "C", Type: models.CampaignTypeColdOutbound,
		Status: models.CampaignStatusActive, SequenceID: sequence.ID,
	}
	require.NoError(t, db.Create(&campaign).Error)

	lead := models.Lead{Email: "p@x.test"}
	require.NoError(t, db.Create(&lead).Error)

	old := time.Now().Add(-10 * 24 * time.Hour)
	enrollment := models.Enrollment{
		CampaignID: campaign.ID, LeadID: lead.ID,
		Status: models.EnrollmentStatusActive, CurrentStepIndex: 1,
		EnrolledAt: old, NextActionAt: &old,
	}
	require.NoError(t, db.Create(&enrollment).Error)

	resp := postJSON(t, app, fmt.Sprintf("/enrollments/%d/pause", enrollment.ID), map[string]interface{}{})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = postJSON(t, app, fmt.Sprintf("/enrollments/%d/resume", enrollment.ID), map[string]interface{}{})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got models.Enrollment
	require.NoError(t, db.First(&got, enrollment.ID).Error)
	assert.Equal(t, models.EnrollmentStatusActive, got.Status)
	require.NotNil(t, got.NextActionAt)
	// pending step's delay restarts from now, not from the stale due time
	assert.WithinDuration(t, time.Now().Add(3*24*time.Hour), *got.NextActionAt, time.Minute)
}
