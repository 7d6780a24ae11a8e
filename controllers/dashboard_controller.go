package controller

import (
	"time"

	"accelerator/models"
	"accelerator/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DashboardController serves the console landing page: headline numbers,
// the lead funnel, and recent campaign activity.
type DashboardController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewDashboardController(db *gorm.DB, logger *logrus.Logger) *DashboardController {
	return &DashboardController{
		DB:     db,
		Logger: logger.WithField("component", "dashboard"),
	}
}

// GetDashboardStats summarizes activity over a trailing window (default 30
// days).
func (dc *DashboardController) GetDashboardStats(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	var totalLeads, newLeads int64
	dc.DB.Model(&models.Lead{}).Count(&totalLeads)
	dc.DB.Model(&models.Lead{}).Where("created_at >= ?", since).Count(&newLeads)

	var activeCampaigns int64
	dc.DB.Model(&models.Campaign{}).Where("status = ?", models.CampaignStatusActive).Count(&activeCampaigns)

	var activeEnrollments int64
	dc.DB.Model(&models.Enrollment{}).Where("status = ?", models.EnrollmentStatusActive).Count(&activeEnrollments)

	var sent int64
	dc.DB.Model(&models.OutreachAction{}).
		Where("status = ? AND sent_at >= ?", models.ActionStatusSent, since).Count(&sent)

	var replies, meetings, conversions int64
	dc.DB.Model(&models.OutreachOutcome{}).
		Where("outcome_type = ? AND occurred_at >= ?", models.OutcomeReplied, since).Count(&replies)
	dc.DB.Model(&models.OutreachOutcome{}).
		Where("outcome_type = ? AND occurred_at >= ?", models.OutcomeBookedMeeting, since).Count(&meetings)
	dc.DB.Model(&models.OutreachOutcome{}).
		Where("outcome_type = ? AND occurred_at >= ?", models.OutcomeConverted, since).Count(&conversions)

	// lead funnel by temperature
	funnel := fiber.Map{}
	for _, temp := range []string{
		models.TemperatureCold, models.TemperatureCool, models.TemperatureWarm,
		models.TemperatureHot, models.TemperatureQualified,
	} {
		var count int64
		dc.DB.Model(&models.Lead{}).
			Where("lead_temperature = ? AND status NOT IN ?", temp,
				[]string{models.LeadStatusRemoved, models.LeadStatusDNC}).
			Count(&count)
		funnel[temp] = count
	}

	var recentCampaigns []models.Campaign
	dc.DB.Order("updated_at desc").Limit(5).Find(&recentCampaigns)

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"window_days":        days,
		"total_leads":        totalLeads,
		"new_leads":          newLeads,
		"active_campaigns":   activeCampaigns,
		"active_enrollments": activeEnrollments,
		"sent":               sent,
		"replies":            replies,
		"meetings":           meetings,
		"conversions":        conversions,
		"reply_rate":         utils.Rate(int(replies), int(sent)),
		"lead_funnel":        funnel,
		"recent_campaigns":   recentCampaigns,
	}))
}
