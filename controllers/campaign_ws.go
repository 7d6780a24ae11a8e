package controller

import (
	"time"

	"accelerator/config"
	"accelerator/models"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// campaignProgress is one frame of the live campaign feed.
type campaignProgress struct {
	CampaignID uint    `json:"campaign_id"`
	Status     string  `json:"status"`
	Enrolled   int64   `json:"enrolled"`
	Active     int64   `json:"active"`
	Completed  int64   `json:"completed"`
	Sent       int64   `json:"sent"`
	Replies    int64   `json:"replies"`
	Spent      float64 `json:"spent"`
}

// HandleCampaignProgressWS streams live enrollment and send counts for one
// campaign to the console. The client sends {"campaign_id": N} once, then
// receives a frame every few seconds until it disconnects or the campaign
// completes.
func HandleCampaignProgressWS(logger *logrus.Logger) func(*websocket.Conn) {
	wsLogger := logger.WithField("component", "campaign_ws")

	return func(c *websocket.Conn) {
		defer c.Close()

		var input struct {
			CampaignID uint `json:"campaign_id"`
		}
		if err := c.ReadJSON(&input); err != nil {
			wsLogger.WithError(err).Debug("invalid subscribe message")
			return
		}

		var campaign models.Campaign
		if err := config.DB.First(&campaign, input.CampaignID).Error; err != nil {
			_ = c.WriteJSON(map[string]string{"error": "campaign not found"})
			return
		}

		ticker := time.NewTicker(3 * time.Second)
		defer ticker.Stop()

		for {
			frame, done := campaignProgressFrame(campaign.ID)
			if err := c.WriteJSON(frame); err != nil {
				return
			}
			if done {
				return
			}
			<-ticker.C
		}
	}
}

func campaignProgressFrame(campaignID uint) (campaignProgress, bool) {
	var campaign models.Campaign
	if err := config.DB.First(&campaign, campaignID).Error; err != nil {
		return campaignProgress{CampaignID: campaignID, Status: "unknown"}, true
	}

	frame := campaignProgress{
		CampaignID: campaign.ID,
		Status:     campaign.Status,
		Spent:      campaign.BudgetSpent,
	}
	config.DB.Model(&models.Enrollment{}).
		Where("campaign_id = ?", campaignID).Count(&frame.Enrolled)
	config.DB.Model(&models.Enrollment{}).
		Where("campaign_id = ? AND status = ?", campaignID, models.EnrollmentStatusActive).
		Count(&frame.Active)
	config.DB.Model(&models.Enrollment{}).
		Where("campaign_id = ? AND status = ?", campaignID, models.EnrollmentStatusCompleted).
		Count(&frame.Completed)
	config.DB.Model(&models.OutreachAction{}).
		Where("campaign_id = ? AND status = ?", campaignID, models.ActionStatusSent).
		Count(&frame.Sent)
	config.DB.Model(&models.OutreachOutcome{}).
		Where("campaign_id = ? AND outcome_type = ?", campaignID, models.OutcomeReplied).
		Count(&frame.Replies)

	return frame, campaign.Status == models.CampaignStatusCompleted
}
