package controller

import (
	"sort"

	"accelerator/models"
	"accelerator/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AnalyticsController aggregates campaign performance for the console's
// analytics tab.
type AnalyticsController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewAnalyticsController(db *gorm.DB, logger *logrus.Logger) *AnalyticsController {
	return &AnalyticsController{
		DB:     db,
		Logger: logger.WithField("component", "analytics"),
	}
}

// CampaignAnalytics is the full analytics payload for one campaign.
type CampaignAnalytics struct {
	Overview           OverviewStats  `json:"overview"`
	ChannelPerformance []ChannelStats `json:"channel_performance"`
	Funnel             FunnelStats    `json:"funnel"`
	DailySeries        []DailyPoint   `json:"daily_series"`
	StepPerformance    []StepStats    `json:"step_performance"`
	LeadOutcomes       map[string]int `json:"lead_outcomes"`
	Cost               CostStats      `json:"cost"`
}

type OverviewStats struct {
	Sent           int     `json:"sent"`
	Failed         int     `json:"failed"`
	OpenRate       float64 `json:"open_rate"`
	ClickRate      float64 `json:"click_rate"`
	ReplyRate      float64 `json:"reply_rate"`
	BounceRate     float64 `json:"bounce_rate"`
	BookingRate    float64 `json:"booking_rate"`
	ConversionRate float64 `json:"conversion_rate"`
}

type ChannelStats struct {
	Channel string  `json:"channel"`
	Sent    int     `json:"sent"`
	Replies int     `json:"replies"`
	Rate    float64 `json:"reply_rate"`
}

type FunnelStats struct {
	Enrolled  int `json:"enrolled"`
	Contacted int `json:"contacted"`
	Opened    int `json:"opened"`
	Replied   int `json:"replied"`
	Booked    int `json:"booked"`
	Converted int `json:"converted"`
}

type DailyPoint struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Sent     int    `json:"sent"`
	Outcomes int    `json:"outcomes"`
}

type StepStats struct {
	StepIndex int     `json:"step_index"`
	Sent      int     `json:"sent"`
	Replies   int     `json:"replies"`
	Rate      float64 `json:"reply_rate"`
}

type CostStats struct {
	Spent          float64 `json:"spent"`
	Budget         float64 `json:"budget"`
	CostPerLead    float64 `json:"cost_per_lead"`
	CostPerMeeting float64 `json:"cost_per_meeting"`
}

// GetCampaignAnalytics returns aggregated performance for one campaign.
func (ac *AnalyticsController) GetCampaignAnalytics(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := ac.DB.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}

	var enrollments []models.Enrollment
	if err := ac.DB.Where("campaign_id = ?", campaign.ID).Find(&enrollments).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch enrollments", nil)
	}
	var actions []models.OutreachAction
	if err := ac.DB.Where("campaign_id = ?", campaign.ID).Order("sent_at asc").Find(&actions).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch actions", nil)
	}
	var outcomes []models.OutreachOutcome
	if err := ac.DB.Where("campaign_id = ?", campaign.ID).Order("occurred_at asc").Find(&outcomes).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch outcomes", nil)
	}

	analytics := computeCampaignAnalytics(&campaign, enrollments, actions, outcomes)
	return c.JSON(utils.SuccessResponse(analytics))
}

// computeCampaignAnalytics derives every analytics view from the raw
// enrollment, action, and outcome rows. Rates use sent actions as the
// denominator and are 0 when nothing was sent.
func computeCampaignAnalytics(campaign *models.Campaign, enrollments []models.Enrollment, actions []models.OutreachAction, outcomes []models.OutreachOutcome) CampaignAnalytics {
	sent := 0
	failed := 0
	sentByChannel := map[string]int{}
	sentByStep := map[int]int{}
	sentByDay := map[string]int{}
	contactedLeads := map[uint]bool{}
	actionChannel := map[uint]string{} // action id -> channel
	actionStep := map[uint]int{}

	for i := range actions {
		a := &actions[i]
		if a.Status == models.ActionStatusFailed {
			failed++
			continue
		}
		sent++
		sentByChannel[a.Channel]++
		sentByStep[a.StepIndex]++
		sentByDay[a.SentAt.Format("2006-01-02")]++
		contactedLeads[a.LeadID] = true
		actionChannel[a.ID] = a.Channel
		actionStep[a.ID] = a.StepIndex
	}

	outcomeCounts := map[string]int{}
	openedLeads := map[uint]bool{}
	repliedLeads := map[uint]bool{}
	bookedLeads := map[uint]bool{}
	convertedLeads := map[uint]bool{}
	repliesByChannel := map[string]int{}
	repliesByStep := map[int]int{}
	outcomesByDay := map[string]int{}

	for i := range outcomes {
		o := &outcomes[i]
		outcomeCounts[o.OutcomeType]++
		outcomesByDay[o.OccurredAt.Format("2006-01-02")]++

		switch o.OutcomeType {
		case models.OutcomeOpened:
			openedLeads[o.LeadID] = true
		case models.OutcomeReplied:
			repliedLeads[o.LeadID] = true
			if o.ActionID != nil {
				repliesByChannel[actionChannel[*o.ActionID]]++
				repliesByStep[actionStep[*o.ActionID]]++
			}
		case models.OutcomeBookedMeeting:
			bookedLeads[o.LeadID] = true
		case models.OutcomeConverted:
			convertedLeads[o.LeadID] = true
		}
	}

	overview := OverviewStats{
		Sent:           sent,
		Failed:         failed,
		OpenRate:       utils.Rate(outcomeCounts[models.OutcomeOpened], sent),
		ClickRate:      utils.Rate(outcomeCounts[models.OutcomeClicked], sent),
		ReplyRate:      utils.Rate(outcomeCounts[models.OutcomeReplied], sent),
		BounceRate:     utils.Rate(outcomeCounts[models.OutcomeBounced], sent),
		BookingRate:    utils.Rate(outcomeCounts[models.OutcomeBookedMeeting], sent),
		ConversionRate: utils.Rate(outcomeCounts[models.OutcomeConverted], sent),
	}

	var channels []ChannelStats
	for _, ch := range []string{models.ChannelEmail, models.ChannelVoice} {
		if sentByChannel[ch] == 0 && repliesByChannel[ch] == 0 {
			continue
		}
		channels = append(channels, ChannelStats{
			Channel: ch,
			Sent:    sentByChannel[ch],
			Replies: repliesByChannel[ch],
			Rate:    utils.Rate(repliesByChannel[ch], sentByChannel[ch]),
		})
	}

	funnel := FunnelStats{
		Enrolled:  len(enrollments),
		Contacted: len(contactedLeads),
		Opened:    len(openedLeads),
		Replied:   len(repliedLeads),
		Booked:    len(bookedLeads),
		Converted: len(convertedLeads),
	}

	var daily []DailyPoint
	for _, day := range sortedDays(sentByDay, outcomesByDay) {
		daily = append(daily, DailyPoint{
			Date:     day,
			Sent:     sentByDay[day],
			Outcomes: outcomesByDay[day],
		})
	}

	var steps []StepStats
	for _, idx := range sortedStepIndexes(sentByStep) {
		steps = append(steps, StepStats{
			StepIndex: idx,
			Sent:      sentByStep[idx],
			Replies:   repliesByStep[idx],
			Rate:      utils.Rate(repliesByStep[idx], sentByStep[idx]),
		})
	}

	leadOutcomes := map[string]int{}
	for i := range enrollments {
		if enrollments[i].Outcome != "" {
			leadOutcomes[enrollments[i].Outcome]++
		}
	}

	cost := CostStats{
		Spent:          campaign.BudgetSpent,
		Budget:         campaign.BudgetTotal,
		CostPerLead:    safeDiv(campaign.BudgetSpent, len(contactedLeads)),
		CostPerMeeting: safeDiv(campaign.BudgetSpent, len(bookedLeads)),
	}

	return CampaignAnalytics{
		Overview:           overview,
		ChannelPerformance: channels,
		Funnel:             funnel,
		DailySeries:        daily,
		StepPerformance:    steps,
		LeadOutcomes:       leadOutcomes,
		Cost:               cost,
	}
}

func safeDiv(amount float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return amount / float64(n)
}

func sortedDays(maps ...map[string]int) []string {
	seen := map[string]bool{}
	var days []string
	for _, m := range maps {
		for day := range m {
			if !seen[day] {
				seen[day] = true
				days = append(days, day)
			}
		}
	}
	// lexical order is chronological for YYYY-MM-DD
	sort.Strings(days)
	return days
}

func sortedStepIndexes(m map[int]int) []int {
	var idxs []int
	for idx := range m {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	return idxs
}
