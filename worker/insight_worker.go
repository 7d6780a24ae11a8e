package worker

import (
	"sort"
	"strings"
	"time"

	"accelerator/config"
	"accelerator/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InsightEngine recomputes the ideal-customer-profile recommendations
// from historical outreach results. It runs nightly on a cron schedule
// and on demand from the admin console.
type InsightEngine struct {
	DB     *gorm.DB
	Logger *logrus.Entry

	cron *cron.Cron
	now  func() time.Time
}

func NewInsightEngine(db *gorm.DB, logger *logrus.Logger) *InsightEngine {
	return &InsightEngine{
		DB:     db,
		Logger: logger.WithField("component", "insights"),
		now:    time.Now,
	}
}

// StartCron schedules the nightly recompute.
func (ie *InsightEngine) StartCron() error {
	ie.cron = cron.New()
	_, err := ie.cron.AddFunc(config.AppConfig.InsightCronSpec, func() {
		if err := ie.Recompute(); err != nil {
			ie.Logger.WithError(err).Error("scheduled insight recompute failed")
		}
	})
	if err != nil {
		return err
	}
	ie.cron.Start()
	ie.Logger.WithField("spec", config.AppConfig.InsightCronSpec).Info("insight cron started")
	return nil
}

// StopCron halts the schedule and waits for a running job to finish.
func (ie *InsightEngine) StopCron() {
	if ie.cron != nil {
		<-ie.cron.Stop().Done()
	}
}

// leadResult is one lead's aggregate result within one campaign type.
type leadResult struct {
	CampaignType string
	Industry     string
	Title        string
	CompanySize  string
	Source       string

	Opened    bool
	Replied   bool
	Booked    bool
	Converted bool
}

// Recompute rebuilds the recommendation table from all contacted leads.
// The previous recommendation set is replaced in one transaction so
// readers never see a half-built table.
func (ie *InsightEngine) Recompute() error {
	start := ie.now()

	results, err := ie.collectLeadResults()
	if err != nil {
		return err
	}

	recommendations := computeRecommendations(results, start)

	err = ie.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.InsightRecommendation{}).Error; err != nil {
			return err
		}
		if len(recommendations) == 0 {
			return nil
		}
		return tx.Create(&recommendations).Error
	})
	if err != nil {
		return err
	}

	ie.Logger.WithFields(logrus.Fields{
		"leads_sampled":   len(results),
		"recommendations": len(recommendations),
		"took":            time.Since(start).String(),
	}).Info("insight recompute finished")
	return nil
}

// collectLeadResults builds one row per (campaign type, lead) for every
// lead that received at least one successful send.
func (ie *InsightEngine) collectLeadResults() ([]leadResult, error) {
	var campaigns []models.Campaign
	if err := ie.DB.Find(&campaigns).Error; err != nil {
		return nil, err
	}
	campaignType := make(map[uint]string, len(campaigns))
	for _, c := range campaigns {
		campaignType[c.ID] = c.Type
	}

	var actions []models.OutreachAction
	if err := ie.DB.Where("status = ?", models.ActionStatusSent).
		Select("campaign_id", "lead_id").Find(&actions).Error; err != nil {
		return nil, err
	}

	type pairKey struct {
		CampaignID uint
		LeadID     uint
	}
	contacted := map[pairKey]bool{}
	leadIDs := map[uint]bool{}
	for _, a := range actions {
		contacted[pairKey{a.CampaignID, a.LeadID}] = true
		leadIDs[a.LeadID] = true
	}
	if len(contacted) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(leadIDs))
	for id := range leadIDs {
		ids = append(ids, id)
	}
	var leads []models.Lead
	if err := ie.DB.Where("id IN ?", ids).Find(&leads).Error; err != nil {
		return nil, err
	}
	leadByID := make(map[uint]*models.Lead, len(leads))
	for i := range leads {
		leadByID[leads[i].ID] = &leads[i]
	}

	var outcomes []models.OutreachOutcome
	if err := ie.DB.Select("campaign_id", "lead_id", "outcome_type").Find(&outcomes).Error; err != nil {
		return nil, err
	}
	outcomesByPair := map[pairKey][]string{}
	for _, o := range outcomes {
		k := pairKey{o.CampaignID, o.LeadID}
		outcomesByPair[k] = append(outcomesByPair[k], o.OutcomeType)
	}

	results := make([]leadResult, 0, len(contacted))
	for k := range contacted {
		lead := leadByID[k.LeadID]
		if lead == nil {
			continue
		}
		r := leadResult{
			CampaignType: campaignType[k.CampaignID],
			Industry:     lead.Industry,
			Title:        lead.Title,
			CompanySize:  lead.CompanySize,
			Source:       lead.Source,
		}
		for _, outcomeType := range outcomesByPair[k] {
			switch outcomeType {
			case models.OutcomeOpened:
				r.Opened = true
			case models.OutcomeReplied:
				r.Replied = true
			case models.OutcomeBookedMeeting:
				r.Booked = true
			case models.OutcomeConverted:
				r.Converted = true
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// groupStats accumulates results for one dimension value.
type groupStats struct {
	Contacted int
	Opened    int
	Replied   int
	Booked    int
	Converted int
}

const (
	topRecommendations = 5
	confidenceCeiling  = 0.95
	confidenceScale    = 100.0
)

// computeRecommendations groups lead results by dimension value and ranks
// the top groups per metric. Groups with zero contacted leads are
// excluded; confidence grows with sample size and caps below certainty.
func computeRecommendations(results []leadResult, computedAt time.Time) []models.InsightRecommendation {
	campaignTypes := map[string]bool{"": true}
	for _, r := range results {
		campaignTypes[r.CampaignType] = true
	}

	var out []models.InsightRecommendation
	for campaignType := range campaignTypes {
		out = append(out, computeForType(results, campaignType, computedAt)...)
	}
	return out
}

func computeForType(results []leadResult, campaignType string, computedAt time.Time) []models.InsightRecommendation {
	type groupKey struct {
		Dimension string
		Value     string
	}
	groups := map[groupKey]*groupStats{}

	accumulate := func(dimension, value string, r *leadResult) {
		if value == "" {
			return
		}
		k := groupKey{dimension, value}
		g := groups[k]
		if g == nil {
			g = &groupStats{}
			groups[k] = g
		}
		g.Contacted++
		if r.Opened {
			g.Opened++
		}
		if r.Replied {
			g.Replied++
		}
		if r.Booked {
			g.Booked++
		}
		if r.Converted {
			g.Converted++
		}
	}

	for i := range results {
		r := &results[i]
		if campaignType != "" && r.CampaignType != campaignType {
			continue
		}
		titleCategory := TitleCategory(r.Title)
		accumulate(models.DimensionIndustry, r.Industry, r)
		accumulate(models.DimensionTitleCategory, titleCategory, r)
		accumulate(models.DimensionCompanySize, r.CompanySize, r)
		accumulate(models.DimensionSource, r.Source, r)
		if r.Industry != "" && titleCategory != "" {
			accumulate(models.DimensionIndustryTitle, r.Industry+" / "+titleCategory, r)
		}
	}

	metricValue := func(g *groupStats, metric string) float64 {
		switch metric {
		case models.MetricResponseRate:
			return float64(g.Replied) / float64(g.Contacted)
		case models.MetricBookingRate:
			return float64(g.Booked) / float64(g.Contacted)
		case models.MetricOpenRate:
			return float64(g.Opened) / float64(g.Contacted)
		case models.MetricConversionRate:
			return float64(g.Converted) / float64(g.Contacted)
		}
		return 0
	}

	dimensions := []string{
		models.DimensionIndustry, models.DimensionTitleCategory,
		models.DimensionCompanySize, models.DimensionSource,
		models.DimensionIndustryTitle,
	}
	metrics := []string{
		models.MetricResponseRate, models.MetricBookingRate,
		models.MetricOpenRate, models.MetricConversionRate,
	}

	var out []models.InsightRecommendation
	for _, dimension := range dimensions {
		for _, metric := range metrics {
			var candidates []models.InsightRecommendation
			for k, g := range groups {
				if k.Dimension != dimension || g.Contacted == 0 {
					continue
				}
				candidates = append(candidates, models.InsightRecommendation{
					CampaignType:   campaignType,
					DimensionType:  dimension,
					DimensionValue: k.Value,
					MetricName:     metric,
					MetricValue:    metricValue(g, metric),
					SampleSize:     g.Contacted,
					Confidence:     confidenceFor(g.Contacted),
					ComputedAt:     computedAt,
				})
			}
			sort.Slice(candidates, func(i, j int) bool {
				if candidates[i].MetricValue != candidates[j].MetricValue {
					return candidates[i].MetricValue > candidates[j].MetricValue
				}
				// larger samples win ties
				return candidates[i].SampleSize > candidates[j].SampleSize
			})
			if len(candidates) > topRecommendations {
				candidates = candidates[:topRecommendations]
			}
			for i := range candidates {
				candidates[i].Rank = i + 1
			}
			out = append(out, candidates...)
		}
	}
	return out
}

// confidenceFor grows linearly with sample size and never reaches
// certainty.
func confidenceFor(sampleSize int) float64 {
	c := float64(sampleSize) / confidenceScale
	if c > confidenceCeiling {
		return confidenceCeiling
	}
	return c
}

// titleKeywords maps common title substrings onto seniority/function
// buckets so sparse raw titles aggregate into usable groups.
var titleKeywords = []struct {
	Category string
	Keywords []string
}{
	{"Executive", []string{"ceo", "cto", "cio", "cfo", "coo", "chief", "founder", "president", "owner"}},
	{"VP", []string{"vp", "vice president"}},
	{"Director", []string{"director", "head of"}},
	{"Manager", []string{"manager", "lead"}},
	{"Engineer", []string{"engineer", "developer", "architect", "scientist", "analyst"}},
}

// TitleCategory buckets a raw job title; unmatched titles fall into Other.
func TitleCategory(title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	lower := strings.ToLower(title)
	for _, tk := range titleKeywords {
		for _, kw := range tk.Keywords {
			if strings.Contains(lower, kw) {
				return tk.Category
			}
		}
	}
	return "Other"
}
