package worker

import (
	"testing"
	"time"

	"accelerator/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleCategory(t *testing.T) {
	cases := map[string]string{
		"CEO":                    "Executive",
		"Co-Founder & CTO":       "Executive",
		"VP of Engineering":      "VP",
		"Vice President, Sales":  "VP",
		"Director of Platform":   "Director",
		"Head of Data":           "Director",
		"Engineering Manager":    "Manager",
		"Senior Data Engineer":   "Engineer",
		"Procurement Specialist": "Other",
		"":                       "",
	}
	for title, want := range cases {
		assert.Equal(t, want, TitleCategory(title), "title %q", title)
	}
}

func TestConfidenceFor(t *testing.T) {
	assert.InDelta(t, 0.05, confidenceFor(5), 1e-9)
	assert.InDelta(t, 0.30, confidenceFor(30), 1e-9)
	assert.Less(t, confidenceFor(10), confidenceFor(50), "confidence grows with sample size")
	assert.InDelta(t, 0.95, confidenceFor(100), 1e-9, "capped below certainty")
	assert.InDelta(t, 0.95, confidenceFor(10000), 1e-9)
}

func makeResults(industry string, n, replied int) []leadResult {
	results := make([]leadResult, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, leadResult{
			CampaignType: models.CampaignTypeColdOutbound,
			Industry:     industry,
			Replied:      i < replied,
		})
	}
	return results
}

func industryRecs(recs []models.InsightRecommendation, metric string) []models.InsightRecommendation {
	var out []models.InsightRecommendation
	for _, r := range recs {
		if r.CampaignType == "" && r.DimensionType == models.DimensionIndustry && r.MetricName == metric {
			out = append(out, r)
		}
	}
	return out
}

func TestComputeRecommendationsRanking(t *testing.T) {
	now := time.Now()
	var results []leadResult
	results = append(results, makeResults("Logistics", 40, 20)...) // 50% response
	results = append(results, makeResults("Retail", 40, 4)...)     // 10%
	results = append(results, makeResults("SaaS", 40, 12)...)      // 30%

	recs := computeRecommendations(results, now)
	responseRecs := industryRecs(recs, models.MetricResponseRate)
	require.Len(t, responseRecs, 3)

	assert.Equal(t, "Logistics", responseRecs[0].DimensionValue)
	assert.Equal(t, 1, responseRecs[0].Rank)
	assert.InDelta(t, 0.5, responseRecs[0].MetricValue, 1e-9)
	assert.Equal(t, 40, responseRecs[0].SampleSize)

	assert.Equal(t, "SaaS", responseRecs[1].DimensionValue)
	assert.Equal(t, 2, responseRecs[1].Rank)
	assert.Equal(t, "Retail", responseRecs[2].DimensionValue)
	assert.Equal(t, 3, responseRecs[2].Rank)
}

func TestComputeRecommendationsTopFivePerMetric(t *testing.T) {
	now := time.Now()
	var results []leadResult
	industries := []string{"A", "B", "C", "D", "E", "F", "G"}
	for i, industry := range industries {
		results = append(results, makeResults(industry, 10, i)...)
	}

	recs := computeRecommendations(results, now)
	responseRecs := industryRecs(recs, models.MetricResponseRate)
	assert.Len(t, responseRecs, 5)
	for i, r := range responseRecs {
		assert.Equal(t, i+1, r.Rank)
	}
	// the two worst performers fall off
	for _, r := range responseRecs {
		assert.NotEqual(t, "A", r.DimensionValue)
		assert.NotEqual(t, "B", r.DimensionValue)
	}
}

func TestComputeRecommendationsExcludesEmptyValues(t *testing.T) {
	now := time.Now()
	results := []leadResult{
		{CampaignType: models.CampaignTypeColdOutbound, Industry: "", Replied: true},
		{CampaignType: models.CampaignTypeColdOutbound, Industry: "SaaS", Replied: true},
	}

	recs := computeRecommendations(results, now)
	for _, r := range industryRecs(recs, models.MetricResponseRate) {
		assert.NotEmpty(t, r.DimensionValue, "blank dimension values never become groups")
	}
}

func TestComputeRecommendationsPerCampaignType(t *testing.T) {
	now := time.Now()
	results := []leadResult{
		{CampaignType: models.CampaignTypeColdOutbound, Industry: "SaaS", Replied: true},
		{CampaignType: models.CampaignTypeWarmNurture, Industry: "Retail", Replied: true},
	}

	recs := computeRecommendations(results, now)

	types := map[string]bool{}
	for _, r := range recs {
		types[r.CampaignType] = true
	}
	assert.True(t, types[""], "cross-type set is always computed")
	assert.True(t, types[models.CampaignTypeColdOutbound])
	assert.True(t, types[models.CampaignTypeWarmNurture])

	// the warm_nurture slice only sees its own leads
	for _, r := range recs {
		if r.CampaignType == models.CampaignTypeWarmNurture && r.DimensionType == models.DimensionIndustry {
			assert.Equal(t, "Retail", r.DimensionValue)
		}
	}
}

func TestRecomputePersistsAndReplaces(t *testing.T) {
	db := setupTestDB(t)
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	engine := NewInsightEngine(db, log)

	// stale row from a previous run
	require.NoError(t, db.Create(&models.InsightRecommendation{
		DimensionType:  models.DimensionIndustry,
		DimensionValue: "Stale",
		MetricName:     models.MetricResponseRate,
	}).Error)

	campaign := seedCampaign(t, db, []int{0})
	lead, enrollment := seedEnrollment(t, db, campaign, "icp@acme.test", time.Now())
	require.NoError(t, db.Model(lead).Updates(map[string]interface{}{
		"industry": "Logistics", "title": "VP of Ops", "company_size": "201-1000",
	}).Error)

	require.NoError(t, db.Create(&models.OutreachAction{
		EnrollmentID: enrollment.ID,
		CampaignID:   campaign.ID,
		LeadID:       lead.ID,
		Channel:      models.ChannelEmail,
		Status:       models.ActionStatusSent,
		SentAt:       time.Now(),
	}).Error)
	require.NoError(t, db.Create(&models.OutreachOutcome{
		EnrollmentID: enrollment.ID,
		CampaignID:   campaign.ID,
		LeadID:       lead.ID,
		OutcomeType:  models.OutcomeReplied,
		OccurredAt:   time.Now(),
	}).Error)

	require.NoError(t, engine.Recompute())

	var stale int64
	db.Model(&models.InsightRecommendation{}).Where("dimension_value = ?", "Stale").Count(&stale)
	assert.EqualValues(t, 0, stale, "old recommendations are replaced")

	var recs []models.InsightRecommendation
	require.NoError(t, db.Where(
		"campaign_type = ? AND dimension_type = ? AND metric_name = ?",
		"", models.DimensionIndustry, models.MetricResponseRate,
	).Find(&recs).Error)
	require.Len(t, recs, 1)
	assert.Equal(t, "Logistics", recs[0].DimensionValue)
	assert.InDelta(t, 1.0, recs[0].MetricValue, 1e-9)
	assert.Equal(t, 1, recs[0].SampleSize)
}
