package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCampaignTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{CampaignStatusDraft, CampaignStatusActive, true},
		{CampaignStatusDraft, CampaignStatusPaused, false},
		{CampaignStatusDraft, CampaignStatusCompleted, false},
		{CampaignStatusActive, CampaignStatusPaused, true},
		{CampaignStatusActive, CampaignStatusCompleted, true},
		{CampaignStatusActive, CampaignStatusDraft, false},
		{CampaignStatusPaused, CampaignStatusActive, true},
		{CampaignStatusPaused, CampaignStatusCompleted, true},
		{CampaignStatusCompleted, CampaignStatusActive, false},
		{CampaignStatusCompleted, CampaignStatusPaused, false},
	}
	for _, tc := range cases {
		c := &Campaign{Status: tc.from}
		assert.Equal(t, tc.allowed, c.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestBudgetExhausted(t *testing.T) {
	assert.False(t, (&Campaign{BudgetTotal: 0, BudgetSpent: 999}).BudgetExhausted(), "zero budget is unlimited")
	assert.False(t, (&Campaign{BudgetTotal: 100, BudgetSpent: 99.5}).BudgetExhausted())
	assert.True(t, (&Campaign{BudgetTotal: 100, BudgetSpent: 100}).BudgetExhausted())
}

func TestTargetingMatches(t *testing.T) {
	lead := &Lead{
		Industry:    "Logistics",
		Title:       "VP of Engineering",
		CompanySize: "201-1000",
		Source:      LeadSourceForm,
		LeadScore:   30,
	}

	t.Run("empty criteria matches everything", func(t *testing.T) {
		assert.True(t, TargetingCriteria{}.Matches(lead))
	})

	t.Run("industry is case-insensitive", func(t *testing.T) {
		tc := TargetingCriteria{Industries: []string{"logistics"}}
		assert.True(t, tc.Matches(lead))
	})

	t.Run("title matches on substring", func(t *testing.T) {
		tc := TargetingCriteria{Titles: []string{"VP"}}
		assert.True(t, tc.Matches(lead))
		tc = TargetingCriteria{Titles: []string{"CTO"}}
		assert.False(t, tc.Matches(lead))
	})

	t.Run("every configured dimension must match", func(t *testing.T) {
		tc := TargetingCriteria{
			Industries: []string{"Logistics"},
			Sources:    []string{LeadSourceImport},
		}
		assert.False(t, tc.Matches(lead))
	})

	t.Run("min score excludes low scores", func(t *testing.T) {
		tc := TargetingCriteria{MinLeadScore: 50}
		assert.False(t, tc.Matches(lead))
		tc.MinLeadScore = 30
		assert.True(t, tc.Matches(lead))
	})
}

func TestTargetingIsEmpty(t *testing.T) {
	assert.True(t, TargetingCriteria{}.IsEmpty())
	assert.False(t, TargetingCriteria{MinLeadScore: 1}.IsEmpty())
	assert.False(t, TargetingCriteria{Industries: []string{"SaaS"}}.IsEmpty())
}
