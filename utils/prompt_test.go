package utils

import (
	"testing"

	"accelerator/models"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	lead := &models.Lead{
		FirstName: "Dana",
		LastName:  "Reyes",
		Company:   "Acme Corp",
		Title:     "VP of Data",
		Industry:  "Logistics",
	}
	campaign := &models.Campaign{Name: "Q3 Outbound"}
	vars := PromptVars(lead, campaign, "Alex")

	t.Run("substitutes known placeholders", func(t *testing.T) {
		out := RenderTemplate("Hi {first_name}, greetings from {agent_name} about {campaign_name}.", vars)
		assert.Equal(t, "Hi Dana, greetings from Alex about Q3 Outbound.", out)
	})

	t.Run("full name joins first and last", func(t *testing.T) {
		out := RenderTemplate("{full_name} at {company}", vars)
		assert.Equal(t, "Dana Reyes at Acme Corp", out)
	})

	t.Run("unknown placeholders stay literal", func(t *testing.T) {
		out := RenderTemplate("Hi {first_name}, about {discount_code}", vars)
		assert.Equal(t, "Hi Dana, about {discount_code}", out)
	})

	t.Run("empty template stays empty", func(t *testing.T) {
		assert.Equal(t, "", RenderTemplate("", vars))
	})

	t.Run("missing lead fields render empty", func(t *testing.T) {
		bare := PromptVars(&models.Lead{}, campaign, "Alex")
		out := RenderTemplate("Hi {first_name}!", bare)
		assert.Equal(t, "Hi !", out)
	})
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Dana", (&models.Lead{FirstName: "Dana"}).FullName())
	assert.Equal(t, "Reyes", (&models.Lead{LastName: "Reyes"}).FullName())
	assert.Equal(t, "Dana Reyes", (&models.Lead{FirstName: "Dana", LastName: "Reyes"}).FullName())
}
