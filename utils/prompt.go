package utils

import (
	"strings"

	"accelerator/models"
)

// PromptVariables lists every placeholder a template may reference. Anything
// outside this set is left literal in the rendered output.
var PromptVariables = []string{
	"first_name",
	"last_name",
	"full_name",
	"company",
	"title",
	"industry",
	"agent_name",
	"campaign_name",
}

// PromptVars builds the substitution set for one lead in one campaign.
func PromptVars(lead *models.Lead, campaign *models.Campaign, agentName string) map[string]string {
	return map[string]string{
		"first_name":    lead.FirstName,
		"last_name":     lead.LastName,
		"full_name":     lead.FullName(),
		"company":       lead.Company,
		"title":         lead.Title,
		"industry":      lead.Industry,
		"agent_name":    agentName,
		"campaign_name": campaign.Name,
	}
}

// RenderTemplate substitutes {placeholder} markers from vars. Unknown
// placeholders are left literal so a typo is visible in the sent copy
// rather than silently dropped.
func RenderTemplate(template string, vars map[string]string) string {
	if template == "" {
		return template
	}
	pairs := make([]string, 0, len(vars)*2)
	for _, name := range PromptVariables {
		value, ok := vars[name]
		if !ok {
			continue
		}
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
