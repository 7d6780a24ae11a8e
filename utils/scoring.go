package utils

import "accelerator/models"

// Score deltas applied when an outcome is recorded against a lead.
var outcomeScoreDeltas = map[string]int{
	models.OutcomeOpened:        5,
	models.OutcomeClicked:       10,
	models.OutcomeReplied:       25,
	models.OutcomeBookedMeeting: 40,
	models.OutcomeConverted:     50,
	models.OutcomeBounced:       -10,
	models.OutcomeUnsubscribed:  -20,
	models.OutcomeDNCRequest:    -50,
}

// ScoreDelta returns the lead-score adjustment for an outcome type.
func ScoreDelta(outcomeType string) int {
	return outcomeScoreDeltas[outcomeType]
}

// TemperatureForScore maps a lead score onto the engagement tier shown in
// the admin console.
func TemperatureForScore(score int) string {
	switch {
	case score >= 80:
		return models.TemperatureQualified
	case score >= 50:
		return models.TemperatureHot
	case score >= 25:
		return models.TemperatureWarm
	case score >= 10:
		return models.TemperatureCool
	default:
		return models.TemperatureCold
	}
}

// ClampScore keeps lead scores in a displayable range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
