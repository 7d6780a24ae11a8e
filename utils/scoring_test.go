package utils

import (
	"testing"

	"accelerator/models"

	"github.com/stretchr/testify/assert"
)

func TestScoreDelta(t *testing.T) {
	assert.Equal(t, 25, ScoreDelta(models.OutcomeReplied))
	assert.Equal(t, 40, ScoreDelta(models.OutcomeBookedMeeting))
	assert.Equal(t, -50, ScoreDelta(models.OutcomeDNCRequest))
	assert.Equal(t, 0, ScoreDelta("something_else"))
}

func TestTemperatureForScore(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{0, models.TemperatureCold},
		{9, models.TemperatureCold},
		{10, models.TemperatureCool},
		{24, models.TemperatureCool},
		{25, models.TemperatureWarm},
		{50, models.TemperatureHot},
		{79, models.TemperatureHot},
		{80, models.TemperatureQualified},
		{100, models.TemperatureQualified},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TemperatureForScore(tc.score), "score %d", tc.score)
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-5))
	assert.Equal(t, 42, ClampScore(42))
	assert.Equal(t, 100, ClampScore(130))
}

func TestRate(t *testing.T) {
	assert.Equal(t, 0.0, Rate(3, 0))
	assert.Equal(t, 0.5, Rate(1, 2))
}
