package utils

import (
	"testing"
	"time"

	"accelerator/models"

	"github.com/stretchr/testify/assert"
)

func TestWithinCallWindow(t *testing.T) {
	window := models.CallWindow{StartHour: 9, EndHour: 17, Timezone: "UTC"}

	// 2026-08-26 is a Wednesday
	wed10am := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	wed8am := time.Date(2026, 8, 26, 8, 59, 0, 0, time.UTC)
	wed5pm := time.Date(2026, 8, 26, 17, 0, 0, 0, time.UTC)
	sat10am := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	assert.True(t, WithinCallWindow(wed10am, window))
	assert.False(t, WithinCallWindow(wed8am, window), "before opening hour")
	assert.False(t, WithinCallWindow(wed5pm, window), "end hour is exclusive")
	assert.False(t, WithinCallWindow(sat10am, window), "weekends excluded by default")

	weekendToo := models.CallWindow{StartHour: 9, EndHour: 17, Timezone: "UTC", Days: []int{
		int(time.Saturday), int(time.Sunday),
	}}
	assert.True(t, WithinCallWindow(sat10am, weekendToo))
	assert.False(t, WithinCallWindow(wed10am, weekendToo))
}

func TestWithinCallWindowZeroWindowAllowsAll(t *testing.T) {
	midnight := time.Date(2026, 8, 30, 0, 30, 0, 0, time.UTC) // a Sunday
	assert.True(t, WithinCallWindow(midnight, models.CallWindow{}))
}

func TestNextWindowOpen(t *testing.T) {
	window := models.CallWindow{StartHour: 9, EndHour: 17, Timezone: "UTC"}

	t.Run("already open returns now", func(t *testing.T) {
		now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
		assert.Equal(t, now, NextWindowOpen(now, window))
	})

	t.Run("same day before opening", func(t *testing.T) {
		now := time.Date(2026, 8, 26, 7, 0, 0, 0, time.UTC)
		next := NextWindowOpen(now, window)
		assert.Equal(t, time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("evening rolls to next weekday", func(t *testing.T) {
		fridayEvening := time.Date(2026, 8, 28, 19, 0, 0, 0, time.UTC)
		next := NextWindowOpen(fridayEvening, window)
		// Monday 2026-08-31 09:00
		assert.Equal(t, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), next)
	})
}
