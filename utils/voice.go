package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"accelerator/config"
	"accelerator/models"
)

// VoiceDispatcher hands call requests to the external voice-calling provider.
// It implements ChannelSender; the provider handles dialing, the AI agent
// conversation, and posting outcomes back to our webhook.
type VoiceDispatcher struct {
	cfg    config.VoiceConfig
	client *http.Client
}

func NewVoiceDispatcher(cfg config.VoiceConfig) *VoiceDispatcher {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VoiceDispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (v *VoiceDispatcher) Send(msg OutreachMessage) (string, error) {
	if v.cfg.APIURL == "" {
		return "", fmt.Errorf("voice provider not configured")
	}
	if msg.Phone == "" {
		return "", fmt.Errorf("voice message missing phone number")
	}

	payload, err := json.Marshal(map[string]string{
		"to":           msg.Phone,
		"caller_id":    v.cfg.CallerID,
		"instructions": msg.Body,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, v.cfg.APIURL+"/calls", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.cfg.APIKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice dispatch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("voice provider returned status %d", resp.StatusCode)
	}

	var out struct {
		CallID string `json:"call_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("voice provider response invalid: %w", err)
	}
	return out.CallID, nil
}

// WithinCallWindow reports whether a voice step may be executed at the given
// instant under the campaign's call window. A zero window (start==end==0)
// allows calls at any time.
func WithinCallWindow(now time.Time, w models.CallWindow) bool {
	if w.StartHour == 0 && w.EndHour == 0 {
		return true
	}

	local := now
	if w.Timezone != "" {
		if loc, err := time.LoadLocation(w.Timezone); err == nil {
			local = now.In(loc)
		}
	}

	if !windowDayAllowed(local.Weekday(), w.Days) {
		return false
	}
	hour := local.Hour()
	return hour >= w.StartHour && hour < w.EndHour
}

// NextWindowOpen returns the next instant at or after now when the window
// opens. Used to defer voice steps instead of dropping them.
func NextWindowOpen(now time.Time, w models.CallWindow) time.Time {
	if WithinCallWindow(now, w) {
		return now
	}

	local := now
	loc := now.Location()
	if w.Timezone != "" {
		if l, err := time.LoadLocation(w.Timezone); err == nil {
			loc = l
			local = now.In(l)
		}
	}

	candidate := time.Date(local.Year(), local.Month(), local.Day(), w.StartHour, 0, 0, 0, loc)
	for i := 0; i < 8; i++ {
		if candidate.After(now) && WithinCallWindow(candidate, w) {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	// Misconfigured window; retry in an hour rather than never.
	return now.Add(time.Hour)
}

func windowDayAllowed(day time.Weekday, days []int) bool {
	if len(days) == 0 {
		// Default to weekdays.
		return day != time.Saturday && day != time.Sunday
	}
	for _, d := range days {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}
