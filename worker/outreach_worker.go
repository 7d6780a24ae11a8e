package worker

import (
	"context"
	"sync/atomic"
	"time"

	"accelerator/config"
	"accelerator/models"
	"accelerator/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxStepFailures = 3

// OutreachWorker executes due enrollment steps for active campaigns. One
// cycle runs per tick; overlapping cycles are skipped rather than queued.
type OutreachWorker struct {
	DB         *gorm.DB
	Dispatcher *utils.ChannelDispatcher
	Logger     *logrus.Entry

	cfg     config.OutreachConfig
	running int32

	// injectable clocks for tests
	now   func() time.Time
	sleep func(time.Duration)
}

func NewOutreachWorker(db *gorm.DB, dispatcher *utils.ChannelDispatcher, logger *logrus.Logger) *OutreachWorker {
	return &OutreachWorker{
		DB:         db,
		Dispatcher: dispatcher,
		Logger:     logger.WithField("component", "outreach"),
		cfg:        config.AppConfig.Outreach,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Start runs cycles until the context is cancelled.
func (w *OutreachWorker) Start(ctx context.Context) {
	interval := time.Duration(w.cfg.CycleSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	w.Logger.WithField("interval", interval.String()).Info("outreach worker started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("outreach worker stopped")
			return
		case <-ticker.C:
			if err := w.RunCycle(); err != nil {
				w.Logger.WithError(err).Error("outreach cycle failed")
			}
		}
	}
}

// RunCycle processes every active campaign once. Safe to call concurrently;
// only one cycle runs at a time.
func (w *OutreachWorker) RunCycle() error {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		w.Logger.Warn("previous cycle still running, skipping")
		return nil
	}
	defer atomic.StoreInt32(&w.running, 0)

	var campaigns []models.Campaign
	if err := w.DB.Where("status = ?", models.CampaignStatusActive).Find(&campaigns).Error; err != nil {
		return err
	}

	for i := range campaigns {
		if err := w.runCampaign(&campaigns[i]); err != nil {
			w.Logger.WithError(err).WithField("campaign_id", campaigns[i].ID).Error("campaign cycle failed")
		}
	}
	return nil
}

func (w *OutreachWorker) runCampaign(campaign *models.Campaign) error {
	if campaign.BudgetExhausted() {
		return w.pauseForBudget(campaign)
	}

	var steps []models.SequenceStep
	if err := w.DB.Where("sequence_id = ?", campaign.SequenceID).
		Order("step_number asc").Find(&steps).Error; err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}

	limit := campaign.Settings.MaxLeadsPerCycle
	if limit <= 0 {
		limit = w.cfg.DefaultMaxPerCyc
	}

	now := w.now()
	var enrollments []models.Enrollment
	if err := w.DB.Where(
		"campaign_id = ? AND status = ? AND next_action_at IS NOT NULL AND next_action_at <= ?",
		campaign.ID, models.EnrollmentStatusActive, now,
	).Order("next_action_at asc").Limit(limit).Find(&enrollments).Error; err != nil {
		return err
	}

	processed := 0
	for i := range enrollments {
		if campaign.BudgetExhausted() {
			return w.pauseForBudget(campaign)
		}
		if processed > 0 && campaign.Settings.SendDelaySeconds > 0 {
			w.sleep(time.Duration(campaign.Settings.SendDelaySeconds) * time.Second)
		}
		if err := w.processEnrollment(campaign, steps, &enrollments[i]); err != nil {
			w.Logger.WithError(err).WithField("enrollment_id", enrollments[i].ID).Error("enrollment step failed")
		}
		processed++
	}

	if processed > 0 {
		w.Logger.WithFields(logrus.Fields{
			"campaign_id": campaign.ID,
			"processed":   processed,
		}).Info("campaign cycle finished")
	}
	return nil
}

func (w *OutreachWorker) processEnrollment(campaign *models.Campaign, steps []models.SequenceStep, enrollment *models.Enrollment) error {
	now := w.now()

	if enrollment.CurrentStepIndex >= len(steps) {
		return w.completeEnrollment(enrollment, now)
	}

	var lead models.Lead
	if err := w.DB.First(&lead, enrollment.LeadID).Error; err != nil {
		return err
	}
	if !lead.IsContactable() {
		record := enrollment.TransitionTo(models.EnrollmentStatusRemoved, models.EnrollmentOutcomeDNC, now)
		return w.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(enrollment).Updates(map[string]interface{}{
				"status":           models.EnrollmentStatusRemoved,
				"outcome":          models.EnrollmentOutcomeDNC,
				"last_activity_at": &now,
				"next_action_at":   nil,
			}).Error; err != nil {
				return err
			}
			return tx.Create(&record).Error
		})
	}

	step := steps[enrollment.CurrentStepIndex]

	if step.Channel == models.ChannelVoice && !utils.WithinCallWindow(now, campaign.Settings.CallWindow) {
		next := utils.NextWindowOpen(now, campaign.Settings.CallWindow)
		return w.DB.Model(enrollment).Update("next_action_at", &next).Error
	}

	vars := utils.PromptVars(&lead, campaign, config.AppConfig.AgentName)
	subject := utils.RenderTemplate(step.Subject, vars)
	body := utils.RenderTemplate(step.Template, vars)
	if body == "" {
		body = utils.RenderTemplate(step.Instructions, vars)
	}

	action := models.OutreachAction{
		EnrollmentID: enrollment.ID,
		CampaignID:   campaign.ID,
		LeadID:       lead.ID,
		StepIndex:    enrollment.CurrentStepIndex,
		Channel:      step.Channel,
		Subject:      subject,
		Content:      body,
		AIGenerated:  campaign.AISystemPrompt != "",
		SentAt:       now,
	}

	if campaign.Settings.TestMode {
		action.Status = models.ActionStatusSent
		action.MessageID = "test-" + now.Format("20060102150405")
	} else {
		messageID, err := w.Dispatcher.Send(utils.MessageForLead(&lead, step.Channel, subject, body))
		if err != nil {
			return w.recordFailure(campaign, enrollment, &action, err, now)
		}
		action.Status = models.ActionStatusSent
		action.MessageID = messageID
	}

	return w.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&action).Error; err != nil {
			return err
		}

		leadUpdates := map[string]interface{}{"last_contact_at": &now}
		if lead.Status == models.LeadStatusNew {
			leadUpdates["status"] = models.LeadStatusContacted
		}
		if err := tx.Model(&lead).Updates(leadUpdates).Error; err != nil {
			return err
		}

		if !campaign.Settings.TestMode {
			if err := w.chargeBudget(tx, campaign, step.Channel); err != nil {
				return err
			}
		}

		nextIndex := enrollment.CurrentStepIndex + 1
		if nextIndex >= len(steps) {
			record := enrollment.TransitionTo(models.EnrollmentStatusCompleted, models.EnrollmentOutcomeSequenceDone, now)
			enrollment.CurrentStepIndex = nextIndex
			if err := tx.Model(enrollment).Updates(map[string]interface{}{
				"current_step_index": nextIndex,
				"status":             models.EnrollmentStatusCompleted,
				"outcome":            models.EnrollmentOutcomeSequenceDone,
				"last_activity_at":   &now,
				"next_action_at":     nil,
			}).Error; err != nil {
				return err
			}
			return tx.Create(&record).Error
		}

		next := now.Add(time.Duration(steps[nextIndex].DelayDays) * 24 * time.Hour)
		enrollment.CurrentStepIndex = nextIndex
		return tx.Model(enrollment).Updates(map[string]interface{}{
			"current_step_index": nextIndex,
			"last_activity_at":   &now,
			"next_action_at":     &next,
		}).Error
	})
}

// recordFailure logs a failed action without advancing the step. The step
// is retried on later cycles; repeated failures pause the enrollment so a
// dead address does not retry forever.
func (w *OutreachWorker) recordFailure(campaign *models.Campaign, enrollment *models.Enrollment, action *models.OutreachAction, sendErr error, now time.Time) error {
	action.Status = models.ActionStatusFailed
	action.Error = sendErr.Error()
	if err := w.DB.Create(action).Error; err != nil {
		return err
	}

	w.Logger.WithFields(logrus.Fields{
		"enrollment_id": enrollment.ID,
		"step_index":    action.StepIndex,
	}).WithError(sendErr).Warn("send failed")

	var failures int64
	if err := w.DB.Model(&models.OutreachAction{}).
		Where("enrollment_id = ? AND step_index = ? AND status = ?",
			enrollment.ID, action.StepIndex, models.ActionStatusFailed).
		Count(&failures).Error; err != nil {
		return err
	}
	if failures < maxStepFailures {
		return nil
	}

	record := enrollment.TransitionTo(models.EnrollmentStatusPaused, models.EnrollmentOutcomeDeliveryFailed, now)
	return w.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(enrollment).Updates(map[string]interface{}{
			"status":           models.EnrollmentStatusPaused,
			"outcome":          models.EnrollmentOutcomeDeliveryFailed,
			"last_activity_at": &now,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
}

func (w *OutreachWorker) completeEnrollment(enrollment *models.Enrollment, now time.Time) error {
	record := enrollment.TransitionTo(models.EnrollmentStatusCompleted, models.EnrollmentOutcomeSequenceDone, now)
	return w.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(enrollment).Updates(map[string]interface{}{
			"status":           models.EnrollmentStatusCompleted,
			"outcome":          models.EnrollmentOutcomeSequenceDone,
			"last_activity_at": &now,
			"next_action_at":   nil,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
}

func (w *OutreachWorker) chargeBudget(tx *gorm.DB, campaign *models.Campaign, channel string) error {
	cost := w.cfg.EmailUnitCost
	if channel == models.ChannelVoice {
		cost = w.cfg.VoiceUnitCost
	}
	if cost <= 0 {
		return nil
	}
	campaign.BudgetSpent += cost
	return tx.Model(campaign).Update("budget_spent", campaign.BudgetSpent).Error
}

// pauseForBudget soft-stops a campaign whose spend reached its budget.
// Operators can raise the budget and resume.
func (w *OutreachWorker) pauseForBudget(campaign *models.Campaign) error {
	w.Logger.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"spent":       campaign.BudgetSpent,
		"budget":      campaign.BudgetTotal,
	}).Warn("campaign budget exhausted, pausing")
	campaign.Status = models.CampaignStatusPaused
	return w.DB.Model(campaign).Update("status", models.CampaignStatusPaused).Error
}
