package controller

import (
	"accelerator/models"
	"accelerator/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SequenceController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewSequenceController(db *gorm.DB, logger *logrus.Logger) *SequenceController {
	return &SequenceController{
		DB:     db,
		Logger: logger.WithField("component", "sequences"),
	}
}

type sequenceStepInput struct {
	Channel      string `json:"channel" validate:"required,oneof=email voice"`
	DelayDays    int    `json:"delay_days" validate:"gte=0"`
	Subject      string `json:"subject"`
	Template     string `json:"template"`
	Instructions string `json:"instructions"`
	Tone         string `json:"tone"`
	Goal         string `json:"goal"`
}

type sequenceInput struct {
	Name        string              `json:"name" validate:"required,min=2"`
	Description string              `json:"description"`
	Steps       []sequenceStepInput `json:"steps" validate:"dive"`
}

// CreateSequence stores a sequence and its ordered steps.
func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	var input sequenceInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	sequence := models.Sequence{
		Name:        input.Name,
		Description: input.Description,
	}
	for i, step := range input.Steps {
		sequence.Steps = append(sequence.Steps, models.SequenceStep{
			StepNumber:   i + 1,
			Channel:      step.Channel,
			DelayDays:    step.DelayDays,
			Subject:      step.Subject,
			Template:     step.Template,
			Instructions: step.Instructions,
			Tone:         step.Tone,
			Goal:         step.Goal,
		})
	}

	if err := sc.DB.Create(&sequence).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create sequence", nil)
	}

	sc.Logger.WithFields(logrus.Fields{
		"sequence_id": sequence.ID,
		"steps":       len(sequence.Steps),
	}).Info("sequence created")

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(sequence))
}

// GetSequences lists all sequences with their steps.
func (sc *SequenceController) GetSequences(c *fiber.Ctx) error {
	var sequences []models.Sequence
	if err := sc.DB.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_number asc")
	}).Order("created_at desc").Find(&sequences).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch sequences", nil)
	}
	return c.JSON(utils.SuccessResponse(sequences))
}

// GetSequence returns a single sequence with ordered steps.
func (sc *SequenceController) GetSequence(c *fiber.Ctx) error {
	var sequence models.Sequence
	if err := sc.DB.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_number asc")
	}).First(&sequence, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}
	return c.JSON(utils.SuccessResponse(sequence))
}

// UpdateSequence replaces a sequence's metadata and steps. Editing is
// blocked while a non-draft campaign references the sequence because
// enrollments index into its steps by position.
func (sc *SequenceController) UpdateSequence(c *fiber.Ctx) error {
	var sequence models.Sequence
	if err := sc.DB.First(&sequence, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	if inUse, err := sc.sequenceInUse(sequence.ID); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check sequence usage", nil)
	} else if inUse {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Sequence is used by an active or paused campaign", nil)
	}

	var input sequenceInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&sequence).Updates(map[string]interface{}{
			"name":        input.Name,
			"description": input.Description,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("sequence_id = ?", sequence.ID).Delete(&models.SequenceStep{}).Error; err != nil {
			return err
		}
		for i, step := range input.Steps {
			if err := tx.Create(&models.SequenceStep{
				SequenceID:   sequence.ID,
				StepNumber:   i + 1,
				Channel:      step.Channel,
				DelayDays:    step.DelayDays,
				Subject:      step.Subject,
				Template:     step.Template,
				Instructions: step.Instructions,
				Tone:         step.Tone,
				Goal:         step.Goal,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update sequence", nil)
	}

	return sc.GetSequence(c)
}

// DeleteSequence removes a sequence unless any campaign references it.
func (sc *SequenceController) DeleteSequence(c *fiber.Ctx) error {
	var sequence models.Sequence
	if err := sc.DB.First(&sequence, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	var refs int64
	if err := sc.DB.Model(&models.Campaign{}).Where("sequence_id = ?", sequence.ID).Count(&refs).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check sequence usage", nil)
	}
	if refs > 0 {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Sequence is referenced by a campaign", nil)
	}

	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sequence_id = ?", sequence.ID).Delete(&models.SequenceStep{}).Error; err != nil {
			return err
		}
		return tx.Delete(&sequence).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete sequence", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}

func (sc *SequenceController) sequenceInUse(sequenceID uint) (bool, error) {
	var count int64
	err := sc.DB.Model(&models.Campaign{}).
		Where("sequence_id = ? AND status IN ?", sequenceID, []string{
			models.CampaignStatusActive, models.CampaignStatusPaused,
		}).
		Count(&count).Error
	return count > 0, err
}
