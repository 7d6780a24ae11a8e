package controller

import (
	"accelerator/models"
	"accelerator/utils"
	"accelerator/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InsightController serves the ICP recommendation views and the manual
// recompute trigger.
type InsightController struct {
	DB     *gorm.DB
	Engine *worker.InsightEngine
	Logger *logrus.Entry
}

func NewInsightController(db *gorm.DB, engine *worker.InsightEngine, logger *logrus.Logger) *InsightController {
	return &InsightController{
		DB:     db,
		Engine: engine,
		Logger: logger.WithField("component", "insights_api"),
	}
}

// GetInsights lists current recommendations, filterable by campaign type,
// dimension, and metric.
func (ic *InsightController) GetInsights(c *fiber.Ctx) error {
	query := ic.DB.Model(&models.InsightRecommendation{})

	// campaign_type is a real filter value; absence means the cross-type set.
	query = query.Where("campaign_type = ?", c.Query("campaign_type", ""))
	if dimension := c.Query("dimension"); dimension != "" {
		query = query.Where("dimension_type = ?", dimension)
	}
	if metric := c.Query("metric"); metric != "" {
		query = query.Where("metric_name = ?", metric)
	}

	var recommendations []models.InsightRecommendation
	if err := query.Order("dimension_type asc, metric_name asc, rank asc").
		Find(&recommendations).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch insights", nil)
	}

	type insightView struct {
		models.InsightRecommendation
		ConfidenceLabel string `json:"confidence_label"`
	}
	views := make([]insightView, 0, len(recommendations))
	for _, r := range recommendations {
		views = append(views, insightView{
			InsightRecommendation: r,
			ConfidenceLabel:       models.ConfidenceLabel(r.Confidence),
		})
	}

	return c.JSON(utils.SuccessResponse(views))
}

// RecomputeInsights rebuilds the recommendation set immediately instead of
// waiting for the nightly run.
func (ic *InsightController) RecomputeInsights(c *fiber.Ctx) error {
	if err := ic.Engine.Recompute(); err != nil {
		ic.Logger.WithError(err).Error("manual insight recompute failed")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to recompute insights", nil)
	}

	var count int64
	ic.DB.Model(&models.InsightRecommendation{}).Count(&count)

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"recomputed":      true,
		"recommendations": count,
	}))
}
