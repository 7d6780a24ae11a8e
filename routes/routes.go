package routes

import (
	controller "accelerator/controllers"
	"accelerator/middleware"
	"accelerator/worker"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SetupRoutes wires every endpoint group onto the app.
func SetupRoutes(app *fiber.App, db *gorm.DB, logger *logrus.Logger, insightEngine *worker.InsightEngine) {
	authController := controller.NewAuthController(db, logger)
	publicController := controller.NewPublicController(db, logger)
	leadController := controller.NewLeadController(db, logger)
	enrichmentController := controller.NewEnrichmentController(db, logger)
	sequenceController := controller.NewSequenceController(db, logger)
	campaignController := controller.NewCampaignController(db, logger)
	enrollmentController := controller.NewEnrollmentController(db, logger)
	outcomeController := controller.NewOutcomeController(db, logger)
	analyticsController := controller.NewAnalyticsController(db, logger)
	insightController := controller.NewInsightController(db, insightEngine, logger)
	dashboardController := controller.NewDashboardController(db, logger)

	requestLog := fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	})

	// Marketing-site endpoints, unauthenticated
	public := app.Group("/public", requestLog)
	public.Get("/pricing", publicController.GetPricing)
	public.Get("/program", publicController.GetProgram)
	public.Post("/leads", middleware.CaptureRateLimiter(), publicController.CaptureLead)
	public.Post("/checkout", middleware.CaptureRateLimiter(), publicController.CreateCheckout)

	// Provider callbacks, verified by signature / message id rather than JWT
	webhooks := app.Group("/webhooks", requestLog)
	webhooks.Post("/stripe", publicController.HandleStripeWebhook)
	webhooks.Post("/channel", outcomeController.HandleChannelWebhook)

	// Operator session
	auth := app.Group("/auth", requestLog)
	auth.Post("/login", authController.Login)
	auth.Get("/me", middleware.Protected(), authController.Me)

	// Admin console API
	api := app.Group("/api/v1", middleware.Protected(), requestLog)

	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", dashboardController.GetDashboardStats)

	leads := api.Group("/leads")
	leads.Post("/", leadController.CreateLead)
	leads.Get("/", leadController.GetLeads)
	leads.Post("/batch-status", leadController.BatchUpdateStatus)
	leads.Post("/import", leadController.ImportLeads)
	leads.Get("/export", leadController.ExportLeads)
	leads.Get("/:id", leadController.GetLead)
	leads.Patch("/:id", leadController.UpdateLead)
	leads.Get("/:id/timeline", leadController.GetLeadTimeline)

	enrichment := api.Group("/enrichment")
	enrichment.Get("/search", enrichmentController.Search)
	enrichment.Post("/import", enrichmentController.ImportContacts)

	sequences := api.Group("/sequences")
	sequences.Post("/", sequenceController.CreateSequence)
	sequences.Get("/", sequenceController.GetSequences)
	sequences.Get("/:id", sequenceController.GetSequence)
	sequences.Put("/:id", sequenceController.UpdateSequence)
	sequences.Delete("/:id", sequenceController.DeleteSequence)

	campaigns := api.Group("/campaigns")
	campaigns.Post("/", campaignController.CreateCampaign)
	campaigns.Get("/", campaignController.GetCampaigns)
	campaigns.Get("/:id", campaignController.GetCampaign)
	campaigns.Put("/:id", campaignController.UpdateCampaign)
	campaigns.Post("/:id/activate", campaignController.ActivateCampaign)
	campaigns.Post("/:id/pause", campaignController.PauseCampaign)
	campaigns.Post("/:id/resume", campaignController.ActivateCampaign)
	campaigns.Post("/:id/complete", campaignController.CompleteCampaign)
	campaigns.Patch("/:id/settings", campaignController.UpdateSettings)
	campaigns.Patch("/:id/prompt", campaignController.UpdatePrompt)
	campaigns.Get("/:id/leads", campaignController.GetCampaignLeads)
	campaigns.Get("/:id/analytics", analyticsController.GetCampaignAnalytics)

	enrollments := api.Group("/enrollments")
	enrollments.Post("/", enrollmentController.EnrollLead)
	enrollments.Post("/bulk", enrollmentController.BulkEnrollMatching)
	enrollments.Get("/:id", enrollmentController.GetEnrollment)
	enrollments.Post("/:id/pause", enrollmentController.PauseEnrollment)
	enrollments.Post("/:id/resume", enrollmentController.ResumeEnrollment)
	enrollments.Post("/:id/remove", enrollmentController.RemoveEnrollment)
	enrollments.Get("/:id/timeline", enrollmentController.GetEnrollmentTimeline)

	outcomes := api.Group("/outcomes")
	outcomes.Post("/", outcomeController.RecordOutcome)

	insights := api.Group("/insights")
	insights.Get("/", insightController.GetInsights)
	insights.Post("/recompute", insightController.RecomputeInsights)

	// Live campaign progress stream
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/campaign-progress", websocket.New(controller.HandleCampaignProgressWS(logger)))
}
