package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accelerator/config"
	controller "accelerator/controllers"
	"accelerator/middleware"
	"accelerator/models"
	"accelerator/routes"
	"accelerator/utils"
	"accelerator/worker"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Warnf("Sentry init failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := controller.EnsureDefaultOperator(config.DB, logger); err != nil {
		logger.Fatalf("Failed to seed operator account: %v", err)
	}

	utils.InitStripe()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= 500 {
				sentry.CaptureException(err)
				logger.WithError(err).Error("unhandled request error")
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	app.Use(middleware.CORS())

	// Channel senders for the outreach worker
	dispatcher := utils.NewChannelDispatcher()
	dispatcher.Register(models.ChannelEmail, utils.NewMailer(config.AppConfig.SMTP))
	dispatcher.Register(models.ChannelVoice, utils.NewVoiceDispatcher(config.AppConfig.Voice))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outreachWorker := worker.NewOutreachWorker(config.DB, dispatcher, logger)
	go outreachWorker.Start(ctx)

	insightEngine := worker.NewInsightEngine(config.DB, logger)
	if err := insightEngine.StartCron(); err != nil {
		logger.Fatalf("Failed to start insight cron: %v", err)
	}
	defer insightEngine.StopCron()

	routes.SetupRoutes(app, config.DB, logger, insightEngine)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Shut down cleanly on SIGINT/SIGTERM so in-flight sends finish.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		cancel()
		_ = app.Shutdown()
	}()

	logger.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
