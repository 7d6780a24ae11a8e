package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"accelerator/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	AppConfig Config
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type SMTPConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"-"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
}

// VoiceConfig points at the external voice-calling provider.
type VoiceConfig struct {
	APIURL     string `json:"api_url"`
	APIKey     string `json:"-"`
	CallerID   string `json:"caller_id"`
	TimeoutSec int    `json:"timeout_sec"`
}

// EnrichConfig points at the external contact-enrichment provider.
type EnrichConfig struct {
	APIURL     string `json:"api_url"`
	APIKey     string `json:"-"`
	TimeoutSec int    `json:"timeout_sec"`
}

// OutreachConfig holds scheduler-wide knobs; per-campaign pacing lives in
// campaign settings.
type OutreachConfig struct {
	CycleSeconds     int     `json:"cycle_seconds"`
	DefaultMaxPerCyc int     `json:"default_max_per_cycle"`
	EmailUnitCost    float64 `json:"email_unit_cost"`
	VoiceUnitCost    float64 `json:"voice_unit_cost"`
}

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	JWTSecret      string `json:"-"`
	JWTExpiryHours int    `json:"jwt_expiry_hours"`

	SentryDSN string `json:"-"`

	SMTP   SMTPConfig   `json:"smtp"`
	Voice  VoiceConfig  `json:"voice"`
	Enrich EnrichConfig `json:"enrich"`
	Redis  RedisConfig  `json:"redis"`

	StripeSecretKey     string `json:"-"`
	StripeWebhookSecret string `json:"-"`
	CheckoutSuccessURL  string `json:"checkout_success_url"`
	CheckoutCancelURL   string `json:"checkout_cancel_url"`

	Outreach OutreachConfig `json:"outreach"`

	// InsightCronSpec schedules the daily ICP recompute.
	InsightCronSpec string `json:"insight_cron_spec"`

	// AgentName fills the {agent_name} prompt placeholder.
	AgentName string `json:"agent_name"`

	// RateLimitCapture caps public lead-capture submissions per IP per minute.
	RateLimitCapture int `json:"rate_limit_capture"`

	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"-"`
}

func init() {
	// .env is optional outside development
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "5000"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "accelerator"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 24),

		SentryDSN: getEnv("SENTRY_DSN", ""),

		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", "localhost"),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromEmail: getEnv("SMTP_FROM_EMAIL", "outreach@example.com"),
			FromName:  getEnv("SMTP_FROM_NAME", "Enrollment Team"),
		},
		Voice: VoiceConfig{
			APIURL:     getEnv("VOICE_API_URL", ""),
			APIKey:     getEnv("VOICE_API_KEY", ""),
			CallerID:   getEnv("VOICE_CALLER_ID", ""),
			TimeoutSec: getEnvAsInt("VOICE_TIMEOUT_SEC", 30),
		},
		Enrich: EnrichConfig{
			APIURL:     getEnv("ENRICH_API_URL", ""),
			APIKey:     getEnv("ENRICH_API_KEY", ""),
			TimeoutSec: getEnvAsInt("ENRICH_TIMEOUT_SEC", 20),
		},
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		CheckoutSuccessURL:  getEnv("CHECKOUT_SUCCESS_URL", "https://localhost/enroll/success"),
		CheckoutCancelURL:   getEnv("CHECKOUT_CANCEL_URL", "https://localhost/pricing"),

		Outreach: OutreachConfig{
			CycleSeconds:     getEnvAsInt("OUTREACH_CYCLE_SECONDS", 60),
			DefaultMaxPerCyc: getEnvAsInt("OUTREACH_MAX_PER_CYCLE", 50),
			EmailUnitCost:    getEnvAsFloat("OUTREACH_EMAIL_UNIT_COST", 0.01),
			VoiceUnitCost:    getEnvAsFloat("OUTREACH_VOICE_UNIT_COST", 0.50),
		},

		InsightCronSpec: getEnv("INSIGHT_CRON_SPEC", "0 2 * * *"),
		AgentName:       getEnv("OUTREACH_AGENT_NAME", "Alex"),

		RateLimitCapture: getEnvAsInt("RATE_LIMIT_CAPTURE", 10),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}

	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if AppConfig.Environment == "production" && AppConfig.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required in production")
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Connecting to database:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := MigrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return nil
}

// MigrateDB runs auto-migration for all models. Exposed for test databases.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Operator{},
		&models.Plan{},
		&models.Lead{},
		&models.LeadTemperatureHistory{},
		&models.Sequence{},
		&models.SequenceStep{},
		&models.Campaign{},
		&models.Enrollment{},
		&models.EnrollmentTransition{},
		&models.OutreachAction{},
		&models.OutreachOutcome{},
		&models.InsightRecommendation{},
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const marker = "password="
	startIdx := strings.Index(dsn, marker)
	if startIdx == -1 {
		return dsn
	}
	startIdx += len(marker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Channels: smtp(%s) voice(%t)", AppConfig.SMTP.Host, AppConfig.Voice.APIURL != "")
}
