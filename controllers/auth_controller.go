package controller

import (
	"time"

	"accelerator/config"
	"accelerator/models"
	"accelerator/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewAuthController(db *gorm.DB, logger *logrus.Logger) *AuthController {
	return &AuthController{
		DB:     db,
		Logger: logger.WithField("component", "auth"),
	}
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates an operator and issues a JWT.
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input loginInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var operator models.Operator
	if err := ac.DB.Where("email = ?", input.Email).First(&operator).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(input.Password)); err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", nil)
	}

	if !operator.IsActive {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Account is not active", nil)
	}

	token, err := utils.GenerateJWTToken(&operator)
	if err != nil {
		ac.Logger.WithError(err).Error("failed to sign token")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create session", nil)
	}

	now := time.Now()
	ac.DB.Model(&operator).Update("last_login_at", &now)

	ac.Logger.WithField("operator_id", operator.ID).Info("operator logged in")

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"token":    token,
		"operator": operator,
	}))
}

// Me returns the authenticated operator's profile.
func (ac *AuthController) Me(c *fiber.Ctx) error {
	operator := c.Locals("operator").(*models.Operator)
	return c.JSON(utils.SuccessResponse(operator))
}

// EnsureDefaultOperator seeds the first admin account from the environment
// so a fresh deployment is immediately usable.
func EnsureDefaultOperator(db *gorm.DB, logger *logrus.Logger) error {
	if config.AppConfig.AdminEmail == "" || config.AppConfig.AdminPassword == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.Operator{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(config.AppConfig.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	operator := models.Operator{
		Email:        config.AppConfig.AdminEmail,
		Name:         "Admin",
		PasswordHash: string(hash),
		Role:         "admin",
		IsActive:     true,
	}
	if err := db.Create(&operator).Error; err != nil {
		return err
	}

	logger.WithField("email", operator.Email).Info("seeded default operator account")
	return nil
}
