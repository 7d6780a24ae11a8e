package controller

import (
	"testing"

	"accelerator/config"
	"accelerator/models"
	"accelerator/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLogin(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.JWTExpiryHours = 1

	db := setupTestDB(t)
	ac := NewAuthController(db, testLogger())

	app := fiber.New()
	app.Post("/auth/login", ac.Login)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	operator := models.Operator{
		Email: "ops@example.test", Name: "Ops",
		PasswordHash: string(hash), Role: "operator", IsActive: true,
	}
	require.NoError(t, db.Create(&operator).Error)

	t.Run("valid credentials issue a token", func(t *testing.T) {
		resp := postJSON(t, app, "/auth/login", map[string]interface{}{
			"email": "ops@example.test", "password": "hunter22",
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		data := body["data"].(map[string]interface{})
		token := data["token"].(string)

		claims, err := utils.ParseJWTToken(token)
		require.NoError(t, err)
		assert.Equal(t, operator.ID, claims.OperatorID)
		assert.Equal(t, "operator", claims.Role)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		resp := postJSON(t, app, "/auth/login", map[string]interface{}{
			"email": "ops@example.test", "password": "wrong",
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown email rejected with the same status", func(t *testing.T) {
		resp := postJSON(t, app, "/auth/login", map[string]interface{}{
			"email": "ghost@example.test", "password": "hunter22",
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("inactive account forbidden", func(t *testing.T) {
		require.NoError(t, db.Model(&operator).Update("is_active", false).Error)
		defer db.Model(&operator).Update("is_active", true)

		resp := postJSON(t, app, "/auth/login", map[string]interface{}{
			"email": "ops@example.test", "password": "hunter22",
		})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})
}

func TestEnsureDefaultOperator(t *testing.T) {
	db := setupTestDB(t)

	config.AppConfig.AdminEmail = "admin@example.test"
	config.AppConfig.AdminPassword = "bootstrap-pass"
	defer func() {
		config.AppConfig.AdminEmail = ""
		config.AppConfig.AdminPassword = ""
	}()

	require.NoError(t, EnsureDefaultOperator(db, testLogger()))

	var operator models.Operator
	require.NoError(t, db.Where("email = ?", "admin@example.test").First(&operator).Error)
	assert.Equal(t, "admin", operator.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(operator.PasswordHash), []byte("bootstrap-pass")))

	// idempotent: a second call never duplicates or resets
	require.NoError(t, EnsureDefaultOperator(db, testLogger()))
	var count int64
	db.Model(&models.Operator{}).Count(&count)
	assert.EqualValues(t, 1, count)
}
