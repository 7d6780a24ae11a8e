package controller

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"accelerator/config"
	"accelerator/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func TestCaptureLeadCreatesAndDedupes(t *testing.T) {
	db := setupTestDB(t)
	pc := NewPublicController(db, testLogger())

	app := fiber.New()
	app.Post("/public/leads", pc.CaptureLead)

	resp := postJSON(t, app, "/public/leads", map[string]interface{}{
		"email":     "prospect@corp.test",
		"last_name": "Nguyen",
		"form_type": "brochure",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var lead models.Lead
	require.NoError(t, db.Where("email = ?", "prospect@corp.test").First(&lead).Error)
	assert.Equal(t, models.LeadSourceForm, lead.Source)
	assert.Equal(t, "brochure", lead.FormType)
	assert.Equal(t, models.LeadStatusNew, lead.Status)

	// resubmission fills blanks without overwriting known fields
	resp = postJSON(t, app, "/public/leads", map[string]interface{}{
		"email":      "prospect@corp.test",
		"first_name": "Kim",
		"last_name":  "Different",
		"company":    "Corp Inc",
		"form_type":  "demo",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var count int64
	db.Model(&models.Lead{}).Count(&count)
	assert.EqualValues(t, 1, count)

	require.NoError(t, db.Where("email = ?", "prospect@corp.test").First(&lead).Error)
	assert.Equal(t, "Kim", lead.FirstName, "blank field filled")
	assert.Equal(t, "Nguyen", lead.LastName, "existing field kept")
	assert.Equal(t, "Corp Inc", lead.Company)
	assert.Equal(t, "demo", lead.FormType, "form type tracks the latest touch")
}

func TestCaptureLeadValidation(t *testing.T) {
	db := setupTestDB(t)
	pc := NewPublicController(db, testLogger())

	app := fiber.New()
	app.Post("/public/leads", pc.CaptureLead)

	resp := postJSON(t, app, "/public/leads", map[string]interface{}{
		"email": "nope", "form_type": "brochure",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, app, "/public/leads", map[string]interface{}{
		"email": "ok@corp.test", "form_type": "telegram",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "unknown form type")
}

// signStripePayload builds a Stripe-Signature header for a raw payload,
// matching the t=<ts>,v1=<hmac-sha256("<ts>.<payload>")> scheme the
// webhook verifier checks.
func signStripePayload(payload, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeWebhookMarksLeadConverted(t *testing.T) {
	db := setupTestDB(t)
	pc := NewPublicController(db, testLogger())

	config.AppConfig.StripeWebhookSecret = "whsec_test"
	defer func() { config.AppConfig.StripeWebhookSecret = "" }()

	app := fiber.New()
	app.Post("/webhooks/stripe", pc.HandleStripeWebhook)

	lead := models.Lead{Email: "buyer@corp.test", Source: models.LeadSourceForm, FormType: "demo"}
	require.NoError(t, db.Create(&lead).Error)

	payload := fmt.Sprintf(
		`{"id":"evt_1","api_version":%q,"type":"checkout.session.completed",`+
			`"data":{"object":{"customer_email":"buyer@corp.test","metadata":{"plan_slug":"team"}}}}`,
		stripe.APIVersion)

	req, err := http.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signStripePayload(payload, "whsec_test"))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got models.Lead
	require.NoError(t, db.Where("email = ?", "buyer@corp.test").First(&got).Error)
	assert.Equal(t, models.LeadStatusConverted, got.Status)
	require.NotNil(t, got.LastContactAt)

	var outcome models.OutreachOutcome
	require.NoError(t, db.Where("lead_id = ?", got.ID).First(&outcome).Error)
	assert.Equal(t, models.OutcomeConverted, outcome.OutcomeType)
	assert.Contains(t, outcome.Detail, "team")
}

func TestStripeWebhookCreatesLeadForUnknownBuyer(t *testing.T) {
	db := setupTestDB(t)
	pc := NewPublicController(db, testLogger())

	config.AppConfig.StripeWebhookSecret = "whsec_test"
	defer func() { config.AppConfig.StripeWebhookSecret = "" }()

	app := fiber.New()
	app.Post("/webhooks/stripe", pc.HandleStripeWebhook)

	payload := fmt.Sprintf(
		`{"id":"evt_2","api_version":%q,"type":"checkout.session.completed",`+
			`"data":{"object":{"customer_email":"direct@corp.test","metadata":{"plan_slug":"team"}}}}`,
		stripe.APIVersion)

	req, err := http.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signStripePayload(payload, "whsec_test"))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got models.Lead
	require.NoError(t, db.Where("email = ?", "direct@corp.test").First(&got).Error)
	assert.Equal(t, models.LeadStatusConverted, got.Status)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	db := setupTestDB(t)
	pc := NewPublicController(db, testLogger())

	config.AppConfig.StripeWebhookSecret = "whsec_test"
	defer func() { config.AppConfig.StripeWebhookSecret = "" }()

	app := fiber.New()
	app.Post("/webhooks/stripe", pc.HandleStripeWebhook)

	payload := `{"id":"evt_3","type":"checkout.session.completed","data":{"object":{}}}`
	req, err := http.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signStripePayload(payload, "whsec_other"))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetPricingReturnsActivePlans(t *testing.T) {
	db := setupTestDB(t)
	pc := NewPublicController(db, testLogger())

	app := fiber.New()
	app.Get("/public/pricing", pc.GetPricing)

	require.NoError(t, db.Create(&models.Plan{
		Name: "Team", Slug: "team", PriceCents: 499900, Currency: "usd", IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&models.Plan{
		Name: "Legacy", Slug: "legacy", PriceCents: 99900, Currency: "usd", IsActive: false,
	}).Error)

	req, err := http.NewRequest(http.MethodGet, "/public/pricing", nil)
	require.NoError(t, err)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	plans := body["data"].([]interface{})
	require.Len(t, plans, 1)
	plan := plans[0].(map[string]interface{})
	assert.Equal(t, "team", plan["slug"])
}
