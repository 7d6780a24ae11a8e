package utils

import (
	"fmt"
	"time"

	"accelerator/config"
	"accelerator/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

// InitStripe wires the API key once at startup.
func InitStripe() {
	stripe.Key = config.AppConfig.StripeSecretKey
}

// CreateCheckoutSession starts a hosted checkout for a pricing plan and
// returns the redirect URL. The lead email pre-fills the payment form and is
// echoed back on the completion webhook.
func CreateCheckoutSession(plan *models.Plan, leadEmail string) (string, error) {
	if plan.StripePriceID == "" {
		return "", fmt.Errorf("plan %q has no checkout price configured", plan.Slug)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(config.AppConfig.CheckoutSuccessURL),
		CancelURL:     stripe.String(config.AppConfig.CheckoutCancelURL),
		CustomerEmail: stripe.String(leadEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"plan_slug": plan.Slug,
		},
	}

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return s.URL, nil
}

// ConstructStripeEvent verifies a webhook payload against the signing secret.
func ConstructStripeEvent(payload []byte, signature string) (stripe.Event, error) {
	if signature == "" {
		return stripe.Event{}, fmt.Errorf("missing Stripe-Signature header")
	}
	return webhook.ConstructEventWithTolerance(
		payload,
		signature,
		config.AppConfig.StripeWebhookSecret,
		5*time.Minute,
	)
}
