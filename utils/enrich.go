package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"accelerator/config"
)

// EnrichedContact is one result from the contact-enrichment provider.
type EnrichedContact struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	Industry    string `json:"industry"`
	CompanySize string `json:"company_size"`
	Phone       string `json:"phone"`
}

// EnrichmentClient queries the external contact-enrichment/search API.
type EnrichmentClient struct {
	cfg    config.EnrichConfig
	client *http.Client
}

func NewEnrichmentClient(cfg config.EnrichConfig) *EnrichmentClient {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &EnrichmentClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Search runs a people-search query against the provider.
func (e *EnrichmentClient) Search(ctx context.Context, query string, limit int) ([]EnrichedContact, error) {
	if e.cfg.APIURL == "" {
		return nil, fmt.Errorf("enrichment provider not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&limit=%d", e.cfg.APIURL, url.QueryEscape(query), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enrichment search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("enrichment provider returned status %d", resp.StatusCode)
	}

	var out struct {
		Results []EnrichedContact `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("enrichment response invalid: %w", err)
	}
	return out.Results, nil
}
