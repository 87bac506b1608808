// Package provider implements the workforce-management provider API client.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/ChefStevePopp/cheflife-sync/pkg/httpclient"
	"github.com/ChefStevePopp/cheflife-sync/pkg/metrics"
	"github.com/ChefStevePopp/cheflife-sync/pkg/models"
	"github.com/ChefStevePopp/cheflife-sync/pkg/tracing"
)

// Config holds provider API configuration
type Config struct {
	Name      string
	BaseURL   string
	APIKey    string
	CompanyID string
}

// Client fetches users, roles and wages from the workforce provider
type Client struct {
	http   *httpclient.Client
	config Config
	logger ectologger.Logger
}

// NewClient creates a new provider API client
func NewClient(httpClient *httpclient.Client, config Config, logger ectologger.Logger) *Client {
	return &Client{
		http:   httpClient,
		config: config,
		logger: logger,
	}
}

// Name returns the provider name tag used on persisted links
func (c *Client) Name() string {
	return c.config.Name
}

type usersResponse struct {
	Data []models.ExternalUser `json:"data"`
}

type wagesResponse struct {
	Data models.WageSnapshot `json:"data"`
}

type rolesResponse struct {
	Data []models.ProviderRole `json:"data"`
}

// ListActiveUsers returns the provider's active users for the configured company
func (c *Client) ListActiveUsers(ctx context.Context) ([]models.ExternalUser, error) {
	ctx, span := tracing.StartSpan(ctx, "provider.Client.ListActiveUsers")
	defer span.End()

	url := fmt.Sprintf("%s/v2/company/%s/users?status=active", c.config.BaseURL, c.config.CompanyID)

	var result usersResponse
	if err := c.getJSON(ctx, "list_users", url, &result); err != nil {
		return nil, err
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"provider":   c.config.Name,
		"user_count": len(result.Data),
	}).Debug("Fetched provider users")

	return result.Data, nil
}

// ListWages returns current and upcoming wages for one provider user
func (c *Client) ListWages(ctx context.Context, userID int) (*models.WageSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "provider.Client.ListWages")
	defer span.End()

	url := fmt.Sprintf("%s/v2/company/%s/users/%d/wages", c.config.BaseURL, c.config.CompanyID, userID)

	var result wagesResponse
	if err := c.getJSON(ctx, "list_wages", url, &result); err != nil {
		return nil, err
	}

	return &result.Data, nil
}

// ListRoles returns the provider's roles for the configured company
func (c *Client) ListRoles(ctx context.Context) ([]models.ProviderRole, error) {
	ctx, span := tracing.StartSpan(ctx, "provider.Client.ListRoles")
	defer span.End()

	url := fmt.Sprintf("%s/v2/company/%s/roles", c.config.BaseURL, c.config.CompanyID)

	var result rolesResponse
	if err := c.getJSON(ctx, "list_roles", url, &result); err != nil {
		return nil, err
	}

	return result.Data, nil
}

func (c *Client) getJSON(ctx context.Context, operation, url string, dest any) error {
	start := time.Now()

	resp, err := c.http.Get(ctx, url, map[string]string{
		"Authorization": "Bearer " + c.config.APIKey,
		"Accept":        "application/json",
	})

	metrics.ProviderRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(operation, "error").Inc()
		return httperror.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("provider request failed: %s", err))
	}

	metrics.ProviderRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"provider":    c.config.Name,
			"operation":   operation,
			"status_code": resp.StatusCode,
		}).Error("Provider returned an error status")
		return httperror.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("provider returned status %d", resp.StatusCode))
	}

	// Unknown fields are rejected so contract drift surfaces as an error
	// instead of silently dropping data.
	decoder := json.NewDecoder(bytes.NewReader(resp.Body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return httperror.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("provider returned invalid response: %s", err))
	}

	return nil
}
