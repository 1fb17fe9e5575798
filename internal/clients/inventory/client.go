package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vkuksa/product-catalog/internal/config"
)

// Client calls the external inventory service. One attempt per lookup, no
// retries; the caller decides what a failed lookup means.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an inventory client with a bounded request timeout so a
// degraded inventory service cannot block product reads indefinitely.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.Inventory.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Inventory.Timeout,
		},
	}
}

type quantityResponse struct {
	Quantity int `json:"quantity"`
}

// GetQuantity returns the available quantity for a product code
func (c *Client) GetQuantity(ctx context.Context, code string) (int, error) {
	url := fmt.Sprintf("%s/api/inventory/%s", c.baseURL, code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build inventory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("inventory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("inventory service returned status %d", resp.StatusCode)
	}

	var body quantityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode inventory response: %w", err)
	}

	return body.Quantity, nil
}
