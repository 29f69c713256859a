package catalogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/robotshop/cart/internal/domain/catalog"
	"github.com/robotshop/cart/internal/domain/shared"
	"github.com/robotshop/cart/internal/infrastructure/resilience"
	"go.uber.org/zap"
)

// maxResponseSize limits the response body size to prevent memory
// exhaustion on a misbehaving upstream.
const maxResponseSize = 1 * 1024 * 1024

// Config holds catalogue client configuration.
type Config struct {
	// BaseURL is the catalogue service root, e.g. "http://catalogue:8080".
	BaseURL string
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("catalogue base URL is required")
	}
	return nil
}

// Client fetches products from the external catalogue service over HTTP,
// shielded by a circuit breaker. Outcomes are kept distinguishable: a clean
// 4xx is a product-not-found and does not count toward the breaker's error
// budget; 5xx and transport failures do; an open circuit short-circuits to
// shared.ErrCatalogueUnavailable without a network attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
	logger     *zap.Logger
}

// NewClient creates a catalogue client guarded by the given breaker.
func NewClient(cfg Config, breaker *resilience.Breaker, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		// Per-call deadlines come from the breaker's call timeout via the
		// request context, so the client itself carries none.
		httpClient: &http.Client{},
		breaker:    breaker,
		logger:     logger,
	}, nil
}

// GetProduct fetches product metadata by sku.
func (c *Client) GetProduct(ctx context.Context, sku string) (*catalog.Product, error) {
	var product *catalog.Product

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		found, fetchErr := c.fetch(ctx, sku)
		if fetchErr != nil {
			return fetchErr
		}
		product = found
		return nil
	})
	if err != nil {
		if errors.Is(err, resilience.ErrOpen) {
			c.logger.Warn("catalogue circuit open, short-circuiting",
				zap.String("sku", sku))
			return nil, shared.ErrCatalogueUnavailable
		}
		c.logger.Error("catalogue request failed",
			zap.String("sku", sku),
			zap.Error(err))
		return nil, shared.ErrCatalogueUnavailable
	}

	// A clean 4xx from the catalogue is a genuine "no such sku", not a
	// dependency failure, and was not counted against the breaker.
	if product == nil {
		return nil, shared.ErrProductNotFound
	}
	return product, nil
}

// fetch performs the HTTP call. It returns (nil, nil) for a clean 4xx so
// the breaker only tallies transport-level and server-side failures.
func (c *Client) fetch(ctx context.Context, sku string) (*catalog.Product, error) {
	url := fmt.Sprintf("%s/product/%s", c.baseURL, sku)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, err
		}
		var product catalog.Product
		if err := json.Unmarshal(body, &product); err != nil {
			return nil, fmt.Errorf("invalid catalogue response: %w", err)
		}
		return &product, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, nil
	default:
		return nil, fmt.Errorf("catalogue returned status %d", resp.StatusCode)
	}
}

// Stats exposes the breaker snapshot for health reporting.
func (c *Client) Stats() resilience.Stats {
	return c.breaker.Stats()
}

// Ensure Client implements catalog.Service
var _ catalog.Service = (*Client)(nil)
