package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/checkout"
	"github.com/noah-isme/backend-kasir/internal/loyalty"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/resilience"
)

// Config configures the POS backend client.
type Config struct {
	BaseURL string
	// Token is sent as a bearer token on every request when set.
	Token       string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Breaker     *resilience.Breaker
	// PriceCurrency is THB unless the backend still reports legacy USD prices.
	PriceCurrency string
	USDRate       decimal.Decimal
	Rules         loyalty.Rules
	Transport     http.RoundTripper
	Logger        *zerolog.Logger
}

// Client talks to the POS backend over JSON/HTTP. It serves as the product
// source for the catalog and as every checkout port that reaches the backend.
type Client struct {
	base    *url.URL
	token   string
	http    resilience.HTTPClient
	rules   loyalty.Rules
	usd     bool
	usdRate decimal.Decimal
	logger  zerolog.Logger
}

var (
	_ catalog.Source          = (*Client)(nil)
	_ checkout.CustomerLookup = (*Client)(nil)
	_ checkout.Redeemer       = (*Client)(nil)
	_ checkout.SaleRecorder   = (*Client)(nil)
)

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("backend: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend: unsupported scheme %q", base.Scheme)
	}

	rules := cfg.Rules
	if rules.PointValue.IsZero() && rules.AccrualDivisor.IsZero() {
		rules = loyalty.DefaultRules()
	}
	usdRate := cfg.USDRate
	if !usdRate.IsPositive() {
		usdRate = money.DefaultUSDRate
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("pos-backend")
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Client{
		base:  base,
		token: strings.TrimSpace(cfg.Token),
		http: resilience.HTTPClient{
			Client:      &http.Client{Transport: obs.TracingTransport{Base: cfg.Transport, Target: "pos-backend"}},
			Breaker:     breaker,
			BaseBackoff: cfg.BaseBackoff,
			MaxAttempts: cfg.MaxAttempts,
			Jitter:      0.2,
			Timeout:     timeout,
		},
		rules:   rules,
		usd:     strings.EqualFold(strings.TrimSpace(cfg.PriceCurrency), "USD"),
		usdRate: usdRate,
		logger:  logger,
	}, nil
}

// ListProducts returns the full product list.
func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var wire []productDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/products", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]catalog.Product, 0, len(wire))
	for _, p := range wire {
		out = append(out, p.toProduct(c.convertPrice))
	}
	return out, nil
}

// GetProduct returns one product. Unknown ids map to catalog.ErrProductNotFound.
func (c *Client) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	var wire productDTO
	err := c.do(ctx, http.MethodGet, "/api/v1/products/"+strconv.FormatInt(id, 10), nil, &wire)
	if isStatus(err, http.StatusNotFound) {
		return catalog.Product{}, fmt.Errorf("product %d: %w", id, catalog.ErrProductNotFound)
	}
	if err != nil {
		return catalog.Product{}, err
	}
	return wire.toProduct(c.convertPrice), nil
}

// LoyaltySummary returns a customer's loyalty standing.
func (c *Client) LoyaltySummary(ctx context.Context, customerID int64) (loyalty.Summary, error) {
	var wire summaryDTO
	path := "/api/v1/customers/" + strconv.FormatInt(customerID, 10) + "/loyalty/summary"
	err := c.do(ctx, http.MethodGet, path, nil, &wire)
	if isStatus(err, http.StatusNotFound) {
		return loyalty.Summary{}, fmt.Errorf("customer %d: %w", customerID, checkout.ErrCustomerNotFound)
	}
	if err != nil {
		return loyalty.Summary{}, err
	}
	return wire.toSummary(customerID), nil
}

// Redeem commits a redemption. The amount is checked against the points
// locally before anything is sent.
func (c *Client) Redeem(ctx context.Context, r checkout.Redemption) (checkout.RedemptionResult, error) {
	if err := c.rules.ValidateRedemption(r.Points, r.Amount); err != nil {
		return checkout.RedemptionResult{}, err
	}
	body := redeemRequest{
		CustomerID:     r.CustomerID,
		PointsToRedeem: r.Points,
		BahtAmount:     r.Amount,
	}
	var wire redeemResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/loyalty/redeem", body, &wire); err != nil {
		return checkout.RedemptionResult{}, err
	}
	if wire.PointsRedeemed != 0 && wire.PointsRedeemed != r.Points {
		c.logger.Warn().
			Int64("customer_id", r.CustomerID).
			Int64("requested", r.Points).
			Int64("redeemed", wire.PointsRedeemed).
			Msg("backend redeemed a different number of points")
	}
	return checkout.RedemptionResult{TransactionID: wire.transactionID()}, nil
}

// CreateSale records a completed sale.
func (c *Client) CreateSale(ctx context.Context, req checkout.SaleRequest) (checkout.SaleResult, error) {
	var wire saleResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/sales", req, &wire); err != nil {
		return checkout.SaleResult{}, err
	}
	return checkout.SaleResult{SaleID: wire.saleID(), ReceiptNumber: wire.ReceiptNumber}, nil
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) convertPrice(price decimal.Decimal) money.Money {
	if c.usd {
		return money.ConvertUSD(price, c.usdRate)
	}
	return money.FromDecimal(price)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return newStatusError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}
