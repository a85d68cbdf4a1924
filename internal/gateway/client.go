// Package gateway is the signed HTTP client for the external payment
// collection gateway.
//
// Every call is authenticated two ways, matching the gateway's contract:
// a bearer API key on the request, and a JWT signature of the payload
// signed with the PG key.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shashiranjanraj/vidyapay/pkg/httpkit"
	"github.com/shashiranjanraj/vidyapay/pkg/metrics"
)

// HTTPError is a non-2xx reply from the gateway. The call reached the
// gateway, so its outcome is known.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gateway: upstream status %d: %s", e.StatusCode, e.Body)
}

// ErrUnreachable wraps transport failures (timeouts, refused connections).
// For a create call the outcome is unknown: the collect request may or may
// not exist upstream.
var ErrUnreachable = errors.New("gateway unreachable")

// Config carries the gateway settings.
type Config struct {
	BaseURL string
	APIKey  string
	PGKey   string
	Timeout time.Duration
	Retries int
}

// Client talks to the collect-request gateway.
type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	return &Client{cfg: cfg}
}

// CreateCollectRequest registers a new collection with the gateway.
// Not retried: creation is not idempotent, and a duplicate submission could
// double-charge.
func (c *Client) CreateCollectRequest(ctx context.Context, schoolID, amount, callbackURL string) (*CollectResponse, error) {
	sign, err := c.sign(jwt.MapClaims{
		"school_id":    schoolID,
		"amount":       amount,
		"callback_url": callbackURL,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := httpkit.Post(c.cfg.BaseURL+"/create-collect-request").
		Header("Authorization", "Bearer "+c.cfg.APIKey).
		Body(map[string]string{
			"school_id":    schoolID,
			"amount":       amount,
			"callback_url": callbackURL,
			"sign":         sign,
		}).
		Timeout(c.cfg.Timeout).
		WithContext(ctx).
		Send()
	observe("create", start, err == nil && resp.OK())

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if !resp.OK() {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: resp.Text()}
	}

	return parseCollectResponse(resp.Raw)
}

// CheckCollectRequest polls the gateway for the current state of one
// collect request. This is an idempotent read, so it retries with backoff.
func (c *Client) CheckCollectRequest(ctx context.Context, schoolID, collectRequestID string) (*StatusResponse, error) {
	sign, err := c.sign(jwt.MapClaims{
		"school_id":          schoolID,
		"collect_request_id": collectRequestID,
	})
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/collect-request/%s?school_id=%s&sign=%s",
		c.cfg.BaseURL,
		url.PathEscape(collectRequestID),
		url.QueryEscape(schoolID),
		url.QueryEscape(sign),
	)

	start := time.Now()
	resp, err := httpkit.Get(u).
		Header("Authorization", "Bearer "+c.cfg.APIKey).
		Timeout(c.cfg.Timeout).
		Retry(c.cfg.Retries, time.Second).
		WithContext(ctx).
		Send()
	observe("status", start, err == nil && resp.OK())

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if !resp.OK() {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: resp.Text()}
	}

	return parseStatusResponse(resp.Raw)
}

func (c *Client) sign(claims jwt.MapClaims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.cfg.PGKey))
	if err != nil {
		return "", fmt.Errorf("gateway: sign payload: %w", err)
	}
	return token, nil
}

func observe(op string, start time.Time, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	metrics.GatewayRequestDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}
