// Package portal is the client for the external Traffic Portal API, the
// authoritative store for short-link existence. It exposes the two calls
// the service needs (availability check and create) and normalizes
// transport failures, bad bodies, and upstream rejections into coded
// errors. Every request and response is written to the structured log for
// operational diagnosis; a failed log write never fails the request.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	netHTTP "net/http"
	"time"

	"github.com/flanksource/commons/http"
	"github.com/flanksource/commons/logger"
	"github.com/sethvargo/go-retry"

	"github.com/trafficportal/tpls/pkg/tpls/api"
)

const (
	// availabilityMaxRetries bounds the retries of the idempotent
	// availability check. The create call is never retried: the portal's
	// duplicate handling on replay is unknown.
	availabilityMaxRetries = 2

	keyStatusAvailable = "available"
)

// Config carries the settings for the portal client.
type Config struct {
	BaseURL string
	APIKey  string

	// ValidateTimeout bounds each availability-check attempt.
	ValidateTimeout time.Duration
	// CreateTimeout bounds the single create attempt.
	CreateTimeout time.Duration
}

// Client calls the Traffic Portal API.
type Client struct {
	*http.Client

	validateTimeout time.Duration
	createTimeout   time.Duration
}

// NewClient creates a portal client for the given base URL and API key.
func NewClient(config Config) *Client {
	if config.ValidateTimeout <= 0 {
		config.ValidateTimeout = 5 * time.Second
	}
	if config.CreateTimeout <= 0 {
		config.CreateTimeout = 15 * time.Second
	}

	return &Client{
		validateTimeout: config.ValidateTimeout,
		createTimeout:   config.CreateTimeout,
		Client: http.NewClient().
			BaseURL(config.BaseURL).
			Header("x-api-key", config.APIKey).
			Trace(http.TraceConfig{
				QueryParam: true,
			}),
	}
}

// AvailabilityResult is the normalized answer of the validate endpoint.
type AvailabilityResult struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// validatePayload is the wire format of GET /items/validate.
type validatePayload struct {
	Success   bool   `json:"success"`
	KeyStatus string `json:"keystatus"`
	Message   string `json:"message,omitempty"`
}

// CreateRequest carries everything the portal needs to create a link.
type CreateRequest struct {
	OwnerID     uint
	OwnerToken  string
	Key         string
	Domain      string
	Destination string
	Status      string
}

// createPayload is the wire format of POST /items.
type createPayload struct {
	UID         uint   `json:"uid"`
	Token       string `json:"tpTkn"`
	Key         string `json:"tpKey"`
	Domain      string `json:"domain"`
	Destination string `json:"destination"`
	Status      string `json:"status"`
}

// CreateResponse is the decoded body of a successful create call.
type CreateResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Record  json.RawMessage `json:"record,omitempty"`
}

// CheckAvailability asks the portal whether key is free under domain.
// Transport failures and 5xx answers are retried with bounded backoff
// since the call is a pure read; anything else surfaces immediately.
func (c *Client) CheckAvailability(ctx context.Context, key, domain string) (*AvailabilityResult, error) {
	var result *AvailabilityResult

	backoff := retry.WithJitter(250*time.Millisecond, retry.WithMaxRetries(availabilityMaxRetries, retry.NewExponential(500*time.Millisecond)))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.validateTimeout)
		defer cancel()

		res, status, err := c.checkAvailability(attemptCtx, key, domain)
		if err != nil {
			if status == 0 || status >= 500 {
				return retry.RetryableError(err)
			}
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// checkAvailability performs a single validate call. The returned status
// is 0 when the request never reached the portal.
func (c *Client) checkAvailability(ctx context.Context, key, domain string) (*AvailabilityResult, int, error) {
	logger.WithValues("tpkey", key, "domain", domain).Infof("portal request: GET /items/validate")

	resp, err := c.R(ctx).
		QueryParam("tpkey", key).
		QueryParam("domain", domain).
		Get("items/validate")
	if err != nil {
		logger.Errorf("portal validate request failed: %v", err)
		return nil, 0, api.Wrapf(api.EUNREACHABLE, err, "failed to connect to Traffic Portal API")
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, 0, api.Wrapf(api.EUNREACHABLE, readErr, "failed to read portal response")
	}

	logger.WithValues("status", resp.StatusCode).Infof("portal response: %s", truncate(string(body)))

	var payload validatePayload
	if jsonErr := json.Unmarshal(body, &payload); jsonErr != nil {
		if resp.IsOK() {
			return nil, resp.StatusCode, api.Wrapf(api.EBADRESPONSE, jsonErr, "invalid JSON response from Traffic Portal API")
		}
		return nil, resp.StatusCode, api.Errorf(api.EUPSTREAM, "portal request failed with status %d", resp.StatusCode)
	}

	if !resp.IsOK() {
		message := payload.Message
		if message == "" {
			message = "API request failed"
		}
		return nil, resp.StatusCode, api.Errorf(api.EUPSTREAM, "%s", message)
	}

	return &AvailabilityResult{
		Available: payload.KeyStatus == keyStatusAvailable,
		Message:   payload.Message,
	}, resp.StatusCode, nil
}

// CreateLink asks the portal to create the short link. The call is made
// exactly once; callers decide what a failure means for local state.
func (c *Client) CreateLink(ctx context.Context, request CreateRequest) (*CreateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.createTimeout)
	defer cancel()

	payload := createPayload{
		UID:         request.OwnerID,
		Token:       request.OwnerToken,
		Key:         request.Key,
		Domain:      request.Domain,
		Destination: request.Destination,
		Status:      request.Status,
	}

	logger.WithValues("uid", request.OwnerID, "tpKey", request.Key, "domain", request.Domain).
		Infof("portal request: POST /items destination=%s", request.Destination)

	req := c.R(ctx)
	if err := req.Body(payload); err != nil {
		return nil, api.Wrapf(api.EINTERNAL, err, "error encoding create payload")
	}

	resp, err := req.Do(netHTTP.MethodPost, "items")
	if err != nil {
		logger.Errorf("portal create request failed: %v", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, api.Wrapf(api.EUNREACHABLE, err, "Traffic Portal API timed out")
		}
		return nil, api.Wrapf(api.EUNREACHABLE, err, "failed to connect to Traffic Portal API")
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, api.Wrapf(api.EUNREACHABLE, readErr, "failed to read portal response")
	}

	logger.WithValues("status", resp.StatusCode).Infof("portal response: %s", truncate(string(body)))

	var response CreateResponse
	jsonErr := json.Unmarshal(body, &response)

	if !resp.IsOK() {
		message := response.Message
		if message == "" {
			message = "API request failed"
		}
		return nil, api.Errorf(api.EUPSTREAM, "%s", message)
	}

	if jsonErr != nil {
		return nil, api.Wrapf(api.EBADRESPONSE, jsonErr, "invalid JSON response from Traffic Portal API")
	}

	return &response, nil
}

func truncate(body string) string {
	if len(body) > 200 {
		body = body[0:200]
	}
	return body
}
