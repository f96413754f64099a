// Package paypal implements the processor boundary: OAuth credential
// exchange and the Orders v2 create/capture/get calls. Business-level
// declines are returned as structured results, never as Go errors; only
// transport failures error out.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vasiliy-maslov/paypal-checkout/internal/cache"
)

const (
	requestTimeout = 30 * time.Second

	tokenCacheKey = "oauth2:client_credentials"
	// Refresh the cached token a minute before the processor expires it.
	tokenExpirySlack = time.Minute
)

// ErrMissingCredentials is returned when no client id/secret is configured.
// Distinct from AuthError, which means the processor rejected them.
var ErrMissingCredentials = errors.New("paypal: missing api credentials")

// AuthError is a credential rejection from the processor's token endpoint.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("paypal: auth failed (status %d): %s", e.StatusCode, e.Message)
}

// TransportError wraps a network failure, timeout or non-JSON response. The
// original transport status is kept when one was received.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("paypal: %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("paypal: %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Result statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Result is the discriminated outcome of a boundary call. Non-2xx processor
// responses are Status "error" with the body preserved verbatim; they are
// not Go errors because the caller must forward them to the client UI.
type Result struct {
	Status         string
	HTTPStatusCode int
	CorrelationID  string
	Data           json.RawMessage
}

// OK reports whether the processor accepted the request.
func (r Result) OK() bool { return r.Status == StatusOK }

// Client calls the processor's REST API.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	tokens       *cache.Cache[string]
}

// NewClient creates a boundary client for the given API base URL.
func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: requestTimeout},
		tokens:       cache.New[string](),
	}
}

// AccessToken exchanges the configured client credentials for a bearer token,
// reusing a cached one until shortly before expiry.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(tokenCacheKey); ok {
		return token, nil
	}
	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrMissingCredentials
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal: failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en_US")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: "token exchange", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: "token exchange", StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		message := "failed to create access token"
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			message = errBody.Error + " - " + errBody.ErrorDescription
		}
		return "", &AuthError{StatusCode: resp.StatusCode, Message: message}
	}

	var tokenBody struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenBody); err != nil {
		return "", &TransportError{Op: "token exchange", StatusCode: resp.StatusCode, Err: err}
	}
	if tokenBody.AccessToken == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Message: "token response had no access_token"}
	}

	if ttl := time.Duration(tokenBody.ExpiresIn)*time.Second - tokenExpirySlack; ttl > 0 {
		c.tokens.Set(tokenCacheKey, tokenBody.AccessToken, ttl)
	}
	return tokenBody.AccessToken, nil
}

// CreateOrder submits an order-creation payload. requestID is sent as
// PayPal-Request-Id, the caller's idempotency preference for this attempt.
func (c *Client) CreateOrder(ctx context.Context, order OrderRequest, requestID string) (Result, error) {
	headers := map[string]string{
		"Prefer":            "return=representation",
		"PayPal-Request-Id": requestID,
	}
	return c.call(ctx, http.MethodPost, "/v2/checkout/orders", order, headers)
}

// CaptureOrder finalizes payment for a previously approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (Result, error) {
	return c.call(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", nil, nil)
}

// GetOrder fetches the processor's view of an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (Result, error) {
	return c.call(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), nil, nil)
}

func (c *Client) call(ctx context.Context, method, path string, payload any, headers map[string]string) (Result, error) {
	op := method + " " + path

	token, err := c.AccessToken(ctx)
	if err != nil {
		return Result{}, err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return Result{}, fmt.Errorf("paypal: failed to encode %s payload: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Result{}, fmt.Errorf("paypal: failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if len(data) > 0 && !json.Valid(data) {
		return Result{}, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New("non-JSON response body")}
	}

	status := StatusError
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		status = StatusOK
	}

	return Result{
		Status:         status,
		HTTPStatusCode: resp.StatusCode,
		CorrelationID:  resp.Header.Get("Paypal-Debug-Id"),
		Data:           data,
	}, nil
}
