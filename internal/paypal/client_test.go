package paypal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/paypal-checkout/internal/paypal"
	"github.com/vasiliy-maslov/paypal-checkout/internal/pricing"
)

func tokenResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "test-token",
		"expires_in":   3600,
	})
}

func TestClient_AccessToken_MissingCredentials(t *testing.T) {
	client := paypal.NewClient("http://example.invalid", "", "")

	_, err := client.AccessToken(context.Background())
	assert.ErrorIs(t, err, paypal.ErrMissingCredentials)
}

func TestClient_AccessToken_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/oauth2/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "wrong-secret", pass)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_client",
			"error_description": "Client Authentication failed",
		})
	}))
	defer srv.Close()

	client := paypal.NewClient(srv.URL, "client-id", "wrong-secret")

	_, err := client.AccessToken(context.Background())
	var authErr *paypal.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, "invalid_client - Client Authentication failed", authErr.Message)
}

func TestClient_AccessToken_CachedAcrossCalls(t *testing.T) {
	tokenCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			tokenCalls++
			tokenResponse(w)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"X","status":"CREATED"}`))
		}
	}))
	defer srv.Close()

	client := paypal.NewClient(srv.URL, "id", "secret")

	_, err := client.GetOrder(context.Background(), "X")
	require.NoError(t, err)
	_, err = client.GetOrder(context.Background(), "X")
	require.NoError(t, err)

	assert.Equal(t, 1, tokenCalls, "second call must reuse the cached token")
}

func TestClient_CreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			tokenResponse(w)
			return
		}

		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/checkout/orders", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, "req-123", r.Header.Get("PayPal-Request-Id"))

		var got paypal.OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "CAPTURE", got.Intent)
		require.Len(t, got.PurchaseUnits, 1)
		assert.Equal(t, "21.00", got.PurchaseUnits[0].Amount.Value)

		w.Header().Set("Paypal-Debug-Id", "corr-1")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"5O190127TN364715T","status":"PAYER_ACTION_REQUIRED"}`))
	}))
	defer srv.Close()

	client := paypal.NewClient(srv.URL, "id", "secret")

	order := paypal.OrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypal.PurchaseUnit{{
			Amount: pricing.OrderAmount{Money: pricing.Money{CurrencyCode: "USD", Value: "21.00"}},
		}},
	}

	res, err := client.CreateOrder(context.Background(), order, "req-123")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, http.StatusCreated, res.HTTPStatusCode)
	assert.Equal(t, "corr-1", res.CorrelationID)
	assert.Contains(t, string(res.Data), "5O190127TN364715T")
}

func TestClient_BusinessDeclineIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			tokenResponse(w)
			return
		}
		w.Header().Set("Paypal-Debug-Id", "corr-2")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY","details":[{"issue":"INSTRUMENT_DECLINED"}]}`))
	}))
	defer srv.Close()

	client := paypal.NewClient(srv.URL, "id", "secret")

	res, err := client.CaptureOrder(context.Background(), "5O190127TN364715T")
	require.NoError(t, err, "a business decline must be a structured result, not an error")
	assert.Equal(t, paypal.StatusError, res.Status)
	assert.Equal(t, http.StatusUnprocessableEntity, res.HTTPStatusCode)
	assert.Equal(t, "corr-2", res.CorrelationID)
	assert.Contains(t, string(res.Data), "INSTRUMENT_DECLINED")
}

func TestClient_NonJSONResponseIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			tokenResponse(w)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream broke</html>"))
	}))
	defer srv.Close()

	client := paypal.NewClient(srv.URL, "id", "secret")

	_, err := client.GetOrder(context.Background(), "X")
	var transportErr *paypal.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusBadGateway, transportErr.StatusCode)
}

func TestClient_NetworkFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenResponse(w)
	}))
	client := paypal.NewClient(srv.URL, "id", "secret")

	// Prime the token, then kill the server so the order call fails on the wire.
	_, err := client.AccessToken(context.Background())
	require.NoError(t, err)
	srv.Close()

	_, err = client.GetOrder(context.Background(), "X")
	var transportErr *paypal.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Zero(t, transportErr.StatusCode)
}
