package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/paypal-checkout/internal/catalog"
	"github.com/vasiliy-maslov/paypal-checkout/internal/order"
	"github.com/vasiliy-maslov/paypal-checkout/internal/paypal"
	"github.com/vasiliy-maslov/paypal-checkout/internal/pricing"
	"github.com/vasiliy-maslov/paypal-checkout/internal/shipping"
)

// CheckoutHandler exposes the checkout HTTP surface: order creation, capture,
// reads, the shipping callback and the static catalog listing.
type CheckoutHandler struct {
	orders   order.Service
	shipping shipping.Service
	catalog  *catalog.Catalog
}

func NewCheckoutHandler(orders order.Service, shippingSvc shipping.Service, cat *catalog.Catalog) *CheckoutHandler {
	return &CheckoutHandler{
		orders:   orders,
		shipping: shippingSvc,
		catalog:  cat,
	}
}

type createOrderRequest struct {
	Cart         []pricing.CartItem `json:"cart"`
	BuyerEmail   string             `json:"buyerEmail"`
	OnApproveURL string             `json:"onApproveUrl"`
	OnCancelURL  string             `json:"onCancelUrl"`
}

// CreateOrder prices the cart and submits the order to the processor. The
// processor's status code and body are forwarded verbatim on both success
// and rejection.
func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	var details []errorDetail
	if len(req.Cart) == 0 {
		details = append(details, errorDetail{Field: "cart", Issue: "MISSING_REQUIRED_PARAMETER"})
	}
	if req.OnApproveURL == "" {
		details = append(details, errorDetail{Field: "onApproveUrl", Issue: "MISSING_REQUIRED_PARAMETER"})
	}
	if req.OnCancelURL == "" {
		details = append(details, errorDetail{Field: "onCancelUrl", Issue: "MISSING_REQUIRED_PARAMETER"})
	}
	if len(details) > 0 {
		badRequest(w, "missing required fields", details...)
		return
	}

	res, err := h.orders.CreateOrder(r.Context(), order.CreateOrderInput{
		Cart:         req.Cart,
		BuyerEmail:   req.BuyerEmail,
		OnApproveURL: req.OnApproveURL,
		OnCancelURL:  req.OnCancelURL,
	})
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	writeBoundaryResult(w, res)
}

// CaptureOrder finalizes payment for an approved order. The outcome,
// including a decline, is always forwarded for the storefront to display.
func (h *CheckoutHandler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID string `json:"orderID"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.OrderID == "" {
		badRequest(w, "missing required fields", errorDetail{Field: "orderID", Issue: "MISSING_REQUIRED_PARAMETER"})
		return
	}

	res, err := h.orders.CaptureOrder(r.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrCaptureDisabled) {
			respondWithError(w, http.StatusUnprocessableEntity, errorBody{
				Name:    "UNPROCESSABLE_ENTITY",
				Message: "order capture is not enabled",
				Details: []errorDetail{{Issue: "ORDER_CAPTURE_DISABLED"}},
			})
			return
		}
		h.respondOrderError(w, err)
		return
	}

	writeBoundaryResult(w, res)
}

// GetOrder is a passthrough read of the processor's order view.
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderID")
	if orderID == "" {
		badRequest(w, "missing required fields", errorDetail{Field: "orderID", Issue: "MISSING_REQUIRED_PARAMETER"})
		return
	}

	res, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	writeBoundaryResult(w, res)
}

// ShippingCallback handles the processor's mid-flow shipping update. An
// unknown or expired order id yields the structured unprocessable stub,
// never an error: the buyer simply retried with a stale token.
func (h *CheckoutHandler) ShippingCallback(w http.ResponseWriter, r *http.Request) {
	var in shipping.CallbackInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if in.ID == "" {
		badRequest(w, "missing required fields", errorDetail{Field: "id", Issue: "MISSING_REQUIRED_PARAMETER"})
		return
	}

	res, err := h.shipping.HandleUpdate(r.Context(), in)
	if err != nil {
		if errors.Is(err, shipping.ErrOrderNotFound) || errors.Is(err, shipping.ErrOptionUnavailable) {
			respondWithJSON(w, http.StatusUnprocessableEntity, unprocessableStub())
			return
		}
		log.Error().Err(err).Msg("handler: shipping callback failed")
		respondWithError(w, http.StatusInternalServerError, errorBody{Name: "INTERNAL_SERVER_ERROR"})
		return
	}

	respondWithJSON(w, http.StatusOK, res)
}

// Products serves the static catalog.
func (h *CheckoutHandler) Products(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.catalog.Products())
}

// respondOrderError maps orchestrator failures onto the error taxonomy:
// validation 4xx, business declines 422, configuration 5xx, boundary
// transport failures 502.
func (h *CheckoutHandler) respondOrderError(w http.ResponseWriter, err error) {
	var unknownSKU *pricing.UnknownSKUError
	if errors.As(err, &unknownSKU) {
		badRequest(w, "cart could not be priced", errorDetail{
			Field:       "cart",
			Issue:       "UNKNOWN_SKU",
			Description: unknownSKU.Error(),
		})
		return
	}

	var outOfStock *pricing.OutOfStockError
	if errors.As(err, &outOfStock) {
		respondWithError(w, http.StatusUnprocessableEntity, errorBody{
			Name:    "UNPROCESSABLE_ENTITY",
			Message: outOfStock.Error(),
			Details: []errorDetail{{Field: "cart", Issue: "OUT_OF_STOCK"}},
		})
		return
	}

	if errors.Is(err, paypal.ErrMissingCredentials) {
		log.Error().Err(err).Msg("handler: processor credentials are not configured")
		respondWithError(w, http.StatusInternalServerError, errorBody{
			Name:    "CONFIGURATION_ERROR",
			Message: "payment processor credentials are not configured",
		})
		return
	}

	var authErr *paypal.AuthError
	if errors.As(err, &authErr) {
		log.Error().Err(err).Msg("handler: processor rejected credentials")
		respondWithError(w, http.StatusInternalServerError, errorBody{
			Name:    "CONFIGURATION_ERROR",
			Message: authErr.Message,
		})
		return
	}

	log.Error().Err(err).Msg("handler: processor boundary failure")
	respondWithError(w, http.StatusBadGateway, errorBody{
		Name:    "BOUNDARY_UNAVAILABLE",
		Message: "payment processor request failed",
	})
}

// writeBoundaryResult forwards the processor's status code and body verbatim
// and echoes its correlation id.
func writeBoundaryResult(w http.ResponseWriter, res order.Result) {
	if res.CorrelationID != "" {
		w.Header().Set(correlationHeader, res.CorrelationID)
	}
	w.Header().Set("Content-Type", "application/json")

	code := res.HTTPStatusCode
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)

	if len(res.Body) > 0 {
		if _, err := w.Write(res.Body); err != nil {
			log.Error().Err(err).Msg("handler: failed to write boundary response")
		}
	}
}
