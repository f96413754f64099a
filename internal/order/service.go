package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/paypal-checkout/internal/cache"
	"github.com/vasiliy-maslov/paypal-checkout/internal/catalog"
	"github.com/vasiliy-maslov/paypal-checkout/internal/config"
	"github.com/vasiliy-maslov/paypal-checkout/internal/paypal"
	"github.com/vasiliy-maslov/paypal-checkout/internal/pricing"
)

// OrderCacheTTL bounds how long an accepted order request stays retrievable
// for shipping callbacks and capture context. An order that is neither
// captured nor updated within this window is implicitly abandoned.
const OrderCacheTTL = 3 * time.Hour

const contactPreference = "UPDATE_CONTACT_INFO"

// ErrCaptureDisabled is returned when capture is administratively disabled;
// no boundary call is attempted in that case.
var ErrCaptureDisabled = errors.New("order: capture is disabled")

// ProcessorClient is the boundary the orchestrator submits orders through.
type ProcessorClient interface {
	CreateOrder(ctx context.Context, order paypal.OrderRequest, requestID string) (paypal.Result, error)
	CaptureOrder(ctx context.Context, orderID string) (paypal.Result, error)
	GetOrder(ctx context.Context, orderID string) (paypal.Result, error)
}

// CreateOrderInput is the storefront's checkout request.
type CreateOrderInput struct {
	Cart         []pricing.CartItem
	BuyerEmail   string
	OnApproveURL string
	OnCancelURL  string
}

// Result carries the processor's response plus the ids the handler needs.
// Body is the boundary's response verbatim, success or decline.
type Result struct {
	HTTPStatusCode int
	CorrelationID  string
	OrderID        string
	OrderStatus    string
	Body           json.RawMessage
}

type Service interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (Result, error)
	CaptureOrder(ctx context.Context, orderID string) (Result, error)
	GetOrder(ctx context.Context, orderID string) (Result, error)
}

type service struct {
	client  ProcessorClient
	catalog *catalog.Catalog
	pending *cache.Cache[paypal.OrderRequest]
	cfg     config.PayPalConfig
}

func NewService(client ProcessorClient, cat *catalog.Catalog, pending *cache.Cache[paypal.OrderRequest], cfg config.PayPalConfig) Service {
	return &service{
		client:  client,
		catalog: cat,
		pending: pending,
		cfg:     cfg,
	}
}

// CreateOrder prices the cart, submits the order-creation payload and, once
// the processor accepts it, caches the payload under the processor-assigned
// order id so the shipping callback can recompute pricing later. Pricing
// failures return before any boundary call.
func (s *service) CreateOrder(ctx context.Context, in CreateOrderInput) (Result, error) {
	items, itemTotal, err := pricing.PriceCart(in.Cart, s.catalog, s.cfg.Currency)
	if err != nil {
		return Result{}, err
	}

	amount := pricing.ComputeAmount(s.cfg.Currency, pricing.AmountInput{
		ItemTotal: itemTotal,
		TaxRate:   s.cfg.TaxRate,
	})

	referenceID, err := uuid.NewV4()
	if err != nil {
		return Result{}, fmt.Errorf("order: failed to generate reference id: %w", err)
	}
	requestID, err := uuid.NewV4()
	if err != nil {
		return Result{}, fmt.Errorf("order: failed to generate request id: %w", err)
	}

	experience := &paypal.ExperienceContext{
		ReturnURL:         in.OnApproveURL,
		CancelURL:         in.OnCancelURL,
		ContactPreference: contactPreference,
	}
	if events := s.callbackEvents(); len(events) > 0 && s.cfg.CallbackBaseURL != "" {
		experience.OrderUpdateCallbackConfig = &paypal.CallbackConfig{
			CallbackEvents: events,
			CallbackURL:    s.cfg.CallbackBaseURL + "/api/shipping-callback",
		}
	}

	orderRequest := paypal.OrderRequest{
		Intent: s.cfg.Intent,
		PurchaseUnits: []paypal.PurchaseUnit{{
			ReferenceID: referenceID.String(),
			Amount:      amount,
			Items:       items,
			Shipping:    s.demoShippingContact(),
		}},
		PaymentSource: &paypal.PaymentSource{
			PayPal: &paypal.PayPalSource{
				EmailAddress:      in.BuyerEmail,
				ExperienceContext: experience,
			},
		},
	}

	res, err := s.client.CreateOrder(ctx, orderRequest, requestID.String())
	if err != nil {
		return Result{}, fmt.Errorf("order: failed to submit creation: %w", err)
	}

	out := Result{
		HTTPStatusCode: res.HTTPStatusCode,
		CorrelationID:  res.CorrelationID,
		Body:           res.Data,
	}

	if !res.OK() {
		log.Error().
			Int("status", res.HTTPStatusCode).
			Str("paypal_debug_id", res.CorrelationID).
			Msg("order: processor rejected creation")
		return out, nil
	}

	var created paypal.OrderResponse
	if err := json.Unmarshal(res.Data, &created); err != nil || created.ID == "" {
		log.Warn().
			Str("paypal_debug_id", res.CorrelationID).
			Msg("order: accepted creation response carried no order id")
		return out, nil
	}

	s.pending.Set(created.ID, orderRequest, OrderCacheTTL)
	out.OrderID = created.ID
	out.OrderStatus = created.Status

	log.Info().
		Str("order_id", created.ID).
		Str("order_status", created.Status).
		Msg("order: successfully created")

	return out, nil
}

// CaptureOrder finalizes payment. The boundary's body and status are always
// returned unmodified, even on a decline: the storefront is responsible for
// showing the true outcome, and a declined capture is never retried here.
func (s *service) CaptureOrder(ctx context.Context, orderID string) (Result, error) {
	if !s.cfg.EnableOrderCapture {
		return Result{}, ErrCaptureDisabled
	}

	res, err := s.client.CaptureOrder(ctx, orderID)
	if err != nil {
		return Result{}, fmt.Errorf("order: failed to submit capture: %w", err)
	}

	out := Result{
		HTTPStatusCode: res.HTTPStatusCode,
		CorrelationID:  res.CorrelationID,
		OrderID:        orderID,
		Body:           res.Data,
	}

	var captured paypal.OrderResponse
	if err := json.Unmarshal(res.Data, &captured); err == nil {
		out.OrderStatus = captured.Status
	}

	tx := firstTransaction(captured)
	if tx == nil || tx.ID == "" || tx.Status == paypal.TransactionStatusDeclined {
		log.Warn().
			Str("order_id", orderID).
			Int("status", res.HTTPStatusCode).
			Str("paypal_debug_id", res.CorrelationID).
			Msg("order: capture failed")
		return out, nil
	}

	log.Info().
		Str("order_id", orderID).
		Str("transaction_id", tx.ID).
		Str("transaction_status", tx.Status).
		Msg("order: successful capture")

	return out, nil
}

// GetOrder is a passthrough read: boundary response data and correlation id
// only, no local augmentation.
func (s *service) GetOrder(ctx context.Context, orderID string) (Result, error) {
	res, err := s.client.GetOrder(ctx, orderID)
	if err != nil {
		return Result{}, fmt.Errorf("order: failed to fetch order: %w", err)
	}

	return Result{
		HTTPStatusCode: res.HTTPStatusCode,
		CorrelationID:  res.CorrelationID,
		Body:           res.Data,
	}, nil
}

func (s *service) callbackEvents() []string {
	var events []string
	if s.cfg.EnableShippingAddressCallback {
		events = append(events, paypal.EventShippingAddress)
	}
	if s.cfg.EnableShippingOptionsCallback {
		events = append(events, paypal.EventShippingOptions)
	}
	return events
}

func (s *service) demoShippingContact() *paypal.ShippingContact {
	demo := s.cfg.Demo
	if demo.ShippingEmail == "" && demo.ShippingPhone == "" && demo.ShippingCountryCode == "" {
		return nil
	}

	contact := &paypal.ShippingContact{EmailAddress: demo.ShippingEmail}
	if demo.ShippingPhone != "" {
		contact.PhoneNumber = &paypal.PhoneNumber{NationalNumber: demo.ShippingPhone}
	}
	if demo.ShippingCountryCode != "" {
		contact.Address = &paypal.PostalAddress{CountryCode: demo.ShippingCountryCode}
	}
	return contact
}

// firstTransaction picks the completed capture or authorization sub-record
// the processor reports for the first purchase unit.
func firstTransaction(body paypal.OrderResponse) *paypal.Transaction {
	if len(body.PurchaseUnits) == 0 || body.PurchaseUnits[0].Payments == nil {
		return nil
	}
	payments := body.PurchaseUnits[0].Payments
	if len(payments.Captures) > 0 {
		return &payments.Captures[0]
	}
	if len(payments.Authorizations) > 0 {
		return &payments.Authorizations[0]
	}
	return nil
}
