// Package shipping handles the processor's mid-flow shipping callback:
// it reconstructs pricing context from the pending-order cache, requotes
// shipping options for the buyer's destination and republishes a reconciled
// order amount.
package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/paypal-checkout/internal/cache"
	"github.com/vasiliy-maslov/paypal-checkout/internal/order"
	"github.com/vasiliy-maslov/paypal-checkout/internal/paypal"
	"github.com/vasiliy-maslov/paypal-checkout/internal/pricing"
)

// Callback outcomes the handler turns into the structured unprocessable
// stub. A stale order id is an expected race (the buyer retried with an
// expired token), not a system fault.
var (
	ErrOrderNotFound     = errors.New("shipping: no pending order for id")
	ErrOptionUnavailable = errors.New("shipping: selected option was not offered")
)

// Address is the buyer's destination as the processor reports it.
type Address struct {
	CountryCode string `json:"country_code,omitempty"`
	AdminArea1  string `json:"admin_area_1,omitempty"`
	AdminArea2  string `json:"admin_area_2,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
}

// Option is one shipping choice offered to the buyer. After a selection
// event exactly one option in a response is Selected.
type Option struct {
	ID       int           `json:"id"`
	Label    string        `json:"label"`
	Type     string        `json:"type"`
	Amount   pricing.Money `json:"amount"`
	Selected bool          `json:"selected"`
}

// Quoter produces candidate shipping options for a destination. Deployments
// with real carrier pricing substitute their own implementation without
// changing the callback contract.
type Quoter interface {
	Quote(addr Address) []Option
}

// StaticQuoter serves a fixed option table regardless of destination.
type StaticQuoter struct {
	Currency string
}

func (q StaticQuoter) Quote(_ Address) []Option {
	return []Option{
		{ID: 1, Label: "Free Shipping", Type: "SHIPPING", Amount: pricing.Money{CurrencyCode: q.Currency, Value: "0.00"}, Selected: true},
		{ID: 2, Label: "USPS Priority Shipping", Type: "SHIPPING", Amount: pricing.Money{CurrencyCode: q.Currency, Value: "2.00"}},
		{ID: 3, Label: "1-Day Shipping", Type: "SHIPPING", Amount: pricing.Money{CurrencyCode: q.Currency, Value: "3.00"}},
	}
}

// CallbackInput is the shipping callback request body. ID is the processor
// order id the original order request was cached under.
type CallbackInput struct {
	ID              string  `json:"id"`
	ShippingAddress Address `json:"shipping_address"`
	ShippingOption  *Option `json:"shipping_option,omitempty"`
}

type CallbackResponse struct {
	ID            string                 `json:"id"`
	PurchaseUnits []CallbackPurchaseUnit `json:"purchase_units"`
}

type CallbackPurchaseUnit struct {
	ReferenceID     string              `json:"reference_id,omitempty"`
	Amount          pricing.OrderAmount `json:"amount"`
	ShippingOptions []Option            `json:"shipping_options"`
}

type Service interface {
	HandleUpdate(ctx context.Context, in CallbackInput) (CallbackResponse, error)
}

type service struct {
	pending  *cache.Cache[paypal.OrderRequest]
	quoter   Quoter
	currency string
	taxRate  decimal.Decimal
}

func NewService(pending *cache.Cache[paypal.OrderRequest], quoter Quoter, currency string, taxRate decimal.Decimal) Service {
	return &service{
		pending:  pending,
		quoter:   quoter,
		currency: currency,
		taxRate:  taxRate,
	}
}

// HandleUpdate recomputes the order amount for a shipping selection, or
// returns the cached amount with candidate options for an address-only
// update. Duplicate or out-of-order calls are safe: the latest recomputation
// always overwrites the cached request wholesale.
func (s *service) HandleUpdate(_ context.Context, in CallbackInput) (CallbackResponse, error) {
	orderRequest, ok := s.pending.Get(in.ID)
	if !ok || len(orderRequest.PurchaseUnits) == 0 {
		log.Warn().Str("order_id", in.ID).Msg("shipping: callback for unknown or expired order")
		return CallbackResponse{}, ErrOrderNotFound
	}

	options := s.quoter.Quote(in.ShippingAddress)
	unit := orderRequest.PurchaseUnits[0]
	amount := unit.Amount

	if in.ShippingOption != nil {
		selected, found := findOption(options, in.ShippingOption.ID)
		if !found {
			log.Warn().
				Str("order_id", in.ID).
				Int("option_id", in.ShippingOption.ID).
				Msg("shipping: buyer selected an option that was never offered")
			return CallbackResponse{}, ErrOptionUnavailable
		}

		var itemTotalMoney *pricing.Money
		if amount.Breakdown != nil {
			itemTotalMoney = amount.Breakdown.ItemTotal
		}
		itemTotal, err := itemTotalMoney.Decimal()
		if err != nil {
			return CallbackResponse{}, fmt.Errorf("shipping: cached order %s has a corrupt item total: %w", in.ID, err)
		}
		shippingTotal, err := selected.Amount.Decimal()
		if err != nil {
			return CallbackResponse{}, fmt.Errorf("shipping: option %d has a corrupt amount: %w", selected.ID, err)
		}

		// Re-derive the whole amount instead of patching sub-totals, so the
		// reconciliation invariant holds for the value a later capture sees.
		amount = pricing.ComputeAmount(s.currency, pricing.AmountInput{
			ItemTotal: itemTotal,
			TaxRate:   s.taxRate,
			Shipping:  shippingTotal,
		})

		for i := range options {
			options[i].Selected = options[i].ID == selected.ID
		}

		// Replace the cached value wholesale rather than mutating through a
		// shared pointer; concurrent callbacks then race only on which full
		// recomputation wins.
		units := make([]paypal.PurchaseUnit, len(orderRequest.PurchaseUnits))
		copy(units, orderRequest.PurchaseUnits)
		units[0].Amount = amount
		updated := orderRequest
		updated.PurchaseUnits = units
		s.pending.Set(in.ID, updated, order.OrderCacheTTL)

		log.Info().
			Str("order_id", in.ID).
			Int("option_id", selected.ID).
			Str("grand_total", amount.Value).
			Msg("shipping: recomputed amount for selected option")
	}

	return CallbackResponse{
		ID: in.ID,
		PurchaseUnits: []CallbackPurchaseUnit{{
			ReferenceID:     unit.ReferenceID,
			Amount:          amount,
			ShippingOptions: options,
		}},
	}, nil
}

func findOption(options []Option, id int) (Option, bool) {
	for _, option := range options {
		if option.ID == id {
			return option, true
		}
	}
	return Option{}, false
}
