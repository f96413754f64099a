package paypal

import (
	"github.com/vasiliy-maslov/paypal-checkout/internal/pricing"
)

// OrderRequest is the Orders v2 creation payload. Once the processor accepts
// it, the request is cached under the processor-assigned order id so the
// shipping callback can reconstruct pricing context later.
type OrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
	PaymentSource *PaymentSource `json:"payment_source,omitempty"`
}

type PurchaseUnit struct {
	ReferenceID string              `json:"reference_id,omitempty"`
	Amount      pricing.OrderAmount `json:"amount"`
	Items       []pricing.LineItem  `json:"items,omitempty"`
	Shipping    *ShippingContact    `json:"shipping,omitempty"`
}

type ShippingContact struct {
	EmailAddress string         `json:"email_address,omitempty"`
	PhoneNumber  *PhoneNumber   `json:"phone_number,omitempty"`
	Address      *PostalAddress `json:"address,omitempty"`
}

type PhoneNumber struct {
	CountryCode    string `json:"country_code,omitempty"`
	NationalNumber string `json:"national_number"`
}

type PostalAddress struct {
	CountryCode string `json:"country_code,omitempty"`
}

type PaymentSource struct {
	PayPal *PayPalSource `json:"paypal,omitempty"`
}

type PayPalSource struct {
	EmailAddress      string             `json:"email_address,omitempty"`
	ExperienceContext *ExperienceContext `json:"experience_context,omitempty"`
}

type ExperienceContext struct {
	ReturnURL                 string          `json:"return_url,omitempty"`
	CancelURL                 string          `json:"cancel_url,omitempty"`
	ContactPreference         string          `json:"contact_preference,omitempty"`
	OrderUpdateCallbackConfig *CallbackConfig `json:"order_update_callback_config,omitempty"`
}

// CallbackConfig subscribes the order to server-side shipping callbacks.
type CallbackConfig struct {
	CallbackEvents []string `json:"callback_events"`
	CallbackURL    string   `json:"callback_url"`
}

// Shipping callback event names.
const (
	EventShippingAddress = "SHIPPING_ADDRESS"
	EventShippingOptions = "SHIPPING_OPTIONS"
)

// OrderResponse is the subset of the processor's order body the orchestrator
// inspects. Everything else is passed through to the caller untouched.
type OrderResponse struct {
	ID            string                 `json:"id"`
	Status        string                 `json:"status"`
	PurchaseUnits []ResponsePurchaseUnit `json:"purchase_units,omitempty"`
}

type ResponsePurchaseUnit struct {
	ReferenceID string    `json:"reference_id,omitempty"`
	Payments    *Payments `json:"payments,omitempty"`
}

type Payments struct {
	Captures       []Transaction `json:"captures,omitempty"`
	Authorizations []Transaction `json:"authorizations,omitempty"`
}

// Transaction is a capture or authorization sub-record.
type Transaction struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Amount *pricing.Money `json:"amount,omitempty"`
}

// TransactionStatusDeclined is the terminal decline status of a capture.
const TransactionStatusDeclined = "DECLINED"
