// Package pricing derives purchase line items and reconciled monetary
// breakdowns from a cart and the product catalog. All arithmetic is decimal;
// amounts on the wire are strings with exactly two fraction digits.
package pricing

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/paypal-checkout/internal/catalog"
)

// Money is a currency-tagged amount in PayPal wire shape.
type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// NewMoney renders d as a two-fraction-digit Money in the given currency.
func NewMoney(currency string, d decimal.Decimal) Money {
	return Money{CurrencyCode: currency, Value: d.StringFixed(2)}
}

// Decimal parses the money value. A nil receiver reads as zero, which keeps
// breakdowns with omitted optional fields usable in arithmetic.
func (m *Money) Decimal() (decimal.Decimal, error) {
	if m == nil {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(m.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricing: invalid money value %q: %w", m.Value, err)
	}
	return d, nil
}

// CartItem is a single incoming cart entry. A zero quantity means 1.
type CartItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// LineItem is a purchase-unit item as the processor expects it.
type LineItem struct {
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Quantity    string `json:"quantity"`
	UnitAmount  Money  `json:"unit_amount"`
}

// Breakdown decomposes an order total into sub-totals. ItemTotal, TaxTotal
// and Shipping are always populated by ComputeAmount; the adjustment fields
// appear only when nonzero.
type Breakdown struct {
	ItemTotal        *Money `json:"item_total,omitempty"`
	TaxTotal         *Money `json:"tax_total,omitempty"`
	Shipping         *Money `json:"shipping,omitempty"`
	Handling         *Money `json:"handling,omitempty"`
	Insurance        *Money `json:"insurance,omitempty"`
	ShippingDiscount *Money `json:"shipping_discount,omitempty"`
	Discount         *Money `json:"discount,omitempty"`
}

// OrderAmount is a purchase-unit amount: the grand total plus its breakdown.
type OrderAmount struct {
	Money
	Breakdown *Breakdown `json:"breakdown,omitempty"`
}

// UnknownSKUError reports a cart entry that resolves to no catalog product.
type UnknownSKUError struct {
	SKU string
}

func (e *UnknownSKUError) Error() string {
	return fmt.Sprintf("unknown sku %q", e.SKU)
}

// OutOfStockError reports a requested quantity above the available stock.
type OutOfStockError struct {
	SKU       string
	Name      string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("%s %s (qty: %d) is out of stock, %d available", e.Name, e.SKU, e.Requested, e.Available)
}

// PriceCart resolves each cart entry against the catalog and returns the
// processor line items plus the rounded item total. Line items keep the cart's
// input order, so the same cart always prices identically.
func PriceCart(cart []CartItem, cat *catalog.Catalog, currency string) ([]LineItem, decimal.Decimal, error) {
	items := make([]LineItem, 0, len(cart))
	itemTotal := decimal.Zero

	for _, entry := range cart {
		product, ok := cat.Get(entry.SKU)
		if !ok {
			return nil, decimal.Zero, &UnknownSKUError{SKU: entry.SKU}
		}

		quantity := entry.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 0 {
			return nil, decimal.Zero, fmt.Errorf("pricing: negative quantity %d for sku %q", quantity, entry.SKU)
		}
		if quantity > product.Stock {
			return nil, decimal.Zero, &OutOfStockError{
				SKU:       product.SKU,
				Name:      product.Name,
				Requested: quantity,
				Available: product.Stock,
			}
		}

		// Validated at catalog load, cannot fail here.
		unitPrice := decimal.RequireFromString(product.Price)

		items = append(items, LineItem{
			Name:        product.Name,
			SKU:         product.SKU,
			Description: product.Description,
			Category:    product.Category,
			Quantity:    strconv.Itoa(quantity),
			UnitAmount:  NewMoney(currency, unitPrice),
		})
		itemTotal = itemTotal.Add(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
	}

	return items, round2(itemTotal), nil
}

// AmountInput carries the sub-totals ComputeAmount reconciles. Zero-valued
// fields are valid and mean "none".
type AmountInput struct {
	ItemTotal        decimal.Decimal
	TaxRate          decimal.Decimal
	Shipping         decimal.Decimal
	Handling         decimal.Decimal
	Insurance        decimal.Decimal
	Discount         decimal.Decimal
	ShippingDiscount decimal.Decimal
}

// ComputeAmount derives a full order amount from its inputs. Tax is
// round2(itemTotal * taxRate) and the grand total reconciles as
// item + tax + shipping + handling + insurance - discount - shipping_discount.
// Callers must re-derive the whole amount whenever any sub-total changes
// rather than patching individual fields.
func ComputeAmount(currency string, in AmountInput) OrderAmount {
	itemTotal := round2(in.ItemTotal)
	taxTotal := round2(itemTotal.Mul(in.TaxRate))
	shipping := round2(in.Shipping)

	grand := itemTotal.
		Add(taxTotal).
		Add(shipping).
		Add(in.Handling).
		Add(in.Insurance).
		Sub(in.Discount).
		Sub(in.ShippingDiscount)

	breakdown := &Breakdown{
		ItemTotal: moneyPtr(currency, itemTotal),
		TaxTotal:  moneyPtr(currency, taxTotal),
		Shipping:  moneyPtr(currency, shipping),
	}
	if !in.Handling.IsZero() {
		breakdown.Handling = moneyPtr(currency, round2(in.Handling))
	}
	if !in.Insurance.IsZero() {
		breakdown.Insurance = moneyPtr(currency, round2(in.Insurance))
	}
	if !in.Discount.IsZero() {
		breakdown.Discount = moneyPtr(currency, round2(in.Discount))
	}
	if !in.ShippingDiscount.IsZero() {
		breakdown.ShippingDiscount = moneyPtr(currency, round2(in.ShippingDiscount))
	}

	return OrderAmount{
		Money:     NewMoney(currency, round2(grand)),
		Breakdown: breakdown,
	}
}

// round2 rounds half-up to two fraction digits.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func moneyPtr(currency string, d decimal.Decimal) *Money {
	m := NewMoney(currency, d)
	return &m
}
