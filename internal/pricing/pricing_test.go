package pricing_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/paypal-checkout/internal/catalog"
	"github.com/vasiliy-maslov/paypal-checkout/internal/pricing"
)

const testCatalogJSON = `[
  {"sku": "A", "name": "Widget", "description": "A widget", "category": "PHYSICAL_GOODS", "price": "10.00", "stock": 5},
  {"sku": "B", "name": "Gadget", "price": "3.33", "stock": 2},
  {"sku": "C", "name": "Last One", "price": "99.99"}
]`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(strings.NewReader(testCatalogJSON))
	require.NoError(t, err)
	return cat
}

func TestPriceCart(t *testing.T) {
	tests := []struct {
		name          string
		cart          []pricing.CartItem
		wantTotal     string
		wantSKUs      []string
		wantErr       bool
		wantUnknown   string
		wantOutStock  string
		wantAvailable int
	}{
		{
			name:      "single_item_twice",
			cart:      []pricing.CartItem{{SKU: "A", Quantity: 2}},
			wantTotal: "20",
			wantSKUs:  []string{"A"},
		},
		{
			name:      "input_order_preserved",
			cart:      []pricing.CartItem{{SKU: "B", Quantity: 1}, {SKU: "A", Quantity: 1}, {SKU: "C", Quantity: 1}},
			wantTotal: "113.32",
			wantSKUs:  []string{"B", "A", "C"},
		},
		{
			name:      "zero_quantity_defaults_to_one",
			cart:      []pricing.CartItem{{SKU: "B"}},
			wantTotal: "3.33",
			wantSKUs:  []string{"B"},
		},
		{
			name:      "default_stock_is_one",
			cart:      []pricing.CartItem{{SKU: "C", Quantity: 1}},
			wantTotal: "99.99",
			wantSKUs:  []string{"C"},
		},
		{
			name:        "unknown_sku",
			cart:        []pricing.CartItem{{SKU: "A", Quantity: 1}, {SKU: "ZZZ", Quantity: 1}},
			wantErr:     true,
			wantUnknown: "ZZZ",
		},
		{
			name:          "quantity_exceeds_stock",
			cart:          []pricing.CartItem{{SKU: "B", Quantity: 3}},
			wantErr:       true,
			wantOutStock:  "B",
			wantAvailable: 2,
		},
		{
			name:      "empty_cart",
			cart:      nil,
			wantTotal: "0",
			wantSKUs:  []string{},
		},
	}

	cat := testCatalog(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := pricing.PriceCart(tt.cart, cat, "USD")
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantUnknown != "" {
					var unknownErr *pricing.UnknownSKUError
					require.ErrorAs(t, err, &unknownErr)
					assert.Equal(t, tt.wantUnknown, unknownErr.SKU)
				}
				if tt.wantOutStock != "" {
					var stockErr *pricing.OutOfStockError
					require.ErrorAs(t, err, &stockErr)
					assert.Equal(t, tt.wantOutStock, stockErr.SKU)
					assert.Equal(t, tt.wantAvailable, stockErr.Available)
				}
				return
			}

			require.NoError(t, err)
			assert.True(t, total.Equal(decimal.RequireFromString(tt.wantTotal)),
				"want total %s, got %s", tt.wantTotal, total)

			skus := make([]string, 0, len(items))
			for _, item := range items {
				skus = append(skus, item.SKU)
			}
			assert.Equal(t, tt.wantSKUs, skus)
		})
	}
}

func TestPriceCart_LineItemShape(t *testing.T) {
	cat := testCatalog(t)

	items, _, err := pricing.PriceCart([]pricing.CartItem{{SKU: "A", Quantity: 2}}, cat, "USD")
	require.NoError(t, err)
	require.Len(t, items, 1)

	want := pricing.LineItem{
		Name:        "Widget",
		SKU:         "A",
		Description: "A widget",
		Category:    "PHYSICAL_GOODS",
		Quantity:    "2",
		UnitAmount:  pricing.Money{CurrencyCode: "USD", Value: "10.00"},
	}
	if diff := cmp.Diff(want, items[0]); diff != "" {
		t.Errorf("line item mismatch (-want +got):\n%s", diff)
	}
}

func TestPriceCart_Deterministic(t *testing.T) {
	cat := testCatalog(t)
	cart := []pricing.CartItem{{SKU: "B", Quantity: 2}, {SKU: "A", Quantity: 3}}

	itemsA, totalA, err := pricing.PriceCart(cart, cat, "USD")
	require.NoError(t, err)
	itemsB, totalB, err := pricing.PriceCart(cart, cat, "USD")
	require.NoError(t, err)

	assert.True(t, totalA.Equal(totalB))
	assert.Empty(t, cmp.Diff(itemsA, itemsB))
}

func TestComputeAmount(t *testing.T) {
	d := decimal.RequireFromString

	tests := []struct {
		name         string
		in           pricing.AmountInput
		wantTotal    string
		wantTax      string
		wantShipping string
	}{
		{
			// Cart of 2 x 10.00, no tax, no shipping.
			name:         "no_tax_no_shipping",
			in:           pricing.AmountInput{ItemTotal: d("20.00")},
			wantTotal:    "20.00",
			wantTax:      "0.00",
			wantShipping: "0.00",
		},
		{
			// Same cart with the 5% demo tax rate.
			name:         "five_percent_tax",
			in:           pricing.AmountInput{ItemTotal: d("20.00"), TaxRate: d("0.05")},
			wantTotal:    "21.00",
			wantTax:      "1.00",
			wantShipping: "0.00",
		},
		{
			name:         "tax_and_shipping",
			in:           pricing.AmountInput{ItemTotal: d("20.00"), TaxRate: d("0.05"), Shipping: d("3.00")},
			wantTotal:    "24.00",
			wantTax:      "1.00",
			wantShipping: "3.00",
		},
		{
			name:         "tax_rounds_half_up",
			in:           pricing.AmountInput{ItemTotal: d("3.33"), TaxRate: d("0.05")},
			wantTotal:    "3.50",
			wantTax:      "0.17",
			wantShipping: "0.00",
		},
		{
			name:         "all_zero",
			in:           pricing.AmountInput{},
			wantTotal:    "0.00",
			wantTax:      "0.00",
			wantShipping: "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := pricing.ComputeAmount("USD", tt.in)

			assert.Equal(t, "USD", amount.CurrencyCode)
			assert.Equal(t, tt.wantTotal, amount.Value)
			require.NotNil(t, amount.Breakdown)
			assert.Equal(t, tt.wantTax, amount.Breakdown.TaxTotal.Value)
			assert.Equal(t, tt.wantShipping, amount.Breakdown.Shipping.Value)
		})
	}
}

// The reconciliation invariant: the grand total always equals
// item + tax + shipping + handling + insurance - discount - shipping_discount.
func TestComputeAmount_Reconciles(t *testing.T) {
	d := decimal.RequireFromString

	inputs := []pricing.AmountInput{
		{},
		{ItemTotal: d("20.00")},
		{ItemTotal: d("20.00"), TaxRate: d("0.05"), Shipping: d("2.00")},
		{ItemTotal: d("13.37"), TaxRate: d("0.0825"), Shipping: d("4.99"), Handling: d("1.50")},
		{ItemTotal: d("99.99"), TaxRate: d("0.13"), Shipping: d("0.00"), Insurance: d("2.25"), Discount: d("5.00")},
		{ItemTotal: d("42.42"), TaxRate: d("0.07"), Shipping: d("3.00"), ShippingDiscount: d("3.00")},
	}

	for _, in := range inputs {
		amount := pricing.ComputeAmount("USD", in)
		b := amount.Breakdown
		require.NotNil(t, b)

		sum := decimal.Zero
		for _, part := range []*pricing.Money{b.ItemTotal, b.TaxTotal, b.Shipping, b.Handling, b.Insurance} {
			v, err := part.Decimal()
			require.NoError(t, err)
			sum = sum.Add(v)
		}
		for _, part := range []*pricing.Money{b.Discount, b.ShippingDiscount} {
			v, err := part.Decimal()
			require.NoError(t, err)
			sum = sum.Sub(v)
		}

		grand, err := amount.Money.Decimal()
		require.NoError(t, err)
		assert.True(t, grand.Equal(sum.Round(2)), "grand total %s does not reconcile to %s", grand, sum)
	}
}

func TestMoney_Decimal(t *testing.T) {
	m := &pricing.Money{CurrencyCode: "USD", Value: "12.34"}
	v, err := m.Decimal()
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("12.34")))

	var absent *pricing.Money
	v, err = absent.Decimal()
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	bad := &pricing.Money{Value: "not-a-number"}
	_, err = bad.Decimal()
	assert.Error(t, err)
}
