package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
)

//go:embed products.json
var defaultProducts []byte

// Product is a single catalog entry. The catalog is loaded once at startup
// and read-only afterwards.
type Product struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
}

// Catalog holds products keyed by SKU, preserving file order for listings.
type Catalog struct {
	products map[string]Product
	order    []string
}

type productRecord struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       string `json:"price"`
	Stock       *int   `json:"stock"`
}

// Load reads a JSON product array. A missing stock field defaults to 1.
func Load(r io.Reader) (*Catalog, error) {
	var records []productRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("catalog: failed to decode products: %w", err)
	}

	c := &Catalog{products: make(map[string]Product, len(records))}
	for _, rec := range records {
		if rec.SKU == "" {
			return nil, fmt.Errorf("catalog: product %q has no sku", rec.Name)
		}
		if _, exists := c.products[rec.SKU]; exists {
			return nil, fmt.Errorf("catalog: duplicate sku %q", rec.SKU)
		}
		if _, err := decimal.NewFromString(rec.Price); err != nil {
			return nil, fmt.Errorf("catalog: product %q has invalid price %q: %w", rec.SKU, rec.Price, err)
		}

		stock := 1
		if rec.Stock != nil {
			stock = *rec.Stock
		}
		c.products[rec.SKU] = Product{
			SKU:         rec.SKU,
			Name:        rec.Name,
			Description: rec.Description,
			Category:    rec.Category,
			Price:       rec.Price,
			Stock:       stock,
		}
		c.order = append(c.order, rec.SKU)
	}

	return c, nil
}

// LoadFile loads a catalog from a JSON file on disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Load(f)
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultProducts))
	if err != nil {
		// The embedded file is fixed at build time, so this cannot happen
		// outside of a broken build.
		panic(err)
	}
	return c
}

// Get looks up a product by SKU.
func (c *Catalog) Get(sku string) (Product, bool) {
	p, ok := c.products[sku]
	return p, ok
}

// Products returns all products in catalog file order.
func (c *Catalog) Products() []Product {
	out := make([]Product, 0, len(c.order))
	for _, sku := range c.order {
		out = append(out, c.products[sku])
	}
	return out
}

// Len reports the number of products in the catalog.
func (c *Catalog) Len() int {
	return len(c.products)
}
