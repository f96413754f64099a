package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	EnvSandbox = "sandbox"
	EnvLive    = "live"

	sandboxAPIBaseURL = "https://api-m.sandbox.paypal.com"
	liveAPIBaseURL    = "https://api-m.paypal.com"
)

// Config is built once at startup from the environment and passed into
// component constructors. Nothing reads the environment after Load returns.
type Config struct {
	App    AppConfig
	PayPal PayPalConfig
}

type AppConfig struct {
	Port string
	// CatalogPath optionally overrides the embedded product catalog.
	CatalogPath string
}

type PayPalConfig struct {
	Environment  string
	ClientID     string
	ClientSecret string
	APIBaseURL   string
	Currency     string
	Intent       string
	// TaxRate is applied to the item total at order creation; the shipping
	// callback re-derives tax from the same rate.
	TaxRate decimal.Decimal
	// EnableOrderCapture defaults to true only in sandbox.
	EnableOrderCapture            bool
	EnableShippingAddressCallback bool
	EnableShippingOptionsCallback bool
	// CallbackBaseURL is this deployment's public base URL, used to subscribe
	// orders to the shipping callback.
	CallbackBaseURL string
	Demo            DemoContact
}

// DemoContact is an optional pre-filled shipping contact for demo checkouts.
type DemoContact struct {
	ShippingEmail       string
	ShippingPhone       string
	ShippingCountryCode string
}

// Load reads configuration, optionally loading a .env file first. Missing
// PayPal credentials are not an error here; they surface from the boundary
// client on first use.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to load %s: %w", envPath, err)
		}
	}

	env := strings.ToLower(getEnvOrDefault("PAYPAL_ENVIRONMENT_MODE", EnvSandbox))
	if env != EnvSandbox && env != EnvLive {
		return nil, fmt.Errorf("config: unknown PAYPAL_ENVIRONMENT_MODE %q", env)
	}

	clientID := os.Getenv("PAYPAL_SANDBOX_CLIENT_ID")
	clientSecret := os.Getenv("PAYPAL_SANDBOX_CLIENT_SECRET")
	apiBaseURL := sandboxAPIBaseURL
	if env == EnvLive {
		clientID = os.Getenv("PAYPAL_LIVE_CLIENT_ID")
		clientSecret = os.Getenv("PAYPAL_LIVE_CLIENT_SECRET")
		apiBaseURL = liveAPIBaseURL
	}
	if override := os.Getenv("PAYPAL_API_BASE_URL"); override != "" {
		apiBaseURL = override
	}

	taxRate, err := decimal.NewFromString(getEnvOrDefault("TAX_RATE", "0.05"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid TAX_RATE: %w", err)
	}
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("config: TAX_RATE must not be negative, got %s", taxRate)
	}

	cfg := &Config{}
	cfg.App.Port = getEnvOrDefault("APP_PORT", "8080")
	cfg.App.CatalogPath = os.Getenv("CATALOG_PATH")

	cfg.PayPal = PayPalConfig{
		Environment:                   env,
		ClientID:                      clientID,
		ClientSecret:                  clientSecret,
		APIBaseURL:                    apiBaseURL,
		Currency:                      getEnvOrDefault("PAYPAL_CURRENCY", "USD"),
		Intent:                        strings.ToUpper(getEnvOrDefault("PAYPAL_INTENT", "CAPTURE")),
		TaxRate:                       taxRate,
		EnableOrderCapture:            boolEnv("PAYPAL_ENABLE_ORDER_CAPTURE", env == EnvSandbox),
		EnableShippingAddressCallback: boolEnv("PAYPAL_ENABLE_SHIPPING_ADDRESS_CALLBACK", false),
		EnableShippingOptionsCallback: boolEnv("PAYPAL_ENABLE_SHIPPING_OPTIONS_CALLBACK", false),
		CallbackBaseURL:               os.Getenv("DEPLOYMENT_ENV_BASE_URL"),
		Demo: DemoContact{
			ShippingEmail:       os.Getenv("PAYPAL_DEMO_SHIPPING_EMAIL"),
			ShippingPhone:       os.Getenv("PAYPAL_DEMO_SHIPPING_PHONE"),
			ShippingCountryCode: os.Getenv("PAYPAL_DEMO_SHIPPING_COUNTRY_CODE"),
		},
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func boolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.EqualFold(value, "true")
}
