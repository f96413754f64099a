package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/paypal-checkout/internal/cache"
	"github.com/vasiliy-maslov/paypal-checkout/internal/catalog"
	"github.com/vasiliy-maslov/paypal-checkout/internal/config"
	"github.com/vasiliy-maslov/paypal-checkout/internal/handler"
	"github.com/vasiliy-maslov/paypal-checkout/internal/order"
	"github.com/vasiliy-maslov/paypal-checkout/internal/paypal"
	"github.com/vasiliy-maslov/paypal-checkout/internal/shipping"
	"github.com/vasiliy-maslov/paypal-checkout/internal/transport"
)

const cacheSweepInterval = 10 * time.Minute

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "checkout-service").Logger()

	log.Info().Msg("Checkout service starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log.Debug().
		Str("environment", cfg.PayPal.Environment).
		Str("currency", cfg.PayPal.Currency).
		Bool("capture_enabled", cfg.PayPal.EnableOrderCapture).
		Msg("Configuration loaded")

	cat := catalog.Default()
	if cfg.App.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.App.CatalogPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load catalog")
		}
	}
	log.Info().Int("products", cat.Len()).Msg("Catalog loaded")

	pending := cache.New[paypal.OrderRequest]()
	stopSweep := pending.StartSweep(cacheSweepInterval)
	defer stopSweep()

	client := paypal.NewClient(cfg.PayPal.APIBaseURL, cfg.PayPal.ClientID, cfg.PayPal.ClientSecret)
	orderService := order.NewService(client, cat, pending, cfg.PayPal)
	shippingService := shipping.NewService(
		pending,
		shipping.StaticQuoter{Currency: cfg.PayPal.Currency},
		cfg.PayPal.Currency,
		cfg.PayPal.TaxRate,
	)

	checkoutHandler := handler.NewCheckoutHandler(orderService, shippingService, cat)
	router := transport.NewRouter(checkoutHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
