package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/artisan-shop/internal/api"
	"github.com/example/artisan-shop/internal/auth"
	"github.com/example/artisan-shop/internal/catalog"
	"github.com/example/artisan-shop/internal/checkout"
	"github.com/example/artisan-shop/internal/config"
	"github.com/example/artisan-shop/internal/infrastructure/kafka"
	"github.com/example/artisan-shop/internal/infrastructure/postgres"
	"github.com/example/artisan-shop/internal/order"
	"github.com/example/artisan-shop/internal/payment"
	"github.com/example/artisan-shop/internal/settings"
	"github.com/example/artisan-shop/internal/shipping"
	"github.com/example/artisan-shop/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[API] Invalid configuration: %v", err)
	}

	log.Println("[API] ========================================")
	log.Println("[API] Artisan Shop API")
	log.Println("[API] ========================================")
	log.Printf("[API] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[API] Topic: %s", cfg.KafkaTopic)

	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[API] Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(db); err != nil {
		log.Fatalf("[API] Failed to ensure schema: %v", err)
	}
	log.Println("[API] Connected to PostgreSQL")

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	// Stores
	catalogStore := catalog.NewStore(db)
	shippingStore := shipping.NewStore(db)
	orderStore := order.NewPostgresStore(db)
	userStore := users.NewStore(db)
	settingsStore := settings.NewStore(db)

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenExpiry)

	paymentClient := payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.APIKey)

	initiator := checkout.NewInitiator(checkout.InitiatorConfig{
		Catalog:    catalogStore,
		Shipping:   shippingStore,
		Client:     paymentClient,
		Currency:   cfg.Payment.Currency,
		SuccessURL: cfg.Payment.SuccessURL,
		CancelURL:  cfg.Payment.CancelURL,
	})
	reconciler := checkout.NewReconciler(checkout.ReconcilerConfig{
		Store:         orderStore,
		Ledger:        orderStore,
		Publisher:     producer,
		WebhookSecret: cfg.Payment.WebhookSecret,
	})

	router := api.NewRouter(api.RouterConfig{
		Catalog:    api.NewCatalogHandlers(catalogStore),
		Shipping:   api.NewShippingHandlers(shippingStore),
		Orders:     api.NewOrderHandlers(orderStore, producer),
		Checkout:   api.NewCheckoutHandlers(initiator, reconciler),
		Auth:       api.NewAuthHandlers(userStore, jwtService),
		Users:      api.NewUserHandlers(userStore),
		Settings:   api.NewSettingsHandlers(settingsStore),
		JWTService: jwtService,
	})

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		log.Printf("[API] Server started on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] Shutdown error: %v", err)
	}
}
