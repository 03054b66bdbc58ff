package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/internal/auth"
	"github.com/vendexhq/commerce-engine/internal/catalog"
	"github.com/vendexhq/commerce-engine/internal/checkout"
	"github.com/vendexhq/commerce-engine/internal/circuitbreaker"
	"github.com/vendexhq/commerce-engine/internal/config"
	"github.com/vendexhq/commerce-engine/internal/events"
	"github.com/vendexhq/commerce-engine/internal/feed"
	"github.com/vendexhq/commerce-engine/internal/intelligence"
	"github.com/vendexhq/commerce-engine/internal/orders"
	"github.com/vendexhq/commerce-engine/internal/store"
	"github.com/vendexhq/commerce-engine/internal/websocket"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// Connect to database
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			logger.Info("Database connection established")
			break
		}
		logger.Info("Waiting for database...")
		time.Sleep(2 * time.Second)
	}

	if err := store.CreateTables(db); err != nil {
		logger.WithError(err).Fatal("Failed to create tables")
	}

	orderStore := store.NewPostgresOrderStore(db, logger)
	productStore := store.NewPostgresProductStore(db, logger)

	// Kafka is optional; without brokers the producer stays nil and
	// every publish becomes a no-op.
	var producer *events.KafkaProducer
	if cfg.KafkaBrokers != "" {
		producer, err = events.NewKafkaProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka producer")
		}
		defer producer.Close()
	} else {
		logger.Warn("KAFKA_BROKERS not set, event publishing disabled")
	}

	hub := websocket.NewHub(logger)
	go hub.Run()

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:         "checkout-provider",
		MaxFailures:  5,
		ResetTimeout: 30 * time.Second,
	}, logger)

	providerClient := checkout.NewClient(cfg.CheckoutAPIURL, cfg.CheckoutAPIKey, logger)
	reconciler := checkout.NewReconciler(providerClient, orderStore, breaker, producer, logger)

	orderService := orders.NewService(orderStore, producer, hub, logger)
	orderHandler := orders.NewHandler(reconciler, orderService, logger)

	importer := catalog.NewImporter(productStore, logger)
	catalogHandler := catalog.NewHandler(importer, productStore, producer, hub, logger)

	runner := intelligence.NewExecRunner(
		strings.Fields(cfg.WatcherCommand),
		strings.Fields(cfg.BrainCommand),
		cfg.StageTimeout, logger)
	orchestrator := intelligence.NewOrchestrator(runner, producer, hub, logger)
	syncHandler := intelligence.NewHandler(orchestrator, logger)

	feedGenerator := feed.NewGenerator(cfg.FeedBaseURL, cfg.Currency)
	feedHandler := feed.NewHandler(feedGenerator, productStore, logger)

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required to guard admin routes")
	}
	authManager := auth.NewManager(cfg.JWTSecret, logger)

	// Set up routes
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck(db)).Methods("GET")
	router.HandleFunc("/checkout/success", orderHandler.CheckoutSuccess).Methods("GET")
	router.HandleFunc("/api/order/{id}/status", orderHandler.GetOrderStatus).Methods("GET")
	router.HandleFunc("/api/order/{id}/notify", orderHandler.EnableNotifications).Methods("POST")
	router.HandleFunc("/feed.xml", feedHandler.ServeFeed).Methods("GET")
	router.HandleFunc("/ws/status", hub.HandleWebSocket)

	admin := router.PathPrefix("/api/admin").Subrouter()
	admin.Use(authManager.RequireAdmin())
	admin.HandleFunc("/order/{id}/status", orderHandler.AdvanceOrderStatus).Methods("POST")
	admin.HandleFunc("/products/import", catalogHandler.ImportProducts).Methods("POST")
	admin.HandleFunc("/products", catalogHandler.ListProducts).Methods("GET")
	admin.HandleFunc("/products/{sku}/price", catalogHandler.UpdatePrice).Methods("PUT")
	admin.HandleFunc("/sync", syncHandler.TriggerSync).Methods("POST")
	admin.HandleFunc("/metrics", metricsHandler(breaker, hub)).Methods("GET")

	router.Use(loggingMiddleware(logger))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.HTTPPort).Info("Starting commerce service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server gracefully stopped")
}

func healthCheck(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","service":"commerce-service"}`))
			return
		}
		w.Write([]byte(`{"status":"healthy","service":"commerce-service"}`))
	}
}

func metricsHandler(breaker *circuitbreaker.CircuitBreaker, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, _ := json.Marshal(map[string]interface{}{
			"checkout_breaker": breaker.Metrics(),
			"ws_clients":       hub.ClientCount(),
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
	}
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			logger.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
				"remote": r.RemoteAddr,
			}).Info("Request received")

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}
