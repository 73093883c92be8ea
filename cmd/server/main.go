package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cafeflow/cafeflow/internal/analytics"
	"github.com/cafeflow/cafeflow/internal/auth"
	"github.com/cafeflow/cafeflow/internal/messaging"
	"github.com/cafeflow/cafeflow/internal/orders"
	"github.com/cafeflow/cafeflow/internal/products"
	"github.com/cafeflow/cafeflow/internal/telemetry"
)

const (
	serviceName    = "cafeflow-server"
	serviceVersion = "0.1.0"
	sessionTTL     = 24 * time.Hour
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		producer = messaging.NewOrderEventsProducer(strings.Split(kafkaBrokers, ","))
		defer func() { _ = producer.Close() }()
	} else {
		logger.Info("KAFKA_BROKERS not set, order events disabled")
	}

	orderRepo := orders.NewOrderRepository(db)
	productRepo := products.NewProductRepository(db)
	adminRepo := auth.NewAdminRepository(db)

	issuer := auth.NewTokenIssuer(jwtSecret, sessionTTL)
	secureCookies := os.Getenv("COOKIE_SECURE") == "true"

	var orderHandler *orders.Handler
	if producer != nil {
		orderHandler = orders.NewHandler(orderRepo, productRepo, producer, logger)
	} else {
		orderHandler = orders.NewHandler(orderRepo, productRepo, nil, logger)
	}
	productHandler := products.NewHandler(productRepo, logger)
	analyticsHandler := analytics.NewHandler(orderRepo, productRepo, logger)
	authHandler := auth.NewHandler(adminRepo, issuer, secureCookies, logger)

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return telemetry.WithHTTPRoute(auth.RequireAdmin(issuer, h))
	}
	public := telemetry.WithHTTPRoute

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("POST /api/auth/register", public(authHandler.HandleRegister))
	mux.HandleFunc("POST /api/auth/login", public(authHandler.HandleLogin))
	mux.HandleFunc("POST /api/auth/logout", admin(authHandler.HandleLogout))
	mux.HandleFunc("GET /api/auth/me", admin(authHandler.HandleMe))
	mux.HandleFunc("POST /api/auth/profile", admin(authHandler.HandleProfile))

	mux.HandleFunc("GET /api/products", public(productHandler.HandleMenu))
	mux.HandleFunc("GET /api/products/all", admin(productHandler.HandleListAll))
	mux.HandleFunc("POST /api/products", admin(productHandler.HandleCreate))
	mux.HandleFunc("PUT /api/products/{id}", admin(productHandler.HandleUpdate))
	mux.HandleFunc("DELETE /api/products/{id}", admin(productHandler.HandleDelete))

	mux.HandleFunc("POST /api/orders", public(orderHandler.HandleCreate))
	mux.HandleFunc("GET /api/orders", admin(orderHandler.HandleList))
	mux.HandleFunc("GET /api/orders/{id}", admin(orderHandler.HandleGet))
	mux.HandleFunc("PUT /api/orders/{id}/status", admin(orderHandler.HandleUpdateStatus))
	mux.HandleFunc("DELETE /api/orders/{id}", admin(orderHandler.HandleDelete))

	mux.HandleFunc("GET /api/analytics", admin(analyticsHandler.HandleAnalytics))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
