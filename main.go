package main

import (
	stdlog "log"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/username/purchasesync/backend/src/config"
	"github.com/username/purchasesync/backend/src/database"
	"github.com/username/purchasesync/backend/src/handlers"
	"github.com/username/purchasesync/backend/src/logger"
	"github.com/username/purchasesync/backend/src/security"
	"github.com/username/purchasesync/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg := config.Load()
	logger.InitLogger(cfg.LogLevel)
	logger.L.Info("PurchaseSync backend server starting...")

	logger.L.Info("Initializing database...", "path", cfg.DatabasePath)
	database.InitDB(cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing participants cache...")
	participantsCache := cache.New(5*time.Minute, 10*time.Minute)

	logger.L.Info("Initializing services and handlers...")
	pyrusClient := services.NewPyrusClient(cfg)
	b2bClient := services.NewB2BClient(cfg)
	notifyService := services.NewNotifyService(cfg)
	syncService := services.NewSyncService(pyrusClient, b2bClient, database.DB, notifyService, participantsCache)

	verifier := security.NewSignatureVerifier(cfg.WebhookSecret)
	syncHandler := handlers.NewSyncHandler(syncService, verifier, cfg.MaxWebhookBodyBytes)

	logger.L.Info("Configuring routes...")
	mux := http.NewServeMux()
	mux.HandleFunc("POST /create-b2b/{purchaseId}", syncHandler.HandleCreateB2B)
	mux.HandleFunc("GET /load-participants/{purchaseId}", syncHandler.HandleLoadParticipants)
	mux.HandleFunc("GET /healthz", handlers.HandleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	logger.L.Info("Applying global middleware...")
	finalHandler := handlers.RequestIDMiddleware(rateLimitMiddleware(mux))

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
