package main

import (
	"net/http"

	"github.com/sirupsen/logrus"

	httphandlers "moneta/internal/interfaces/http"
	"moneta/internal/shared/config"
	"moneta/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Provider aggregation
	mux.HandleFunc("GET /api/providers", deps.ProviderHandler.HandleProviders)
	mux.HandleFunc("POST /api/providers/{provider}/status", deps.ProviderHandler.HandleStatus)
	mux.HandleFunc("POST /api/providers/{provider}/metadata", deps.ProviderHandler.HandleMetadata)
	mux.HandleFunc("POST /api/providers/{provider}/cash", deps.ProviderHandler.HandleCash)
	mux.HandleFunc("POST /api/providers/{provider}/accounts", deps.ProviderHandler.HandleAccounts)
	mux.HandleFunc("POST /api/providers/{provider}/portfolio", deps.ProviderHandler.HandlePortfolio)
	mux.HandleFunc("POST /api/providers/{provider}/transactions", deps.ProviderHandler.HandleTransactions)
	mux.HandleFunc("POST /api/providers/{provider}/orders", deps.ProviderHandler.HandleOrders)
	mux.HandleFunc("POST /api/providers/{provider}/dividends", deps.ProviderHandler.HandleDividends)

	// Credential administration
	mux.HandleFunc("POST /api/secret", deps.SecretHandler.HandleSetSecret)
	mux.HandleFunc("GET /api/secret/{name}", deps.SecretHandler.HandleGetSecret)

	// Apply global middleware
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	handler := middleware.Logging(rateLimiter.Middleware(middleware.CORS(cfg.Server.AllowedHosts)(mux)))

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(middleware.Tracing(handler))
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		logrus.Info("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
