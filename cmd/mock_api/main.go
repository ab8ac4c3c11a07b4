package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"bulk_mail_client/internal/pkg/logging"
	"bulk_mail_client/internal/pkg/mock-api/handlers"
	"bulk_mail_client/internal/pkg/oauth/oauth_service"
)

func main() {
	_ = godotenv.Load()
	logger := logging.New(os.Stdout, os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))

	port := getenv("PORT", "8082")
	publicURL := getenv("PUBLIC_URL", "http://localhost:"+port)

	tokenTTL := time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			logger.Error("invalid TOKEN_TTL", "value", raw, "error", err)
			os.Exit(1)
		}
		tokenTTL = parsed
	}

	storage := oauth_service.NewMemoryStorage()
	stop := make(chan struct{})
	defer close(stop)
	go storage.RunCleanup(time.Hour, stop)

	oauth := oauth_service.NewOAuthService(oauth_service.Config{PublicURL: publicURL, TokenTTL: tokenTTL}, storage)
	server := handlers.NewServer(oauth, handlers.Config{
		FrontendURL: getenv("FRONTEND_URL", "http://127.0.0.1:8765/"),
		Flow:        handlers.Flow(getenv("MOCK_FLOW", string(handlers.FlowRedirect))),
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           handlers.NewRouter(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("mock API server starting",
		slog.String("port", port),
		slog.String("public_url", publicURL),
		slog.String("endpoints", "GET /api/google-login/, GET /oauth/authorize, GET /api/google-callback/, POST /api/upload-csv/, POST /api/send-bulk-emails/, POST /api/logout/, GET /health"),
	)
	if err := httpServer.ListenAndServe(); err != nil {
		logger.Error("mock API server stopped", "error", err)
		os.Exit(1)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
