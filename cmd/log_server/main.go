package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"bulk_mail_client/internal/pkg/log_collector"
	"bulk_mail_client/internal/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	logger := logging.New(os.Stdout, os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))

	dir := getenv("LOG_DIR", "/logs")
	collector, err := log_collector.NewCollector(afero.NewOsFs(), dir, logger)
	if err != nil {
		logger.Error("failed to start log collector", "error", err)
		os.Exit(1)
	}

	port := getenv("PORT", "8081")
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           collector.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("log server starting", "port", port, "dir", dir)
	if err := server.ListenAndServe(); err != nil {
		logger.Error("log server stopped", "error", err)
		os.Exit(1)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
