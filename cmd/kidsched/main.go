package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dukerupert/kidsched/internal/config"
	"github.com/dukerupert/kidsched/internal/database"
	"github.com/dukerupert/kidsched/internal/hass"
	"github.com/dukerupert/kidsched/internal/logging"
	"github.com/dukerupert/kidsched/internal/registry"
	"github.com/dukerupert/kidsched/internal/server"
)

const (
	cleanupInterval = 5 * time.Minute
	viewerIdleTTL   = 12 * time.Hour
	callRetention   = 30 * 24 * time.Hour
)

func main() {
	logger := logging.Setup(os.Getenv("KIDSCHED_LOG_LEVEL"), os.Getenv("KIDSCHED_LOG_FORMAT"))
	registry.PrintBanners(os.Stderr)

	port := envOr("KIDSCHED_PORT", "8080")
	dbPath := envOr("KIDSCHED_DB_PATH", "kidsched.db")

	loc := time.Local
	if tz := os.Getenv("KIDSCHED_TZ"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			logger.Error("invalid KIDSCHED_TZ", "tz", tz, "error", err)
			os.Exit(1)
		}
		loc = l
	}

	settleDelay := time.Duration(0)
	if s := os.Getenv("KIDSCHED_SETTLE_DELAY"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			logger.Error("invalid KIDSCHED_SETTLE_DELAY", "value", s, "error", err)
			os.Exit(1)
		}
		settleDelay = d
	}

	hassURL := os.Getenv("KIDSCHED_HASS_URL")
	if hassURL == "" {
		logger.Error("KIDSCHED_HASS_URL is required, e.g. ws://homeassistant.local:8123/api/websocket")
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := hass.NewClient(hass.Config{
		URL:   hassURL,
		Token: os.Getenv("KIDSCHED_HASS_TOKEN"),
	}, logger.With("component", "hass"))

	srv := server.New(db, client, server.Options{
		Location:       loc,
		SettleDelay:    settleDelay,
		OriginPatterns: splitList(os.Getenv("KIDSCHED_ALLOWED_ORIGINS")),
		SecureCookies:  os.Getenv("KIDSCHED_SECURE_COOKIES") == "true",
	}, logger)

	if entity := os.Getenv("KIDSCHED_ENTITY"); entity != "" {
		cfg, err := config.ParseCardConfig(map[string]any{
			"entity": entity,
			"title":  os.Getenv("KIDSCHED_TITLE"),
		})
		if err != nil {
			logger.Error("invalid default card", "error", err)
			os.Exit(1)
		}
		def, err := srv.SeedDefault(cfg)
		if err != nil {
			logger.Error("failed to seed default card", "error", err)
			os.Exit(1)
		}
		if def != nil {
			logger.Info("created default card", "id", def.ID, "entity", def.Entity)
		}
	}

	client.OnChange(srv.EntityChanged)

	go func() {
		err := client.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("host client stopped", "error", err)
			stop()
		}
	}()

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.Cleanup(viewerIdleTTL, callRetention)
			case <-ctx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("kidsched running", "addr", "http://localhost:"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

