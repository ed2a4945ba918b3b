package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/relaydesk/relaydesk/internal/config"
	"github.com/relaydesk/relaydesk/internal/crisp"
	"github.com/relaydesk/relaydesk/internal/dedup"
	"github.com/relaydesk/relaydesk/internal/forward"
	"github.com/relaydesk/relaydesk/internal/geo"
	"github.com/relaydesk/relaydesk/internal/mailer"
	"github.com/relaydesk/relaydesk/internal/ratelimit"
	"github.com/relaydesk/relaydesk/internal/reply"
	"github.com/relaydesk/relaydesk/internal/routing"
	"github.com/relaydesk/relaydesk/internal/submission"
	"github.com/relaydesk/relaydesk/internal/web"
	"github.com/relaydesk/relaydesk/internal/web/handlers"
)

func main() {
	// A missing .env is fine in production, where config comes from the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Routing table
	table, err := routing.Load(cfg.RoutingCSVPath)
	if err != nil {
		slog.Warn("routing table unavailable, all countries fall back to the general office",
			"path", cfg.RoutingCSVPath, "error", err)
		table = routing.NewTable(nil)
	} else {
		slog.Info("routing table loaded", "path", cfg.RoutingCSVPath, "entries", table.Len())
	}

	// Clients
	crispClient := crisp.NewClient(cfg.CrispBaseURL, cfg.CrispWebsiteID, cfg.CrispIdentifier, cfg.CrispKey)
	geoClient := geo.NewClient(cfg.GeoBaseURL, cfg.GeoAPIKey)
	mailClient := mailer.NewClient(cfg.MailgunBaseURL, cfg.MailgunAPIKey, cfg.MailgunDomain, cfg.FromEmail, cfg.FromName)

	// Services
	defaults := routing.Defaults{
		GeneralOfficeAgent: cfg.GeneralOfficeAgentID,
		HelpDeskAgent:      cfg.HelpDeskAgentID,
	}
	processor := submission.NewProcessor(crispClient, mailClient, crispClient, table, defaults)
	replyRouter := reply.NewRouter(crispClient, mailClient, dedup.NewSet(cfg.DedupCapacity))
	forwarder := forward.NewService(crispClient, mailClient, table, cfg.HelpDeskAgentID)

	// Rate limiter
	limiter := ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(processor, geoClient, replyRouter)
	actionHandler := handlers.NewActionHandler(forwarder)

	// Router
	router := web.NewRouter(web.RouterDeps{
		WebhookHandler: webhookHandler,
		ActionHandler:  actionHandler,
		Limiter:        limiter,
	})

	// Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("RelayDesk starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
