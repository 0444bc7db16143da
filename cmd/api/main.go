package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/fund-advisor/internal/client"
	"github.com/Dan9191/fund-advisor/internal/config"
	"github.com/Dan9191/fund-advisor/internal/events"
	"github.com/Dan9191/fund-advisor/internal/handler"
	"github.com/Dan9191/fund-advisor/internal/middleware"
	"github.com/Dan9191/fund-advisor/internal/repository"
	"github.com/Dan9191/fund-advisor/internal/scheduler"
	"github.com/Dan9191/fund-advisor/internal/seed"
	"github.com/Dan9191/fund-advisor/internal/service"
	"github.com/Dan9191/fund-advisor/internal/utils/email"
	"github.com/Dan9191/fund-advisor/internal/view"
	"github.com/Dan9191/fund-advisor/internal/web"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := repository.Open(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	repo := repository.NewRepository(db, cfg.DBDriver)
	if err := repo.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := seed.Populate(ctx, repo, logger); err != nil {
		logger.Fatalf("Failed to seed master data: %v", err)
	}

	// Initialize layers
	var publisher events.Publisher = events.NewNoopPublisher()
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to broker: %v", err)
		}
		publisher = p
	}
	defer publisher.Close()

	svc := service.NewService(repo, logger, cfg).WithPublisher(publisher)
	if cfg.MailEnabled() {
		svc.WithMailer(email.NewSender(cfg, logger))
	}
	h := handler.NewHandler(svc, logger)

	formatter, err := view.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		logger.Fatalf("Failed to set up formatting: %v", err)
	}
	opts := []client.Option{client.WithTimeout(cfg.ClientTimeout), client.WithLogger(logger)}
	if cfg.APIToken != "" {
		opts = append(opts, client.WithToken(cfg.APIToken))
	}
	ui, err := web.NewServer(client.New(cfg.APIBaseURL, opts...), formatter, logger)
	if err != nil {
		logger.Fatalf("Failed to load templates: %v", err)
	}

	// Setup router
	r := mux.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer, middleware.Logging(logger))
	api := r.PathPrefix("/api").Subrouter()
	api.Use(chimw.Timeout(cfg.ClientTimeout))
	h.Register(api, middleware.AuthMiddleware(cfg))
	ui.Register(r)

	// Background jobs
	sched := scheduler.NewScheduler(ctx, svc, logger)
	if err := sched.Register(cfg.DriftCron); err != nil {
		logger.Fatalf("Failed to schedule drift check: %v", err)
	}
	if err := sched.Every("@every 5m", "Session sweep", func() {
		if n := ui.Sweep(cfg.SessionTTL); n > 0 {
			logger.Infof("Closed %d idle sessions", n)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule session sweep: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: r,
		// the UI handlers wait on the API, so they get room for two client timeouts
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.ClientTimeout + 10*time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Shutdown failed: %v", err)
		}
	}()

	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}
