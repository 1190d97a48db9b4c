// cmd/server/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/leadflow-backend/internal/auth"
	"github.com/unclebandit/leadflow-backend/internal/config"
	"github.com/unclebandit/leadflow-backend/internal/controller"
	"github.com/unclebandit/leadflow-backend/internal/db"
	"github.com/unclebandit/leadflow-backend/internal/engine"
	"github.com/unclebandit/leadflow-backend/internal/gate"
	"github.com/unclebandit/leadflow-backend/internal/handler"
	"github.com/unclebandit/leadflow-backend/internal/logging"
	"github.com/unclebandit/leadflow-backend/internal/metrics"
	"github.com/unclebandit/leadflow-backend/internal/queue"
	"github.com/unclebandit/leadflow-backend/internal/repository"
	"github.com/unclebandit/leadflow-backend/internal/service"
	"github.com/unclebandit/leadflow-backend/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}
	logger, err := logging.Init(cfg.IsProduction())
	if err != nil {
		log.Fatalf("❌ logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tracing.Init(ctx, "leadflow-server", cfg.OTLPEndpoint); err != nil {
		return err
	}
	defer tracing.Shutdown(context.Background())

	dsn, err := cfg.DSN()
	if err != nil {
		return err
	}
	pool, err := db.Open(ctx, dsn, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	verifier, err := auth.NewVerifier(cfg.AuthJWTSecret)
	if err != nil {
		return err
	}
	if err := gate.DefaultPolicy.Validate(); err != nil {
		return err
	}

	q, closeQueue, err := openQueue(cfg)
	if err != nil {
		return err
	}
	defer closeQueue()
	events := &queue.EventPublisher{Queue: q, Topic: cfg.EventsQueue}

	userRepo := &repository.UserRepository{DB: pool}
	integrationRepo := &repository.IntegrationRepository{DB: pool}
	campaignRepo := &repository.CampaignRepository{DB: pool}
	contactRepo := &repository.ContactRepository{DB: pool}

	engineClient := engine.NewClient(cfg.EngineWebhookURL, cfg.EngineAPIKey, cfg.EngineAuthMode)
	if !engineClient.Configured() {
		zap.L().Warn("⚠️ N8N_WEBHOOK_URL or N8N_API_KEY not set, campaigns will stay pending")
	}

	campaignService := &service.CampaignService{
		CampaignRepo:    campaignRepo,
		ContactRepo:     contactRepo,
		IntegrationRepo: integrationRepo,
		UserRepo:        userRepo,
		Policy:          gate.DefaultPolicy,
		Dispatcher: &service.Dispatcher{
			Campaigns: campaignRepo,
			Engine:    engineClient,
			Timeout:   cfg.DispatchTimeout,
			Events:    events,
		},
		Events:          events,
		BillingEnforced: cfg.BillingEnforced,
	}
	integrationService := &service.IntegrationService{
		Repo:   integrationRepo,
		Policy: gate.DefaultPolicy,
	}

	campaignController := &controller.CampaignController{CampaignService: campaignService}
	integrationController := &controller.IntegrationController{IntegrationService: integrationService}
	engineHandler := &handler.EngineHandler{Service: campaignService, APIKey: cfg.EngineAPIKey}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(pool))
	r.Handle("/metrics", metrics.Init())
	r.Route("/internal", engineHandler.Routes)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, userRepo))
		r.Route("/campaigns", campaignController.Routes)
		r.Route("/integrations", integrationController.Routes)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("🚀 Server running", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	// In-flight dispatches may hold the engine call for the full dispatch timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DispatchTimeout+5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openQueue uses RabbitMQ when AMQP_URL is set. The in-memory fallback gets an
// event logger so published events always have a consumer.
func openQueue(cfg config.Config) (queue.Queue, func(), error) {
	if cfg.AMQPURL != "" {
		q, err := queue.DialAMQP(cfg.AMQPURL)
		if err != nil {
			return nil, nil, err
		}
		return q, func() { q.Close() }, nil
	}

	zap.L().Info("AMQP_URL not set, using in-memory queue")
	q := queue.NewInMemoryQueue()
	if err := queue.StartEventLogger(q, cfg.EventsQueue); err != nil {
		return nil, nil, err
	}
	return q, q.Wait, nil
}

func healthz(pool *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := pool.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}
}
