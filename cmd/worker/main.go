// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/leadflow-backend/internal/config"
	"github.com/unclebandit/leadflow-backend/internal/db"
	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/gate"
	"github.com/unclebandit/leadflow-backend/internal/logging"
	"github.com/unclebandit/leadflow-backend/internal/queue"
	"github.com/unclebandit/leadflow-backend/internal/repository"
	"github.com/unclebandit/leadflow-backend/internal/service"
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
		zap.L().Fatal("worker stopped", zap.Error(err))
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the worker")
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return err
	}
	pool, err := db.Open(ctx, dsn, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	q, err := queue.DialAMQP(cfg.AMQPURL)
	if err != nil {
		return err
	}
	defer q.Close()

	campaignRepo := &repository.CampaignRepository{DB: pool}
	campaignService := &service.CampaignService{
		CampaignRepo:    campaignRepo,
		ContactRepo:     &repository.ContactRepository{DB: pool},
		IntegrationRepo: &repository.IntegrationRepository{DB: pool},
		UserRepo:        &repository.UserRepository{DB: pool},
		Policy:          gate.DefaultPolicy,
		Events:          &queue.EventPublisher{Queue: q, Topic: cfg.EventsQueue},
	}

	if err := startConsumers(ctx, q, cfg, campaignService); err != nil {
		return err
	}

	zap.L().Info("Worker running, waiting for messages...",
		zap.String("status_queue", cfg.StatusQueue), zap.String("events_queue", cfg.EventsQueue))
	<-ctx.Done()
	return nil
}

func startConsumers(ctx context.Context, q queue.Queue, cfg config.Config, svc *service.CampaignService) error {
	if err := queue.StartStatusUpdateSubscriber(q, cfg.StatusQueue, statusApplier(ctx, svc), isPermanent); err != nil {
		return err
	}
	return queue.StartEventLogger(q, cfg.EventsQueue)
}

func statusApplier(ctx context.Context, svc *service.CampaignService) queue.StatusApplier {
	return func(campaignID, status string) error {
		return svc.ApplyEngineStatus(ctx, campaignID, status)
	}
}

// isPermanent reports updates that will never apply no matter how often they are retried.
func isPermanent(err error) bool {
	var validation *appErrors.ValidationError
	return errors.As(err, &validation) || appErrors.IsNotFound(err)
}
