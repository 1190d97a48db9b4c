// cmd/migrate/main.go
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/leadflow-backend/internal/config"
	"github.com/unclebandit/leadflow-backend/internal/db"
	"github.com/unclebandit/leadflow-backend/internal/logging"
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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn, err := cfg.DSN()
	if err != nil {
		zap.L().Fatal("database not configured", zap.Error(err))
	}
	pool, err := db.Open(ctx, dsn, 2)
	if err != nil {
		zap.L().Fatal("connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool); err != nil {
		zap.L().Fatal("migrate", zap.Error(err))
	}
	zap.L().Info("✅ migrations applied")
}
