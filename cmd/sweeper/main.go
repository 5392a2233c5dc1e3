// Command sweeper runs one expiry sweep and exits. It is meant for cron
// deployments that run the API with SWEEPER_ENABLED=false.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"ticketing/api/routes"
	"ticketing/internal/notifications"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/database"
	"ticketing/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	appLogger := logger.GetDefault()
	_ = godotenv.Load()

	cfg := config.Load()
	cfg.Database.AutoMigrate = false

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		return 1
	}
	defer db.Close()

	publisher := notifications.NewLogPublisher(appLogger)
	if cfg.Kafka.Enabled {
		if kp, err := notifications.NewKafkaPublisher(notifications.DefaultKafkaProducerConfig(cfg.Kafka)); err != nil {
			appLogger.Warn("Kafka unavailable, ticket events are logged only", slog.Any("error", err))
		} else {
			defer kp.Close()
			return sweepOnce(routes.NewRouter(cfg, db, kp), cfg, appLogger)
		}
	}
	return sweepOnce(routes.NewRouter(cfg, db, publisher), cfg, appLogger)
}

func sweepOnce(router *routes.Router, cfg *config.Config, appLogger *logger.Logger) int {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sweeper.LockTTL+10*time.Second)
	defer cancel()

	result, err := router.SweepService().Sweep(ctx)
	if result != nil {
		_ = json.NewEncoder(os.Stdout).Encode(result)
	}
	if err != nil {
		appLogger.Error("sweep failed", slog.Any("error", err))
		return 1
	}
	return 0
}
