// Command activity-consumer reads medication.taken events from RabbitMQ and
// appends them to an activity log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/medication-adherence/internal/config"
	"github.com/iliyamo/medication-adherence/internal/logging"
	"github.com/iliyamo/medication-adherence/internal/queue"
)

func main() {
	_ = godotenv.Load()
	logging.Init(logging.Config{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})

	logPath := os.Getenv("ACTIVITY_LOG_PATH")
	if logPath == "" {
		logPath = "logs/activity.log"
	}
	c := &queue.Consumer{URL: config.RabbitMQURL(), LogPath: logPath}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("log", logPath).Msg("activity consumer starting")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("activity consumer")
	}
}
