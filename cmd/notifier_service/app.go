package notifierservice

import (
	"context"

	"ride-pool/internal/general/config"
	"ride-pool/internal/general/logger"
	"ride-pool/internal/general/postgres"
	"ride-pool/internal/general/rabbitmq"
	"ride-pool/internal/software/notifier/service"
)

// Run wires the notifier and blocks until ctx is cancelled.
func Run(ctx context.Context, prefetch int) error {
	logger := logger.New("notifier-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// the directory resolves recipient addresses
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()
	directory := postgres.NewDirectoryRepo(pool)

	rmq, err := rabbitmq.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	mailer := service.NewLogMailer(logger)
	svc := service.NewNotifierService(logger, rmq, directory, mailer, prefetch)

	logger.Info(ctx, "service_started", "Notifier Service consuming ride events", map[string]any{
		"prefetch": prefetch,
	})

	return svc.Run(ctx)
}
