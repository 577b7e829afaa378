package poolservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"ride-pool/internal/general/broadcast"
	"ride-pool/internal/general/config"
	"ride-pool/internal/general/jwt"
	"ride-pool/internal/general/logger"
	"ride-pool/internal/general/mongo"
	"ride-pool/internal/general/postgres"
	"ride-pool/internal/general/rabbitmq"
	"ride-pool/internal/general/websocket"
	"ride-pool/internal/observability"
	chatservice "ride-pool/internal/software/chat/service"
	"ride-pool/internal/software/pool/handler"
	"ride-pool/internal/software/pool/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run wires the pool service and blocks until ctx is cancelled.
func Run(ctx context.Context, maxConcurrent int) error {
	// set up a new logger and context with a static request ID for startup logs
	logger := logger.New("pool-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// connect to MongoDB (ride records and chat log)
	mongoClient, db, err := mongo.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "mongo_connection_failed", "Failed to connect to MongoDB", err, nil)
		return err
	}
	defer func() {
		dcCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dcCtx)
	}()

	rideStore := mongo.NewRideStore(db)
	messageLog := mongo.NewMessageLog(db)
	if err := rideStore.EnsureIndexes(ctx); err != nil {
		logger.Error(ctx, "index_setup_failed", "Failed to ensure ride indexes", err, nil)
		return err
	}
	if err := messageLog.EnsureIndexes(ctx); err != nil {
		logger.Error(ctx, "index_setup_failed", "Failed to ensure chat indexes", err, nil)
		return err
	}

	// set up the Postgres directory pool (participant lookups)
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()
	directory := postgres.NewDirectoryRepo(pool)

	// connect to RabbitMQ
	rmq, err := rabbitmq.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()
	pub := rabbitmq.NewMQPublisher(rmq)

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// realtime hub; Redis fans broadcasts out across instances when configured
	var bridge broadcast.Bridge = broadcast.Nop{}
	if cfg.Redis.Addr != "" {
		rb, err := broadcast.NewRedisBridge(ctx, cfg.Redis.Addr, cfg.Redis.Password, logger)
		if err != nil {
			logger.Error(ctx, "redis_connection_failed", "Failed to connect to Redis", err, nil)
			return err
		}
		defer rb.Close()
		bridge = rb
	}
	hub := websocket.NewHub(bridge, logger)
	go func() {
		if err := hub.RunBridge(ctx); err != nil {
			logger.Error(ctx, "bridge_stopped", "Broadcast bridge terminated", err, nil)
		}
	}()

	// set up the services
	rideSvc := service.NewPoolService(logger, rideStore, messageLog, directory, pub)
	chatSvc := chatservice.NewChatService(logger, rideStore, messageLog)
	socket := websocket.NewChatSocket(logger, jwtManager, chatSvc, hub)

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewPoolHTTPHandler(rideSvc, chatSvc, logger, jwtManager, socket)
	httpHandler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// metrics first, then the concurrency limiter
	limitedHandler := withConcurrencyLimit(maxConcurrent, observability.MetricsMiddleware(mux))

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.PoolServicePort),
		Handler:           limitedHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Pool Service started on port %d", cfg.Services.PoolServicePort),
		map[string]any{"port": cfg.Services.PoolServicePort, "max_concurrent": maxConcurrent},
	)

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation or server error
	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Graceful shutdown in progress", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Services.PoolServicePort})
			return err
		}
		return nil
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
