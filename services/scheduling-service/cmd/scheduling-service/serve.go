package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/auth"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/config"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/grpcx"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/httpx"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/kafkax"
	otelx "github.com/TariqulIslam2/Smart-Appointment-Manager/libs/otel"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/runtime"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/availability"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/catalog"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/consumer"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/grpcserver"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/handlers"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/scheduling"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC APIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		return err
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		return err
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	b, err := openBackend(ctx, logger)
	if err != nil {
		return err
	}
	defer b.close()
	if config.Bool("MIGRATE_ON_START", true) {
		if err := b.migrate(ctx); err != nil {
			return err
		}
	}
	for _, run := range b.workers {
		go run(ctx)
	}

	readyChecks := []runtime.ReadyCheck{b.ready}
	engineOpts := []scheduling.Option{}

	var rdb *redis.Client
	var invalidator catalog.Invalidator
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer rdb.Close()
		ttl := time.Duration(config.Int("CATALOG_CACHE_TTL_SECONDS", 300)) * time.Second
		cache := catalog.NewCache(b.store, rdb, ttl, logger)
		invalidator = cache
		engineOpts = append(engineOpts, scheduling.WithCatalog(cache))
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: catalog.ReadyCheck(rdb)})
	}

	workStart, workEnd, err := workday()
	if err != nil {
		return err
	}
	engineOpts = append(engineOpts, scheduling.WithWorkday(workStart, workEnd))
	engine := scheduling.NewEngine(b.store, b.sink, logger, engineOpts...)

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
		if topic := config.String("CATALOG_EVENTS_TOPIC", "catalog.events"); topic != "" {
			eventHandler := catalog.NewEventHandler(b.writer, invalidator, logger)
			catalogConsumer := consumer.New(logger, b.inbox, consumer.Config{
				Brokers: brokers,
				GroupID: config.String("KAFKA_GROUP_ID", service),
				Topic:   topic,
			}, eventHandler.Handle)
			go catalogConsumer.Run(ctx)
		}
	}

	var verifier *auth.Verifier
	if config.Bool("AUTH_REQUIRED", false) {
		v := auth.Verifier{
			Secret:   config.String("JWT_SECRET", ""),
			Issuer:   config.String("JWT_ISSUER", ""),
			Audience: config.String("JWT_AUDIENCE", ""),
		}
		if url := config.String("JWKS_URL", ""); url != "" {
			v.JWKS = auth.NewJWKSClient(url, time.Duration(config.Int("JWKS_CACHE_SECONDS", 300))*time.Second)
		}
		if v.Secret == "" && v.JWKS == nil {
			return fmt.Errorf("AUTH_REQUIRED needs JWT_SECRET or JWKS_URL")
		}
		verifier = &v
	}

	if err := startGrpcServer(ctx, logger, grpcPort, engine, verifier); err != nil {
		return err
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	api := http.NewServeMux()
	handlers.NewSchedulingHandler(engine, logger).Register(api)
	var apiHandler http.Handler = handlers.WithActor(api)
	if verifier != nil {
		apiHandler = auth.RequireAuth(apiHandler, *verifier)
	}
	mux.Handle("/api/", apiHandler)

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods:   config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders:   config.List("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-ID"),
			ExposedHeaders:   []string{httpx.RequestIDHeader, "Retry-After"},
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           time.Duration(config.Int("CORS_MAX_AGE_SECONDS", 600)) * time.Second,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		rateLimit(logger, rdb),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 15))*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}

// rateLimit counts per client in Redis when it is configured so replicas share a
// budget, and in process otherwise.
func rateLimit(logger *slog.Logger, rdb *redis.Client) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 300)
	if rdb != nil {
		return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "scheduling:rl").
			Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	}
	return httpx.NewRateLimiter(limit, time.Minute).Middleware()
}

func workday() (availability.Clock, availability.Clock, error) {
	start, err := availability.ParseClock(config.String("WORKDAY_START", "09:00"))
	if err != nil {
		return 0, 0, fmt.Errorf("WORKDAY_START: %w", err)
	}
	end, err := availability.ParseClock(config.String("WORKDAY_END", "17:00"))
	if err != nil {
		return 0, 0, fmt.Errorf("WORKDAY_END: %w", err)
	}
	if end <= start {
		return 0, 0, fmt.Errorf("WORKDAY_END must be after WORKDAY_START")
	}
	return start, end, nil
}

func startGrpcServer(ctx context.Context, logger *slog.Logger, port string, engine *scheduling.Engine, verifier *auth.Verifier) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	var opts []grpc.ServerOption
	if verifier != nil {
		opts = append(opts, grpc.ChainUnaryInterceptor(grpcserver.UnaryAuthInterceptor(*verifier)))
	}
	srv := grpcx.NewServer(logger, opts...)
	grpcserver.Register(srv, engine, logger)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	return nil
}
