// Package app собирает витрину IndiaKart из конфигурации и управляет
// жизненным циклом серверов и фоновых воркеров.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/indiakart/internal/cart"
	"github.com/vladislavdragonenkov/indiakart/internal/catalog"
	"github.com/vladislavdragonenkov/indiakart/internal/checkout"
	"github.com/vladislavdragonenkov/indiakart/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/indiakart/internal/health"
	"github.com/vladislavdragonenkov/indiakart/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/indiakart/internal/service/grpc"
	"github.com/vladislavdragonenkov/indiakart/internal/service/outbox"
	"github.com/vladislavdragonenkov/indiakart/internal/service/sweeper"
	"github.com/vladislavdragonenkov/indiakart/internal/telemetry"
	"github.com/vladislavdragonenkov/indiakart/internal/version"
	"github.com/vladislavdragonenkov/indiakart/internal/web"
)

const shutdownTimeout = 5 * time.Second

// Run запускает витрину и блокируется до отмены ctx или ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       cfg.OTelEndpoint,
		ServiceName:    ServiceName,
		ServiceVersion: version.GetVersion(),
	})
	if err != nil {
		logger.WithError(err).Warn("tracing is disabled")
	}
	defer shutdownTracer(shutdownTracing, logger)

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	publishers, err := initPublishers(cfg, logger)
	if err != nil {
		return err
	}
	defer publishers.close(logger)

	storefrontMetrics := metrics.NewStorefrontMetrics()
	products := catalog.NewDefault()
	carts := cart.NewManager(deps.snapshots,
		cart.WithLogger(logger.WithField("layer", "cart")),
		cart.WithAddPolicy(cfg.CartAddPolicy),
		cart.WithMutationHook(storefrontMetrics.ObserveCartMutation),
	)
	checkoutSvc := checkout.NewService(cfg.Pricing,
		checkout.WithLogger(logger.WithField("layer", "checkout")),
		checkout.WithOutbox(deps.outboxRepo),
		checkout.WithObserver(storefrontMetrics),
	)

	storefront, err := web.NewServer(carts, checkoutSvc, products,
		web.WithLogger(logger.WithField("layer", "http")),
		web.WithObserver(storefrontMetrics),
		web.WithOutbox(deps.outboxRepo),
		web.WithDevelopment(cfg.Development()),
		web.WithSessionTTL(cfg.SessionTTL),
	)
	if err != nil {
		return err
	}

	grpcServer, healthServer := newGRPCServer(
		grpcsvc.NewCartService(carts, checkoutSvc, products, logger.WithField("layer", "grpc")),
		logger,
	)

	healthHandler := healthcheck.NewHandler(version.Get())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	workersCtx, stopWorkers := context.WithCancel(ctx)
	workersDone := startWorkers(workersCtx, cfg, deps, publishers, storefrontMetrics, logger)

	httpSrv := &http.Server{Handler: storefront, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC сервер слушает %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.Infof("витрина доступна по адресу %s", httpLis.Addr())
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		runErr = ctx.Err()
	case err := <-errCh:
		if !errors.Is(err, grpc.ErrServerStopped) {
			runErr = err
		}
	}

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownHTTP(httpSrv, logger)
	stopGRPC(grpcServer, logger)
	shutdownHTTP(metricsSrv, logger)
	shutdownWorkers(stopWorkers, workersDone, logger)

	return runErr
}

// newGRPCServer регистрирует CartService, health и reflection.
func newGRPCServer(cartService grpcsvc.CartServiceServer, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
	)
	grpcsvc.RegisterCartServiceServer(grpcServer, cartService)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// reflection для grpcurl
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	return grpcServer, healthServer
}

// startWorkers запускает outbox worker и sweeper (снимки и outbox). Канал
// закрывается, когда оба завершились.
func startWorkers(ctx context.Context, cfg Config, deps runtimeDependencies, publishers eventPublishers, observer *metrics.StorefrontMetrics, logger *log.Entry) <-chan struct{} {
	options := []outbox.Option{
		outbox.WithLogger(logger.WithField("layer", "outbox")),
		outbox.WithObserver(observer),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if publishers.dlq != nil {
		options = append(options, outbox.WithDLQPublisher(publishers.dlq))
	}
	worker := outbox.NewWorker(deps.outboxRepo, publishers.publisher, options...)

	sweeperOptions := []sweeper.Option{
		sweeper.WithLogger(logger.WithField("layer", "sweeper")),
		sweeper.WithObserver(observer),
		sweeper.WithInterval(cfg.SweepInterval),
		sweeper.WithBatchSize(cfg.SweepBatchSize),
	}
	if pruner, ok := deps.outboxRepo.(domain.OutboxPruner); ok {
		sweeperOptions = append(sweeperOptions, sweeper.WithOutboxRetention(pruner, cfg.OutboxRetention))
	}
	snapshotSweeper := sweeper.New(deps.sweeper, sweeperOptions...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		finished := make(chan struct{})
		go func() {
			defer close(finished)
			snapshotSweeper.Run(ctx)
		}()
		worker.Run(ctx)
		<-finished
	}()
	return done
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health probes.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

// stopGRPC ждёт завершения активных вызовов не дольше shutdownTimeout.
func stopGRPC(srv *grpc.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}

func shutdownWorkers(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warn("background workers did not stop in time")
	}
}

func shutdownTracer(shutdown telemetry.ShutdownFunc, logger *log.Entry) {
	if shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.WithError(err).Warn("failed to flush traces")
	}
}
