// Package app wires configuration, analysis, transports and Kafka into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcapi "call-compliance-analyzer/internal/api/grpc"
	"call-compliance-analyzer/internal/config"
	"call-compliance-analyzer/internal/events"
	apihttp "call-compliance-analyzer/internal/http"
	"call-compliance-analyzer/internal/observability"
	"call-compliance-analyzer/internal/observability/logging"
	"call-compliance-analyzer/internal/observability/metrics"
	"call-compliance-analyzer/internal/patterns"
	"call-compliance-analyzer/internal/schema"
	"call-compliance-analyzer/internal/service/analysis"
	"call-compliance-analyzer/internal/service/classify"
	"call-compliance-analyzer/internal/service/classify/mock"
	"call-compliance-analyzer/internal/service/session"
)

const shutdownTimeout = 10 * time.Second

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Analyzer  *analysis.Analyzer
	Publisher *events.Publisher
	Consumer  *events.Consumer

	metrics      *metrics.Metrics
	gatherer     prometheus.Gatherer
	grpcServer   *grpc.Server
	healthServer *health.Server
	httpHandler  http.Handler
	ready        atomic.Bool
}

// Option configures an Application.
type Option func(*Application)

// WithRegistry registers metrics on reg instead of the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *Application) {
		a.metrics = metrics.NewMetrics(reg)
		a.gatherer = reg
	}
}

// New constructs an Application from the provided configuration.
func New(cfg *config.Config, opts ...Option) (*Application, error) {
	a := &Application{
		Cfg:      cfg,
		metrics:  metrics.DefaultMetrics,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(a)
	}

	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})
	a.Logger = logging.WithComponent("application")

	set, err := patterns.LoadFile(cfg.Analysis.PatternsFile)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	defaultKinds, err := analysis.ParseKinds(cfg.Analysis.DefaultKinds)
	if err != nil {
		return nil, fmt.Errorf("default analyses: %w", err)
	}
	classifier, err := newClassifier(cfg.Analysis.Classifier, set)
	if err != nil {
		return nil, err
	}
	defaultApproach, err := analysis.ParseApproach(cfg.Analysis.DefaultApproach)
	if err != nil {
		return nil, fmt.Errorf("default approach: %w", err)
	}
	validator, err := schema.New(a.metrics)
	if err != nil {
		return nil, fmt.Errorf("schemas: %w", err)
	}

	a.Analyzer = analysis.New(set,
		analysis.WithMetrics(a.metrics),
		analysis.WithWorkers(cfg.Analysis.BatchWorkers),
		analysis.WithClassifier(classifier),
		analysis.WithDefaultApproach(defaultApproach),
	)
	if _, err := a.Analyzer.ResolveApproach(""); err != nil {
		return nil, fmt.Errorf("default approach: %w", err)
	}

	a.Publisher = events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicReports:    cfg.Kafka.TopicReports,
		TopicViolations: cfg.Kafka.TopicViolations,
		Principal:       cfg.Kafka.Principal,
	}, events.WithMetrics(a.metrics), events.WithValidator(validator))

	a.Consumer = events.NewConsumer(&events.ConsumerConfig{
		Enabled: cfg.Kafka.Enabled,
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.TopicTranscripts,
		GroupID: cfg.Kafka.GroupID,
	}, a.Analyzer, a.Publisher, validator)

	a.grpcServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(a.metrics)),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(a.metrics)),
	)
	a.healthServer = health.NewServer()
	grpc_health_v1.RegisterHealthServer(a.grpcServer, a.healthServer)
	grpcapi.Register(a.grpcServer, grpcapi.NewServer(a.Analyzer, a.Publisher, session.Limits{
		MaxUtterances: cfg.Session.MaxUtterances,
		MaxDuration:   cfg.Session.MaxDuration,
	}, defaultKinds))
	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(a.grpcServer)

	a.httpHandler = apihttp.NewRouter(&apihttp.Handlers{
		Analyzer:     a.Analyzer,
		Publisher:    a.Publisher,
		DefaultKinds: defaultKinds,
		Ready:        a.Ready,
	})

	a.Logger.Info().
		Int("patterns", len(set.Names(patterns.CategorySensitiveDisclosure))).
		Bool("kafka", cfg.Kafka.Enabled).
		Str("classifier", cfg.Analysis.Classifier).
		Msg("Call compliance analyzer application created")
	return a, nil
}

// newClassifier builds the classifier named in the config. A nil result
// disables the classifier approach.
func newClassifier(name string, set *patterns.Set) (classify.Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, nil
	case "mock":
		return mock.NewOffline(set), nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", name)
	}
}

// Ready reports whether all listeners are serving.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// HTTPHandler returns the API router.
func (a *Application) HTTPHandler() http.Handler {
	return a.httpHandler
}

// Run serves gRPC, HTTP, the observability endpoints and the Kafka consumer
// until ctx is cancelled or one of them fails, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	svc := a.Cfg.Service

	grpcLis, err := net.Listen("tcp", ":"+svc.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	httpLis, err := net.Listen("tcp", ":"+svc.HTTPPort)
	if err != nil {
		grpcLis.Close()
		return fmt.Errorf("listen http: %w", err)
	}

	httpServer := &http.Server{
		Handler:      a.httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	obsServer := observability.NewServer(":"+svc.MetricsPort, a.gatherer, a.Ready)
	if err := obsServer.Start(); err != nil {
		grpcLis.Close()
		httpLis.Close()
		return err
	}

	a.StartupTime = time.Now().UTC()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info().Str("addr", grpcLis.Addr().String()).Msg("gRPC server started")
		if err := a.grpcServer.Serve(grpcLis); err != nil {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.Logger.Info().Str("addr", httpLis.Addr().String()).Msg("HTTP server started")
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	if a.Consumer != nil {
		g.Go(func() error {
			return a.Consumer.Run(gctx)
		})
	}

	a.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	a.healthServer.SetServingStatus(grpcapi.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	a.ready.Store(true)
	a.Logger.Info().Time("startupTime", a.StartupTime).Msg("Call compliance analyzer started")

	g.Go(func() error {
		<-gctx.Done()
		a.shutdown(httpServer, obsServer)
		return nil
	})

	return g.Wait()
}

func (a *Application) shutdown(httpServer *http.Server, obsServer *observability.Server) {
	a.Logger.Info().Msg("Call compliance analyzer shutting down")
	a.ready.Store(false)
	a.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("HTTP server shutdown")
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("Observability server shutdown")
	}
	a.grpcServer.GracefulStop()

	if err := a.Consumer.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Kafka consumer close")
	}
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Kafka publisher close")
	}
}
