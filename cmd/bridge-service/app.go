package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"streambridge/internal/config"
	"streambridge/internal/constants"
	"streambridge/internal/engine"
	"streambridge/internal/logger"
	"streambridge/internal/social"
	"streambridge/internal/translate"
	"streambridge/internal/watermark"
	"streambridge/pkg/bootstrap"
	"streambridge/pkg/health"
	"streambridge/pkg/metrics"
)

type App struct {
	*bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector
	redis       *redis.Client
	engine      *engine.Engine
	server      *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("bridge-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initRedis(ctx); err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}

	if err := a.InitBroker(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initEngine(); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	metrics.RegisterBridgeMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initHTTPServer(); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb
	return nil
}

func (a *App) initEngine() error {
	strategy, err := translate.NewStrategy(a.Config.Account.Addressing)
	if err != nil {
		return err
	}

	baseRepo := watermark.NewRepository(a.redis)
	var repo watermark.Repository = baseRepo
	if a.Config.CircuitBreaker.Enabled {
		repo = watermark.NewCircuitBreakerRepository(baseRepo, a.Config.CircuitBreaker)
		a.Logger.Infow("Circuit breaker enabled for watermark repository")
	}

	client := social.NewHTTPClient(social.ClientConfig{
		Credentials: social.Credentials{
			ConsumerKey:       a.Config.Account.ConsumerKey,
			ConsumerSecret:    a.Config.Account.ConsumerSecret,
			AccessToken:       a.Config.Account.AccessToken,
			AccessTokenSecret: a.Config.Account.AccessTokenSecret,
		},
	}, a.Logger)

	a.engine = engine.New(
		a.Config.Account,
		a.Config.Stream,
		translate.New(strategy),
		watermark.New(repo, a.Config.Account.ScreenName),
		a.Publisher,
		client,
		a.Logger,
	)
	return nil
}

func (a *App) initHTTPServer() error {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	healthRegistry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      mux,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds * time.Second,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return a.engine.Run(gCtx)
	})

	g.Go(func() error {
		return a.Consumer.ConsumeOutbound(gCtx, a.engine.HandleOutbound)
	})

	runErr := g.Wait()

	if err := a.Shutdown(context.Background()); err != nil {
		a.Logger.Errorw("Shutdown finished with errors", "error", err)
	}

	return runErr
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Infow("Shutting down bridge service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.engine != nil {
			a.engine.StopAll()
		}

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownRedis(a.redis)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
