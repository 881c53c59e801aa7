package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	domrepo "GridCast/internal/domain/repository"
	"GridCast/internal/handler/api"
	internalrepo "GridCast/internal/repository"
	"GridCast/internal/services/families"
	"GridCast/internal/usecase"
	"GridCast/pkg/cache"
	pkgch "GridCast/pkg/clickhouse"
	"GridCast/pkg/config"
	xhttp "GridCast/pkg/http"
	pkgkafka "GridCast/pkg/kafka"
	applogger "GridCast/pkg/logger"
	"GridCast/pkg/metrics"
	"GridCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideFamilies registers the built-in model families.
func ProvideFamilies() *families.Registry {
	return families.Default()
}

// ProvideFrameSource creates the configured frame source (csv or clickhouse).
func ProvideFrameSource(cfg *config.Config, l *applogger.Logger) (domrepo.FrameSource, error) {
	switch cfg.Data.Source {
	case "clickhouse":
		client, err := provideClickHouseClient(cfg)
		if err != nil {
			return nil, err
		}
		src := internalrepo.NewCHFrameSource(
			client,
			cfg.Data.ClickHouse.Table,
			cfg.Training.Features,
			cfg.Training.Frequency,
			cfg.Data.ClickHouse.From,
			cfg.Data.ClickHouse.To,
			cfg.Data.ClickHouse.TestFrom,
		)
		src.SetLogger(l)
		return src, nil
	default:
		return internalrepo.NewCSVFrameSource(
			cfg.Data.CSV.TrainPath,
			cfg.Data.CSV.TestPath,
			cfg.Training.Features,
			cfg.Training.Frequency,
		), nil
	}
}

func provideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideArtifactStore creates the configured artifact store (fs or sqlite).
func ProvideArtifactStore(cfg *config.Config, l *applogger.Logger) (domrepo.ArtifactStore, error) {
	switch cfg.ArtifactStore.Type {
	case "sqlite":
		store, err := internalrepo.NewSQLiteArtifactStore(cfg.ArtifactStore.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite artifact store: %w", err)
		}
		store.SetLogger(l)
		return store, nil
	default:
		store, err := internalrepo.NewFSArtifactStore(cfg.ArtifactStore.FS.Dir)
		if err != nil {
			return nil, fmt.Errorf("fs artifact store: %w", err)
		}
		store.SetLogger(l)
		return store, nil
	}
}

// ProvideDecisionSink creates the Kafka sink when enabled, otherwise a noop.
func ProvideDecisionSink(cfg *config.Config) (domrepo.DecisionSink, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopDecisionSink{}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaDecisionSink(producer, cfg.Kafka.Topic), nil
}

// ProvideCache creates the configured cache backend, or nil when disabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if cfg.Cache.Type == "redis" {
		host, port := splitHostPort(cfg.Cache.Redis.Addr)
		return cache.NewRedisCache(
			cache.WithRedisHost(host),
			cache.WithRedisPort(port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
	}
	return cache.NewMemoryCache(), nil
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideTrainingConfig maps file configuration onto the training pipeline.
func ProvideTrainingConfig(cfg *config.Config) usecase.TrainingConfig {
	groups := make([]usecase.FamilyCandidates, 0, len(cfg.Training.Candidates))
	for _, g := range cfg.Training.Candidates {
		groups = append(groups, usecase.FamilyCandidates{
			Family: g.Family,
			Params: g.Params,
		})
	}
	return usecase.TrainingConfig{
		Horizon:         cfg.Training.Horizon,
		Lags:            cfg.Training.Lags,
		Features:        cfg.Training.Features,
		Candidates:      groups,
		PrimaryMetric:   cfg.Training.PrimaryMetric,
		SecondaryMetric: cfg.Training.SecondaryMetric,
		Workers:         cfg.Training.Workers,
		Seed:            cfg.Training.Seed,
	}
}

// ProvideTrainer wires the training pipeline.
func ProvideTrainer(
	cfg *config.Config,
	reg *families.Registry,
	store domrepo.ArtifactStore,
	sink domrepo.DecisionSink,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Trainer {
	return usecase.NewTrainer(ProvideTrainingConfig(cfg), reg, store, sink, m, l)
}

// ProvidePredictor wires batch forecasting against the promoted model.
func ProvidePredictor(
	cfg *config.Config,
	reg *families.Registry,
	store domrepo.ArtifactStore,
	l *applogger.Logger,
) *usecase.Predictor {
	return usecase.NewPredictor(reg, store, l, cfg.Training.Horizon)
}

// ProvideAPIHandler wires the registry HTTP handler.
func ProvideAPIHandler(
	cfg *config.Config,
	l *applogger.Logger,
	store domrepo.ArtifactStore,
	c cache.Service,
) xhttp.Handler {
	return api.NewRegistryEchoHandler(l, store, c, cfg.Cache.TTL)
}

// ProvideApp builds the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	trainer *usecase.Trainer,
	predictor *usecase.Predictor,
	source domrepo.FrameSource,
	store domrepo.ArtifactStore,
	sink domrepo.DecisionSink,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, trainer, predictor, source, store, sink, handler)
}
