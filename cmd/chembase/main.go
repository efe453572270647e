package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ChemBase/internal/catalog"
	"ChemBase/internal/config"
	"ChemBase/internal/generator"
	"ChemBase/internal/telemetry"
	"ChemBase/pkg/kit"
)

func main() {
	service := "chembase"
	cfg := config.Load()

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal("init tracing failed", zap.Error(err))
	}

	slot, closeSlot, err := openSlot(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("open storage failed", zap.Error(err), zap.String("driver", cfg.Storage.Driver))
	}
	log.Info("storage ready", zap.String("driver", cfg.Storage.Driver))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &catalog.Server{
		Store: catalog.NewStore(slot, log.With(zap.String("component", "store")), reg),
		Generator: generator.New(generator.Config{
			APIKey:  cfg.Generator.APIKey,
			Model:   cfg.Generator.Model,
			BaseURL: cfg.Generator.BaseURL,
		}, log.With(zap.String("component", "generator")), reg),
		Log: log,
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   cfg.MetricsToken,
	})

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log, shutdownTracing, closeSlot); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openSlot(ctx context.Context, cfg config.StorageConfig) (catalog.Slot, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Driver {
	case config.StorageMemory:
		return catalog.NewMemSlot(), noop, nil
	case config.StorageFile:
		s, err := catalog.NewFileSlot(cfg.DataDir)
		return s, noop, err
	case config.StorageSQLite:
		s, err := catalog.OpenSQLiteSlot(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func(context.Context) error { return s.Close() }, nil
	case config.StoragePostgres:
		s, err := catalog.OpenPostgresSlot(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func(context.Context) error { return s.Close() }, nil
	case config.StorageS3:
		s, err := catalog.NewS3Slot(ctx, catalog.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
			Prefix:    cfg.S3Prefix,
		})
		return s, noop, err
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
