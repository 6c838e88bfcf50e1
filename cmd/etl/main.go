package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/gerontech-demand-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/gerontech-demand-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/gerontech-demand-etl/internal/adapter/kafka"
	"github.com/couchcryptid/gerontech-demand-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/gerontech-demand-etl/internal/config"
	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/couchcryptid/gerontech-demand-etl/internal/ingest"
	"github.com/couchcryptid/gerontech-demand-etl/internal/observability"
	"github.com/couchcryptid/gerontech-demand-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	params, err := loadParams(cfg)
	if err != nil {
		logger.Error("failed to load parameters", "path", cfg.ParamsFile, "error", err)
		return 1
	}

	reader := ingest.NewReader(params, logger, metrics)
	extractor := ingest.NewExtractor(reader, ingest.FilesFromConfig(cfg))

	var optional []pipeline.Loader
	if cfg.XLSXEnabled {
		optional = append(optional, xlsx.NewWriter(cfg.OutputDir, logger))
		logger.Info("workbook export enabled")
	}
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		optional = append(optional, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	p := pipeline.New(params, extractor, csvfile.NewWriter(cfg.OutputDir, logger), optional, logger, metrics)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, prometheus.DefaultGatherer, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	_, runErr := p.Run(ctx)
	if runErr != nil {
		logger.Error("pipeline failed", "error", runErr)
	}

	if cfg.MetricsFile != "" {
		if err := observability.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("metrics textfile write failed", "path", cfg.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		return 1
	}
	return 0
}

func loadParams(cfg *config.Config) (*domain.Params, error) {
	if cfg.ParamsFile == "" {
		return domain.DefaultParams()
	}
	return domain.LoadParams(cfg.ParamsFile)
}
