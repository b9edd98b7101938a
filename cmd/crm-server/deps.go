package main

import (
	"context"
	"time"

	"crm-assistant/internal/common/config"
	"crm-assistant/internal/common/database"
	"crm-assistant/internal/common/logger"

	"go.uber.org/zap"
)

func newZapLogger(cfg config.LoggingConfig) *zap.Logger {
	return logger.NewWithOutput(cfg.Level, cfg.Format, cfg.Output, logger.Rotation{
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
}

func connectPostgres(ctx context.Context, cfg config.PostgresConfig, zapLog *zap.Logger) (*database.PostgresClient, error) {
	var pg *database.PostgresClient
	err := retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			_ = pg.Close()
			return err
		}
		return nil
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	zapLog.Info("PostgreSQL connected successfully")
	return pg, nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, zapLog *zap.Logger) (*database.RedisClient, error) {
	var rdb *database.RedisClient
	err := retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		return nil, err
	}
	zapLog.Info("Redis connected successfully")
	return rdb, nil
}

// connectElasticsearch returns nil when the index is disabled.
func connectElasticsearch(ctx context.Context, cfg config.ElasticsearchConfig, zapLog *zap.Logger) (*database.ElasticsearchClient, error) {
	if !cfg.Enabled {
		zapLog.Info("Elasticsearch disabled, company search unavailable")
		return nil, nil
	}
	var es *database.ElasticsearchClient
	err := retryWithBackoff(func() error {
		var err error
		es, err = database.NewElasticsearch(cfg)
		if err != nil {
			return err
		}
		return es.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		return nil, err
	}
	zapLog.Info("Elasticsearch connected successfully")
	return es, nil
}
