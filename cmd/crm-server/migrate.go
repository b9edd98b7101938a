package main

import (
	"context"

	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/searchindex"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and create the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func runMigrate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	zapLog := newZapLogger(cfg.Logging)
	defer zapLog.Sync()

	pg, err := connectPostgres(ctx, cfg.Database.Postgres, zapLog)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		return err
	}
	zapLog.Info("schema applied")

	es, err := connectElasticsearch(ctx, cfg.Database.Elasticsearch, zapLog)
	if err != nil {
		return err
	}
	if es != nil {
		idx := searchindex.NewElasticIndex(es.Client, cfg.Database.Elasticsearch.Index, logger.NewZapAdapter(zapLog))
		if err := idx.EnsureIndex(ctx); err != nil {
			return err
		}
		zapLog.Info("search index ready", zap.String("index", cfg.Database.Elasticsearch.Index))
	}
	return nil
}
