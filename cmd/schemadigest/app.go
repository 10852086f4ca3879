package main

import (
	"context"

	"github.com/koustreak/schemadigest/internal/config"
	"github.com/koustreak/schemadigest/internal/database"
	"github.com/koustreak/schemadigest/internal/database/connect"
	"github.com/koustreak/schemadigest/internal/digest"
	"github.com/koustreak/schemadigest/internal/filestore"
	"github.com/koustreak/schemadigest/internal/filestore/minio"
	"github.com/koustreak/schemadigest/internal/logger"
	"github.com/koustreak/schemadigest/internal/tableinfo"
)

// app holds everything a subcommand needs once configuration is resolved.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      database.DB
	builder *digest.Builder
}

func openApp(ctx context.Context, path string, o config.Overrides) (*app, error) {
	cfg, err := config.LoadWithOverrides(path, o)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LoggerConfig())

	a := &app{cfg: cfg, log: log}
	qctx, cancel := a.queryContext(ctx)
	defer cancel()

	loaded, err := loadTableInfo(qctx, cfg)
	if err != nil {
		return nil, err
	}

	db, err := connect.Open(qctx, cfg.DatabaseConfig())
	if err != nil {
		return nil, err
	}

	b, err := digest.New(qctx, db, cfg.DigestOptions(loaded, log)...)
	if err != nil {
		db.Close()
		return nil, err
	}

	a.db = db
	a.builder = b
	return a, nil
}

// loadTableInfo reads custom_table_info_source, connecting to object storage
// only for the duration of the read.
func loadTableInfo(ctx context.Context, cfg *config.Config) (tableinfo.Info, error) {
	src := cfg.Digest.CustomTableInfoSource
	if !filestore.IsRemote(src) {
		return tableinfo.Load(ctx, src, nil)
	}

	store, err := minio.New(ctx, cfg.FilestoreConfig())
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return tableinfo.Load(ctx, src, store)
}

func (a *app) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Database.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.Database.QueryTimeout)
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
