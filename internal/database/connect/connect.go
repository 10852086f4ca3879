// Package connect opens a database.DB for a Config, choosing the driver from
// its Dialect. It is the only package that imports every driver.
package connect

import (
	"context"

	"github.com/koustreak/schemadigest/internal/database"
	"github.com/koustreak/schemadigest/internal/database/mysql"
	"github.com/koustreak/schemadigest/internal/database/postgres"
	"github.com/koustreak/schemadigest/internal/database/sqlite"
	"github.com/koustreak/schemadigest/internal/errs"
)

// Open connects to the database described by cfg and pings it.
func Open(ctx context.Context, cfg *database.Config) (database.DB, error) {
	if cfg == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "database config is required")
	}
	if cfg.DSN == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "database DSN is required")
	}

	var (
		db  database.DB
		err error
	)
	switch cfg.Dialect {
	case database.DialectPostgres:
		db, err = postgres.New(ctx, cfg)
	case database.DialectMySQL:
		db, err = mysql.New(ctx, cfg)
	case database.DialectSQLite:
		db, err = sqlite.New(ctx, cfg)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported dialect %q", cfg.Dialect)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}
