// Command schemadigest prints schema digests of a SQL database for use in
// LLM prompts, or serves them over HTTP.
//
//	schemadigest --config shop.yaml tables
//	schemadigest --dialect sqlite --dsn ./shop.db info users orders
//	schemadigest --config shop.yaml serve --addr :8080
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/koustreak/schemadigest/internal/config"
	"github.com/koustreak/schemadigest/internal/errs"
	"github.com/koustreak/schemadigest/internal/server"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	dsn        string
	dialect    string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode lets scripts tell bad input apart from an unreachable database.
func exitCode(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindInvalidInput:
		return 2
	case errs.ErrKindNotFound:
		return 3
	case errs.ErrKindConnectionFailed, errs.ErrKindTimeout:
		return 4
	case errs.ErrKindPermissionDenied:
		return 5
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:   "schemadigest",
		Short: "Summarise a SQL schema and sample data as prompt-ready text",
		Long: `schemadigest reflects the tables of a Postgres, MySQL or SQLite database and
renders one block per table: its CREATE TABLE statement, optionally its
indexes, and a summary of sampled values split into high and low cardinality
columns.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Path to configuration file")
	pf.StringVar(&f.dsn, "dsn", "", "Database DSN (overrides config file and "+config.EnvDSN+")")
	pf.StringVar(&f.dialect, "dialect", "", "Database dialect: postgres, mysql or sqlite")

	root.AddCommand(newTablesCmd(f), newInfoCmd(f), newServeCmd(f))
	return root
}

func newTablesCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the usable table names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), f.configPath, f.overrides())
			if err != nil {
				return err
			}
			defer a.Close()

			return writeLine(cmd.OutOrStdout(), strings.Join(a.builder.UsableTableNames(), "\n"))
		},
	}
}

func newInfoCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info [table...]",
		Short: "Print the digest of the given tables, or of every usable table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), f.configPath, f.overrides())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := a.queryContext(cmd.Context())
			defer cancel()

			text, err := a.builder.TableInfo(ctx, args...)
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), text)
		},
	}
}

func newServeCmd(f *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve digests over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := f.overrides()
			o.ServerAddr = addr

			a, err := openApp(cmd.Context(), f.configPath, o)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.builder, a.db, a.log, a.cfg.Database.QueryTimeout)
			return srv.Run(ctx, a.cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func (f *rootFlags) overrides() config.Overrides {
	return config.Overrides{DSN: f.dsn, Dialect: f.dialect}
}

func writeLine(w io.Writer, s string) error {
	if s == "" {
		return nil
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := fmt.Fprint(w, s)
	return err
}
