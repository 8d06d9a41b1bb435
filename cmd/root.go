package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/osm-audit/internal/config"
	"github.com/sells-group/osm-audit/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "osm-audit",
	Short: "Audit and normalize OpenStreetMap extracts",
	Long: `Streams an OSM XML extract, repairs street suffixes, postcodes and state codes,
and writes nodes, ways and their tags as five CSV record streams ready for bulk
loading. Companion commands load the streams into SQLite or Postgres, run the
aggregate reports, and rebuild way geometries.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// dbStore is a store that also exposes a database/sql handle for reports.
type dbStore interface {
	store.Store
	DB() *sql.DB
}

func initStore(ctx context.Context) (dbStore, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "osm.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			Schema:   cfg.Store.Schema,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// sourceFlag resolves --source, falling back to config, then a single
// positional argument.
func sourceFlag(cmd *cobra.Command, args []string) (string, error) {
	src, _ := cmd.Flags().GetString("source")
	if src == "" && len(args) > 0 {
		src = args[0]
	}
	if src == "" {
		src = cfg.Source.Path
	}
	if src == "" {
		return "", eris.New("source path is required (--source or OSMAUDIT_SOURCE_PATH)")
	}
	return src, nil
}

// kindsFlag resolves --kinds, falling back to config.
func kindsFlag(cmd *cobra.Command) []string {
	if s, _ := cmd.Flags().GetString("kinds"); s != "" {
		return splitAndTrim(s)
	}
	return cfg.Source.Kinds
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// createOutput opens path for writing, or returns stdout for "" and "-".
func createOutput(path string) (*os.File, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", path)
	}
	return f, f.Close, nil
}
