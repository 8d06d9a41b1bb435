package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-audit/internal/db"
	"github.com/sells-group/osm-audit/internal/model"
)

// PostgresStore implements Store using pgxpool and the COPY protocol.
type PostgresStore struct {
	pool    db.Pool
	schema  string
	sqlDB   *sql.DB
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
	Schema   string `yaml:"schema" mapstructure:"schema"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	var schema string
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
		schema = poolCfg.Schema
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute
	if schema != "" {
		// Unqualified report and geometry queries resolve against the schema.
		pgxCfg.ConnConfig.RuntimeParams["search_path"] = schema + ",public"
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	return &PostgresStore{
		pool:   pool,
		schema: schema,
		sqlDB:  sqlDB,
		closeFn: func() {
			sqlDB.Close() //nolint:errcheck
			pool.Close()
		},
	}, nil
}

// Pool returns the underlying pool for callers that issue their own SQL.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// DB exposes a database/sql view of the pool for reporting. It is nil for
// stores built around a mock pool.
func (s *PostgresStore) DB() *sql.DB {
	return s.sqlDB
}

// Schema returns the target schema, or "" for the search path default.
func (s *PostgresStore) Schema() string {
	return s.schema
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range Migration(Postgres, s.schema) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "postgres: migrate")
		}
	}
	return nil
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	for _, stmt := range DropSQL(Postgres, s.schema) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "postgres: reset")
		}
	}
	return nil
}

// Insert bulk-loads rows with COPY.
func (s *PostgresStore) Insert(ctx context.Context, t model.Table, rows [][]any) (int64, error) {
	n, err := db.CopyFrom(ctx, s.pool, db.Qualify(s.schema, t.Name), t.ColumnNames(), rows)
	return n, eris.Wrapf(err, "postgres: insert %s", t.Name)
}

func (s *PostgresStore) RecordLoad(ctx context.Context, run LoadRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+db.Sanitize(db.Qualify(s.schema, "load_runs"))+` (id, source, table_name, row_count, started_at, finished_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Source, run.Table, run.Rows, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: record load")
}

func (s *PostgresStore) ListLoads(ctx context.Context, limit int) ([]LoadRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, table_name, row_count, started_at, finished_at FROM `+db.Sanitize(db.Qualify(s.schema, "load_runs"))+` ORDER BY started_at DESC, table_name LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list loads")
	}
	defer rows.Close()

	var runs []LoadRun
	for rows.Next() {
		var r LoadRun
		if err := rows.Scan(&r.ID, &r.Source, &r.Table, &r.Rows, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan load")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate loads")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
