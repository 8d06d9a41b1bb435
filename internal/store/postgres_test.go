package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-audit/internal/model"
)

func newMockPostgres(t *testing.T, schema string) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock, schema: schema}, mock
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgres(t, "osm")
	stmts := Migration(Postgres, "osm")
	for _, stmt := range stmts {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, `CREATE SCHEMA IF NOT EXISTS "osm"`, stmts[0])
}

func TestPostgres_MigrateError(t *testing.T) {
	s, mock := newMockPostgres(t, "")
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: migrate")
}

func TestPostgres_Reset(t *testing.T) {
	s, mock := newMockPostgres(t, "")
	for _, name := range []string{"ways_tags", "ways_nodes", "nodes_tags", "ways", "nodes"} {
		mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "` + name + `"`)).WillReturnResult(pgxmock.NewResult("DROP", 0))
	}
	require.NoError(t, s.Reset(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertCopies(t *testing.T) {
	s, mock := newMockPostgres(t, "osm")
	mock.ExpectCopyFrom(pgx.Identifier{"osm", "ways_nodes"}, []string{"id", "node_id", "position"}).WillReturnResult(2)

	n, err := s.Insert(context.Background(), model.WayNodesTable, [][]any{
		{int64(1), int64(10), int64(0)},
		{int64(1), int64(11), int64(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadCSVBatches(t *testing.T) {
	s, mock := newMockPostgres(t, "")
	cols := []string{"id", "key", "value", "type"}
	mock.ExpectCopyFrom(pgx.Identifier{"ways_tags"}, cols).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"ways_tags"}, cols).WillReturnResult(1)

	csv := "id,key,value,type\n1,highway,residential,regular\n1,name,Main Street,regular\n2,street,Elm,addr\n"
	n, err := LoadCSV(context.Background(), s, model.WayTagsTable, strings.NewReader(csv), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadCSVCopyError(t *testing.T) {
	s, mock := newMockPostgres(t, "")
	mock.ExpectCopyFrom(pgx.Identifier{"ways_nodes"}, []string{"id", "node_id", "position"}).
		WillReturnError(errors.New("violates foreign key constraint"))

	csv := "id,node_id,position\n1,10,0\n1,11,1\n1,12,2\n"
	_, err := LoadCSV(context.Background(), s, model.WayNodesTable, strings.NewReader(csv), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: insert ways_nodes")
}

func TestPostgres_RecordAndListLoads(t *testing.T) {
	s, mock := newMockPostgres(t, "osm")
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := LoadRun{ID: "run-1", Source: "out/nodes.csv", Table: "nodes", Rows: 42, StartedAt: start, FinishedAt: start.Add(time.Second)}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "osm"."load_runs"`)).
		WithArgs(run.ID, run.Source, run.Table, run.Rows, run.StartedAt, run.FinishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.RecordLoad(context.Background(), run))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "osm"."load_runs" ORDER BY started_at DESC`)).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "source", "table_name", "row_count", "started_at", "finished_at"}).
			AddRow(run.ID, run.Source, run.Table, run.Rows, run.StartedAt, run.FinishedAt))

	loads, err := s.ListLoads(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, run, loads[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTableSQL(t *testing.T) {
	pg := CreateTableSQL(Postgres, "osm", model.WayNodesTable)
	assert.Contains(t, pg, `CREATE TABLE IF NOT EXISTS "osm"."ways_nodes"`)
	assert.Contains(t, pg, `"node_id" BIGINT NOT NULL`)
	assert.Contains(t, pg, `FOREIGN KEY ("id") REFERENCES "osm"."ways" ("id")`)
	assert.NotContains(t, pg, `FOREIGN KEY ("node_id")`)

	lite := CreateTableSQL(SQLite, "osm", model.WayNodesTable)
	assert.Contains(t, lite, `CREATE TABLE IF NOT EXISTS ways_nodes`)
	assert.Contains(t, lite, `FOREIGN KEY ("node_id") REFERENCES nodes ("id")`)

	nodes := CreateTableSQL(Postgres, "", model.NodesTable)
	assert.Contains(t, nodes, `"id" BIGINT NOT NULL PRIMARY KEY`)
	assert.Contains(t, nodes, `"lat" DOUBLE PRECISION NOT NULL`)
	assert.Contains(t, nodes, `"user" TEXT,`)
}
