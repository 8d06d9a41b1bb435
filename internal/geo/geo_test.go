package geo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/osm-audit/internal/model"
	"github.com/sells-group/osm-audit/internal/store"
)

func seedWays(t *testing.T) *store.SQLiteStore {
	t.Helper()
	ctx := context.Background()
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(ctx))

	node := func(id int64, lon, lat float64) []any {
		return []any{id, lat, lon, "u", int64(1), int64(1), int64(1), "t"}
	}
	_, err = s.Insert(ctx, model.NodesTable, [][]any{
		node(1, 0, 0), node(2, 3, 4), node(3, 3, 0), node(4, 10, 10),
	})
	require.NoError(t, err)

	// Way 100: 1 -> 2 -> 3, length 5 + 4 = 9.
	// Way 200: 3 -> 1, length 3; stored positions out of insertion order.
	// Way 300: 4 -> 99 (unresolved), one point left, skipped.
	_, err = s.Insert(ctx, model.WayNodesTable, [][]any{
		{int64(100), int64(1), int64(0)},
		{int64(100), int64(2), int64(1)},
		{int64(100), int64(3), int64(2)},
		{int64(200), int64(1), int64(1)},
		{int64(200), int64(3), int64(0)},
		{int64(300), int64(4), int64(0)},
		{int64(300), int64(99), int64(1)},
	})
	require.NoError(t, err)
	return s
}

func TestWays(t *testing.T) {
	s := seedWays(t)
	ways, err := Ways(context.Background(), s.DB(), Options{})
	require.NoError(t, err)
	require.Len(t, ways, 2)

	assert.Equal(t, int64(100), ways[0].ID)
	assert.InDelta(t, 9.0, ways[0].Length, 1e-9)
	assert.Equal(t, []float64{0, 0, 3, 4, 3, 0}, ways[0].Line.FlatCoords())
	assert.Equal(t, SRID, ways[0].Line.SRID())

	assert.Equal(t, int64(200), ways[1].ID)
	assert.Equal(t, []float64{3, 0, 0, 0}, ways[1].Line.FlatCoords())
	assert.InDelta(t, 3.0, ways[1].Length, 1e-9)
}

func TestWays_Limit(t *testing.T) {
	s := seedWays(t)
	ways, err := Ways(context.Background(), s.DB(), Options{Limit: 1})
	require.NoError(t, err)
	require.Len(t, ways, 1)
	assert.Equal(t, int64(100), ways[0].ID)
}

func TestWays_MissingTables(t *testing.T) {
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	_, err = Ways(context.Background(), s.DB(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geo: query ways")
}

func TestWay_WKT(t *testing.T) {
	w := Way{ID: 1, Line: geom.NewLineStringFlat(geom.XY, []float64{-71.1, 42.3, -71.2, 42.4})}
	s, err := w.WKT()
	require.NoError(t, err)
	assert.Equal(t, "LINESTRING (-71.1 42.3, -71.2 42.4)", s)
}

func TestShapefileRoundTrip(t *testing.T) {
	s := seedWays(t)
	ways, err := Ways(context.Background(), s.DB(), Options{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ways.shp")
	require.NoError(t, WriteShapefile(path, ways))
	assert.FileExists(t, filepath.Join(filepath.Dir(path), "ways.dbf"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(path), "waysdbf"))

	back, err := ReadShapefile(path)
	require.NoError(t, err)
	require.Len(t, back, len(ways))
	for i := range ways {
		assert.Equal(t, ways[i].ID, back[i].ID)
		assert.InDelta(t, ways[i].Length, back[i].Length, 1e-6)
		assert.Equal(t, ways[i].Line.FlatCoords(), back[i].Line.FlatCoords())
	}
}

func TestReadShapefile_Missing(t *testing.T) {
	_, err := ReadShapefile(filepath.Join(t.TempDir(), "none.shp"))
	require.Error(t, err)
}

func TestLoadPostGIS(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ways := []Way{
		{ID: 7, Line: geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}).SetSRID(SRID), Length: 1.41},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "osm"\."way_geoms"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_way_geoms_geom`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`TRUNCATE "osm"\."way_geoms"`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectExec(`INSERT INTO "osm"\."way_geoms"`).
		WithArgs(int64(7), 1.41, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := LoadPostGIS(context.Background(), mock, "osm", ways)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadPostGIS_InsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`TRUNCATE`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectExec(`INSERT INTO`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("geometry type mismatch"))
	mock.ExpectRollback()

	_, err = LoadPostGIS(context.Background(), mock, "", []Way{
		{ID: 8, Line: geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1})},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geo: insert way 8")
	assert.NoError(t, mock.ExpectationsWereMet())
}
