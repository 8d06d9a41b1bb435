package geo

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/sells-group/osm-audit/internal/db"
)

// GeomTable is the PostGIS table LoadPostGIS writes.
const GeomTable = "way_geoms"

// LoadPostGIS replaces the contents of way_geoms with ways inside one
// transaction. Geometries travel as EWKB.
func LoadPostGIS(ctx context.Context, pool db.Pool, schema string, ways []Way) (int, error) {
	table := db.Sanitize(db.Qualify(schema, GeomTable))
	log := zap.L().With(zap.String("component", "geo"), zap.String("table", table))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "geo: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, stmt := range []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	way_id BIGINT PRIMARY KEY,
	length DOUBLE PRECISION NOT NULL,
	geom   geometry(LineString, %d) NOT NULL
)`, table, SRID),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_way_geoms_geom ON %s USING gist (geom)`, table),
		fmt.Sprintf(`TRUNCATE %s`, table),
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, eris.Wrap(err, "geo: prepare way_geoms")
		}
	}

	insert := fmt.Sprintf(`INSERT INTO %s (way_id, length, geom) VALUES ($1, $2, ST_GeomFromEWKB($3))`, table)
	for _, w := range ways {
		data, err := ewkb.Marshal(w.Line, ewkb.NDR)
		if err != nil {
			return 0, eris.Wrapf(err, "geo: encode way %d", w.ID)
		}
		if _, err := tx.Exec(ctx, insert, w.ID, w.Length, data); err != nil {
			return 0, eris.Wrapf(err, "geo: insert way %d", w.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "geo: commit")
	}
	log.Info("way geometries loaded", zap.Int("ways", len(ways)))
	return len(ways), nil
}
