// Package geo rebuilds way geometries from the loaded ways_nodes and nodes
// tables.
package geo

import (
	"context"
	"database/sql"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"
)

// SRID is the spatial reference of OSM coordinates (WGS 84).
const SRID = 4326

// Way is a way's reconstructed polyline.
type Way struct {
	ID     int64
	Line   *geom.LineString
	Length float64 // planar, in degrees
}

// WKT returns the line as well-known text.
func (w Way) WKT() (string, error) {
	s, err := wkt.Marshal(w.Line)
	return s, eris.Wrapf(err, "geo: encode way %d", w.ID)
}

// Options configures Ways.
type Options struct {
	// Limit keeps only the longest N ways. 0 keeps all.
	Limit int
}

const waysQuery = `SELECT wn.id, n.lon, n.lat
FROM ways_nodes wn
JOIN nodes n ON n.id = wn.node_id
ORDER BY wn.id, wn."position"`

// Ways rebuilds every way whose member nodes resolve to at least two points,
// ordered by descending length. Member references with no matching node are
// dropped, so clipped ways come back shortened.
func Ways(ctx context.Context, db *sql.DB, opts Options) ([]Way, error) {
	rows, err := db.QueryContext(ctx, waysQuery)
	if err != nil {
		return nil, eris.Wrap(err, "geo: query ways")
	}
	defer rows.Close() //nolint:errcheck

	var (
		ways    []Way
		skipped int
		current int64
		flat    []float64
	)
	flush := func() {
		if flat == nil {
			return
		}
		if len(flat) < 4 {
			skipped++
		} else {
			ls := geom.NewLineStringFlat(geom.XY, flat)
			ls.SetSRID(SRID)
			ways = append(ways, Way{ID: current, Line: ls, Length: ls.Length()})
		}
		flat = nil
	}

	for rows.Next() {
		var (
			id       int64
			lon, lat float64
		)
		if err := rows.Scan(&id, &lon, &lat); err != nil {
			return nil, eris.Wrap(err, "geo: scan way node")
		}
		if id != current {
			flush()
			current = id
		}
		flat = append(flat, lon, lat)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geo: iterate way nodes")
	}
	flush()

	sort.SliceStable(ways, func(i, j int) bool {
		if ways[i].Length != ways[j].Length {
			return ways[i].Length > ways[j].Length
		}
		return ways[i].ID < ways[j].ID
	})
	if opts.Limit > 0 && len(ways) > opts.Limit {
		ways = ways[:opts.Limit]
	}

	zap.L().Debug("ways rebuilt", zap.String("component", "geo"),
		zap.Int("ways", len(ways)), zap.Int("skipped", skipped))
	return ways, nil
}
