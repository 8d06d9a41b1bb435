package geo

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Shapefile attribute names. dBASE limits names to 10 characters.
const (
	fieldWayID  = "WAY_ID"
	fieldLength = "LENGTH"
)

// WriteShapefile writes ways as a POLYLINE shapefile at path (".shp"; the
// ".shx" and ".dbf" siblings are created alongside) with WAY_ID and LENGTH
// attributes.
func WriteShapefile(path string, ways []Way) error {
	w, err := shp.Create(path, shp.POLYLINE)
	if err != nil {
		return eris.Wrap(err, "geo: create shapefile")
	}

	if err := writeWays(w, ways); err != nil {
		w.Close()
		return err
	}
	w.Close()

	return fixDBFName(path)
}

func writeWays(w *shp.Writer, ways []Way) error {
	if err := w.SetFields([]shp.Field{
		shp.NumberField(fieldWayID, 18),
		shp.FloatField(fieldLength, 18, 8),
	}); err != nil {
		return eris.Wrap(err, "geo: set shapefile fields")
	}

	for _, way := range ways {
		idx := w.Write(toPolyLine(way.Line))
		if err := w.WriteAttribute(int(idx), 0, int(way.ID)); err != nil {
			return eris.Wrapf(err, "geo: write way %d attribute", way.ID)
		}
		if err := w.WriteAttribute(int(idx), 1, way.Length); err != nil {
			return eris.Wrapf(err, "geo: write way %d attribute", way.ID)
		}
	}
	return nil
}

// fixDBFName moves "<base>dbf" to "<base>.dbf". go-shp v0.1.1 SetFields
// drops the dot when naming the attribute table.
func fixDBFName(path string) error {
	base := path
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		base = path[:len(path)-len(".shp")]
	}
	bad := base + "dbf"
	if _, err := os.Stat(bad); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrap(err, "geo: stat dbf")
	}
	if err := os.Rename(bad, base+".dbf"); err != nil {
		return eris.Wrap(err, "geo: rename dbf")
	}
	return nil
}

func toPolyLine(ls *geom.LineString) *shp.PolyLine {
	points := make([]shp.Point, 0, ls.NumCoords())
	for _, c := range ls.Coords() {
		points = append(points, shp.Point{X: c.X(), Y: c.Y()})
	}
	return shp.NewPolyLine([][]shp.Point{points})
}

// ReadShapefile reads back a file written by WriteShapefile.
func ReadShapefile(path string) ([]Way, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "geo: open shapefile")
	}
	defer func() { _ = r.Close() }()

	idIdx := fieldIndex(r, fieldWayID)
	lengthIdx := fieldIndex(r, fieldLength)
	if idIdx < 0 || lengthIdx < 0 {
		return nil, eris.Errorf("geo: shapefile fields (%s, %s) not found", fieldWayID, fieldLength)
	}

	var ways []Way
	for r.Next() {
		_, shape := r.Shape()
		pl, ok := shape.(*shp.PolyLine)
		if !ok || pl.NumParts == 0 {
			continue
		}

		id, err := strconv.ParseInt(strings.TrimSpace(r.Attribute(idIdx)), 10, 64)
		if err != nil {
			return nil, eris.Wrap(err, "geo: parse way id")
		}
		length, err := strconv.ParseFloat(strings.TrimSpace(r.Attribute(lengthIdx)), 64)
		if err != nil {
			return nil, eris.Wrap(err, "geo: parse length")
		}

		// Single part per way.
		flat := make([]float64, 0, 2*len(pl.Points))
		for _, p := range pl.Points {
			flat = append(flat, p.X, p.Y)
		}
		ls := geom.NewLineStringFlat(geom.XY, flat)
		ls.SetSRID(SRID)
		ways = append(ways, Way{ID: id, Line: ls, Length: length})
	}
	return ways, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
