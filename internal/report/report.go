// Package report runs the aggregate queries over a loaded database.
package report

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
)

// Query is one named aggregate. Scalar queries return a single count;
// the rest return (label, count) rows.
type Query struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Scalar bool   `json:"scalar"`
	SQL    string `json:"-"`
}

// Row is one ranked (label, count) pair.
type Row struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Result holds the output of one query.
type Result struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Value *int64 `json:"value,omitempty"`
	Rows  []Row  `json:"rows,omitempty"`
}

const (
	users = `(SELECT "user", uid FROM ways UNION ALL SELECT "user", uid FROM nodes) AS t`
	tags  = `(SELECT key, value FROM ways_tags UNION ALL SELECT key, value FROM nodes_tags) AS t`
)

func tagValues(key string, limit string) string {
	return `SELECT t.value, COUNT(*) AS num FROM ` + tags + ` WHERE t.key = '` + key +
		`' GROUP BY t.value ORDER BY num DESC, t.value LIMIT ` + limit
}

// Queries lists every report in display order.
var Queries = []Query{
	{Name: "nodes", Title: "Number of nodes", Scalar: true, SQL: `SELECT COUNT(*) FROM nodes`},
	{Name: "ways", Title: "Number of ways", Scalar: true, SQL: `SELECT COUNT(*) FROM ways`},
	{Name: "users", Title: "Number of unique users", Scalar: true,
		SQL: `SELECT COUNT(DISTINCT t.uid) FROM ` + users},
	{Name: "top_users", Title: "Top 10 contributors",
		SQL: `SELECT t."user", COUNT(*) AS posts FROM ` + users +
			` WHERE t."user" IS NOT NULL GROUP BY t."user" ORDER BY posts DESC, t."user" LIMIT 10`},
	{Name: "way_tags", Title: "Top 5 way tag keys",
		SQL: `SELECT key, COUNT(*) AS num FROM ways_tags GROUP BY key ORDER BY num DESC, key LIMIT 5`},
	{Name: "node_tags", Title: "Top 5 node tag keys",
		SQL: `SELECT key, COUNT(*) AS num FROM nodes_tags GROUP BY key ORDER BY num DESC, key LIMIT 5`},
	{Name: "wheelchair", Title: "Number of wheelchair access tags", Scalar: true,
		SQL: `SELECT COUNT(*) FROM ` + tags + ` WHERE t.key = 'wheelchair'`},
	{Name: "amenities", Title: "Number of amenities", Scalar: true,
		SQL: `SELECT COUNT(*) FROM ` + tags + ` WHERE t.key = 'amenity'`},
	{Name: "top_amenities", Title: "Top 20 amenities", SQL: tagValues("amenity", "20")},
	{Name: "top_postcodes", Title: "Top 10 postcodes", SQL: tagValues("postcode", "10")},
	{Name: "top_cities", Title: "Top 10 cities", SQL: tagValues("city", "10")},
}

// Lookup returns the query with the given name.
func Lookup(name string) (Query, bool) {
	for _, q := range Queries {
		if q.Name == name {
			return q, true
		}
	}
	return Query{}, false
}

// Names returns every query name in display order.
func Names() []string {
	names := make([]string, len(Queries))
	for i, q := range Queries {
		names[i] = q.Name
	}
	return names
}

// Run executes the named queries, or all of them when names is empty.
func Run(ctx context.Context, db *sql.DB, names ...string) ([]Result, error) {
	selected := Queries
	if len(names) > 0 {
		selected = make([]Query, 0, len(names))
		for _, name := range names {
			q, ok := Lookup(name)
			if !ok {
				return nil, eris.Errorf("report: unknown report %q (want one of %s)", name, strings.Join(Names(), ", "))
			}
			selected = append(selected, q)
		}
	}

	results := make([]Result, 0, len(selected))
	for _, q := range selected {
		r, err := RunQuery(ctx, db, q)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// RunQuery executes a single query.
func RunQuery(ctx context.Context, db *sql.DB, q Query) (Result, error) {
	res := Result{Name: q.Name, Title: q.Title}

	if q.Scalar {
		var n int64
		if err := db.QueryRowContext(ctx, q.SQL).Scan(&n); err != nil {
			return res, eris.Wrapf(err, "report: %s", q.Name)
		}
		res.Value = &n
		return res, nil
	}

	rows, err := db.QueryContext(ctx, q.SQL)
	if err != nil {
		return res, eris.Wrapf(err, "report: %s", q.Name)
	}
	defer rows.Close() //nolint:errcheck

	res.Rows = []Row{}
	for rows.Next() {
		var (
			label sql.NullString
			n     int64
		)
		if err := rows.Scan(&label, &n); err != nil {
			return res, eris.Wrapf(err, "report: scan %s", q.Name)
		}
		res.Rows = append(res.Rows, Row{Label: label.String, Count: n})
	}
	return res, eris.Wrapf(rows.Err(), "report: iterate %s", q.Name)
}
