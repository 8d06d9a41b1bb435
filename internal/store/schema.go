package store

import (
	"fmt"
	"strings"

	"github.com/sells-group/osm-audit/internal/db"
	"github.com/sells-group/osm-audit/internal/model"
)

// Dialect selects SQL flavour for generated DDL.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) timeType() string {
	if d == SQLite {
		return "DATETIME"
	}
	return "TIMESTAMPTZ"
}

func (d Dialect) columnType(t model.ColumnType) string {
	if d == SQLite {
		return string(t)
	}
	switch t {
	case model.Integer:
		return "BIGINT"
	case model.Real:
		return "DOUBLE PRECISION"
	}
	return "TEXT"
}

// CreateTableSQL returns the CREATE TABLE statement for t. Parent tables key
// on id; child tables reference their parent. ways_nodes.node_id references
// nodes only in SQLite, where foreign keys are not enforced, since extracts
// clip ways whose nodes lie outside the extract.
func CreateTableSQL(d Dialect, schema string, t model.Table) string {
	name := func(table string) string {
		if d == Postgres {
			return db.Sanitize(db.Qualify(schema, table))
		}
		return table
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", name(t.Name))

	lines := make([]string, 0, len(t.Columns)+2)
	for _, c := range t.Columns {
		line := fmt.Sprintf("\t%q %s", c.Name, d.columnType(c.Type))
		if !c.Nullable {
			line += " NOT NULL"
		}
		if c.Name == "id" && t.Parent == "" {
			line += " PRIMARY KEY"
		}
		lines = append(lines, line)
	}
	if t.Parent != "" {
		lines = append(lines, fmt.Sprintf("\tFOREIGN KEY (\"id\") REFERENCES %s (\"id\")", name(t.Parent)))
	}
	if t.Name == model.WayNodesTable.Name && d == SQLite {
		lines = append(lines, fmt.Sprintf("\tFOREIGN KEY (\"node_id\") REFERENCES %s (\"id\")", name(model.NodesTable.Name)))
	}

	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")
	return b.String()
}

// Migration returns every statement needed to create the schema.
func Migration(d Dialect, schema string) []string {
	var stmts []string
	if d == Postgres && schema != "" {
		stmts = append(stmts, "CREATE SCHEMA IF NOT EXISTS "+db.Sanitize(schema))
	}
	for _, t := range model.Tables {
		stmts = append(stmts, CreateTableSQL(d, schema, t))
	}

	qualify := func(table string) string {
		if d == Postgres {
			return db.Sanitize(db.Qualify(schema, table))
		}
		return table
	}
	for _, idx := range []struct{ name, table, cols string }{
		{"idx_nodes_tags_id", "nodes_tags", `"id"`},
		{"idx_nodes_tags_key", "nodes_tags", `"key"`},
		{"idx_ways_tags_id", "ways_tags", `"id"`},
		{"idx_ways_tags_key", "ways_tags", `"key"`},
		{"idx_ways_nodes_id", "ways_nodes", `"id", "position"`},
		{"idx_ways_nodes_node_id", "ways_nodes", `"node_id"`},
	} {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, qualify(idx.table), idx.cols))
	}

	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"id"          TEXT NOT NULL,
	"source"      TEXT NOT NULL,
	"table_name"  TEXT NOT NULL,
	"row_count"   %s NOT NULL,
	"started_at"  %[3]s NOT NULL,
	"finished_at" %[3]s NOT NULL,
	PRIMARY KEY ("id", "table_name")
)`, qualify("load_runs"), d.columnType(model.Integer), d.timeType()))
	return stmts
}

// DropSQL returns DROP statements for the output tables, children first.
func DropSQL(d Dialect, schema string) []string {
	stmts := make([]string, 0, len(model.Tables))
	for i := len(model.Tables) - 1; i >= 0; i-- {
		name := model.Tables[i].Name
		if d == Postgres {
			name = db.Sanitize(db.Qualify(schema, name))
		}
		stmts = append(stmts, "DROP TABLE IF EXISTS "+name)
	}
	return stmts
}

func insertSQL(d Dialect, schema string, t model.Table) string {
	cols := make([]string, len(t.Columns))
	params := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = fmt.Sprintf("%q", c.Name)
		if d == Postgres {
			params[i] = fmt.Sprintf("$%d", i+1)
		} else {
			params[i] = "?"
		}
	}
	name := t.Name
	if d == Postgres {
		name = db.Sanitize(db.Qualify(schema, t.Name))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(cols, ", "), strings.Join(params, ", "))
}
