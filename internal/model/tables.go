package model

// ColumnType is the relational type of a table column.
type ColumnType string

const (
	Integer ColumnType = "INTEGER"
	Real    ColumnType = "REAL"
	Text    ColumnType = "TEXT"
)

// Column describes one column of an output table.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// Table describes one of the five output record streams.
type Table struct {
	Name    string   // relational table name, e.g. "nodes_tags"
	File    string   // delimited file name, e.g. "nodes_tags.csv"
	Columns []Column // ordered columns
	Parent  string   // table referenced by the id column, empty for roots
}

// ColumnNames returns the ordered column names.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

var (
	NodesTable = Table{
		Name: "nodes",
		File: "nodes.csv",
		Columns: []Column{
			{Name: "id", Type: Integer},
			{Name: "lat", Type: Real},
			{Name: "lon", Type: Real},
			{Name: "user", Type: Text, Nullable: true},
			{Name: "uid", Type: Integer, Nullable: true},
			{Name: "version", Type: Integer},
			{Name: "changeset", Type: Integer},
			{Name: "timestamp", Type: Text},
		},
	}
	NodeTagsTable = Table{
		Name:    "nodes_tags",
		File:    "nodes_tags.csv",
		Columns: tagColumns,
		Parent:  "nodes",
	}
	WaysTable = Table{
		Name: "ways",
		File: "ways.csv",
		Columns: []Column{
			{Name: "id", Type: Integer},
			{Name: "user", Type: Text, Nullable: true},
			{Name: "uid", Type: Integer, Nullable: true},
			{Name: "version", Type: Text},
			{Name: "changeset", Type: Integer},
			{Name: "timestamp", Type: Text},
		},
	}
	WayNodesTable = Table{
		Name: "ways_nodes",
		File: "ways_nodes.csv",
		Columns: []Column{
			{Name: "id", Type: Integer},
			{Name: "node_id", Type: Integer},
			{Name: "position", Type: Integer},
		},
		Parent: "ways",
	}
	WayTagsTable = Table{
		Name:    "ways_tags",
		File:    "ways_tags.csv",
		Columns: tagColumns,
		Parent:  "ways",
	}

	tagColumns = []Column{
		{Name: "id", Type: Integer},
		{Name: "key", Type: Text},
		{Name: "value", Type: Text},
		{Name: "type", Type: Text, Nullable: true},
	}
)

// Tables lists the output tables, parents first.
var Tables = []Table{NodesTable, WaysTable, NodeTagsTable, WayNodesTable, WayTagsTable}

// TableByName returns the table with the given name.
func TableByName(name string) (Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
