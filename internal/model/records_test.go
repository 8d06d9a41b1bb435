package model

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeRecord(t *testing.T) {
	uid := int64(1219059)
	n := Node{
		ID:        261114295,
		Lat:       42.3601,
		Lon:       -71.0589,
		User:      "alice",
		UID:       &uid,
		Version:   7,
		Changeset: 11129782,
		Timestamp: "2012-03-28T18:31:23Z",
	}
	assert.Equal(t, []string{
		"261114295", "42.3601", "-71.0589", "alice", "1219059", "7", "11129782", "2012-03-28T18:31:23Z",
	}, n.Record())
	assert.Len(t, n.Record(), len(NodesTable.Columns))
}

func TestNodeRecord_NilUID(t *testing.T) {
	n := Node{ID: 1, Version: 1, Timestamp: "t"}
	rec := n.Record()
	assert.Equal(t, "", rec[3])
	assert.Equal(t, "", rec[4])
}

func TestWayRecords(t *testing.T) {
	w := Way{ID: 9, User: "bob", Version: "2", Changeset: 5, Timestamp: "t"}
	assert.Equal(t, []string{"9", "bob", "", "2", "5", "t"}, w.Record())
	assert.Len(t, w.Record(), len(WaysTable.Columns))

	wn := WayNode{ID: 9, NodeID: 100, Position: 3}
	assert.Equal(t, []string{"9", "100", "3"}, wn.Record())

	wt := WayTag{ID: 9, Key: "street", Value: "Main Street", Type: "addr"}
	assert.Equal(t, []string{"9", "street", "Main Street", "addr"}, wt.Record())

	nt := NodeTag{ID: 1, Key: "amenity", Value: "cafe", Type: DefaultTagType}
	assert.Equal(t, []string{"1", "amenity", "cafe", "regular"}, nt.Record())
}

func TestShapedElementID(t *testing.T) {
	assert.Equal(t, int64(4), (&Shaped{Kind: osm.TypeNode, Node: &Node{ID: 4}}).ElementID())
	assert.Equal(t, int64(8), (&Shaped{Kind: osm.TypeWay, Way: &Way{ID: 8}}).ElementID())
	assert.Equal(t, int64(0), (&Shaped{}).ElementID())
}

func TestTables(t *testing.T) {
	require.Len(t, Tables, 5)
	assert.Equal(t, "nodes", Tables[0].Name)
	assert.Equal(t, "ways", Tables[1].Name)

	for _, tbl := range Tables {
		assert.True(t, strings.HasSuffix(tbl.File, ".csv"), tbl.Name)
		assert.Equal(t, tbl.Name+".csv", tbl.File)
		if tbl.Parent != "" {
			_, ok := TableByName(tbl.Parent)
			assert.True(t, ok, "parent of %s", tbl.Name)
		}
	}

	tbl, ok := TableByName("ways_nodes")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "node_id", "position"}, tbl.ColumnNames())

	_, ok = TableByName("relations")
	assert.False(t, ok)
}

func TestElementDecode(t *testing.T) {
	doc := `<way id="5" version="2" changeset="9" timestamp="t">
		<nd ref="1"/><nd ref="2"/>
		<tag k="addr:street" v="Main St"/>
	</way>`

	var el Element
	require.NoError(t, xml.Unmarshal([]byte(doc), &el))

	assert.Equal(t, osm.TypeWay, el.Kind())
	assert.Equal(t, "5", el.ID())
	require.Len(t, el.Nds, 2)
	ref, ok := el.Nds[1].Attrs.Get("ref")
	assert.True(t, ok)
	assert.Equal(t, "2", ref)
	require.Len(t, el.Tags, 1)
	v, _ := el.Tags[0].Attrs.Get("v")
	assert.Equal(t, "Main St", v)

	_, ok = el.Attrs.Get("uid")
	assert.False(t, ok)
}
