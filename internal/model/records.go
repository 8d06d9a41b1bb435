// Package model defines the raw OSM element shape read from XML and the five
// typed relational records produced from it.
package model

import (
	"strconv"

	"github.com/paulmach/osm"
)

// DefaultTagType is the type assigned to tags whose key has no namespace.
const DefaultTagType = "regular"

// Node is a point entity with coordinates and edit metadata.
type Node struct {
	ID        osm.NodeID `json:"id"`
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	User      string     `json:"user"`
	UID       *int64     `json:"uid"`
	Version   int        `json:"version"`
	Changeset int64      `json:"changeset"`
	Timestamp string     `json:"timestamp"`
}

// Record returns the node encoded in NodesTable column order.
func (n Node) Record() []string {
	return []string{
		formatInt(int64(n.ID)),
		formatFloat(n.Lat),
		formatFloat(n.Lon),
		n.User,
		formatNullInt(n.UID),
		strconv.Itoa(n.Version),
		formatInt(n.Changeset),
		n.Timestamp,
	}
}

// NodeTag is a key/value annotation of a node.
type NodeTag struct {
	ID    osm.NodeID `json:"id"`
	Key   string     `json:"key"`
	Value string     `json:"value"`
	Type  string     `json:"type"`
}

// Record returns the tag encoded in tag table column order.
func (t NodeTag) Record() []string {
	return []string{formatInt(int64(t.ID)), t.Key, t.Value, t.Type}
}

// Way is an ordered sequence of node references with edit metadata. Version
// is kept as free text.
type Way struct {
	ID        osm.WayID `json:"id"`
	User      string    `json:"user"`
	UID       *int64    `json:"uid"`
	Version   string    `json:"version"`
	Changeset int64     `json:"changeset"`
	Timestamp string    `json:"timestamp"`
}

// Record returns the way encoded in WaysTable column order.
func (w Way) Record() []string {
	return []string{
		formatInt(int64(w.ID)),
		w.User,
		formatNullInt(w.UID),
		w.Version,
		formatInt(w.Changeset),
		w.Timestamp,
	}
}

// WayNode is one member reference of a way. Position is zero-based and
// follows source order.
type WayNode struct {
	ID       osm.WayID  `json:"id"`
	NodeID   osm.NodeID `json:"node_id"`
	Position int        `json:"position"`
}

// Record returns the reference encoded in WayNodesTable column order.
func (wn WayNode) Record() []string {
	return []string{formatInt(int64(wn.ID)), formatInt(int64(wn.NodeID)), strconv.Itoa(wn.Position)}
}

// WayTag is a key/value annotation of a way.
type WayTag struct {
	ID    osm.WayID `json:"id"`
	Key   string    `json:"key"`
	Value string    `json:"value"`
	Type  string    `json:"type"`
}

// Record returns the tag encoded in tag table column order.
func (t WayTag) Record() []string {
	return []string{formatInt(int64(t.ID)), t.Key, t.Value, t.Type}
}

// Shaped is the flat result of shaping one source element. For a node only
// Node and NodeTags are set; for a way only Way, WayNodes and WayTags.
type Shaped struct {
	Kind     osm.Type  `json:"-"`
	Node     *Node     `json:"node,omitempty"`
	NodeTags []NodeTag `json:"node_tags,omitempty"`
	Way      *Way      `json:"way,omitempty"`
	WayNodes []WayNode `json:"way_nodes,omitempty"`
	WayTags  []WayTag  `json:"way_tags,omitempty"`
}

// ElementID returns the id of the shaped node or way.
func (s *Shaped) ElementID() int64 {
	switch {
	case s.Node != nil:
		return int64(s.Node.ID)
	case s.Way != nil:
		return int64(s.Way.ID)
	}
	return 0
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullInt(v *int64) string {
	if v == nil {
		return ""
	}
	return formatInt(*v)
}
