package model

import (
	"encoding/xml"

	"github.com/paulmach/osm"
)

// Attrs is an element's attribute list in document order.
type Attrs []xml.Attr

// Get returns the value of the named attribute and whether it was present.
func (a Attrs) Get(name string) (string, bool) {
	for _, attr := range a {
		if attr.Name.Local == name {
			return attr.Value, true
		}
	}
	return "", false
}

// Child is a nested element of a node, way or relation (tag, nd, member).
type Child struct {
	XMLName xml.Name
	Attrs   Attrs `xml:",any,attr"`
}

// Element is one raw top-level element of an OSM XML document together with
// its nested children. It holds exactly one subtree; the streamer decodes a
// fresh Element per match.
type Element struct {
	XMLName xml.Name
	Attrs   Attrs   `xml:",any,attr"`
	Nds     []Child `xml:"nd"`
	Members []Child `xml:"member"`
	Tags    []Child `xml:"tag"`
}

// Kind returns the element kind (node, way, relation, ...).
func (e *Element) Kind() osm.Type {
	return osm.Type(e.XMLName.Local)
}

// ID returns the raw id attribute, or an empty string when absent. It is
// used to identify elements in diagnostics.
func (e *Element) ID() string {
	id, _ := e.Attrs.Get("id")
	return id
}
