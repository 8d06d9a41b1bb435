// Package shape turns raw OSM elements into typed relational records.
package shape

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/osm"

	"github.com/sells-group/osm-audit/internal/model"
	"github.com/sells-group/osm-audit/internal/normalize"
)

// AttributeError reports a required attribute that is missing or cannot be
// parsed. It is fatal for the run.
type AttributeError struct {
	Kind   osm.Type
	ID     string
	Attr   string
	Reason string
}

func (e *AttributeError) Error() string {
	id := e.ID
	if id == "" {
		id = "?"
	}
	return fmt.Sprintf("shape: %s %s: attribute %q %s", e.Kind, id, e.Attr, e.Reason)
}

// Observer is notified for every tag routed through a normalizer.
type Observer func(rule normalize.Rule, before, after string)

// Shaper converts elements into records. It holds no per-element state and is
// safe for concurrent use when its Observer is.
type Shaper struct {
	norm    *normalize.Normalizer
	observe Observer
}

// Option configures a Shaper.
type Option func(*Shaper)

// WithObserver sets a callback for normalized tag values.
func WithObserver(fn Observer) Option {
	return func(s *Shaper) { s.observe = fn }
}

// New creates a Shaper using norm for address tags.
func New(norm *normalize.Normalizer, opts ...Option) *Shaper {
	s := &Shaper{norm: norm}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shape converts one element. Elements other than nodes and ways yield nil.
func (s *Shaper) Shape(el *model.Element) (*model.Shaped, error) {
	switch el.Kind() {
	case osm.TypeNode:
		return s.shapeNode(el)
	case osm.TypeWay:
		return s.shapeWay(el)
	}
	return nil, nil
}

func (s *Shaper) shapeNode(el *model.Element) (*model.Shaped, error) {
	a := attrReader{kind: osm.TypeNode, el: el}

	node := &model.Node{
		ID:        osm.NodeID(a.int64Attr("id")),
		Lat:       a.floatAttr("lat"),
		Lon:       a.floatAttr("lon"),
		User:      a.optional("user"),
		UID:       a.optionalInt64Attr("uid"),
		Version:   a.intAttr("version"),
		Changeset: a.int64Attr("changeset"),
		Timestamp: a.required("timestamp"),
	}
	if a.err != nil {
		return nil, a.err
	}

	tags, err := s.tags(el, osm.TypeNode)
	if err != nil {
		return nil, err
	}
	nodeTags := make([]model.NodeTag, 0, len(tags))
	for _, t := range tags {
		nodeTags = append(nodeTags, model.NodeTag{ID: node.ID, Key: t.key, Value: t.value, Type: t.typ})
	}

	return &model.Shaped{Kind: osm.TypeNode, Node: node, NodeTags: nodeTags}, nil
}

func (s *Shaper) shapeWay(el *model.Element) (*model.Shaped, error) {
	a := attrReader{kind: osm.TypeWay, el: el}

	way := &model.Way{
		ID:        osm.WayID(a.int64Attr("id")),
		User:      a.optional("user"),
		UID:       a.optionalInt64Attr("uid"),
		Version:   a.required("version"),
		Changeset: a.int64Attr("changeset"),
		Timestamp: a.required("timestamp"),
	}
	if a.err != nil {
		return nil, a.err
	}

	wayNodes := make([]model.WayNode, 0, len(el.Nds))
	for position, nd := range el.Nds {
		raw, ok := nd.Attrs.Get("ref")
		if !ok {
			return nil, &AttributeError{Kind: osm.TypeWay, ID: el.ID(), Attr: "nd.ref", Reason: "is missing"}
		}
		ref, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &AttributeError{Kind: osm.TypeWay, ID: el.ID(), Attr: "nd.ref", Reason: fmt.Sprintf("is not an integer: %q", raw)}
		}
		wayNodes = append(wayNodes, model.WayNode{ID: way.ID, NodeID: osm.NodeID(ref), Position: position})
	}

	tags, err := s.tags(el, osm.TypeWay)
	if err != nil {
		return nil, err
	}
	wayTags := make([]model.WayTag, 0, len(tags))
	for _, t := range tags {
		wayTags = append(wayTags, model.WayTag{ID: way.ID, Key: t.key, Value: t.value, Type: t.typ})
	}

	return &model.Shaped{Kind: osm.TypeWay, Way: way, WayNodes: wayNodes, WayTags: wayTags}, nil
}

type tag struct {
	key, value, typ string
}

func (s *Shaper) tags(el *model.Element, kind osm.Type) ([]tag, error) {
	out := make([]tag, 0, len(el.Tags))
	for _, child := range el.Tags {
		k, ok := child.Attrs.Get("k")
		if !ok {
			return nil, &AttributeError{Kind: kind, ID: el.ID(), Attr: "tag.k", Reason: "is missing"}
		}
		v, ok := child.Attrs.Get("v")
		if !ok {
			return nil, &AttributeError{Kind: kind, ID: el.ID(), Attr: "tag.v", Reason: "is missing"}
		}
		out = append(out, s.splitTag(k, v))
	}
	return out, nil
}

// splitTag splits a raw key on its first ':' and normalizes the value by the
// post-split key.
func (s *Shaper) splitTag(rawKey, rawValue string) tag {
	t := tag{key: rawKey, typ: model.DefaultTagType}
	if prefix, rest, ok := strings.Cut(rawKey, ":"); ok {
		t.typ, t.key = prefix, rest
	}

	value, rule := s.norm.Normalize(t.key, rawValue)
	if rule != normalize.RuleNone && s.observe != nil {
		s.observe(rule, rawValue, value)
	}
	t.value = value
	return t
}

// attrReader parses element attributes and keeps the first failure.
type attrReader struct {
	kind osm.Type
	el   *model.Element
	err  error
}

func (a *attrReader) fail(attr, reason string) {
	if a.err == nil {
		a.err = &AttributeError{Kind: a.kind, ID: a.el.ID(), Attr: attr, Reason: reason}
	}
}

func (a *attrReader) optional(name string) string {
	v, _ := a.el.Attrs.Get(name)
	return v
}

func (a *attrReader) required(name string) string {
	v, ok := a.el.Attrs.Get(name)
	if !ok {
		a.fail(name, "is missing")
	}
	return v
}

func (a *attrReader) int64Attr(name string) int64 {
	raw, ok := a.el.Attrs.Get(name)
	if !ok {
		a.fail(name, "is missing")
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		a.fail(name, fmt.Sprintf("is not an integer: %q", raw))
	}
	return v
}

func (a *attrReader) intAttr(name string) int {
	return int(a.int64Attr(name))
}

func (a *attrReader) optionalInt64Attr(name string) *int64 {
	raw, ok := a.el.Attrs.Get(name)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		a.fail(name, fmt.Sprintf("is not an integer: %q", raw))
		return nil
	}
	return &v
}

func (a *attrReader) floatAttr(name string) float64 {
	raw, ok := a.el.Attrs.Get(name)
	if !ok {
		a.fail(name, "is missing")
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		a.fail(name, fmt.Sprintf("is not a number: %q", raw))
	}
	return v
}
