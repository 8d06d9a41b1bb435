// Package osmxml streams top-level elements out of OSM XML documents without
// building the document tree.
package osmxml

import (
	"context"
	"encoding/xml"
	"io"
	"iter"

	"github.com/paulmach/osm"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/osm-audit/internal/model"
)

// DefaultKinds are the element kinds extracted when none are given.
var DefaultKinds = []osm.Type{osm.TypeNode, osm.TypeWay}

// Elements returns a forward-only sequence of the elements of the given kinds
// in r. Each matching element is decoded with its subtree and handed to the
// consumer; nothing else is retained. The sequence stops at the first error,
// which is yielded with a nil element.
func Elements(ctx context.Context, r io.Reader, kinds ...osm.Type) iter.Seq2[*model.Element, error] {
	want := kindSet(kinds)

	return func(yield func(*model.Element, error) bool) {
		decoder := newDecoder(r)

		for {
			if ctx.Err() != nil {
				yield(nil, eris.Wrap(ctx.Err(), "xml: context cancelled"))
				return
			}

			tok, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, eris.Wrap(err, "xml: read token"))
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok {
				continue
			}
			if _, ok := want[se.Name.Local]; !ok {
				continue
			}

			el := new(model.Element)
			if err := decoder.DecodeElement(el, &se); err != nil {
				yield(nil, eris.Wrapf(err, "xml: decode element %s", se.Name.Local))
				return
			}

			if !yield(el, nil) {
				return
			}
		}
	}
}

func newDecoder(r io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return decoder
}

func kindSet(kinds []osm.Type) map[string]struct{} {
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		set[string(k)] = struct{}{}
	}
	return set
}

// ParseKinds converts element kind names into osm types. Only node, way and
// relation are accepted.
func ParseKinds(names []string) ([]osm.Type, error) {
	kinds := make([]osm.Type, 0, len(names))
	for _, name := range names {
		switch k := osm.Type(name); k {
		case osm.TypeNode, osm.TypeWay, osm.TypeRelation:
			kinds = append(kinds, k)
		default:
			return nil, eris.Errorf("xml: unknown element kind %q", name)
		}
	}
	return kinds, nil
}
