// Package sample writes a systematic sample of a large OSM document as a
// smaller, well-formed OSM document.
package sample

import (
	"context"
	"encoding/xml"
	"io"
	"iter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-audit/internal/model"
)

// Write copies the first element of seq and every k-th element after it into
// a new <osm> document on w. It returns the number of elements written.
func Write(ctx context.Context, w io.Writer, seq iter.Seq2[*model.Element, error], k int) (int, error) {
	if k < 1 {
		return 0, eris.Errorf("sample: k must be positive, got %d", k)
	}

	if _, err := io.WriteString(w, xml.Header+"<osm>\n"); err != nil {
		return 0, eris.Wrap(err, "sample: write header")
	}

	enc := xml.NewEncoder(w)
	enc.Indent("  ", "  ")

	var i, written int
	for el, err := range seq {
		if err != nil {
			return written, eris.Wrap(err, "sample: read source")
		}
		if ctx.Err() != nil {
			return written, eris.Wrap(ctx.Err(), "sample: context cancelled")
		}
		if i%k == 0 {
			if err := enc.Encode(el); err != nil {
				return written, eris.Wrapf(err, "sample: encode %s %s", el.Kind(), el.ID())
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return written, eris.Wrap(err, "sample: write")
			}
			written++
		}
		i++
	}

	if err := enc.Flush(); err != nil {
		return written, eris.Wrap(err, "sample: flush")
	}
	if _, err := io.WriteString(w, "</osm>\n"); err != nil {
		return written, eris.Wrap(err, "sample: write footer")
	}
	return written, nil
}
