// Package sink writes shaped records to their output streams.
package sink

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/paulmach/osm"
	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-audit/internal/model"
)

// stream is one delimited output with its header already written.
type stream struct {
	table  model.Table
	closer io.Closer
	w      *csv.Writer
}

func (s *stream) write(rec []string) error {
	if err := s.w.Write(rec); err != nil {
		return eris.Wrapf(err, "sink: write %s", s.table.File)
	}
	return nil
}

func (s *stream) flush() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return eris.Wrapf(err, "sink: flush %s", s.table.File)
	}
	return nil
}

// CSV writes the five record streams as delimited files with a header row.
type CSV struct {
	nodes, nodeTags, ways, wayNodes, wayTags *stream
}

// NewCSV creates the five output files in dir, truncating existing files.
func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "sink: create dir %s", dir)
	}
	return build(func(t model.Table) (io.WriteCloser, error) {
		f, err := os.Create(filepath.Join(dir, t.File))
		if err != nil {
			return nil, eris.Wrapf(err, "sink: create %s", t.File)
		}
		return f, nil
	})
}

// NewCSVWriters builds a CSV sink over caller-owned writers keyed by table
// name. Close flushes but does not close them.
func NewCSVWriters(writers map[string]io.Writer) (*CSV, error) {
	return build(func(t model.Table) (io.WriteCloser, error) {
		w, ok := writers[t.Name]
		if !ok {
			return nil, eris.Errorf("sink: no writer for %s", t.Name)
		}
		return nopCloser{w}, nil
	})
}

func build(open func(model.Table) (io.WriteCloser, error)) (*CSV, error) {
	c := &CSV{}
	targets := []struct {
		dst   **stream
		table model.Table
	}{
		{&c.nodes, model.NodesTable},
		{&c.nodeTags, model.NodeTagsTable},
		{&c.ways, model.WaysTable},
		{&c.wayNodes, model.WayNodesTable},
		{&c.wayTags, model.WayTagsTable},
	}
	for _, target := range targets {
		w, err := open(target.table)
		if err == nil {
			s := &stream{table: target.table, closer: w, w: csv.NewWriter(w)}
			*target.dst = s
			err = s.write(target.table.ColumnNames())
		}
		if err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Write appends the records of one shaped element and flushes the streams it
// touched.
func (c *CSV) Write(ctx context.Context, s *model.Shaped) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "sink: context cancelled")
	}

	switch s.Kind {
	case osm.TypeNode:
		if err := c.nodes.write(s.Node.Record()); err != nil {
			return err
		}
		for _, t := range s.NodeTags {
			if err := c.nodeTags.write(t.Record()); err != nil {
				return err
			}
		}
		return flushAll(c.nodes, c.nodeTags)
	case osm.TypeWay:
		if err := c.ways.write(s.Way.Record()); err != nil {
			return err
		}
		for _, wn := range s.WayNodes {
			if err := c.wayNodes.write(wn.Record()); err != nil {
				return err
			}
		}
		for _, t := range s.WayTags {
			if err := c.wayTags.write(t.Record()); err != nil {
				return err
			}
		}
		return flushAll(c.ways, c.wayNodes, c.wayTags)
	}
	return eris.Errorf("sink: unsupported kind %q", s.Kind)
}

// Close flushes and closes every stream. The first error is returned.
func (c *CSV) Close() error {
	var first error
	for _, s := range []*stream{c.nodes, c.nodeTags, c.ways, c.wayNodes, c.wayTags} {
		if s == nil {
			continue
		}
		if err := s.flush(); err != nil && first == nil {
			first = err
		}
		if err := s.closer.Close(); err != nil && first == nil {
			first = eris.Wrapf(err, "sink: close %s", s.table.File)
		}
	}
	return first
}

func flushAll(streams ...*stream) error {
	for _, s := range streams {
		if err := s.flush(); err != nil {
			return err
		}
	}
	return nil
}
