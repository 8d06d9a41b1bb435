package osmxml

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/osm"
	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-audit/internal/model"
)

// File streams elements from the document at path. Files ending in .gz or
// .bz2 are decompressed. The file is opened when iteration starts and closed
// when it ends, whether the sequence is exhausted, abandoned or fails.
func File(ctx context.Context, path string, kinds ...osm.Type) iter.Seq2[*model.Element, error] {
	return fromOpener(ctx, func() (io.ReadCloser, error) { return Open(path) }, kinds...)
}

func fromOpener(ctx context.Context, open func() (io.ReadCloser, error), kinds ...osm.Type) iter.Seq2[*model.Element, error] {
	return func(yield func(*model.Element, error) bool) {
		rc, err := open()
		if err != nil {
			yield(nil, err)
			return
		}
		defer rc.Close() //nolint:errcheck

		for el, err := range Elements(ctx, rc, kinds...) {
			if !yield(el, err) {
				return
			}
		}
	}
}

// Open opens path for reading, decompressing by extension.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xml: open %s", path)
	}

	br := bufio.NewReaderSize(f, 1<<16)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, eris.Wrapf(err, "xml: gzip header %s", path)
		}
		return &readCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil
	case ".bz2":
		return &readCloser{Reader: bzip2.NewReader(br), closers: []io.Closer{f}}, nil
	}
	return &readCloser{Reader: br, closers: []io.Closer{f}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
