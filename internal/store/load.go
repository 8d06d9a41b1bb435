package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/osm-audit/internal/fetcher"
	"github.com/sells-group/osm-audit/internal/model"
)

// DefaultBatchSize is the number of rows per Insert call.
const DefaultBatchSize = 5000

// LoadCSV streams a table's CSV (header first) into s in batches and returns
// the number of rows loaded. The header must match t's columns.
func LoadCSV(ctx context.Context, s Store, t model.Table, r io.Reader, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	// The reader goroutine blocks on send until ctx ends, so stop it on any
	// early return.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})

	var (
		total       int64
		line        = 1
		batch       = make([][]any, 0, batchSize)
		headerCheck = true
	)
	flush := func() error {
		n, err := s.Insert(ctx, t, batch)
		total += n
		batch = batch[:0]
		return err
	}

	for rec := range rowCh {
		line++
		if headerCheck {
			headerCheck = false
			if err := checkHeader(t, <-headerCh); err != nil {
				return 0, err
			}
		}
		row, err := convertRow(t, rec)
		if err != nil {
			return total, eris.Wrapf(err, "store: %s line %d", t.File, line)
		}
		batch = append(batch, row)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := <-errCh; err != nil {
		return total, eris.Wrapf(err, "store: read %s", t.File)
	}
	if headerCheck {
		// No data rows; the header may still be wrong.
		select {
		case h := <-headerCh:
			if err := checkHeader(t, h); err != nil {
				return 0, err
			}
		default:
			return 0, eris.Errorf("store: %s: missing header", t.File)
		}
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return total, err
		}
	}
	return total, nil
}

func checkHeader(t model.Table, header []string) error {
	if !slices.Equal(header, t.ColumnNames()) {
		return eris.Errorf("store: %s: header %v does not match columns %v", t.File, header, t.ColumnNames())
	}
	return nil
}

// convertRow types each field by its column. Empty nullable fields become
// NULL.
func convertRow(t model.Table, rec []string) ([]any, error) {
	if len(rec) != len(t.Columns) {
		return nil, eris.Errorf("expected %d fields, got %d", len(t.Columns), len(rec))
	}
	row := make([]any, len(rec))
	for i, c := range t.Columns {
		v := rec[i]
		if v == "" && c.Nullable {
			row[i] = nil
			continue
		}
		switch c.Type {
		case model.Integer:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "column %s", c.Name)
			}
			row[i] = n
		case model.Real:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "column %s", c.Name)
			}
			row[i] = f
		default:
			row[i] = v
		}
	}
	return row, nil
}

// LoadOptions configures LoadDir.
type LoadOptions struct {
	BatchSize int
	// Tables restricts the load to the named tables. Empty loads all five.
	Tables []string
	Now    func() time.Time
}

// LoadDir loads every table CSV found in dir. Parent tables load
// concurrently first, then their children. Each table load is recorded in
// load_runs under one shared run id.
func LoadDir(ctx context.Context, s Store, dir string, opts LoadOptions) ([]LoadRun, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := zap.L().With(zap.String("component", "store"), zap.String("dir", dir))

	selected := model.Tables
	if len(opts.Tables) > 0 {
		selected = nil
		for _, name := range opts.Tables {
			t, ok := model.TableByName(name)
			if !ok {
				return nil, eris.Errorf("store: unknown table %q", name)
			}
			selected = append(selected, t)
		}
	}

	var parents, children []model.Table
	for _, t := range selected {
		if t.Parent == "" {
			parents = append(parents, t)
		} else {
			children = append(children, t)
		}
	}

	runID := uuid.New().String()
	var runs []LoadRun
	for _, tier := range [][]model.Table{parents, children} {
		results := make([]LoadRun, len(tier))
		g, gctx := errgroup.WithContext(ctx)
		for i, t := range tier {
			g.Go(func() error {
				run, err := loadFile(gctx, s, t, filepath.Join(dir, t.File), opts.BatchSize, now)
				if err != nil {
					return err
				}
				run.ID = runID
				results[i] = run
				log.Info("table loaded", zap.String("table", t.Name), zap.Int64("rows", run.Rows),
					zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return runs, err
		}
		for _, run := range results {
			if err := s.RecordLoad(ctx, run); err != nil {
				return runs, err
			}
			runs = append(runs, run)
		}
	}
	return runs, nil
}

func loadFile(ctx context.Context, s Store, t model.Table, path string, batchSize int, now func() time.Time) (LoadRun, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadRun{}, eris.Wrapf(err, "store: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	run := LoadRun{Source: path, Table: t.Name, StartedAt: now()}
	n, err := LoadCSV(ctx, s, t, f, batchSize)
	if err != nil {
		return LoadRun{}, err
	}
	run.Rows = n
	run.FinishedAt = now()
	return run, nil
}
