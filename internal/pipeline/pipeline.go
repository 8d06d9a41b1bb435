// Package pipeline drives a single streaming pass from source elements to the
// record sink.
package pipeline

import (
	"context"
	"iter"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/osm"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/osm-audit/internal/model"
	"github.com/sells-group/osm-audit/internal/normalize"
	"github.com/sells-group/osm-audit/internal/shape"
)

// Sink receives the records of each shaped element.
type Sink interface {
	Write(ctx context.Context, s *model.Shaped) error
	Close() error
}

// Validator checks a shaped element before it is written.
type Validator interface {
	Validate(s *model.Shaped) error
}

// Stats summarizes a completed run.
type Stats struct {
	Elements int            `json:"elements" yaml:"elements"`
	Skipped  int            `json:"skipped" yaml:"skipped"`
	Records  map[string]int `json:"records" yaml:"records"`
	Elapsed  time.Duration  `json:"elapsed" yaml:"elapsed"`
}

// Pipeline shapes, optionally validates, and writes every element of a
// sequence. It is single-threaded.
type Pipeline struct {
	shaper    *shape.Shaper
	sink      Sink
	validator Validator
	metrics   *Metrics
	clock     clockwork.Clock
	progress  *rate.Sometimes
	log       *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithValidator enables schema validation. A failure aborts the run.
func WithValidator(v Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

// WithMetrics records counters on m instead of a private registry.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock sets the clock used to time the run.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithProgressInterval logs progress at most once per interval. Zero disables
// progress logging.
func WithProgressInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d <= 0 {
			p.progress = nil
			return
		}
		p.progress = &rate.Sometimes{Interval: d}
	}
}

// New creates a Pipeline writing to sink.
func New(norm *normalize.Normalizer, sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		sink:     sink,
		clock:    clockwork.NewRealClock(),
		progress: &rate.Sometimes{Interval: 10 * time.Second},
		log:      zap.L().With(zap.String("component", "pipeline")),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = NewMetrics()
	}
	p.shaper = shape.New(norm, shape.WithObserver(p.observeNormalized))
	return p
}

// Metrics returns the counters the pipeline records on.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

func (p *Pipeline) observeNormalized(rule normalize.Rule, before, after string) {
	p.metrics.Normalized.WithLabelValues(string(rule), outcome(before, after)).Inc()
}

// Run consumes seq until it is exhausted or an error occurs. Any error from
// the sequence, the shaper, the validator or the sink stops the run. The
// sink is not closed.
func (p *Pipeline) Run(ctx context.Context, seq iter.Seq2[*model.Element, error]) (stats Stats, err error) {
	start := p.clock.Now()
	stats.Records = make(map[string]int, len(model.Tables))

	p.metrics.Running.Set(1)
	defer func() {
		p.metrics.Running.Set(0)
		stats.Elapsed = p.clock.Since(start)
		p.metrics.RunDuration.Set(stats.Elapsed.Seconds())
	}()

	p.log.Info("run started")

	for el, srcErr := range seq {
		if srcErr != nil {
			p.log.Error("source failed", zap.Int("elements", stats.Elements), zap.Error(srcErr))
			return stats, eris.Wrap(srcErr, "pipeline: read source")
		}
		stats.Elements++
		p.metrics.ElementsRead.WithLabelValues(string(el.Kind())).Inc()

		if err := p.process(ctx, el, &stats); err != nil {
			p.log.Error("element failed",
				zap.String("kind", string(el.Kind())),
				zap.String("id", el.ID()),
				zap.Error(err),
			)
			return stats, err
		}

		if p.progress != nil {
			p.progress.Do(func() {
				p.log.Info("progress",
					zap.Int("elements", stats.Elements),
					zap.Duration("elapsed", p.clock.Since(start)),
				)
			})
		}
	}

	p.log.Info("run finished",
		zap.Int("elements", stats.Elements),
		zap.Int("skipped", stats.Skipped),
		zap.Any("records", stats.Records),
		zap.Duration("elapsed", p.clock.Since(start)),
	)
	return stats, nil
}

func (p *Pipeline) process(ctx context.Context, el *model.Element, stats *Stats) error {
	shaped, err := p.shaper.Shape(el)
	if err != nil {
		return eris.Wrapf(err, "pipeline: shape %s %s", el.Kind(), el.ID())
	}
	if shaped == nil {
		stats.Skipped++
		return nil
	}

	if p.validator != nil {
		if err := p.validator.Validate(shaped); err != nil {
			return eris.Wrapf(err, "pipeline: validate %s %s", el.Kind(), el.ID())
		}
	}

	if err := p.sink.Write(ctx, shaped); err != nil {
		return eris.Wrapf(err, "pipeline: write %s %s", el.Kind(), el.ID())
	}
	p.count(shaped, stats)
	return nil
}

func (p *Pipeline) count(s *model.Shaped, stats *Stats) {
	add := func(t model.Table, n int) {
		if n == 0 {
			return
		}
		stats.Records[t.Name] += n
		p.metrics.RecordsEmitted.WithLabelValues(t.Name).Add(float64(n))
	}

	switch s.Kind {
	case osm.TypeNode:
		add(model.NodesTable, 1)
		add(model.NodeTagsTable, len(s.NodeTags))
	case osm.TypeWay:
		add(model.WaysTable, 1)
		add(model.WayNodesTable, len(s.WayNodes))
		add(model.WayTagsTable, len(s.WayTags))
	}
}
