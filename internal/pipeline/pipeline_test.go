package pipeline

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/osm"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-audit/internal/model"
	"github.com/sells-group/osm-audit/internal/normalize"
	"github.com/sells-group/osm-audit/internal/osmxml"
	"github.com/sells-group/osm-audit/internal/shape"
	"github.com/sells-group/osm-audit/internal/validate"
)

const doc = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
	<node id="1" lat="42.3" lon="-71.0" user="a" uid="9" version="1" changeset="5" timestamp="t">
		<tag k="addr:street" v="123 Main St"/>
		<tag k="addr:postcode" v="MA 02118"/>
		<tag k="addr:state" v="New York"/>
	</node>
	<node id="2" lat="42.31" lon="-71.01" version="1" changeset="5" timestamp="t"/>
	<way id="10" version="1" changeset="5" timestamp="t">
		<nd ref="1"/><nd ref="2"/>
		<tag k="addr:street" v="Harvard Street"/>
	</way>
	<relation id="100" version="1" changeset="5" timestamp="t"/>
</osm>`

type memSink struct {
	shaped []*model.Shaped
	failAt int
	closed bool
}

func (m *memSink) Write(_ context.Context, s *model.Shaped) error {
	if m.failAt > 0 && len(m.shaped)+1 == m.failAt {
		return errors.New("disk full")
	}
	m.shaped = append(m.shaped, s)
	return nil
}

func (m *memSink) Close() error {
	m.closed = true
	return nil
}

func elements(kinds ...osm.Type) iter.Seq2[*model.Element, error] {
	return osmxml.Elements(context.Background(), strings.NewReader(doc), kinds...)
}

func newPipeline(sink Sink, opts ...Option) *Pipeline {
	return New(normalize.New(normalize.DefaultRules()), sink, opts...)
}

func TestRun_WritesShapedElements(t *testing.T) {
	sink := &memSink{}
	p := newPipeline(sink, WithProgressInterval(0))

	stats, err := p.Run(context.Background(), elements())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Elements)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, map[string]int{
		"nodes":      2,
		"nodes_tags": 3,
		"ways":       1,
		"ways_nodes": 2,
		"ways_tags":  1,
	}, stats.Records)
	assert.False(t, sink.closed, "run does not close the sink")

	require.Len(t, sink.shaped, 3)
	tags := sink.shaped[0].NodeTags
	assert.Equal(t, "123 Main Street", tags[0].Value)
	assert.Equal(t, "02118", tags[1].Value)
	assert.Equal(t, "", tags[2].Value)
}

func TestRun_SkipsOtherKinds(t *testing.T) {
	sink := &memSink{}
	stats, err := newPipeline(sink).Run(context.Background(), elements(osm.TypeNode, osm.TypeWay, osm.TypeRelation))
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Elements)
	assert.Equal(t, 1, stats.Skipped)
	assert.Len(t, sink.shaped, 3)
}

func TestRun_Metrics(t *testing.T) {
	m := NewMetrics()
	_, err := newPipeline(&memSink{}, WithMetrics(m)).Run(context.Background(), elements())
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ElementsRead.WithLabelValues("node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ElementsRead.WithLabelValues("way")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsEmitted.WithLabelValues("nodes_tags")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Normalized.WithLabelValues("street", "changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Normalized.WithLabelValues("street", "unchanged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Normalized.WithLabelValues("postcode", "changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Normalized.WithLabelValues("state", "blanked")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Running))

	path := filepath.Join(t.TempDir(), "osm_audit.prom")
	require.NoError(t, m.WriteTextfile(path))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "osm_audit_records_emitted_total")
}

func TestRun_Elapsed(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := &memSink{}
	p := newPipeline(sink, WithClock(clock))

	seq := func(yield func(*model.Element, error) bool) {
		for el, err := range elements() {
			clock.Advance(time.Second)
			if !yield(el, err) {
				return
			}
		}
	}

	stats, err := p.Run(context.Background(), seq)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, stats.Elapsed)
	assert.Equal(t, 3.0, testutil.ToFloat64(p.Metrics().RunDuration))
}

func TestRun_AttributeErrorIsFatal(t *testing.T) {
	bad := `<osm><node id="1" lat="1" lon="2" version="1" changeset="5" timestamp="t"/><node id="2" lon="2" version="1" changeset="5" timestamp="t"/><node id="3" lat="1" lon="2" version="1" changeset="5" timestamp="t"/></osm>`
	sink := &memSink{}

	stats, err := newPipeline(sink).Run(context.Background(), osmxml.Elements(context.Background(), strings.NewReader(bad)))
	require.Error(t, err)

	var attrErr *shape.AttributeError
	require.True(t, errors.As(err, &attrErr))
	assert.Equal(t, "2", attrErr.ID)
	assert.Equal(t, "lat", attrErr.Attr)
	assert.Equal(t, 2, stats.Elements)
	assert.Len(t, sink.shaped, 1)
}

func TestRun_ValidationErrorIsFatal(t *testing.T) {
	v, err := validate.New()
	require.NoError(t, err)

	bad := `<osm><node id="1" lat="91" lon="2" version="1" changeset="5" timestamp="t"/></osm>`
	sink := &memSink{}

	_, err = newPipeline(sink).Run(context.Background(), osmxml.Elements(context.Background(), strings.NewReader(bad)))
	require.NoError(t, err, "validation is off by default")

	sink = &memSink{}
	_, err = newPipeline(sink, WithValidator(v)).Run(context.Background(), osmxml.Elements(context.Background(), strings.NewReader(bad)))
	var vErr *validate.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "node.lat", vErr.Field)
	assert.Empty(t, sink.shaped)
}

func TestRun_SinkErrorStops(t *testing.T) {
	sink := &memSink{failAt: 2}
	stats, err := newPipeline(sink).Run(context.Background(), elements())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 2, stats.Elements)
	assert.Len(t, sink.shaped, 1)
}

func TestRun_MalformedSource(t *testing.T) {
	_, err := newPipeline(&memSink{}).Run(context.Background(), osmxml.Elements(context.Background(), strings.NewReader(`<osm><node id="1">`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: read source")
}
