package sample

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-audit/internal/osmxml"
)

func source(n int) string {
	var b strings.Builder
	b.WriteString("<osm>")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<node id="%d" lat="1" lon="2" version="1" changeset="1" timestamp="t"><tag k="name" v="n%d"/></node>`, i, i)
	}
	b.WriteString(`<way id="100" version="1" changeset="1" timestamp="t"><nd ref="1"/><nd ref="2"/><tag k="highway" v="path"/></way>`)
	b.WriteString("</osm>")
	return b.String()
}

func TestWrite_EveryKth(t *testing.T) {
	all := []osm.Type{osm.TypeNode, osm.TypeWay, osm.TypeRelation}
	seq := osmxml.Elements(context.Background(), strings.NewReader(source(20)), all...)

	var out bytes.Buffer
	n, err := Write(context.Background(), &out, seq, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, strings.HasPrefix(out.String(), `<?xml version="1.0" encoding="UTF-8"?>`))

	// The sample is itself a streamable document.
	var ids []string
	for el, err := range osmxml.Elements(context.Background(), bytes.NewReader(out.Bytes()), all...) {
		require.NoError(t, err)
		ids = append(ids, el.ID())
	}
	assert.Equal(t, []string{"1", "11", "100"}, ids)
}

func TestWrite_PreservesChildren(t *testing.T) {
	seq := osmxml.Elements(context.Background(), strings.NewReader(source(1)))

	var out bytes.Buffer
	_, err := Write(context.Background(), &out, seq, 1)
	require.NoError(t, err)

	var tags, nds int
	for el, err := range osmxml.Elements(context.Background(), bytes.NewReader(out.Bytes())) {
		require.NoError(t, err)
		tags += len(el.Tags)
		nds += len(el.Nds)
	}
	assert.Equal(t, 2, tags)
	assert.Equal(t, 2, nds)
	assert.Contains(t, out.String(), `k="highway"`)
}

func TestWrite_InvalidK(t *testing.T) {
	_, err := Write(context.Background(), &bytes.Buffer{}, osmxml.Elements(context.Background(), strings.NewReader("<osm/>")), 0)
	assert.Error(t, err)
}
