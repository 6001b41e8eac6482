package persist_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph-mcp/codegraph/internal/graph"
	"github.com/codegraph-mcp/codegraph/internal/persist"
)

func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	a, err := g.AddSymbol(graph.Symbol{
		Name: "process_data", Kind: graph.SymbolKindFunction, File: "main.py",
		Line: 5, Signature: "def process_data(raw):", Language: graph.LangPython,
		Visibility: graph.VisibilityPublic, Parent: graph.NoParent,
	})
	require.NoError(t, err)
	b, err := g.AddSymbol(graph.Symbol{
		Name: "clean_data", Kind: graph.SymbolKindFunction, File: "main.py",
		Line: 1, Signature: "def clean_data(raw):", Language: graph.LangPython,
		Visibility: graph.VisibilityPublic, Parent: graph.NoParent,
	})
	require.NoError(t, err)
	_, err = g.AddRelation(graph.Relation{Source: a, Target: b, Kind: graph.RelationDirectCall, Confidence: 1.0, Line: 6})
	require.NoError(t, err)
	return g
}

// TestRoundTripByteIdentical covers scenario S5: index, serialize,
// deserialize, re-serialize — the two blobs must be byte-identical.
func TestRoundTripByteIdentical(t *testing.T) {
	g := sampleGraph(t)

	var buf1 bytes.Buffer
	require.NoError(t, persist.Encode(g, &buf1))

	g2, err := persist.Decode(bytes.NewReader(buf1.Bytes()))
	require.NoError(t, err)

	var buf2 bytes.Buffer
	require.NoError(t, persist.Encode(g2, &buf2))

	assert.True(t, bytes.Equal(buf1.Bytes(), buf2.Bytes()), "re-encoded bytes must match the original exactly")
}

// TestRoundTripPreservesData checks the decoded graph carries the same
// symbol and relation data as the original.
func TestRoundTripPreservesData(t *testing.T) {
	g := sampleGraph(t)

	var buf bytes.Buffer
	require.NoError(t, persist.Encode(g, &buf))

	g2, err := persist.Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, g.SymbolCount(), g2.SymbolCount())
	assert.Equal(t, g.RelationCount(), g2.RelationCount())
	assert.Equal(t, g.AllSymbols(), g2.AllSymbols())
	assert.Equal(t, g.AllRelations(), g2.AllRelations())
}

// TestDecodeBadMagicIsCorrupt checks a truncated/garbage stream is reported
// as ErrCorrupt, never panics or silently returns an empty graph.
func TestDecodeBadMagicIsCorrupt(t *testing.T) {
	_, err := persist.Decode(bytes.NewReader([]byte("not a codegraph index")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, persist.ErrCorrupt))
}

// TestDecodeOutOfRangeEdgeIsCorrupt checks a relation whose endpoint is
// outside the decoded symbol table is rejected rather than indexed.
func TestDecodeOutOfRangeEdgeIsCorrupt(t *testing.T) {
	g := graph.New()
	_, err := g.AddSymbol(graph.Symbol{
		Name: "only", Kind: graph.SymbolKindFunction, File: "a.py", Line: 1,
		Language: graph.LangPython, Visibility: graph.VisibilityPublic, Parent: graph.NoParent,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, persist.Encode(g, &buf))

	// Rewrite the edge count to 1 and append one well-formed relation whose
	// target id (5) lies outside the one-symbol table.
	raw := buf.Bytes()
	// magic(4) + version(2) + langEnumVersion(2) + nodeCount(4) = 12 bytes
	// header, followed by 1 symbol's bytes, then a 4-byte edge count of 0.
	edgeCountOffset := len(raw) - 4
	raw[edgeCountOffset+3] = 1 // claim 1 edge
	raw = append(raw,
		0, 0, 0, 0, // source 0
		0, 0, 0, 5, // target 5: out of range
		0,                      // kind: direct_call
		0x3F, 0x80, 0x00, 0x00, // confidence 1.0
		0, 0, 0, 1, // line 1
	)

	_, err = persist.Decode(bytes.NewReader(raw))
	require.Error(t, err)
	assert.True(t, errors.Is(err, persist.ErrCorrupt))
}
