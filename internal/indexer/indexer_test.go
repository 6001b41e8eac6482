package indexer_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph-mcp/codegraph/internal/graph"
	"github.com/codegraph-mcp/codegraph/internal/indexer"
	"github.com/codegraph-mcp/codegraph/internal/query"
)

func fixtureAbsPath(t *testing.T, name string) string {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join("..", "..", "testdata", "fixtures", name))
	require.NoError(t, err)
	return abs
}

func newIndexer(t *testing.T) *indexer.Indexer {
	t.Helper()
	return indexer.New(graph.NewTreeSitterParser(graph.ExtractOptions{}))
}

// TestIndexPythonProject exercises scenario S1: process_data calls
// clean_data, validate_data, format_output, in source order, and is called
// by _do_processing.
func TestIndexPythonProject(t *testing.T) {
	ix := newIndexer(t)
	result, err := ix.Index(context.Background(), fixtureAbsPath(t, "python_project"))
	require.NoError(t, err)
	require.Empty(t, result.Diagnostics)
	assert.Equal(t, 2, result.FilesParsed)

	eng := query.New(result.Graph)
	nav, err := eng.Navigate("process_data", 1)
	require.NoError(t, err)

	require.Len(t, nav.Calls, 3)
	assert.Equal(t, "clean_data", nav.Calls[0].Name)
	assert.Equal(t, "validate_data", nav.Calls[1].Name)
	assert.Equal(t, "format_output", nav.Calls[2].Name)

	require.Len(t, nav.CalledBy, 1)
	assert.Equal(t, "_do_processing", nav.CalledBy[0].Name)
}

// TestIndexDeterministic rebuilds the same project twice and checks the
// resulting graphs agree on symbol count, relation count, and name set
// (spec testable property 6: deterministic insertion order).
func TestIndexDeterministic(t *testing.T) {
	ix := newIndexer(t)
	root := fixtureAbsPath(t, "python_project")

	r1, err := ix.Index(context.Background(), root)
	require.NoError(t, err)
	r2, err := ix.Index(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, r1.Graph.SymbolCount(), r2.Graph.SymbolCount())
	assert.Equal(t, r1.Graph.RelationCount(), r2.Graph.RelationCount())
	assert.Equal(t, r1.Graph.AllNames(), r2.Graph.AllNames())
}

// TestIndexRustProject indexes the Rust fixture end to end and checks that
// Navigate resolves new_counter in the built graph.
func TestIndexRustProject(t *testing.T) {
	ix := newIndexer(t)
	result, err := ix.Index(context.Background(), fixtureAbsPath(t, "rust_project"))
	require.NoError(t, err)

	eng := query.New(result.Graph)
	nav, err := eng.Navigate("new_counter", 1)
	require.NoError(t, err)
	assert.NotNil(t, nav)
}
