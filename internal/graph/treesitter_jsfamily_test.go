package graph_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph-mcp/codegraph/internal/graph"
)

func readFixture(t *testing.T, relPath string) []byte {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join("..", "..", "testdata", "fixtures", relPath))
	require.NoError(t, err)
	data, err := os.ReadFile(abs)
	require.NoError(t, err)
	return data
}

func symbolNames(symbols []graph.Symbol) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = s.Name
	}
	return out
}

// TestJavaScriptExtraction checks class/method/function extraction and the
// bare (unwrapped) class_heritage shape JS uses for "extends".
func TestJavaScriptExtraction(t *testing.T) {
	source := readFixture(t, "js_project/app.js")
	parser := graph.NewTreeSitterParser(graph.ExtractOptions{})

	result, err := parser.Parse(context.Background(), "app.js", source, graph.LangJavaScript)
	require.NoError(t, err)

	names := symbolNames(result.Symbols)
	assert.Contains(t, names, "Animal")
	assert.Contains(t, names, "Dog")
	assert.Contains(t, names, "speak")
	assert.Contains(t, names, "bark")
	assert.Contains(t, names, "makeDog")

	var sawInherit bool
	for _, rr := range result.RawRelations {
		if rr.Kind == graph.RelationInherit && rr.Target == "Animal" {
			sawInherit = true
		}
	}
	assert.True(t, sawInherit, "Dog extends Animal should emit an inheritance raw relation")
}

// TestTypeScriptExtraction checks interface/type-alias extraction and the
// wrapped implements_clause shape TS uses, distinct from JS's bare form.
func TestTypeScriptExtraction(t *testing.T) {
	source := readFixture(t, "ts_project/service.ts")
	parser := graph.NewTreeSitterParser(graph.ExtractOptions{})

	result, err := parser.Parse(context.Background(), "service.ts", source, graph.LangTypeScript)
	require.NoError(t, err)

	names := symbolNames(result.Symbols)
	assert.Contains(t, names, "Repository")
	assert.Contains(t, names, "UserRepository")
	assert.Contains(t, names, "UserId")
	assert.Contains(t, names, "find")
	assert.Contains(t, names, "createRepository")

	var sawImplements bool
	for _, rr := range result.RawRelations {
		if rr.Kind == graph.RelationInherit && rr.Target == "Repository" {
			sawImplements = true
		}
	}
	assert.True(t, sawImplements, "UserRepository implements Repository should emit an inheritance raw relation")
}

// TestRustExtraction checks struct/trait/impl extraction, including the
// impl-block-to-trait inheritance relation that has no JS/TS equivalent.
func TestRustExtraction(t *testing.T) {
	source := readFixture(t, "rust_project/lib.rs")
	parser := graph.NewTreeSitterParser(graph.ExtractOptions{})

	result, err := parser.Parse(context.Background(), "lib.rs", source, graph.LangRust)
	require.NoError(t, err)

	names := symbolNames(result.Symbols)
	assert.Contains(t, names, "Counter")
	assert.Contains(t, names, "Increment")
	assert.Contains(t, names, "bump")
	assert.Contains(t, names, "new_counter")

	var sawTraitImpl bool
	for _, rr := range result.RawRelations {
		if rr.Kind == graph.RelationInherit && rr.Target == "Increment" {
			sawTraitImpl = true
		}
	}
	assert.True(t, sawTraitImpl, "impl Increment for Counter should emit an inheritance raw relation")
}
