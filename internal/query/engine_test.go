package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph-mcp/codegraph/internal/graph"
	"github.com/codegraph-mcp/codegraph/internal/query"
)

func mustAdd(t *testing.T, g *graph.Graph, s graph.Symbol) graph.SymbolID {
	t.Helper()
	if s.Parent == 0 {
		s.Parent = graph.NoParent
	}
	id, err := g.AddSymbol(s)
	require.NoError(t, err)
	return id
}

// TestFindScope covers scenario S2: a scope prefix filters out symbols in
// files outside it, and substring matches score around 0.8 ordered by name
// length.
func TestFindScope(t *testing.T) {
	g := graph.New()
	mustAdd(t, g, graph.Symbol{Name: "process_data", Kind: graph.SymbolKindFunction, File: "main.py", Language: graph.LangPython})
	mustAdd(t, g, graph.Symbol{Name: "clean_data", Kind: graph.SymbolKindFunction, File: "main.py", Language: graph.LangPython})
	mustAdd(t, g, graph.Symbol{Name: "validate_data", Kind: graph.SymbolKindFunction, File: "utils.py", Language: graph.LangPython})

	eng := query.New(g)

	empty, err := eng.Find("data", "src/")
	require.NoError(t, err)
	assert.Empty(t, empty.Matches)

	g2 := graph.New()
	mustAdd(t, g2, graph.Symbol{Name: "process_data", Kind: graph.SymbolKindFunction, File: "src/main.py", Language: graph.LangPython})
	mustAdd(t, g2, graph.Symbol{Name: "clean_data", Kind: graph.SymbolKindFunction, File: "src/main.py", Language: graph.LangPython})
	mustAdd(t, g2, graph.Symbol{Name: "validate_data", Kind: graph.SymbolKindFunction, File: "src/utils.py", Language: graph.LangPython})

	result, err := query.New(g2).Find("data", "src/")
	require.NoError(t, err)
	require.Len(t, result.Matches, 3)
	for _, m := range result.Matches {
		assert.InDelta(t, 0.8, m.Confidence, 0.001)
	}
	assert.Less(t, len(result.Matches[0].Name), len(result.Matches[len(result.Matches)-1].Name)+1)
}

// TestImpactRiskTiers covers scenario S3: two direct callers with no
// transitive extras is low risk; an 11-deep transitive chain is high risk.
func TestImpactRiskTiers(t *testing.T) {
	g := graph.New()
	target := mustAdd(t, g, graph.Symbol{Name: "target", Kind: graph.SymbolKindFunction, File: "a.py", Language: graph.LangPython})
	c1 := mustAdd(t, g, graph.Symbol{Name: "caller1", Kind: graph.SymbolKindFunction, File: "a.py", Language: graph.LangPython})
	c2 := mustAdd(t, g, graph.Symbol{Name: "caller2", Kind: graph.SymbolKindFunction, File: "a.py", Language: graph.LangPython})
	_, err := g.AddRelation(graph.Relation{Source: c1, Target: target, Kind: graph.RelationDirectCall, Confidence: 1.0})
	require.NoError(t, err)
	_, err = g.AddRelation(graph.Relation{Source: c2, Target: target, Kind: graph.RelationDirectCall, Confidence: 1.0})
	require.NoError(t, err)

	result, err := query.New(g).Impact("target", false)
	require.NoError(t, err)
	assert.Equal(t, "low", result.RiskLevel)

	gHigh := graph.New()
	hTarget := mustAdd(t, gHigh, graph.Symbol{Name: "target", Kind: graph.SymbolKindFunction, File: "a.py", Language: graph.LangPython})
	prev := hTarget
	for i := 0; i < 11; i++ {
		next := mustAdd(t, gHigh, graph.Symbol{Name: "c" + string(rune('a'+i)), Kind: graph.SymbolKindFunction, File: "a.py", Language: graph.LangPython})
		_, err := gHigh.AddRelation(graph.Relation{Source: next, Target: prev, Kind: graph.RelationDirectCall, Confidence: 1.0})
		require.NoError(t, err)
		prev = next
	}

	highResult, err := query.New(gHigh).Impact("target", false)
	require.NoError(t, err)
	assert.Equal(t, "high", highResult.RiskLevel)
}

// TestNavigateAmbiguous covers scenario S4: two classes both define a
// method "save"; navigate("save") returns Ambiguous listing both
// candidates, with no traversal performed.
func TestNavigateAmbiguous(t *testing.T) {
	g := graph.New()
	mustAdd(t, g, graph.Symbol{Name: "save", Kind: graph.SymbolKindMethod, File: "a.py", Line: 10, Language: graph.LangPython})
	mustAdd(t, g, graph.Symbol{Name: "save", Kind: graph.SymbolKindMethod, File: "b.py", Line: 20, Language: graph.LangPython})

	_, err := query.New(g).Navigate("save", 1)
	require.Error(t, err)

	qerr, ok := err.(*query.QueryError)
	require.True(t, ok, "expected a *query.QueryError")
	assert.Equal(t, query.ErrAmbiguous, qerr.Kind)
	assert.Len(t, qerr.Candidates, 2)
}

// TestNavigateNotFound checks the NotFound path for an unknown symbol.
func TestNavigateNotFound(t *testing.T) {
	g := graph.New()
	_, err := query.New(g).Navigate("nonexistent", 1)
	require.Error(t, err)
	qerr, ok := err.(*query.QueryError)
	require.True(t, ok)
	assert.Equal(t, query.ErrNotFound, qerr.Kind)
}

// TestNavigateInvalidDepth checks depth bounds validation.
func TestNavigateInvalidDepth(t *testing.T) {
	g := graph.New()
	mustAdd(t, g, graph.Symbol{Name: "f", Kind: graph.SymbolKindFunction, File: "a.py", Language: graph.LangPython})

	_, err := query.New(g).Navigate("f", 5)
	require.Error(t, err)
	qerr, ok := err.(*query.QueryError)
	require.True(t, ok)
	assert.Equal(t, query.ErrInvalidArgument, qerr.Kind)
}
