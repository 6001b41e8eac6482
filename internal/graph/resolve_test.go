package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addSym(t *testing.T, g *Graph, name string, kind SymbolKind, file string, line int) SymbolID {
	t.Helper()
	id, err := g.AddSymbol(Symbol{Name: name, Kind: kind, File: file, Line: line, Language: LangPython})
	require.NoError(t, err)
	return id
}

// TestResolveLocalExact checks tier 1: a same-file candidate wins over a
// same-named symbol in another file, at full confidence.
func TestResolveLocalExact(t *testing.T) {
	g := New()
	caller := addSym(t, g, "caller", SymbolKindFunction, "a.py", 10)
	local := addSym(t, g, "helper", SymbolKindFunction, "a.py", 1)
	addSym(t, g, "helper", SymbolKindFunction, "b.py", 1)

	raw := []RawRelation{{Source: caller, Target: "helper", Kind: RelationDirectCall, Line: 11}}
	rels := NewResolver(g).ResolveAll(raw)

	require.Len(t, rels, 1)
	assert.Equal(t, local, rels[0].Target)
	assert.Equal(t, float32(1.0), rels[0].Confidence)
}

// TestResolveGlobalUnique checks tier 2: the sole same-named symbol anywhere
// in the graph resolves at full confidence for a direct call.
func TestResolveGlobalUnique(t *testing.T) {
	g := New()
	caller := addSym(t, g, "caller", SymbolKindFunction, "a.py", 1)
	target := addSym(t, g, "only_one", SymbolKindFunction, "b.py", 1)

	raw := []RawRelation{{Source: caller, Target: "only_one", Kind: RelationDirectCall, Line: 2}}
	rels := NewResolver(g).ResolveAll(raw)

	require.Len(t, rels, 1)
	assert.Equal(t, target, rels[0].Target)
	assert.Equal(t, float32(1.0), rels[0].Confidence)
}

// TestResolveAmbiguousRanked checks tiers 2-3: two same-named candidates in
// different files and languages, where the one matching the caller's
// language and directory wins with a lower, "ambiguous-but-ranked"
// confidence.
func TestResolveAmbiguousRanked(t *testing.T) {
	g := New()
	caller := addSym(t, g, "caller", SymbolKindFunction, "pkg/a.py", 1)
	same := addSym(t, g, "save", SymbolKindFunction, "pkg/b.py", 1)
	_, err := g.AddSymbol(Symbol{Name: "save", Kind: SymbolKindFunction, File: "other/c.rs", Line: 1, Language: LangRust})
	require.NoError(t, err)

	raw := []RawRelation{{Source: caller, Target: "save", Kind: RelationDirectCall, Line: 2}}
	rels := NewResolver(g).ResolveAll(raw)

	require.Len(t, rels, 1)
	assert.Equal(t, same, rels[0].Target)
	assert.Less(t, rels[0].Confidence, float32(1.0))
}

// TestResolveDropsUnmatched checks tier 5: a target with no exact or fuzzy
// candidate is dropped rather than resolved to a wrong symbol.
func TestResolveDropsUnmatched(t *testing.T) {
	g := New()
	caller := addSym(t, g, "caller", SymbolKindFunction, "a.py", 1)

	raw := []RawRelation{{Source: caller, Target: "zzz_completely_unrelated_xyz", Kind: RelationDirectCall, Line: 2}}
	rels := NewResolver(g).ResolveAll(raw)

	assert.Empty(t, rels)
}

// TestResolveFuzzyFallback checks tier 4: a near-miss spelling resolves via
// fuzzy match at a confidence no higher than the fuzzy tier's 0.85 cap.
func TestResolveFuzzyFallback(t *testing.T) {
	g := New()
	caller := addSym(t, g, "caller", SymbolKindFunction, "a.py", 1)
	target := addSym(t, g, "process_data", SymbolKindFunction, "b.py", 1)

	raw := []RawRelation{{Source: caller, Target: "proces_data", Kind: RelationDirectCall, Line: 2}}
	rels := NewResolver(g).ResolveAll(raw)

	if assert.Len(t, rels, 1) {
		assert.Equal(t, target, rels[0].Target)
		assert.LessOrEqual(t, rels[0].Confidence, float32(0.85))
	}
}
