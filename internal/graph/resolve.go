package graph

import (
	"path"
	"sort"

	"github.com/sahilm/fuzzy"
)

// Resolver converts the textual targets of raw relations into resolved
// symbol ids with a confidence score. It is built once per graph and run
// once after every file in a project has been extracted (spec §4.3).
//
// The teacher's Resolver did file-import-path resolution (TS workspace
// exports, Go module paths, Python relative-import dot counting, Rust
// crate-root probing) entirely unrelated to symbol-name resolution; none of
// that logic survives here. What is kept is the shape: a struct built once
// from the graph, exposing one method that walks a slice of raw inputs in
// deterministic order and produces resolved outputs in place.
type Resolver struct {
	g     *Graph
	floor float64
}

// NewResolver builds a Resolver bound to g. g must already contain every
// symbol the raw relations might reference — callers build the full symbol
// table across all files before resolving any relation (spec §4.3: a local
// match in another file is still a "global" match, so resolution cannot run
// per file).
func NewResolver(g *Graph) *Resolver {
	return &Resolver{g: g, floor: fuzzyFloor}
}

// SetFuzzyFloor overrides the fuzzy tier's minimum normalized score
// (config.ProjectConfig.FuzzyFloor). A non-positive value leaves the
// spec's 0.3 default in place.
func (r *Resolver) SetFuzzyFloor(floor float64) {
	if floor > 0 {
		r.floor = floor
	}
}

const (
	fuzzyFloor     = 0.3
	fuzzyConfScale = 0.6
	fuzzyConfCap   = 0.85

	localTierConf    = 1.0
	localTierTieConf = 0.95

	globalUniqueConf         = 1.0
	globalUniqueReceiverConf = 0.9
	globalAmbiguousBestConf  = 0.7
	globalAmbiguousTieConf   = 0.5
)

// ResolveAll resolves every raw relation against the graph, returning the
// typed, confidence-scored relations to append. Raw relations that cannot be
// resolved at any tier are dropped (spec §4.3 tier 5). Iteration is in the
// raw relations' insertion order, and every tier's tie-break is
// deterministic, so two runs over byte-identical inputs produce a
// byte-identical output (spec §4.3 "Determinism").
func (r *Resolver) ResolveAll(raw []RawRelation) []Relation {
	names := r.g.AllNames()
	candidatesByName := make(map[string][]SymbolID, len(names))
	for _, name := range names {
		candidatesByName[name] = r.g.FindByName(name)
	}

	out := make([]Relation, 0, len(raw))
	for _, rr := range raw {
		if rel, ok := r.resolveOne(rr, candidatesByName, names); ok {
			out = append(out, rel)
		}
	}
	return out
}

func (r *Resolver) resolveOne(rr RawRelation, candidatesByName map[string][]SymbolID, names []string) (Relation, bool) {
	if rr.Target == "" {
		return Relation{}, false
	}

	src := r.g.Symbol(rr.Source)

	candidates := candidatesByName[rr.Target]

	if rel, ok := r.localExact(rr, src, candidates); ok {
		return rel, true
	}
	if rel, ok := r.globalExact(rr, candidates); ok {
		return rel, true
	}
	if rel, ok := r.fuzzyMatch(rr, names, candidatesByName); ok {
		return rel, true
	}
	return Relation{}, false
}

// localExact is tier 1: a same-file exact name match (spec §4.3 tier 1).
func (r *Resolver) localExact(rr RawRelation, src Symbol, candidates []SymbolID) (Relation, bool) {
	var local []SymbolID
	for _, id := range candidates {
		if r.g.Symbol(id).File == src.File {
			local = append(local, id)
		}
	}
	if len(local) == 0 {
		return Relation{}, false
	}
	if len(local) == 1 {
		return Relation{Source: rr.Source, Target: local[0], Kind: rr.Kind, Confidence: localTierConf, Line: rr.Line}, true
	}

	// Multiple candidates in the same file: prefer the one whose line is
	// closest to but <= the raw relation's line.
	best := local[0]
	bestDist := -1
	for _, id := range local {
		line := r.g.Symbol(id).Line
		if line > rr.Line {
			continue
		}
		dist := rr.Line - line
		if bestDist == -1 || dist < bestDist {
			bestDist = dist
			best = id
		}
	}
	if bestDist == -1 {
		// None precede the use site; fall back to the lowest id for
		// determinism.
		best = minID(local)
	}
	return Relation{Source: rr.Source, Target: best, Kind: rr.Kind, Confidence: localTierTieConf, Line: rr.Line}, true
}

// globalExact is tiers 2 and 3: a graph-wide exact name match, unique or
// ranked among ambiguous candidates (spec §4.3 tiers 2-3).
func (r *Resolver) globalExact(rr RawRelation, candidates []SymbolID) (Relation, bool) {
	if len(candidates) == 0 {
		return Relation{}, false
	}
	if len(candidates) == 1 {
		conf := globalUniqueConf
		if rr.Kind == RelationMethodCall || rr.Kind == RelationFieldAccess {
			conf = globalUniqueReceiverConf
		}
		return Relation{Source: rr.Source, Target: candidates[0], Kind: rr.Kind, Confidence: float32(conf), Line: rr.Line}, true
	}

	src := r.g.Symbol(rr.Source)
	srcDir := path.Dir(src.File)

	type ranked struct {
		id    SymbolID
		score int
	}
	ranks := make([]ranked, 0, len(candidates))
	for _, id := range candidates {
		cand := r.g.Symbol(id)
		score := 0
		if cand.Language == src.Language {
			score += 4
		}
		if path.Dir(cand.File) == srcDir {
			score += 2
		}
		if kindMatchesRelation(rr.Kind, cand.Kind) {
			score += 1
		}
		ranks = append(ranks, ranked{id: id, score: score})
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].score != ranks[j].score {
			return ranks[i].score > ranks[j].score
		}
		return ranks[i].id < ranks[j].id
	})

	best := ranks[0]
	tie := len(ranks) > 1 && ranks[1].score == best.score
	conf := globalAmbiguousBestConf
	if tie {
		conf = globalAmbiguousTieConf
	}
	return Relation{Source: rr.Source, Target: best.id, Kind: rr.Kind, Confidence: float32(conf), Line: rr.Line}, true
}

// fuzzyMatch is tier 4: a subsequence/substring match against every known
// symbol name, scored by github.com/sahilm/fuzzy (spec §4.3 tier 4). The
// library's internal Score is not itself a [0,1] confidence; it is mapped
// per spec via confidence = min(0.85, normalizedScore*0.6), where
// normalizedScore is Score divided by the length of the target text so the
// mapping is stable across queries of different lengths (spec §9 Open
// Questions: the original backend's own scoring semantics differ, and the
// exact floor-to-confidence mapping is left to the implementation).
func (r *Resolver) fuzzyMatch(rr RawRelation, names []string, candidatesByName map[string][]SymbolID) (Relation, bool) {
	matches := fuzzy.Find(rr.Target, names)
	if len(matches) == 0 {
		return Relation{}, false
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	best := matches[0]
	normalized := float64(best.Score) / float64(max(1, len(rr.Target)))
	if normalized < r.floor {
		return Relation{}, false
	}
	confidence := normalized * fuzzyConfScale
	if confidence > fuzzyConfCap {
		confidence = fuzzyConfCap
	}

	candidates := candidatesByName[names[best.Index]]
	if len(candidates) == 0 {
		return Relation{}, false
	}
	target := minID(candidates)

	return Relation{Source: rr.Source, Target: target, Kind: rr.Kind, Confidence: float32(confidence), Line: rr.Line}, true
}

func minID(ids []SymbolID) SymbolID {
	best := ids[0]
	for _, id := range ids[1:] {
		if id < best {
			best = id
		}
	}
	return best
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
