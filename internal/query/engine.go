// Package query implements the three read-only algorithms served over the
// tool surface: Navigate, Find, and Impact (spec §4.7). It is grounded on
// the teacher's mcptools.CodeIntelService read handlers (QuerySymbols,
// GetDependencies) for shape only — a service struct wrapping a graph,
// context-free methods returning typed output structs — since the
// algorithms themselves (BFS over call edges, fuzzy scoring, risk tiers)
// have no teacher analog.
package query

import (
	"sort"
	"strings"

	"github.com/codegraph-mcp/codegraph/internal/graph"
	"github.com/sahilm/fuzzy"
)

// SymbolRef is the wire shape every symbol record carries (spec §6: "All
// symbol records on the wire carry {name, file, line, signature?, language?,
// confidence?}").
type SymbolRef struct {
	Name       string  `json:"name"`
	File       string  `json:"file"`
	Line       int     `json:"line"`
	Signature  string  `json:"signature,omitempty"`
	Language   string  `json:"language,omitempty"`
	Confidence float32 `json:"confidence,omitempty"`
}

// Engine evaluates Navigate/Find/Impact against one immutable graph
// snapshot. Callers obtain a fresh Engine per request from the current
// snapshot pointer (spec §5: "concurrent queries may execute against an
// immutable graph snapshot").
type Engine struct {
	g          *graph.Graph
	fuzzyFloor float64
}

// New returns an Engine bound to g.
func New(g *graph.Graph) *Engine {
	return &Engine{g: g, fuzzyFloor: findFuzzyFloor}
}

// SetFuzzyFloor overrides Find's fuzzy-tier floor (config.ProjectConfig.
// FuzzyFloor). A non-positive value leaves the spec's 0.3 default in place.
func (e *Engine) SetFuzzyFloor(floor float64) {
	if floor > 0 {
		e.fuzzyFloor = floor
	}
}

func toRef(s graph.Symbol) SymbolRef {
	return SymbolRef{
		Name:      s.Name,
		File:      s.File,
		Line:      s.Line,
		Signature: s.Signature,
		Language:  string(s.Language),
	}
}

// resolveName implements name resolution "interpreted against the query
// scope: no enclosing edge" (spec §4.7 Navigate): an exact match on name,
// unique or reported as Ambiguous listing every candidate. There is no
// enclosing source symbol to rank ambiguous candidates by language/
// directory/kind the way the resolver does for relations (spec §4.3 tiers
// 2-3), so any ambiguity here is reported in full rather than broken by a
// heuristic that has nothing to act on.
func (e *Engine) resolveName(name string) (graph.SymbolID, *QueryError) {
	ids := e.g.FindByName(name)
	switch len(ids) {
	case 0:
		return 0, notFound(name)
	case 1:
		return ids[0], nil
	default:
		return 0, ambiguous("multiple symbols named "+name, candidatesFromSymbols(e.g, ids))
	}
}

// --- Navigate ---

// NavigateResult is the Navigate tool's output (spec §4.7, §6).
type NavigateResult struct {
	Symbol   SymbolRef   `json:"symbol"`
	Calls    []SymbolRef `json:"calls"`
	CalledBy []SymbolRef `json:"called_by"`
	Siblings []SymbolRef `json:"siblings"`
	Summary  string      `json:"summary"`
}

const (
	navigateMaxDepth   = 4
	navigateNodeCap    = 200
	navigateSiblingCap = 20
)

// Navigate resolves name to a symbol and reports its call neighborhood
// (spec §4.7).
func (e *Engine) Navigate(name string, depth int) (*NavigateResult, error) {
	if name == "" {
		return nil, invalidArgument("function name is required")
	}
	if depth < 1 || depth > navigateMaxDepth {
		return nil, invalidArgument("depth must be between 1 and 4")
	}

	id, qerr := e.resolveName(name)
	if qerr != nil {
		return nil, qerr
	}
	sym := e.g.Symbol(id)

	calls := e.expandCallLike(id, depth, true)
	calledBy := e.expandCallLike(id, depth, false)
	siblings := e.siblings(sym, id)

	summary := formatNavigateSummary(len(calls), len(calledBy), len(siblings))

	return &NavigateResult{
		Symbol:   toRef(sym),
		Calls:    calls,
		CalledBy: calledBy,
		Siblings: siblings,
		Summary:  summary,
	}, nil
}

// expandCallLike walks outgoing (forward=true) or incoming (forward=false)
// call-like edges breadth-first up to depth levels, de-duplicating by
// target id in order of first occurrence, capped at navigateNodeCap total
// (spec §4.7: "depth > 1 expands calls/called_by transitively... total
// returned nodes capped at 200").
func (e *Engine) expandCallLike(start graph.SymbolID, depth int, forward bool) []SymbolRef {
	seen := map[graph.SymbolID]bool{start: true}
	var order []graph.SymbolID

	frontier := []graph.SymbolID{start}
	for level := 0; level < depth && len(order) < navigateNodeCap; level++ {
		var next []graph.SymbolID
		for _, id := range frontier {
			for _, relIdx := range e.adjacency(id, forward) {
				rel := e.g.Relation(relIdx)
				if !graph.CallLikeKinds[rel.Kind] {
					continue
				}
				other := rel.Target
				if !forward {
					other = rel.Source
				}
				if seen[other] {
					continue
				}
				seen[other] = true
				order = append(order, other)
				next = append(next, other)
				if len(order) >= navigateNodeCap {
					break
				}
			}
			if len(order) >= navigateNodeCap {
				break
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	out := make([]SymbolRef, 0, len(order))
	for _, id := range order {
		ref := toRef(e.g.Symbol(id))
		ref.Confidence = e.edgeConfidence(start, id, forward)
		out = append(out, ref)
	}
	return out
}

func (e *Engine) adjacency(id graph.SymbolID, forward bool) []int {
	if forward {
		return e.g.Outgoing(id)
	}
	return e.g.Incoming(id)
}

// edgeConfidence returns the confidence of the direct edge between anchor
// and other, if one exists, for display on depth-1 neighbors (spec §4.7:
// "with the edge's confidence").
func (e *Engine) edgeConfidence(anchor, other graph.SymbolID, forward bool) float32 {
	for _, relIdx := range e.adjacency(anchor, forward) {
		rel := e.g.Relation(relIdx)
		target := rel.Target
		if !forward {
			target = rel.Source
		}
		if target == other && graph.CallLikeKinds[rel.Kind] {
			return rel.Confidence
		}
	}
	return 0
}

// siblings returns up to navigateSiblingCap other symbols in sym's file,
// ordered by line (spec §4.7; byFile is already line-sorted per §4.2).
func (e *Engine) siblings(sym graph.Symbol, id graph.SymbolID) []SymbolRef {
	ids := e.g.FindByFile(sym.File)
	out := make([]SymbolRef, 0, navigateSiblingCap)
	for _, other := range ids {
		if other == id {
			continue
		}
		out = append(out, toRef(e.g.Symbol(other)))
		if len(out) >= navigateSiblingCap {
			break
		}
	}
	return out
}

func formatNavigateSummary(calls, calledBy, siblings int) string {
	return joinCounts([]countLabel{
		{calls, "call"},
		{calledBy, "caller"},
		{siblings, "sibling"},
	})
}

type countLabel struct {
	n     int
	label string
}

func joinCounts(items []countLabel) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pluralize(it.n, it.label))
	}
	return b.String()
}

func pluralize(n int, noun string) string {
	suffix := "s"
	if n == 1 {
		suffix = ""
	}
	return itoa(n) + " " + noun + suffix
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// --- Find ---

// FindResult is the Find tool's output (spec §4.7, §6).
type FindResult struct {
	Matches       []SymbolRef            `json:"matches"`
	GroupedByFile map[string][]SymbolRef `json:"grouped_by_file"`
	Summary       string                 `json:"summary"`
}

const (
	findCap        = 50
	findFuzzyFloor = 0.3
)

// Find scores every symbol against query by exact/substring/fuzzy tiers,
// optionally scoped by file prefix (spec §4.7).
func (e *Engine) Find(queryText, scope string) (*FindResult, error) {
	if queryText == "" {
		return nil, invalidArgument("query is required")
	}

	type scored struct {
		id   graph.SymbolID
		conf float32
	}

	lowerQuery := strings.ToLower(queryText)
	seen := make(map[graph.SymbolID]bool)
	var matches []scored

	symbols := e.g.AllSymbols()

	for _, s := range symbols {
		if scope != "" && !strings.HasPrefix(s.File, scope) {
			continue
		}
		if s.Name == queryText {
			matches = append(matches, scored{id: s.ID, conf: 1.0})
			seen[s.ID] = true
		}
	}

	for _, s := range symbols {
		if seen[s.ID] {
			continue
		}
		if scope != "" && !strings.HasPrefix(s.File, scope) {
			continue
		}
		if strings.Contains(strings.ToLower(s.Name), lowerQuery) {
			matches = append(matches, scored{id: s.ID, conf: 0.8})
			seen[s.ID] = true
		}
	}

	var remainingNames []string
	remainingIdx := make(map[string]graph.SymbolID)
	for _, s := range symbols {
		if seen[s.ID] {
			continue
		}
		if scope != "" && !strings.HasPrefix(s.File, scope) {
			continue
		}
		remainingNames = append(remainingNames, s.Name)
		remainingIdx[s.Name] = s.ID
	}
	if len(remainingNames) > 0 {
		for _, m := range fuzzy.Find(queryText, remainingNames) {
			id, ok := remainingIdx[remainingNames[m.Index]]
			if !ok || seen[id] {
				continue
			}
			normalized := float64(m.Score) / float64(max(1, len(queryText)))
			if normalized < e.fuzzyFloor {
				continue
			}
			conf := normalized
			if conf > 1.0 {
				conf = 1.0
			}
			if conf < e.fuzzyFloor {
				conf = e.fuzzyFloor
			}
			matches = append(matches, scored{id: id, conf: float32(conf)})
			seen[id] = true
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].conf != matches[j].conf {
			return matches[i].conf > matches[j].conf
		}
		si, sj := e.g.Symbol(matches[i].id), e.g.Symbol(matches[j].id)
		if len(si.Name) != len(sj.Name) {
			return len(si.Name) < len(sj.Name)
		}
		return matches[i].id < matches[j].id
	})

	if len(matches) > findCap {
		matches = matches[:findCap]
	}

	refs := make([]SymbolRef, 0, len(matches))
	grouped := make(map[string][]SymbolRef)
	for _, m := range matches {
		s := e.g.Symbol(m.id)
		ref := toRef(s)
		ref.Confidence = m.conf
		refs = append(refs, ref)
		grouped[s.File] = append(grouped[s.File], ref)
	}

	return &FindResult{
		Matches:       refs,
		GroupedByFile: grouped,
		Summary:       itoa(len(refs)) + " match" + pluralSuffix(len(refs)) + " for " + queryText,
	}, nil
}

func pluralSuffix(n int) string {
	if n == 1 {
		return ""
	}
	return "es"
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// --- Impact ---

// ImpactResult is the Impact tool's output (spec §4.7, §6).
type ImpactResult struct {
	DirectCallers    []SymbolRef `json:"direct_callers"`
	TransitiveImpact []SymbolRef `json:"transitive_impact"`
	AffectedFiles    []string    `json:"affected_files"`
	TestFiles        []string    `json:"test_files"`
	RiskLevel        string      `json:"risk_level"`
	Summary          string      `json:"summary"`
}

const (
	impactTransitiveCap = 500
)

// Impact resolves name and computes its blast radius: direct callers, the
// transitive closure over incoming call/instantiation/reference edges, the
// files touched, and a risk tier (spec §4.7).
func (e *Engine) Impact(name string, includeTests bool) (*ImpactResult, error) {
	if name == "" {
		return nil, invalidArgument("function name is required")
	}

	id, qerr := e.resolveName(name)
	if qerr != nil {
		return nil, qerr
	}

	directIDs := e.impactSources(id)
	seen := map[graph.SymbolID]bool{id: true}
	for _, d := range directIDs {
		seen[d] = true
	}

	var transitive []graph.SymbolID
	frontier := directIDs
	for len(frontier) > 0 && len(transitive) < impactTransitiveCap {
		var next []graph.SymbolID
		for _, fid := range frontier {
			for _, src := range e.impactSources(fid) {
				if seen[src] {
					continue
				}
				seen[src] = true
				transitive = append(transitive, src)
				next = append(next, src)
				if len(transitive) >= impactTransitiveCap {
					break
				}
			}
			if len(transitive) >= impactTransitiveCap {
				break
			}
		}
		frontier = next
	}

	fileSet := make(map[string]bool)
	for _, d := range directIDs {
		fileSet[e.g.Symbol(d).File] = true
	}
	for _, t := range transitive {
		fileSet[e.g.Symbol(t).File] = true
	}

	var allFiles []string
	for f := range fileSet {
		allFiles = append(allFiles, f)
	}
	sort.Strings(allFiles)

	var affected, tests []string
	for _, f := range allFiles {
		if isTestFile(f) {
			tests = append(tests, f)
			if includeTests {
				affected = append(affected, f)
			}
		} else {
			affected = append(affected, f)
		}
	}

	total := len(directIDs) + len(transitive)
	risk := "low"
	switch {
	case total > 10:
		risk = "high"
	case total > 2:
		risk = "medium"
	}

	directRefs := make([]SymbolRef, 0, len(directIDs))
	for _, d := range directIDs {
		directRefs = append(directRefs, toRef(e.g.Symbol(d)))
	}
	transRefs := make([]SymbolRef, 0, len(transitive))
	for _, t := range transitive {
		transRefs = append(transRefs, toRef(e.g.Symbol(t)))
	}

	summary := itoa(len(directIDs)) + " direct caller" + pluralSuffix(len(directIDs)) +
		", " + itoa(len(transitive)) + " transitive, risk " + risk

	return &ImpactResult{
		DirectCallers:    directRefs,
		TransitiveImpact: transRefs,
		AffectedFiles:    affected,
		TestFiles:        tests,
		RiskLevel:        risk,
		Summary:          summary,
	}, nil
}

// impactSources returns the unique sources of incoming edges of call/
// instantiation/reference kind for id, in first-occurrence order (spec
// §4.7: direct_callers / the BFS step it repeats for transitive_impact).
func (e *Engine) impactSources(id graph.SymbolID) []graph.SymbolID {
	var out []graph.SymbolID
	seen := make(map[graph.SymbolID]bool)
	for _, relIdx := range e.g.Incoming(id) {
		rel := e.g.Relation(relIdx)
		if !graph.ImpactKinds[rel.Kind] {
			continue
		}
		if seen[rel.Source] {
			continue
		}
		seen[rel.Source] = true
		out = append(out, rel.Source)
	}
	return out
}

// isTestFile reports whether path matches any of the four test-file
// patterns in spec §4.7: test_*, *_test.*, *.test.*, tests/*.
func isTestFile(path string) bool {
	base := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		base = path[idx+1:]
	}
	if strings.HasPrefix(base, "test_") {
		return true
	}
	if idx := strings.IndexByte(base, '.'); idx >= 0 {
		stem := base[:idx]
		rest := base[idx:]
		if strings.HasSuffix(stem, "_test") {
			return true
		}
		if strings.HasPrefix(rest, ".test.") {
			return true
		}
	}
	return strings.Contains(path, "tests/")
}
