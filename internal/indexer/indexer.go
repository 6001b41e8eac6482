// Package indexer walks a project tree, parses every recognized source
// file, builds the symbol graph, resolves its relations, and persists it.
// It is grounded on the teacher's mcptools.CodeIntelService.BuildGraph walk
// (internal/mcptools/handlers.go): the same filepath.WalkDir shape, skip-dir
// handling, and extension-to-language map, generalized to the spec's size
// floor and diagnostic-collection requirements.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/codegraph-mcp/codegraph/internal/graph"
	"github.com/codegraph-mcp/codegraph/internal/persist"
)

// maxFileSize is the 5 MB size-skip floor (spec §4.5 item 2).
const maxFileSize = 5 * 1024 * 1024

// maxParseWorkers bounds the concurrent parse fan-out. The teacher imports
// golang.org/x/sync as a direct dependency but never calls into it from any
// kept file; this wires it for real, giving the indexer the concurrency
// lever spec §4.6 needs for the "34k-file project in the low seconds" bound.
const maxParseWorkers = 8

// skipDirNames are directory names excluded from the walk outright (spec
// §4.5: ".git", ".codegraph", and common build-output directories).
var skipDirNames = map[string]bool{
	".git":         true,
	".codegraph":   true,
	"node_modules": true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	".venv":        true,
}

// Diagnostic records a per-file failure that did not abort the index (spec
// §4.5 item 3, §7 ParseFailure). The teacher's BuildGraph walk silently
// swallows parse/read errors by returning nil from the WalkDirFunc; this
// collects them instead so a caller can report what was skipped.
type Diagnostic struct {
	Path string
	Kind string // "read_error", "parse_error", "too_large", "graph_error"
	Err  string
}

// Result is the outcome of a full index build.
type Result struct {
	Graph       *graph.Graph
	Diagnostics []Diagnostic
	FilesParsed int
}

// Indexer walks a project root and builds a Graph from every file a
// registered adapter recognizes (spec §4.5).
type Indexer struct {
	parser     *graph.TreeSitterParser
	excludes   map[string]bool
	fuzzyFloor float64
}

// New returns an Indexer using parser for every file's language.
func New(parser *graph.TreeSitterParser) *Indexer {
	return &Indexer{parser: parser}
}

// SetFuzzyFloor overrides the resolver's fuzzy-tier floor for every graph
// this Indexer builds (config.ProjectConfig.FuzzyFloor).
func (ix *Indexer) SetFuzzyFloor(floor float64) {
	ix.fuzzyFloor = floor
}

// SetExcludeDirs adds project-specific directory names (from
// config.ProjectConfig.ExcludeDirs) to the built-in skip list.
func (ix *Indexer) SetExcludeDirs(names []string) {
	if len(names) == 0 {
		return
	}
	ix.excludes = make(map[string]bool, len(names))
	for _, n := range names {
		ix.excludes[n] = true
	}
}

func (ix *Indexer) skipDir(name string) bool {
	return skipDirNames[name] || ix.excludes[name]
}

type fileParseResult struct {
	path     string
	symbols  []graph.Symbol
	raw      []graph.RawRelation
	diag     *Diagnostic
}

// Index walks projectRoot, parses every recognized file with bounded
// concurrency, appends results to a fresh Graph in deterministic (path-
// sorted) order regardless of completion order, runs the resolver once, and
// returns the built graph plus any diagnostics (spec §4.5: "the indexer is
// the sole writer of the graph during construction").
func (ix *Indexer) Index(ctx context.Context, projectRoot string) (*Result, error) {
	paths, err := ix.collectPaths(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("indexer: walk: %w", err)
	}

	results := make([]fileParseResult, len(paths))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParseWorkers)

	for i, p := range paths {
		i, p := i, p
		eg.Go(func() error {
			results[i] = ix.parseOne(egCtx, projectRoot, p)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("indexer: parse: %w", err)
	}

	// Deterministic append order: sort by path, independent of which
	// worker finished first (spec testable property 6).
	sort.Slice(results, func(i, j int) bool { return results[i].path < results[j].path })

	graphStore := graph.New()
	var diagnostics []Diagnostic
	filesParsed := 0

	// Each pending entry records the graph-wide id at which a file's symbols
	// start (base), so its raw relations (which reference per-file ids) can
	// be rewritten after every file's symbols have been appended.
	type pending struct {
		base int
		raw  []graph.RawRelation
	}
	var allRaw []pending

	for _, r := range results {
		if r.diag != nil {
			diagnostics = append(diagnostics, *r.diag)
			continue
		}
		base := graphStore.SymbolCount()
		for _, sym := range r.symbols {
			sym.Parent = remapParent(sym.Parent, base)
			if _, err := graphStore.AddSymbol(sym); err != nil {
				diagnostics = append(diagnostics, Diagnostic{Path: r.path, Kind: "graph_error", Err: err.Error()})
			}
		}
		allRaw = append(allRaw, pending{base: base, raw: r.raw})
		filesParsed++
	}

	var raw []graph.RawRelation
	for _, p := range allRaw {
		for _, rr := range p.raw {
			rr.Source = graph.SymbolID(int(rr.Source) + p.base)
			raw = append(raw, rr)
		}
	}

	resolver := graph.NewResolver(graphStore)
	resolver.SetFuzzyFloor(ix.fuzzyFloor)
	for _, rel := range resolver.ResolveAll(raw) {
		if _, err := graphStore.AddRelation(rel); err != nil {
			diagnostics = append(diagnostics, Diagnostic{Kind: "graph_error", Err: err.Error()})
		}
	}

	return &Result{Graph: graphStore, Diagnostics: diagnostics, FilesParsed: filesParsed}, nil
}

// remapParent rewrites a per-file Parent id (or graph.NoParent) to its
// graph-wide id once a file's symbols have been appended at base.
func remapParent(parent graph.SymbolID, base int) graph.SymbolID {
	if parent == graph.NoParent {
		return graph.NoParent
	}
	return graph.SymbolID(int(parent) + base)
}

// collectPaths walks projectRoot and returns every file path whose
// extension maps to a supported language, skipping excluded directories
// (spec §4.5 item 1).
func (ix *Indexer) collectPaths(projectRoot string) ([]string, error) {
	var paths []string
	walkErr := filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths, matching the teacher's walk
		}
		if d.IsDir() {
			if ix.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		lang := graph.LanguageForExt(filepath.Ext(path))
		if lang == "" {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	return paths, walkErr
}

// parseOne reads and parses a single file, producing file-local symbol ids
// (not yet offset into the shared graph) and raw relations, or a
// Diagnostic describing why it was skipped.
func (ix *Indexer) parseOne(ctx context.Context, projectRoot, path string) fileParseResult {
	relPath, err := filepath.Rel(projectRoot, path)
	if err != nil {
		relPath = path
	}

	info, err := os.Stat(path)
	if err != nil {
		return fileParseResult{path: relPath, diag: &Diagnostic{Path: relPath, Kind: "read_error", Err: err.Error()}}
	}
	if info.Size() > maxFileSize {
		return fileParseResult{path: relPath, diag: &Diagnostic{Path: relPath, Kind: "too_large", Err: "exceeds 5MB floor"}}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fileParseResult{path: relPath, diag: &Diagnostic{Path: relPath, Kind: "read_error", Err: err.Error()}}
	}

	lang := graph.LanguageForExt(filepath.Ext(path))
	result, err := ix.parser.Parse(ctx, relPath, source, lang)
	if err != nil {
		return fileParseResult{path: relPath, diag: &Diagnostic{Path: relPath, Kind: "parse_error", Err: err.Error()}}
	}

	return fileParseResult{path: relPath, symbols: result.Symbols, raw: result.RawRelations}
}

// Persist writes g to path, creating its parent directory if needed
// (default path per spec §4.4: "<project>/.codegraph/index.bin").
func Persist(g *graph.Graph, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("indexer: create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("indexer: create index file: %w", err)
	}
	defer f.Close()

	if err := persist.Encode(g, f); err != nil {
		return fmt.Errorf("indexer: encode: %w", err)
	}
	return nil
}

// Load reads a persisted graph from path.
func Load(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("indexer: open index file: %w", err)
	}
	defer f.Close()

	g, err := persist.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("indexer: decode: %w", err)
	}
	return g, nil
}

// DefaultIndexPath returns the canonical index path for a project root
// (spec §6: "<project>/.codegraph/index.bin").
func DefaultIndexPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".codegraph", "index.bin")
}
