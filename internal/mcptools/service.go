package mcptools

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/codegraph-mcp/codegraph/internal/config"
	"github.com/codegraph-mcp/codegraph/internal/graph"
	"github.com/codegraph-mcp/codegraph/internal/indexer"
	"github.com/codegraph-mcp/codegraph/internal/query"
)

// CodeIntelService holds the current graph snapshot and the indexer used to
// rebuild it, and backs all three tool handlers. It plays the same role as
// the teacher's CodeIntelService (store + parser + projectRoot), but the
// graph is an atomically-swapped snapshot rather than a live DB handle,
// since queries here run over an immutable read-only graph (spec §5).
type CodeIntelService struct {
	projectRoot string
	indexPath   string
	ix          *indexer.Indexer
	fuzzyFloor  float64

	snapshot atomic.Pointer[graph.Graph]
}

// NewCodeIntelService creates a CodeIntelService rooted at projectRoot,
// using parser for indexing.
func NewCodeIntelService(projectRoot string, parser *graph.TreeSitterParser) *CodeIntelService {
	ix := indexer.New(parser)
	var fuzzyFloor float64
	if cfg, err := config.Load(projectRoot); err == nil {
		ix.SetExcludeDirs(cfg.ExcludeDirs)
		ix.SetFuzzyFloor(cfg.FuzzyFloor)
		fuzzyFloor = cfg.FuzzyFloor
	}
	return &CodeIntelService{
		projectRoot: projectRoot,
		indexPath:   indexer.DefaultIndexPath(projectRoot),
		ix:          ix,
		fuzzyFloor:  fuzzyFloor,
	}
}

// newEngine builds a query.Engine over g carrying this service's configured
// fuzzy floor (config.ProjectConfig.FuzzyFloor), so Find honors the same
// override the indexer's resolver uses.
func (s *CodeIntelService) newEngine(g *graph.Graph) *query.Engine {
	eng := query.New(g)
	eng.SetFuzzyFloor(s.fuzzyFloor)
	return eng
}

// SetIndexPath overrides the default <project>/.codegraph/index.bin
// location (spec §6: "mcp/serve [--index <path>]").
func (s *CodeIntelService) SetIndexPath(path string) {
	s.indexPath = path
}

// ensureFresh implements index-on-request (spec §4.6): if the persisted
// index is absent or stale, it rebuilds and persists before returning the
// current snapshot. This is the single-writer reindex pathway; everything
// else only ever reads the returned graph.
func (s *CodeIntelService) ensureFresh(ctx context.Context) (*graph.Graph, error) {
	if !indexer.IsStale(s.indexPath, s.projectRoot) {
		if g := s.snapshot.Load(); g != nil {
			return g, nil
		}
		if g, err := indexer.Load(s.indexPath); err == nil {
			s.snapshot.Store(g)
			return g, nil
		}
		// Fall through to a full rebuild if the on-disk index failed to
		// load despite passing the staleness check (spec §7 CorruptIndex:
		// "forces rebuild if caller requests").
	}

	result, err := s.ix.Index(ctx, s.projectRoot)
	if err != nil {
		return nil, fmt.Errorf("reindex: %w", err)
	}
	if err := indexer.Persist(result.Graph, s.indexPath); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}
	s.snapshot.Store(result.Graph)
	return result.Graph, nil
}

func toWireRef(r query.SymbolRef) SymbolRef {
	return SymbolRef{
		Name:       r.Name,
		File:       r.File,
		Line:       r.Line,
		Signature:  r.Signature,
		Language:   r.Language,
		Confidence: r.Confidence,
	}
}

func toWireRefs(rs []query.SymbolRef) []SymbolRef {
	out := make([]SymbolRef, len(rs))
	for i, r := range rs {
		out[i] = toWireRef(r)
	}
	return out
}

func toWireGrouped(g map[string][]query.SymbolRef) map[string][]SymbolRef {
	out := make(map[string][]SymbolRef, len(g))
	for file, refs := range g {
		out[file] = toWireRefs(refs)
	}
	return out
}

// toolError formats a *query.QueryError with its kind as a prefix so the
// caller gets a typed code even though the MCP Go SDK's CallToolResult
// carries errors as plain strings, not structured JSON-RPC error objects
// (spec §7: "formats a JSON-RPC error with a typed code and a human
// message" — the kind prefix is that code in the layer the SDK exposes).
// Anything that is not a *query.QueryError is wrapped as IOFailure.
func toolError(err error) error {
	if err == nil {
		return nil
	}
	if qerr, ok := err.(*query.QueryError); ok {
		return fmt.Errorf("%s: %s", qerr.Kind, qerr.Message)
	}
	return fmt.Errorf("%s: %w", query.ErrIOFailure, err)
}
