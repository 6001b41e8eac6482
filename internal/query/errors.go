package query

import "github.com/codegraph-mcp/codegraph/internal/graph"

// ErrorKind classifies a query-level failure (spec §7). These are error
// kinds, not Go type names: every one of them is carried by the single
// *QueryError type below, the same way the teacher's JSONRPCError carries
// every protocol-level failure behind one struct with a Code field.
type ErrorKind string

const (
	ErrNotFound        ErrorKind = "not_found"
	ErrAmbiguous       ErrorKind = "ambiguous"
	ErrParseFailure    ErrorKind = "parse_failure"
	ErrCorruptIndex    ErrorKind = "corrupt_index"
	ErrIOFailure       ErrorKind = "io_failure"
	ErrInvalidArgument ErrorKind = "invalid_argument"
)

// Candidate describes one ambiguous match, enough for a caller to
// disambiguate without a second round trip (spec §4.7 Navigate: "return an
// error listing candidates").
type Candidate struct {
	Name string `json:"name"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// QueryError is the structured error surfaced by the query engine and the
// tool surface (spec §7: "everything else surfaces up to the tool surface
// which formats a JSON-RPC error with a typed code and a human message").
type QueryError struct {
	Kind       ErrorKind
	Message    string
	Candidates []Candidate
}

func (e *QueryError) Error() string {
	return e.Message
}

func notFound(name string) *QueryError {
	return &QueryError{Kind: ErrNotFound, Message: "no symbol named " + name}
}

func ambiguous(message string, candidates []Candidate) *QueryError {
	return &QueryError{Kind: ErrAmbiguous, Message: message, Candidates: candidates}
}

func invalidArgument(message string) *QueryError {
	return &QueryError{Kind: ErrInvalidArgument, Message: message}
}

// candidatesFromSymbols converts graph symbols to the wire Candidate shape.
func candidatesFromSymbols(g *graph.Graph, ids []graph.SymbolID) []Candidate {
	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		s := g.Symbol(id)
		out = append(out, Candidate{Name: s.Name, File: s.File, Line: s.Line})
	}
	return out
}
