package graph

// extractCtx carries the per-file state shared by every language adapter's
// visitor: the symbols/raw-relations accumulators and the stack of
// currently-open declared symbols used both for Symbol.Parent linking and
// for RawRelation.Source (the "enclosing symbol" a use site belongs to).
//
// Pushing onto the stack on entering a container declaration and popping on
// leaving it is the same scheme the teacher's per-language walkers use for
// tree-sitter cursors (GotoFirstChild/GotoNextSibling/GotoParent); this adds
// the parent-stack bookkeeping spec §4.1 requires on top of that walk.
type extractCtx struct {
	symbols []Symbol
	raw     []RawRelation
	stack   []SymbolID
}

func newExtractCtx() *extractCtx {
	return &extractCtx{}
}

// currentParent returns the symbol id that should be recorded as Parent for
// a newly-minted symbol, or NoParent if the stack is empty.
func (c *extractCtx) currentParent() SymbolID {
	if len(c.stack) == 0 {
		return NoParent
	}
	return c.stack[len(c.stack)-1]
}

// enclosing returns the symbol id a use site should be attributed to, and
// whether one exists. An adapter must not emit a raw relation with no
// enclosing symbol (spec §4.1: "module-level references are discarded").
func (c *extractCtx) enclosing() (SymbolID, bool) {
	if len(c.stack) == 0 {
		return 0, false
	}
	return c.stack[len(c.stack)-1], true
}

// push records id as the innermost open declared symbol.
func (c *extractCtx) push(id SymbolID) {
	c.stack = append(c.stack, id)
}

// pop closes the innermost open declared symbol.
func (c *extractCtx) pop() {
	c.stack = c.stack[:len(c.stack)-1]
}

// addSymbol appends sym (with Parent set from the current stack) and returns
// the assigned id. It does not push the id; adapters call push themselves
// for container declarations whose body should see it as the enclosing
// symbol. Ids are assigned
// per-file, in extraction order; the Indexer renumbers them to dense,
// graph-wide ids when it appends each file's symbols to the shared Graph.
func (c *extractCtx) addSymbol(sym Symbol) SymbolID {
	sym.Parent = c.currentParent()
	id := SymbolID(len(c.symbols))
	c.symbols = append(c.symbols, sym)
	return id
}

// addRelation appends a raw relation attributed to the current enclosing
// symbol, discarding it entirely if there is no enclosing symbol (spec
// §4.1 contract).
func (c *extractCtx) addRelation(target string, kind RelationKind, line int) {
	src, ok := c.enclosing()
	if !ok {
		return
	}
	if target == "" {
		return
	}
	c.raw = append(c.raw, RawRelation{Source: src, Target: target, Kind: kind, Line: line})
}

// validSymbol reports whether a symbol satisfies the adapter contract: a
// non-zero line and non-empty source range (spec §4.1: "must not emit nodes
// whose line is zero or whose byte range is empty").
func validSymbol(startLine int, startByte, endByte uint) bool {
	return startLine > 0 && endByte > startByte
}
