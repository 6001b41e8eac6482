package graph

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// jsAdapter extracts symbols and raw relations from JavaScript source files
// (spec §4.1 declaration mapping for JavaScript/TypeScript, minus the
// TypeScript-only interface/type-alias/enum rows).
type jsAdapter struct{}

func (a *jsAdapter) Language() Language { return LangJavaScript }

func (a *jsAdapter) Extract(root *tree_sitter.Node, source []byte, filePath string, opts ExtractOptions) ([]Symbol, []RawRelation) {
	ctx := newExtractCtx()
	v := &jsFamilyVisitor{lang: LangJavaScript, isTS: false}
	v.walk(root, source, filePath, ctx, opts)
	return ctx.symbols, ctx.raw
}
