package graph

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// tsAdapter extracts symbols and raw relations from TypeScript source files
// (spec §4.1 declaration mapping for JavaScript/TypeScript, TypeScript-only
// rows: interface_declaration, type_alias_declaration, enum_declaration).
type tsAdapter struct{}

func (a *tsAdapter) Language() Language { return LangTypeScript }

func (a *tsAdapter) Extract(root *tree_sitter.Node, source []byte, filePath string, opts ExtractOptions) ([]Symbol, []RawRelation) {
	ctx := newExtractCtx()
	v := &jsFamilyVisitor{lang: LangTypeScript, isTS: true}
	v.walk(root, source, filePath, ctx, opts)
	return ctx.symbols, ctx.raw
}
