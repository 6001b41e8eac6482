package graph

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// rsAdapter extracts symbols and raw relations from Rust source files (spec
// §4.1 declaration mapping for Rust).
type rsAdapter struct{}

func (a *rsAdapter) Language() Language { return LangRust }

func (a *rsAdapter) Extract(root *tree_sitter.Node, source []byte, filePath string, opts ExtractOptions) ([]Symbol, []RawRelation) {
	ctx := newExtractCtx()
	a.walk(root, source, filePath, ctx, opts)
	return ctx.symbols, ctx.raw
}

func (a *rsAdapter) walk(node *tree_sitter.Node, source []byte, filePath string, ctx *extractCtx, opts ExtractOptions) {
	kind := node.Kind()

	pushed := false
	switch kind {
	case "function_item":
		symKind := SymbolKindFunction
		if nearestRustContainer(node) == "impl_item" {
			symKind = SymbolKindMethod
		}
		if id, ok := a.declare(node, source, filePath, ctx, symKind); ok {
			ctx.push(id)
			pushed = true
		}

	case "struct_item":
		if id, ok := a.declare(node, source, filePath, ctx, SymbolKindStruct); ok {
			ctx.push(id)
			pushed = true
		}

	case "enum_item":
		if id, ok := a.declare(node, source, filePath, ctx, SymbolKindEnum); ok {
			ctx.push(id)
			pushed = true
		}

	case "trait_item":
		if id, ok := a.declare(node, source, filePath, ctx, SymbolKindInterface); ok {
			ctx.push(id)
			pushed = true
		}

	case "type_item":
		a.declare(node, source, filePath, ctx, SymbolKindStruct)

	case "const_item", "static_item":
		a.declare(node, source, filePath, ctx, SymbolKindConstant)

	case "impl_item":
		a.extractImpl(node, source, ctx)

	case "call_expression":
		a.extractCall(node, source, ctx, opts)

	case "field_expression":
		a.extractFieldAccess(node, source, ctx)

	case "identifier":
		a.extractIdentifierReference(node, source, ctx)
	}

	childCount := node.ChildCount()
	for i := uint(0); i < childCount; i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		a.walk(child, source, filePath, ctx, opts)
	}

	if pushed {
		ctx.pop()
	}
}

// nearestRustContainer returns "impl_item" if node has an impl_item or
// trait_item ancestor at any depth, and "" otherwise; a function inside a
// trait is therefore classed the same as one inside an impl block. Used to
// decide Function vs Method (spec §4.1: "Method when declared inside an
// impl block").
func nearestRustContainer(node *tree_sitter.Node) string {
	parent := node.Parent()
	for parent != nil {
		switch parent.Kind() {
		case "impl_item", "trait_item":
			return "impl_item"
		}
		parent = parent.Parent()
	}
	return ""
}

func (a *rsAdapter) declare(node *tree_sitter.Node, source []byte, filePath string, ctx *extractCtx, kind SymbolKind) (SymbolID, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return 0, false
	}
	if !validSymbol(int(node.StartPosition().Row)+1, node.StartByte(), node.EndByte()) {
		return 0, false
	}
	name := nameNode.Utf8Text(source)
	if name == "" {
		return 0, false
	}
	id := ctx.addSymbol(Symbol{
		Name:       name,
		Kind:       kind,
		File:       filePath,
		Line:       int(node.StartPosition().Row) + 1,
		Signature:  firstLineSignature(node, source),
		Language:   LangRust,
		Visibility: rustVisibility(node),
	})
	return id, true
}

// extractImpl emits an Inheritance raw relation for a trait implementation
// ("impl Trait for Type"), attributing it to the struct/enum/class symbol
// named Type, not to the enclosing symbol on the stack. Only symbols already
// extracted from this file before the impl block are searched; if none
// matches Type, no relation is emitted.
func (a *rsAdapter) extractImpl(node *tree_sitter.Node, source []byte, ctx *extractCtx) {
	traitNode := node.ChildByFieldName("trait")
	typeNode := node.ChildByFieldName("type")
	if traitNode == nil || typeNode == nil {
		return
	}
	traitName := traitNode.Utf8Text(source)
	if traitName == "" {
		return
	}
	// The relation is attributed to the type being impl'd, not whatever
	// symbol happens to be open on the stack, so resolve the type name
	// to a raw relation sourced from itself: find the struct/enum symbol
	// for typeName among ctx.symbols and attribute to it directly.
	typeName := typeNode.Utf8Text(source)
	line := int(node.StartPosition().Row) + 1
	for i := len(ctx.symbols) - 1; i >= 0; i-- {
		if ctx.symbols[i].Name == typeName {
			switch ctx.symbols[i].Kind {
			case SymbolKindStruct, SymbolKindEnum, SymbolKindClass:
				ctx.raw = append(ctx.raw, RawRelation{Source: SymbolID(i), Target: traitName, Kind: RelationInherit, Line: line})
				return
			}
		}
	}
}

// extractCall emits DirectCall, MethodCall, or DynamicCall raw relations
// (spec §4.1 relation table). Rust has no syntactic distinction between a
// function call and a struct/tuple-struct constructor call, so bare
// identifier calls are classified DirectCall unless the callee name is
// capitalized by convention (spec §4.1: "CapitalCase callee of a bare call
// is treated as Instantiation").
func (a *rsAdapter) extractCall(node *tree_sitter.Node, source []byte, ctx *extractCtx, opts ExtractOptions) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	line := int(node.StartPosition().Row) + 1

	switch fnNode.Kind() {
	case "identifier":
		name := fnNode.Utf8Text(source)
		if isRustCapitalized(name) {
			ctx.addRelation(name, RelationInstantiate, line)
		} else {
			ctx.addRelation(name, RelationDirectCall, line)
		}
	case "scoped_identifier":
		nameNode := fnNode.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		name := nameNode.Utf8Text(source)
		if isRustCapitalized(name) {
			ctx.addRelation(name, RelationInstantiate, line)
		} else {
			ctx.addRelation(name, RelationDirectCall, line)
		}
	case "field_expression":
		fieldNode := fnNode.ChildByFieldName("field")
		if fieldNode != nil {
			ctx.addRelation(fieldNode.Utf8Text(source), RelationMethodCall, line)
		}
	default:
		if opts.EmitDynamicCalls {
			if src, ok := ctx.enclosing(); ok {
				ctx.raw = append(ctx.raw, RawRelation{Source: src, Target: "", Kind: RelationDynamicCall, Line: line})
			}
		}
	}
}

func (a *rsAdapter) extractFieldAccess(node *tree_sitter.Node, source []byte, ctx *extractCtx) {
	if parent := node.Parent(); parent != nil && parent.Kind() == "call_expression" {
		return // handled by extractCall
	}
	fieldNode := node.ChildByFieldName("field")
	if fieldNode == nil {
		return
	}
	ctx.addRelation(fieldNode.Utf8Text(source), RelationFieldAccess, int(node.StartPosition().Row)+1)
}

func (a *rsAdapter) extractIdentifierReference(node *tree_sitter.Node, source []byte, ctx *extractCtx) {
	parent := node.Parent()
	if parent == nil {
		return
	}
	switch parent.Kind() {
	case "call_expression", "field_expression", "scoped_identifier",
		"function_item", "struct_item", "enum_item", "trait_item", "type_item",
		"const_item", "static_item", "parameters", "visibility_modifier":
		return
	}
	name := node.Utf8Text(source)
	if name == "" || isRustKeywordLiteral(name) {
		return
	}
	ctx.addRelation(name, RelationReference, int(node.StartPosition().Row)+1)
}

func isRustKeywordLiteral(name string) bool {
	switch name {
	case "self", "Self", "super", "crate", "true", "false":
		return true
	}
	return false
}

func isRustCapitalized(name string) bool {
	if name == "" {
		return false
	}
	return name[0] >= 'A' && name[0] <= 'Z'
}

// rustVisibility checks for a leading visibility_modifier child (spec §4.1:
// "pub" or "pub(...)" marks Public, its absence marks Private).
func rustVisibility(node *tree_sitter.Node) Visibility {
	if node.ChildCount() == 0 {
		return VisibilityPrivate
	}
	first := node.Child(0)
	if first != nil && first.Kind() == "visibility_modifier" {
		return VisibilityPublic
	}
	return VisibilityPrivate
}
