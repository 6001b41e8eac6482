package graph

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// jsFamilyVisitor holds the extraction logic shared by the JavaScript and
// TypeScript adapters: both grammars agree on function/class/call/member
// node shapes (spec §4.1 treats "JavaScript / TypeScript" as one declaration-
// mapping row); only TypeScript adds interface_declaration,
// type_alias_declaration, and enum_declaration, gated on isTS.
type jsFamilyVisitor struct {
	lang Language
	isTS bool
}

func (v *jsFamilyVisitor) walk(node *tree_sitter.Node, source []byte, filePath string, ctx *extractCtx, opts ExtractOptions) {
	kind := node.Kind()

	pushed := false
	switch kind {
	case "function_declaration", "generator_function_declaration":
		if id, ok := v.declare(node, source, filePath, ctx, SymbolKindFunction); ok {
			ctx.push(id)
			pushed = true
		}

	case "method_definition":
		if id, ok := v.declare(node, source, filePath, ctx, SymbolKindMethod); ok {
			ctx.push(id)
			pushed = true
		}

	case "class_declaration":
		if id, ok := v.declare(node, source, filePath, ctx, SymbolKindClass); ok {
			ctx.push(id)
			pushed = true
			if heritage := v.findChildByKind(node, "class_heritage"); heritage != nil {
				v.extractHeritage(heritage, source, ctx)
			}
		}

	case "interface_declaration":
		if v.isTS {
			if id, ok := v.declare(node, source, filePath, ctx, SymbolKindInterface); ok {
				ctx.push(id)
				pushed = true
				if heritage := node.ChildByFieldName("extends_clause"); heritage != nil {
					v.extractHeritage(heritage, source, ctx)
				}
			}
		}

	case "type_alias_declaration":
		if v.isTS {
			v.declare(node, source, filePath, ctx, SymbolKindStruct)
		}

	case "enum_declaration":
		if v.isTS {
			v.declare(node, source, filePath, ctx, SymbolKindEnum)
		}

	case "variable_declarator":
		if id, ok := v.extractArrowOrVariable(node, source, filePath, ctx); ok {
			ctx.push(id)
			pushed = true
		}

	case "call_expression":
		v.extractCall(node, source, ctx, opts)

	case "new_expression":
		v.extractNew(node, source, ctx)

	case "member_expression":
		v.extractMemberAccess(node, source, ctx)

	case "assignment_expression":
		v.extractAssignment(node, source, ctx)

	case "identifier":
		v.extractIdentifierReference(node, source, ctx)
	}

	childCount := node.ChildCount()
	for i := uint(0); i < childCount; i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		v.walk(child, source, filePath, ctx, opts)
	}

	if pushed {
		ctx.pop()
	}
}

// declare emits a symbol for a node with a "name" field, applying the
// jsVisibility rule (spec §4.1: top-level `export` keyword marks
// Public, everything else Private).
func (v *jsFamilyVisitor) declare(node *tree_sitter.Node, source []byte, filePath string, ctx *extractCtx, kind SymbolKind) (SymbolID, bool) {
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
		Language:   v.lang,
		Visibility: jsVisibility(node),
	})
	return id, true
}

// findChildByKind returns the first direct child of node matching kind, or
// nil.
func (v *jsFamilyVisitor) findChildByKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// extractHeritage emits Inheritance raw relations for a class/interface base
// clause. JavaScript's class_heritage has no extends_clause/implements_clause
// wrapper: its direct children are the bare "extends" keyword followed by an
// identifier or member_expression. TypeScript wraps each clause in its own
// extends_clause / implements_clause node, each of which can list several
// comma-separated types. Both shapes are handled by looking for
// identifier/type_identifier/member_expression at any depth reachable without
// crossing into a nested class body, which in practice means: scan node's
// direct children, and if a child is itself an extends_clause or
// implements_clause, scan one level into it too.
func (v *jsFamilyVisitor) extractHeritage(node *tree_sitter.Node, source []byte, ctx *extractCtx) {
	line := int(node.StartPosition().Row) + 1
	var visit func(n *tree_sitter.Node)
	visit = func(n *tree_sitter.Node) {
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "extends_clause", "implements_clause":
				visit(child)
			case "identifier", "type_identifier":
				ctx.addRelation(child.Utf8Text(source), RelationInherit, line)
			case "member_expression":
				if prop := child.ChildByFieldName("property"); prop != nil {
					ctx.addRelation(prop.Utf8Text(source), RelationInherit, line)
				}
			case "generic_type":
				if base := child.ChildByFieldName("name"); base != nil {
					ctx.addRelation(base.Utf8Text(source), RelationInherit, line)
				}
			}
		}
	}
	visit(node)
}

// extractArrowOrVariable handles a variable_declarator. "const foo = () =>
// {...}" (spec §4.1: an arrow function bound to a name is a Function, the
// same as a function_declaration) is promoted to a Function symbol and
// pushed as a container so calls inside its body attribute correctly;
// everything else becomes a Variable or Constant symbol and is not pushed,
// since bindings are not lexical containers.
func (v *jsFamilyVisitor) extractArrowOrVariable(node *tree_sitter.Node, source []byte, filePath string, ctx *extractCtx) (SymbolID, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil || nameNode.Kind() != "identifier" {
		return 0, false
	}
	if !validSymbol(int(node.StartPosition().Row)+1, node.StartByte(), node.EndByte()) {
		return 0, false
	}
	name := nameNode.Utf8Text(source)
	if name == "" {
		return 0, false
	}

	valueNode := node.ChildByFieldName("value")
	if valueNode != nil && (valueNode.Kind() == "arrow_function" || valueNode.Kind() == "function_expression") {
		id := ctx.addSymbol(Symbol{
			Name:       name,
			Kind:       SymbolKindFunction,
			File:       filePath,
			Line:       int(node.StartPosition().Row) + 1,
			Signature:  firstLineSignature(node, source),
			Language:   v.lang,
			Visibility: jsVisibility(decoratedAncestor(node)),
		})
		return id, true
	}

	symKind := SymbolKindVariable
	if decl := node.Parent(); decl != nil && decl.Kind() == "lexical_declaration" {
		if v.declKeyword(decl, source) == "const" {
			symKind = SymbolKindConstant
		}
	}
	if isJSAllCaps(name) {
		symKind = SymbolKindConstant
	}

	ctx.addSymbol(Symbol{
		Name:       name,
		Kind:       symKind,
		File:       filePath,
		Line:       int(node.StartPosition().Row) + 1,
		Signature:  firstLineSignature(node, source),
		Language:   v.lang,
		Visibility: jsVisibility(decoratedAncestor(node)),
	})
	return 0, false
}

// declKeyword returns the literal text of a lexical_declaration's leading
// const/let keyword.
func (v *jsFamilyVisitor) declKeyword(decl *tree_sitter.Node, source []byte) string {
	if decl.ChildCount() == 0 {
		return ""
	}
	first := decl.Child(0)
	if first == nil {
		return ""
	}
	return first.Utf8Text(source)
}

// decoratedAncestor walks up to the export_statement wrapping a declaration,
// if any, so jsVisibility can inspect it; returns node itself if there is no
// such wrapper within two levels (declarator -> lexical_declaration ->
// possible export_statement).
func decoratedAncestor(node *tree_sitter.Node) *tree_sitter.Node {
	n := node.Parent()
	for i := 0; i < 2 && n != nil; i++ {
		if n.Kind() == "export_statement" {
			return n
		}
		n = n.Parent()
	}
	return node
}

// extractCall emits DirectCall, MethodCall, or DynamicCall raw relations
// (spec §4.1 relation table). It never emits Instantiation: that comes only
// from new_expression, via extractNew.
func (v *jsFamilyVisitor) extractCall(node *tree_sitter.Node, source []byte, ctx *extractCtx, opts ExtractOptions) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	line := int(node.StartPosition().Row) + 1

	switch fnNode.Kind() {
	case "identifier":
		name := fnNode.Utf8Text(source)
		ctx.addRelation(name, RelationDirectCall, line)
	case "member_expression":
		prop := fnNode.ChildByFieldName("property")
		if prop != nil {
			ctx.addRelation(prop.Utf8Text(source), RelationMethodCall, line)
		}
	default:
		if opts.EmitDynamicCalls {
			if src, ok := ctx.enclosing(); ok {
				ctx.raw = append(ctx.raw, RawRelation{Source: src, Target: "", Kind: RelationDynamicCall, Line: line})
			}
		}
	}
}

// extractNew emits an Instantiation raw relation for `new Foo(...)` /
// `new ns.Foo(...)`.
func (v *jsFamilyVisitor) extractNew(node *tree_sitter.Node, source []byte, ctx *extractCtx) {
	ctorNode := node.ChildByFieldName("constructor")
	if ctorNode == nil {
		return
	}
	line := int(node.StartPosition().Row) + 1
	switch ctorNode.Kind() {
	case "identifier", "type_identifier":
		ctx.addRelation(ctorNode.Utf8Text(source), RelationInstantiate, line)
	case "member_expression":
		if prop := ctorNode.ChildByFieldName("property"); prop != nil {
			ctx.addRelation(prop.Utf8Text(source), RelationInstantiate, line)
		}
	}
}

// extractMemberAccess emits a FieldAccess raw relation for `obj.prop`
// expressions that are not themselves the callee of a call_expression or
// the target of a new_expression (both handled directly by their parent
// node's walk case).
func (v *jsFamilyVisitor) extractMemberAccess(node *tree_sitter.Node, source []byte, ctx *extractCtx) {
	if parent := node.Parent(); parent != nil {
		switch parent.Kind() {
		case "call_expression", "new_expression":
			return
		}
	}
	prop := node.ChildByFieldName("property")
	if prop == nil {
		return
	}
	ctx.addRelation(prop.Utf8Text(source), RelationFieldAccess, int(node.StartPosition().Row)+1)
}

// extractAssignment emits an Assignment raw relation when the right-hand
// side of `x = y` is a bare identifier reference to another symbol.
func (v *jsFamilyVisitor) extractAssignment(node *tree_sitter.Node, source []byte, ctx *extractCtx) {
	rightNode := node.ChildByFieldName("right")
	if rightNode == nil || rightNode.Kind() != "identifier" {
		return
	}
	ctx.addRelation(rightNode.Utf8Text(source), RelationAssignment, int(node.StartPosition().Row)+1)
}

// extractIdentifierReference emits a bare Reference raw relation for
// identifier use sites not already classified as a declaration, call
// target, member base, or assignment target.
func (v *jsFamilyVisitor) extractIdentifierReference(node *tree_sitter.Node, source []byte, ctx *extractCtx) {
	parent := node.Parent()
	if parent == nil {
		return
	}
	switch parent.Kind() {
	case "call_expression", "new_expression", "member_expression",
		"function_declaration", "generator_function_declaration", "method_definition",
		"class_declaration", "interface_declaration", "variable_declarator",
		"formal_parameters", "import_specifier", "import_clause":
		return
	}
	if left := parent.ChildByFieldName("left"); left != nil && left.StartByte() == node.StartByte() && left.EndByte() == node.EndByte() {
		return
	}
	name := node.Utf8Text(source)
	if name == "" || isJSKeywordLiteral(name) {
		return
	}
	ctx.addRelation(name, RelationReference, int(node.StartPosition().Row)+1)
}

func isJSKeywordLiteral(name string) bool {
	switch name {
	case "this", "super", "undefined", "null", "true", "false", "arguments":
		return true
	}
	return false
}

func isJSAllCaps(name string) bool {
	hasLetter := false
	for _, r := range name {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

// jsVisibility follows the ES module convention: a declaration (or its
// wrapping export_statement) carries `export` to be Public; everything else
// is module-local, i.e. Private (spec §4.1).
func jsVisibility(node *tree_sitter.Node) Visibility {
	n := node
	for i := 0; i < 3 && n != nil; i++ {
		if n.Kind() == "export_statement" {
			return VisibilityPublic
		}
		if parent := n.Parent(); parent != nil && parent.Kind() == "export_statement" {
			return VisibilityPublic
		}
		n = n.Parent()
	}
	return VisibilityPrivate
}
