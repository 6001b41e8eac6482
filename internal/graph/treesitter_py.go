package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// pyAdapter extracts symbols and raw relations from Python source files
// (spec §4.1 declaration mapping for Python).
type pyAdapter struct{}

func (a *pyAdapter) Language() Language { return LangPython }

func (a *pyAdapter) Extract(root *tree_sitter.Node, source []byte, filePath string, opts ExtractOptions) ([]Symbol, []RawRelation) {
	ctx := newExtractCtx()
	a.walk(root, source, filePath, ctx, opts)
	return ctx.symbols, ctx.raw
}

func (a *pyAdapter) walk(node *tree_sitter.Node, source []byte, filePath string, ctx *extractCtx, opts ExtractOptions) {
	kind := node.Kind()

	pushed := false
	switch kind {
	case "function_definition":
		nameNode := node.ChildByFieldName("name")
		if nameNode != nil {
			symKind := SymbolKindFunction
			if nearestPyContainer(node) == "class_definition" {
				symKind = SymbolKindMethod
			}
			name := nameNode.Utf8Text(source)
			if validSymbol(int(node.StartPosition().Row)+1, node.StartByte(), node.EndByte()) {
				id := ctx.addSymbol(Symbol{
					Name:       name,
					Kind:       symKind,
					File:       filePath,
					Line:       int(node.StartPosition().Row) + 1,
					Signature:  firstLineSignature(node, source),
					Language:   LangPython,
					Visibility: pyVisibility(name),
				})
				ctx.push(id)
				pushed = true
			}
		}

	case "class_definition":
		nameNode := node.ChildByFieldName("name")
		if nameNode != nil {
			name := nameNode.Utf8Text(source)
			if validSymbol(int(node.StartPosition().Row)+1, node.StartByte(), node.EndByte()) {
				id := ctx.addSymbol(Symbol{
					Name:       name,
					Kind:       SymbolKindClass,
					File:       filePath,
					Line:       int(node.StartPosition().Row) + 1,
					Signature:  firstLineSignature(node, source),
					Language:   LangPython,
					Visibility: pyVisibility(name),
				})
				ctx.push(id)
				pushed = true
				a.extractBaseClasses(node, source, ctx)
			}
		}

	case "assignment":
		if isPyModuleLevelAssignment(node) {
			a.extractModuleAssignment(node, source, filePath, ctx)
		} else {
			a.extractAssignmentTarget(node, source, ctx)
		}

	case "call":
		a.extractCall(node, source, ctx, opts)

	case "attribute":
		a.extractAttribute(node, source, ctx)

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

// nearestPyContainer returns the kind of the nearest enclosing
// function_definition or class_definition, skipping intermediate block/
// suite/decorated_definition nodes. Used to decide Function vs Method
// (spec §4.1: "Method when nested in class_definition").
func nearestPyContainer(node *tree_sitter.Node) string {
	parent := node.Parent()
	for parent != nil {
		switch parent.Kind() {
		case "class_definition":
			return "class_definition"
		case "function_definition":
			return "function_definition"
		}
		parent = parent.Parent()
	}
	return ""
}

// isPyModuleLevelAssignment reports whether an assignment node's nearest
// enclosing container is the module itself, not a function or class body.
func isPyModuleLevelAssignment(node *tree_sitter.Node) bool {
	parent := node.Parent()
	for parent != nil {
		switch parent.Kind() {
		case "function_definition", "class_definition":
			return false
		case "module":
			return true
		}
		parent = parent.Parent()
	}
	return false
}

func (a *pyAdapter) extractModuleAssignment(node *tree_sitter.Node, source []byte, filePath string, ctx *extractCtx) {
	leftNode := node.ChildByFieldName("left")
	if leftNode == nil || leftNode.Kind() != "identifier" {
		return
	}
	name := leftNode.Utf8Text(source)
	if name == "" {
		return
	}
	if !validSymbol(int(node.StartPosition().Row)+1, node.StartByte(), node.EndByte()) {
		return
	}

	symKind := SymbolKindVariable
	if isPyAllCaps(name) {
		symKind = SymbolKindConstant
	}

	ctx.addSymbol(Symbol{
		Name:       name,
		Kind:       symKind,
		File:       filePath,
		Line:       int(node.StartPosition().Row) + 1,
		Signature:  firstLineSignature(node, source),
		Language:   LangPython,
		Visibility: pyVisibility(name),
	})
}

// extractAssignmentTarget emits an Assignment raw relation when an
// assignment's right-hand side is a bare identifier referencing another
// symbol (spec §4.1 relation table).
func (a *pyAdapter) extractAssignmentTarget(node *tree_sitter.Node, source []byte, ctx *extractCtx) {
	rightNode := node.ChildByFieldName("right")
	if rightNode == nil || rightNode.Kind() != "identifier" {
		return
	}
	name := rightNode.Utf8Text(source)
	ctx.addRelation(name, RelationAssignment, int(node.StartPosition().Row)+1)
}

func (a *pyAdapter) extractBaseClasses(node *tree_sitter.Node, source []byte, ctx *extractCtx) {
	argList := node.ChildByFieldName("superclasses")
	if argList == nil {
		return
	}
	for i := uint(0); i < argList.ChildCount(); i++ {
		child := argList.Child(i)
		if child == nil || child.Kind() != "identifier" {
			continue
		}
		name := child.Utf8Text(source)
		ctx.addRelation(name, RelationInherit, int(node.StartPosition().Row)+1)
	}
}

func (a *pyAdapter) extractCall(node *tree_sitter.Node, source []byte, ctx *extractCtx, opts ExtractOptions) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	line := int(node.StartPosition().Row) + 1

	switch fnNode.Kind() {
	case "identifier":
		name := fnNode.Utf8Text(source)
		if isPyCapitalized(name) {
			ctx.addRelation(name, RelationInstantiate, line)
		} else {
			ctx.addRelation(name, RelationDirectCall, line)
		}
	case "attribute":
		attrNode := fnNode.ChildByFieldName("attribute")
		if attrNode != nil {
			ctx.addRelation(attrNode.Utf8Text(source), RelationMethodCall, line)
		}
	default:
		// Neither a bare identifier nor a simple attribute access: the
		// callee is computed dynamically. Emit DynamicCall only if
		// configured on (spec §9 Open Questions: default is off); when on,
		// the target descriptor is the empty string per spec §4.1.
		if opts.EmitDynamicCalls {
			if src, ok := ctx.enclosing(); ok {
				ctx.raw = append(ctx.raw, RawRelation{Source: src, Target: "", Kind: RelationDynamicCall, Line: line})
			}
		}
	}
}

func (a *pyAdapter) extractAttribute(node *tree_sitter.Node, source []byte, ctx *extractCtx) {
	if node.Parent() != nil && node.Parent().Kind() == "call" {
		return // handled by extractCall
	}
	attrNode := node.ChildByFieldName("attribute")
	if attrNode == nil {
		return
	}
	ctx.addRelation(attrNode.Utf8Text(source), RelationFieldAccess, int(node.StartPosition().Row)+1)
}

func (a *pyAdapter) extractIdentifierReference(node *tree_sitter.Node, source []byte, ctx *extractCtx) {
	parent := node.Parent()
	if parent == nil {
		return
	}
	switch parent.Kind() {
	case "call", "attribute", "function_definition", "class_definition", "assignment", "keyword_argument":
		return // classified elsewhere, or is a declaration site, not a use
	}
	if left := parent.ChildByFieldName("left"); left != nil && left.StartByte() == node.StartByte() && left.EndByte() == node.EndByte() {
		return
	}
	name := node.Utf8Text(source)
	if name == "" || isPyKeywordLiteral(name) {
		return
	}
	ctx.addRelation(name, RelationReference, int(node.StartPosition().Row)+1)
}

func isPyKeywordLiteral(name string) bool {
	switch name {
	case "self", "cls", "True", "False", "None":
		return true
	}
	return false
}

func isPyAllCaps(name string) bool {
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

func isPyCapitalized(name string) bool {
	if name == "" {
		return false
	}
	return name[0] >= 'A' && name[0] <= 'Z'
}

// pyVisibility follows Python convention: a leading underscore signals
// Private; double-leading-underscore (name mangling) is still Private.
// Everything else is Public.
func pyVisibility(name string) Visibility {
	if strings.HasPrefix(name, "_") {
		return VisibilityPrivate
	}
	return VisibilityPublic
}
