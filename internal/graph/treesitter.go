package graph

import (
	"context"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// ParseResult holds the extracted symbols and raw (unresolved) relations
// from a single file (spec §4.1).
type ParseResult struct {
	Symbols      []Symbol
	RawRelations []RawRelation
}

// ExtractOptions controls extraction behavior that the spec leaves
// configurable. EmitDynamicCalls defaults to false (spec §9 Open
// Questions: "this spec leaves the default OFF").
type ExtractOptions struct {
	EmitDynamicCalls bool
}

// Adapter extracts symbols and raw relations from a parsed syntax tree for
// one source language (spec §4.1).
type Adapter interface {
	Extract(root *tree_sitter.Node, source []byte, filePath string, opts ExtractOptions) ([]Symbol, []RawRelation)
	Language() Language
}

// TreeSitterParser implements per-file parsing using tree-sitter grammars.
// A new tree-sitter parser is created per Parse call and the adapters keep
// no state between calls, so the Indexer shares one TreeSitterParser across
// all of its worker goroutines.
type TreeSitterParser struct {
	languages map[Language]*tree_sitter.Language
	adapters  map[Language]Adapter
	opts      ExtractOptions
}

// NewTreeSitterParser creates a TreeSitterParser with Python, JavaScript,
// TypeScript, and Rust grammars registered (spec §3: the four source
// languages).
func NewTreeSitterParser(opts ExtractOptions) *TreeSitterParser {
	langs := map[Language]*tree_sitter.Language{
		LangPython:     tree_sitter.NewLanguage(tree_sitter_python.Language()),
		LangJavaScript: tree_sitter.NewLanguage(tree_sitter_javascript.Language()),
		LangTypeScript: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		LangRust:       tree_sitter.NewLanguage(tree_sitter_rust.Language()),
	}

	adapters := map[Language]Adapter{
		LangPython:     &pyAdapter{},
		LangJavaScript: &jsAdapter{},
		LangTypeScript: &tsAdapter{},
		LangRust:       &rsAdapter{},
	}

	return &TreeSitterParser{languages: langs, adapters: adapters, opts: opts}
}

// LanguageForExt maps a file extension (including the leading dot) to a
// Language, or "" if no adapter handles it.
func LanguageForExt(ext string) Language {
	switch ext {
	case ".py", ".pyi":
		return LangPython
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript
	case ".ts", ".tsx":
		return LangTypeScript
	case ".rs":
		return LangRust
	default:
		return ""
	}
}

// Parse extracts symbols and raw relations from a single source file.
func (p *TreeSitterParser) Parse(_ context.Context, path string, source []byte, lang Language) (*ParseResult, error) {
	tsLang, ok := p.languages[lang]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}

	adapter, ok := p.adapters[lang]
	if !ok {
		return nil, fmt.Errorf("no adapter for language: %s", lang)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(tsLang); err != nil {
		return nil, fmt.Errorf("set language %s: %w", lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	symbols, raw := adapter.Extract(root, source, path, p.opts)

	return &ParseResult{Symbols: symbols, RawRelations: raw}, nil
}

// SupportedLanguages returns the languages this parser can handle.
func (p *TreeSitterParser) SupportedLanguages() []Language {
	langs := make([]Language, 0, len(p.languages))
	for l := range p.languages {
		langs = append(langs, l)
	}
	return langs
}

// Close is a no-op because parsers are created per Parse call.
func (p *TreeSitterParser) Close() error {
	return nil
}

// firstLineSignature trims node's source text down to its first line and
// caps it at maxSigLen bytes, for the "display only, never parsed back"
// Signature field (spec §4.1).
const maxSigLen = 200

func firstLineSignature(node *tree_sitter.Node, source []byte) string {
	text := node.Utf8Text(source)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			text = text[:i]
			break
		}
	}
	text = trimSpace(text)
	if len(text) > maxSigLen {
		text = text[:maxSigLen]
	}
	return text
}

func trimSpace(s string) string {
	start := 0
	for start < len(s) && isSpaceByte(s[start]) {
		start++
	}
	end := len(s)
	for end > start && isSpaceByte(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
