// Package persist implements the on-disk binary encoding for a code graph
// (spec §4.4). There is no teacher analog for this package: the teacher
// persists its graph in KuzuDB, an embedded graph database, which cannot
// produce the bit-exact, dependency-free round-trip this format requires.
// The encoding style — explicit binary.Write/Read calls through a
// bufio-wrapped stream, no reflection, no schema evolution machinery —
// follows the teacher's general preference for low-abstraction I/O code.
package persist

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/codegraph-mcp/codegraph/internal/graph"
)

// ErrCorrupt is returned by Decode when the stream fails a structural check:
// bad magic, unsupported version, or a count that does not match the bytes
// that follow (spec §4.4, §7 CorruptIndex).
var ErrCorrupt = errors.New("persist: corrupt index")

const (
	magic                = "CGPH"
	formatVersion uint16 = 1

	// languageEnumVersion bumps whenever the Language enum's byte mapping
	// changes, forcing every existing index to be rebuilt rather than
	// silently misread (spec §4.4 item 2).
	languageEnumVersion uint16 = 1
)

// --- enum <-> byte mappings (spec §9: small tables keyed on the tag) ---

var symbolKindToByte = map[graph.SymbolKind]byte{
	graph.SymbolKindFunction:  0,
	graph.SymbolKindMethod:    1,
	graph.SymbolKindClass:     2,
	graph.SymbolKindStruct:    3,
	graph.SymbolKindEnum:      4,
	graph.SymbolKindInterface: 5,
	graph.SymbolKindVariable:  6,
	graph.SymbolKindConstant:  7,
	graph.SymbolKindField:     8,
	graph.SymbolKindParameter: 9,
}

var byteToSymbolKind = invertSymbolKind(symbolKindToByte)

func invertSymbolKind(m map[graph.SymbolKind]byte) map[byte]graph.SymbolKind {
	out := make(map[byte]graph.SymbolKind, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

var relationKindToByte = map[graph.RelationKind]byte{
	graph.RelationDirectCall:  0,
	graph.RelationMethodCall:  1,
	graph.RelationDynamicCall: 2,
	graph.RelationInstantiate: 3,
	graph.RelationInherit:     4,
	graph.RelationFieldAccess: 5,
	graph.RelationAssignment:  6,
	graph.RelationReference:   7,
}

var byteToRelationKind = invertRelationKind(relationKindToByte)

func invertRelationKind(m map[graph.RelationKind]byte) map[byte]graph.RelationKind {
	out := make(map[byte]graph.RelationKind, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

var languageToByte = map[graph.Language]byte{
	graph.LangPython:     0,
	graph.LangJavaScript: 1,
	graph.LangTypeScript: 2,
	graph.LangRust:       3,
}

var byteToLanguage = invertLanguage(languageToByte)

func invertLanguage(m map[graph.Language]byte) map[byte]graph.Language {
	out := make(map[byte]graph.Language, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

var visibilityToByte = map[graph.Visibility]byte{
	graph.VisibilityPublic:    0,
	graph.VisibilityPrivate:   1,
	graph.VisibilityProtected: 2,
	graph.VisibilityUnknown:   3,
}

var byteToVisibility = invertVisibility(visibilityToByte)

func invertVisibility(m map[graph.Visibility]byte) map[byte]graph.Visibility {
	out := make(map[byte]graph.Visibility, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// Encode writes g's symbols and relations to w in the canonical binary form
// (spec §4.4). Auxiliary indices are never written; Decode rebuilds them.
func Encode(g *graph.Graph, w io.Writer) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(magic); err != nil {
		return fmt.Errorf("persist: write magic: %w", err)
	}
	if err := binary.Write(bw, binary.BigEndian, formatVersion); err != nil {
		return fmt.Errorf("persist: write version: %w", err)
	}
	if err := binary.Write(bw, binary.BigEndian, languageEnumVersion); err != nil {
		return fmt.Errorf("persist: write language enum version: %w", err)
	}

	symbols := g.AllSymbols()
	if err := binary.Write(bw, binary.BigEndian, uint32(len(symbols))); err != nil {
		return fmt.Errorf("persist: write node count: %w", err)
	}
	for _, s := range symbols {
		if err := encodeSymbol(bw, s); err != nil {
			return err
		}
	}

	relations := g.AllRelations()
	if err := binary.Write(bw, binary.BigEndian, uint32(len(relations))); err != nil {
		return fmt.Errorf("persist: write edge count: %w", err)
	}
	for _, r := range relations {
		if err := encodeRelation(bw, r); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func encodeSymbol(bw *bufio.Writer, s graph.Symbol) error {
	if err := writeString(bw, s.Name); err != nil {
		return fmt.Errorf("persist: write name: %w", err)
	}
	if err := writeString(bw, s.File); err != nil {
		return fmt.Errorf("persist: write file: %w", err)
	}
	if err := binary.Write(bw, binary.BigEndian, uint32(s.Line)); err != nil {
		return fmt.Errorf("persist: write line: %w", err)
	}

	kindByte, ok := symbolKindToByte[s.Kind]
	if !ok {
		return fmt.Errorf("persist: unknown symbol kind %q", s.Kind)
	}
	if err := bw.WriteByte(kindByte); err != nil {
		return fmt.Errorf("persist: write kind: %w", err)
	}

	langByte, ok := languageToByte[s.Language]
	if !ok {
		return fmt.Errorf("persist: unknown language %q", s.Language)
	}
	if err := bw.WriteByte(langByte); err != nil {
		return fmt.Errorf("persist: write language: %w", err)
	}

	visByte, ok := visibilityToByte[s.Visibility]
	if !ok {
		return fmt.Errorf("persist: unknown visibility %q", s.Visibility)
	}
	if err := bw.WriteByte(visByte); err != nil {
		return fmt.Errorf("persist: write visibility: %w", err)
	}

	if err := writeString(bw, s.Signature); err != nil {
		return fmt.Errorf("persist: write signature: %w", err)
	}

	if err := binary.Write(bw, binary.BigEndian, int64(s.Parent)); err != nil {
		return fmt.Errorf("persist: write parent: %w", err)
	}
	return nil
}

func encodeRelation(bw *bufio.Writer, r graph.Relation) error {
	if err := binary.Write(bw, binary.BigEndian, uint32(r.Source)); err != nil {
		return fmt.Errorf("persist: write source: %w", err)
	}
	if err := binary.Write(bw, binary.BigEndian, uint32(r.Target)); err != nil {
		return fmt.Errorf("persist: write target: %w", err)
	}

	kindByte, ok := relationKindToByte[r.Kind]
	if !ok {
		return fmt.Errorf("persist: unknown relation kind %q", r.Kind)
	}
	if err := bw.WriteByte(kindByte); err != nil {
		return fmt.Errorf("persist: write kind: %w", err)
	}

	if err := binary.Write(bw, binary.BigEndian, r.Confidence); err != nil {
		return fmt.Errorf("persist: write confidence: %w", err)
	}
	if err := binary.Write(bw, binary.BigEndian, uint32(r.Line)); err != nil {
		return fmt.Errorf("persist: write line: %w", err)
	}
	return nil
}

func writeString(bw *bufio.Writer, s string) error {
	if err := binary.Write(bw, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := bw.WriteString(s)
	return err
}

// Decode reads a binary-encoded graph from r, rebuilding auxiliary indices
// (spec §4.4: "auxiliary indices are not serialized; they are rebuilt on
// load"). It returns ErrCorrupt, wrapped with detail, on any magic/version/
// count mismatch.
func Decode(r io.Reader) (*graph.Graph, error) {
	br := bufio.NewReader(r)

	magicBuf := make([]byte, len(magic))
	if _, err := io.ReadFull(br, magicBuf); err != nil {
		return nil, fmt.Errorf("%w: read magic: %v", ErrCorrupt, err)
	}
	if string(magicBuf) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, magicBuf)
	}

	var version uint16
	if err := binary.Read(br, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: read version: %v", ErrCorrupt, err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}

	var langEnumVersion uint16
	if err := binary.Read(br, binary.BigEndian, &langEnumVersion); err != nil {
		return nil, fmt.Errorf("%w: read language enum version: %v", ErrCorrupt, err)
	}
	if langEnumVersion != languageEnumVersion {
		return nil, fmt.Errorf("%w: stale language enum version %d", ErrCorrupt, langEnumVersion)
	}

	var nodeCount uint32
	if err := binary.Read(br, binary.BigEndian, &nodeCount); err != nil {
		return nil, fmt.Errorf("%w: read node count: %v", ErrCorrupt, err)
	}

	symbols := make([]graph.Symbol, nodeCount)
	for i := range symbols {
		sym, err := decodeSymbol(br)
		if err != nil {
			return nil, err
		}
		sym.ID = graph.SymbolID(i)
		symbols[i] = sym
	}

	var edgeCount uint32
	if err := binary.Read(br, binary.BigEndian, &edgeCount); err != nil {
		return nil, fmt.Errorf("%w: read edge count: %v", ErrCorrupt, err)
	}

	relations := make([]graph.Relation, edgeCount)
	for i := range relations {
		rel, err := decodeRelation(br)
		if err != nil {
			return nil, err
		}
		if int(rel.Source) < 0 || int(rel.Source) >= len(symbols) || int(rel.Target) < 0 || int(rel.Target) >= len(symbols) {
			return nil, fmt.Errorf("%w: edge %d references out-of-range symbol", ErrCorrupt, i)
		}
		relations[i] = rel
	}

	g, err := graph.RebuildIndices(symbols, relations)
	if err != nil {
		return nil, fmt.Errorf("%w: rebuild indices: %v", ErrCorrupt, err)
	}
	return g, nil
}

func decodeSymbol(br *bufio.Reader) (graph.Symbol, error) {
	var s graph.Symbol

	name, err := readString(br)
	if err != nil {
		return s, fmt.Errorf("%w: read name: %v", ErrCorrupt, err)
	}
	file, err := readString(br)
	if err != nil {
		return s, fmt.Errorf("%w: read file: %v", ErrCorrupt, err)
	}

	var line uint32
	if err := binary.Read(br, binary.BigEndian, &line); err != nil {
		return s, fmt.Errorf("%w: read line: %v", ErrCorrupt, err)
	}

	kindByte, err := br.ReadByte()
	if err != nil {
		return s, fmt.Errorf("%w: read kind: %v", ErrCorrupt, err)
	}
	kind, ok := byteToSymbolKind[kindByte]
	if !ok {
		return s, fmt.Errorf("%w: unknown symbol kind byte %d", ErrCorrupt, kindByte)
	}

	langByte, err := br.ReadByte()
	if err != nil {
		return s, fmt.Errorf("%w: read language: %v", ErrCorrupt, err)
	}
	lang, ok := byteToLanguage[langByte]
	if !ok {
		return s, fmt.Errorf("%w: unknown language byte %d", ErrCorrupt, langByte)
	}

	visByte, err := br.ReadByte()
	if err != nil {
		return s, fmt.Errorf("%w: read visibility: %v", ErrCorrupt, err)
	}
	vis, ok := byteToVisibility[visByte]
	if !ok {
		return s, fmt.Errorf("%w: unknown visibility byte %d", ErrCorrupt, visByte)
	}

	signature, err := readString(br)
	if err != nil {
		return s, fmt.Errorf("%w: read signature: %v", ErrCorrupt, err)
	}

	var parent int64
	if err := binary.Read(br, binary.BigEndian, &parent); err != nil {
		return s, fmt.Errorf("%w: read parent: %v", ErrCorrupt, err)
	}

	s.Name = name
	s.File = file
	s.Line = int(line)
	s.Kind = kind
	s.Language = lang
	s.Visibility = vis
	s.Signature = signature
	s.Parent = graph.SymbolID(parent)
	return s, nil
}

func decodeRelation(br *bufio.Reader) (graph.Relation, error) {
	var r graph.Relation

	var source, target uint32
	if err := binary.Read(br, binary.BigEndian, &source); err != nil {
		return r, fmt.Errorf("%w: read source: %v", ErrCorrupt, err)
	}
	if err := binary.Read(br, binary.BigEndian, &target); err != nil {
		return r, fmt.Errorf("%w: read target: %v", ErrCorrupt, err)
	}

	kindByte, err := br.ReadByte()
	if err != nil {
		return r, fmt.Errorf("%w: read kind: %v", ErrCorrupt, err)
	}
	kind, ok := byteToRelationKind[kindByte]
	if !ok {
		return r, fmt.Errorf("%w: unknown relation kind byte %d", ErrCorrupt, kindByte)
	}

	var confidence float32
	if err := binary.Read(br, binary.BigEndian, &confidence); err != nil {
		return r, fmt.Errorf("%w: read confidence: %v", ErrCorrupt, err)
	}

	var line uint32
	if err := binary.Read(br, binary.BigEndian, &line); err != nil {
		return r, fmt.Errorf("%w: read line: %v", ErrCorrupt, err)
	}

	r.Source = graph.SymbolID(source)
	r.Target = graph.SymbolID(target)
	r.Kind = kind
	r.Confidence = confidence
	r.Line = int(line)
	return r, nil
}

func readString(br *bufio.Reader) (string, error) {
	var n uint32
	if err := binary.Read(br, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
