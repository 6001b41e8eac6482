package mcptools

// --- MCP Tool Input/Output Types ---
// These structs define the JSON schema for each MCP tool's input. The MCP
// Go SDK auto-generates JSON schemas from struct tags, the same convention
// the teacher's BuildGraphInput/QuerySymbolsInput family uses.

// NavigateInput is the input for the navigate MCP tool (spec §6).
type NavigateInput struct {
	Function string `json:"function" jsonschema:"the symbol name to navigate from"`
	Depth    int    `json:"depth,omitempty" jsonschema:"traversal depth 1-4 (default: 1)"`
}

// NavigateOutput is the result of the navigate MCP tool.
type NavigateOutput struct {
	Function string      `json:"function"`
	Calls    []SymbolRef `json:"calls"`
	CalledBy []SymbolRef `json:"called_by"`
	Siblings []SymbolRef `json:"siblings"`
	Summary  string      `json:"summary"`
}

// FindInput is the input for the find MCP tool (spec §6).
type FindInput struct {
	Query string `json:"query" jsonschema:"search text for symbol names"`
	Scope string `json:"scope,omitempty" jsonschema:"restrict matches to files whose path starts with this prefix"`
}

// FindOutput is the result of the find MCP tool.
type FindOutput struct {
	Matches       []SymbolRef            `json:"matches"`
	GroupedByFile map[string][]SymbolRef `json:"grouped_by_file"`
	Summary       string                 `json:"summary"`
}

// ImpactInput is the input for the impact MCP tool (spec §6).
type ImpactInput struct {
	Function     string `json:"function" jsonschema:"the symbol name to assess"`
	IncludeTests bool   `json:"include_tests,omitempty" jsonschema:"include test files in affected_files (default: false)"`
}

// ImpactOutput is the result of the impact MCP tool.
type ImpactOutput struct {
	DirectCallers    []SymbolRef `json:"direct_callers"`
	TransitiveImpact []SymbolRef `json:"transitive_impact"`
	AffectedFiles    []string    `json:"affected_files"`
	TestFiles        []string    `json:"test_files"`
	RiskLevel        string      `json:"risk_level"`
	Summary          string      `json:"summary"`
}

// SymbolRef mirrors query.SymbolRef on the wire (spec §6: every symbol
// record carries {name, file, line, signature?, language?, confidence?}).
type SymbolRef struct {
	Name       string  `json:"name"`
	File       string  `json:"file"`
	Line       int     `json:"line"`
	Signature  string  `json:"signature,omitempty"`
	Language   string  `json:"language,omitempty"`
	Confidence float32 `json:"confidence,omitempty"`
}
