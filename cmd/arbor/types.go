package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLILanguage describes a registered grammar.
type CLILanguage struct {
	Name       string `json:"name"`
	Version    uint32 `json:"version"`
	KindCount  int    `json:"kind_count"`
	FieldCount int    `json:"field_count"`
}

// CLIPoint is a zero-based row and byte column.
type CLIPoint struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

// CLINode is a JSON-friendly syntax node with its subtree.
type CLINode struct {
	Kind      string    `json:"kind"`
	Field     string    `json:"field,omitempty"`
	Named     bool      `json:"named"`
	Missing   bool      `json:"missing,omitempty"`
	Extra     bool      `json:"extra,omitempty"`
	StartByte uint32    `json:"start_byte"`
	EndByte   uint32    `json:"end_byte"`
	Start     CLIPoint  `json:"start"`
	End       CLIPoint  `json:"end"`
	Children  []CLINode `json:"children,omitempty"`
}

// CLITree is the result of the parse command.
type CLITree struct {
	File      string  `json:"file"`
	Language  string  `json:"language"`
	NodeCount int     `json:"node_count"`
	HasError  bool    `json:"has_error"`
	SExp      string  `json:"sexp"`
	Root      CLINode `json:"root"`
}

// CLIWalkStep is one cursor position visited by the walk command.
type CLIWalkStep struct {
	Depth int      `json:"depth"`
	Field string   `json:"field,omitempty"`
	Kind  string   `json:"kind"`
	Named bool     `json:"named"`
	Start CLIPoint `json:"start"`
	End   CLIPoint `json:"end"`
	Text  string   `json:"text,omitempty"`
}

// CLIFile is a JSON-friendly indexed file.
type CLIFile struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Language  string `json:"language"`
	ByteSize  int    `json:"byte_size"`
	NodeCount int    `json:"node_count"`
	HasError  bool   `json:"has_error"`
}

// CLIKindCount is a node kind with its frequency.
type CLIKindCount struct {
	Kind  string `json:"kind"`
	Named bool   `json:"named"`
	Count int    `json:"count"`
}

// CLIStoredNode is a stored node row located in its file.
type CLIStoredNode struct {
	File      string `json:"file"`
	Kind      string `json:"kind"`
	Field     string `json:"field,omitempty"`
	Named     bool   `json:"named"`
	Depth     int    `json:"depth"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}
