package store

import "time"

// File is one indexed source file.
type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	ByteSize    int
	NodeCount   int
	HasError    bool
	LastIndexed time.Time
}

// NodeRow is the stored form of one syntax node. Lines and columns are
// zero-based; columns count bytes.
type NodeRow struct {
	ID        int64
	FileID    int64
	Ordinal   int // pre-order position within the file
	Parent    int // ordinal of the parent, -1 for the root
	Depth     int
	Kind      string
	KindID    int
	Field     string
	IsNamed   bool
	IsMissing bool
	IsExtra   bool
	IsError   bool
	StartByte int
	EndByte   int
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// KindCount is the number of nodes of one kind.
type KindCount struct {
	Kind    string
	IsNamed bool
	Count   int
}
