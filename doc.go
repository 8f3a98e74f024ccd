// Package arbor is a concurrency-safe binding to the tree-sitter parsing
// engine with an indexer that stores syntax tree snapshots in SQLite.
//
// # Parsing
//
// A [Parser] is configured with a [Language] from a [Registry] and turns
// source text into a [Tree]:
//
//	lang, _ := arbor.DefaultRegistry().Lookup("python")
//	p := arbor.NewParser()
//	defer p.Close()
//	if err := p.SetLanguage(lang); err != nil { ... }
//	tree, err := p.Parse(ctx, src, nil)
//	defer tree.Close()
//
// SetLanguage reports an [IncompatibleLanguageError] when the grammar was
// generated for an ABI revision the engine cannot load; the parser keeps its
// previous language.
//
// A Tree is immutable. Any number of goroutines may read it and derive
// [Node] values or [TreeCursor] walkers from it. Nodes and cursors hold
// their own reference to the tree, so closing the Tree handle does not
// invalidate them; the underlying tree is freed when the last holder is
// gone.
//
// Passing a previous tree to Parse, or calling [Parser.Reparse], lets the
// engine reuse unchanged subtrees.
//
// # Indexing
//
// An [Engine] walks files, parses them with one parser per worker and
// writes a pre-order row per node to SQLite:
//
//	e, err := arbor.New("arbor.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	err = e.IndexDirectory(ctx, "path/to/project")
//	counts, err := e.Query().KindCounts()
//
// Unchanged files are skipped by content hash. Within one Engine, a changed
// file is re-parsed against its previous tree.
//
// # Scripts
//
// Risor scripts see the same API through snake_case methods (see the
// internal/runtime package). [WithFileScript] runs a script for every
// indexed file with file_path, file_id and tree globals.
package arbor
