// Package syntax wraps the tree-sitter engine in a lifetime-safe object model:
// Language, Parser, Tree, Node and TreeCursor.
//
// A parse produces one shared tree. Its nodes are copied once into an
// immutable table, so Nodes and TreeCursors read without locks from any
// goroutine. The engine's own tree is reference counted: every open Tree
// handle, every TreeCursor, and every family of Nodes holds one reference,
// and the engine memory is freed when the last of them is gone. Closing a
// Tree handle therefore never invalidates nodes or cursors derived from it.
package syntax
