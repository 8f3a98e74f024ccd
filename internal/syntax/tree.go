package syntax

import (
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	sitter "github.com/smacker/go-tree-sitter"
)

var treeSerial atomic.Uint32

// treeCore is the shared state behind every Tree handle, Node and TreeCursor
// derived from one parse.
//
// Everything views read (arena, src, lang) is immutable after construction.
// The engine tree is only needed as input to later incremental parses; it is
// guarded by mu and deleted when the last reference is released.
type treeCore struct {
	serial uint32
	lang   *Language
	src    []byte
	arena  *arena
	inst   *instruments

	refs atomic.Int32

	mu      sync.RWMutex
	raw     *sitter.Tree
	editSrc []byte // text the engine tree's coordinates currently describe
}

func newTreeCore(raw *sitter.Tree, src []byte, lang *Language, inst *instruments) *treeCore {
	c := &treeCore{
		serial:  treeSerial.Add(1),
		lang:    lang,
		src:     src,
		arena:   buildArena(raw.RootNode(), lang),
		inst:    inst,
		raw:     raw,
		editSrc: src,
	}
	inst.treeDelta(lang.name, 1)
	return c
}

// tryAcquire takes a reference unless the count already reached zero.
func (c *treeCore) tryAcquire() bool {
	for {
		n := c.refs.Load()
		if n <= 0 {
			return false
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (c *treeCore) release() {
	n := c.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic("syntax: tree reference released twice")
	}
	c.mu.Lock()
	if c.raw != nil {
		c.raw.Close()
		c.raw = nil
		c.editSrc = nil
	}
	c.mu.Unlock()
	c.inst.treeDelta(c.lang.name, -1)
}

// alive reports whether the engine tree is still held.
func (c *treeCore) alive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw != nil
}

// pin is a counted reference shared by a family of Node values. Nodes are
// plain values and cannot release anything themselves, so the reference is
// dropped by a cleanup once no Node points at the pin any more.
type pin struct {
	core *treeCore
}

func newPin(core *treeCore) *pin {
	p := &pin{core: core}
	if core.tryAcquire() {
		runtime.AddCleanup(p, (*treeCore).release, core)
	}
	return p
}

// Tree is a handle to a parsed syntax tree.
//
// Any number of goroutines may read a Tree and create Nodes and TreeCursors
// from it concurrently. The handle holds one reference; Close drops it. The
// parsed tree itself stays alive while any Node or TreeCursor derived from it
// is still in use.
type Tree struct {
	core   *treeCore
	closed atomic.Bool

	pinOnce sync.Once
	pin     *pin
}

func newTree(core *treeCore) *Tree {
	core.refs.Add(1)
	return &Tree{core: core}
}

func (t *Tree) rootPin() *pin {
	t.pinOnce.Do(func() {
		t.pin = newPin(t.core)
	})
	return t.pin
}

// RootNode returns the node for the grammar's start symbol.
func (t *Tree) RootNode() Node {
	return Node{pin: t.rootPin(), idx: 0}
}

// Walk returns a cursor positioned at the root node.
func (t *Tree) Walk() *TreeCursor {
	return newTreeCursor(t.core, 0)
}

// Language returns the language the tree was parsed with.
func (t *Tree) Language() *Language { return t.core.lang }

// Text returns the source the tree was parsed from. Callers must not modify it.
func (t *Tree) Text() []byte { return t.core.src }

// NodeCount returns the number of nodes in the tree, including anonymous ones.
func (t *Tree) NodeCount() int { return len(t.core.arena.nodes) }

// HasError reports whether the tree contains syntax errors.
func (t *Tree) HasError() bool { return t.RootNode().HasError() }

// String returns the S-expression of the root node.
func (t *Tree) String() string { return t.RootNode().String() }

// Clone returns a new handle to the same tree. Each handle must be closed
// separately. Returns nil if t is already closed.
func (t *Tree) Clone() *Tree {
	if t.closed.Load() || !t.core.tryAcquire() {
		return nil
	}
	return &Tree{core: t.core}
}

// Close drops this handle's reference. It is safe to call more than once.
// Nodes and cursors created from the tree remain usable.
func (t *Tree) Close() {
	if t.closed.CompareAndSwap(false, true) {
		t.core.release()
	}
}

// Closed reports whether Close has been called on this handle.
func (t *Tree) Closed() bool { return t.closed.Load() }

// sexp writes the S-expression of the subtree at idx. Only named nodes and
// missing tokens are printed, with field labels.
func (a *arena) sexp(b *strings.Builder, lang *Language, idx int32, field string) {
	r := &a.nodes[idx]
	visible := r.flags&(flagNamed|flagMissing) != 0
	if visible {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if field != "" {
			b.WriteString(field)
			b.WriteString(": ")
		}
		b.WriteByte('(')
		if r.flags&flagMissing != 0 {
			b.WriteString("MISSING ")
			if r.flags&flagNamed == 0 {
				b.WriteString(`"` + lang.KindName(r.kind) + `"`)
			} else {
				b.WriteString(lang.KindName(r.kind))
			}
		} else {
			b.WriteString(lang.KindName(r.kind))
		}
	}
	for i := range r.childCount {
		kid := a.kids[r.childStart+i]
		a.sexp(b, lang, kid, lang.FieldName(a.nodes[kid].field))
	}
	if visible {
		b.WriteByte(')')
	}
}
