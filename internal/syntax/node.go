package syntax

import (
	"strings"
)

// Node is a position within a Tree. It is a small value that may be copied
// and shared between goroutines; every Node derived from another shares its
// reference to the tree, which keeps the tree alive.
//
// The zero Node is the null node: it has no tree, IsNull reports true and
// all accessors return zero values.
type Node struct {
	pin *pin
	idx int32
}

func (n Node) rec() *record { return &n.pin.core.arena.nodes[n.idx] }

func (n Node) at(idx int32) Node {
	if idx < 0 {
		return Node{}
	}
	return Node{pin: n.pin, idx: idx}
}

// IsNull reports whether n is the null node.
func (n Node) IsNull() bool { return n.pin == nil }

// ID returns an identifier that is stable for this position for the lifetime
// of the tree. IDs are unique across trees of one process but carry no meaning
// between them.
func (n Node) ID() uint64 {
	if n.IsNull() {
		return 0
	}
	return uint64(n.pin.core.serial)<<32 | uint64(n.idx)
}

// KindID returns the grammar symbol of the node.
func (n Node) KindID() uint16 {
	if n.IsNull() {
		return 0
	}
	return n.rec().kind
}

// Kind returns the node type name. The string belongs to the Language.
func (n Node) Kind() string {
	if n.IsNull() {
		return ""
	}
	return n.pin.core.lang.KindName(n.rec().kind)
}

// Language returns the language the node's symbols are defined in.
func (n Node) Language() *Language {
	if n.IsNull() {
		return nil
	}
	return n.pin.core.lang
}

func (n Node) flag(f uint8) bool {
	return !n.IsNull() && n.rec().flags&f != 0
}

// IsNamed reports whether the node is a named grammar rule rather than an
// anonymous token.
func (n Node) IsNamed() bool { return n.flag(flagNamed) }

// IsMissing reports whether the node was inserted by error recovery.
func (n Node) IsMissing() bool { return n.flag(flagMissing) }

// IsExtra reports whether the node is an extra such as a comment.
func (n Node) IsExtra() bool { return n.flag(flagExtra) }

// HasError reports whether the node or any descendant is a syntax error.
func (n Node) HasError() bool { return n.flag(flagHasError) }

// IsError reports whether the node is an ERROR node.
func (n Node) IsError() bool { return !n.IsNull() && n.rec().kind == errorKindID }

func (n Node) StartByte() uint32 {
	if n.IsNull() {
		return 0
	}
	return n.rec().startByte
}

func (n Node) EndByte() uint32 {
	if n.IsNull() {
		return 0
	}
	return n.rec().endByte
}

func (n Node) StartPoint() Point {
	if n.IsNull() {
		return Point{}
	}
	return n.rec().start
}

func (n Node) EndPoint() Point {
	if n.IsNull() {
		return Point{}
	}
	return n.rec().end
}

// Text returns the source text spanned by the node.
func (n Node) Text() string {
	if n.IsNull() {
		return ""
	}
	r := n.rec()
	return string(n.pin.core.src[r.startByte:r.endByte])
}

// Parent returns the parent node, or the null node at the root.
func (n Node) Parent() Node {
	if n.IsNull() {
		return Node{}
	}
	return n.at(n.rec().parent)
}

// ChildCount returns the number of children, named and anonymous.
func (n Node) ChildCount() int {
	if n.IsNull() {
		return 0
	}
	return int(n.rec().childCount)
}

// Child returns the i-th child, or the null node if out of range.
func (n Node) Child(i int) Node {
	if n.IsNull() {
		return Node{}
	}
	return n.at(n.pin.core.arena.child(n.idx, i))
}

// NamedChildCount returns the number of named children.
func (n Node) NamedChildCount() int {
	if n.IsNull() {
		return 0
	}
	a := n.pin.core.arena
	count := 0
	for i := range int(n.rec().childCount) {
		if a.named(a.child(n.idx, i)) {
			count++
		}
	}
	return count
}

// NamedChild returns the i-th named child, or the null node if out of range.
func (n Node) NamedChild(i int) Node {
	if n.IsNull() || i < 0 {
		return Node{}
	}
	a := n.pin.core.arena
	for j := range int(n.rec().childCount) {
		kid := a.child(n.idx, j)
		if !a.named(kid) {
			continue
		}
		if i == 0 {
			return n.at(kid)
		}
		i--
	}
	return Node{}
}

// ChildByFieldName returns the first child under the given field, or the
// null node.
func (n Node) ChildByFieldName(name string) Node {
	if n.IsNull() {
		return Node{}
	}
	id, ok := n.pin.core.lang.FieldID(name)
	if !ok {
		return Node{}
	}
	a := n.pin.core.arena
	for i := range int(n.rec().childCount) {
		kid := a.child(n.idx, i)
		if a.nodes[kid].field == id {
			return n.at(kid)
		}
	}
	return Node{}
}

// FieldName returns the field under which the node sits in its parent, or ""
// if it has none.
func (n Node) FieldName() string {
	if n.IsNull() {
		return ""
	}
	return n.pin.core.lang.FieldName(n.rec().field)
}

func (n Node) NextSibling() Node {
	if n.IsNull() {
		return Node{}
	}
	return n.at(n.pin.core.arena.sibling(n.idx, 1))
}

func (n Node) PrevSibling() Node {
	if n.IsNull() {
		return Node{}
	}
	return n.at(n.pin.core.arena.sibling(n.idx, -1))
}

func (n Node) NextNamedSibling() Node {
	for s := n.NextSibling(); !s.IsNull(); s = s.NextSibling() {
		if s.IsNamed() {
			return s
		}
	}
	return Node{}
}

func (n Node) PrevNamedSibling() Node {
	for s := n.PrevSibling(); !s.IsNull(); s = s.PrevSibling() {
		if s.IsNamed() {
			return s
		}
	}
	return Node{}
}

// DescendantForByteRange returns the smallest node within n that spans the
// byte range [start, end].
func (n Node) DescendantForByteRange(start, end uint32) Node {
	if n.IsNull() {
		return Node{}
	}
	a := n.pin.core.arena
	if r := n.rec(); start < r.startByte || end > r.endByte {
		return Node{}
	}
	idx := n.idx
	for {
		next := int32(-1)
		for i := range int(a.nodes[idx].childCount) {
			kid := a.child(idx, i)
			k := &a.nodes[kid]
			if k.startByte <= start && end <= k.endByte && k.endByte > k.startByte {
				next = kid
				break
			}
		}
		if next < 0 {
			return n.at(idx)
		}
		idx = next
	}
}

// Walk returns a cursor that starts at n and never leaves its subtree.
func (n Node) Walk() *TreeCursor {
	if n.IsNull() {
		return nil
	}
	return newTreeCursor(n.pin.core, n.idx)
}

// Equal reports whether both nodes refer to the same position in the same tree.
func (n Node) Equal(other Node) bool {
	if n.IsNull() || other.IsNull() {
		return n.IsNull() && other.IsNull()
	}
	return n.pin.core == other.pin.core && n.idx == other.idx
}

// String returns the S-expression of the subtree rooted at n.
func (n Node) String() string {
	if n.IsNull() {
		return ""
	}
	var b strings.Builder
	n.pin.core.arena.sexp(&b, n.pin.core.lang, n.idx, "")
	return b.String()
}
