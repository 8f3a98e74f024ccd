package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Point is a zero-based (row, byte column) position in source text.
type Point struct {
	Row    uint32
	Column uint32
}

func pointFrom(p sitter.Point) Point {
	return Point{Row: p.Row, Column: p.Column}
}

const (
	flagNamed uint8 = 1 << iota
	flagMissing
	flagExtra
	flagHasError
)

// record is one node of the flattened tree.
type record struct {
	kind       uint16
	field      uint16 // field under which this node sits in its parent, 0 if none
	flags      uint8
	parent     int32 // -1 for the root
	childStart int32 // offset into arena.kids
	childCount int32
	childIndex int32 // position among the parent's children
	startByte  uint32
	endByte    uint32
	start      Point
	end        Point
}

// arena is an immutable, pre-order copy of an engine tree. Once built it is
// only read, so any number of goroutines may traverse it without locking.
type arena struct {
	nodes []record
	kids  []int32
}

// buildArena walks the engine tree once with a tree cursor and records every
// node, then lays out each node's children contiguously.
func buildArena(root *sitter.Node, lang *Language) *arena {
	a := &arena{}
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()

	var parents []int32
	for {
		n := cursor.CurrentNode()
		idx := int32(len(a.nodes))

		parent := int32(-1)
		var field uint16
		if len(parents) > 0 {
			parent = parents[len(parents)-1]
			if name := cursor.CurrentFieldName(); name != "" {
				field, _ = lang.FieldID(name)
			}
		}

		var flags uint8
		if n.IsNamed() {
			flags |= flagNamed
		}
		if n.IsMissing() {
			flags |= flagMissing
		}
		if n.IsExtra() {
			flags |= flagExtra
		}
		if n.HasError() {
			flags |= flagHasError
		}

		a.nodes = append(a.nodes, record{
			kind:      uint16(n.Symbol()),
			field:     field,
			flags:     flags,
			parent:    parent,
			startByte: n.StartByte(),
			endByte:   n.EndByte(),
			start:     pointFrom(n.StartPoint()),
			end:       pointFrom(n.EndPoint()),
		})

		if cursor.GoToFirstChild() {
			parents = append(parents, idx)
			continue
		}
		for !cursor.GoToNextSibling() {
			if !cursor.GoToParent() {
				a.layoutChildren()
				return a
			}
			parents = parents[:len(parents)-1]
		}
	}
}

// layoutChildren fills childStart/childCount/childIndex. Pre-order guarantees
// that siblings appear in source order.
func (a *arena) layoutChildren() {
	for i := range a.nodes {
		if p := a.nodes[i].parent; p >= 0 {
			a.nodes[p].childCount++
		}
	}

	var offset int32
	for i := range a.nodes {
		a.nodes[i].childStart = offset
		offset += a.nodes[i].childCount
	}

	a.kids = make([]int32, offset)
	filled := make([]int32, len(a.nodes))
	for i := range a.nodes {
		p := a.nodes[i].parent
		if p < 0 {
			continue
		}
		pos := filled[p]
		a.kids[a.nodes[p].childStart+pos] = int32(i)
		a.nodes[i].childIndex = pos
		filled[p]++
	}
}

// child returns the arena index of the i-th child of idx, or -1.
func (a *arena) child(idx int32, i int) int32 {
	r := &a.nodes[idx]
	if i < 0 || i >= int(r.childCount) {
		return -1
	}
	return a.kids[r.childStart+int32(i)]
}

// sibling returns the arena index of the sibling at offset delta from idx, or -1.
func (a *arena) sibling(idx int32, delta int) int32 {
	r := &a.nodes[idx]
	if r.parent < 0 {
		return -1
	}
	return a.child(r.parent, int(r.childIndex)+delta)
}

func (a *arena) named(idx int32) bool {
	return a.nodes[idx].flags&flagNamed != 0
}
