package syntax

// TreeCursor is a stateful navigator over a tree. It holds its own reference
// to the tree, released by Close.
//
// A TreeCursor must not be used by more than one goroutine at a time. The
// tree it walks may be shared freely; goroutines that need to traverse
// concurrently should each create their own cursor.
type TreeCursor struct {
	core    *treeCore
	counted bool
	closed  bool
	root    int32 // the cursor never moves above this node
	cur     int32
	pin     *pin // handed to Nodes returned by Node, created lazily
}

func newTreeCursor(core *treeCore, idx int32) *TreeCursor {
	return &TreeCursor{
		core:    core,
		counted: core.tryAcquire(),
		root:    idx,
		cur:     idx,
	}
}

func (c *TreeCursor) arena() *arena { return c.core.arena }

// Node returns the node at the current position.
func (c *TreeCursor) Node() Node {
	if c.closed {
		return Node{}
	}
	if c.pin == nil {
		c.pin = newPin(c.core)
	}
	return Node{pin: c.pin, idx: c.cur}
}

// FieldID returns the field id of the current node within its parent. The
// node the cursor started on has no field.
func (c *TreeCursor) FieldID() (uint16, bool) {
	if c.closed || c.cur == c.root {
		return 0, false
	}
	id := c.arena().nodes[c.cur].field
	return id, id != 0
}

// FieldName returns the field name of the current node within its parent.
func (c *TreeCursor) FieldName() (string, bool) {
	id, ok := c.FieldID()
	if !ok {
		return "", false
	}
	return c.core.lang.FieldName(id), true
}

// Depth returns how far the cursor is below the node it started on.
func (c *TreeCursor) Depth() int {
	if c.closed {
		return 0
	}
	a := c.arena()
	depth := 0
	for idx := c.cur; idx != c.root; idx = a.nodes[idx].parent {
		depth++
	}
	return depth
}

func (c *TreeCursor) moveTo(idx int32) bool {
	if idx < 0 {
		return false
	}
	c.cur = idx
	return true
}

// GotoParent moves to the parent. Returns false at the starting node.
func (c *TreeCursor) GotoParent() bool {
	if c.closed || c.cur == c.root {
		return false
	}
	return c.moveTo(c.arena().nodes[c.cur].parent)
}

// GotoFirstChild moves to the first child. Returns false on a leaf.
func (c *TreeCursor) GotoFirstChild() bool {
	if c.closed {
		return false
	}
	return c.moveTo(c.arena().child(c.cur, 0))
}

// GotoLastChild moves to the last child. Returns false on a leaf.
func (c *TreeCursor) GotoLastChild() bool {
	if c.closed {
		return false
	}
	return c.moveTo(c.arena().child(c.cur, int(c.arena().nodes[c.cur].childCount)-1))
}

// GotoNextSibling moves to the next sibling. Returns false at the last
// sibling or at the starting node.
func (c *TreeCursor) GotoNextSibling() bool {
	if c.closed || c.cur == c.root {
		return false
	}
	return c.moveTo(c.arena().sibling(c.cur, 1))
}

// GotoPrevSibling moves to the previous sibling. Returns false at the first
// sibling or at the starting node.
func (c *TreeCursor) GotoPrevSibling() bool {
	if c.closed || c.cur == c.root {
		return false
	}
	return c.moveTo(c.arena().sibling(c.cur, -1))
}

// GotoFirstChildForByte moves to the first child that extends beyond the
// given byte offset and returns its index, or -1 if there is none.
func (c *TreeCursor) GotoFirstChildForByte(b uint32) int {
	if c.closed {
		return -1
	}
	a := c.arena()
	for i := range int(a.nodes[c.cur].childCount) {
		kid := a.child(c.cur, i)
		if a.nodes[kid].endByte > b {
			c.cur = kid
			return i
		}
	}
	return -1
}

// Reset repositions the cursor at n, which becomes its new starting node.
// n may belong to a different tree.
func (c *TreeCursor) Reset(n Node) {
	if c.closed || n.IsNull() {
		return
	}
	if core := n.pin.core; core != c.core {
		counted := core.tryAcquire()
		if c.counted {
			c.core.release()
		}
		c.core, c.counted = core, counted
	}
	c.pin = n.pin
	c.root, c.cur = n.idx, n.idx
}

// Copy returns an independent cursor at the same position with the same
// starting node.
func (c *TreeCursor) Copy() *TreeCursor {
	if c.closed {
		return &TreeCursor{core: c.core, closed: true, root: c.root, cur: c.cur}
	}
	cp := newTreeCursor(c.core, c.root)
	cp.cur = c.cur
	cp.pin = c.pin
	return cp
}

// Close releases the cursor's reference to the tree. It is safe to call more
// than once.
func (c *TreeCursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.pin = nil
	if c.counted {
		c.counted = false
		c.core.release()
	}
}
