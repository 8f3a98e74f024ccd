package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_Null(t *testing.T) {
	t.Parallel()

	var n Node
	assert.True(t, n.IsNull())
	assert.Equal(t, uint64(0), n.ID())
	assert.Equal(t, "", n.Kind())
	assert.Nil(t, n.Language())
	assert.True(t, n.Parent().IsNull())
	assert.True(t, n.Child(0).IsNull())
	assert.Nil(t, n.Walk())
	assert.True(t, n.Equal(Node{}))
}

func TestNode_Navigation(t *testing.T) {
	t.Parallel()

	p := newPythonParser(t)
	tree := mustParse(t, p, pythonSource)
	defer tree.Close()

	root := tree.RootNode()
	assert.Same(t, tree.Language(), root.Language())
	assert.True(t, root.Parent().IsNull())
	assert.Equal(t, 3, root.NamedChildCount())

	imp := root.NamedChild(0)
	assert.Equal(t, "import_statement", imp.Kind())
	assert.Equal(t, "import os", imp.Text())
	assert.Equal(t, Point{Row: 0, Column: 0}, imp.StartPoint())
	assert.Equal(t, Point{Row: 0, Column: 9}, imp.EndPoint())

	fn := imp.NextNamedSibling()
	require.Equal(t, "function_definition", fn.Kind())
	assert.True(t, fn.PrevNamedSibling().Equal(imp))

	name := fn.ChildByFieldName("name")
	assert.Equal(t, "greet", name.Text())
	assert.Equal(t, "name", name.FieldName())
	assert.True(t, name.Parent().Equal(fn))
	assert.True(t, fn.ChildByFieldName("nonexistent").IsNull())

	body := fn.ChildByFieldName("body")
	assert.Equal(t, "block", body.Kind())

	cls := fn.NextNamedSibling()
	assert.Equal(t, "class_definition", cls.Kind())
	assert.True(t, cls.NextNamedSibling().IsNull())
	assert.True(t, root.NamedChild(3).IsNull())
	assert.True(t, root.Child(-1).IsNull())
}

func TestNode_IDs(t *testing.T) {
	t.Parallel()

	p := newPythonParser(t)
	tree := mustParse(t, p, "x = 1")
	defer tree.Close()

	root := tree.RootNode()
	again := tree.RootNode()
	assert.Equal(t, root.ID(), again.ID())

	seen := map[uint64]bool{}
	c := tree.Walk()
	defer c.Close()
	for {
		id := c.Node().ID()
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
		if c.GotoFirstChild() {
			continue
		}
		for !c.GotoNextSibling() {
			if !c.GotoParent() {
				assert.Len(t, seen, tree.NodeCount())
				return
			}
		}
	}
}

func TestNode_DescendantForByteRange(t *testing.T) {
	t.Parallel()

	p := newPythonParser(t)
	tree := mustParse(t, p, "x = 1\ny = 22\n")
	defer tree.Close()

	n := tree.RootNode().DescendantForByteRange(10, 11)
	assert.Equal(t, "integer", n.Kind())
	assert.Equal(t, "22", n.Text())

	assert.True(t, tree.RootNode().Child(0).DescendantForByteRange(10, 11).IsNull())
}

func TestNode_Errors(t *testing.T) {
	t.Parallel()

	p := newPythonParser(t)
	tree := mustParse(t, p, "x = (1\n")
	defer tree.Close()

	assert.True(t, tree.HasError())

	var sawProblem bool
	c := tree.Walk()
	defer c.Close()
	for {
		n := c.Node()
		if n.IsError() || n.IsMissing() {
			sawProblem = true
		}
		if c.GotoFirstChild() {
			continue
		}
		done := false
		for !c.GotoNextSibling() {
			if !c.GotoParent() {
				done = true
				break
			}
		}
		if done {
			break
		}
	}
	assert.True(t, sawProblem)
}

func TestNode_Extra(t *testing.T) {
	t.Parallel()

	p := newPythonParser(t)
	tree := mustParse(t, p, "# note\nx = 1\n")
	defer tree.Close()

	comment := tree.RootNode().Child(0)
	assert.Equal(t, "comment", comment.Kind())
	assert.True(t, comment.IsExtra())
	assert.False(t, tree.RootNode().Child(1).IsExtra())
}
