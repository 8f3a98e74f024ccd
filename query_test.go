package arbor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor/internal/store"
)

func newTestQueryBuilder(t *testing.T) (*QueryBuilder, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return NewQueryBuilder(s), s
}

func parseString(t *testing.T, lang, src string) *Tree {
	t.Helper()
	l, ok := DefaultRegistry().Lookup(lang)
	require.True(t, ok, lang)
	p := NewParser()
	defer p.Close()
	require.NoError(t, p.SetLanguage(l))
	tree, err := p.Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func seed(t *testing.T, s *store.Store, path, lang, src string) *File {
	t.Helper()
	f, err := s.ReplaceSnapshot(path, parseString(t, lang, src))
	require.NoError(t, err)
	return f
}

func TestQuery_File(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seed(t, s, "/a.py", "python", "x = 1\n")

	f, err := q.File("/a.py")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "python", f.Language)
	assert.Equal(t, 6, f.NodeCount)

	f, err = q.File("/missing.py")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestQuery_FilesWithErrors(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seed(t, s, "/ok.py", "python", "x = 1\n")
	seed(t, s, "/bad.py", "python", "def (:\n")

	all, err := q.Files()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	broken, err := q.FilesWithErrors()
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.Equal(t, "/bad.py", broken[0].Path)
	assert.True(t, broken[0].HasError)
}

func TestQuery_NodeAt_ReturnsDeepestNode(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seed(t, s, "/main.go", "go", "package main\n\nfunc Run() {}\n")

	n, err := q.NodeAt("/main.go", 2, 6)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "identifier", n.Kind)
	assert.Equal(t, "name", n.Field)
	assert.Equal(t, 2, n.StartLine)
	assert.Equal(t, 5, n.StartCol)

	ancestors, err := q.Ancestors(n)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, "function_declaration", ancestors[0].Kind)
	assert.Equal(t, "source_file", ancestors[1].Kind)
}

func TestQuery_NodeAt_NoFile(t *testing.T) {
	q, _ := newTestQueryBuilder(t)

	n, err := q.NodeAt("/nonexistent.go", 1, 0)
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestQuery_NodeAt_OutOfRange(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seed(t, s, "/a.py", "python", "x = 1\n")

	n, err := q.NodeAt("/a.py", 50, 0)
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestQuery_Nodes_PreOrder(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seed(t, s, "/a.py", "python", "x = 1\n")

	nodes, err := q.Nodes("/a.py")
	require.NoError(t, err)
	kinds := make([]string, len(nodes))
	for i, n := range nodes {
		kinds[i] = n.Kind
		assert.Equal(t, i, n.Ordinal)
	}
	assert.Equal(t, []string{"module", "expression_statement", "assignment", "identifier", "=", "integer"}, kinds)
	assert.Equal(t, -1, nodes[0].Parent)
	assert.Equal(t, 2, nodes[5].Parent)

	nodes, err = q.Nodes("/missing.py")
	require.NoError(t, err)
	assert.Nil(t, nodes)
}

func TestQuery_KindCounts(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seed(t, s, "/a.py", "python", "x = 1\n")
	seed(t, s, "/b.py", "python", "y = 2\nz = 3\n")

	tally := func(counts []KindCount) map[string]int {
		m := map[string]int{}
		for _, kc := range counts {
			m[kc.Kind] = kc.Count
		}
		return m
	}

	all, err := q.KindCounts()
	require.NoError(t, err)
	assert.Equal(t, 3, tally(all)["identifier"])

	one, err := q.KindCounts("/b.py")
	require.NoError(t, err)
	assert.Equal(t, 2, tally(one)["integer"])

	none, err := q.KindCounts("/missing.py")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQuery_NodesByKind(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seed(t, s, "/a.py", "python", "x = 1\n")
	seed(t, s, "/b.py", "python", "def f():\n    return 2\n")

	locs, err := q.NodesByKind("integer")
	require.NoError(t, err)
	require.Len(t, locs, 2)

	byFile := map[string]Location{}
	for _, l := range locs {
		byFile[l.File] = l
	}
	assert.Equal(t, Location{File: "/a.py", StartLine: 0, StartCol: 4, EndLine: 0, EndCol: 5}, byFile["/a.py"])
	assert.Equal(t, Location{File: "/b.py", StartLine: 1, StartCol: 11, EndLine: 1, EndCol: 12}, byFile["/b.py"])
}

func TestQuery_ReplaceSnapshotDropsOldRows(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seed(t, s, "/a.py", "python", "x = 1\ny = 2\n")
	seed(t, s, "/a.py", "python", "x = 1\n")

	nodes, err := q.Nodes("/a.py")
	require.NoError(t, err)
	assert.Len(t, nodes, 6)

	files, err := q.Files()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
