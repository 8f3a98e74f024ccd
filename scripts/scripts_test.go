package scripts_test

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor/internal/runtime"
	"github.com/jward/arbor/internal/syntax"
	"github.com/jward/arbor/scripts"
)

type testEnv struct {
	t   *testing.T
	rt  *runtime.Runtime
	log *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &testEnv{
		t:   t,
		rt:  runtime.NewRuntime(nil, "", runtime.WithRuntimeFS(scripts.FS), runtime.WithLogger(logger)),
		log: &buf,
	}
}

func (e *testEnv) parse(lang, src string) *syntax.Tree {
	e.t.Helper()
	l, ok := syntax.DefaultRegistry().Lookup(lang)
	require.True(e.t, ok)
	p := syntax.NewParser()
	defer p.Close()
	require.NoError(e.t, p.SetLanguage(l))
	tree, err := p.Parse(context.Background(), []byte(src), nil)
	require.NoError(e.t, err)
	e.t.Cleanup(tree.Close)
	return tree
}

func TestFS_ContainsScripts(t *testing.T) {
	for _, path := range []string{"walk.risor", scripts.SummaryHook} {
		_, err := fs.Stat(scripts.FS, path)
		assert.NoError(t, err, path)
	}
}

func TestWalk_CountKinds(t *testing.T) {
	env := newTestEnv(t)
	err := env.rt.RunSource(context.Background(), `
import walk

counts := walk.count_kinds(tree.root_node())
assert(counts["identifier"] == 3, "expected three identifiers")
assert(counts["module"] == 1)
assert(counts.get("=", 0) == 0, "anonymous nodes are not counted")
`, map[string]any{"tree": env.parse("python", "x = 1\ny = x\n")})
	require.NoError(t, err)
}

func TestWalk_Fields(t *testing.T) {
	env := newTestEnv(t)
	tree := env.parse("python", "x = 1")
	assign := tree.RootNode().Child(0).Child(0)
	require.Equal(t, "assignment", assign.Kind())

	err := env.rt.RunSource(context.Background(), `
import walk

got := walk.fields(node)
assert(len(got) == 2)
assert(got[0] == "left: identifier", got[0])
assert(got[1] == "right: integer", got[1])
`, map[string]any{"node": assign})
	require.NoError(t, err)
}

func TestWalk_Problems(t *testing.T) {
	env := newTestEnv(t)
	err := env.rt.RunSource(context.Background(), `
import walk

assert(len(walk.problems(clean.root_node())) == 0)
assert(len(walk.problems(broken.root_node())) > 0)
`, map[string]any{
		"clean":  env.parse("python", "x = 1\n"),
		"broken": env.parse("python", "def (:\n"),
	})
	require.NoError(t, err)
}

func TestSummaryHook_ReportsSyntaxErrors(t *testing.T) {
	env := newTestEnv(t)
	tree := env.parse("go", "package main\n\nfunc main( {\n")

	err := env.rt.RunScript(context.Background(), scripts.SummaryHook, map[string]any{
		"file_path": "main.go",
		"file_id":   int64(1),
		"tree":      tree,
	})
	require.NoError(t, err)

	out := env.log.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "main.go")
	assert.False(t, tree.Closed(), "hook must not close the host tree")
}

func TestSummaryHook_CleanFile(t *testing.T) {
	env := newTestEnv(t)
	err := env.rt.RunScript(context.Background(), scripts.SummaryHook, map[string]any{
		"file_path": "main.go",
		"file_id":   int64(1),
		"tree":      env.parse("go", "package main\n"),
	})
	require.NoError(t, err)

	out := env.log.String()
	assert.NotContains(t, out, "level=WARN")
	assert.Contains(t, out, "level=DEBUG")
}
