package main_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the arbor binary and returns the path.
// The binary is placed in t.TempDir() so it's cleaned up automatically.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "arbor"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "arbor")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot returns the root of the project by walking up from the test
// file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createGoFixture creates a temporary directory with a .git dir and a Go file.
// Returns the temp directory path.
func createGoFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	// Create .git directory so findRepoRoot works.
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	goFile := filepath.Join(dir, "main.go")
	src := `package main

import "fmt"

func main() {
	fmt.Println("hello")
}

func helper() string {
	return "world"
}
`
	require.NoError(t, os.WriteFile(goFile, []byte(src), 0o644))
	return dir
}

// openDB opens the SQLite database at the given path for verification.
func openDB(t *testing.T, dbPath string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// fileCount returns the number of rows in the files table.
func fileCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM files").Scan(&count)
	require.NoError(t, err)
	return count
}

// fileCountForLanguage returns the number of files for a given language.
func fileCountForLanguage(t *testing.T, db *sql.DB, lang string) int {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM files WHERE language = ?", lang).Scan(&count)
	require.NoError(t, err)
	return count
}

// nodeCount returns the number of rows in the nodes table.
func nodeCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&count)
	require.NoError(t, err)
	return count
}

// run executes the binary in dir and returns its stdout and stderr.
func run(t *testing.T, bin, dir string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func TestIndex_CreatesDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)

	_, stderr, err := run(t, bin, fixture, "index", fixture)
	require.NoError(t, err, "index failed: %s", stderr)
	assert.Contains(t, stderr, "Indexed")
	assert.Contains(t, stderr, "Database:")

	dbPath := filepath.Join(fixture, ".arbor", "index.db")
	_, err = os.Stat(dbPath)
	require.NoError(t, err, ".arbor/index.db should exist")

	db := openDB(t, dbPath)
	assert.Equal(t, 1, fileCount(t, db), "should have indexed 1 Go file")
	assert.Greater(t, nodeCount(t, db), 0, "should have stored nodes")
}

func TestIndex_Force_ClearsAndReindexes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)
	dbPath := filepath.Join(fixture, ".arbor", "index.db")

	_, stderr, err := run(t, bin, fixture, "index", fixture)
	require.NoError(t, err, "first index failed: %s", stderr)

	db1 := openDB(t, dbPath)
	initialNodes := nodeCount(t, db1)
	db1.Close()

	require.NoError(t, os.WriteFile(filepath.Join(fixture, "extra.go"), []byte(`package main

func extra() int { return 42 }
`), 0o644))

	_, stderr, err = run(t, bin, fixture, "index", "--force", fixture)
	require.NoError(t, err, "force index failed: %s", stderr)
	assert.Contains(t, stderr, "Cleared database")

	db2 := openDB(t, dbPath)
	assert.Equal(t, 2, fileCount(t, db2), "should have 2 files after force reindex")
	assert.Greater(t, nodeCount(t, db2), initialNodes, "should have more nodes with extra file")
}

func TestIndex_LanguagesFilter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)

	require.NoError(t, os.WriteFile(filepath.Join(fixture, "script.py"), []byte(`def hello():
    print("hello")
`), 0o644))

	_, stderr, err := run(t, bin, fixture, "index", "--languages", "go", fixture)
	require.NoError(t, err, "index with --languages failed: %s", stderr)

	db := openDB(t, filepath.Join(fixture, ".arbor", "index.db"))
	assert.Equal(t, 1, fileCount(t, db), "should only have 1 file (Go)")
	assert.Equal(t, 1, fileCountForLanguage(t, db, "go"), "the file should be Go")
	assert.Equal(t, 0, fileCountForLanguage(t, db, "python"), "no Python files should be indexed")
}

func TestIndex_LanguagesFromEnv(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(fixture, "script.py"), []byte("x = 1\n"), 0o644))

	cmd := exec.Command(bin, "index", fixture)
	cmd.Dir = fixture
	cmd.Env = append(os.Environ(), "ARBOR_INDEX_LANGUAGES=python")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "index failed: %s", string(out))

	db := openDB(t, filepath.Join(fixture, ".arbor", "index.db"))
	assert.Equal(t, 1, fileCountForLanguage(t, db, "python"))
	assert.Equal(t, 0, fileCountForLanguage(t, db, "go"))
}

func TestIndex_CustomDBPath(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)

	customDB := filepath.Join(t.TempDir(), "custom.db")

	_, stderr, err := run(t, bin, fixture, "index", "--db", customDB, fixture)
	require.NoError(t, err, "index with --db failed: %s", stderr)

	_, err = os.Stat(customDB)
	require.NoError(t, err, "custom DB should exist at %s", customDB)

	_, err = os.Stat(filepath.Join(fixture, ".arbor", "index.db"))
	assert.True(t, os.IsNotExist(err), ".arbor/index.db should not be created when --db is set")
}

func TestIndex_ConfigFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(fixture, ".arbor.yaml"), []byte("db: from-config.db\n"), 0o644))

	_, stderr, err := run(t, bin, fixture, "index", fixture)
	require.NoError(t, err, "index failed: %s", stderr)

	_, err = os.Stat(filepath.Join(fixture, "from-config.db"))
	require.NoError(t, err, "db path should come from .arbor.yaml")
}

func TestIndex_NonExistentDirectory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)

	_, stderr, err := run(t, bin, t.TempDir(), "index", "/nonexistent/path/that/does/not/exist")
	require.Error(t, err, "should fail for non-existent directory")
	assert.Contains(t, stderr, "not found", "error should mention 'not found'")
}

func TestIndex_IncrementalSkip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)
	dbPath := filepath.Join(fixture, ".arbor", "index.db")

	_, stderr, err := run(t, bin, fixture, "index", fixture)
	require.NoError(t, err, "first index failed: %s", stderr)

	db1 := openDB(t, dbPath)
	firstNodes := nodeCount(t, db1)
	firstFiles := fileCount(t, db1)
	db1.Close()
	require.Greater(t, firstNodes, 0, "first index should produce nodes")

	_, stderr, err = run(t, bin, fixture, "index", fixture)
	require.NoError(t, err, "second index failed: %s", stderr)

	db2 := openDB(t, dbPath)
	assert.Equal(t, firstFiles, fileCount(t, db2), "file count should be the same after re-index")
	assert.Equal(t, firstNodes, nodeCount(t, db2), "node count should be the same after re-index")
}

// result mirrors the CLI JSON envelope.
type result struct {
	Command string          `json:"command"`
	Results json.RawMessage `json:"results"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, stdout string) result {
	t.Helper()
	var r result
	require.NoError(t, json.Unmarshal([]byte(stdout), &r), stdout)
	return r
}

func TestQuery_AfterIndex(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)
	mainGo := filepath.Join(fixture, "main.go")

	_, stderr, err := run(t, bin, fixture, "index", fixture)
	require.NoError(t, err, "index failed: %s", stderr)

	t.Run("files", func(t *testing.T) {
		stdout, stderr, err := run(t, bin, fixture, "query", "files")
		require.NoError(t, err, stderr)
		r := decode(t, stdout)
		var files []struct {
			Path     string `json:"path"`
			Language string `json:"language"`
			HasError bool   `json:"has_error"`
		}
		require.NoError(t, json.Unmarshal(r.Results, &files))
		require.Len(t, files, 1)
		assert.Equal(t, mainGo, files[0].Path)
		assert.Equal(t, "go", files[0].Language)
		assert.False(t, files[0].HasError)
	})

	t.Run("node-at", func(t *testing.T) {
		// "helper" on line 8: func helper() string {
		stdout, stderr, err := run(t, bin, fixture, "query", "node-at", "main.go", "8", "6")
		require.NoError(t, err, stderr)
		var chain []struct {
			Kind  string `json:"kind"`
			Field string `json:"field"`
		}
		require.NoError(t, json.Unmarshal(decode(t, stdout).Results, &chain))
		require.Len(t, chain, 3)
		assert.Equal(t, "identifier", chain[0].Kind)
		assert.Equal(t, "name", chain[0].Field)
		assert.Equal(t, "function_declaration", chain[1].Kind)
		assert.Equal(t, "source_file", chain[2].Kind)
	})

	t.Run("kinds text", func(t *testing.T) {
		stdout, stderr, err := run(t, bin, fixture, "--format", "text", "query", "kinds", "main.go")
		require.NoError(t, err, stderr)
		assert.Contains(t, stdout, "KIND")
		assert.Contains(t, stdout, "function_declaration")
	})
}

func TestQuery_NoDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := t.TempDir()

	stdout, _, err := run(t, bin, dir, "query", "files")
	require.Error(t, err)
	assert.Contains(t, decode(t, stdout).Error, "database not found")
}

func TestParse_JSONAndText(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)

	stdout, stderr, err := run(t, bin, fixture, "parse", "main.go")
	require.NoError(t, err, stderr)
	var tree struct {
		Language  string `json:"language"`
		NodeCount int    `json:"node_count"`
		Root      struct {
			Kind     string `json:"kind"`
			Children []struct {
				Kind  string `json:"kind"`
				Named bool   `json:"named"`
			} `json:"children"`
		} `json:"root"`
	}
	require.NoError(t, json.Unmarshal(decode(t, stdout).Results, &tree))
	assert.Equal(t, "go", tree.Language)
	assert.Equal(t, "source_file", tree.Root.Kind)
	var named []string
	for _, c := range tree.Root.Children {
		if c.Named {
			named = append(named, c.Kind)
		}
	}
	assert.Equal(t, []string{"package_clause", "import_declaration", "function_declaration", "function_declaration"}, named)

	stdout, stderr, err = run(t, bin, fixture, "--format", "text", "parse", "main.go")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "(source_file (package_clause")

	stdout, _, err = run(t, bin, fixture, "parse", "README")
	require.Error(t, err)
	assert.Contains(t, decode(t, stdout).Error, "no language")
}

func TestWalk_Text(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)

	stdout, stderr, err := run(t, bin, fixture, "--format", "text", "walk", "main.go")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, `name: identifier [8:5 - 8:11] "helper"`)
}

func TestRun_ScriptWithFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)
	script := filepath.Join(fixture, "check.risor")
	require.NoError(t, os.WriteFile(script, []byte(`
root := tree.root_node()
assert(root.kind() == "source_file")
assert(root.named_child_count() == 4)
log.error("checked", file_path)
`), 0o644))

	_, stderr, err := run(t, bin, fixture, "run", "check.risor", "main.go")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "checked")

	_, _, err = run(t, bin, fixture, "run", "missing.risor")
	require.Error(t, err)
}

func TestLanguages(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)

	stdout, stderr, err := run(t, bin, t.TempDir(), "languages")
	require.NoError(t, err, stderr)
	var langs []struct {
		Name      string `json:"name"`
		KindCount int    `json:"kind_count"`
	}
	require.NoError(t, json.Unmarshal(decode(t, stdout).Results, &langs))
	names := map[string]bool{}
	for _, l := range langs {
		names[l.Name] = true
		assert.Greater(t, l.KindCount, 0, l.Name)
	}
	assert.True(t, names["go"])
	assert.True(t, names["python"])
}
