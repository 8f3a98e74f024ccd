package arbor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/jward/arbor/internal/runtime"
	"github.com/jward/arbor/internal/store"
	"github.com/jward/arbor/internal/syntax"
)

// Engine orchestrates indexing: file discovery, change detection, parsing,
// snapshot storage and the optional per-file script hook.
type Engine struct {
	store      *store.Store
	runtime    *runtime.Runtime
	registry   *syntax.Registry
	scriptsDir string
	scriptsFS  fs.FS
	fileScript string
	languages  map[string]bool // nil means all languages

	useParallel bool
	workers     int

	logger *slog.Logger
	meter  metric.MeterProvider

	// cache holds the last tree of every file indexed by this Engine so a
	// changed file can be re-parsed incrementally. nil disables it.
	cache *treeCache
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel parsing. When true (default), IndexFiles
// uses a worker pool for parsing, with the calling goroutine committing
// batches to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers sets the number of parallel parse workers. Values below one
// mean runtime.NumCPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithScriptsFS configures the Engine to load Risor scripts from the given
// filesystem instead of from disk. This enables embedding scripts via
// go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithScriptsDir sets the directory scripts and imports are loaded from.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithFileScript runs the script at path, relative to the scripts source,
// for every file IndexFiles stores. The script sees file_path, file_id and
// tree globals.
func WithFileScript(path string) Option {
	return func(e *Engine) {
		e.fileScript = path
	}
}

// WithRegistry replaces the built-in language registry.
func WithRegistry(reg *Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithTreeCache enables or disables the in-memory tree cache used for
// incremental re-parsing. Enabled by default.
func WithTreeCache(enabled bool) Option {
	return func(e *Engine) {
		if enabled {
			e.cache = newTreeCache()
		} else {
			e.cache = nil
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for parser
// metrics. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) {
		e.meter = mp
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("arbor: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("arbor: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		registry:    syntax.DefaultRegistry(),
		useParallel: true,
		logger:      slog.Default(),
		cache:       newTreeCache(),
	}
	for _, opt := range opts {
		opt(e)
	}

	// The Runtime needs the final script source and registry.
	rtOpts := []runtime.RuntimeOption{
		runtime.WithRegistry(e.registry),
		runtime.WithLogger(e.logger),
	}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	if e.meter != nil {
		rtOpts = append(rtOpts, runtime.WithMeterProvider(e.meter))
	}
	e.runtime = runtime.NewRuntime(s, e.scriptsDir, rtOpts...)

	return e, nil
}

// Close releases cached trees and the database.
func (e *Engine) Close() error {
	e.cache.close()
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Registry returns the languages the Engine recognises.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// RunScript executes a Risor script with the Engine's store attached.
// Trees and nodes in globals are exposed to the script without transferring
// ownership.
func (e *Engine) RunScript(ctx context.Context, path string, globals map[string]any) error {
	return e.runtime.RunScript(ctx, path, globals)
}

// NewParser returns a Parser that reports to the Engine's logger and meter.
func (e *Engine) NewParser() *Parser {
	return syntax.NewParser(e.parserOptions()...)
}

func (e *Engine) parserOptions() []syntax.ParserOption {
	opts := []syntax.ParserOption{syntax.WithLogger(e.logger)}
	if e.meter != nil {
		opts = append(opts, syntax.WithMeterProvider(e.meter))
	}
	return opts
}

// ParseFile parses path with the language its extension maps to. The caller
// owns the returned tree.
func (e *Engine) ParseFile(ctx context.Context, path string) (*Tree, error) {
	lang, ok := e.registry.ForFile(path)
	if !ok {
		return nil, fmt.Errorf("arbor: no language for %s", path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("arbor: read file: %w", err)
	}

	p := e.NewParser()
	defer p.Close()
	if err := p.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("arbor: %w", err)
	}
	return p.Parse(ctx, src, nil)
}

// scriptsHash computes a SHA-256 hash of all Risor scripts.
// Walks the scriptsFS or scriptsDir to find all .risor files, sorts them by path,
// and hashes their concatenated contents. Returns hex-encoded hash string.
func (e *Engine) scriptsHash() string {
	var paths []string

	if e.scriptsFS != nil {
		fs.WalkDir(e.scriptsFS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				paths = append(paths, path)
			}
			return nil
		})
	} else if e.scriptsDir != "" {
		filepath.WalkDir(e.scriptsDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				rel, _ := filepath.Rel(e.scriptsDir, path)
				paths = append(paths, rel)
			}
			return nil
		})
	}

	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		src, err := e.runtime.LoadScript(p)
		if err != nil {
			continue
		}
		h.Write([]byte(p))
		h.Write([]byte(src))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ScriptsChanged reports whether the scripts differ from those the file
// hook last ran with. Returns true if the DB has no stored hash. IndexFiles
// re-runs the hook on unchanged files when this is true.
func (e *Engine) ScriptsChanged() bool {
	current := e.scriptsHash()
	stored, err := e.store.GetMetadata("scripts_hash")
	if err != nil || stored == "" {
		return true
	}
	return current != stored
}

// storeScriptsHash persists the current scripts hash to the database.
func (e *Engine) storeScriptsHash() {
	if err := e.store.SetMetadata("scripts_hash", e.scriptsHash()); err != nil {
		e.logger.Warn("storing scripts hash", "error", err)
	}
}

// skipDirs are excluded from directory walks.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"target":       true,
}

// IndexDirectory walks root and indexes all files with supported extensions.
// If root is inside a git repository, uses git ls-files to respect .gitignore.
// Falls back to filesystem walk (skipping hidden dirs, node_modules, vendor,
// __pycache__, target) if git is unavailable.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.gitListFiles(ctx, root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking directory", "root", root, "error", err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	return e.IndexFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(ctx context.Context, root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := e.registry.LanguageNameForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := e.registry.LanguageNameForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// Forget drops path from the store and the tree cache.
func (e *Engine) Forget(path string) error {
	e.cache.drop(path)
	if err := e.store.DeleteFile(path); err != nil {
		return fmt.Errorf("arbor: forget %s: %w", path, err)
	}
	return nil
}

// elapsed rounds a duration for log output.
func elapsed(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
