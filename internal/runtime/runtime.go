package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"go.opentelemetry.io/otel/metric"

	"github.com/jward/arbor/internal/store"
	"github.com/jward/arbor/internal/syntax"
)

// Runtime embeds a Risor VM and exposes the syntax API, plus Store access
// when one is attached, to scripts.
type Runtime struct {
	store      *store.Store
	scriptsDir string
	fsys       fs.FS
	registry   *syntax.Registry
	logger     *slog.Logger
	meter      metric.MeterProvider
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRegistry replaces the default language registry.
func WithRegistry(reg *syntax.Registry) RuntimeOption {
	return func(r *Runtime) {
		r.registry = reg
	}
}

// WithLogger sets the logger used by the script "log" global and by
// parsers scripts create.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithMeterProvider sets the meter provider handed to script parsers.
func WithMeterProvider(mp metric.MeterProvider) RuntimeOption {
	return func(r *Runtime) {
		r.meter = mp
	}
}

// NewRuntime creates a Runtime wired to the given Store and scripts directory.
// The store may be nil, in which case the store globals are omitted.
func NewRuntime(s *store.Store, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:      s,
		scriptsDir: scriptsDir,
		registry:   syntax.DefaultRegistry(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the language registry scripts see.
func (r *Runtime) Registry() *syntax.Registry { return r.registry }

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

// Eval runs source and returns the value of its last expression converted
// to a Go value. Trees and cursors the script created are already closed
// when Eval returns.
func (r *Runtime) Eval(ctx context.Context, source string, extraGlobals map[string]any) (any, error) {
	var result any
	err := r.evalWith(ctx, source, "<inline>", extraGlobals, func(obj object.Object) {
		result = obj.Interface()
	})
	return result, err
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	return r.evalWith(ctx, source, label, extraGlobals, nil)
}

// evalWith runs one evaluation. Objects the script creates are owned by a
// fresh scope and released when it returns; onResult sees the final value
// before that happens.
func (r *Runtime) evalWith(ctx context.Context, source, label string, extraGlobals map[string]any, onResult func(object.Object)) error {
	scope := newEvalScope()
	defer scope.release()

	e := &env{
		scope:      scope,
		registry:   r.registry,
		parserOpts: r.parserOptions(),
	}
	globals := r.buildGlobals(e, label, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	if onResult != nil {
		onResult(result)
	}
	return nil
}

func (r *Runtime) parserOptions() []syntax.ParserOption {
	opts := []syntax.ParserOption{syntax.WithLogger(r.logger)}
	if r.meter != nil {
		opts = append(opts, syntax.WithMeterProvider(r.meter))
	}
	return opts
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		// fs.FS paths are always relative ("/hooks/x.risor" -> "hooks/x.risor").
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(e *env, label string, extra map[string]any) map[string]any {
	globals := map[string]any{
		"languages":  makeLanguagesMap(e),
		"language":   makeLanguageFn(e),
		"Parser":     makeParserFn(e),
		"parse":      makeParseFn(e),
		"parse_src":  makeParseSrcFn(e),
		"node_text":  makeNodeTextFn(),
		"node_child": makeNodeChildFn(e),
		"log":        makeLogModule(r.logger, label),
	}

	// Store globals are omitted when no store is attached.
	if r.store != nil {
		globals["save_tree"] = makeSaveTreeFn(r.store)
		globals["kind_counts"] = makeKindCountsFn(r.store)
		globals["files"] = makeFilesFn(r.store)
		globals["node_at"] = makeNodeAtFn(r.store)
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = wrapHostValue(e, v)
	}
	return globals
}

// wrapHostValue converts syntax values handed in by the host into script
// objects. The host keeps ownership, so nothing is tracked in the scope.
func wrapHostValue(e *env, v any) any {
	switch val := v.(type) {
	case *syntax.Tree:
		return e.wrapTree(val, false)
	case syntax.Node:
		return e.wrapNode(val)
	case *syntax.Language:
		return e.wrapLanguage(val)
	default:
		return v
	}
}
