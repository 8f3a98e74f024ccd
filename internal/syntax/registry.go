package syntax

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Grammar describes one registry entry.
type Grammar struct {
	Name       string
	Extensions []string
	Load       func() *sitter.Language
}

// Registry is a read-only table of languages. It is fully built by
// NewRegistry and never mutated afterwards, so lookups need no locking.
type Registry struct {
	langs map[string]*Language
	exts  map[string]string
}

// NewRegistry builds a registry from the given grammars. Extensions are
// matched case-insensitively; a later grammar claiming the same extension wins.
func NewRegistry(grammars ...Grammar) (*Registry, error) {
	r := &Registry{
		langs: make(map[string]*Language, len(grammars)),
		exts:  make(map[string]string),
	}
	for _, g := range grammars {
		if _, dup := r.langs[g.Name]; dup {
			return nil, fmt.Errorf("syntax: duplicate language %q", g.Name)
		}
		lang, err := NewLanguage(g.Name, g.Load())
		if err != nil {
			return nil, err
		}
		r.langs[g.Name] = lang
		for _, ext := range g.Extensions {
			r.exts[strings.ToLower(ext)] = g.Name
		}
	}
	return r, nil
}

// builtinGrammars lists the grammars compiled into the binary.
var builtinGrammars = []Grammar{
	{Name: "go", Extensions: []string{".go"}, Load: golang.GetLanguage},
	{Name: "typescript", Extensions: []string{".ts", ".mts", ".cts"}, Load: ts.GetLanguage},
	{Name: "tsx", Extensions: []string{".tsx"}, Load: tsx.GetLanguage},
	{Name: "javascript", Extensions: []string{".js", ".jsx", ".mjs", ".cjs"}, Load: javascript.GetLanguage},
	{Name: "python", Extensions: []string{".py", ".pyi"}, Load: python.GetLanguage},
	{Name: "rust", Extensions: []string{".rs"}, Load: rust.GetLanguage},
	{Name: "c", Extensions: []string{".c", ".h"}, Load: c.GetLanguage},
	{Name: "cpp", Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"}, Load: cpp.GetLanguage},
	{Name: "java", Extensions: []string{".java"}, Load: java.GetLanguage},
	{Name: "php", Extensions: []string{".php"}, Load: php.GetLanguage},
	{Name: "ruby", Extensions: []string{".rb"}, Load: ruby.GetLanguage},
}

// Lazily initialized on first call via sync.Once.
var (
	defaultRegistry *Registry
	registryOnce    sync.Once
)

// DefaultRegistry returns the process-wide registry of built-in grammars.
func DefaultRegistry() *Registry {
	registryOnce.Do(func() {
		r, err := NewRegistry(builtinGrammars...)
		if err != nil {
			// Built-in grammars are fixed at compile time.
			panic(fmt.Sprintf("syntax: building default registry: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Lookup returns the language registered under name.
func (r *Registry) Lookup(name string) (*Language, bool) {
	l, ok := r.langs[name]
	return l, ok
}

// Names returns the registered language names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.langs))
	for name := range r.langs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Languages returns a copy of the name → Language table.
func (r *Registry) Languages() map[string]*Language {
	out := make(map[string]*Language, len(r.langs))
	for k, v := range r.langs {
		out[k] = v
	}
	return out
}

// LanguageNameForFile returns the language name for a file path based on its
// extension. Returns ("", false) if the extension is not recognized.
func (r *Registry) LanguageNameForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	name, ok := r.exts[ext]
	return name, ok
}

// ForFile returns the language for a file path based on its extension.
func (r *Registry) ForFile(path string) (*Language, bool) {
	name, ok := r.LanguageNameForFile(path)
	if !ok {
		return nil, false
	}
	return r.Lookup(name)
}
