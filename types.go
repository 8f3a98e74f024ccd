package arbor

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/jward/arbor/internal/store"
	"github.com/jward/arbor/internal/syntax"
)

// Public type aliases for the internal syntax and store types. These are Go
// type aliases (=), identical to the internal types at compile time, so
// external consumers use these names with no conversion.

type (
	Language                  = syntax.Language
	Registry                  = syntax.Registry
	Grammar                   = syntax.Grammar
	Parser                    = syntax.Parser
	ParserOption              = syntax.ParserOption
	Tree                      = syntax.Tree
	Node                      = syntax.Node
	TreeCursor                = syntax.TreeCursor
	Point                     = syntax.Point
	IncompatibleLanguageError = syntax.IncompatibleLanguageError
)

type (
	Store     = store.Store
	File      = store.File
	NodeRow   = store.NodeRow
	KindCount = store.KindCount
)

// Errors reported by Parser and Tree operations.
var (
	ErrNoLanguage           = syntax.ErrNoLanguage
	ErrIncompatibleLanguage = syntax.ErrIncompatibleLanguage
	ErrTreeClosed           = syntax.ErrTreeClosed
	ErrLanguageMismatch     = syntax.ErrLanguageMismatch
)

// NewParser creates a Parser with no language set.
func NewParser(opts ...ParserOption) *Parser { return syntax.NewParser(opts...) }

// DefaultRegistry returns the registry of built-in grammars.
func DefaultRegistry() *Registry { return syntax.DefaultRegistry() }

// NewRegistry builds a registry from custom grammars.
func NewRegistry(grammars ...Grammar) (*Registry, error) { return syntax.NewRegistry(grammars...) }

// WithParserLogger sets the logger a Parser reports to.
func WithParserLogger(logger *slog.Logger) ParserOption { return syntax.WithLogger(logger) }

// WithParserMeterProvider sets the OpenTelemetry meter provider a Parser
// records parse metrics with.
func WithParserMeterProvider(mp metric.MeterProvider) ParserOption {
	return syntax.WithMeterProvider(mp)
}
