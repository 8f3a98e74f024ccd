package syntax

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	sitter "github.com/smacker/go-tree-sitter"
	"go.opentelemetry.io/otel/metric"
)

// Parser produces Trees from source text. It holds at most one language.
//
// A Parser is not safe for concurrent use; goroutines that parse in parallel
// should each own a Parser. The Trees it returns have no such restriction.
type Parser struct {
	raw    *sitter.Parser
	lang   *Language
	logger *slog.Logger
	mp     metric.MeterProvider
	inst   *instruments
	dmp    *diffmatchpatch.DiffMatchPatch
}

var errNoTree = errors.New("engine returned no tree")

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithMeterProvider sets the OTel meter provider for parse and tree metrics.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) ParserOption {
	return func(p *Parser) {
		p.mp = mp
	}
}

// NewParser returns a Parser with no language set.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		raw:    sitter.NewParser(),
		logger: slog.Default(),
		dmp:    diffmatchpatch.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.inst = newInstruments(p.mp, p.logger)
	return p
}

// SetLanguage binds the grammar used by subsequent parses, replacing any
// previous one. A grammar the engine cannot load is rejected with an
// *IncompatibleLanguageError and the previous binding is kept.
func (p *Parser) SetLanguage(l *Language) error {
	if l == nil || !l.Compatible() {
		err := newIncompatibleLanguageError(l)
		p.logger.Warn("rejected language", "error", err)
		return err
	}
	p.raw.SetLanguage(l.raw)
	p.lang = l
	return nil
}

// Language returns the bound language, or nil.
func (p *Parser) Language() *Language { return p.lang }

// Parse parses text under the bound language. If old is non-nil the engine
// reuses the unchanged parts of it; the caller is responsible for old
// describing the same document. old is not modified.
//
// Malformed input is not an error: the tree contains ERROR and MISSING nodes.
// Parse returns ErrNoLanguage when no language is set and the context error
// when ctx is cancelled mid-parse.
func (p *Parser) Parse(ctx context.Context, text []byte, old *Tree) (*Tree, error) {
	if p.lang == nil {
		return nil, ErrNoLanguage
	}
	if old == nil {
		return p.run(ctx, text, nil)
	}
	if err := p.checkOld(old); err != nil {
		return nil, err
	}

	old.core.mu.RLock()
	defer old.core.mu.RUnlock()
	if old.core.raw == nil {
		return nil, ErrTreeClosed
	}
	return p.run(ctx, text, old.core.raw)
}

// Reparse parses text incrementally against old, which must have been parsed
// from an earlier version of the same document. The changed region is derived
// from the two texts, so callers do not need to track edits themselves.
//
// The edit is applied to the engine tree old shares with its clones, so
// afterwards that engine state describes text and a later Parse or Reparse
// against old must pass text or a newer version of it. Nodes and cursors of
// old read from its own snapshot and are unaffected.
func (p *Parser) Reparse(ctx context.Context, old *Tree, text []byte) (*Tree, error) {
	if p.lang == nil {
		return nil, ErrNoLanguage
	}
	if old == nil {
		return p.run(ctx, text, nil)
	}
	if err := p.checkOld(old); err != nil {
		return nil, err
	}

	core := old.core
	core.mu.Lock()
	defer core.mu.Unlock()
	if core.raw == nil {
		return nil, ErrTreeClosed
	}
	if edit, changed := diffEdit(p.dmp, core.editSrc, text); changed {
		core.raw.Edit(edit)
		core.editSrc = bytes.Clone(text)
	}
	return p.run(ctx, text, core.raw)
}

func (p *Parser) checkOld(old *Tree) error {
	if old.Closed() {
		return ErrTreeClosed
	}
	if old.core.lang.name != p.lang.name {
		return fmt.Errorf("%w: tree is %s, parser is %s", ErrLanguageMismatch, old.core.lang.name, p.lang.name)
	}
	return nil
}

// run parses text; the caller holds the lock on oldRaw's tree if any.
func (p *Parser) run(ctx context.Context, text []byte, oldRaw *sitter.Tree) (*Tree, error) {
	start := time.Now()
	src := bytes.Clone(text)
	if src == nil {
		src = []byte{}
	}

	raw, err := p.raw.ParseCtx(ctx, oldRaw, src)
	if err == nil && raw == nil {
		err = errNoTree
	}
	p.inst.recordParse(ctx, p.lang.name, oldRaw != nil, start, err)
	if err != nil {
		p.logger.Warn("parse failed", "language", p.lang.name, "bytes", len(src), "error", err)
		return nil, fmt.Errorf("syntax: parse %s: %w", p.lang.name, err)
	}

	tree := newTree(newTreeCore(raw, src, p.lang, p.inst))
	p.logger.Debug("parsed",
		"language", p.lang.name,
		"bytes", len(src),
		"nodes", tree.NodeCount(),
		"incremental", oldRaw != nil,
		"duration", time.Since(start),
	)
	return tree, nil
}

// Close frees the engine parser.
func (p *Parser) Close() {
	p.raw.Close()
}
