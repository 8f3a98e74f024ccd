package arbor

import (
	"context"
	"errors"
	"fmt"
	"os"
	goruntime "runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/arbor/internal/store"
	"github.com/jward/arbor/internal/syntax"
)

// workItem holds everything a parse worker needs for one file.
type workItem struct {
	path   string
	lang   *syntax.Language
	fileID int64
	hash   string
	src    []byte
	batch  *store.BatchedStore

	// tree is set by the worker and closed after commit.
	tree *syntax.Tree
}

type workResult struct {
	item *workItem
	err  error
}

// IndexFiles indexes the given file paths in three phases:
//
//	Phase A (serial):   Hash check, drop old snapshot, prepare file records.
//	Phase B (workers):  Parse into a BatchedStore, one Parser per worker and language.
//	Phase C (serial):   Commit batches to SQLite, run the file script.
//
// With WithParallel(false), phase B handles one file at a time.
// Errors on individual files are collected and processing continues; they
// are returned joined.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	start := time.Now()
	rerun := e.fileScript != "" && e.ScriptsChanged()

	// ---- Phase A: Serial file preparation ----
	var (
		items   []*workItem
		errs    []error
		skipped int
	)
	for _, path := range paths {
		item, skip, err := e.prepareFile(path, rerun)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			skipped++
			continue
		}
		items = append(items, item)
	}

	// ---- Phase B + C ----
	var results <-chan workResult
	var wait func() error
	if e.useParallel && len(items) > 1 {
		results, wait = e.parseParallel(ctx, items)
	} else {
		results, wait = e.parseSerial(ctx, items)
	}

	indexed := 0
	for res := range results {
		if err := e.commitItem(ctx, res); err != nil {
			errs = append(errs, err)
			continue
		}
		indexed++
	}
	if err := wait(); err != nil {
		errs = append(errs, err)
	}

	e.logger.Info("indexed files",
		"indexed", indexed,
		"skipped", skipped,
		"failed", len(errs),
		"duration", elapsed(start),
	)

	if len(errs) > 0 {
		return fmt.Errorf("arbor: indexing had %d error(s): %w", len(errs), errors.Join(errs...))
	}
	if e.fileScript != "" {
		e.storeScriptsHash()
	}
	return nil
}

// prepareFile does Phase A work for a single file: hash check, cleanup, file record.
// Returns (item, skip, error). skip=true means the file is unchanged or unsupported.
func (e *Engine) prepareFile(path string, rerun bool) (*workItem, bool, error) {
	name, ok := e.registry.LanguageNameForFile(path)
	if !ok {
		return nil, true, nil
	}
	if e.languages != nil && !e.languages[name] {
		return nil, true, nil
	}
	lang, _ := e.registry.Lookup(name)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return nil, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash && !rerun {
		return nil, true, nil // unchanged
	}

	if existing != nil {
		if err := e.store.DeleteFile(path); err != nil {
			return nil, false, fmt.Errorf("delete old snapshot: %w", err)
		}
	}

	// The hash is written on commit; until then the row looks stale.
	fileID, err := e.store.InsertFile(&store.File{
		Path:        path,
		Language:    name,
		ByteSize:    len(content),
		LastIndexed: time.Now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("insert file: %w", err)
	}

	return &workItem{
		path:   path,
		lang:   lang,
		fileID: fileID,
		hash:   hash,
		src:    content,
		batch:  store.NewBatchedStore(e.store),
	}, false, nil
}

// parseSerial runs Phase B one item at a time, in lock step with the
// consumer draining the channel.
func (e *Engine) parseSerial(ctx context.Context, items []*workItem) (<-chan workResult, func() error) {
	out := make(chan workResult)
	go func() {
		defer close(out)
		parsers := newParserSet(e)
		defer parsers.close()
		for _, item := range items {
			out <- workResult{item: item, err: e.parseItem(ctx, parsers, item)}
		}
	}()
	return out, func() error { return nil }
}

// parseParallel fans items out to a fixed pool of workers. Each worker owns
// its parsers; results are committed by the caller as they arrive.
func (e *Engine) parseParallel(ctx context.Context, items []*workItem) (<-chan workResult, func() error) {
	numWorkers := e.workers
	if numWorkers < 1 {
		numWorkers = goruntime.NumCPU()
	}
	numWorkers = min(numWorkers, len(items))

	workCh := make(chan *workItem)
	resultCh := make(chan workResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(workCh)
		for _, item := range items {
			select {
			case workCh <- item:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for range numWorkers {
		g.Go(func() error {
			parsers := newParserSet(e)
			defer parsers.close()
			for item := range workCh {
				resultCh <- workResult{item: item, err: e.parseItem(gctx, parsers, item)}
			}
			return nil
		})
	}

	var waitErr error
	done := make(chan struct{})
	go func() {
		waitErr = g.Wait()
		close(resultCh)
		close(done)
	}()
	return resultCh, func() error {
		<-done
		return waitErr
	}
}

// parseItem is the Phase B work for one file.
func (e *Engine) parseItem(ctx context.Context, parsers *parserSet, item *workItem) error {
	p, err := parsers.get(item.lang)
	if err != nil {
		return err
	}
	tree, err := e.parseCached(ctx, p, item.path, item.src)
	if err != nil {
		return err
	}
	if _, err := store.SaveTree(item.batch, item.fileID, tree); err != nil {
		tree.Close()
		return err
	}
	item.batch.SetSummary(item.fileID, item.hash, tree.NodeCount(), tree.HasError())
	item.tree = tree
	return nil
}

// parseCached re-parses against the cached tree for path when there is one
// of the same language, and refreshes the cache with the result.
func (e *Engine) parseCached(ctx context.Context, p *syntax.Parser, path string, src []byte) (*syntax.Tree, error) {
	if old := e.cache.get(path); old != nil {
		defer old.Close()
		if old.Language() == p.Language() {
			tree, err := p.Reparse(ctx, old, src)
			if err == nil {
				e.cache.put(path, tree)
				return tree, nil
			}
			e.logger.Debug("incremental parse failed, parsing from scratch", "path", path, "error", err)
		}
	}

	tree, err := p.Parse(ctx, src, nil)
	if err != nil {
		return nil, err
	}
	e.cache.put(path, tree)
	return tree, nil
}

// commitItem is the Phase C work for one file.
func (e *Engine) commitItem(ctx context.Context, res workResult) error {
	item := res.item
	if res.err != nil {
		e.cache.drop(item.path)
		if err := e.store.DeleteFile(item.path); err != nil {
			e.logger.Warn("dropping placeholder file row", "path", item.path, "error", err)
		}
		return fmt.Errorf("parse %s: %w", item.path, res.err)
	}
	defer item.tree.Close()

	if err := e.store.CommitBatch(item.batch); err != nil {
		return fmt.Errorf("commit %s: %w", item.path, err)
	}
	e.logger.Debug("indexed file",
		"path", item.path,
		"language", item.lang.Name(),
		"nodes", item.tree.NodeCount(),
		"has_error", item.tree.HasError(),
	)

	if e.fileScript == "" {
		return nil
	}
	extras := map[string]any{
		"file_path": item.path,
		"file_id":   item.fileID,
		"tree":      item.tree,
	}
	if err := e.runtime.RunScript(ctx, e.fileScript, extras); err != nil {
		return fmt.Errorf("file script %s: %w", item.path, err)
	}
	return nil
}

// parserSet lazily creates one Parser per language for a single worker.
type parserSet struct {
	engine  *Engine
	parsers map[*syntax.Language]*syntax.Parser
}

func newParserSet(e *Engine) *parserSet {
	return &parserSet{engine: e, parsers: make(map[*syntax.Language]*syntax.Parser)}
}

func (s *parserSet) get(lang *syntax.Language) (*syntax.Parser, error) {
	if p, ok := s.parsers[lang]; ok {
		return p, nil
	}
	p := s.engine.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		p.Close()
		return nil, err
	}
	s.parsers[lang] = p
	return p, nil
}

func (s *parserSet) close() {
	for _, p := range s.parsers {
		p.Close()
	}
}
