package arbor

import (
	"sync"

	"github.com/jward/arbor/internal/syntax"
)

// treeCache keeps one tree per path for incremental re-parsing. It stores
// its own handle of every tree, so callers may close theirs freely. A nil
// cache is valid and holds nothing.
type treeCache struct {
	mu    sync.Mutex
	trees map[string]*syntax.Tree
}

func newTreeCache() *treeCache {
	return &treeCache{trees: make(map[string]*syntax.Tree)}
}

// get returns a new handle to the cached tree for path, or nil. The caller
// closes it.
func (c *treeCache) get(path string) *syntax.Tree {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.trees[path]
	if !ok {
		return nil
	}
	return t.Clone()
}

// put replaces the cached tree for path with a handle to t.
func (c *treeCache) put(path string, t *syntax.Tree) {
	if c == nil {
		return
	}
	clone := t.Clone()
	if clone == nil {
		return
	}
	c.mu.Lock()
	prev := c.trees[path]
	c.trees[path] = clone
	c.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

func (c *treeCache) drop(path string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	prev := c.trees[path]
	delete(c.trees, path)
	c.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

func (c *treeCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.trees)
}

func (c *treeCache) close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	trees := c.trees
	c.trees = make(map[string]*syntax.Tree)
	c.mu.Unlock()
	for _, t := range trees {
		t.Close()
	}
}
