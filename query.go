package arbor

import (
	"fmt"

	"github.com/jward/arbor/internal/store"
)

// QueryBuilder provides read access to indexed snapshots.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder returns a QueryBuilder reading from s.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// Location is a source range in zero-based rows and byte columns.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// NodeLocation returns the source range of a stored node.
func NodeLocation(file string, n *NodeRow) Location {
	return Location{
		File:      file,
		StartLine: n.StartLine,
		StartCol:  n.StartCol,
		EndLine:   n.EndLine,
		EndCol:    n.EndCol,
	}
}

// Files returns every indexed file ordered by path.
func (q *QueryBuilder) Files() ([]*File, error) {
	return q.store.Files()
}

// FilesWithErrors returns the files whose tree contains an error or
// missing node.
func (q *QueryBuilder) FilesWithErrors() ([]*File, error) {
	return q.store.FilesWithErrors()
}

// File returns the snapshot record for path, or nil if it is not indexed.
func (q *QueryBuilder) File(path string) (*File, error) {
	return q.store.FileByPath(path)
}

// KindCounts tallies node kinds across the given files, or across every
// indexed file when none are given. Paths that are not indexed are ignored;
// if none of the given paths are indexed the result is empty.
func (q *QueryBuilder) KindCounts(paths ...string) ([]KindCount, error) {
	var ids []int64
	for _, path := range paths {
		f, err := q.store.FileByPath(path)
		if err != nil {
			return nil, fmt.Errorf("kind counts: %w", err)
		}
		if f != nil {
			ids = append(ids, f.ID)
		}
	}
	if len(paths) > 0 && len(ids) == 0 {
		return nil, nil
	}
	counts, err := q.store.KindCounts(ids...)
	if err != nil {
		return nil, fmt.Errorf("kind counts: %w", err)
	}
	return counts, nil
}

// NodeAt returns the deepest stored node of path containing the zero-based
// (line, col) position, or nil.
func (q *QueryBuilder) NodeAt(path string, line, col int) (*NodeRow, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("node at: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	n, err := q.store.NodeAt(f.ID, line, col)
	if err != nil {
		return nil, fmt.Errorf("node at: %w", err)
	}
	return n, nil
}

// Nodes returns the stored nodes of path in pre-order.
func (q *QueryBuilder) Nodes(path string) ([]*NodeRow, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("nodes: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	return q.store.NodesByFile(f.ID)
}

// Ancestors returns the chain of stored nodes from n's parent up to the
// root of its file.
func (q *QueryBuilder) Ancestors(n *NodeRow) ([]*NodeRow, error) {
	nodes, err := q.store.NodesByFile(n.FileID)
	if err != nil {
		return nil, fmt.Errorf("ancestors: %w", err)
	}
	var chain []*NodeRow
	for p := n.Parent; p >= 0 && p < len(nodes); p = nodes[p].Parent {
		chain = append(chain, nodes[p])
	}
	return chain, nil
}

// NodesByKind returns every stored node of the given kind.
func (q *QueryBuilder) NodesByKind(kind string) ([]Location, error) {
	rows, err := q.store.NodesByKind(kind)
	if err != nil {
		return nil, fmt.Errorf("nodes by kind: %w", err)
	}
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("nodes by kind: %w", err)
	}
	paths := make(map[int64]string, len(files))
	for _, f := range files {
		paths[f.ID] = f.Path
	}

	locs := make([]Location, 0, len(rows))
	for _, n := range rows {
		locs = append(locs, NodeLocation(paths[n.FileID], n))
	}
	return locs, nil
}
