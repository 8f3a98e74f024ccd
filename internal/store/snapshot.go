package store

import (
	"fmt"
	"time"

	"github.com/jward/arbor/internal/syntax"
)

// NodeRows flattens a tree into rows in pre-order using a TreeCursor.
func NodeRows(fileID int64, tree *syntax.Tree) []NodeRow {
	c := tree.Walk()
	defer c.Close()

	rows := make([]NodeRow, 0, tree.NodeCount())
	var parents []int
	for {
		n := c.Node()
		parent := -1
		if len(parents) > 0 {
			parent = parents[len(parents)-1]
		}
		field, _ := c.FieldName()
		start, end := n.StartPoint(), n.EndPoint()

		rows = append(rows, NodeRow{
			FileID:    fileID,
			Ordinal:   len(rows),
			Parent:    parent,
			Depth:     len(parents),
			Kind:      n.Kind(),
			KindID:    int(n.KindID()),
			Field:     field,
			IsNamed:   n.IsNamed(),
			IsMissing: n.IsMissing(),
			IsExtra:   n.IsExtra(),
			IsError:   n.IsError(),
			StartByte: int(n.StartByte()),
			EndByte:   int(n.EndByte()),
			StartLine: int(start.Row),
			StartCol:  int(start.Column),
			EndLine:   int(end.Row),
			EndCol:    int(end.Column),
		})

		if c.GotoFirstChild() {
			parents = append(parents, len(rows)-1)
			continue
		}
		for !c.GotoNextSibling() {
			if !c.GotoParent() {
				return rows
			}
			parents = parents[:len(parents)-1]
		}
	}
}

// SaveTree writes every node of tree for fileID into ds and returns the
// number of rows written.
func SaveTree(ds DataStore, fileID int64, tree *syntax.Tree) (int, error) {
	rows := NodeRows(fileID, tree)
	for i := range rows {
		if _, err := ds.InsertNode(&rows[i]); err != nil {
			return i, fmt.Errorf("save tree: %w", err)
		}
	}
	return len(rows), nil
}

// ReplaceSnapshot stores tree as the current snapshot of path in one
// transaction, dropping any previous snapshot of the same path.
func (s *Store) ReplaceSnapshot(path string, tree *syntax.Tree) (*File, error) {
	src := tree.Text()
	f := &File{
		Path:        path,
		Language:    tree.Language().Name(),
		Hash:        ContentHash(src),
		ByteSize:    len(src),
		NodeCount:   tree.NodeCount(),
		HasError:    tree.HasError(),
		LastIndexed: time.Now(),
	}

	old, err := s.FileByPath(path)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("replace snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if old != nil {
		if err := deleteFileTx(tx, old.ID); err != nil {
			return nil, fmt.Errorf("replace snapshot: %w", err)
		}
	}

	res, err := tx.Exec(
		"INSERT INTO files (path, language, hash, byte_size, node_count, has_error, last_indexed) VALUES (?, ?, ?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.ByteSize, f.NodeCount, f.HasError, f.LastIndexed,
	)
	if err != nil {
		return nil, fmt.Errorf("replace snapshot: insert file: %w", err)
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("replace snapshot: last insert id: %w", err)
	}

	stmt, err := tx.Prepare(insertNodeSQL)
	if err != nil {
		return nil, fmt.Errorf("replace snapshot: prepare: %w", err)
	}
	defer stmt.Close()
	for _, row := range NodeRows(f.ID, tree) {
		if _, err := insertNodeStmt(stmt, &row); err != nil {
			return nil, fmt.Errorf("replace snapshot: node %d: %w", row.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("replace snapshot: commit: %w", err)
	}
	return f, nil
}
