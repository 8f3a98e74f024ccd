package store

import (
	"database/sql"
	"errors"
	"fmt"
)

const nodeCols = `id, file_id, ordinal, parent, depth, kind, kind_id, field,
	is_named, is_missing, is_extra, is_error,
	start_byte, end_byte, start_line, start_col, end_line, end_col`

const insertNodeSQL = `INSERT INTO nodes (file_id, ordinal, parent, depth, kind, kind_id, field,
		is_named, is_missing, is_extra, is_error,
		start_byte, end_byte, start_line, start_col, end_line, end_col)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func nodeArgs(n *NodeRow) []any {
	return []any{
		n.FileID, n.Ordinal, n.Parent, n.Depth, n.Kind, n.KindID, n.Field,
		n.IsNamed, n.IsMissing, n.IsExtra, n.IsError,
		n.StartByte, n.EndByte, n.StartLine, n.StartCol, n.EndLine, n.EndCol,
	}
}

func (s *Store) InsertNode(n *NodeRow) (int64, error) {
	res, err := s.db.Exec(insertNodeSQL, nodeArgs(n)...)
	if err != nil {
		return 0, fmt.Errorf("insert node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	n.ID = id
	return id, nil
}

func scanNode(scanner interface{ Scan(...any) error }) (*NodeRow, error) {
	n := &NodeRow{}
	var field sql.NullString
	err := scanner.Scan(
		&n.ID, &n.FileID, &n.Ordinal, &n.Parent, &n.Depth, &n.Kind, &n.KindID, &field,
		&n.IsNamed, &n.IsMissing, &n.IsExtra, &n.IsError,
		&n.StartByte, &n.EndByte, &n.StartLine, &n.StartCol, &n.EndLine, &n.EndCol,
	)
	if err != nil {
		return nil, err
	}
	n.Field = field.String
	return n, nil
}

func (s *Store) queryNodes(query string, args ...any) ([]*NodeRow, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var nodes []*NodeRow
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// NodesByFile returns a file's nodes in pre-order.
func (s *Store) NodesByFile(fileID int64) ([]*NodeRow, error) {
	nodes, err := s.queryNodes("SELECT "+nodeCols+" FROM nodes WHERE file_id = ? ORDER BY ordinal", fileID)
	if err != nil {
		return nil, fmt.Errorf("nodes by file: %w", err)
	}
	return nodes, nil
}

// NodesByKind returns every stored node of the given kind, grouped by file.
func (s *Store) NodesByKind(kind string) ([]*NodeRow, error) {
	nodes, err := s.queryNodes("SELECT "+nodeCols+" FROM nodes WHERE kind = ? ORDER BY file_id, ordinal", kind)
	if err != nil {
		return nil, fmt.Errorf("nodes by kind: %w", err)
	}
	return nodes, nil
}

// NodeAt returns the deepest node of a file that contains the zero-based
// position (line, col), or nil if the position is outside every node.
func (s *Store) NodeAt(fileID int64, line, col int) (*NodeRow, error) {
	n, err := scanNode(s.db.QueryRow(
		`SELECT `+nodeCols+` FROM nodes
		 WHERE file_id = ?
		   AND (start_line < ? OR (start_line = ? AND start_col <= ?))
		   AND (end_line > ? OR (end_line = ? AND end_col > ?))
		 ORDER BY depth DESC, ordinal DESC
		 LIMIT 1`,
		fileID, line, line, col, line, line, col,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("node at: %w", err)
	}
	return n, nil
}

// KindCounts returns how many nodes of each kind are stored, most frequent
// first. With no fileIDs it counts across all files.
func (s *Store) KindCounts(fileIDs ...int64) ([]KindCount, error) {
	query := "SELECT kind, is_named, COUNT(*) FROM nodes"
	var args []any
	if len(fileIDs) > 0 {
		query += " WHERE file_id IN (" + placeholderList(len(fileIDs)) + ")"
		args = int64sToArgs(fileIDs)
	}
	query += " GROUP BY kind, is_named ORDER BY COUNT(*) DESC, kind"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("kind counts: %w", err)
	}
	defer rows.Close()
	var counts []KindCount
	for rows.Next() {
		var kc KindCount
		if err := rows.Scan(&kc.Kind, &kc.IsNamed, &kc.Count); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		counts = append(counts, kc)
	}
	return counts, rows.Err()
}
