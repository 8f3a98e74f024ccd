package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered nodes from a BatchedStore into SQLite
// within a single transaction, replacing their fake IDs with real ones, and
// records the batch summary on the file row when one was set.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertNodeSQL)
	if err != nil {
		return fmt.Errorf("commit batch: prepare: %w", err)
	}
	defer stmt.Close()

	for i := range batch.Nodes {
		n := &batch.Nodes[i]
		realID, err := insertNodeStmt(stmt, n)
		if err != nil {
			return fmt.Errorf("commit batch: node %d (%s): %w", n.Ordinal, n.Kind, err)
		}
		n.ID = realID
	}

	if batch.FileID != 0 {
		if _, err := tx.Exec(
			"UPDATE files SET hash = ?, node_count = ?, has_error = ? WHERE id = ?",
			batch.Hash, batch.NodeCount, batch.HasError, batch.FileID,
		); err != nil {
			return fmt.Errorf("commit batch: file stats: %w", err)
		}
	}

	return tx.Commit()
}

func insertNodeStmt(stmt *sql.Stmt, n *NodeRow) (int64, error) {
	res, err := stmt.Exec(nodeArgs(n)...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
