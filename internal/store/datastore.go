package store

// DataStore is the write interface used while snapshotting a tree. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// indexing) implement it.
type DataStore interface {
	InsertNode(n *NodeRow) (int64, error)

	// NodesByFile returns the nodes already written for a file, including
	// any not yet committed.
	NodesByFile(fileID int64) ([]*NodeRow, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
