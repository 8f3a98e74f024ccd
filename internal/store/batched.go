package store

import "sync"

// BatchedStore buffers node inserts in memory using fake (negative) IDs. It
// implements DataStore so snapshot code can write to it without knowing
// whether it's hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// Reads of committed rows pass through to the underlying Store.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Nodes []NodeRow

	// Summary of the buffered tree, written to the file row on commit.
	FileID    int64
	Hash      string
	NodeCount int
	HasError  bool

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertNode(n *NodeRow) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	n.ID = fakeID
	b.Nodes = append(b.Nodes, *n)
	return fakeID, nil
}

// SetSummary records the file-level result of the buffered snapshot. The
// hash is only written on commit, so an interrupted batch leaves the file
// looking stale.
func (b *BatchedStore) SetSummary(fileID int64, hash string, nodeCount int, hasError bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FileID, b.Hash, b.NodeCount, b.HasError = fileID, hash, nodeCount, hasError
}

// NodesByFile returns nodes for a file, merging any buffered (not yet
// committed) nodes with those already in the database.
func (b *BatchedStore) NodesByFile(fileID int64) ([]*NodeRow, error) {
	dbNodes, err := b.store.NodesByFile(fileID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Nodes {
		if b.Nodes[i].FileID == fileID {
			dbNodes = append(dbNodes, &b.Nodes[i])
		}
	}
	return dbNodes, nil
}
