package veritree

import "context"

// The engine never compares keys. At every hop of a traversal it consults a
// client-supplied command, which inspects the (to the server, opaque) keys
// and answers with an index. The engine treats command answers as
// authoritative and performs only bounds checking.

// SearchResult is a command's verdict on a leaf: the key either exists at an
// index or belongs at an insertion point.
type SearchResult struct {
	idx   int
	found bool
}

// Found marks an existing entry at idx.
func Found(idx int) SearchResult {
	return SearchResult{idx: idx, found: true}
}

// InsertionPoint marks the slot a missing key would occupy. For a range
// scan it is the position streaming starts from.
func InsertionPoint(idx int) SearchResult {
	return SearchResult{idx: idx}
}

func (r SearchResult) IsFound() bool { return r.found }
func (r SearchResult) Index() int    { return r.idx }

// ReadCommand steers a get or range descent.
type ReadCommand interface {
	// NextChildIndex picks the descent slot in [0, branch.Size()).
	NextChildIndex(ctx context.Context, branch *Branch) (int, error)

	// SubmitLeaf inspects the reached leaf and locates the target entry.
	SubmitLeaf(ctx context.Context, leaf *Leaf) (SearchResult, error)
}

// ValueRefProvider mints a fresh monotonic ValueRef for an inserted entry.
// Refs identify values stored outside the engine, so the client owns the
// counter.
type ValueRefProvider func() (ValueRef, error)

// PutDetails carries the client's decision for a put: the key to write, the
// checksum of its (externally stored) value, and where it goes. On
// Found(idx) the engine rewrites in place reusing the existing ref; on
// InsertionPoint(idx) it inserts a new entry with a ref minted from the
// provider.
type PutDetails struct {
	Key       []byte
	ValueHash Hash
	Search    SearchResult
}

// WriteCommand steers a put descent and authorizes its outcome.
type WriteCommand interface {
	// NextChildIndex picks the descent slot in [0, branch.Size()).
	NextChildIndex(ctx context.Context, branch *Branch) (int, error)

	// PutDetails inspects the reached leaf (nil when the tree is empty)
	// and states what to write and where.
	PutDetails(ctx context.Context, leaf *Leaf) (PutDetails, ValueRefProvider, error)

	// VerifyChanges receives the Merkle path of the computed new state
	// before anything is persisted. An error aborts the put with no state
	// change.
	VerifyChanges(ctx context.Context, proof MerklePath, wasSplitting bool) error
}
