// Package veritree implements the server half of an authenticated,
// order-preserving search tree: a hybrid B+Tree and Merkle tree over keys
// whose ordering is known only to the client. The engine owns traversal,
// splitting, checksumming and persistence; comparison is delegated to a
// per-operation command, and every mutation yields a Merkle path the client
// verifies before anything is committed.
package veritree

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"veritree/internal/base"
	"veritree/internal/cache"
	"veritree/internal/store"
	"veritree/kv"
)

// Tree is the engine handle. A permit-1 semaphore serializes all mutators
// and descents; node values are immutable, so the only shared mutable state
// is the depth counter, the node cache and the store.
type Tree struct {
	opts   Options
	store  *store.Store
	cache  *cache.Cache
	sem    *semaphore.Weighted
	depth  atomic.Int32
	closed atomic.Bool
	log    Logger
}

// Open wraps a kv backend as a tree. The id allocator is seeded by scanning
// the backend, and the depth counter by walking the leftmost path of any
// existing root. Close releases the backend.
func Open(db kv.DB, options ...Option) (*Tree, error) {
	opts := DefaultOptions()
	for _, opt := range options {
		opt(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	st, err := store.Open(db)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(opts.cacheSize)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		opts:  opts,
		store: st,
		cache: c,
		sem:   semaphore.NewWeighted(1),
		log:   opts.logger,
	}

	if err := t.seedDepth(); err != nil {
		return nil, err
	}

	t.log.Info("tree opened", "arity", opts.arity, "depth", t.Depth())
	return t, nil
}

// Get descends under the command's direction and returns the value ref of
// the located entry, or ok=false when the command reports the key absent.
func (t *Tree) Get(ctx context.Context, cmd ReadCommand) (ValueRef, bool, error) {
	if t.closed.Load() {
		return 0, false, ErrTreeClosed
	}
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return 0, false, err
	}
	defer t.sem.Release(1)

	root, err := t.getRoot()
	if err != nil {
		return 0, false, err
	}
	if leaf, ok := root.(*Leaf); ok && leaf.Size() == 0 {
		return 0, false, nil
	}

	leaf, _, _, err := t.descend(ctx, root, cmd.NextChildIndex, false)
	if err != nil {
		return 0, false, err
	}

	result, err := cmd.SubmitLeaf(ctx, leaf)
	if err != nil {
		return 0, false, err
	}
	if !result.IsFound() {
		return 0, false, nil
	}
	if result.Index() < 0 || result.Index() >= leaf.Size() {
		return 0, false, fmt.Errorf("%w: leaf index %d of %d", ErrIndexOutOfRange, result.Index(), leaf.Size())
	}
	return leaf.ValueRef(result.Index()), true, nil
}

// Put descends under the command's direction, computes the new tree state
// and its Merkle path as a pure function, asks the command to verify it, and
// only then commits. The ref of the written entry is returned: a fresh one
// for inserts, the existing one for updates.
func (t *Tree) Put(ctx context.Context, cmd WriteCommand) (ValueRef, error) {
	if t.closed.Load() {
		return 0, ErrTreeClosed
	}
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer t.sem.Release(1)

	root, err := t.getRoot()
	if err != nil {
		return 0, err
	}
	if leaf, ok := root.(*Leaf); ok && leaf.Size() == 0 {
		return t.putFirst(ctx, cmd)
	}

	leaf, leafID, trail, err := t.descend(ctx, root, cmd.NextChildIndex, true)
	if err != nil {
		return 0, err
	}

	details, provider, err := cmd.PutDetails(ctx, leaf)
	if err != nil {
		return 0, err
	}

	hasher := t.opts.hasher
	kvChecksum := hasher(details.Key, details.ValueHash)

	var (
		newLeaf  *Leaf
		ref      ValueRef
		affected int
	)
	if details.Search.IsFound() {
		affected = details.Search.Index()
		if affected < 0 || affected >= leaf.Size() {
			return 0, fmt.Errorf("%w: found index %d of %d", ErrIndexOutOfRange, affected, leaf.Size())
		}
		// Updates keep the entry's existing ref.
		ref = leaf.ValueRef(affected)
		newLeaf = leaf.Rewrite(hasher, details.Key, ref, kvChecksum, affected)
	} else {
		affected = details.Search.Index()
		if affected < 0 || affected > leaf.Size() {
			return 0, fmt.Errorf("%w: insertion index %d of %d", ErrIndexOutOfRange, affected, leaf.Size())
		}
		if provider == nil {
			return 0, ErrMissingValueRef
		}
		if ref, err = provider(); err != nil {
			return 0, err
		}
		newLeaf = leaf.Insert(hasher, details.Key, ref, kvChecksum, affected)
	}

	proof, task := t.logicalPut(leafID, newLeaf, affected, trail)

	if err := cmd.VerifyChanges(ctx, proof, task.wasSplitting); err != nil {
		return 0, err
	}
	if err := t.commit(task); err != nil {
		return 0, err
	}
	if task.wasSplitting {
		t.log.Info("split committed", "nodes", len(task.writes), "depth", t.Depth())
	}
	return ref, nil
}

// putFirst writes the first entry of an empty tree.
func (t *Tree) putFirst(ctx context.Context, cmd WriteCommand) (ValueRef, error) {
	details, provider, err := cmd.PutDetails(ctx, nil)
	if err != nil {
		return 0, err
	}
	if details.Search.IsFound() {
		return 0, fmt.Errorf("%w: found index in empty tree", ErrIndexOutOfRange)
	}
	if provider == nil {
		return 0, ErrMissingValueRef
	}
	ref, err := provider()
	if err != nil {
		return 0, err
	}

	hasher := t.opts.hasher
	kvChecksum := hasher(details.Key, details.ValueHash)
	leaf := base.NewLeaf(hasher).Insert(hasher, details.Key, ref, kvChecksum, 0)

	proof := MerklePath{leaf.ToProof(0)}
	if err := cmd.VerifyChanges(ctx, proof, false); err != nil {
		return 0, err
	}

	task := putTask{
		writes:        []store.Write{{ID: base.RootID, Node: leaf}},
		increaseDepth: true,
	}
	if err := t.commit(task); err != nil {
		return 0, err
	}
	return ref, nil
}

// Depth returns the current number of levels, 0 for an empty tree.
func (t *Tree) Depth() int {
	return int(t.depth.Load())
}

// MerkleRoot returns the checksum of the node at RootID, or the empty hash
// when nothing has been stored yet.
func (t *Tree) MerkleRoot(ctx context.Context) (Hash, error) {
	if t.closed.Load() {
		return nil, ErrTreeClosed
	}
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer t.sem.Release(1)

	ok, err := t.store.Contains(base.RootID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return EmptyHash, nil
	}
	root, err := t.loadNode(base.RootID)
	if err != nil {
		return nil, err
	}
	return root.Checksum(), nil
}

// CacheStats returns the decoded-node cache hit and miss counters.
func (t *Tree) CacheStats() (hits, misses uint64) {
	return t.cache.Stats()
}

// Close marks the tree closed and releases the backing store.
func (t *Tree) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.store.Close()
}

// nextChildFn is a command's NextChildIndex method.
type nextChildFn func(ctx context.Context, branch *Branch) (int, error)

// descend walks from root to a leaf, consulting nextChild at every branch.
// With recordTrail set it returns the trail of visited branches, nearest
// ancestor last.
func (t *Tree) descend(ctx context.Context, root Node, nextChild nextChildFn, recordTrail bool) (*Leaf, NodeID, []pathElem, error) {
	var trail []pathElem
	id := base.RootID
	node := root

	for {
		branch, ok := node.(*Branch)
		if !ok {
			break
		}
		idx, err := nextChild(ctx, branch)
		if err != nil {
			return nil, 0, nil, err
		}
		if idx < 0 || idx >= branch.Size() {
			return nil, 0, nil, fmt.Errorf("%w: child index %d of %d", ErrIndexOutOfRange, idx, branch.Size())
		}
		if recordTrail {
			trail = append(trail, pathElem{id: id, branch: branch, nextChildIdx: idx})
		}
		id = branch.ChildID(idx)
		if node, err = t.loadNode(id); err != nil {
			return nil, 0, nil, err
		}
	}

	leaf, ok := node.(*Leaf)
	if !ok {
		return nil, 0, nil, ErrUnexpectedNodeKind
	}
	return leaf, id, trail, nil
}

// loadNode reads a node through the cache.
func (t *Tree) loadNode(id NodeID) (Node, error) {
	if n, ok := t.cache.Get(id); ok {
		return n, nil
	}
	n, err := t.store.Get(id)
	if err != nil {
		return nil, err
	}
	if t.opts.keyOrderRequired {
		if err := base.CheckKeysOrdered(n.Keys()); err != nil {
			return nil, err
		}
	}
	t.cache.Put(id, n)
	return n, nil
}

// getRoot loads the root, creating an empty leaf at RootID on first access.
// The auto-create is a write and goes through the normal commit path.
func (t *Tree) getRoot() (Node, error) {
	ok, err := t.store.Contains(base.RootID)
	if err != nil {
		return nil, err
	}
	if ok {
		return t.loadNode(base.RootID)
	}

	leaf := base.NewLeaf(t.opts.hasher)
	task := putTask{writes: []store.Write{{ID: base.RootID, Node: leaf}}}
	if err := t.commit(task); err != nil {
		return nil, err
	}
	t.log.Info("created empty root leaf")
	return leaf, nil
}

// seedDepth walks the leftmost path of an existing root to restore the
// level count after a restart.
func (t *Tree) seedDepth() error {
	ok, err := t.store.Contains(base.RootID)
	if err != nil || !ok {
		return err
	}
	node, err := t.loadNode(base.RootID)
	if err != nil {
		return err
	}
	if leaf, ok := node.(*Leaf); ok && leaf.Size() == 0 {
		return nil
	}

	depth := int32(1)
	for {
		branch, ok := node.(*Branch)
		if !ok {
			break
		}
		if node, err = t.loadNode(branch.ChildID(0)); err != nil {
			return err
		}
		depth++
	}
	t.depth.Store(depth)
	return nil
}
