package base

import "bytes"

// NodeID identifies a persisted node. IDs are allocated monotonically and
// never reused. RootID is reserved for the root and never reassigned.
type NodeID uint64

const RootID NodeID = 0

// NilNode marks the absence of a node reference (a leaf with no right
// sibling). The root can never be another leaf's sibling, so the RootID
// value doubles as the sentinel.
const NilNode NodeID = 0

// ValueRef is a monotonic identifier standing in for a value stored outside
// the engine. The engine stores refs but never dereferences them.
type ValueRef uint64

// Node is a decoded tree node, either a *Leaf or a *Branch. Nodes are
// immutable after construction; every modification returns a new value.
type Node interface {
	Size() int
	Checksum() Hash
	Keys() [][]byte
}

// ChildRef pairs a child's id with its checksum as stored in a branch.
type ChildRef struct {
	ID       NodeID
	Checksum Hash
}

// Leaf holds ordered keys with parallel value refs and per-entry
// kv-checksums. Leaves form a singly-linked rightward chain through
// RightSibling; the rightmost leaf carries NilNode.
type Leaf struct {
	keys         [][]byte
	valueRefs    []ValueRef
	kvChecksums  []Hash
	rightSibling NodeID
	checksum     Hash
}

// NewLeaf returns an empty leaf with no right sibling.
func NewLeaf(hasher Hasher) *Leaf {
	return &Leaf{
		rightSibling: NilNode,
		checksum:     hashAll(hasher, EmptyHash, nil),
	}
}

// MakeLeaf assembles a leaf from decoded parts. The checksum is the cached
// value computed when the leaf was built; callers outside the codec should
// use the leaf operations instead.
func MakeLeaf(keys [][]byte, refs []ValueRef, kvChecksums []Hash, rightSibling NodeID, checksum Hash) *Leaf {
	return &Leaf{
		keys:         keys,
		valueRefs:    refs,
		kvChecksums:  kvChecksums,
		rightSibling: rightSibling,
		checksum:     checksum,
	}
}

func (l *Leaf) Size() int               { return len(l.keys) }
func (l *Leaf) Checksum() Hash          { return l.checksum }
func (l *Leaf) Keys() [][]byte          { return l.keys }
func (l *Leaf) ValueRef(i int) ValueRef { return l.valueRefs[i] }
func (l *Leaf) ValueRefs() []ValueRef   { return l.valueRefs }
func (l *Leaf) KVChecksums() []Hash     { return l.kvChecksums }
func (l *Leaf) RightSibling() NodeID    { return l.rightSibling }

// Insert returns a new leaf with the (key, ref, kvChecksum) triple inserted
// at idx and the node checksum recomputed.
func (l *Leaf) Insert(hasher Hasher, key []byte, ref ValueRef, kvChecksum Hash, idx int) *Leaf {
	size := len(l.keys)

	keys := make([][]byte, 0, size+1)
	keys = append(keys, l.keys[:idx]...)
	keys = append(keys, cloneKey(key))
	keys = append(keys, l.keys[idx:]...)

	refs := make([]ValueRef, 0, size+1)
	refs = append(refs, l.valueRefs[:idx]...)
	refs = append(refs, ref)
	refs = append(refs, l.valueRefs[idx:]...)

	sums := make([]Hash, 0, size+1)
	sums = append(sums, l.kvChecksums[:idx]...)
	sums = append(sums, kvChecksum.Clone())
	sums = append(sums, l.kvChecksums[idx:]...)

	return &Leaf{
		keys:         keys,
		valueRefs:    refs,
		kvChecksums:  sums,
		rightSibling: l.rightSibling,
		checksum:     hashAll(hasher, EmptyHash, sums),
	}
}

// Rewrite returns a new leaf with the triple at idx replaced. Updates keep
// the existing value ref, so ref must equal the one already stored at idx.
func (l *Leaf) Rewrite(hasher Hasher, key []byte, ref ValueRef, kvChecksum Hash, idx int) *Leaf {
	keys := cloneKeys(l.keys)
	keys[idx] = cloneKey(key)

	refs := make([]ValueRef, len(l.valueRefs))
	copy(refs, l.valueRefs)
	refs[idx] = ref

	sums := cloneHashes(l.kvChecksums)
	sums[idx] = kvChecksum.Clone()

	return &Leaf{
		keys:         keys,
		valueRefs:    refs,
		kvChecksums:  sums,
		rightSibling: l.rightSibling,
		checksum:     hashAll(hasher, EmptyHash, sums),
	}
}

// Split halves the leaf: the left half keeps ceil(size/2) entries and points
// at newRightID, the right half keeps the rest and inherits the old right
// sibling. Both halves carry recomputed checksums.
func (l *Leaf) Split(hasher Hasher, newRightID NodeID) (*Leaf, *Leaf) {
	size := len(l.keys)
	mid := (size + 1) / 2

	left := &Leaf{
		keys:         cloneKeys(l.keys[:mid]),
		valueRefs:    append([]ValueRef(nil), l.valueRefs[:mid]...),
		kvChecksums:  cloneHashes(l.kvChecksums[:mid]),
		rightSibling: newRightID,
	}
	left.checksum = hashAll(hasher, EmptyHash, left.kvChecksums)

	right := &Leaf{
		keys:         cloneKeys(l.keys[mid:]),
		valueRefs:    append([]ValueRef(nil), l.valueRefs[mid:]...),
		kvChecksums:  cloneHashes(l.kvChecksums[mid:]),
		rightSibling: l.rightSibling,
	}
	right.checksum = hashAll(hasher, EmptyHash, right.kvChecksums)

	return left, right
}

// ToProof extracts the per-level proof for the entry at affectedIdx.
func (l *Leaf) ToProof(affectedIdx int) GeneralNodeProof {
	return GeneralNodeProof{
		StateChecksum:     EmptyHash,
		ChildrenChecksums: cloneHashes(l.kvChecksums),
		SubstitutionIdx:   affectedIdx,
	}
}

// LastKey returns the rightmost key, the pop-up key after a split.
func (l *Leaf) LastKey() []byte {
	return l.keys[len(l.keys)-1]
}

// Branch holds ordered keys with parallel child ids and child checksums.
// Every branch carries exactly Size children: the child at i covers keys up
// to and including keys[i].
type Branch struct {
	keys        [][]byte
	childIDs    []NodeID
	childHashes []Hash
	checksum    Hash
}

// NewBranch builds the two-child branch installed as the new root after a
// root split. popUpKey is the last key of the left half.
func NewBranch(hasher Hasher, popUpKey []byte, rightKey []byte, left, right ChildRef) *Branch {
	b := &Branch{
		keys:        [][]byte{cloneKey(popUpKey), cloneKey(rightKey)},
		childIDs:    []NodeID{left.ID, right.ID},
		childHashes: []Hash{left.Checksum.Clone(), right.Checksum.Clone()},
	}
	b.checksum = hashAll(hasher, EmptyHash, b.childHashes)
	return b
}

// MakeBranch assembles a branch from decoded parts; see MakeLeaf.
func MakeBranch(keys [][]byte, childIDs []NodeID, childHashes []Hash, checksum Hash) *Branch {
	return &Branch{
		keys:        keys,
		childIDs:    childIDs,
		childHashes: childHashes,
		checksum:    checksum,
	}
}

func (b *Branch) Size() int            { return len(b.keys) }
func (b *Branch) Checksum() Hash       { return b.checksum }
func (b *Branch) Keys() [][]byte       { return b.keys }
func (b *Branch) ChildID(i int) NodeID { return b.childIDs[i] }
func (b *Branch) ChildIDs() []NodeID   { return b.childIDs }
func (b *Branch) ChildHashes() []Hash  { return b.childHashes }

// InsertChild returns a new branch with (popUpKey, ref) inserted at idx.
func (b *Branch) InsertChild(hasher Hasher, popUpKey []byte, ref ChildRef, idx int) *Branch {
	size := len(b.keys)

	keys := make([][]byte, 0, size+1)
	keys = append(keys, b.keys[:idx]...)
	keys = append(keys, cloneKey(popUpKey))
	keys = append(keys, b.keys[idx:]...)

	ids := make([]NodeID, 0, size+1)
	ids = append(ids, b.childIDs[:idx]...)
	ids = append(ids, ref.ID)
	ids = append(ids, b.childIDs[idx:]...)

	hashes := make([]Hash, 0, size+1)
	hashes = append(hashes, b.childHashes[:idx]...)
	hashes = append(hashes, ref.Checksum.Clone())
	hashes = append(hashes, b.childHashes[idx:]...)

	nb := &Branch{keys: keys, childIDs: ids, childHashes: hashes}
	nb.checksum = hashAll(hasher, EmptyHash, nb.childHashes)
	return nb
}

// UpdateChildRef returns a new branch with the child id and checksum at idx
// replaced; the key at idx is unchanged.
func (b *Branch) UpdateChildRef(hasher Hasher, ref ChildRef, idx int) *Branch {
	ids := make([]NodeID, len(b.childIDs))
	copy(ids, b.childIDs)
	ids[idx] = ref.ID

	hashes := cloneHashes(b.childHashes)
	hashes[idx] = ref.Checksum.Clone()

	nb := &Branch{keys: cloneKeys(b.keys), childIDs: ids, childHashes: hashes}
	nb.checksum = hashAll(hasher, EmptyHash, nb.childHashes)
	return nb
}

// UpdateChild returns a new branch with the key, child id and checksum at
// idx all replaced. A child's slot key can lag behind its real last key when
// the rightmost child grows in place; refreshing the slot on a split keeps
// the branch keys ascending.
func (b *Branch) UpdateChild(hasher Hasher, key []byte, ref ChildRef, idx int) *Branch {
	keys := cloneKeys(b.keys)
	keys[idx] = cloneKey(key)

	ids := make([]NodeID, len(b.childIDs))
	copy(ids, b.childIDs)
	ids[idx] = ref.ID

	hashes := cloneHashes(b.childHashes)
	hashes[idx] = ref.Checksum.Clone()

	nb := &Branch{keys: keys, childIDs: ids, childHashes: hashes}
	nb.checksum = hashAll(hasher, EmptyHash, nb.childHashes)
	return nb
}

// UpdateChildChecksum returns a new branch with only the child checksum at
// idx replaced.
func (b *Branch) UpdateChildChecksum(hasher Hasher, sum Hash, idx int) *Branch {
	hashes := cloneHashes(b.childHashes)
	hashes[idx] = sum.Clone()

	ids := make([]NodeID, len(b.childIDs))
	copy(ids, b.childIDs)

	nb := &Branch{keys: cloneKeys(b.keys), childIDs: ids, childHashes: hashes}
	nb.checksum = hashAll(hasher, EmptyHash, nb.childHashes)
	return nb
}

// Split halves the branch at the median, the left half keeping ceil(size/2)
// children. Both halves carry recomputed checksums.
func (b *Branch) Split(hasher Hasher) (*Branch, *Branch) {
	size := len(b.keys)
	mid := (size + 1) / 2

	left := &Branch{
		keys:        cloneKeys(b.keys[:mid]),
		childIDs:    append([]NodeID(nil), b.childIDs[:mid]...),
		childHashes: cloneHashes(b.childHashes[:mid]),
	}
	left.checksum = hashAll(hasher, EmptyHash, left.childHashes)

	right := &Branch{
		keys:        cloneKeys(b.keys[mid:]),
		childIDs:    append([]NodeID(nil), b.childIDs[mid:]...),
		childHashes: cloneHashes(b.childHashes[mid:]),
	}
	right.checksum = hashAll(hasher, EmptyHash, right.childHashes)

	return left, right
}

// ToProof extracts the per-level proof with the descent slot marked.
func (b *Branch) ToProof(affectedIdx int) GeneralNodeProof {
	return GeneralNodeProof{
		StateChecksum:     EmptyHash,
		ChildrenChecksums: cloneHashes(b.childHashes),
		SubstitutionIdx:   affectedIdx,
	}
}

// LastKey returns the rightmost key, the pop-up key after a split.
func (b *Branch) LastKey() []byte {
	return b.keys[len(b.keys)-1]
}

// CheckKeysOrdered verifies keys are strictly ascending. This is a debugging
// assertion; the engine never orders keys in production paths.
func CheckKeysOrdered(keys [][]byte) error {
	for i := 1; i < len(keys); i++ {
		if bytes.Compare(keys[i-1], keys[i]) >= 0 {
			return ErrKeysUnsorted
		}
	}
	return nil
}

func cloneKey(k []byte) []byte {
	c := make([]byte, len(k))
	copy(c, k)
	return c
}

func cloneKeys(keys [][]byte) [][]byte {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = cloneKey(k)
	}
	return out
}

func cloneHashes(hashes []Hash) []Hash {
	out := make([]Hash, len(hashes))
	for i, h := range hashes {
		out[i] = h.Clone()
	}
	return out
}
