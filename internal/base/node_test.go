package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kvSum(key, value string) Hash {
	return XXHasher([]byte(key), XXHasher([]byte(value)))
}

func buildLeaf(keys ...string) *Leaf {
	leaf := NewLeaf(XXHasher)
	for i, k := range keys {
		leaf = leaf.Insert(XXHasher, []byte(k), ValueRef(i+1), kvSum(k, "v"), i)
	}
	return leaf
}

func TestLeafInsert(t *testing.T) {
	t.Parallel()

	leaf := buildLeaf("a", "c")
	grown := leaf.Insert(XXHasher, []byte("b"), 7, kvSum("b", "v"), 1)

	assert.Equal(t, 2, leaf.Size(), "insert must not mutate the receiver")
	require.Equal(t, 3, grown.Size())
	assert.Equal(t, []byte("b"), grown.Keys()[1])
	assert.Equal(t, ValueRef(7), grown.ValueRef(1))
	assert.False(t, grown.Checksum().Equal(leaf.Checksum()))
	assert.True(t, grown.Checksum().Equal(XXHasher(
		grown.KVChecksums()[0], grown.KVChecksums()[1], grown.KVChecksums()[2])))
}

func TestLeafRewrite(t *testing.T) {
	t.Parallel()

	leaf := buildLeaf("a", "b", "c")
	updated := leaf.Rewrite(XXHasher, []byte("b"), leaf.ValueRef(1), kvSum("b", "v2"), 1)

	require.Equal(t, 3, updated.Size())
	assert.Equal(t, leaf.ValueRef(1), updated.ValueRef(1), "updates keep the existing ref")
	assert.False(t, updated.Checksum().Equal(leaf.Checksum()))
	assert.True(t, updated.KVChecksums()[0].Equal(leaf.KVChecksums()[0]))
}

func TestLeafSplitSiblingChain(t *testing.T) {
	t.Parallel()

	leaf := buildLeaf("a", "b", "c", "d", "e")
	withSibling := MakeLeaf(leaf.Keys(), leaf.ValueRefs(), leaf.KVChecksums(), NodeID(42), leaf.Checksum())

	left, right := withSibling.Split(XXHasher, NodeID(99))

	assert.Equal(t, 3, left.Size())
	assert.Equal(t, 2, right.Size())
	assert.Equal(t, NodeID(99), left.RightSibling(), "left half points at the new right half")
	assert.Equal(t, NodeID(42), right.RightSibling(), "right half inherits the old sibling")
	assert.Equal(t, []byte("c"), left.LastKey())
	assert.True(t, left.Checksum().Equal(XXHasher(
		left.KVChecksums()[0], left.KVChecksums()[1], left.KVChecksums()[2])))
}

func TestBranchOps(t *testing.T) {
	t.Parallel()

	la, lb := buildLeaf("a"), buildLeaf("b")
	branch := NewBranch(XXHasher, []byte("a"), []byte("b"),
		ChildRef{ID: 1, Checksum: la.Checksum()},
		ChildRef{ID: 2, Checksum: lb.Checksum()},
	)
	require.Equal(t, 2, branch.Size())

	inserted := branch.InsertChild(XXHasher, []byte("aa"), ChildRef{ID: 3, Checksum: XXHasher([]byte("x"))}, 1)
	require.Equal(t, 3, inserted.Size())
	assert.Equal(t, NodeID(3), inserted.ChildID(1))
	assert.Equal(t, []byte("aa"), inserted.Keys()[1])
	assert.Equal(t, 2, branch.Size(), "insert must not mutate the receiver")

	repointed := inserted.UpdateChildRef(XXHasher, ChildRef{ID: 9, Checksum: XXHasher([]byte("y"))}, 2)
	assert.Equal(t, NodeID(9), repointed.ChildID(2))
	assert.Equal(t, inserted.Keys()[2], repointed.Keys()[2], "key unchanged on repoint")

	resummed := repointed.UpdateChildChecksum(XXHasher, XXHasher([]byte("z")), 0)
	assert.Equal(t, repointed.ChildID(0), resummed.ChildID(0))
	assert.True(t, resummed.ChildHashes()[0].Equal(XXHasher([]byte("z"))))
	assert.False(t, resummed.Checksum().Equal(repointed.Checksum()))
}

func TestBranchSplit(t *testing.T) {
	t.Parallel()

	keys := [][]byte{[]byte("b"), []byte("d"), []byte("f"), []byte("h"), []byte("j")}
	ids := []NodeID{1, 2, 3, 4, 5}
	hashes := []Hash{XXHasher([]byte("1")), XXHasher([]byte("2")), XXHasher([]byte("3")),
		XXHasher([]byte("4")), XXHasher([]byte("5"))}
	branch := MakeBranch(keys, ids, hashes, nil)

	left, right := branch.Split(XXHasher)
	assert.Equal(t, 3, left.Size())
	assert.Equal(t, 2, right.Size())
	assert.Equal(t, []byte("f"), left.LastKey())
	assert.Equal(t, NodeID(4), right.ChildID(0))
	assert.True(t, left.Checksum().Equal(XXHasher(hashes[0], hashes[1], hashes[2])))
	assert.True(t, right.Checksum().Equal(XXHasher(hashes[3], hashes[4])))
}

func TestProofSubstitution(t *testing.T) {
	t.Parallel()

	leaf := buildLeaf("a", "b", "c")
	proof := leaf.ToProof(1)

	assert.Equal(t, 1, proof.SubstitutionIdx)
	assert.True(t, proof.CalcChecksum(XXHasher, EmptyHash).Equal(leaf.Checksum()))

	// Substituting a different kv-checksum changes the recomputed root.
	other := proof.CalcChecksum(XXHasher, kvSum("b", "tampered"))
	assert.False(t, other.Equal(leaf.Checksum()))

	// Substituting the entry's own checksum is the identity.
	same := proof.CalcChecksum(XXHasher, leaf.KVChecksums()[1])
	assert.True(t, same.Equal(leaf.Checksum()))
}

func TestMerklePathFold(t *testing.T) {
	t.Parallel()

	leaf := buildLeaf("a", "b")
	branch := NewBranch(XXHasher, []byte("b"), []byte("z"),
		ChildRef{ID: 1, Checksum: leaf.Checksum()},
		ChildRef{ID: 2, Checksum: XXHasher([]byte("sibling"))},
	)
	path := MerklePath{leaf.ToProof(0)}.Prepend(branch.ToProof(0))

	require.Len(t, path, 2)
	assert.True(t, path.CalcChecksum(XXHasher, EmptyHash).Equal(branch.Checksum()))
	assert.True(t, MerklePath(nil).CalcChecksum(XXHasher, EmptyHash).IsEmpty())
}

func TestCheckKeysOrdered(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckKeysOrdered([][]byte{[]byte("a"), []byte("b"), []byte("c")}))
	assert.NoError(t, CheckKeysOrdered(nil))
	assert.ErrorIs(t, CheckKeysOrdered([][]byte{[]byte("b"), []byte("b")}), ErrKeysUnsorted)
	assert.ErrorIs(t, CheckKeysOrdered([][]byte{[]byte("b"), []byte("a")}), ErrKeysUnsorted)
}
