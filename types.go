package veritree

import "veritree/internal/base"

// Re-export the node model so callers and commands work against the root
// package only.
type (
	Hash             = base.Hash
	Hasher           = base.Hasher
	NodeID           = base.NodeID
	ValueRef         = base.ValueRef
	Node             = base.Node
	Leaf             = base.Leaf
	Branch           = base.Branch
	ChildRef         = base.ChildRef
	GeneralNodeProof = base.GeneralNodeProof
	MerklePath       = base.MerklePath
)

const (
	// RootID is the reserved id of the root node.
	RootID = base.RootID
)

// EmptyHash is the distinguished empty digest.
var EmptyHash = base.EmptyHash

// XXHasher is the default hasher, xxhash64 over the concatenated chunks.
var XXHasher = base.XXHasher
