package veritree

import (
	"context"

	"veritree/internal/base"
)

// Stream is a lazy range scan over the rightward leaf chain. The descent to
// the starting leaf happens under the tree's semaphore inside Range; the
// stream itself reads sibling leaves outside it, so a long scan never blocks
// writers. A scan may therefore observe a mixture of pre- and post-write
// states along the chain; the client's verification of each fetched leaf is
// the authoritative integrity check.
type Stream struct {
	tree *Tree
	leaf *Leaf
	idx  int
	key  []byte
	ref  ValueRef
	err  error
	done bool
}

// Range descends under the command's direction to the starting leaf and
// returns a stream positioned at the command's search result (for a missing
// key, the insertion point: the first entry at or after the target). The
// stream is restartable only by calling Range again.
func (t *Tree) Range(ctx context.Context, cmd ReadCommand) (*Stream, error) {
	if t.closed.Load() {
		return nil, ErrTreeClosed
	}
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	leaf, start, err := t.rangeStart(ctx, cmd)
	t.sem.Release(1)
	if err != nil {
		return nil, err
	}
	if leaf == nil {
		return &Stream{tree: t, done: true}, nil
	}
	return &Stream{tree: t, leaf: leaf, idx: start}, nil
}

// rangeStart runs the locked part of a range: root fetch and descent.
func (t *Tree) rangeStart(ctx context.Context, cmd ReadCommand) (*Leaf, int, error) {
	root, err := t.getRoot()
	if err != nil {
		return nil, 0, err
	}
	if leaf, ok := root.(*Leaf); ok && leaf.Size() == 0 {
		return nil, 0, nil
	}

	leaf, _, _, err := t.descend(ctx, root, cmd.NextChildIndex, false)
	if err != nil {
		return nil, 0, err
	}

	result, err := cmd.SubmitLeaf(ctx, leaf)
	if err != nil {
		return nil, 0, err
	}
	start := result.Index()
	if start < 0 || start > leaf.Size() {
		return nil, 0, ErrIndexOutOfRange
	}
	return leaf, start, nil
}

// Next advances to the following entry, crossing to the right sibling when
// the current leaf is exhausted. It returns false at end of tree, on error,
// or when ctx is cancelled at a sibling hop (entries of the current leaf are
// still yielded); Err distinguishes the cases.
func (s *Stream) Next(ctx context.Context) bool {
	if s.done || s.err != nil {
		return false
	}

	for s.idx >= s.leaf.Size() {
		sibling := s.leaf.RightSibling()
		if sibling == base.NilNode {
			s.done = true
			return false
		}
		if err := ctx.Err(); err != nil {
			s.err = err
			return false
		}
		leaf, err := s.tree.loadLeaf(sibling)
		if err != nil {
			s.err = err
			return false
		}
		s.leaf, s.idx = leaf, 0
	}

	s.key = s.leaf.Keys()[s.idx]
	s.ref = s.leaf.ValueRef(s.idx)
	s.idx++
	return true
}

// Key returns the key of the current entry.
func (s *Stream) Key() []byte { return s.key }

// ValueRef returns the value ref of the current entry.
func (s *Stream) ValueRef() ValueRef { return s.ref }

// Err returns the error that stopped the stream, if any.
func (s *Stream) Err() error { return s.err }

// loadLeaf reads a node through the cache, requiring a leaf. Following a
// right-sibling link must land on a leaf; anything else is a codec error.
func (t *Tree) loadLeaf(id NodeID) (*Leaf, error) {
	n, err := t.loadNode(id)
	if err != nil {
		return nil, err
	}
	leaf, ok := n.(*Leaf)
	if !ok {
		return nil, ErrUnexpectedNodeKind
	}
	return leaf, nil
}
