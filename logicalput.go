package veritree

import (
	"veritree/internal/base"
	"veritree/internal/store"
)

// Logical put computes the tree's new state and Merkle path as a pure
// function over the descent trail: a leaf context first, then a bottom-up
// fold of the visited branches. Nothing here touches persisted state; the
// caller commits the returned task only after the client verifies the path.

// pathElem records one visited branch of a put descent.
type pathElem struct {
	id           NodeID
	branch       *Branch
	nextChildIdx int
}

// putTask is the transient commit descriptor of a single put.
type putTask struct {
	writes        []store.Write
	increaseDepth bool
	wasSplitting  bool
}

// parentUpdate revises a parent path element to account for what happened
// one level below before that parent is folded itself.
type parentUpdate func(pathElem) pathElem

// putResult is the fold accumulator: the Merkle path so far (root-first),
// the pending parent revision, and the commit task.
type putResult struct {
	proof  MerklePath
	update parentUpdate
	task   putTask
}

// logicalPut builds the leaf context for the updated leaf and folds the
// trail from the nearest ancestor up to the root.
func (t *Tree) logicalPut(leafID NodeID, newLeaf *Leaf, affectedIdx int, trail []pathElem) (MerklePath, putTask) {
	acc := t.leafContext(leafID, newLeaf, affectedIdx)

	for i := len(trail) - 1; i >= 0; i-- {
		acc = t.branchContext(acc.update(trail[i]), acc)
	}

	return acc.proof, acc.task
}

// leafContext handles the updated leaf, splitting it when it outgrew the
// arity. A split of the root leaf installs a fresh two-child branch at
// RootID; a non-root leaf keeps its id for the left half.
func (t *Tree) leafContext(leafID NodeID, newLeaf *Leaf, affectedIdx int) putResult {
	hasher := t.opts.hasher

	if newLeaf.Size() <= t.opts.maxDegree() {
		return putResult{
			proof:  MerklePath{newLeaf.ToProof(affectedIdx)},
			update: replaceChildChecksum(hasher, newLeaf.Checksum()),
			task:   putTask{writes: []store.Write{{ID: leafID, Node: newLeaf}}},
		}
	}

	rightID := t.store.NextID()
	leftID := leafID
	if leafID == base.RootID {
		leftID = t.store.NextID()
	}
	left, right := newLeaf.Split(hasher, rightID)

	insertToLeft := affectedIdx < left.Size()
	affectedNode, affectedInHalf := left, affectedIdx
	if !insertToLeft {
		affectedNode, affectedInHalf = right, affectedIdx-left.Size()
	}
	proof := MerklePath{affectedNode.ToProof(affectedInHalf)}

	leftRef := ChildRef{ID: leftID, Checksum: left.Checksum()}
	rightRef := ChildRef{ID: rightID, Checksum: right.Checksum()}

	if leafID == base.RootID {
		newRoot := base.NewBranch(hasher, left.LastKey(), right.LastKey(), leftRef, rightRef)
		parentIdx := 0
		if !insertToLeft {
			parentIdx = 1
		}
		return putResult{
			proof:  proof.Prepend(newRoot.ToProof(parentIdx)),
			update: identityUpdate,
			task: putTask{
				writes: []store.Write{
					{ID: leftID, Node: left},
					{ID: rightID, Node: right},
					{ID: base.RootID, Node: newRoot},
				},
				increaseDepth: true,
				wasSplitting:  true,
			},
		}
	}

	return putResult{
		proof:  proof,
		update: insertLeftAndUpdateRight(hasher, left.LastKey(), right.LastKey(), leftRef, rightRef, insertToLeft),
		task: putTask{
			writes: []store.Write{
				{ID: leftID, Node: left},
				{ID: rightID, Node: right},
			},
			wasSplitting: true,
		},
	}
}

// branchContext folds one revised ancestor into the accumulator. Splitting a
// non-root branch allocates a fresh id for the left half and keeps the
// branch's id for the right; splitting the root allocates both and installs
// a new root at RootID.
func (t *Tree) branchContext(elem pathElem, acc putResult) putResult {
	hasher := t.opts.hasher
	branch := elem.branch

	if branch.Size() <= t.opts.maxDegree() {
		task := acc.task
		task.writes = append(task.writes, store.Write{ID: elem.id, Node: branch})
		return putResult{
			proof:  acc.proof.Prepend(branch.ToProof(elem.nextChildIdx)),
			update: replaceChildChecksum(hasher, branch.Checksum()),
			task:   task,
		}
	}

	leftID := t.store.NextID()
	rightID := elem.id
	if elem.id == base.RootID {
		rightID = t.store.NextID()
	}
	left, right := branch.Split(hasher)

	insertToLeft := elem.nextChildIdx < left.Size()
	affectedNode, affectedInHalf := left, elem.nextChildIdx
	if !insertToLeft {
		affectedNode, affectedInHalf = right, elem.nextChildIdx-left.Size()
	}

	leftRef := ChildRef{ID: leftID, Checksum: left.Checksum()}
	rightRef := ChildRef{ID: rightID, Checksum: right.Checksum()}

	task := acc.task
	task.wasSplitting = true
	task.writes = append(task.writes,
		store.Write{ID: leftID, Node: left},
		store.Write{ID: rightID, Node: right},
	)

	if elem.id == base.RootID {
		newRoot := base.NewBranch(hasher, left.LastKey(), right.LastKey(), leftRef, rightRef)
		parentIdx := 0
		if !insertToLeft {
			parentIdx = 1
		}
		task.writes = append(task.writes, store.Write{ID: base.RootID, Node: newRoot})
		task.increaseDepth = true
		return putResult{
			proof:  acc.proof.Prepend(affectedNode.ToProof(affectedInHalf)).Prepend(newRoot.ToProof(parentIdx)),
			update: identityUpdate,
			task:   task,
		}
	}

	return putResult{
		proof:  acc.proof.Prepend(affectedNode.ToProof(affectedInHalf)),
		update: insertLeftAndUpdateRight(hasher, left.LastKey(), right.LastKey(), leftRef, rightRef, insertToLeft),
		task:   task,
	}
}

func identityUpdate(elem pathElem) pathElem {
	return elem
}

// replaceChildChecksum revises the parent by swapping in the child's new
// checksum at the descent slot.
func replaceChildChecksum(hasher Hasher, sum Hash) parentUpdate {
	return func(elem pathElem) pathElem {
		return pathElem{
			id:           elem.id,
			branch:       elem.branch.UpdateChildChecksum(hasher, sum, elem.nextChildIdx),
			nextChildIdx: elem.nextChildIdx,
		}
	}
}

// insertLeftAndUpdateRight revises the parent after a child split: the left
// half is inserted under the pop-up key at the descent slot, and the entry
// one past it is repointed at the right half under the right half's last
// key. The slot key for a rightmost child lags behind inserts, so repointing
// without refreshing it could leave the pop-up key out of order. The descent
// slot shifts right when the affected entry landed in the right half.
func insertLeftAndUpdateRight(hasher Hasher, popUpKey, rightKey []byte, left, right ChildRef, insertToLeft bool) parentUpdate {
	return func(elem pathElem) pathElem {
		branch := elem.branch.
			InsertChild(hasher, popUpKey, left, elem.nextChildIdx).
			UpdateChild(hasher, rightKey, right, elem.nextChildIdx+1)
		idx := elem.nextChildIdx
		if !insertToLeft {
			idx++
		}
		return pathElem{id: elem.id, branch: branch, nextChildIdx: idx}
	}
}

// commit persists every write of a task through one atomic store batch, then
// refreshes the cache and, when the task adds a level (a root split or the
// first put), bumps the depth counter. The depth bump happens strictly after
// the writes land.
func (t *Tree) commit(task putTask) error {
	if t.opts.keyOrderRequired {
		for _, w := range task.writes {
			if err := base.CheckKeysOrdered(w.Node.Keys()); err != nil {
				return err
			}
		}
	}
	if err := t.store.PutBatch(task.writes); err != nil {
		return err
	}
	for _, w := range task.writes {
		t.cache.Put(w.ID, w.Node)
	}
	if task.increaseDepth {
		t.depth.Add(1)
	}
	return nil
}
