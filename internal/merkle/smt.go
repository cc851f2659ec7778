package merkle

import (
	"fmt"

	"github.com/ccoin/blockproducer/pkg/types"
)

// emptySubtreeCache[d] is the root of an entirely-empty subtree of depth d,
// where depth 0 is a single leaf. Computed lazily and memoized, mirroring
// the CommitmentTree precomputed "default hash" ladder
// (internal/zkp/merkle.go), generalized to an arbitrary depth instead of a
// single fixed tree size.
var emptySubtreeCache = map[int]types.Digest{0: types.ZeroDigest()}

func emptySubtreeRoot(depth int) types.Digest {
	if d, ok := emptySubtreeCache[depth]; ok {
		return d
	}
	child := emptySubtreeRoot(depth - 1)
	root := CombineHash(child, child)
	emptySubtreeCache[depth] = root
	return root
}

// EmptyRoot returns the root of an entirely-empty tree of the given depth,
// i.e. the account/nullifier root a chain with no committed blocks starts
// from.
func EmptyRoot(depth int) types.Digest {
	return emptySubtreeRoot(depth)
}

// SparseMerkleTree is a depth-parameterized sparse Merkle tree keyed by a
// uint64 leaf index, used for the account tree, the nullifier tree, and the
// per-batch/per-block created-notes tree.
//
// Generalized from the CommitmentTree/TreeStore pair
// (internal/zkp/merkle.go): where CommitmentTree held a fixed-size backing
// array for a single append-only commitment list, SparseMerkleTree holds a
// sparse map of non-default leaves so the same type can back both the
// dense notes tree and the very sparse account/nullifier trees.
type SparseMerkleTree struct {
	depth  int
	leaves map[uint64]types.Digest
	// grafts holds whole precomputed subtree roots planted at an internal
	// node, keyed by the node's (index, remainingDepth) coordinates. Used
	// by BuildBlockNotesTree to graft a batch's already-computed notes
	// subtree without re-deriving it leaf by leaf.
	grafts map[graftKey]types.Digest
}

type graftKey struct {
	index     uint64
	remaining int
}

// NewSparseMerkleTree constructs an empty tree of the given depth.
func NewSparseMerkleTree(depth int) *SparseMerkleTree {
	return &SparseMerkleTree{
		depth:  depth,
		leaves: make(map[uint64]types.Digest),
		grafts: make(map[graftKey]types.Digest),
	}
}

// SetSubtreeRoot plants a precomputed subtree root at the internal node
// reached by prefix at the given subtree depth (i.e. subtreeDepth levels
// above the leaves), overriding whatever leaves might lie beneath it.
func (t *SparseMerkleTree) SetSubtreeRoot(prefix uint64, subtreeDepth int, root types.Digest) error {
	if subtreeDepth < 0 || subtreeDepth > t.depth {
		return fmt.Errorf("merkle: subtree depth %d out of range for tree depth %d", subtreeDepth, t.depth)
	}
	t.grafts[graftKey{index: prefix, remaining: subtreeDepth}] = root
	return nil
}

// Depth returns the tree's configured depth.
func (t *SparseMerkleTree) Depth() int {
	return t.depth
}

func (t *SparseMerkleTree) maxIndex() uint64 {
	if t.depth >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(t.depth)) - 1
}

// Set writes a leaf value at the given index, replacing any prior value.
func (t *SparseMerkleTree) Set(index uint64, value types.Digest) error {
	if index > t.maxIndex() {
		return fmt.Errorf("merkle: leaf index %d out of range for depth %d", index, t.depth)
	}
	t.leaves[index] = value
	return nil
}

// Get returns the value at index, or the zero digest if unset.
func (t *SparseMerkleTree) Get(index uint64) types.Digest {
	if v, ok := t.leaves[index]; ok {
		return v
	}
	return types.ZeroDigest()
}

// Root computes the tree's root digest.
func (t *SparseMerkleTree) Root() types.Digest {
	return t.subtreeRoot(0, 0, t.depth)
}

// subtreeRoot computes the root of the subtree rooted at the node
// identified by (index, levelFromLeaves) within a subtree of the given
// remaining depth. index is the node's index among nodes at its own level.
func (t *SparseMerkleTree) subtreeRoot(index uint64, level int, remaining int) types.Digest {
	if root, ok := t.grafts[graftKey{index: index, remaining: remaining}]; ok {
		return root
	}
	if remaining == 0 {
		return t.Get(index)
	}
	// Short-circuit fully empty subtrees; avoids an O(2^depth) walk over a
	// sparse tree with only a handful of populated leaves.
	if !t.subtreeHasEntries(index, remaining) {
		return emptySubtreeRoot(remaining)
	}
	left := t.subtreeRoot(index<<1, level+1, remaining-1)
	right := t.subtreeRoot((index<<1)|1, level+1, remaining-1)
	return CombineHash(left, right)
}

func (t *SparseMerkleTree) subtreeHasEntries(index uint64, remaining int) bool {
	lo := index << uint(remaining)
	hi := lo | ((uint64(1) << uint(remaining)) - 1)
	for leaf := range t.leaves {
		if leaf >= lo && leaf <= hi {
			return true
		}
	}
	for key := range t.grafts {
		if key.remaining > remaining {
			continue
		}
		shift := uint(remaining - key.remaining)
		if key.index>>shift == index {
			return true
		}
	}
	return false
}

// MerklePath is an authentication path for a single leaf: one sibling digest
// per level, ordered from the leaf upward.
type MerklePath struct {
	LeafIndex uint64
	Siblings  []types.Digest
}

// Path computes the authentication path for the given leaf index: one
// sibling per level, starting at the leaf's immediate sibling and
// climbing toward the root. At step i, cur has already been shifted i
// bits toward the root, so cur^1 is a prefix identifying a node with
// exactly i levels of subtree beneath it — that i, not depth-i, is what
// nodeAt's second argument must receive.
func (t *SparseMerkleTree) Path(index uint64) (MerklePath, error) {
	if index > t.maxIndex() {
		return MerklePath{}, fmt.Errorf("merkle: leaf index %d out of range for depth %d", index, t.depth)
	}
	siblings := make([]types.Digest, 0, t.depth)
	cur := index
	for level := 0; level < t.depth; level++ {
		siblingIdx := cur ^ 1
		siblings = append(siblings, t.nodeAt(siblingIdx, level))
		cur >>= 1
	}
	return MerklePath{LeafIndex: index, Siblings: siblings}, nil
}

// nodeAt computes the digest of the node at the given index among nodes
// that are `remaining` levels above the leaves.
func (t *SparseMerkleTree) nodeAt(index uint64, remaining int) types.Digest {
	return t.subtreeRoot(index, t.depth-remaining, remaining)
}

// VerifyPath checks that leaf, combined up through path, produces root.
func VerifyPath(path MerklePath, leaf types.Digest, root types.Digest) bool {
	cur := leaf
	idx := path.LeafIndex
	for _, sibling := range path.Siblings {
		if idx&1 == 0 {
			cur = CombineHash(cur, sibling)
		} else {
			cur = CombineHash(sibling, cur)
		}
		idx >>= 1
	}
	return cur.Equal(root)
}
