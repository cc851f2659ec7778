package merkle

import "github.com/ccoin/blockproducer/pkg/types"

// BlockNotesSMTDepth is the depth of the full per-block created-notes tree:
// 8 bits select the batch within the block (up to 256 batches), 13 bits
// select the note pair within the batch.
const BlockNotesSMTDepth = 8 + types.CreatedNotesSMTDepth

// NoteIDLeaf returns the leaf index a note's note_id occupies within a
// batch's depth-13 subtree: the even leaf 2n.
func NoteIDLeaf(noteIndex uint64) uint64 {
	return noteIndex * 2
}

// NoteMetadataLeaf returns the leaf index a note's metadata occupies within
// a batch's depth-13 subtree: the odd leaf 2n+1.
func NoteMetadataLeaf(noteIndex uint64) uint64 {
	return noteIndex*2 + 1
}

// BuildBatchNotesTree constructs a batch's intra-batch created-notes
// subtree (depth 13) from its ordered note list, placing each note's id at
// an even leaf and its metadata at the following odd leaf.
func BuildBatchNotesTree(notes []types.NoteEnvelope) (*SparseMerkleTree, error) {
	tree := NewSparseMerkleTree(types.CreatedNotesSMTDepth)
	for i, note := range notes {
		idx := uint64(i)
		if err := tree.Set(NoteIDLeaf(idx), note.NoteID); err != nil {
			return nil, err
		}
		if err := tree.Set(NoteMetadataLeaf(idx), note.Metadata); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// BlockBatchLeaf returns the leaf index a batch's notes-subtree root
// occupies within the full per-block notes tree: batchIndex shifted into
// the top 8 bits, leaving the low 13 bits to the batch's own subtree.
//
// BuildBlockNotesTree below embeds whole subtrees rather than individual
// note leaves, so this helper is primarily documentation of the layout
// consumed directly by BuildBlockNotesTree.
func BlockBatchLeaf(batchIndex uint64) uint64 {
	return batchIndex << uint(types.CreatedNotesSMTDepth)
}

// BuildBlockNotesTree constructs the full per-block created-notes tree
// (depth 21) by grafting each batch's depth-13 notes subtree under the
// batch's 8-bit prefix.
func BuildBlockNotesTree(batchNotesRoots []types.Digest) (*SparseMerkleTree, error) {
	tree := NewSparseMerkleTree(BlockNotesSMTDepth)
	for batchIdx, root := range batchNotesRoots {
		if err := graftSubtree(tree, uint64(batchIdx), types.CreatedNotesSMTDepth, root); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// graftSubtree writes a precomputed subtree root at the position a
// subtree of the given depth occupies when grafted under prefix index
// within tree. It does so by recording the root directly via an internal
// leaf-equivalent assignment: since SparseMerkleTree computes internal
// nodes lazily from leaves, grafting a whole subtree requires a dedicated
// override map rather than individual leaf writes.
func graftSubtree(tree *SparseMerkleTree, prefix uint64, subtreeDepth int, root types.Digest) error {
	return tree.SetSubtreeRoot(prefix, subtreeDepth, root)
}
