package types

import "time"

// AccountUpdate records the final hash an account was moved to by a block.
type AccountUpdate struct {
	AccountID AccountId
	FinalHash Digest
}

// BlockHeader holds a block's commitments and metadata.
//
// Adapted from the original BlockHeader (pkg/types/block.go), which
// described a DAG node with parents/PoUW/mining fields; here the header is
// a single linear chain entry carrying the five commitment roots the block
// kernel computes, plus a proof hash and format version.
type BlockHeader struct {
	PrevHash      Digest
	BlockNum      uint32
	ChainRoot     Digest
	AccountRoot   Digest
	NullifierRoot Digest
	NoteRoot      Digest
	BatchRoot     Digest
	ProofHash     Digest
	Version       uint32
	Timestamp     uint64
}

// Time returns the header timestamp as a time.Time.
func (h *BlockHeader) Time() time.Time {
	return time.Unix(int64(h.Timestamp), 0)
}

// Block is a committed block: header plus the three lists the header's
// roots commit to.
type Block struct {
	Header          *BlockHeader
	UpdatedAccounts []AccountUpdate
	Nullifiers      []Nullifier
	CreatedNotes    []NoteEnvelope
}

// NewBlock builds a Block from a header and its three commitment lists.
func NewBlock(header *BlockHeader, accounts []AccountUpdate, nullifiers []Nullifier, notes []NoteEnvelope) *Block {
	return &Block{
		Header:          header,
		UpdatedAccounts: accounts,
		Nullifiers:      nullifiers,
		CreatedNotes:    notes,
	}
}
