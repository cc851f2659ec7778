package grpcstore

import (
	"github.com/ccoin/blockproducer/internal/merkle"
	"github.com/ccoin/blockproducer/pkg/common"
	"github.com/ccoin/blockproducer/pkg/types"
)

// Wire types carry Digests as hex strings rather than the raw [4]fr.Element
// array, since the json codec (codec.go) has no notion of the field
// element's internal limb representation.

func digestToHex(d types.Digest) string {
	return common.BytesToHex(d.Bytes())
}

func digestFromHex(s string) (types.Digest, error) {
	b, err := common.HexToBytes(s)
	if err != nil {
		return types.Digest{}, err
	}
	return types.DigestFromBytes(b)
}

func optionalDigestFromHex(s string) (*types.Digest, error) {
	if s == "" {
		return nil, nil
	}
	d, err := digestFromHex(s)
	if err != nil {
		return nil, err
	}
	if d.IsZero() {
		return nil, nil
	}
	return &d, nil
}

type getTxInputsRequest struct {
	AccountID  uint64   `json:"account_id"`
	Nullifiers []string `json:"nullifiers"`
}

type getTxInputsResponse struct {
	AccountHash string          `json:"account_hash"`
	Nullifiers  map[string]bool `json:"nullifiers"`
}

type getBlockInputsRequest struct {
	AccountIDs []uint64 `json:"account_ids"`
	Nullifiers []string `json:"nullifiers"`
}

type blockHeaderWire struct {
	PrevHash      string `json:"prev_hash"`
	BlockNum      uint32 `json:"block_num"`
	ChainRoot     string `json:"chain_root"`
	AccountRoot   string `json:"account_root"`
	NullifierRoot string `json:"nullifier_root"`
	NoteRoot      string `json:"note_root"`
	BatchRoot     string `json:"batch_root"`
	ProofHash     string `json:"proof_hash"`
	Version       uint32 `json:"version"`
	Timestamp     uint64 `json:"timestamp"`
}

// merklePathWire carries a merkle.MerklePath over the wire: siblings as
// hex strings, same convention as every other digest field.
type merklePathWire struct {
	LeafIndex uint64   `json:"leaf_index"`
	Siblings  []string `json:"siblings"`
}

func merklePathToWire(p merkle.MerklePath) merklePathWire {
	w := merklePathWire{LeafIndex: p.LeafIndex, Siblings: make([]string, len(p.Siblings))}
	for i, s := range p.Siblings {
		w.Siblings[i] = digestToHex(s)
	}
	return w
}

func merklePathFromWire(w merklePathWire) (merkle.MerklePath, error) {
	siblings := make([]types.Digest, len(w.Siblings))
	for i, hexStr := range w.Siblings {
		d, err := digestFromHex(hexStr)
		if err != nil {
			return merkle.MerklePath{}, err
		}
		siblings[i] = d
	}
	return merkle.MerklePath{LeafIndex: w.LeafIndex, Siblings: siblings}, nil
}

type accountInputRecordWire struct {
	AccountID   uint64         `json:"account_id"`
	AccountHash string         `json:"account_hash"`
	Proof       merklePathWire `json:"proof"`
}

type nullifierInputRecordWire struct {
	Nullifier string         `json:"nullifier"`
	Consumed  bool           `json:"consumed"`
	Proof     merklePathWire `json:"proof"`
}

type getBlockInputsResponse struct {
	PrevBlockHeader *blockHeaderWire           `json:"prev_block_header"`
	ChainMMRPeaks   []string                   `json:"chain_mmr_peaks"`
	ChainMMRSize    uint64                     `json:"chain_mmr_size"`
	Accounts        []accountInputRecordWire   `json:"accounts"`
	Nullifiers      []nullifierInputRecordWire `json:"nullifiers"`
}

type accountUpdateWire struct {
	AccountID uint64 `json:"account_id"`
	FinalHash string `json:"final_hash"`
}

type noteEnvelopeWire struct {
	NoteID   string `json:"note_id"`
	Metadata string `json:"metadata"`
}

type applyBlockRequest struct {
	Header          *blockHeaderWire    `json:"header"`
	UpdatedAccounts []accountUpdateWire `json:"updated_accounts"`
	Nullifiers      []string            `json:"nullifiers"`
	CreatedNotes    []noteEnvelopeWire  `json:"created_notes"`
}

type applyBlockResponse struct{}

func headerToWire(h *types.BlockHeader) *blockHeaderWire {
	if h == nil {
		return nil
	}
	return &blockHeaderWire{
		PrevHash:      digestToHex(h.PrevHash),
		BlockNum:      h.BlockNum,
		ChainRoot:     digestToHex(h.ChainRoot),
		AccountRoot:   digestToHex(h.AccountRoot),
		NullifierRoot: digestToHex(h.NullifierRoot),
		NoteRoot:      digestToHex(h.NoteRoot),
		BatchRoot:     digestToHex(h.BatchRoot),
		ProofHash:     digestToHex(h.ProofHash),
		Version:       h.Version,
		Timestamp:     h.Timestamp,
	}
}

func headerFromWire(w *blockHeaderWire) (*types.BlockHeader, error) {
	if w == nil {
		return nil, nil
	}
	prevHash, err := digestFromHex(w.PrevHash)
	if err != nil {
		return nil, err
	}
	chainRoot, err := digestFromHex(w.ChainRoot)
	if err != nil {
		return nil, err
	}
	accountRoot, err := digestFromHex(w.AccountRoot)
	if err != nil {
		return nil, err
	}
	nullifierRoot, err := digestFromHex(w.NullifierRoot)
	if err != nil {
		return nil, err
	}
	noteRoot, err := digestFromHex(w.NoteRoot)
	if err != nil {
		return nil, err
	}
	batchRoot, err := digestFromHex(w.BatchRoot)
	if err != nil {
		return nil, err
	}
	proofHash, err := digestFromHex(w.ProofHash)
	if err != nil {
		return nil, err
	}
	return &types.BlockHeader{
		PrevHash:      prevHash,
		BlockNum:      w.BlockNum,
		ChainRoot:     chainRoot,
		AccountRoot:   accountRoot,
		NullifierRoot: nullifierRoot,
		NoteRoot:      noteRoot,
		BatchRoot:     batchRoot,
		ProofHash:     proofHash,
		Version:       w.Version,
		Timestamp:     w.Timestamp,
	}, nil
}
