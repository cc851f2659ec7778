// Package memstore is an in-memory Store implementation used by tests and
// local development, grounded in the InMemoryTreeStore /
// InMemoryNullifierStore pattern (internal/zkp/merkle.go): a plain
// mutex-guarded map standing in for the durable store service.
package memstore

import (
	"context"
	"sync"

	"github.com/ccoin/blockproducer/internal/merkle"
	"github.com/ccoin/blockproducer/internal/store"
	"github.com/ccoin/blockproducer/pkg/types"
)

// Store is an in-memory implementation of store.Store. It has no
// persistence, but — unlike a flat hash map standing in for the committed
// account/nullifier state — it keeps a real account tree and nullifier
// tree alongside its flat lookup maps, so GetBlockInputs can hand out
// genuine Merkle proofs against the header it last committed, the same
// way the real store service must.
type Store struct {
	mu sync.RWMutex

	accounts      map[types.AccountId]types.Digest
	nullifiers    map[types.Nullifier]struct{}
	accountTree   *merkle.SparseMerkleTree
	nullifierTree *merkle.SparseMerkleTree
	header        *types.BlockHeader
	chainMMR      *merkle.MMR
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:      make(map[types.AccountId]types.Digest),
		nullifiers:    make(map[types.Nullifier]struct{}),
		accountTree:   merkle.NewSparseMerkleTree(merkle.AccountTreeDepth),
		nullifierTree: merkle.NewSparseMerkleTree(merkle.NullifierTreeDepth),
		chainMMR:      merkle.NewMMR(),
	}
}

// SeedAccount sets an account's committed hash, for test setup. It also
// refreshes the stored header's account root (synthesizing a header if
// none exists yet) so a subsequent GetBlockInputs hands out a proof that
// verifies against PrevBlockHeader, exactly as it would for state reached
// through a real ApplyBlock.
func (s *Store) SeedAccount(id types.AccountId, hash types.Digest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[id] = hash
	s.accountTree.Set(uint64(id), hash) //nolint:errcheck // id is a uint64-backed type, always in range
	s.syncHeaderRootsLocked()
}

// SeedNullifier marks a nullifier as already consumed, for test setup, at
// the given block number (the value the nullifier tree's leaf records).
func (s *Store) SeedNullifier(n types.Nullifier, blockNum uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nullifiers[n] = struct{}{}
	idx := merkle.LeafIndexFromDigest(types.Digest(n))
	s.nullifierTree.Set(idx, merkle.HashLeaf(uint64(blockNum))) //nolint:errcheck
	s.syncHeaderRootsLocked()
}

// syncHeaderRootsLocked refreshes s.header's account/nullifier roots to
// match the current trees, synthesizing a zero-numbered header on first
// use. Callers must hold s.mu.
func (s *Store) syncHeaderRootsLocked() {
	accountRoot := s.accountTree.Root()
	nullifierRoot := s.nullifierTree.Root()
	if s.header == nil {
		s.header = &types.BlockHeader{AccountRoot: accountRoot, NullifierRoot: nullifierRoot}
		return
	}
	h := *s.header
	h.AccountRoot = accountRoot
	h.NullifierRoot = nullifierRoot
	s.header = &h
}

// GetTxInputs implements store.Store.
func (s *Store) GetTxInputs(_ context.Context, accountID types.AccountId, nullifiers []types.Nullifier) (store.TxInputs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inputs := store.TxInputs{Nullifiers: make(map[types.Nullifier]bool, len(nullifiers))}
	if h, ok := s.accounts[accountID]; ok {
		h := h
		inputs.AccountHash = &h
	}
	for _, n := range nullifiers {
		_, consumed := s.nullifiers[n]
		inputs.Nullifiers[n] = consumed
	}
	return inputs, nil
}

// GetBlockInputs implements store.Store.
func (s *Store) GetBlockInputs(_ context.Context, accountIDs []types.AccountId, nullifiers []types.Nullifier) (store.BlockInputs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inputs := store.BlockInputs{
		PrevBlockHeader: s.header,
		ChainMMRPeaks:   s.chainMMR.Peaks(),
		ChainMMRSize:    s.chainMMR.Size(),
	}
	for _, id := range accountIDs {
		rec := store.AccountInputRecord{AccountID: id}
		if h, ok := s.accounts[id]; ok {
			h := h
			rec.AccountHash = &h
		}
		path, err := s.accountTree.Path(uint64(id))
		if err != nil {
			return store.BlockInputs{}, err
		}
		rec.Proof = path
		inputs.Accounts = append(inputs.Accounts, rec)
	}
	for _, n := range nullifiers {
		_, consumed := s.nullifiers[n]
		idx := merkle.LeafIndexFromDigest(types.Digest(n))
		path, err := s.nullifierTree.Path(idx)
		if err != nil {
			return store.BlockInputs{}, err
		}
		inputs.Nullifiers = append(inputs.Nullifiers, store.NullifierInputRecord{
			Nullifier: n,
			Consumed:  consumed,
			Proof:     path,
		})
	}
	return inputs, nil
}

// ApplyBlock implements store.Store: it commits the block's account
// updates and nullifiers — to both the flat lookup maps and the backing
// Merkle trees — and advances the header tip.
func (s *Store) ApplyBlock(_ context.Context, block *types.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, upd := range block.UpdatedAccounts {
		s.accounts[upd.AccountID] = upd.FinalHash
		if err := s.accountTree.Set(uint64(upd.AccountID), upd.FinalHash); err != nil {
			return err
		}
	}
	for _, n := range block.Nullifiers {
		s.nullifiers[n] = struct{}{}
		idx := merkle.LeafIndexFromDigest(types.Digest(n))
		if err := s.nullifierTree.Set(idx, merkle.HashLeaf(uint64(block.Header.BlockNum))); err != nil {
			return err
		}
	}
	s.chainMMR.Append(store.HeaderDigest(block.Header))
	s.header = block.Header
	return nil
}
