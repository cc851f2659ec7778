package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ccoin/blockproducer/internal/merkle"
	"github.com/ccoin/blockproducer/pkg/types"
)

func TestGetBlockInputs_FreshStoreProofsVerifyAgainstEmptyRoot(t *testing.T) {
	s := New()
	ctx := context.Background()

	inputs, err := s.GetBlockInputs(ctx, []types.AccountId{42}, []types.Nullifier{types.Nullifier(types.DigestFromUint64s(1, 2, 3, 4))})
	require.NoError(t, err)
	require.Nil(t, inputs.PrevBlockHeader)
	require.Len(t, inputs.Accounts, 1)
	require.Len(t, inputs.Nullifiers, 1)

	require.True(t, merkle.VerifyPath(inputs.Accounts[0].Proof, types.ZeroDigest(), merkle.EmptyRoot(merkle.AccountTreeDepth)))
	require.True(t, merkle.VerifyPath(inputs.Nullifiers[0].Proof, types.ZeroDigest(), merkle.EmptyRoot(merkle.NullifierTreeDepth)))
}

func TestSeedAccount_ProofVerifiesAgainstSyncedHeader(t *testing.T) {
	s := New()
	ctx := context.Background()

	hash := types.DigestFromUint64s(5, 5, 5, 5)
	s.SeedAccount(5, hash)

	inputs, err := s.GetBlockInputs(ctx, []types.AccountId{5}, nil)
	require.NoError(t, err)
	require.NotNil(t, inputs.PrevBlockHeader)
	require.True(t, merkle.VerifyPath(inputs.Accounts[0].Proof, hash, inputs.PrevBlockHeader.AccountRoot))
}

func TestApplyBlock_AccountProofVerifiesAgainstNewRoot(t *testing.T) {
	s := New()
	ctx := context.Background()

	finalHash := types.DigestFromUint64s(1, 1, 1, 1)
	expected := merkle.NewSparseMerkleTree(merkle.AccountTreeDepth)
	require.NoError(t, expected.Set(9, finalHash))
	header := &types.BlockHeader{BlockNum: 1, AccountRoot: expected.Root()}
	block := types.NewBlock(header, []types.AccountUpdate{{AccountID: 9, FinalHash: finalHash}}, nil, nil)
	require.NoError(t, s.ApplyBlock(ctx, block))

	inputs, err := s.GetBlockInputs(ctx, []types.AccountId{9}, nil)
	require.NoError(t, err)
	require.True(t, inputs.PrevBlockHeader == header)
	require.True(t, merkle.VerifyPath(inputs.Accounts[0].Proof, finalHash, header.AccountRoot))
}

func TestApplyBlock_NullifierMarkedConsumedAndProofReflectsIt(t *testing.T) {
	s := New()
	ctx := context.Background()

	n := types.Nullifier(types.DigestFromUint64s(7, 7, 7, 7))
	expected := merkle.NewSparseMerkleTree(merkle.NullifierTreeDepth)
	require.NoError(t, expected.Set(merkle.LeafIndexFromDigest(types.Digest(n)), merkle.HashLeaf(3)))
	header := &types.BlockHeader{BlockNum: 3, NullifierRoot: expected.Root()}
	block := types.NewBlock(header, nil, []types.Nullifier{n}, nil)
	require.NoError(t, s.ApplyBlock(ctx, block))

	inputs, err := s.GetBlockInputs(ctx, nil, []types.Nullifier{n})
	require.NoError(t, err)
	require.True(t, inputs.Nullifiers[0].Consumed)
	require.True(t, merkle.VerifyPath(inputs.Nullifiers[0].Proof, merkle.HashLeaf(uint64(3)), header.NullifierRoot))
}
