package blockwitness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ccoin/blockproducer/internal/store"
	"github.com/ccoin/blockproducer/pkg/types"
)

func hashPtr(seed uint64) *types.Digest {
	d := types.DigestFromUint64s(seed, 0, 0, 0)
	return &d
}

func txFor(id uint64, initial, final types.Digest) *types.ProvenTransaction {
	return types.NewProvenTransaction(types.AccountId(id), initial, final, nil, nil, nil)
}

func TestWitness_HappyPathThreeAccounts(t *testing.T) {
	h0, h1, h2 := types.DigestFromUint64s(10, 0, 0, 0), types.DigestFromUint64s(11, 0, 0, 0), types.DigestFromUint64s(12, 0, 0, 0)
	h0p, h1p, h2p := types.DigestFromUint64s(20, 0, 0, 0), types.DigestFromUint64s(21, 0, 0, 0), types.DigestFromUint64s(22, 0, 0, 0)

	batch := types.NewTransactionBatch([]*types.ProvenTransaction{
		txFor(0, h0, h0p),
		txFor(1, h1, h1p),
		txFor(2, h2, h2p),
	}, types.ZeroDigest())

	inputs := store.BlockInputs{
		Accounts: []store.AccountInputRecord{
			{AccountID: 0, AccountHash: &h0},
			{AccountID: 1, AccountHash: &h1},
			{AccountID: 2, AccountHash: &h2},
		},
	}

	w, err := New(inputs, []*types.TransactionBatch{batch})
	require.NoError(t, err)
	require.Len(t, w.Accounts, 3)

	byID := map[types.AccountId]AccountTransition{}
	for _, a := range w.Accounts {
		byID[a.AccountID] = a
	}
	require.True(t, byID[0].FinalHash.Equal(h0p))
	require.True(t, byID[1].FinalHash.Equal(h1p))
	require.True(t, byID[2].FinalHash.Equal(h2p))
}

func TestWitness_InconsistentAccountIds(t *testing.T) {
	batch := types.NewTransactionBatch([]*types.ProvenTransaction{
		txFor(2, types.ZeroDigest(), types.ZeroDigest()),
		txFor(3, types.ZeroDigest(), types.ZeroDigest()),
	}, types.ZeroDigest())

	inputs := store.BlockInputs{
		Accounts: []store.AccountInputRecord{
			{AccountID: 1, AccountHash: hashPtr(1)},
			{AccountID: 2, AccountHash: hashPtr(2)},
		},
	}

	_, err := New(inputs, []*types.TransactionBatch{batch})
	require.Error(t, err)
	var idsErr *InconsistentAccountIdsError
	require.ErrorAs(t, err, &idsErr)
	require.Equal(t, []types.AccountId{1, 3}, idsErr.Ids)
}

func TestWitness_InconsistentAccountStates(t *testing.T) {
	storeHash := types.DigestFromUint64s(1, 2, 3, 4)
	batchHash := types.DigestFromUint64s(4, 3, 2, 1)

	batch := types.NewTransactionBatch([]*types.ProvenTransaction{
		txFor(1, batchHash, types.ZeroDigest()),
	}, types.ZeroDigest())

	inputs := store.BlockInputs{
		Accounts: []store.AccountInputRecord{
			{AccountID: 1, AccountHash: &storeHash},
		},
	}

	_, err := New(inputs, []*types.TransactionBatch{batch})
	require.Error(t, err)
	var statesErr *InconsistentAccountStatesError
	require.ErrorAs(t, err, &statesErr)
	require.Equal(t, []types.AccountId{1}, statesErr.Ids)
}
