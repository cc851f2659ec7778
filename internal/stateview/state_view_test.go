package stateview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ccoin/blockproducer/internal/store"
	"github.com/ccoin/blockproducer/pkg/types"
)

// fakeStore is a minimal in-memory Store used only to exercise
// DefaultStateView; the real store capability lives in internal/store.
type fakeStore struct {
	accounts   map[types.AccountId]types.Digest
	nullifiers map[types.Nullifier]struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:   make(map[types.AccountId]types.Digest),
		nullifiers: make(map[types.Nullifier]struct{}),
	}
}

func (s *fakeStore) GetTxInputs(_ context.Context, accountID types.AccountId, nullifiers []types.Nullifier) (store.TxInputs, error) {
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

func accountStates(seed uint64) [3]types.Digest {
	return [3]types.Digest{
		types.DigestFromUint64s(seed, 0, 0, 1),
		types.DigestFromUint64s(seed, 0, 0, 2),
		types.DigestFromUint64s(seed, 0, 0, 3),
	}
}

func nullifierByIndex(i uint64) types.Nullifier {
	return types.Nullifier(types.DigestFromUint64s(0, i, 0, 0))
}

func txWithParams(accountID types.AccountId, initial, final types.Digest, inputs []types.Nullifier) *types.ProvenTransaction {
	return types.NewProvenTransaction(accountID, initial, final, inputs, nil, nil)
}

func TestVerifyTx_HappyPath(t *testing.T) {
	store := newFakeStore()
	var txs []*types.ProvenTransaction
	for i := uint64(0); i < 3; i++ {
		states := accountStates(i)
		store.accounts[types.AccountId(i)] = states[0]
		txs = append(txs, txWithParams(types.AccountId(i), states[0], states[1], []types.Nullifier{nullifierByIndex(i)}))
	}

	sv := NewDefaultStateView(store, nil)
	ctx := context.Background()
	for _, tx := range txs {
		require.NoError(t, sv.VerifyTx(ctx, tx))
	}
}

func TestVerifyTx_IncorrectInitialHash(t *testing.T) {
	store := newFakeStore()
	states := accountStates(0)
	store.accounts[types.AccountId(0)] = states[0]

	tx := txWithParams(types.AccountId(0), states[1], states[2], []types.Nullifier{nullifierByIndex(0)})

	sv := NewDefaultStateView(store, nil)
	err := sv.VerifyTx(context.Background(), tx)

	require.Error(t, err)
	vtErr, ok := err.(*VerifyTxError)
	require.True(t, ok)
	require.Equal(t, ErrIncorrectAccountInitialHash, vtErr.Kind)
	require.True(t, vtErr.TxInitialAccountHash.Equal(states[1]))
	require.True(t, vtErr.StoreAccountHash.Equal(states[0]))
}

func TestVerifyTx_NewAccountSucceeds(t *testing.T) {
	store := newFakeStore() // account deliberately absent
	states := accountStates(0)

	tx := txWithParams(types.AccountId(0), states[0], states[1], []types.Nullifier{nullifierByIndex(0)})

	sv := NewDefaultStateView(store, nil)
	require.NoError(t, sv.VerifyTx(context.Background(), tx))
}

func TestVerifyTx_NullifierAlreadyInStore(t *testing.T) {
	store := newFakeStore()
	states := accountStates(0)
	store.accounts[types.AccountId(0)] = states[0]
	nullifierInStore := nullifierByIndex(0)
	store.nullifiers[nullifierInStore] = struct{}{}

	tx := txWithParams(types.AccountId(0), states[0], states[1], []types.Nullifier{nullifierInStore})

	sv := NewDefaultStateView(store, nil)
	err := sv.VerifyTx(context.Background(), tx)

	require.Error(t, err)
	vtErr, ok := err.(*VerifyTxError)
	require.True(t, ok)
	require.Equal(t, ErrInputNotesAlreadyConsumed, vtErr.Kind)
	require.Equal(t, []types.Nullifier{nullifierInStore}, vtErr.Nullifiers)
}

func TestVerifyTx_SameAccountTwice(t *testing.T) {
	store := newFakeStore()
	states := accountStates(0)
	store.accounts[types.AccountId(0)] = states[0]

	tx1 := txWithParams(types.AccountId(0), states[0], states[1], nil)
	tx2 := txWithParams(types.AccountId(0), states[1], states[2], nil)

	sv := NewDefaultStateView(store, nil)
	ctx := context.Background()

	require.NoError(t, sv.VerifyTx(ctx, tx1))

	err := sv.VerifyTx(ctx, tx2)
	require.Error(t, err)
	vtErr, ok := err.(*VerifyTxError)
	require.True(t, ok)
	require.Equal(t, ErrAccountAlreadyModifiedByOtherTx, vtErr.Kind)
	require.Equal(t, types.AccountId(0), vtErr.AccountID)
}

func TestVerifyTx_SharedNullifierAcrossAccounts(t *testing.T) {
	store := newFakeStore()
	states1 := accountStates(0)
	states2 := accountStates(1)
	store.accounts[types.AccountId(0)] = states1[0]
	store.accounts[types.AccountId(1)] = states2[0]
	shared := nullifierByIndex(0)

	tx1 := txWithParams(types.AccountId(0), states1[0], states1[1], []types.Nullifier{shared})
	tx2 := txWithParams(types.AccountId(1), states2[0], states2[1], []types.Nullifier{shared})

	sv := NewDefaultStateView(store, nil)
	ctx := context.Background()

	require.NoError(t, sv.VerifyTx(ctx, tx1))

	err := sv.VerifyTx(ctx, tx2)
	require.Error(t, err)
	vtErr, ok := err.(*VerifyTxError)
	require.True(t, ok)
	require.Equal(t, ErrInputNotesAlreadyConsumed, vtErr.Kind)
	require.Equal(t, []types.Nullifier{shared}, vtErr.Nullifiers)
}

func TestDropTransactions_ReleasesInFlightState(t *testing.T) {
	store := newFakeStore()
	states := accountStates(0)
	store.accounts[types.AccountId(0)] = states[0]
	n := nullifierByIndex(0)

	tx := txWithParams(types.AccountId(0), states[0], states[1], []types.Nullifier{n})

	sv := NewDefaultStateView(store, nil)
	ctx := context.Background()
	require.NoError(t, sv.VerifyTx(ctx, tx))

	sv.DropTransactions([]*types.ProvenTransaction{tx})

	// Same tx can now be re-verified from scratch.
	require.NoError(t, sv.VerifyTx(ctx, tx))
}
