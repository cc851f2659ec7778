package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ccoin/blockproducer/internal/blockbuilder"
	"github.com/ccoin/blockproducer/internal/blockprover"
	"github.com/ccoin/blockproducer/internal/store"
	"github.com/ccoin/blockproducer/internal/store/memstore"
	"github.com/ccoin/blockproducer/internal/txqueue"
	"github.com/ccoin/blockproducer/pkg/types"
)

func txFor(accountID uint64, finalHash types.Digest) *types.ProvenTransaction {
	return types.NewProvenTransaction(types.AccountId(accountID), types.ZeroDigest(), finalHash, nil, nil, nil)
}

func TestServer_SubmitAndCommitsBlock(t *testing.T) {
	s := memstore.New()
	prover := blockprover.NewDefaultProver()

	cfg := Config{
		TxQueue:      txqueue.Config{BatchSize: 1, BuildBatchFrequency: time.Hour},
		BlockBuilder: blockbuilder.Config{BlockFrequency: time.Hour, MaxBatchesPerBlock: 1},
	}

	srv := New(cfg, s, prover, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))
	defer func() {
		cancel()
		srv.Shutdown()
	}()

	tx := txFor(1, types.DigestFromUint64s(9, 9, 9, 9))
	require.NoError(t, srv.SubmitTransaction(context.Background(), tx))

	require.Eventually(t, func() bool {
		return hasCommittedBlock(t, s)
	}, time.Second, 5*time.Millisecond)
}

func hasCommittedBlock(t *testing.T, s store.Store) bool {
	t.Helper()
	inputs, err := s.GetBlockInputs(context.Background(), []types.AccountId{1}, nil)
	require.NoError(t, err)
	return inputs.PrevBlockHeader != nil
}

func TestServer_StartTwiceErrors(t *testing.T) {
	s := memstore.New()
	prover := blockprover.NewDefaultProver()
	srv := New(Config{}, s, prover, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, srv.Start(ctx))
	defer srv.Shutdown()

	require.Error(t, srv.Start(ctx))
}
