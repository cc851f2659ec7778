package txqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ccoin/blockproducer/pkg/types"
)

type fakeStateView struct {
	mu      sync.Mutex
	dropped [][]*types.ProvenTransaction
	reject  bool
}

func (f *fakeStateView) VerifyTx(_ context.Context, _ *types.ProvenTransaction) error {
	if f.reject {
		return errors.New("rejected")
	}
	return nil
}

func (f *fakeStateView) DropTransactions(txs []*types.ProvenTransaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, txs)
}

type fakeSink struct {
	mu     sync.Mutex
	chunks [][]*types.ProvenTransaction
	fail   bool
}

func (f *fakeSink) BuildBatch(_ context.Context, txs []*types.ProvenTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("batch build failed")
	}
	f.chunks = append(f.chunks, txs)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks)
}

func tx(id uint64) *types.ProvenTransaction {
	return types.NewProvenTransaction(types.AccountId(id), types.ZeroDigest(), types.ZeroDigest(), nil, nil, nil)
}

func TestQueue_RejectedTxNotBuffered(t *testing.T) {
	sv := &fakeStateView{reject: true}
	sink := &fakeSink{}
	q := New(Config{BatchSize: 2, BuildBatchFrequency: time.Hour}, sv, sink, nil)

	err := q.Enqueue(context.Background(), tx(1))
	require.Error(t, err)
	require.Equal(t, 0, q.Len())
}

func TestQueue_DrainsOnSizeThreshold(t *testing.T) {
	sv := &fakeStateView{}
	sink := &fakeSink{}
	q := New(Config{BatchSize: 2, BuildBatchFrequency: time.Hour}, sv, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	require.NoError(t, q.Enqueue(ctx, tx(1)))
	require.NoError(t, q.Enqueue(ctx, tx(2)))

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, q.Len())
}

func TestQueue_DrainsOnTimer(t *testing.T) {
	sv := &fakeStateView{}
	sink := &fakeSink{}
	q := New(Config{BatchSize: 10, BuildBatchFrequency: 20 * time.Millisecond}, sv, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	require.NoError(t, q.Enqueue(ctx, tx(1)))

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestQueue_SinkFailureDropsInFlightState(t *testing.T) {
	sv := &fakeStateView{}
	sink := &fakeSink{fail: true}
	q := New(Config{BatchSize: 1, BuildBatchFrequency: time.Hour}, sv, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	require.NoError(t, q.Enqueue(ctx, tx(1)))

	require.Eventually(t, func() bool {
		sv.mu.Lock()
		defer sv.mu.Unlock()
		return len(sv.dropped) == 1
	}, time.Second, 5*time.Millisecond)
}
