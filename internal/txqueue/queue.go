// Package txqueue buffers transactions that have passed state-view
// verification and releases them to the batch builder in fixed-size,
// FIFO-ordered chunks, gated by a timer or a size threshold.
package txqueue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ccoin/blockproducer/pkg/types"
)

// StateView is the subset of the state-view capability the queue needs:
// verification on enqueue, and release of in-flight entries when a chunk
// the batch builder rejects must be abandoned.
type StateView interface {
	VerifyTx(ctx context.Context, tx *types.ProvenTransaction) error
	DropTransactions(txs []*types.ProvenTransaction)
}

// ChunkSink receives drained chunks of transactions for batch assembly.
type ChunkSink interface {
	BuildBatch(ctx context.Context, txs []*types.ProvenTransaction) error
}

// Config controls the queue's chunking policy.
type Config struct {
	// BatchSize is the maximum number of transactions drained per chunk
	// (SERVER_BATCH_SIZE, default 2).
	BatchSize int
	// BuildBatchFrequency is the maximum time a non-empty queue waits
	// before draining even if BatchSize hasn't been reached
	// (SERVER_BUILD_BATCH_FREQUENCY, default 2s).
	BuildBatchFrequency time.Duration
}

// DefaultConfig returns the default chunking policy.
func DefaultConfig() Config {
	return Config{
		BatchSize:           2,
		BuildBatchFrequency: 2 * time.Second,
	}
}

// Queue is a FIFO buffer of verified transactions awaiting release to the
// batch builder.
//
// Adapted from Mempool (internal/mempool/mempool.go): the
// priority-by-fee queue and nullifier-conflict bookkeeping are dropped
// (conflict detection is the state view's job, and ordering is plain FIFO
// not a fee market), but the mutex-guarded slice buffer and the
// Add/Remove-style entry points carry over directly.
type Queue struct {
	mu     sync.Mutex
	buffer []*types.ProvenTransaction

	cfg  Config
	sv   StateView
	sink ChunkSink
	log  *zap.Logger

	kick chan struct{}
}

// New builds a Queue. cfg is copied; zero fields fall back to
// DefaultConfig's values.
func New(cfg Config, sv StateView, sink ChunkSink, log *zap.Logger) *Queue {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.BuildBatchFrequency <= 0 {
		cfg.BuildBatchFrequency = DefaultConfig().BuildBatchFrequency
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		cfg:  cfg,
		sv:   sv,
		sink: sink,
		log:  log,
		kick: make(chan struct{}, 1),
	}
}

// Enqueue verifies tx against the state view and, on success, appends it
// to the buffer. On failure the transaction is not queued and the
// VerifyTx error is returned unchanged to the caller.
func (q *Queue) Enqueue(ctx context.Context, tx *types.ProvenTransaction) error {
	if err := q.sv.VerifyTx(ctx, tx); err != nil {
		return err
	}

	q.mu.Lock()
	q.buffer = append(q.buffer, tx)
	full := len(q.buffer) >= q.cfg.BatchSize
	q.mu.Unlock()

	if full {
		q.requestDrain()
	}
	return nil
}

// requestDrain signals the run loop to drain immediately without blocking
// if a request is already pending.
func (q *Queue) requestDrain() {
	select {
	case q.kick <- struct{}{}:
	default:
	}
}

// Run drives the chunking policy until ctx is cancelled: it drains the
// buffer whenever BuildBatchFrequency elapses or a size-triggered kick
// arrives, whichever comes first.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.BuildBatchFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.drain(ctx)
		case <-q.kick:
			q.drain(ctx)
			ticker.Reset(q.cfg.BuildBatchFrequency)
		}
	}
}

// drain removes up to BatchSize transactions from the front of the
// buffer, FIFO, and hands them to the sink. A sink failure drops the
// chunk's in-flight state so its transactions can be resubmitted.
func (q *Queue) drain(ctx context.Context) {
	q.mu.Lock()
	if len(q.buffer) == 0 {
		q.mu.Unlock()
		return
	}
	n := q.cfg.BatchSize
	if n > len(q.buffer) {
		n = len(q.buffer)
	}
	chunk := append([]*types.ProvenTransaction(nil), q.buffer[:n]...)
	q.buffer = append([]*types.ProvenTransaction(nil), q.buffer[n:]...)
	q.mu.Unlock()

	if err := q.sink.BuildBatch(ctx, chunk); err != nil {
		q.log.Warn("batch builder rejected chunk, dropping in-flight state",
			zap.Int("chunk_size", len(chunk)), zap.Error(err))
		q.sv.DropTransactions(chunk)
		return
	}

	q.log.Debug("chunk drained to batch builder", zap.Int("chunk_size", len(chunk)))
}

// Len returns the number of transactions currently buffered.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffer)
}
