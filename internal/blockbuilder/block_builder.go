// Package blockbuilder periodically assembles a Block from pending
// batches, drives the prover, and applies the result to the store.
//
// The orchestration loop (periodic timer and size-threshold trigger) is
// generalized from the epoch-transition loop shape
// (internal/consensus), adapted from block-height-driven consensus
// rounds to batch-count/time-driven block assembly; the single-pending-
// block invariant (one block at a time, no fork choice) is enforced by
// Builder never starting a second buildBlock while one is in flight.
package blockbuilder

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ccoin/blockproducer/internal/blockprover"
	"github.com/ccoin/blockproducer/internal/blockwitness"
	"github.com/ccoin/blockproducer/internal/store"
	"github.com/ccoin/blockproducer/pkg/types"
)

// HardMaxBatchesPerBlock is 2^CREATED_NOTES_TREE_INSERTION_DEPTH: the
// absolute ceiling on batches per block imposed by the notes tree's
// 8-bit batch-index prefix.
const HardMaxBatchesPerBlock = 256

// StateView is the subset of the state-view capability the block builder
// needs: releasing in-flight entries once their block has committed.
type StateView interface {
	DropTransactions(txs []*types.ProvenTransaction)
}

// Config controls the block builder's assembly cadence.
type Config struct {
	// BlockFrequency is the maximum time a non-empty pending-batch list
	// waits before a block is assembled (SERVER_BLOCK_FREQUENCY, default
	// 10s).
	BlockFrequency time.Duration
	// MaxBatchesPerBlock is both the size-threshold trigger and, when it
	// is not raised above HardMaxBatchesPerBlock, the effective ceiling
	// (SERVER_MAX_BATCHES_PER_BLOCK, default 4).
	MaxBatchesPerBlock int
}

// DefaultConfig returns the default block-assembly cadence.
func DefaultConfig() Config {
	return Config{
		BlockFrequency:     10 * time.Second,
		MaxBatchesPerBlock: 4,
	}
}

// Builder assembles committed blocks from the batches the batch builder
// publishes.
type Builder struct {
	mu      sync.Mutex
	pending []*types.TransactionBatch

	cfg      Config
	store    store.Store
	prover   blockprover.Prover
	sv       StateView
	log      *zap.Logger
	nextNum  uint32
	kick     chan struct{}
	building sync.Mutex // held for the duration of a single buildBlock call
}

// New builds a Builder. cfg is copied; zero fields fall back to
// DefaultConfig's values. startBlockNum is the block number the first
// assembled block will carry (one past the chain's current tip).
func New(cfg Config, s store.Store, prover blockprover.Prover, sv StateView, startBlockNum uint32, log *zap.Logger) *Builder {
	if cfg.BlockFrequency <= 0 {
		cfg.BlockFrequency = DefaultConfig().BlockFrequency
	}
	if cfg.MaxBatchesPerBlock <= 0 {
		cfg.MaxBatchesPerBlock = DefaultConfig().MaxBatchesPerBlock
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		cfg:     cfg,
		store:   s,
		prover:  prover,
		sv:      sv,
		log:     log,
		nextNum: startBlockNum,
		kick:    make(chan struct{}, 1),
	}
}

// AddBatch implements batchbuilder.BatchSink: it appends batch to the
// pending list and, once MaxBatchesPerBlock is reached, requests an
// immediate assembly.
func (b *Builder) AddBatch(_ context.Context, batch *types.TransactionBatch) error {
	b.mu.Lock()
	b.pending = append(b.pending, batch)
	full := len(b.pending) >= b.cfg.MaxBatchesPerBlock
	b.mu.Unlock()

	if full {
		b.requestBuild()
	}
	return nil
}

func (b *Builder) requestBuild() {
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

// Run drives block assembly until ctx is cancelled.
func (b *Builder) Run(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.BlockFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.buildBlock(ctx)
		case <-b.kick:
			b.buildBlock(ctx)
			ticker.Reset(b.cfg.BlockFrequency)
		}
	}
}

// buildBlock runs one assembly attempt. The block builder is
// single-threaded: buildBlock never overlaps itself, so apply_block for
// block N always completes before block N+1's witness is constructed
// to avoid two blocks being assembled against the same store state.
func (b *Builder) buildBlock(ctx context.Context) {
	b.building.Lock()
	defer b.building.Unlock()

	batches := b.takePending()
	if len(batches) == 0 {
		return
	}

	if len(batches) > HardMaxBatchesPerBlock {
		b.log.Error("too many batches in block, retaining for retry",
			zap.Error(&TooManyBatchesInBlockError{Count: len(batches)}))
		b.restorePending(batches)
		return
	}

	if err := b.assembleAndApply(ctx, batches); err != nil {
		b.log.Error("block assembly failed, retaining batches for retry",
			zap.Error(err), zap.Int("batch_count", len(batches)))
		// Conservative recovery (see DESIGN.md): the constructed block is
		// discarded and the batches go back to the front of the pending
		// list, so the next attempt rebuilds a block from the same
		// transactions against fresh store inputs. Their in-flight
		// entries stay in place until that block is applied.
		b.restorePending(batches)
		return
	}
}

func (b *Builder) assembleAndApply(ctx context.Context, batches []*types.TransactionBatch) error {
	accountIDs, nullifiers := collectTouched(batches)

	inputs, err := b.store.GetBlockInputs(ctx, accountIDs, nullifiers)
	if err != nil {
		return &store.GetBlockInputsError{Cause: err}
	}

	witness, err := blockwitness.New(inputs, batches)
	if err != nil {
		return err
	}

	header, err := b.prover.Prove(ctx, witness, b.nextNum)
	if err != nil {
		return err
	}

	block := types.NewBlock(header, accountUpdates(witness), consumedNullifiers(witness), createdNotes(batches))

	if err := b.store.ApplyBlock(ctx, block); err != nil {
		return &store.ApplyBlockError{Cause: err}
	}

	b.nextNum++
	b.sv.DropTransactions(allTxs(batches))
	b.log.Info("block applied", zap.Uint32("block_num", header.BlockNum), zap.Int("batches", len(batches)))
	return nil
}

func (b *Builder) takePending() []*types.TransactionBatch {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	n := len(b.pending)
	if n > b.cfg.MaxBatchesPerBlock {
		n = b.cfg.MaxBatchesPerBlock
	}
	batches := b.pending[:n:n]
	b.pending = append([]*types.TransactionBatch(nil), b.pending[n:]...)
	return batches
}

func (b *Builder) restorePending(batches []*types.TransactionBatch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(batches, b.pending...)
}

func collectTouched(batches []*types.TransactionBatch) ([]types.AccountId, []types.Nullifier) {
	seenAccounts := make(map[types.AccountId]struct{})
	var accountIDs []types.AccountId
	var nullifiers []types.Nullifier
	for _, batch := range batches {
		for _, id := range batch.UpdatedAccounts() {
			if _, ok := seenAccounts[id]; ok {
				continue
			}
			seenAccounts[id] = struct{}{}
			accountIDs = append(accountIDs, id)
		}
		nullifiers = append(nullifiers, batch.ConsumedNullifiers()...)
	}
	return accountIDs, nullifiers
}

func accountUpdates(witness *blockwitness.Witness) []types.AccountUpdate {
	out := make([]types.AccountUpdate, 0, len(witness.Accounts))
	for _, a := range witness.Accounts {
		out = append(out, types.AccountUpdate{AccountID: a.AccountID, FinalHash: a.FinalHash})
	}
	return out
}

func consumedNullifiers(witness *blockwitness.Witness) []types.Nullifier {
	out := make([]types.Nullifier, 0, len(witness.Nullifiers))
	for _, n := range witness.Nullifiers {
		out = append(out, n.Nullifier)
	}
	return out
}

func createdNotes(batches []*types.TransactionBatch) []types.NoteEnvelope {
	var out []types.NoteEnvelope
	for _, batch := range batches {
		for _, tx := range batch.Transactions {
			out = append(out, tx.OutputNotes...)
		}
	}
	return out
}

func allTxs(batches []*types.TransactionBatch) []*types.ProvenTransaction {
	var out []*types.ProvenTransaction
	for _, batch := range batches {
		out = append(out, batch.Transactions...)
	}
	return out
}
