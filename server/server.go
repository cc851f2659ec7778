// Package server wires the block-producer's pipeline — Store, State View,
// Tx Queue, Batch Builder, Block Builder — into a single long-lived
// component with a Start/Shutdown lifecycle.
//
// Generalized from the p2p.Node lifecycle in internal/p2p/node.go: the same
// context.WithCancel-owning struct, a Start method that spawns the
// pipeline's background loops as goroutines, and a Shutdown that cancels
// and waits — minus the libp2p host/DHT/pubsub networking, which this
// pipeline has no use for.
package server

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ccoin/blockproducer/internal/batchbuilder"
	"github.com/ccoin/blockproducer/internal/blockbuilder"
	"github.com/ccoin/blockproducer/internal/blockprover"
	"github.com/ccoin/blockproducer/internal/stateview"
	"github.com/ccoin/blockproducer/internal/store"
	"github.com/ccoin/blockproducer/internal/txqueue"
	"github.com/ccoin/blockproducer/pkg/types"
)

// Config collects the settings every pipeline stage needs.
type Config struct {
	TxQueue      txqueue.Config
	BlockBuilder blockbuilder.Config
	// StartBlockNum is the block number the first assembled block will
	// carry; callers reconstruct this from the store's committed chain
	// tip before calling New.
	StartBlockNum uint32
}

// Server is the running block-producer pipeline.
type Server struct {
	cfg   Config
	store store.Store
	log   *zap.Logger

	stateView *stateview.DefaultStateView
	queue     *txqueue.Queue
	builder   *blockbuilder.Builder

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires the pipeline's components together. s is the (already
// connected) store client; prover is the block kernel stand-in.
func New(cfg Config, s store.Store, prover blockprover.Prover, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	sv := stateview.NewDefaultStateView(s, log)
	builder := blockbuilder.New(cfg.BlockBuilder, s, prover, sv, cfg.StartBlockNum, log)
	bb := batchbuilder.New(builder, log)
	queue := txqueue.New(cfg.TxQueue, sv, bb, log)

	return &Server{
		cfg:       cfg,
		store:     s,
		log:       log,
		stateView: sv,
		queue:     queue,
		builder:   builder,
	}
}

// SubmitTransaction accepts a proven transaction into the pipeline, exactly
// as Enqueue does, returning a typed stateview.VerifyTxError on rejection.
func (s *Server) SubmitTransaction(ctx context.Context, tx *types.ProvenTransaction) error {
	return s.queue.Enqueue(ctx, tx)
}

// Start spawns the tx queue and block builder loops. It returns
// immediately; call Shutdown to stop them.
func (s *Server) Start(ctx context.Context) error {
	if s.cancel != nil {
		return fmt.Errorf("server: already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.queue.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.builder.Run(runCtx)
	}()

	s.log.Info("block producer started", zap.Uint32("start_block_num", s.cfg.StartBlockNum))
	return nil
}

// Shutdown cancels the pipeline's background loops and waits for them to
// exit.
func (s *Server) Shutdown() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.log.Info("block producer stopped")
}
