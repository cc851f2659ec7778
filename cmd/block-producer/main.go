// Command block-producer runs the zero-knowledge rollup block producer
// daemon: it accepts proven transactions, batches them, assembles blocks,
// and commits them to a store service.
//
// Generalized from cmd/ccoind/main.go: flag/viper
// parsing, a signal-driven context.Context, ordered component
// construction, and a deferred shutdown — minus the PoUW mining and P2P
// networking cmd/ccoind also bootstraps, which this daemon does not
// need.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ccoin/blockproducer/internal/blockbuilder"
	"github.com/ccoin/blockproducer/internal/blockprover"
	"github.com/ccoin/blockproducer/internal/config"
	"github.com/ccoin/blockproducer/internal/logging"
	"github.com/ccoin/blockproducer/internal/store"
	"github.com/ccoin/blockproducer/internal/store/grpcstore"
	"github.com/ccoin/blockproducer/internal/txqueue"
	"github.com/ccoin/blockproducer/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "block-producer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	storeClient, err := grpcstore.Dial(cfg.StoreEndpoint, log)
	if err != nil {
		return fmt.Errorf("connecting to store: %w", err)
	}
	defer storeClient.Close() //nolint:errcheck

	prover := blockprover.NewDefaultProver()

	startBlockNum, err := nextBlockNum(ctx, storeClient)
	if err != nil {
		return fmt.Errorf("determining start block number: %w", err)
	}

	srvCfg := server.Config{
		TxQueue: txqueue.Config{
			BatchSize:           cfg.BatchSize,
			BuildBatchFrequency: cfg.BuildBatchFrequency,
		},
		BlockBuilder: blockbuilder.Config{
			BlockFrequency:     cfg.BlockFrequency,
			MaxBatchesPerBlock: cfg.MaxBatchesPerBlock,
		},
		StartBlockNum: startBlockNum,
	}

	srv := server.New(srvCfg, storeClient, prover, log)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	defer srv.Shutdown()

	<-ctx.Done()
	return nil
}

// nextBlockNum derives the block number the first block this daemon run
// assembles should carry, by asking the store for its committed chain
// tip: one past the tip's block number, or 1 for a chain with no
// committed blocks yet. Restarting against a store that already has
// history must never reuse an old block number, since that would corrupt
// prev_hash/MMR continuity downstream in the store service.
func nextBlockNum(ctx context.Context, s store.Store) (uint32, error) {
	inputs, err := s.GetBlockInputs(ctx, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("fetching chain tip: %w", err)
	}
	if inputs.PrevBlockHeader == nil {
		return 1, nil
	}
	return inputs.PrevBlockHeader.BlockNum + 1, nil
}
