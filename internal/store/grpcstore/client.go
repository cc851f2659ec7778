// Package grpcstore is the production Store implementation: it talks to
// the separate store service over gRPC (the core only
// depends on the Store interface, never on how get_tx_inputs/
// get_block_inputs/apply_block are actually transported).
//
// There is no .proto schema to compile against here, since the store
// service's wire contract is an external deployment boundary outside this
// module (see DESIGN.md): Client calls three fixed method names through a
// JSON codec (codec.go) registered with grpc's encoding registry and
// forced on every call via grpc.ForceCodec, generalizing
// storage.Config/NewPostgresStore's dial-with-options shape
// (internal/storage/postgres.go) from a pgxpool connection string to a
// grpc.ClientConn.
package grpcstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/ccoin/blockproducer/internal/store"
	"github.com/ccoin/blockproducer/pkg/types"
)

const (
	methodGetTxInputs    = "/ccoin.blockproducer.store.v1.Store/GetTxInputs"
	methodGetBlockInputs = "/ccoin.blockproducer.store.v1.Store/GetBlockInputs"
	methodApplyBlock     = "/ccoin.blockproducer.store.v1.Store/ApplyBlock"
)

// Client is a gRPC-backed store.Store.
type Client struct {
	conn *grpc.ClientConn
	log  *zap.Logger
}

// Dial connects to the store service at endpoint. The connection uses
// keepalive pings matching the cadence the rest of the corpus's long-lived
// RPC clients use, so a dead store service is detected without waiting for
// a TCP timeout.
func Dial(endpoint string, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := grpc.Dial(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("grpcstore: dialing %s: %w", endpoint, err)
	}
	return &Client{conn: conn, log: log}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

var _ store.Store = (*Client)(nil)

// GetTxInputs implements store.Store.
func (c *Client) GetTxInputs(ctx context.Context, accountID types.AccountId, nullifiers []types.Nullifier) (store.TxInputs, error) {
	req := &getTxInputsRequest{AccountID: uint64(accountID)}
	for _, n := range nullifiers {
		req.Nullifiers = append(req.Nullifiers, digestToHex(types.Digest(n)))
	}

	resp := new(getTxInputsResponse)
	if err := c.conn.Invoke(ctx, methodGetTxInputs, req, resp); err != nil {
		return store.TxInputs{}, fmt.Errorf("grpcstore: get_tx_inputs: %w", err)
	}

	accountHash, err := optionalDigestFromHex(resp.AccountHash)
	if err != nil {
		return store.TxInputs{}, fmt.Errorf("grpcstore: decoding account_hash: %w", err)
	}

	consumed := make(map[types.Nullifier]bool, len(resp.Nullifiers))
	for hexStr, isConsumed := range resp.Nullifiers {
		d, err := digestFromHex(hexStr)
		if err != nil {
			return store.TxInputs{}, fmt.Errorf("grpcstore: decoding nullifier: %w", err)
		}
		consumed[types.Nullifier(d)] = isConsumed
	}

	return store.TxInputs{AccountHash: accountHash, Nullifiers: consumed}, nil
}

// GetBlockInputs implements store.Store.
func (c *Client) GetBlockInputs(ctx context.Context, accountIDs []types.AccountId, nullifiers []types.Nullifier) (store.BlockInputs, error) {
	req := &getBlockInputsRequest{}
	for _, id := range accountIDs {
		req.AccountIDs = append(req.AccountIDs, uint64(id))
	}
	for _, n := range nullifiers {
		req.Nullifiers = append(req.Nullifiers, digestToHex(types.Digest(n)))
	}

	resp := new(getBlockInputsResponse)
	if err := c.conn.Invoke(ctx, methodGetBlockInputs, req, resp); err != nil {
		return store.BlockInputs{}, fmt.Errorf("grpcstore: get_block_inputs: %w", err)
	}

	prevHeader, err := headerFromWire(resp.PrevBlockHeader)
	if err != nil {
		return store.BlockInputs{}, fmt.Errorf("grpcstore: decoding prev_block_header: %w", err)
	}

	peaks := make([]types.Digest, 0, len(resp.ChainMMRPeaks))
	for _, hexStr := range resp.ChainMMRPeaks {
		d, err := digestFromHex(hexStr)
		if err != nil {
			return store.BlockInputs{}, fmt.Errorf("grpcstore: decoding chain_mmr_peaks: %w", err)
		}
		peaks = append(peaks, d)
	}

	accounts := make([]store.AccountInputRecord, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		hash, err := optionalDigestFromHex(a.AccountHash)
		if err != nil {
			return store.BlockInputs{}, fmt.Errorf("grpcstore: decoding account hash: %w", err)
		}
		proof, err := merklePathFromWire(a.Proof)
		if err != nil {
			return store.BlockInputs{}, fmt.Errorf("grpcstore: decoding account proof: %w", err)
		}
		accounts = append(accounts, store.AccountInputRecord{
			AccountID:   types.AccountId(a.AccountID),
			AccountHash: hash,
			Proof:       proof,
		})
	}

	nullifierRecords := make([]store.NullifierInputRecord, 0, len(resp.Nullifiers))
	for _, n := range resp.Nullifiers {
		d, err := digestFromHex(n.Nullifier)
		if err != nil {
			return store.BlockInputs{}, fmt.Errorf("grpcstore: decoding nullifier: %w", err)
		}
		proof, err := merklePathFromWire(n.Proof)
		if err != nil {
			return store.BlockInputs{}, fmt.Errorf("grpcstore: decoding nullifier proof: %w", err)
		}
		nullifierRecords = append(nullifierRecords, store.NullifierInputRecord{
			Nullifier: types.Nullifier(d),
			Consumed:  n.Consumed,
			Proof:     proof,
		})
	}

	return store.BlockInputs{
		PrevBlockHeader: prevHeader,
		ChainMMRPeaks:   peaks,
		ChainMMRSize:    resp.ChainMMRSize,
		Accounts:        accounts,
		Nullifiers:      nullifierRecords,
	}, nil
}

// ApplyBlock implements store.Store.
func (c *Client) ApplyBlock(ctx context.Context, block *types.Block) error {
	req := &applyBlockRequest{Header: headerToWire(block.Header)}
	for _, u := range block.UpdatedAccounts {
		req.UpdatedAccounts = append(req.UpdatedAccounts, accountUpdateWire{
			AccountID: uint64(u.AccountID),
			FinalHash: digestToHex(u.FinalHash),
		})
	}
	for _, n := range block.Nullifiers {
		req.Nullifiers = append(req.Nullifiers, digestToHex(types.Digest(n)))
	}
	for _, note := range block.CreatedNotes {
		req.CreatedNotes = append(req.CreatedNotes, noteEnvelopeWire{
			NoteID:   digestToHex(note.NoteID),
			Metadata: digestToHex(note.Metadata),
		})
	}

	resp := new(applyBlockResponse)
	if err := c.conn.Invoke(ctx, methodApplyBlock, req, resp); err != nil {
		c.log.Error("apply_block rpc failed", zap.Uint32("block_num", block.Header.BlockNum), zap.Error(err))
		return fmt.Errorf("grpcstore: apply_block: %w", err)
	}
	return nil
}
