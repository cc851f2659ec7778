// Package sqlstore is an optional Postgres-backed store.Store
// implementation for local development: a durable cache standing in for
// the real store service so the block-producer can be run end-to-end
// against a database instead of the in-memory memstore (the
// production store is a separate service; this package is the dev/test
// sidecar described in SPEC_FULL.md's domain stack).
//
// Adapted from PostgresStore (internal/storage/postgres.go):
// the same pgxpool.Pool-holding struct, connection-string Config, and
// ErrNotFound/ErrDBConnection sentinel pattern, generalized from a
// DAG-of-blocks schema (blocks/transactions/nullifiers tables keyed by
// hash/height) to the block-producer's three tables (accounts, nullifiers,
// chain_tip) keyed by account id and a single linear chain.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ccoin/blockproducer/internal/merkle"
	"github.com/ccoin/blockproducer/internal/store"
	"github.com/ccoin/blockproducer/pkg/types"
)

// Common errors, mirroring the storage package's sentinel style.
var (
	ErrNotFound     = errors.New("sqlstore: not found")
	ErrDBConnection = errors.New("sqlstore: database connection error")
)

// Config holds Postgres connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultConfig returns the original default connection settings, renamed
// to this store's own database.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "blockproducer",
		Password: "",
		Database: "blockproducer",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

// Store implements store.Store against a Postgres database.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New connects to Postgres and pings it before returning.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the store's tables if they do not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			account_id   BIGINT PRIMARY KEY,
			account_hash BYTEA NOT NULL
		);
		CREATE TABLE IF NOT EXISTS nullifiers (
			nullifier  BYTEA PRIMARY KEY,
			block_num  BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chain_tip (
			id        BOOLEAN PRIMARY KEY DEFAULT TRUE,
			header    BYTEA,
			mmr_peaks BYTEA[] NOT NULL DEFAULT '{}',
			mmr_size  BIGINT NOT NULL DEFAULT 0,
			CONSTRAINT chain_tip_singleton CHECK (id)
		);
	`)
	if err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

// GetTxInputs implements store.Store.
func (s *Store) GetTxInputs(ctx context.Context, accountID types.AccountId, nullifiers []types.Nullifier) (store.TxInputs, error) {
	var accountHash *types.Digest
	var hashBytes []byte
	err := s.pool.QueryRow(ctx, `SELECT account_hash FROM accounts WHERE account_id = $1`, uint64(accountID)).Scan(&hashBytes)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		accountHash = nil
	case err != nil:
		return store.TxInputs{}, fmt.Errorf("sqlstore: query account: %w", err)
	default:
		d, decodeErr := types.DigestFromBytes(hashBytes)
		if decodeErr != nil {
			return store.TxInputs{}, fmt.Errorf("sqlstore: decode account_hash: %w", decodeErr)
		}
		accountHash = &d
	}

	consumed := make(map[types.Nullifier]bool, len(nullifiers))
	for _, n := range nullifiers {
		var exists bool
		err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM nullifiers WHERE nullifier = $1)`, types.Digest(n).Bytes()).Scan(&exists)
		if err != nil {
			return store.TxInputs{}, fmt.Errorf("sqlstore: query nullifier: %w", err)
		}
		consumed[n] = exists
	}

	return store.TxInputs{AccountHash: accountHash, Nullifiers: consumed}, nil
}

// GetBlockInputs implements store.Store.
func (s *Store) GetBlockInputs(ctx context.Context, accountIDs []types.AccountId, nullifiers []types.Nullifier) (store.BlockInputs, error) {
	prevHeader, peaks, size, err := s.readChainTip(ctx)
	if err != nil {
		return store.BlockInputs{}, err
	}

	accounts := make([]store.AccountInputRecord, 0, len(accountIDs))
	for _, id := range accountIDs {
		var hashBytes []byte
		err := s.pool.QueryRow(ctx, `SELECT account_hash FROM accounts WHERE account_id = $1`, uint64(id)).Scan(&hashBytes)
		rec := store.AccountInputRecord{AccountID: id}
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// rec.AccountHash stays nil: brand-new account.
		case err != nil:
			return store.BlockInputs{}, fmt.Errorf("sqlstore: query account: %w", err)
		default:
			d, decodeErr := types.DigestFromBytes(hashBytes)
			if decodeErr != nil {
				return store.BlockInputs{}, fmt.Errorf("sqlstore: decode account_hash: %w", decodeErr)
			}
			rec.AccountHash = &d
		}
		accounts = append(accounts, rec)
	}

	nullifierRecords := make([]store.NullifierInputRecord, 0, len(nullifiers))
	for _, n := range nullifiers {
		var exists bool
		err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM nullifiers WHERE nullifier = $1)`, types.Digest(n).Bytes()).Scan(&exists)
		if err != nil {
			return store.BlockInputs{}, fmt.Errorf("sqlstore: query nullifier: %w", err)
		}
		nullifierRecords = append(nullifierRecords, store.NullifierInputRecord{Nullifier: n, Consumed: exists})
	}

	return store.BlockInputs{
		PrevBlockHeader: prevHeader,
		ChainMMRPeaks:   peaks,
		ChainMMRSize:    size,
		Accounts:        accounts,
		Nullifiers:      nullifierRecords,
	}, nil
}

func (s *Store) readChainTip(ctx context.Context) (*types.BlockHeader, []types.Digest, uint64, error) {
	var headerBytes []byte
	var peakBytes [][]byte
	var size uint64
	err := s.pool.QueryRow(ctx, `SELECT header, mmr_peaks, mmr_size FROM chain_tip WHERE id = TRUE`).Scan(&headerBytes, &peakBytes, &size)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, 0, nil
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("sqlstore: query chain_tip: %w", err)
	}

	var header *types.BlockHeader
	if headerBytes != nil {
		h, decodeErr := decodeHeader(headerBytes)
		if decodeErr != nil {
			return nil, nil, 0, decodeErr
		}
		header = h
	}

	peaks := make([]types.Digest, 0, len(peakBytes))
	for _, b := range peakBytes {
		d, decodeErr := types.DigestFromBytes(b)
		if decodeErr != nil {
			return nil, nil, 0, fmt.Errorf("sqlstore: decode mmr peak: %w", decodeErr)
		}
		peaks = append(peaks, d)
	}
	return header, peaks, size, nil
}

// ApplyBlock implements store.Store: it commits the account/nullifier
// updates and advances the chain tip in a single transaction.
func (s *Store) ApplyBlock(ctx context.Context, block *types.Block) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: begin apply_block: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, update := range block.UpdatedAccounts {
		_, err := tx.Exec(ctx, `
			INSERT INTO accounts (account_id, account_hash) VALUES ($1, $2)
			ON CONFLICT (account_id) DO UPDATE SET account_hash = $2
		`, uint64(update.AccountID), update.FinalHash.Bytes())
		if err != nil {
			return fmt.Errorf("sqlstore: upsert account: %w", err)
		}
	}

	for _, n := range block.Nullifiers {
		_, err := tx.Exec(ctx, `
			INSERT INTO nullifiers (nullifier, block_num) VALUES ($1, $2)
			ON CONFLICT (nullifier) DO NOTHING
		`, types.Digest(n).Bytes(), block.Header.BlockNum)
		if err != nil {
			return fmt.Errorf("sqlstore: insert nullifier: %w", err)
		}
	}

	_, peaks, size, err := s.readChainTipTx(ctx, tx)
	if err != nil {
		return err
	}
	mmr := merkle.FromPeaks(peaks, size)
	mmr.Append(store.HeaderDigest(block.Header))

	peakBytes := make([][]byte, 0, len(mmr.Peaks()))
	for _, p := range mmr.Peaks() {
		peakBytes = append(peakBytes, p.Bytes())
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO chain_tip (id, header, mmr_peaks, mmr_size) VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET header = $1, mmr_peaks = $2, mmr_size = $3
	`, encodeHeader(block.Header), peakBytes, mmr.Size())
	if err != nil {
		return fmt.Errorf("sqlstore: update chain_tip: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sqlstore: commit apply_block: %w", err)
	}
	return nil
}

func (s *Store) readChainTipTx(ctx context.Context, tx pgx.Tx) (*types.BlockHeader, []types.Digest, uint64, error) {
	var headerBytes []byte
	var peakBytes [][]byte
	var size uint64
	err := tx.QueryRow(ctx, `SELECT header, mmr_peaks, mmr_size FROM chain_tip WHERE id = TRUE`).Scan(&headerBytes, &peakBytes, &size)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, 0, nil
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("sqlstore: query chain_tip: %w", err)
	}
	peaks := make([]types.Digest, 0, len(peakBytes))
	for _, b := range peakBytes {
		d, decodeErr := types.DigestFromBytes(b)
		if decodeErr != nil {
			return nil, nil, 0, fmt.Errorf("sqlstore: decode mmr peak: %w", decodeErr)
		}
		peaks = append(peaks, d)
	}
	return nil, peaks, size, nil
}
