package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradeScope/internal/model"
	"tradeScope/internal/sink"
)

const schema = `
CREATE TABLE IF NOT EXISTS large_trades (
	chain_id      BIGINT      NOT NULL,
	tx_hash       TEXT        NOT NULL,
	block_number  BIGINT      NOT NULL,
	block_hash    TEXT        NOT NULL,
	tx_index      INTEGER     NOT NULL,
	sender        TEXT        NOT NULL,
	recipient     TEXT,
	value_wei     NUMERIC(78) NOT NULL,
	direction     TEXT        NOT NULL,
	protocols     TEXT[]      NOT NULL,
	pools         TEXT[]      NOT NULL,
	spent         JSONB       NOT NULL,
	received      JSONB       NOT NULL,
	swaps         JSONB       NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, tx_hash)
);
CREATE TABLE IF NOT EXISTS large_transfers (
	chain_id      BIGINT      NOT NULL,
	tx_hash       TEXT        NOT NULL,
	log_index     INTEGER     NOT NULL,
	block_number  BIGINT      NOT NULL,
	token         TEXT        NOT NULL,
	sender        TEXT        NOT NULL,
	recipient     TEXT        NOT NULL,
	value_raw     NUMERIC(78) NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, tx_hash, log_index)
);
CREATE TABLE IF NOT EXISTS watch_state (
	name                 TEXT        PRIMARY KEY,
	last_processed_block BIGINT      NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store persists emitted matches in Postgres.
type Store struct {
	pool    *pgxpool.Pool
	chainID uint64
}

func NewStore(ctx context.Context, dsn string, chainID uint64) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, chainID: chainID}, nil
}

// EnsureSchema creates the match tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) Name() string { return "postgres" }

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Publish upserts a trade or transfer record.
func (s *Store) Publish(ctx context.Context, rec sink.Record) error {
	switch r := rec.(type) {
	case model.TradeRecord:
		return s.UpsertTrades(ctx, []model.TradeRecord{r})
	case model.TransferRecord:
		return s.UpsertTransfers(ctx, []model.TransferRecord{r})
	default:
		return fmt.Errorf("unsupported record type %T", rec)
	}
}

// UpsertTrades inserts or refreshes large trades keyed by transaction hash.
func (s *Store) UpsertTrades(ctx context.Context, trades []model.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range trades {
		spent, err := json.Marshal(t.Spent)
		if err != nil {
			return fmt.Errorf("marshal spent: %w", err)
		}
		received, err := json.Marshal(t.Received)
		if err != nil {
			return fmt.Errorf("marshal received: %w", err)
		}
		swaps, err := json.Marshal(t.Swaps)
		if err != nil {
			return fmt.Errorf("marshal swaps: %w", err)
		}
		var recipient *string
		if t.To != "" {
			to := t.To
			recipient = &to
		}
		batch.Queue(`
			INSERT INTO large_trades (
				chain_id, tx_hash, block_number, block_hash, tx_index, sender, recipient, value_wei,
				direction, protocols, pools, spent, received, swaps, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11, $12, $13, $14, now(), now())
			ON CONFLICT (chain_id, tx_hash)
			DO UPDATE SET
				block_number = EXCLUDED.block_number,
				block_hash = EXCLUDED.block_hash,
				tx_index = EXCLUDED.tx_index,
				direction = EXCLUDED.direction,
				protocols = EXCLUDED.protocols,
				pools = EXCLUDED.pools,
				spent = EXCLUDED.spent,
				received = EXCLUDED.received,
				swaps = EXCLUDED.swaps,
				updated_at = now()
		`,
			int64(s.chainID),
			t.TxHash,
			int64(t.BlockNumber),
			t.BlockHash,
			int32(t.TxIndex),
			t.From,
			recipient,
			t.Value,
			t.Direction,
			t.Protocols,
			t.Pools,
			spent,
			received,
			swaps,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range trades {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertTransfers inserts large transfers, ignoring ones already stored.
func (s *Store) UpsertTransfers(ctx context.Context, transfers []model.TransferRecord) error {
	if len(transfers) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range transfers {
		batch.Queue(`
			INSERT INTO large_transfers (
				chain_id, tx_hash, log_index, block_number, token, sender, recipient, value_raw, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, now())
			ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
		`,
			int64(s.chainID),
			t.TxHash,
			int32(t.LogIndex),
			int64(t.BlockNumber),
			t.Token,
			t.From,
			t.To,
			t.Value,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range transfers {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed block stored under name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM watch_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts the last processed block for name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO watch_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, int64(block))
	return err
}

// Cursor stores watch progress in the watch_state table.
type Cursor struct {
	Store *Store
	Name  string
}

func (c *Cursor) Load(ctx context.Context) (uint64, bool, error) {
	if c == nil || c.Store == nil {
		return 0, false, nil
	}
	return c.Store.LoadState(ctx, c.Name)
}

func (c *Cursor) Save(ctx context.Context, block uint64) error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.SaveState(ctx, c.Name, block)
}
