package trade

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tradeScope/internal/chain"
	"tradeScope/internal/metrics"
	"tradeScope/internal/model"
)

// TxSource supplies mined transactions and their receipts.
type TxSource interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (model.Transaction, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (model.Receipt, error)
}

// LogDecoder turns receipt logs into swap events.
type LogDecoder interface {
	Decode(ctx context.Context, txHash common.Hash, logs []model.RawLog) ([]model.SwapEvent, []model.DecodeIssue)
}

// ResolverConfig defines resolver options.
type ResolverConfig struct {
	// Native is the wrapped native token used for direction.
	Native  common.Address
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Resolver reconstructs trades from transaction hashes.
type Resolver struct {
	source  TxSource
	decoder LogDecoder
	native  common.Address
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewResolver(source TxSource, decoder LogDecoder, cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		source:  source,
		decoder: decoder,
		native:  cfg.Native,
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

// Native returns the token used for direction classification.
func (r *Resolver) Native() common.Address {
	return r.native
}

// Resolve fetches a transaction and its receipt and classifies its swaps.
// A transaction without recognized swaps is a valid indeterminate trade.
func (r *Resolver) Resolve(ctx context.Context, hash common.Hash) (model.ResolvedTrade, error) {
	tx, err := r.source.TransactionByHash(ctx, hash)
	if err != nil {
		return model.ResolvedTrade{}, wrapFetch("transaction", hash, err)
	}
	return r.ResolveTransaction(ctx, tx)
}

// ResolveTransaction resolves an already fetched transaction.
func (r *Resolver) ResolveTransaction(ctx context.Context, tx model.Transaction) (model.ResolvedTrade, error) {
	receipt, err := r.source.TransactionReceipt(ctx, tx.Hash)
	if err != nil {
		return model.ResolvedTrade{}, wrapFetch("receipt", tx.Hash, err)
	}
	if tx.BlockHash == (common.Hash{}) {
		tx.BlockHash = receipt.BlockHash
	}
	if tx.BlockNumber == 0 {
		tx.BlockNumber = receipt.BlockNumber
	}

	swaps, issues := r.decoder.Decode(ctx, tx.Hash, receipt.Logs)
	r.metrics.Decoded(swaps, issues)
	if len(issues) > 0 {
		r.logger.Debug("decode issues",
			zap.String("tx", tx.Hash.Hex()),
			zap.Int("swaps", len(swaps)),
			zap.Int("dropped", len(issues)),
		)
	}

	return model.ResolvedTrade{
		Transaction: tx,
		Trade:       Classify(tx.Hash, swaps, r.native),
	}, nil
}

func wrapFetch(what string, hash common.Hash, err error) error {
	if chain.IsNotFound(err) {
		return fmt.Errorf("%s %s: %w", what, hash.Hex(), ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w: %w", what, hash.Hex(), ErrDataUnavailable, err)
}
