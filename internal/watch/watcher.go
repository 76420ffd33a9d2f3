package watch

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradeScope/internal/chain"
	"tradeScope/internal/metrics"
	"tradeScope/internal/model"
)

const defaultPollInterval = 12 * time.Second

// ChainReader is the chain access the block watch needs.
type ChainReader interface {
	BlockSummary(ctx context.Context, number *big.Int) (*model.BlockSummary, error)
	BlockInterval(ctx context.Context) (time.Duration, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (model.Transaction, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (model.Receipt, error)
}

// TradeResolver reconstructs the trade of a fetched transaction.
type TradeResolver interface {
	ResolveTransaction(ctx context.Context, tx model.Transaction) (model.ResolvedTrade, error)
}

// Config holds runtime settings for the block watch.
type Config struct {
	// PollInterval overrides the chain block interval when positive.
	PollInterval time.Duration
	// Concurrency bounds parallel transaction evaluation within a block.
	Concurrency int
	// MaxCatchUp bounds how many missed blocks one poll evaluates; 0 is unbounded.
	MaxCatchUp uint64
	// VerifyCanonical re-reads receipts on release and drops reorged candidates.
	VerifyCanonical bool
	MaxRetries      int
	RetryBackoff    time.Duration
}

// Watcher polls new blocks and emits transactions meeting a threshold.
type Watcher struct {
	chain    ChainReader
	resolver TradeResolver
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewWatcher(chainReader ChainReader, resolver TradeResolver, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Watcher{
		chain:    chainReader,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

// Watch starts a watch session. Matches arrive in block order and, within a
// block, in transaction order. The stream never restarts once it has ended.
func (w *Watcher) Watch(ctx context.Context, threshold model.WatchThreshold) *Stream[model.ResolvedTrade] {
	return startStream(ctx, func(ctx context.Context, emit func(model.ResolvedTrade) bool) error {
		return w.run(ctx, threshold, emit)
	})
}

func (w *Watcher) run(ctx context.Context, threshold model.WatchThreshold, emit func(model.ResolvedTrade) bool) error {
	interval, err := w.pollInterval(ctx)
	if err != nil {
		return err
	}

	minValue := "0"
	if threshold.MinValue != nil {
		minValue = threshold.MinValue.String()
	}
	w.logger.Info("watch started",
		zap.String("min_value", minValue),
		zap.Uint64("min_confirmations", threshold.MinConfirmations),
		zap.Duration("poll_interval", interval),
		zap.Int("concurrency", w.cfg.Concurrency),
	)

	var (
		pending  pendingQueue
		lastSeen uint64
		started  bool
	)
	defer func() {
		if n := pending.Len(); n > 0 {
			w.logger.Info("discarding held candidates", zap.Int("count", n))
		}
		pending.clear()
		w.metrics.Held(0)
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		head, err := w.fetchBlock(ctx, nil)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil && chain.IsFatal(err):
			return terminate(fmt.Errorf("fetch head: %w", err))
		case err != nil:
			w.metrics.PollFailed()
			w.logger.Warn("fetch head failed", zap.Error(err))
		case head == nil:
			w.logger.Debug("node reported no head block")
		default:
			head.Interval = interval
			w.metrics.Head(head.Number)

			span, skipped, ok := catchUpRange(lastSeen, started, head.Number, w.cfg.MaxCatchUp)
			if skipped > 0 {
				w.logger.Warn("head gap exceeds catch-up limit, skipping blocks",
					zap.Uint64("from", lastSeen+1),
					zap.Uint64("skipped", skipped),
					zap.Uint64("head", head.Number),
				)
			}
			if ok {
				last, progressed, err := w.processRange(ctx, span, head, threshold, &pending, emit)
				if err != nil {
					return err
				}
				if progressed {
					lastSeen, started = last, true
				}
			}

			if err := w.release(ctx, head.Number, &pending, emit); err != nil {
				return err
			}
			w.metrics.Held(pending.Len())
		}

		if !sleep(ctx, interval) {
			return nil
		}
	}
}

// processRange evaluates span in order. It returns the last fully evaluated
// block, if any; a transient block fetch failure stops early so the next poll
// resumes from there.
func (w *Watcher) processRange(
	ctx context.Context,
	span BlockRange,
	head *model.BlockSummary,
	threshold model.WatchThreshold,
	pending *pendingQueue,
	emit func(model.ResolvedTrade) bool,
) (last uint64, progressed bool, err error) {
	for n := span.From; n <= span.To; n++ {
		block := head
		if n != head.Number {
			block, err = w.fetchBlock(ctx, new(big.Int).SetUint64(n))
			if ctx.Err() != nil {
				return last, progressed, nil
			}
			if err != nil {
				if chain.IsFatal(err) {
					return last, progressed, terminate(fmt.Errorf("fetch block %d: %w", n, err))
				}
				w.metrics.PollFailed()
				w.logger.Warn("fetch block failed", zap.Uint64("block", n), zap.Error(err))
				return last, progressed, nil
			}
			if block == nil {
				w.logger.Debug("block not available yet", zap.Uint64("block", n))
				return last, progressed, nil
			}
		}

		started := time.Now()
		matches, err := w.evaluate(ctx, block, threshold)
		if ctx.Err() != nil {
			return last, progressed, nil
		}
		if err != nil {
			return last, progressed, terminate(fmt.Errorf("evaluate block %d: %w", n, err))
		}
		w.metrics.BlockProcessed(block.Number, time.Since(started))
		w.logger.Debug("block evaluated",
			zap.Uint64("block", block.Number),
			zap.Int("txs", len(block.TxHashes)),
			zap.Int("matches", len(matches)),
		)

		for _, match := range matches {
			if threshold.MinConfirmations == 0 {
				if !emit(match) {
					return last, progressed, nil
				}
				w.metrics.MatchEmitted()
				continue
			}
			pending.push(match, block.Number+threshold.MinConfirmations)
		}
		last, progressed = n, true
	}
	return last, progressed, nil
}

// evaluate resolves the qualifying transactions of one block. Resolution runs
// in parallel; results keep the block's transaction order. Only fatal errors
// are returned, everything else is a per-transaction skip.
func (w *Watcher) evaluate(ctx context.Context, block *model.BlockSummary, threshold model.WatchThreshold) ([]model.ResolvedTrade, error) {
	results := make([]*model.ResolvedTrade, len(block.TxHashes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for i, hash := range block.TxHashes {
		i, hash := i, hash
		g.Go(func() error {
			match, err := w.evaluateTx(gctx, hash, threshold)
			if err != nil {
				if chain.IsFatal(err) {
					return err
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
				w.metrics.ResolveFailed()
				w.logger.Warn("skip transaction",
					zap.Uint64("block", block.Number),
					zap.String("tx", hash.Hex()),
					zap.Error(err),
				)
				return nil
			}
			results[i] = match
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matches := make([]model.ResolvedTrade, 0)
	for _, r := range results {
		if r != nil {
			matches = append(matches, *r)
		}
	}
	return matches, nil
}

// evaluateTx applies the value threshold before asking for the receipt. Both
// fetches get the configured retries before the transaction is skipped.
func (w *Watcher) evaluateTx(ctx context.Context, hash common.Hash, threshold model.WatchThreshold) (*model.ResolvedTrade, error) {
	var tx model.Transaction
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		tx, err = w.chain.TransactionByHash(ctx, hash)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}
	w.metrics.TxChecked()
	if !threshold.Qualifies(tx.Value) {
		return nil, nil
	}

	// Receipts can lag the block on load-balanced nodes.
	var resolved model.ResolvedTrade
	err = withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		resolved, err = w.resolver.ResolveTransaction(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}

// release emits held candidates whose release height head has reached.
func (w *Watcher) release(ctx context.Context, head uint64, pending *pendingQueue, emit func(model.ResolvedTrade) bool) error {
	for {
		item, ok := pending.peek(head)
		if !ok {
			return nil
		}

		if w.cfg.VerifyCanonical {
			keep, err := w.stillCanonical(ctx, item.match.Transaction)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				if chain.IsFatal(err) {
					return terminate(fmt.Errorf("verify %s: %w", item.match.Transaction.Hash.Hex(), err))
				}
				w.logger.Warn("canonical check failed, holding",
					zap.String("tx", item.match.Transaction.Hash.Hex()),
					zap.Error(err),
				)
				return nil
			}
			if !keep {
				w.logger.Info("dropping reorged candidate",
					zap.String("tx", item.match.Transaction.Hash.Hex()),
					zap.Uint64("block", item.match.Transaction.BlockNumber),
				)
				pending.pop()
				continue
			}
		}

		if !emit(item.match) {
			return nil
		}
		pending.pop()
		w.metrics.MatchEmitted()
	}
}

// stillCanonical reports whether tx is still included in the block it was
// seen in. A missing receipt means the transaction left the chain.
func (w *Watcher) stillCanonical(ctx context.Context, tx model.Transaction) (bool, error) {
	receipt, err := w.chain.TransactionReceipt(ctx, tx.Hash)
	if err != nil {
		if chain.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return receipt.BlockHash == tx.BlockHash, nil
}

func (w *Watcher) fetchBlock(ctx context.Context, number *big.Int) (*model.BlockSummary, error) {
	var block *model.BlockSummary
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		block, err = w.chain.BlockSummary(ctx, number)
		return err
	})
	return block, err
}

func (w *Watcher) pollInterval(ctx context.Context) (time.Duration, error) {
	if w.cfg.PollInterval > 0 {
		return w.cfg.PollInterval, nil
	}
	d, err := w.chain.BlockInterval(ctx)
	if err != nil {
		if chain.IsFatal(err) {
			return 0, terminate(fmt.Errorf("block interval: %w", err))
		}
		w.logger.Warn("block interval unavailable, using default", zap.Duration("default", defaultPollInterval), zap.Error(err))
		return defaultPollInterval, nil
	}
	if d <= 0 {
		return defaultPollInterval, nil
	}
	return d, nil
}
