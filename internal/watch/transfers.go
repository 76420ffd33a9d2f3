package watch

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"tradeScope/internal/chain"
	"tradeScope/internal/dex"
	"tradeScope/internal/metrics"
	"tradeScope/internal/model"
)

const defaultTransferWindow = 1000

// LogReader is the chain access the transfer watch needs.
type LogReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockInterval(ctx context.Context) (time.Duration, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// TransferFilter selects transfers to report. An empty token list matches
// every ERC20 contract. A zero FromBlock starts at the current head.
type TransferFilter struct {
	Tokens    []common.Address
	MinValue  *big.Int
	FromBlock uint64
}

// TransferConfig holds runtime settings for the transfer watch.
type TransferConfig struct {
	PollInterval   time.Duration
	Window         uint64
	CheckpointPath string
	// Cursor overrides the file checkpoint when set.
	Cursor         Cursor
	MaxRetries     int
	RetryBackoff   time.Duration
}

// TransferWatcher scans new blocks for large ERC20 transfers.
type TransferWatcher struct {
	chain   LogReader
	cfg     TransferConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewTransferWatcher(reader LogReader, cfg TransferConfig, logger *zap.Logger, m *metrics.Metrics) *TransferWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Window == 0 {
		cfg.Window = defaultTransferWindow
	}
	return &TransferWatcher{chain: reader, cfg: cfg, logger: logger, metrics: m}
}

// Watch starts a transfer watch session. Transfers arrive in block and log order.
func (w *TransferWatcher) Watch(ctx context.Context, filter TransferFilter) *Stream[model.LargeTransfer] {
	return startStream(ctx, func(ctx context.Context, emit func(model.LargeTransfer) bool) error {
		return w.run(ctx, filter, emit)
	})
}

func (w *TransferWatcher) run(ctx context.Context, filter TransferFilter, emit func(model.LargeTransfer) bool) error {
	event, err := dex.TransferEvent()
	if err != nil {
		return terminate(err)
	}
	interval := w.cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
		if d, err := w.chain.BlockInterval(ctx); err == nil && d > 0 {
			interval = d
		} else if err != nil && chain.IsFatal(err) {
			return terminate(fmt.Errorf("block interval: %w", err))
		}
	}

	cursor := w.cfg.Cursor
	if cursor == nil {
		cursor = FileCursor(NewCheckpointStore(w.cfg.CheckpointPath, filter.Tokens))
	}
	next := filter.FromBlock
	lastProcessed, ok, err := cursor.Load(ctx)
	if err != nil {
		return terminate(err)
	}
	if ok && lastProcessed+1 > next {
		next = lastProcessed + 1
		w.logger.Info("resume from checkpoint", zap.Uint64("last_processed", lastProcessed), zap.Uint64("from", next))
	}

	w.logger.Info("transfer watch started",
		zap.Int("tokens", len(filter.Tokens)),
		zap.Uint64("window", w.cfg.Window),
		zap.Duration("poll_interval", interval),
	)

	for {
		if ctx.Err() != nil {
			return nil
		}

		var head uint64
		err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			head, err = w.chain.LatestBlockNumber(ctx)
			return err
		})
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil && chain.IsFatal(err):
			return terminate(fmt.Errorf("latest block: %w", err))
		case err != nil:
			w.metrics.PollFailed()
			w.logger.Warn("latest block failed", zap.Error(err))
		default:
			w.metrics.Head(head)
			if next == 0 {
				next = head
			}
			if head >= next {
				last, err := w.scan(ctx, event, next, head, filter, cursor, emit)
				if err != nil {
					return err
				}
				next = last + 1
			}
		}

		if !sleep(ctx, interval) {
			return nil
		}
	}
}

// scan processes [from, to] window by window and returns the last block fully
// scanned, or from-1 when nothing completed.
func (w *TransferWatcher) scan(
	ctx context.Context,
	event abi.Event,
	from, to uint64,
	filter TransferFilter,
	cursor Cursor,
	emit func(model.LargeTransfer) bool,
) (uint64, error) {
	ranges, err := SplitRange(from, to, w.cfg.Window)
	if err != nil {
		return from - 1, err
	}

	last := from - 1
	for _, r := range ranges {
		var logs []types.Log
		err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			logs, err = w.chain.FilterLogs(ctx, r.From, r.To, filter.Tokens, []common.Hash{event.ID})
			return err
		})
		if ctx.Err() != nil {
			return last, nil
		}
		if err != nil {
			if chain.IsFatal(err) {
				return last, terminate(fmt.Errorf("filter logs %d-%d: %w", r.From, r.To, err))
			}
			w.metrics.PollFailed()
			w.logger.Warn("filter logs failed", zap.Uint64("from", r.From), zap.Uint64("to", r.To), zap.Error(err))
			return last, nil
		}

		for _, log := range logs {
			if log.Removed {
				continue
			}
			transfer, err := dex.DecodeTransfer(chain.BuildRawLog(log))
			if err != nil {
				w.logger.Debug("skip transfer log", zap.String("tx", log.TxHash.Hex()), zap.Uint("log_index", log.Index), zap.Error(err))
				continue
			}
			if !(model.WatchThreshold{MinValue: filter.MinValue}).Qualifies(transfer.Value) {
				continue
			}
			transfer.TxHash = log.TxHash
			transfer.BlockNumber = log.BlockNumber
			if !emit(transfer) {
				return last, nil
			}
			w.metrics.TransferEmitted()
		}

		last = r.To
		if err := cursor.Save(ctx, last); err != nil {
			w.logger.Warn("save checkpoint failed", zap.Error(err))
		}
		w.logger.Debug("window scanned", zap.Uint64("from", r.From), zap.Uint64("to", r.To), zap.Int("logs", len(logs)))
	}
	return last, nil
}
