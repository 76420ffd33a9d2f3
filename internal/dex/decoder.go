package dex

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tradeScope/internal/model"
)

// DecoderConfig defines the decoder options.
type DecoderConfig struct {
	// Topic0Map adds topic0 -> protocol family aliases.
	Topic0Map map[string]string
}

// LogDecoder turns receipt logs into normalized swap events.
type LogDecoder struct {
	registry *Registry
	pools    *PoolMetaCache
	logger   *zap.Logger
}

// NewLogDecoder builds a decoder backed by the shared pool cache.
func NewLogDecoder(cfg DecoderConfig, pools *PoolMetaCache, logger *zap.Logger) (*LogDecoder, error) {
	registry, err := NewRegistry(cfg.Topic0Map)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDecoder{registry: registry, pools: pools, logger: logger}, nil
}

// Registry exposes the topic0 registry.
func (d *LogDecoder) Registry() *Registry {
	return d.registry
}

// CanDecode reports whether topic0 belongs to a known swap family.
func (d *LogDecoder) CanDecode(topic0 common.Hash) bool {
	_, ok := d.registry.lookup(topic0)
	return ok
}

// Decode returns the swap events of logs in log order. Logs with an unknown
// topic0 are skipped. Matched logs that fail are dropped and reported as issues.
func (d *LogDecoder) Decode(ctx context.Context, txHash common.Hash, logs []model.RawLog) ([]model.SwapEvent, []model.DecodeIssue) {
	var (
		swaps  []model.SwapEvent
		issues []model.DecodeIssue
	)
	for _, log := range logs {
		f, ok := d.registry.lookup(log.Topic0())
		if !ok {
			continue
		}

		swap, err := f.decode(ctx, d.pools, log, f.event)
		if err != nil {
			issue := model.DecodeIssue{
				TxHash:   txHash,
				LogIndex: log.Index,
				Address:  log.Address,
				Topic0:   log.Topic0(),
				Kind:     model.IssueMalformed,
				Err:      err,
			}
			if errors.Is(err, ErrPoolMetaUnavailable) {
				issue.Kind = model.IssuePoolMetaUnavailable
			}
			d.logger.Debug("swap log dropped",
				zap.String("tx", txHash.Hex()),
				zap.Uint("log_index", log.Index),
				zap.String("address", log.Address.Hex()),
				zap.String("protocol", string(f.protocol)),
				zap.String("kind", string(issue.Kind)),
				zap.Error(err),
			)
			issues = append(issues, issue)
			continue
		}

		swap.Protocol = f.protocol
		swaps = append(swaps, swap)
	}
	return swaps, issues
}
