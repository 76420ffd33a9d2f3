package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradeScope/internal/config"
	"tradeScope/internal/metrics"
	"tradeScope/internal/model"
	"tradeScope/internal/sink"
	"tradeScope/internal/sink/postgres"
	"tradeScope/internal/watch"
)

func runTransfers(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTransfers(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tokens, err := config.ParseAddresses(cfg.Tokens)
	if err != nil {
		return err
	}
	minValue, err := config.ParseMinValue(cfg.MinValue)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	a, err := newApp(ctx, cfg.Common, logger, m)
	if err != nil {
		return err
	}
	defer a.Close()

	var cursor watch.Cursor
	sinks := []sink.Sink{sink.NewJSONL(cfg.Out)}
	if cfg.PGDSN != "" {
		store, err := openStore(ctx, cfg.PGDSN, a.chainID)
		if err != nil {
			return err
		}
		sinks = append(sinks, store)
		if cfg.Checkpoint == "" {
			cursor = &postgres.Cursor{Store: store, Name: cursorName(a.chainID, tokens)}
		}
	}
	fanout := sink.NewFanout(sinks, logger, m)
	defer fanout.Close()

	watcher := watch.NewTransferWatcher(a.client, watch.TransferConfig{
		PollInterval:   cfg.PollInterval,
		Window:         cfg.Window,
		CheckpointPath: cfg.Checkpoint,
		Cursor:         cursor,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
	}, logger, m)

	logger.Info("transfer watch start",
		zap.String("rpc", cfg.RPCURL),
		zap.Int("tokens", len(tokens)),
		zap.String("min_value", minValue.String()),
		zap.Uint64("from", cfg.FromBlock),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	stream := watcher.Watch(ctx, watch.TransferFilter{
		Tokens:    tokens,
		MinValue:  minValue,
		FromBlock: cfg.FromBlock,
	})
	defer stream.Close()

	emitted, failed := drain(ctx, stream.C(), func(transfer model.LargeTransfer) sink.Record {
		return model.NewTransferRecord(transfer)
	}, fanout, logger)

	logger.Info("transfer watch stopped", zap.Int("transfers", emitted), zap.Int("publish_failures", failed))
	return stream.Err()
}

// cursorName keys transfer progress by chain and token set.
func cursorName(chainID uint64, tokens []common.Address) string {
	keys := make([]string, 0, len(tokens))
	for _, token := range tokens {
		keys = append(keys, strings.ToLower(token.Hex()))
	}
	sort.Strings(keys)
	return fmt.Sprintf("transfers:%d:%s", chainID, strings.Join(keys, ","))
}
