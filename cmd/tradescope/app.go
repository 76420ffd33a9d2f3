package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tradeScope/internal/chain"
	"tradeScope/internal/config"
	"tradeScope/internal/dex"
	"tradeScope/internal/metrics"
	"tradeScope/internal/trade"
)

// app holds the chain-facing components shared by the subcommands.
type app struct {
	client   *chain.Client
	chainID  uint64
	native   common.Address
	tokens   *dex.TokenMetaCache
	resolver *trade.Resolver
}

func newApp(ctx context.Context, cfg config.Common, logger *zap.Logger, m *metrics.Metrics) (*app, error) {
	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	id, err := client.GetChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	chainID := id.Uint64()

	native, ok, err := config.ParseAddress(cfg.NativeToken)
	if err != nil {
		client.Close()
		return nil, err
	}
	if !ok {
		native, ok = chain.WrappedNative(chainID)
		if !ok {
			client.Close()
			return nil, fmt.Errorf("no wrapped native token known for chain %d, set native-token", chainID)
		}
	}

	pools := dex.NewPoolMetaCache(dex.ChainPoolSource{Caller: client})
	decoder, err := dex.NewLogDecoder(dex.DecoderConfig{Topic0Map: cfg.Topic0Map}, pools, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	resolver := trade.NewResolver(client, decoder, trade.ResolverConfig{
		Native:  native,
		Logger:  logger,
		Metrics: m,
	})

	logger.Info("chain connected",
		zap.Uint64("chain_id", chainID),
		zap.String("native", native.Hex()),
		zap.Int("swap_topics", len(decoder.Registry().Topics())),
	)

	return &app{
		client:   client,
		chainID:  chainID,
		native:   native,
		tokens:   dex.NewTokenMetaCache(client, logger),
		resolver: resolver,
	}, nil
}

func (a *app) Close() {
	a.client.Close()
}
