package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradeScope/internal/config"
	"tradeScope/internal/dex"
	"tradeScope/internal/format"
	"tradeScope/internal/model"
)

type humanAmount struct {
	Symbol   string `json:"symbol,omitempty"`
	Decimals uint8  `json:"decimals"`
	Amount   string `json:"amount"`
}

type resolveOutput struct {
	model.TradeRecord
	SpentHuman    map[string]humanAmount `json:"spent_human,omitempty"`
	ReceivedHuman map[string]humanAmount `json:"received_human,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadResolve(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	hash, err := config.ParseTxHash(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg.Common, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	resolved, err := a.resolver.Resolve(ctx, hash)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", hash.Hex(), err)
	}

	out := resolveOutput{TradeRecord: model.NewTradeRecord(resolved)}
	if cfg.Human {
		out.SpentHuman = humanize(ctx, a.tokens, resolved.Trade.Spent)
		out.ReceivedHuman = humanize(ctx, a.tokens, resolved.Trade.Received)
	}

	logger.Debug("trade resolved",
		zap.String("tx", hash.Hex()),
		zap.String("direction", string(resolved.Trade.Direction)),
		zap.Int("swaps", len(resolved.Trade.Swaps)),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func humanize(ctx context.Context, tokens *dex.TokenMetaCache, amounts map[common.Address]*big.Int) map[string]humanAmount {
	if len(amounts) == 0 {
		return nil
	}
	out := make(map[string]humanAmount, len(amounts))
	for _, token := range model.SortedTokens(amounts) {
		meta, err := tokens.Lookup(ctx, token)
		if err != nil {
			// raw amount stays in the record
			continue
		}
		out[token.Hex()] = humanAmount{
			Symbol:   meta.Symbol,
			Decimals: meta.Decimals,
			Amount:   format.TokenAmount(amounts[token], meta.Decimals),
		}
	}
	return out
}
