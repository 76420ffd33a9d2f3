package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "tradescope",
		Short:        "EVM DEX trade reconstruction and large transaction watch",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	resolveCmd := &cobra.Command{
		Use:   "resolve <tx-hash>",
		Short: "Reconstruct the trade of one transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}
	addCommonFlags(resolveCmd.Flags())
	resolveCmd.Flags().Bool("human", true, "add decimals-adjusted amounts from token metadata")
	root.AddCommand(resolveCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch new blocks for large trades",
		RunE:  runWatch,
	}
	addCommonFlags(watchCmd.Flags())
	watchCmd.Flags().String("min-value", "0", "minimum transaction value in wei")
	watchCmd.Flags().Uint64("min-confirmations", 0, "blocks to wait before emitting a match")
	watchCmd.Flags().Duration("poll-interval", 0, "poll interval, 0 uses the chain block interval")
	watchCmd.Flags().Int("concurrency", 4, "parallel transaction evaluations per block")
	watchCmd.Flags().Uint64("max-catchup", 0, "maximum missed blocks evaluated per poll, 0 evaluates every missed block")
	watchCmd.Flags().Bool("verify-canonical", false, "re-check receipts on release and drop reorged matches")
	watchCmd.Flags().String("out", "-", "output JSONL path, - for stdout, empty to disable")
	watchCmd.Flags().String("pg-dsn", "", "Postgres DSN for the large_trades table")
	watchCmd.Flags().String("redis-addr", "", "Redis address for pub/sub")
	watchCmd.Flags().String("redis-channel", "tradescope:trades", "Redis channel")
	watchCmd.Flags().Duration("redis-dedupe-ttl", time.Hour, "Redis dedupe key TTL, 0 disables dedupe")
	watchCmd.Flags().StringSlice("kafka-brokers", nil, "Kafka bootstrap servers (comma-separated)")
	watchCmd.Flags().String("kafka-topic", "tradescope.trades", "Kafka topic")
	watchCmd.Flags().String("http-addr", "", "listen address for /ws and /metrics")
	root.AddCommand(watchCmd)

	transfersCmd := &cobra.Command{
		Use:   "transfers",
		Short: "Watch new blocks for large ERC20 transfers",
		RunE:  runTransfers,
	}
	addCommonFlags(transfersCmd.Flags())
	transfersCmd.Flags().StringSlice("token", nil, "token addresses (comma-separated), empty for all")
	transfersCmd.Flags().String("min-value", "0", "minimum transfer amount in raw token units")
	transfersCmd.Flags().Uint64("from", 0, "start block (inclusive), 0 starts at head")
	transfersCmd.Flags().Duration("poll-interval", 0, "poll interval, 0 uses the chain block interval")
	transfersCmd.Flags().Uint64("transfer-window", 1000, "blocks per log query")
	transfersCmd.Flags().String("checkpoint", "", "checkpoint file path, empty disables resume")
	transfersCmd.Flags().String("out", "-", "output JSONL path, - for stdout")
	transfersCmd.Flags().String("pg-dsn", "", "Postgres DSN for the large_transfers table")
	root.AddCommand(transfersCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "EVM JSON-RPC URL")
	flags.String("native-token", "", "wrapped native token, defaults by chain ID")
	flags.String("topic0-map", "", "extra topic0->family aliases (comma-separated key=value)")
	flags.Int("max-retries", 5, "maximum retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
