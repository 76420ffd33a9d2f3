package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradeScope/internal/config"
	"tradeScope/internal/metrics"
	"tradeScope/internal/model"
	"tradeScope/internal/sink"
	"tradeScope/internal/sink/postgres"
	"tradeScope/internal/watch"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

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

	var hub *sink.Hub
	if cfg.HTTPAddr != "" {
		hub = sink.NewHub(logger)
	}
	sinks, err := buildTradeSinks(ctx, cfg, a.chainID, hub, logger)
	if err != nil {
		return err
	}
	fanout := sink.NewFanout(sinks, logger, m)
	defer fanout.Close()

	if cfg.HTTPAddr != "" {
		srv := serveHTTP(cfg.HTTPAddr, hub, m, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	watcher := watch.NewWatcher(a.client, a.resolver, watch.Config{
		PollInterval:    cfg.PollInterval,
		Concurrency:     cfg.Concurrency,
		MaxCatchUp:      cfg.MaxCatchUp,
		VerifyCanonical: cfg.VerifyCanonical,
		MaxRetries:      cfg.MaxRetries,
		RetryBackoff:    cfg.RetryBackoff,
	}, logger, m)

	logger.Info("watch start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("min_value", minValue.String()),
		zap.Uint64("min_confirmations", cfg.MinConfirmations),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Int("sinks", fanout.Len()),
		zap.String("http_addr", cfg.HTTPAddr),
	)

	stream := watcher.Watch(ctx, model.WatchThreshold{
		MinValue:         minValue,
		MinConfirmations: cfg.MinConfirmations,
	})
	defer stream.Close()

	emitted, failed := drain(ctx, stream.C(), func(match model.ResolvedTrade) sink.Record {
		return model.NewTradeRecord(match)
	}, fanout, logger)

	logger.Info("watch stopped", zap.Int("matches", emitted), zap.Int("publish_failures", failed))
	return stream.Err()
}

func buildTradeSinks(ctx context.Context, cfg config.WatchConfig, chainID uint64, hub *sink.Hub, logger *zap.Logger) ([]sink.Sink, error) {
	var sinks []sink.Sink
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	if cfg.Out != "" {
		sinks = append(sinks, sink.NewJSONL(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := openStore(ctx, cfg.PGDSN, chainID)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, store)
	}
	if cfg.RedisAddr != "" {
		cli := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := cli.Ping(ctx).Err(); err != nil {
			_ = cli.Close()
			closeAll()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		sinks = append(sinks, sink.NewRedis(cli, cfg.RedisChannel, cfg.RedisDedupeTTL))
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := sink.NewKafka(strings.Join(cfg.KafkaBrokers, ","), cfg.KafkaTopic, logger)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, producer)
	}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	return sinks, nil
}

func openStore(ctx context.Context, dsn string, chainID uint64) (*postgres.Store, error) {
	store, err := postgres.NewStore(ctx, dsn, chainID)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func serveHTTP(addr string, hub *sink.Hub, m *metrics.Metrics, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if hub != nil {
		mux.Handle("/ws", hub)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
		}
	}()
	logger.Info("http listening", zap.String("addr", addr))
	return srv
}
