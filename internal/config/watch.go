package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// WatchConfig holds configuration for the watch command.
type WatchConfig struct {
	Common
	MinValue         string
	MinConfirmations uint64
	PollInterval     time.Duration
	Concurrency      int
	MaxCatchUp       uint64
	VerifyCanonical  bool

	Out            string
	PGDSN          string
	RedisAddr      string
	RedisChannel   string
	RedisDedupeTTL time.Duration
	KafkaBrokers   []string
	KafkaTopic     string
	HTTPAddr       string
}

// LoadWatch merges config file, environment variables, and flags into WatchConfig.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"min-value":        "0",
		"concurrency":      4,
		"max-catchup":      uint64(0),
		"out":              "-",
		"redis-channel":    "tradescope:trades",
		"redis-dedupe-ttl": time.Hour,
		"kafka-topic":      "tradescope.trades",
	})
	if err != nil {
		return WatchConfig{}, err
	}

	cfg := WatchConfig{
		Common:           loadCommon(v),
		MinValue:         v.GetString("min-value"),
		MinConfirmations: v.GetUint64("min-confirmations"),
		PollInterval:     v.GetDuration("poll-interval"),
		Concurrency:      v.GetInt("concurrency"),
		MaxCatchUp:       v.GetUint64("max-catchup"),
		VerifyCanonical:  v.GetBool("verify-canonical"),
		Out:              v.GetString("out"),
		PGDSN:            v.GetString("pg-dsn"),
		RedisAddr:        v.GetString("redis-addr"),
		RedisChannel:     v.GetString("redis-channel"),
		RedisDedupeTTL:   v.GetDuration("redis-dedupe-ttl"),
		KafkaBrokers:     getStringSlice(v, "kafka-brokers"),
		KafkaTopic:       v.GetString("kafka-topic"),
		HTTPAddr:         v.GetString("http-addr"),
	}
	if err := cfg.validate(); err != nil {
		return WatchConfig{}, err
	}
	if cfg.Concurrency < 1 {
		return WatchConfig{}, fmt.Errorf("concurrency must be at least 1")
	}
	if cfg.PollInterval < 0 {
		return WatchConfig{}, fmt.Errorf("poll-interval must not be negative")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return WatchConfig{}, fmt.Errorf("kafka-topic is required with kafka-brokers")
	}
	return cfg, nil
}
