package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// TransfersConfig holds configuration for the transfers command.
type TransfersConfig struct {
	Common
	Tokens       []string
	MinValue     string
	FromBlock    uint64
	PollInterval time.Duration
	Window       uint64
	Checkpoint   string
	Out          string
	PGDSN        string
}

// LoadTransfers merges config file, environment variables, and flags into TransfersConfig.
func LoadTransfers(cfgFile string, flags *pflag.FlagSet) (TransfersConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"min-value":       "0",
		"transfer-window": uint64(1000),
		"out":             "-",
	})
	if err != nil {
		return TransfersConfig{}, err
	}

	cfg := TransfersConfig{
		Common:       loadCommon(v),
		Tokens:       getStringSlice(v, "token"),
		MinValue:     v.GetString("min-value"),
		FromBlock:    v.GetUint64("from"),
		PollInterval: v.GetDuration("poll-interval"),
		Window:       v.GetUint64("transfer-window"),
		Checkpoint:   v.GetString("checkpoint"),
		Out:          v.GetString("out"),
		PGDSN:        v.GetString("pg-dsn"),
	}
	if err := cfg.validate(); err != nil {
		return TransfersConfig{}, err
	}
	if cfg.Window == 0 {
		return TransfersConfig{}, fmt.Errorf("transfer-window must be positive")
	}
	return cfg, nil
}
