package config

import "github.com/spf13/pflag"

// ResolveConfig holds configuration for the resolve command.
type ResolveConfig struct {
	Common
	// Human adds decimals-adjusted amounts using on-chain token metadata.
	Human bool
}

// LoadResolve merges config file, environment variables, and flags into ResolveConfig.
func LoadResolve(cfgFile string, flags *pflag.FlagSet) (ResolveConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"human": true,
	})
	if err != nil {
		return ResolveConfig{}, err
	}

	cfg := ResolveConfig{
		Common: loadCommon(v),
		Human:  v.GetBool("human"),
	}
	if err := cfg.validate(); err != nil {
		return ResolveConfig{}, err
	}
	return cfg, nil
}
