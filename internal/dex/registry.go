package dex

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"tradeScope/internal/model"
)

// family describes one swap event layout and how to turn it into a SwapEvent.
type family struct {
	protocol model.Protocol
	event    abi.Event
	decode   decodeFunc
}

// Registry maps topic0 to the protocol family that emits it.
type Registry struct {
	byTopic map[common.Hash]family
}

// NewRegistry returns a registry of the built-in families plus aliases.
// Each alias maps an extra topic0 (hex) to a built-in family name, for forks
// that kept an identical event layout under a different signature.
func NewRegistry(aliases map[string]string) (*Registry, error) {
	builtins, err := builtinFamilies()
	if err != nil {
		return nil, err
	}

	r := &Registry{byTopic: make(map[common.Hash]family, len(builtins)+len(aliases))}
	byName := make(map[model.Protocol]family, len(builtins))
	for _, f := range builtins {
		r.byTopic[f.event.ID] = f
		byName[f.protocol] = f
	}

	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, raw := range keys {
		name := strings.ToLower(strings.TrimSpace(aliases[raw]))
		f, ok := byName[model.Protocol(name)]
		if !ok {
			return nil, fmt.Errorf("topic0 alias %s: unknown protocol %q", raw, aliases[raw])
		}
		topic, err := parseTopic(raw)
		if err != nil {
			return nil, fmt.Errorf("topic0 alias %s: %w", raw, err)
		}
		if existing, ok := r.byTopic[topic]; ok && existing.protocol != f.protocol {
			return nil, fmt.Errorf("topic0 alias %s: already registered for %s", raw, existing.protocol)
		}
		r.byTopic[topic] = f
	}
	return r, nil
}

func (r *Registry) lookup(topic0 common.Hash) (family, bool) {
	f, ok := r.byTopic[topic0]
	return f, ok
}

// Protocol returns the family registered for topic0.
func (r *Registry) Protocol(topic0 common.Hash) (model.Protocol, bool) {
	f, ok := r.byTopic[topic0]
	if !ok {
		return model.ProtocolUnknown, false
	}
	return f.protocol, true
}

// Topics lists every registered topic0, sorted.
func (r *Registry) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(r.byTopic))
	for topic := range r.byTopic {
		out = append(out, topic)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

func builtinFamilies() ([]family, error) {
	type source struct {
		protocol model.Protocol
		load     func() (abi.ABI, error)
		decode   decodeFunc
	}
	sources := []source{
		{model.ProtocolUniswapV2, V2PairABI, decodeV2Swap},
		{model.ProtocolUniswapV3, V3PoolABI, decodeV3Swap},
		{model.ProtocolPancakeV3, PancakeV3PoolABI, decodeV3Swap},
		{model.ProtocolBalancerV2, BalancerVaultABI, decodeBalancerSwap},
	}

	out := make([]family, 0, len(sources))
	for _, src := range sources {
		parsed, err := src.load()
		if err != nil {
			return nil, fmt.Errorf("parse %s abi: %w", src.protocol, err)
		}
		event, ok := parsed.Events["Swap"]
		if !ok {
			return nil, fmt.Errorf("%s abi has no Swap event", src.protocol)
		}
		out = append(out, family{protocol: src.protocol, event: event, decode: src.decode})
	}
	return out, nil
}

func parseTopic(raw string) (common.Hash, error) {
	value := strings.TrimSpace(raw)
	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		value = "0x" + value
	}
	if len(value) != 66 {
		return common.Hash{}, fmt.Errorf("invalid topic length")
	}
	if _, err := hexutil.Decode(value); err != nil {
		return common.Hash{}, err
	}
	return common.HexToHash(value), nil
}
