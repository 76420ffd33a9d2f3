package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"tradeScope/internal/model"
)

var (
	// ErrMalformedLog marks a log whose topic0 matched but whose payload did not decode.
	ErrMalformedLog = errors.New("malformed swap log")
	// ErrPoolMetaUnavailable marks a swap whose pool token pair could not be resolved.
	ErrPoolMetaUnavailable = errors.New("pool metadata unavailable")
)

type decodeFunc func(ctx context.Context, pools *PoolMetaCache, log model.RawLog, event abi.Event) (model.SwapEvent, error)

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedLog, fmt.Sprintf(format, args...))
}

// unpackEvent checks the topic count and exact payload size, then unpacks the
// non-indexed arguments.
func unpackEvent(log model.RawLog, event abi.Event) ([]interface{}, error) {
	indexed := 0
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed++
		}
	}
	if len(log.Topics) != indexed+1 {
		return nil, malformed("expected %d topics, got %d", indexed+1, len(log.Topics))
	}

	nonIndexed := event.Inputs.NonIndexed()
	if want := 32 * len(nonIndexed); len(log.Data) != want {
		return nil, malformed("expected %d data bytes, got %d", want, len(log.Data))
	}
	values, err := nonIndexed.Unpack(log.Data)
	if err != nil {
		return nil, malformed("unpack: %v", err)
	}
	if len(values) != len(nonIndexed) {
		return nil, malformed("unpacked %d values, want %d", len(values), len(nonIndexed))
	}
	return values, nil
}

func bigValues(values []interface{}, n int) ([]*big.Int, error) {
	out := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		v, err := asBigInt(values[i])
		if err != nil {
			return nil, malformed("argument %d: %v", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// topicAddress reads an indexed address, rejecting dirty upper bytes.
func topicAddress(topic common.Hash) (common.Address, error) {
	for _, b := range topic[:common.HashLength-common.AddressLength] {
		if b != 0 {
			return common.Address{}, malformed("topic %s is not an address", topic.Hex())
		}
	}
	return common.BytesToAddress(topic[common.HashLength-common.AddressLength:]), nil
}

func resolvePool(ctx context.Context, pools *PoolMetaCache, pool common.Address) (model.PoolMeta, error) {
	if pools == nil {
		return model.PoolMeta{}, fmt.Errorf("%w: no pool cache", ErrPoolMetaUnavailable)
	}
	meta, err := pools.Resolve(ctx, pool)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("%w: %s: %v", ErrPoolMetaUnavailable, pool.Hex(), err)
	}
	return meta, nil
}

// decodeV2Swap nets each side of a constant-product swap. Exactly one token
// must flow in and the other out.
func decodeV2Swap(ctx context.Context, pools *PoolMetaCache, log model.RawLog, event abi.Event) (model.SwapEvent, error) {
	values, err := unpackEvent(log, event)
	if err != nil {
		return model.SwapEvent{}, err
	}
	amounts, err := bigValues(values, 4)
	if err != nil {
		return model.SwapEvent{}, err
	}
	delta0 := new(big.Int).Sub(amounts[0], amounts[2])
	delta1 := new(big.Int).Sub(amounts[1], amounts[3])

	var zeroForOne bool
	switch {
	case delta0.Sign() > 0 && delta1.Sign() < 0:
		zeroForOne = true
	case delta0.Sign() < 0 && delta1.Sign() > 0:
		zeroForOne = false
	default:
		return model.SwapEvent{}, malformed("no directional flow (delta0=%s delta1=%s)", delta0, delta1)
	}

	meta, err := resolvePool(ctx, pools, log.Address)
	if err != nil {
		return model.SwapEvent{}, err
	}
	return orient(log, meta, zeroForOne, delta0, delta1), nil
}

// decodeV3Swap handles signed pool deltas; positive flows into the pool.
// PancakeSwap V3 appends fee fields after the shared prefix.
func decodeV3Swap(ctx context.Context, pools *PoolMetaCache, log model.RawLog, event abi.Event) (model.SwapEvent, error) {
	values, err := unpackEvent(log, event)
	if err != nil {
		return model.SwapEvent{}, err
	}
	amounts, err := bigValues(values, 2)
	if err != nil {
		return model.SwapEvent{}, err
	}
	amount0, amount1 := amounts[0], amounts[1]

	var zeroForOne bool
	switch {
	case amount0.Sign() > 0 && amount1.Sign() < 0:
		zeroForOne = true
	case amount0.Sign() < 0 && amount1.Sign() > 0:
		zeroForOne = false
	default:
		return model.SwapEvent{}, malformed("no directional flow (amount0=%s amount1=%s)", amount0, amount1)
	}

	meta, err := resolvePool(ctx, pools, log.Address)
	if err != nil {
		return model.SwapEvent{}, err
	}
	return orient(log, meta, zeroForOne, amount0, amount1), nil
}

func orient(log model.RawLog, meta model.PoolMeta, zeroForOne bool, delta0, delta1 *big.Int) model.SwapEvent {
	swap := model.SwapEvent{Pool: log.Address, LogIndex: log.Index}
	if zeroForOne {
		swap.TokenIn, swap.AmountIn = meta.Token0, new(big.Int).Abs(delta0)
		swap.TokenOut, swap.AmountOut = meta.Token1, new(big.Int).Abs(delta1)
	} else {
		swap.TokenIn, swap.AmountIn = meta.Token1, new(big.Int).Abs(delta1)
		swap.TokenOut, swap.AmountOut = meta.Token0, new(big.Int).Abs(delta0)
	}
	return swap
}

// decodeBalancerSwap reads explicit token identity from the vault event. The
// pool address is the leading 20 bytes of the pool id.
func decodeBalancerSwap(_ context.Context, _ *PoolMetaCache, log model.RawLog, event abi.Event) (model.SwapEvent, error) {
	values, err := unpackEvent(log, event)
	if err != nil {
		return model.SwapEvent{}, err
	}
	amounts, err := bigValues(values, 2)
	if err != nil {
		return model.SwapEvent{}, err
	}
	tokenIn, err := topicAddress(log.Topics[2])
	if err != nil {
		return model.SwapEvent{}, err
	}
	tokenOut, err := topicAddress(log.Topics[3])
	if err != nil {
		return model.SwapEvent{}, err
	}
	if tokenIn == tokenOut {
		return model.SwapEvent{}, malformed("token in equals token out")
	}
	if amounts[0].Sign() == 0 && amounts[1].Sign() == 0 {
		return model.SwapEvent{}, malformed("zero amounts")
	}

	return model.SwapEvent{
		Pool:      common.BytesToAddress(log.Topics[1][:common.AddressLength]),
		TokenIn:   tokenIn,
		AmountIn:  amounts[0],
		TokenOut:  tokenOut,
		AmountOut: amounts[1],
		LogIndex:  log.Index,
	}, nil
}
