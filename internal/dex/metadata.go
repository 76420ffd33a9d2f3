package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tradeScope/internal/model"
)

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// PoolSource resolves the token pair of a pool.
type PoolSource interface {
	PoolMeta(ctx context.Context, pool common.Address) (model.PoolMeta, error)
}

const poolFetchTimeout = 30 * time.Second

// PoolMetaCache caches pool metadata by address. Entries are never replaced
// once written, and concurrent misses for one pool share a single fetch.
type PoolMetaCache struct {
	mu     sync.RWMutex
	data   map[common.Address]model.PoolMeta
	source PoolSource
	group  singleflight.Group
}

func NewPoolMetaCache(source PoolSource) *PoolMetaCache {
	return &PoolMetaCache{
		data:   make(map[common.Address]model.PoolMeta),
		source: source,
	}
}

func (c *PoolMetaCache) Get(address common.Address) (model.PoolMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

// Set stores meta unless the pool is already cached.
func (c *PoolMetaCache) Set(address common.Address, meta model.PoolMeta) {
	c.mu.Lock()
	if _, ok := c.data[address]; !ok {
		c.data[address] = meta
	}
	c.mu.Unlock()
}

func (c *PoolMetaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Resolve returns cached metadata or fetches it from the source.
func (c *PoolMetaCache) Resolve(ctx context.Context, pool common.Address) (model.PoolMeta, error) {
	if meta, ok := c.Get(pool); ok {
		return meta, nil
	}
	if c.source == nil {
		return model.PoolMeta{}, fmt.Errorf("no pool source for %s", pool.Hex())
	}

	// The shared fetch outlives the caller that started it, so one cancelled
	// caller does not fail the others waiting on the same pool.
	ch := c.group.DoChan(pool.Hex(), func() (interface{}, error) {
		if meta, ok := c.Get(pool); ok {
			return meta, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), poolFetchTimeout)
		defer cancel()
		meta, err := c.source.PoolMeta(fetchCtx, pool)
		if err != nil {
			return model.PoolMeta{}, err
		}
		c.Set(pool, meta)
		meta, _ = c.Get(pool)
		return meta, nil
	})
	select {
	case <-ctx.Done():
		return model.PoolMeta{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.PoolMeta{}, res.Err
		}
		return res.Val.(model.PoolMeta), nil
	}
}

// ChainPoolSource reads token0/token1 from pool contracts.
type ChainPoolSource struct {
	Caller ContractCaller
}

// PoolMeta implements PoolSource.
func (s ChainPoolSource) PoolMeta(ctx context.Context, pool common.Address) (model.PoolMeta, error) {
	return FetchPoolMeta(ctx, s.Caller, pool)
}

// FetchPoolMeta loads the immutable token pair of a V2 or V3 style pool.
func FetchPoolMeta(ctx context.Context, caller ContractCaller, pool common.Address) (model.PoolMeta, error) {
	if caller == nil {
		return model.PoolMeta{}, fmt.Errorf("contract caller is nil")
	}

	pairABI, err := V2PairABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pair abi: %w", err)
	}

	values, err := callMethod(ctx, caller, pool, pairABI, "token0")
	if err != nil {
		return model.PoolMeta{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, caller, pool, pairABI, "token1")
	if err != nil {
		return model.PoolMeta{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token1: %w", err)
	}

	return model.PoolMeta{Token0: token0, Token1: token1}, nil
}

func callMethod(ctx context.Context, caller ContractCaller, to common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu     sync.RWMutex
	data   map[common.Address]model.TokenMeta
	caller ContractCaller
	logger *zap.Logger
}

func NewTokenMetaCache(caller ContractCaller, logger *zap.Logger) *TokenMetaCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenMetaCache{
		data:   make(map[common.Address]model.TokenMeta),
		caller: caller,
		logger: logger,
	}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Lookup returns cached metadata, fetching it on a miss. Only successful
// fetches are cached; a failed lookup is retried on the next call.
func (c *TokenMetaCache) Lookup(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := c.Get(token); ok {
		return meta, nil
	}
	meta, err := FetchTokenMeta(ctx, c.caller, token, c.logger)
	if err != nil {
		c.logger.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
		return model.TokenMeta{}, err
	}
	c.Set(token, meta)
	return meta, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls.
func FetchTokenMeta(ctx context.Context, caller ContractCaller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if caller == nil {
		return meta, fmt.Errorf("contract caller is nil")
	}

	stringABI, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := callMethod(ctx, caller, token, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := callMethod(ctx, caller, token, stringABI, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := callMethod(ctx, caller, token, bytes32ABI, "symbol"); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else if logger != nil {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := callMethod(ctx, caller, token, stringABI, "name"); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := callMethod(ctx, caller, token, bytes32ABI, "name"); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else if logger != nil {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
