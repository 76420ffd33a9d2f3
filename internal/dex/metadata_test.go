package dex

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"tradeScope/internal/model"
)

// blockingPoolSource holds every fetch until release is closed.
type blockingPoolSource struct {
	started chan struct{}
	release chan struct{}
	calls   int32
	meta    model.PoolMeta
}

func (b *blockingPoolSource) PoolMeta(ctx context.Context, _ common.Address) (model.PoolMeta, error) {
	if atomic.AddInt32(&b.calls, 1) == 1 {
		close(b.started)
	}
	select {
	case <-b.release:
		return b.meta, nil
	case <-ctx.Done():
		return model.PoolMeta{}, ctx.Err()
	}
}

func TestPoolMetaCacheSurvivesCancelledCaller(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	source := &blockingPoolSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
		meta:    model.PoolMeta{Token0: tokenA, Token1: tokenB},
	}
	cache := NewPoolMetaCache(source)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.Resolve(firstCtx, pool)
		firstErr <- err
	}()
	<-source.started

	type result struct {
		meta model.PoolMeta
		err  error
	}
	second := make(chan result, 1)
	go func() {
		meta, err := cache.Resolve(context.Background(), pool)
		second <- result{meta, err}
	}()

	cancel()
	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancelled caller to see context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("cancelled caller did not return")
	}

	close(source.release)
	select {
	case res := <-second:
		if res.err != nil || res.meta.Token0 != tokenA {
			t.Fatalf("waiting caller failed: %+v %v", res.meta, res.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("waiting caller did not return")
	}
	if calls := atomic.LoadInt32(&source.calls); calls != 1 {
		t.Fatalf("expected one shared fetch, got %d", calls)
	}
	if _, ok := cache.Get(pool); !ok {
		t.Fatalf("fetched pool not cached")
	}
}

// flakyTokenCaller fails decimals() a set number of times, then answers
// like a 6-decimal token without a name.
type flakyTokenCaller struct {
	decimalFailures int32
}

func (f *flakyTokenCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	method, err := parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "decimals":
		if atomic.AddInt32(&f.decimalFailures, -1) >= 0 {
			return nil, errors.New("upstream timeout")
		}
		return method.Outputs.Pack(uint8(6))
	case "symbol":
		return method.Outputs.Pack("USDC")
	}
	return nil, errors.New("execution reverted")
}

func TestTokenMetaLookupDoesNotCacheFailure(t *testing.T) {
	token := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	cache := NewTokenMetaCache(&flakyTokenCaller{decimalFailures: 1}, nil)

	if _, err := cache.Lookup(context.Background(), token); err == nil {
		t.Fatalf("expected first lookup to fail")
	}
	if _, ok := cache.Get(token); ok {
		t.Fatalf("failed lookup was cached")
	}

	meta, err := cache.Lookup(context.Background(), token)
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if meta.Decimals != 6 || meta.Symbol != "USDC" {
		t.Fatalf("unexpected token meta: %+v", meta)
	}
	if cached, ok := cache.Get(token); !ok || cached.Decimals != 6 {
		t.Fatalf("successful lookup not cached: %+v", cached)
	}
}
