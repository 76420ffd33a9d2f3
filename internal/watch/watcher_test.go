package watch

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"tradeScope/internal/model"
)

type fakeChain struct {
	mu        sync.Mutex
	head      uint64
	hasHead   bool
	headErrs  []error
	blocks    map[uint64]*model.BlockSummary
	txs       map[common.Hash]model.Transaction
	txErrs    map[common.Hash]error
	receipts  map[common.Hash]model.Receipt
	headCalls int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		blocks:   make(map[uint64]*model.BlockSummary),
		txs:      make(map[common.Hash]model.Transaction),
		txErrs:   make(map[common.Hash]error),
		receipts: make(map[common.Hash]model.Receipt),
	}
}

func blockHash(n uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(1_000_000 + n))
}

func (f *fakeChain) setHead(n uint64) {
	f.mu.Lock()
	f.head, f.hasHead = n, true
	f.mu.Unlock()
}

func (f *fakeChain) currentHead() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head
}

// addTx places a transaction with the given value at the end of block n.
func (f *fakeChain) addTx(n uint64, hash common.Hash, value int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	block, ok := f.blocks[n]
	if !ok {
		block = &model.BlockSummary{Number: n, Hash: blockHash(n)}
		f.blocks[n] = block
	}
	block.TxHashes = append(block.TxHashes, hash)
	f.txs[hash] = model.Transaction{
		Hash:        hash,
		Value:       big.NewInt(value),
		BlockNumber: n,
		BlockHash:   blockHash(n),
		Index:       uint(len(block.TxHashes) - 1),
	}
	f.receipts[hash] = model.Receipt{TxHash: hash, Status: 1, BlockNumber: n, BlockHash: blockHash(n)}
}

func (f *fakeChain) BlockSummary(_ context.Context, number *big.Int) (*model.BlockSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.head
	if number == nil {
		f.headCalls++
		if len(f.headErrs) > 0 {
			err := f.headErrs[0]
			f.headErrs = f.headErrs[1:]
			return nil, err
		}
		if !f.hasHead {
			return nil, nil
		}
	} else {
		n = number.Uint64()
		if n > f.head {
			return nil, nil
		}
	}
	block, ok := f.blocks[n]
	if !ok {
		return &model.BlockSummary{Number: n, Hash: blockHash(n)}, nil
	}
	copied := *block
	copied.TxHashes = append([]common.Hash(nil), block.TxHashes...)
	return &copied, nil
}

func (f *fakeChain) BlockInterval(context.Context) (time.Duration, error) {
	return time.Millisecond, nil
}

func (f *fakeChain) TransactionByHash(_ context.Context, hash common.Hash) (model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.txErrs[hash]; err != nil {
		return model.Transaction{}, err
	}
	tx, ok := f.txs[hash]
	if !ok {
		return model.Transaction{}, ethereum.NotFound
	}
	return tx, nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (model.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[hash]
	if !ok {
		return model.Receipt{}, ethereum.NotFound
	}
	return r, nil
}

type fakeResolver struct {
	mu    sync.Mutex
	calls map[common.Hash]int
	delay func(tx model.Transaction) time.Duration
	// missing makes the first n resolutions of a tx fail as a lagging receipt.
	missing map[common.Hash]int
}

func (r *fakeResolver) ResolveTransaction(ctx context.Context, tx model.Transaction) (model.ResolvedTrade, error) {
	if r.delay != nil {
		if !sleep(ctx, r.delay(tx)) {
			return model.ResolvedTrade{}, ctx.Err()
		}
	}
	r.mu.Lock()
	if r.calls == nil {
		r.calls = make(map[common.Hash]int)
	}
	r.calls[tx.Hash]++
	if r.missing[tx.Hash] > 0 {
		r.missing[tx.Hash]--
		r.mu.Unlock()
		return model.ResolvedTrade{}, ethereum.NotFound
	}
	r.mu.Unlock()
	return model.ResolvedTrade{
		Transaction: tx,
		Trade:       model.Trade{TxHash: tx.Hash, Direction: model.DirectionIndeterminate},
	}, nil
}

func (r *fakeResolver) count(hash common.Hash) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[hash]
}

func (r *fakeResolver) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func testConfig() Config {
	return Config{PollInterval: time.Millisecond, Concurrency: 4, RetryBackoff: time.Millisecond}
}

func txID(n int) common.Hash {
	return common.BigToHash(big.NewInt(int64(n)))
}

func receive[T any](t *testing.T, s *Stream[T], timeout time.Duration) (T, bool) {
	t.Helper()
	var zero T
	select {
	case item, ok := <-s.C():
		return item, ok
	case <-time.After(timeout):
		return zero, false
	}
}

func expectNone[T any](t *testing.T, s *Stream[T], wait time.Duration) {
	t.Helper()
	select {
	case item, ok := <-s.C():
		if ok {
			t.Fatalf("unexpected emission: %+v", item)
		}
	case <-time.After(wait):
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWatchThresholdBoundary(t *testing.T) {
	fc := newFakeChain()
	oneUnit := int64(1_000_000_000_000_000_000)
	fc.addTx(10, txID(1), oneUnit)
	fc.addTx(10, txID(2), oneUnit-1)
	fc.setHead(10)

	resolver := &fakeResolver{}
	s := NewWatcher(fc, resolver, testConfig(), nil, nil).Watch(context.Background(), model.WatchThreshold{
		MinValue: big.NewInt(oneUnit),
	})
	defer s.Close()

	match, ok := receive(t, s, 2*time.Second)
	if !ok || match.Transaction.Hash != txID(1) {
		t.Fatalf("expected qualifying tx, got %+v ok=%v", match, ok)
	}
	expectNone(t, s, 50*time.Millisecond)
	if resolver.count(txID(2)) != 0 {
		t.Fatalf("below-threshold tx should not be resolved")
	}
}

func TestWatchRepeatedHeadNoDuplicates(t *testing.T) {
	fc := newFakeChain()
	fc.addTx(5, txID(1), 10)
	fc.setHead(5)

	resolver := &fakeResolver{}
	s := NewWatcher(fc, resolver, testConfig(), nil, nil).Watch(context.Background(), model.WatchThreshold{})
	defer s.Close()

	if match, ok := receive(t, s, 2*time.Second); !ok || match.Transaction.Hash != txID(1) {
		t.Fatalf("expected first match, got %+v", match)
	}
	waitFor(t, func() bool {
		fc.mu.Lock()
		defer fc.mu.Unlock()
		return fc.headCalls >= 5
	})
	expectNone(t, s, 20*time.Millisecond)

	fc.addTx(6, txID(2), 10)
	fc.setHead(6)
	if match, ok := receive(t, s, 2*time.Second); !ok || match.Transaction.Hash != txID(2) {
		t.Fatalf("expected second match, got %+v", match)
	}
	expectNone(t, s, 20*time.Millisecond)
	if resolver.total() != 2 {
		t.Fatalf("expected 2 resolutions, got %d", resolver.total())
	}
}

func TestWatchCatchUpInOrder(t *testing.T) {
	fc := newFakeChain()
	fc.addTx(5, txID(1), 1)
	fc.setHead(5)

	s := NewWatcher(fc, &fakeResolver{}, testConfig(), nil, nil).Watch(context.Background(), model.WatchThreshold{})
	defer s.Close()

	if _, ok := receive(t, s, 2*time.Second); !ok {
		t.Fatalf("expected first match")
	}
	fc.addTx(6, txID(2), 1)
	fc.addTx(7, txID(3), 1)
	fc.addTx(8, txID(4), 1)
	fc.setHead(8)

	for _, want := range []common.Hash{txID(2), txID(3), txID(4)} {
		match, ok := receive(t, s, 2*time.Second)
		if !ok || match.Transaction.Hash != want {
			t.Fatalf("expected %s, got %+v", want.Hex(), match)
		}
	}
}

func TestWatchHoldsUntilConfirmed(t *testing.T) {
	fc := newFakeChain()
	fc.addTx(10, txID(1), 1)
	fc.setHead(10)

	resolver := &fakeResolver{}
	s := NewWatcher(fc, resolver, testConfig(), nil, nil).Watch(context.Background(), model.WatchThreshold{MinConfirmations: 2})
	defer s.Close()

	waitFor(t, func() bool { return resolver.count(txID(1)) == 1 })
	expectNone(t, s, 30*time.Millisecond)
	fc.setHead(11)
	expectNone(t, s, 30*time.Millisecond)
	fc.setHead(12)

	match, ok := receive(t, s, 2*time.Second)
	if !ok || match.Transaction.Hash != txID(1) {
		t.Fatalf("expected confirmed match, got %+v", match)
	}
	if head := fc.currentHead(); head < match.Transaction.BlockNumber+2 {
		t.Fatalf("emitted at head %d before confirmations", head)
	}
}

func TestWatchCloseDiscardsHeld(t *testing.T) {
	fc := newFakeChain()
	fc.addTx(10, txID(1), 1)
	fc.setHead(10)

	resolver := &fakeResolver{}
	s := NewWatcher(fc, resolver, testConfig(), nil, nil).Watch(context.Background(), model.WatchThreshold{MinConfirmations: 5})

	waitFor(t, func() bool { return resolver.count(txID(1)) == 1 })
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for item := range s.C() {
		t.Fatalf("held candidate emitted after close: %+v", item)
	}
}

func TestWatchFatalErrorTerminates(t *testing.T) {
	fc := newFakeChain()
	fc.headErrs = []error{rpc.HTTPError{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized"}}
	fc.setHead(1)

	s := NewWatcher(fc, &fakeResolver{}, testConfig(), nil, nil).Watch(context.Background(), model.WatchThreshold{})
	for item := range s.C() {
		t.Fatalf("unexpected emission: %+v", item)
	}
	err := s.Err()
	if !errors.Is(err, ErrPipelineTerminated) {
		t.Fatalf("expected ErrPipelineTerminated, got %v", err)
	}
	if s.Close() == nil {
		t.Fatalf("close should report the terminal error")
	}
}

func TestWatchTransientHeadErrorRecovers(t *testing.T) {
	fc := newFakeChain()
	fc.headErrs = []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}
	fc.addTx(3, txID(1), 1)
	fc.setHead(3)

	cfg := testConfig()
	cfg.MaxRetries = 1
	s := NewWatcher(fc, &fakeResolver{}, cfg, nil, nil).Watch(context.Background(), model.WatchThreshold{})
	defer s.Close()

	if match, ok := receive(t, s, 2*time.Second); !ok || match.Transaction.Hash != txID(1) {
		t.Fatalf("expected match after recovery, got %+v", match)
	}
}

func TestWatchAbsentHeadIsSkip(t *testing.T) {
	fc := newFakeChain()
	s := NewWatcher(fc, &fakeResolver{}, testConfig(), nil, nil).Watch(context.Background(), model.WatchThreshold{})
	defer s.Close()

	waitFor(t, func() bool {
		fc.mu.Lock()
		defer fc.mu.Unlock()
		return fc.headCalls >= 3
	})
	fc.addTx(1, txID(1), 1)
	fc.setHead(1)
	if _, ok := receive(t, s, 2*time.Second); !ok {
		t.Fatalf("expected match once head appears")
	}
}

func TestWatchSkipsFailedTransaction(t *testing.T) {
	fc := newFakeChain()
	fc.addTx(4, txID(1), 1)
	fc.addTx(4, txID(2), 1)
	fc.addTx(4, txID(3), 1)
	fc.txErrs[txID(2)] = errors.New("connection reset")
	fc.setHead(4)

	s := NewWatcher(fc, &fakeResolver{}, testConfig(), nil, nil).Watch(context.Background(), model.WatchThreshold{})
	defer s.Close()

	for _, want := range []common.Hash{txID(1), txID(3)} {
		match, ok := receive(t, s, 2*time.Second)
		if !ok || match.Transaction.Hash != want {
			t.Fatalf("expected %s, got %+v", want.Hex(), match)
		}
	}
}

func TestWatchParallelKeepsOrder(t *testing.T) {
	const n = 24
	fc := newFakeChain()
	for i := 0; i < n; i++ {
		fc.addTx(7, txID(i+1), 1)
	}
	fc.setHead(7)

	resolver := &fakeResolver{delay: func(tx model.Transaction) time.Duration {
		return time.Duration(n-int(tx.Index)) * time.Millisecond
	}}
	cfg := testConfig()
	cfg.Concurrency = 8
	s := NewWatcher(fc, resolver, cfg, nil, nil).Watch(context.Background(), model.WatchThreshold{})
	defer s.Close()

	for i := 0; i < n; i++ {
		match, ok := receive(t, s, 2*time.Second)
		if !ok || match.Transaction.Hash != txID(i+1) {
			t.Fatalf("position %d: got %+v", i, match)
		}
	}
}

func TestWatchDropsReorgedCandidate(t *testing.T) {
	fc := newFakeChain()
	fc.addTx(20, txID(1), 1)
	fc.addTx(20, txID(2), 1)
	fc.setHead(20)

	cfg := testConfig()
	cfg.VerifyCanonical = true
	resolver := &fakeResolver{}
	s := NewWatcher(fc, resolver, cfg, nil, nil).Watch(context.Background(), model.WatchThreshold{MinConfirmations: 1})
	defer s.Close()

	waitFor(t, func() bool { return resolver.total() == 2 })
	fc.mu.Lock()
	r := fc.receipts[txID(1)]
	r.BlockHash = common.HexToHash("0xdead")
	fc.receipts[txID(1)] = r
	fc.mu.Unlock()
	fc.setHead(21)

	match, ok := receive(t, s, 2*time.Second)
	if !ok || match.Transaction.Hash != txID(2) {
		t.Fatalf("expected only the canonical tx, got %+v", match)
	}
	expectNone(t, s, 30*time.Millisecond)
}

func TestWatchRetriesLaggingReceipt(t *testing.T) {
	fc := newFakeChain()
	fc.addTx(9, txID(1), 1)
	fc.addTx(9, txID(2), 1)
	fc.setHead(9)

	resolver := &fakeResolver{missing: map[common.Hash]int{txID(1): 2}}
	cfg := testConfig()
	cfg.MaxRetries = 3
	s := NewWatcher(fc, resolver, cfg, nil, nil).Watch(context.Background(), model.WatchThreshold{})
	defer s.Close()

	for _, want := range []common.Hash{txID(1), txID(2)} {
		match, ok := receive(t, s, 2*time.Second)
		if !ok || match.Transaction.Hash != want {
			t.Fatalf("expected %s, got %+v", want.Hex(), match)
		}
	}
	if got := resolver.count(txID(1)); got != 3 {
		t.Fatalf("expected 3 resolve attempts, got %d", got)
	}
}

func TestWatchLongGapEvaluatesEveryBlock(t *testing.T) {
	fc := newFakeChain()
	fc.addTx(100, txID(1), 1)
	fc.setHead(100)

	// zero MaxCatchUp, as the CLI ships it
	s := NewWatcher(fc, &fakeResolver{}, testConfig(), nil, nil).Watch(context.Background(), model.WatchThreshold{})
	defer s.Close()

	if match, ok := receive(t, s, 2*time.Second); !ok || match.Transaction.Hash != txID(1) {
		t.Fatalf("expected head match, got %+v", match)
	}

	fc.addTx(103, txID(2), 1)
	fc.addTx(140, txID(3), 1)
	fc.addTx(170, txID(4), 1)
	fc.setHead(170)

	for _, want := range []common.Hash{txID(2), txID(3), txID(4)} {
		match, ok := receive(t, s, 2*time.Second)
		if !ok || match.Transaction.Hash != want {
			t.Fatalf("expected %s after 70-block gap, got %+v", want.Hex(), match)
		}
	}
}
