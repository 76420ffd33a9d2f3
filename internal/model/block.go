package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BlockSummary is a read-only snapshot of one block.
type BlockSummary struct {
	Number   uint64
	Hash     common.Hash
	TxHashes []common.Hash
	Interval time.Duration
}

// WatchThreshold configures one watch session.
type WatchThreshold struct {
	MinValue         *big.Int
	MinConfirmations uint64
}

// Qualifies reports whether value meets the minimum. A nil minimum admits everything.
func (t WatchThreshold) Qualifies(value *big.Int) bool {
	if t.MinValue == nil || t.MinValue.Sign() <= 0 {
		return true
	}
	if value == nil {
		return false
	}
	return value.Cmp(t.MinValue) >= 0
}
