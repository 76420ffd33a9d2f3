package model

import "github.com/ethereum/go-ethereum/common"

// PoolMeta captures the immutable token pair of a pool.
type PoolMeta struct {
	Token0 common.Address
	Token1 common.Address
}
