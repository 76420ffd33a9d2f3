package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Direction is the trade side relative to the chain's native asset.
type Direction string

const (
	DirectionBuy           Direction = "buy"
	DirectionSell          Direction = "sell"
	DirectionSwap          Direction = "swap-both"
	DirectionIndeterminate Direction = "indeterminate"
)

// Trade is the transaction-level view of its swap events. Spent and Received
// are netted and never share a token.
type Trade struct {
	TxHash    common.Hash
	Swaps     []SwapEvent
	Protocols []Protocol
	Pools     []common.Address
	Spent     map[common.Address]*big.Int
	Received  map[common.Address]*big.Int
	Direction Direction
}

// ResolvedTrade pairs a trade with the transaction it was reconstructed from.
type ResolvedTrade struct {
	Transaction Transaction
	Trade       Trade
}
