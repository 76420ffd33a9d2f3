package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Protocol tags the DEX family a swap log was decoded from.
type Protocol string

const (
	ProtocolUnknown    Protocol = "unknown"
	ProtocolUniswapV2  Protocol = "uniswap-v2"
	ProtocolUniswapV3  Protocol = "uniswap-v3"
	ProtocolPancakeV3  Protocol = "pancake-v3"
	ProtocolBalancerV2 Protocol = "balancer-v2"
)

// SwapEvent is a single pool swap normalized to in/out legs.
type SwapEvent struct {
	Protocol  Protocol
	Pool      common.Address
	TokenIn   common.Address
	AmountIn  *big.Int
	TokenOut  common.Address
	AmountOut *big.Int
	LogIndex  uint
}
