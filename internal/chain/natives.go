package chain

import "github.com/ethereum/go-ethereum/common"

// wrappedNatives maps chain ID to the wrapped native token pools trade against.
var wrappedNatives = map[uint64]common.Address{
	1:     common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), // WETH
	10:    common.HexToAddress("0x4200000000000000000000000000000000000006"), // WETH
	56:    common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"), // WBNB
	137:   common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"), // WPOL
	999:   common.HexToAddress("0x5555555555555555555555555555555555555555"), // WHYPE
	8453:  common.HexToAddress("0x4200000000000000000000000000000000000006"), // WETH
	42161: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), // WETH
	43114: common.HexToAddress("0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"), // WAVAX
}

// WrappedNative returns the wrapped native token for a chain ID.
func WrappedNative(chainID uint64) (common.Address, bool) {
	addr, ok := wrappedNatives[chainID]
	return addr, ok
}
