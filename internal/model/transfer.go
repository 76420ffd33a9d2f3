package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LargeTransfer is an ERC20 Transfer that met a watch threshold.
type LargeTransfer struct {
	Token       common.Address
	From        common.Address
	To          common.Address
	Value       *big.Int
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}
