package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Transaction carries the fields of a mined transaction the analyzer needs.
type Transaction struct {
	Hash        common.Hash
	From        common.Address
	To          *common.Address
	Value       *big.Int
	BlockNumber uint64
	BlockHash   common.Hash
	Index       uint
}

// Receipt is the subset of a transaction receipt used for decoding.
type Receipt struct {
	TxHash      common.Hash
	Status      uint64
	BlockNumber uint64
	BlockHash   common.Hash
	Logs        []RawLog
}
