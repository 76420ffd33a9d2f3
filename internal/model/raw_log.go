package model

import "github.com/ethereum/go-ethereum/common"

// RawLog is a receipt log as delivered by the node.
type RawLog struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
	Index   uint
}

// Topic0 returns the event signature hash, or the zero hash for anonymous logs.
func (l RawLog) Topic0() common.Hash {
	if len(l.Topics) == 0 {
		return common.Hash{}
	}
	return l.Topics[0]
}
