package model

import (
	"fmt"
	"math/big"
	"sort"
)

// TradeRecord is the JSON representation of a resolved trade used by sinks.
type TradeRecord struct {
	TxHash      string            `json:"tx_hash"`
	BlockNumber uint64            `json:"block_number"`
	BlockHash   string            `json:"block_hash"`
	TxIndex     uint              `json:"tx_index"`
	From        string            `json:"from"`
	To          string            `json:"to,omitempty"`
	Value       string            `json:"value"`
	Direction   string            `json:"direction"`
	Protocols   []string          `json:"protocols"`
	Pools       []string          `json:"pools"`
	Spent       map[string]string `json:"spent"`
	Received    map[string]string `json:"received"`
	Swaps       []SwapRecord      `json:"swaps"`
}

// SwapRecord is the JSON representation of a SwapEvent.
type SwapRecord struct {
	Protocol  string `json:"protocol"`
	Pool      string `json:"pool"`
	TokenIn   string `json:"token_in"`
	AmountIn  string `json:"amount_in"`
	TokenOut  string `json:"token_out"`
	AmountOut string `json:"amount_out"`
	LogIndex  uint   `json:"log_index"`
}

// TransferRecord is the JSON representation of a LargeTransfer.
type TransferRecord struct {
	Token       string `json:"token"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint   `json:"log_index"`
}

type hexKey interface {
	comparable
	Hex() string
}

// NewTradeRecord flattens a ResolvedTrade into string fields.
func NewTradeRecord(rt ResolvedTrade) TradeRecord {
	tx := rt.Transaction
	tr := rt.Trade

	rec := TradeRecord{
		TxHash:      tx.Hash.Hex(),
		BlockNumber: tx.BlockNumber,
		BlockHash:   tx.BlockHash.Hex(),
		TxIndex:     tx.Index,
		From:        tx.From.Hex(),
		Value:       bigString(tx.Value),
		Direction:   string(tr.Direction),
		Protocols:   make([]string, 0, len(tr.Protocols)),
		Pools:       make([]string, 0, len(tr.Pools)),
		Spent:       amountMap(tr.Spent),
		Received:    amountMap(tr.Received),
		Swaps:       make([]SwapRecord, 0, len(tr.Swaps)),
	}
	if tx.To != nil {
		rec.To = tx.To.Hex()
	}
	for _, p := range tr.Protocols {
		rec.Protocols = append(rec.Protocols, string(p))
	}
	for _, pool := range tr.Pools {
		rec.Pools = append(rec.Pools, pool.Hex())
	}
	for _, swap := range tr.Swaps {
		rec.Swaps = append(rec.Swaps, SwapRecord{
			Protocol:  string(swap.Protocol),
			Pool:      swap.Pool.Hex(),
			TokenIn:   swap.TokenIn.Hex(),
			AmountIn:  bigString(swap.AmountIn),
			TokenOut:  swap.TokenOut.Hex(),
			AmountOut: bigString(swap.AmountOut),
			LogIndex:  swap.LogIndex,
		})
	}
	return rec
}

// NewTransferRecord flattens a LargeTransfer into string fields.
func NewTransferRecord(t LargeTransfer) TransferRecord {
	return TransferRecord{
		Token:       t.Token.Hex(),
		From:        t.From.Hex(),
		To:          t.To.Hex(),
		Value:       bigString(t.Value),
		TxHash:      t.TxHash.Hex(),
		BlockNumber: t.BlockNumber,
		LogIndex:    t.LogIndex,
	}
}

// SortedTokens returns the keys of an amount map in a stable order.
func SortedTokens[K hexKey](m map[K]*big.Int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Hex() < keys[j].Hex() })
	return keys
}

func amountMap[K hexKey](m map[K]*big.Int) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k.Hex()] = bigString(v)
	}
	return out
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// RecordKey identifies a trade record by transaction hash.
func (r TradeRecord) RecordKey() string {
	return r.TxHash
}

// RecordKey identifies a transfer record by transaction hash and log index.
func (r TransferRecord) RecordKey() string {
	return fmt.Sprintf("%s:%d", r.TxHash, r.LogIndex)
}
