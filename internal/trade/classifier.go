package trade

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"tradeScope/internal/model"
)

// Classify aggregates swap events into a transaction-level trade. Gross
// amounts are netted per token, so an intermediate hop token that is received
// and re-spent appears in neither map, and no token is in both.
//
// Direction is relative to native: native spent is a buy, native received is
// a sell, anything else is swap-both. No events is indeterminate.
func Classify(hash common.Hash, events []model.SwapEvent, native common.Address) model.Trade {
	t := model.Trade{
		TxHash:    hash,
		Swaps:     append([]model.SwapEvent(nil), events...),
		Spent:     make(map[common.Address]*big.Int),
		Received:  make(map[common.Address]*big.Int),
		Direction: model.DirectionIndeterminate,
	}
	if len(events) == 0 {
		return t
	}

	seenProtocol := make(map[model.Protocol]struct{})
	seenPool := make(map[common.Address]struct{})
	for _, ev := range events {
		if _, ok := seenProtocol[ev.Protocol]; !ok {
			seenProtocol[ev.Protocol] = struct{}{}
			t.Protocols = append(t.Protocols, ev.Protocol)
		}
		if _, ok := seenPool[ev.Pool]; !ok {
			seenPool[ev.Pool] = struct{}{}
			t.Pools = append(t.Pools, ev.Pool)
		}
		accumulate(t.Spent, ev.TokenIn, ev.AmountIn)
		accumulate(t.Received, ev.TokenOut, ev.AmountOut)
	}

	for token, spent := range t.Spent {
		received, ok := t.Received[token]
		if !ok {
			continue
		}
		switch spent.Cmp(received) {
		case 1:
			spent.Sub(spent, received)
			delete(t.Received, token)
		case -1:
			received.Sub(received, spent)
			delete(t.Spent, token)
		default:
			delete(t.Spent, token)
			delete(t.Received, token)
		}
	}

	_, spentNative := t.Spent[native]
	_, receivedNative := t.Received[native]
	switch {
	case spentNative:
		t.Direction = model.DirectionBuy
	case receivedNative:
		t.Direction = model.DirectionSell
	default:
		t.Direction = model.DirectionSwap
	}
	return t
}

func accumulate(m map[common.Address]*big.Int, token common.Address, amount *big.Int) {
	if amount == nil {
		return
	}
	if cur, ok := m[token]; ok {
		cur.Add(cur, amount)
		return
	}
	m[token] = new(big.Int).Set(amount)
}
