package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"tradeScope/internal/model"
)

func TestDecodeTransfer(t *testing.T) {
	event, err := TransferEvent()
	if err != nil {
		t.Fatalf("transfer event: %v", err)
	}
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("pack transfer: %v", err)
	}

	transfer, err := DecodeTransfer(model.RawLog{
		Address: tokenA,
		Topics:  []common.Hash{event.ID, topicFromAddress(sender), topicFromAddress(to)},
		Data:    data,
		Index:   5,
	})
	if err != nil {
		t.Fatalf("decode transfer: %v", err)
	}
	if transfer.Token != tokenA || transfer.From != sender || transfer.To != to || transfer.LogIndex != 5 {
		t.Fatalf("transfer mismatch: %+v", transfer)
	}
	if transfer.Value.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("value mismatch: %s", transfer.Value)
	}
}

func TestDecodeTransferRejectsNFT(t *testing.T) {
	event, err := TransferEvent()
	if err != nil {
		t.Fatalf("transfer event: %v", err)
	}
	nft := model.RawLog{
		Address: tokenA,
		Topics: []common.Hash{
			event.ID,
			topicFromAddress(sender),
			topicFromAddress(tokenB),
			common.BigToHash(big.NewInt(42)),
		},
	}
	if _, err := DecodeTransfer(nft); err == nil {
		t.Fatalf("expected error for indexed token id")
	}
}
