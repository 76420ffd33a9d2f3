package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"tradeScope/internal/model"
)

// TransferEvent returns the ERC20 Transfer event definition.
func TransferEvent() (abi.Event, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return abi.Event{}, err
	}
	event, ok := parsed.Events["Transfer"]
	if !ok {
		return abi.Event{}, fmt.Errorf("erc20 abi has no Transfer event")
	}
	return event, nil
}

// DecodeTransfer decodes an ERC20 Transfer log. ERC721 transfers share the
// signature but index the token id, so they fail the topic count check.
func DecodeTransfer(log model.RawLog) (model.LargeTransfer, error) {
	event, err := TransferEvent()
	if err != nil {
		return model.LargeTransfer{}, err
	}
	if log.Topic0() != event.ID {
		return model.LargeTransfer{}, malformed("topic0 %s is not Transfer", log.Topic0().Hex())
	}
	values, err := unpackEvent(log, event)
	if err != nil {
		return model.LargeTransfer{}, err
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return model.LargeTransfer{}, malformed("value: %v", err)
	}
	from, err := topicAddress(log.Topics[1])
	if err != nil {
		return model.LargeTransfer{}, err
	}
	to, err := topicAddress(log.Topics[2])
	if err != nil {
		return model.LargeTransfer{}, err
	}
	return model.LargeTransfer{
		Token:    log.Address,
		From:     from,
		To:       to,
		Value:    value,
		LogIndex: log.Index,
	}, nil
}
