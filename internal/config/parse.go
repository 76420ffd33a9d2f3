package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// ParseAddress converts a single address. An empty input returns ok=false.
func ParseAddress(input string) (common.Address, bool, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, false, nil
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, false, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), true, nil
}

// ParseTxHash converts a 0x-prefixed 32-byte hex string into common.Hash.
func ParseTxHash(input string) (common.Hash, error) {
	input = strings.TrimSpace(input)
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid tx hash: %s", input)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid tx hash length: %s", input)
	}
	return common.BytesToHash(data), nil
}

// ParseMinValue parses a non-negative base-10 integer amount in the smallest unit.
func ParseMinValue(input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return new(big.Int), nil
	}
	value, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, fmt.Errorf("invalid min value: %s", input)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("min value must not be negative: %s", input)
	}
	return value, nil
}
