package chain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"tradeScope/internal/model"
)

// BuildRawLog converts a go-ethereum log into the decoder's input form.
func BuildRawLog(log types.Log) model.RawLog {
	topics := make([]common.Hash, 0, len(log.Topics))
	topics = append(topics, log.Topics...)
	return model.RawLog{
		Address: log.Address,
		Topics:  topics,
		Data:    log.Data,
		Index:   log.Index,
	}
}

func buildReceipt(receipt *types.Receipt) model.Receipt {
	logs := make([]model.RawLog, 0, len(receipt.Logs))
	for _, log := range receipt.Logs {
		if log == nil || log.Removed {
			continue
		}
		logs = append(logs, BuildRawLog(*log))
	}

	out := model.Receipt{
		TxHash:    receipt.TxHash,
		Status:    receipt.Status,
		BlockHash: receipt.BlockHash,
		Logs:      logs,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return out
}
