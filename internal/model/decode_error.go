package model

import "github.com/ethereum/go-ethereum/common"

// IssueKind classifies a dropped log.
type IssueKind string

const (
	IssueMalformed           IssueKind = "malformed"
	IssuePoolMetaUnavailable IssueKind = "pool_meta_unavailable"
)

// DecodeIssue records a matched log that could not be turned into a swap.
type DecodeIssue struct {
	TxHash   common.Hash
	LogIndex uint
	Address  common.Address
	Topic0   common.Hash
	Kind     IssueKind
	Err      error
}

func (i DecodeIssue) Error() string {
	if i.Err == nil {
		return string(i.Kind)
	}
	return string(i.Kind) + ": " + i.Err.Error()
}
