package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"tradeScope/internal/model"
)

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu      sync.RWMutex
	tsCache map[uint64]uint64
	chainID *big.Int
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID, fetched once per client.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	c.mu.RLock()
	id := c.chainID
	c.mu.RUnlock()
	if id != nil {
		return new(big.Int).Set(id), nil
	}

	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.chainID = id
	c.mu.Unlock()
	return new(big.Int).Set(id), nil
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// HeaderByNumber returns the block header by number.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.ethClient.HeaderByNumber(ctx, number)
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

type rpcTransaction struct {
	Hash             common.Hash     `json:"hash"`
	From             common.Address  `json:"from"`
	To               *common.Address `json:"to"`
	Value            *hexutil.Big    `json:"value"`
	BlockNumber      *hexutil.Big    `json:"blockNumber"`
	BlockHash        *common.Hash    `json:"blockHash"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex"`
}

// TransactionByHash returns the transaction fields the analyzer needs. The
// sender is taken from the node response so chain-specific transaction types
// do not need a local signer. Returns ethereum.NotFound for unknown hashes.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (model.Transaction, error) {
	var raw *rpcTransaction
	if err := c.rpcClient.CallContext(ctx, &raw, "eth_getTransactionByHash", hash); err != nil {
		return model.Transaction{}, err
	}
	if raw == nil {
		return model.Transaction{}, ethereum.NotFound
	}

	tx := model.Transaction{
		Hash:  raw.Hash,
		From:  raw.From,
		To:    raw.To,
		Value: new(big.Int),
	}
	if raw.Value != nil {
		tx.Value = raw.Value.ToInt()
	}
	if raw.BlockNumber != nil {
		tx.BlockNumber = raw.BlockNumber.ToInt().Uint64()
	}
	if raw.BlockHash != nil {
		tx.BlockHash = *raw.BlockHash
	}
	if raw.TransactionIndex != nil {
		tx.Index = uint(*raw.TransactionIndex)
	}
	return tx, nil
}

// TransactionReceipt returns the receipt with its logs converted to RawLog.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (model.Receipt, error) {
	receipt, err := c.ethClient.TransactionReceipt(ctx, hash)
	if err != nil {
		return model.Receipt{}, err
	}
	return buildReceipt(receipt), nil
}

type rpcBlock struct {
	Number       *hexutil.Big  `json:"number"`
	Hash         common.Hash   `json:"hash"`
	Transactions []common.Hash `json:"transactions"`
}

// BlockSummary returns the block at number, or the latest block when number is
// nil. A nil summary with a nil error means the node reported no block.
func (c *Client) BlockSummary(ctx context.Context, number *big.Int) (*model.BlockSummary, error) {
	tag := "latest"
	if number != nil {
		tag = hexutil.EncodeBig(number)
	}

	var raw *rpcBlock
	if err := c.rpcClient.CallContext(ctx, &raw, "eth_getBlockByNumber", tag, false); err != nil {
		return nil, err
	}
	if raw == nil || raw.Number == nil {
		return nil, nil
	}

	return &model.BlockSummary{
		Number:   raw.Number.ToInt().Uint64(),
		Hash:     raw.Hash,
		TxHashes: raw.Transactions,
	}, nil
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// BlockTimeWindow returns the timestamp difference between two blocks.
func (c *Client) BlockTimeWindow(ctx context.Context, from, to uint64) (uint64, error) {
	if to < from {
		return 0, fmt.Errorf("to block must be >= from block")
	}
	fromTs, err := c.BlockTimestamp(ctx, from)
	if err != nil {
		return 0, err
	}
	toTs, err := c.BlockTimestamp(ctx, to)
	if err != nil {
		return 0, err
	}
	if toTs < fromTs {
		return 0, nil
	}
	return toTs - fromTs, nil
}
