package chain

import (
	"context"
	"time"
)

const defaultBlockInterval = 12 * time.Second

// blockIntervals lists target block times by chain ID.
var blockIntervals = map[uint64]time.Duration{
	1:     12 * time.Second,
	10:    2 * time.Second,
	56:    3 * time.Second,
	137:   2 * time.Second,
	324:   1 * time.Second,
	999:   1 * time.Second,
	8453:  2 * time.Second,
	42161: 250 * time.Millisecond,
	43114: 2 * time.Second,
}

// BlockInterval returns the chain's target block time. Unknown chains fall
// back to the spacing of the two most recent headers.
func (c *Client) BlockInterval(ctx context.Context) (time.Duration, error) {
	id, err := c.GetChainID(ctx)
	if err != nil {
		return 0, err
	}
	if id.IsUint64() {
		if d, ok := blockIntervals[id.Uint64()]; ok {
			return d, nil
		}
	}

	latest, err := c.LatestBlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	if latest == 0 {
		return defaultBlockInterval, nil
	}
	secs, err := c.BlockTimeWindow(ctx, latest-1, latest)
	if err != nil {
		return 0, err
	}
	if secs == 0 {
		return time.Second, nil
	}
	return time.Duration(secs) * time.Second, nil
}

// KnownBlockInterval returns the table entry for a chain ID.
func KnownBlockInterval(chainID uint64) (time.Duration, bool) {
	d, ok := blockIntervals[chainID]
	return d, ok
}
