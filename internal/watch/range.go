package watch

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// Len returns the number of blocks in the range.
func (r BlockRange) Len() uint64 {
	return r.To - r.From + 1
}

// SplitRange splits a block range into windows of at most size blocks.
func SplitRange(from, to, size uint64) ([]BlockRange, error) {
	if size == 0 {
		return nil, fmt.Errorf("window size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0, (to-from)/size+1)
	start := from
	for {
		end := to
		if to-start >= size {
			end = start + size - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}
	return ranges, nil
}

// catchUpRange returns the blocks to evaluate after lastSeen up to head. A gap
// wider than max is cut to its newest max blocks; skipped reports how many
// blocks were dropped.
func catchUpRange(lastSeen uint64, started bool, head uint64, max uint64) (r BlockRange, skipped uint64, ok bool) {
	if !started {
		return BlockRange{From: head, To: head}, 0, true
	}
	if head <= lastSeen {
		return BlockRange{}, 0, false
	}
	r = BlockRange{From: lastSeen + 1, To: head}
	if max > 0 && r.Len() > max {
		skipped = r.Len() - max
		r.From = head - max + 1
	}
	return r, skipped, true
}
