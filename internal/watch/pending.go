package watch

import "tradeScope/internal/model"

// held is a qualifying trade waiting for confirmations.
type held struct {
	match     model.ResolvedTrade
	releaseAt uint64
}

// pendingQueue holds candidates in emission order. Blocks are evaluated in
// ascending order, so releaseAt never decreases along the queue.
type pendingQueue struct {
	items []held
}

func (q *pendingQueue) push(match model.ResolvedTrade, releaseAt uint64) {
	q.items = append(q.items, held{match: match, releaseAt: releaseAt})
}

// peek returns the oldest candidate if head has reached its release height.
func (q *pendingQueue) peek(head uint64) (held, bool) {
	if len(q.items) == 0 || q.items[0].releaseAt > head {
		return held{}, false
	}
	return q.items[0], true
}

func (q *pendingQueue) pop() {
	q.items[0] = held{}
	q.items = q.items[1:]
}

func (q *pendingQueue) Len() int {
	return len(q.items)
}

func (q *pendingQueue) clear() {
	q.items = nil
}
