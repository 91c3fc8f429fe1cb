// heap.go implements the settlement queue: a min-heap of submitted
// sharetokens ordered by their contract's settlement close time, so the
// earliest-due token is always on top.
package tracker

import (
	"container/heap"

	"github.com/wireskip/contract/api"
)

// stEntry holds a queued sharetoken with its heap index.
type stEntry struct {
	st    *api.Sharetoken
	index int
}

// stHeap is the container/heap implementation under settlementQueue.
type stHeap []*stEntry

func (h stHeap) Len() int { return len(h) }

func (h stHeap) Less(i, j int) bool {
	return h[i].st.Contract.SettlementClose < h[j].st.Contract.SettlementClose
}

func (h stHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *stHeap) Push(x interface{}) {
	e := x.(*stEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *stHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// settlementQueue is the tracker-facing view of the heap. It is not
// safe for concurrent use; the tracker task is its only owner.
type settlementQueue struct {
	h stHeap
}

func newSettlementQueue() *settlementQueue {
	q := &settlementQueue{}
	heap.Init(&q.h)
	return q
}

// Push queues a token for settlement.
func (q *settlementQueue) Push(st *api.Sharetoken) {
	heap.Push(&q.h, &stEntry{st: st})
}

// PopDue removes and returns the earliest-due token if its settlement
// window has closed by now, nil otherwise.
func (q *settlementQueue) PopDue(now int64) *api.Sharetoken {
	if len(q.h) == 0 || q.h[0].st.Contract.SettlementClose > now {
		return nil
	}
	return heap.Pop(&q.h).(*stEntry).st
}

// Next returns the settlement close time of the earliest-due token.
func (q *settlementQueue) Next() (int64, bool) {
	if len(q.h) == 0 {
		return 0, false
	}
	return q.h[0].st.Contract.SettlementClose, true
}

// Drain removes and returns all queued tokens, earliest first.
func (q *settlementQueue) Drain() []*api.Sharetoken {
	out := make([]*api.Sharetoken, 0, len(q.h))
	for len(q.h) > 0 {
		out = append(out, heap.Pop(&q.h).(*stEntry).st)
	}
	return out
}

// Len returns the number of queued tokens.
func (q *settlementQueue) Len() int { return len(q.h) }
