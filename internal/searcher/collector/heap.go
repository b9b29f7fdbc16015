package collector

import (
	"cmp"
	"container/heap"
)

// topHeap is a bounded min-heap: the worst retained document is at the root
// so a better candidate can replace it in O(log K).
type topHeap[T cmp.Ordered] struct {
	items []RankedDoc[T]
	limit int
}

func newTopHeap[T cmp.Ordered](limit int) *topHeap[T] {
	return &topHeap[T]{
		items: make([]RankedDoc[T], 0, min(limit, 1024)),
		limit: limit,
	}
}

func (h *topHeap[T]) Len() int { return len(h.items) }

func (h *topHeap[T]) Less(i, j int) bool {
	return h.items[i].Compare(h.items[j]) < 0
}

func (h *topHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *topHeap[T]) Push(x interface{}) {
	h.items = append(h.items, x.(RankedDoc[T]))
}

func (h *topHeap[T]) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// offer inserts d when the heap is not full, or replaces the worst entry when
// d ranks strictly above it.
func (h *topHeap[T]) offer(d RankedDoc[T]) {
	if len(h.items) < h.limit {
		heap.Push(h, d)
		return
	}
	if d.Compare(h.items[0]) > 0 {
		h.items[0] = d
		heap.Fix(h, 0)
	}
}

// drain empties the heap and returns its entries best first.
func (h *topHeap[T]) drain() []RankedDoc[T] {
	out := make([]RankedDoc[T], len(h.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(RankedDoc[T])
	}
	return out
}
