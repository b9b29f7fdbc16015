// Package merger reduces several ranked result lists into one.
package merger

import (
	"container/heap"
)

// Ranked is implemented by result entries that carry their own total order.
// Compare returns a positive number when the receiver ranks above other.
type Ranked[E any] interface {
	Compare(other E) int
}

// Merge combines lists that are each sorted best first into a single list of
// at most limit entries, best first. It takes the best remaining head until
// limit entries are emitted or every list is exhausted.
func Merge[E Ranked[E]](lists [][]E, limit int) []E {
	if limit <= 0 {
		return []E{}
	}
	h := &cursorHeap[E]{lists: lists}
	total := 0
	for i, list := range lists {
		if len(list) > 0 {
			h.cursors = append(h.cursors, cursor{list: i})
			total += len(list)
		}
	}
	heap.Init(h)

	result := make([]E, 0, min(limit, total))
	for h.Len() > 0 && len(result) < limit {
		top := &h.cursors[0]
		result = append(result, lists[top.list][top.pos])
		top.pos++
		if top.pos < len(lists[top.list]) {
			heap.Fix(h, 0)
		} else {
			heap.Pop(h)
		}
	}
	return result
}

type cursor struct {
	list int
	pos  int
}

// cursorHeap is a max-heap of list heads.
type cursorHeap[E Ranked[E]] struct {
	lists   [][]E
	cursors []cursor
}

func (h *cursorHeap[E]) head(i int) E {
	c := h.cursors[i]
	return h.lists[c.list][c.pos]
}

func (h *cursorHeap[E]) Len() int { return len(h.cursors) }

func (h *cursorHeap[E]) Less(i, j int) bool {
	return h.head(i).Compare(h.head(j)) > 0
}

func (h *cursorHeap[E]) Swap(i, j int) { h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i] }

func (h *cursorHeap[E]) Push(x interface{}) {
	h.cursors = append(h.cursors, x.(cursor))
}

func (h *cursorHeap[E]) Pop() interface{} {
	old := h.cursors
	n := len(old)
	item := old[n-1]
	h.cursors = old[:n-1]
	return item
}
