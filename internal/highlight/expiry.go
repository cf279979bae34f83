package highlight

import (
	"container/heap"
	"time"
)

// expiryItem keys one highlight by its expiry instant. Items for
// highlights removed early stay in the heap and are skipped on pop.
type expiryItem struct {
	at time.Time
	id string
}

type expiryHeap struct {
	items []expiryItem
}

func (h *expiryHeap) Len() int           { return len(h.items) }
func (h *expiryHeap) Less(i, j int) bool { return h.items[i].at.Before(h.items[j].at) }
func (h *expiryHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *expiryHeap) Push(x any)         { h.items = append(h.items, x.(expiryItem)) }
func (h *expiryHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

func (h *expiryHeap) push(item expiryItem) { heap.Push(h, item) }

func (h *expiryHeap) pop() expiryItem { return heap.Pop(h).(expiryItem) }

func (h *expiryHeap) peek() (expiryItem, bool) {
	if len(h.items) == 0 {
		return expiryItem{}, false
	}
	return h.items[0], true
}
