package ranker

import (
	"container/heap"
)

// TopK returns the k best docs, best first, without sorting the rest.
func TopK(docs []ScoredDoc, k int) []ScoredDoc {
	if k <= 0 {
		return []ScoredDoc{}
	}
	h := &scoredDocHeap{}
	heap.Init(h)
	for _, doc := range docs {
		heap.Push(h, doc)
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ScoredDoc)
	}
	return result
}

// scoredDocHeap keeps the worst doc on top so it can be evicted.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return Compare(h[i], h[j]) > 0 }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
