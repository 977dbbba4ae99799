// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package graph

// readyHeap is a min-heap of entries ordered by insertion sequence.
// It is the ready set of the topological sort and is not safe for
// concurrent use.
type readyHeap struct {
	heap []*Entry
}

func (h *readyHeap) Len() int { return len(h.heap) }

func (h *readyHeap) Push(e *Entry) {
	h.heap = append(h.heap, e)
	h.bubbleUp(len(h.heap) - 1)
}

// Pop removes the entry added earliest. It returns nil when empty.
func (h *readyHeap) Pop() *Entry {
	if len(h.heap) == 0 {
		return nil
	}
	top := h.heap[0]
	last := len(h.heap) - 1
	h.heap[0] = h.heap[last]
	h.heap[last] = nil
	h.heap = h.heap[:last]
	if last > 0 {
		h.bubbleDown(0)
	}
	return top
}

func (h *readyHeap) bubbleUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.heap[parent].seq <= h.heap[i].seq {
			return
		}
		h.heap[parent], h.heap[i] = h.heap[i], h.heap[parent]
		i = parent
	}
}

func (h *readyHeap) bubbleDown(i int) {
	n := len(h.heap)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.heap[left].seq < h.heap[smallest].seq {
			smallest = left
		}
		if right < n && h.heap[right].seq < h.heap[smallest].seq {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.heap[i], h.heap[smallest] = h.heap[smallest], h.heap[i]
		i = smallest
	}
}
