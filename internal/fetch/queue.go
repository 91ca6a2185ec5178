package fetch

import "sync"

// queue is the shared work queue one invocation's workers claim from.
// Claims are exclusive and strictly FIFO; TryClaim never blocks so workers
// observe cancellation promptly instead of parking on an empty queue.
type queue struct {
	mu    sync.Mutex
	items []string
}

func newQueue(ids []string) *queue {
	items := make([]string, len(ids))
	copy(items, ids)
	return &queue{items: items}
}

// TryClaim removes and returns the head of the queue. Returns false when
// the queue is empty.
func (q *queue) TryClaim() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return "", false
	}

	id := q.items[0]
	q.items = q.items[1:]
	return id, true
}

// Drain removes every not-yet-claimed item and returns how many were
// dropped. In-flight claims are unaffected.
func (q *queue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = nil
	return n
}

// Len returns the number of unclaimed items
func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
