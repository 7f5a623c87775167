package music

import "sync"

// Queue is a FIFO of unresolved queries.
type Queue struct {
	mu    sync.Mutex
	items []string
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(query string) {
	q.mu.Lock()
	q.items = append(q.items, query)
	q.mu.Unlock()
}

// Pop removes the front query. ok is false when the queue is empty.
func (q *Queue) Pop() (query string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	query = q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return query, true
}

func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a copy of the pending queries in play order.
func (q *Queue) Items() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.items))
	copy(out, q.items)
	return out
}
