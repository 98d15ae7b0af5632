package correlator

// queue is a FIFO of waiters. Callers hold Correlator.mu.
type queue struct {
	items []*Waiter
}

func (q *queue) push(w *Waiter) {
	q.items = append(q.items, w)
}

func (q *queue) pop() (*Waiter, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	w := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return w, true
}

func (q *queue) drain() []*Waiter {
	drained := q.items
	q.items = nil
	return drained
}

func (q *queue) len() int {
	return len(q.items)
}
