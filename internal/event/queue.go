package event

// Queue is the FIFO holding cell for incoming events. Push tags each event
// with a monotonically increasing sequence number; the dispatcher drains the
// queue in sequence order and puts deferred events back at the front.
//
// Queue is not safe for concurrent use; the engine serializes all access
// through its tick goroutine.
type Queue struct {
	items   []*Event
	nextSeq uint64
}

// NewQueue creates an empty queue. Sequence numbers start at 1.
func NewQueue() *Queue {
	return &Queue{nextSeq: 1}
}

// Push appends an event and assigns its sequence number.
func (q *Queue) Push(ev *Event) {
	ev.Sequence = q.nextSeq
	q.nextSeq++
	q.items = append(q.items, ev)
}

// PopFront removes and returns the oldest event, or nil if empty.
func (q *Queue) PopFront() *Event {
	if len(q.items) == 0 {
		return nil
	}
	ev := q.items[0]
	q.items = q.items[1:]
	return ev
}

// DrainAll removes and returns every queued event in sequence order.
func (q *Queue) DrainAll() []*Event {
	items := q.items
	q.items = nil
	return items
}

// Requeue puts events back at the front of the queue, preserving their
// relative order. Sequence numbers are kept verbatim.
func (q *Queue) Requeue(evs []*Event) {
	if len(evs) == 0 {
		return
	}
	q.items = append(append(make([]*Event, 0, len(evs)+len(q.items)), evs...), q.items...)
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.items)
}
