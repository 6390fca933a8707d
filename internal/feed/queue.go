package feed

import "github.com/ballparklive/ballpark/internal/game"

// eventQueue is the FIFO of enriched events awaiting delivery. It is owned
// exclusively by the polling goroutine, so no locking here.
type eventQueue struct {
	events []game.Event
}

func (q *eventQueue) enqueue(events ...game.Event) {
	q.events = append(q.events, events...)
}

func (q *eventQueue) dequeue() (game.Event, bool) {
	if len(q.events) == 0 {
		return game.Event{}, false
	}
	event := q.events[0]
	q.events = q.events[1:]
	return event, true
}

func (q *eventQueue) len() int {
	return len(q.events)
}

func (q *eventQueue) reset() {
	q.events = nil
}
