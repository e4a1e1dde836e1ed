// Package events implements the process-wide broadcast channel that fans
// mutations out to subscribed connections. Delivery is in-memory, at most
// once and best effort: events raised in one server process are invisible to
// another unless the optional AMQP bridge is enabled.
package events

import (
	"sync"
)

// Topic identifies one event kind. Ordering is only guaranteed among
// listeners of a single topic, never across topics.
type Topic string

const (
	// TopicMovieAdded carries a fully hydrated *models.Movie.
	TopicMovieAdded Topic = "movie.added"
	// TopicMovieVoted carries a fully hydrated *models.Movie with the
	// adjusted vote list.
	TopicMovieVoted Topic = "movie.voted"
	// TopicNightUpdated carries a *models.MovieNight including its movies.
	TopicNightUpdated Topic = "movienight.updated"
)

// Listener receives a published payload. Listeners run synchronously under
// the hub lock, so they must only enqueue: no blocking I/O and no calls back
// into the hub.
type Listener func(payload any)

// Broadcaster is the pluggable fan-out capability. Hub is the in-process
// implementation; AMQPBroadcaster bridges it across processes. Mutation
// handlers depend on this interface only, so swapping in a distributed
// broker does not touch them.
type Broadcaster interface {
	// Publish delivers payload to every currently registered listener for
	// the topic, in registration order.
	Publish(topic Topic, payload any)
	// Subscribe registers a listener and returns a cancel capability.
	// Cancel is safe to call more than once.
	Subscribe(topic Topic, fn Listener) (cancel func())
}

type entry struct {
	id uint64
	fn Listener
}

// Hub is the in-memory Broadcaster. The listener registry is the only
// concurrently mutated structure; a single mutex keeps interleaved
// subscribe/unsubscribe from simultaneously open connections safe.
type Hub struct {
	mu        sync.Mutex
	seq       uint64
	listeners map[Topic][]entry
	done      chan struct{}
	closed    bool
}

func NewHub() *Hub {
	return &Hub{
		listeners: make(map[Topic][]entry),
		done:      make(chan struct{}),
	}
}

// Publish invokes every registered listener for the topic synchronously, in
// registration order. It never blocks on downstream I/O beyond what the
// listeners themselves do, which for stream subscriptions is a non-blocking
// channel send.
func (h *Hub) Publish(topic Topic, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, e := range h.listeners[topic] {
		e.fn(payload)
	}
}

// Subscribe registers a listener for the topic. The returned cancel function
// deregisters it and is idempotent.
func (h *Hub) Subscribe(topic Topic, fn Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return func() {}
	}
	h.seq++
	id := h.seq
	h.listeners[topic] = append(h.listeners[topic], entry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			h.remove(topic, id)
		})
	}
}

func (h *Hub) remove(topic Topic, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.listeners[topic]
	for i, e := range list {
		if e.id == id {
			h.listeners[topic] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// SubscribeChan registers a channel-backed listener sized for one streaming
// connection. A consumer that falls behind the buffer has events dropped
// rather than stalling publishers. Cancel deregisters the listener and
// closes the channel; both are guaranteed to happen exactly once.
func (h *Hub) SubscribeChan(topic Topic, buffer int) (<-chan any, func()) {
	ch := make(chan any, buffer)
	cancel := h.Subscribe(topic, func(payload any) {
		select {
		case ch <- payload:
		default:
		}
	})

	var once sync.Once
	return ch, func() {
		cancel()
		once.Do(func() {
			// The listener only sends under the hub lock, and cancel has
			// already removed it, so nothing can send here anymore.
			close(ch)
		})
	}
}

// ListenerCount reports the number of registered listeners for a topic.
func (h *Hub) ListenerCount(topic Topic) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[topic])
}

// Done is closed when the hub shuts down; open streams select on it to end
// their connections server-side.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Close drops all listeners and signals open subscriptions to terminate.
// Further publishes and subscriptions are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.listeners = make(map[Topic][]entry)
	close(h.done)
}
