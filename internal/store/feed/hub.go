// Package feed fans row-level change events out to subscribers.
package feed

import (
	"context"
	"sync"

	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"

	"github.com/google/uuid"
)

const subscriberBuffer = 64

type subscriber[T models.Keyed] struct {
	id   string
	ch   chan models.Change[T]
	done chan struct{}
	once sync.Once
}

func (s *subscriber[T]) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub delivers each published change to every subscriber in publish order.
// Every subscriber has its own goroutine, so a slow callback never blocks the
// publisher; when its buffer is full the event is dropped and the polling
// fallback repairs the replica.
type Hub[T models.Keyed] struct {
	mu    sync.RWMutex
	subs  map[string]*subscriber[T]
	mylog logger.Logger
}

func NewHub[T models.Keyed](mylog logger.Logger) *Hub[T] {
	return &Hub[T]{
		subs:  make(map[string]*subscriber[T]),
		mylog: mylog,
	}
}

// Subscribe registers cb until ctx is done or the returned func is called.
func (h *Hub[T]) Subscribe(ctx context.Context, cb func(models.Change[T])) func() {
	s := &subscriber[T]{
		id:   uuid.NewString(),
		ch:   make(chan models.Change[T], subscriberBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[s.id] = s
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				h.remove(s.id)
				return
			case <-s.done:
				return
			case c := <-s.ch:
				cb(c)
			}
		}
	}()

	return func() { h.remove(s.id) }
}

func (h *Hub[T]) remove(id string) {
	h.mu.Lock()
	s, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if ok {
		s.stop()
	}
}

func (h *Hub[T]) Publish(c models.Change[T]) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.subs {
		select {
		case s.ch <- c:
		default:
			h.mylog.Action("feed_event_dropped").Warn("Subscriber buffer full, dropping change", "subscriber", s.id, "op", c.Op, "id", c.ID)
		}
	}
}

func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close stops every subscriber.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*subscriber[T])
	h.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}
