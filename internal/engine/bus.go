package engine

import "sync"

// subscriberBuffer is the delivery channel capacity in front of each
// subscriber's queue.
const subscriberBuffer = 64

// Topic is a typed fan-out bus. Every subscriber receives every published
// event in publish order; a subscriber that stops draining accumulates a
// queue in memory rather than losing events or stalling the publisher.
type Topic[T any] struct {
	mu     sync.RWMutex
	subs   []*subscriber[T]
	closed bool
}

// NewTopic creates an empty topic.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{}
}

// Subscribe registers a new subscriber and returns its channel. The channel
// is closed after the topic closes and the subscriber's queue has flushed.
func (t *Topic[T]) Subscribe() <-chan T {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub := &subscriber[T]{
		done: make(chan struct{}),
		out:  make(chan T, subscriberBuffer),
	}
	sub.wake = sync.NewCond(&sub.mu)

	if t.closed {
		close(sub.out)
		return sub.out
	}

	t.subs = append(t.subs, sub)
	go sub.pump()
	return sub.out
}

// Publish delivers v to every subscriber. It neither blocks nor drops.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return
	}
	for _, sub := range t.subs {
		sub.enqueue(v)
	}
}

// Close stops delivery. Each subscriber channel closes once its queued
// events are flushed; events a subscriber never drains are discarded.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for _, sub := range t.subs {
		sub.close()
	}
	t.subs = nil
}

// subscriber pairs a delivery channel with the queue that absorbs bursts
// beyond the channel's capacity.
type subscriber[T any] struct {
	mu      sync.Mutex
	wake    *sync.Cond
	queue   []T
	closing bool
	done    chan struct{}
	out     chan T
}

func (s *subscriber[T]) enqueue(v T) {
	s.mu.Lock()
	if !s.closing {
		s.queue = append(s.queue, v)
		s.wake.Signal()
	}
	s.mu.Unlock()
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	if !s.closing {
		s.closing = true
		close(s.done)
		s.wake.Signal()
	}
	s.mu.Unlock()
}

// pump moves queued events onto the delivery channel. A full channel blocks
// only this subscriber's pump, never the publisher.
func (s *subscriber[T]) pump() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closing {
			s.wake.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			close(s.out)
			return
		}
		v := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- v:
		case <-s.done:
			// The topic closed while the channel was full. Hand over what
			// still fits, then give up on the remainder.
			select {
			case s.out <- v:
			default:
				close(s.out)
				return
			}
		}
	}
}
