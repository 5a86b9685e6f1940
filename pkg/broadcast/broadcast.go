// Package broadcast implements in-process, fire-and-forget notification
// topics.
//
// A Topic delivers every published value synchronously to the subscribers
// registered at publish time, in subscription order. There is no buffering
// and no replay: a subscriber that joins late must read current state itself
// before relying on notifications.
package broadcast

import "sync"

// Signal is the empty payload carried by change notifications.
type Signal struct{}

// Topic is a named observer list for values of type T.
type Topic[T any] struct {
	name string

	mu     sync.Mutex
	nextID uint64
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// NewTopic returns an empty topic.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name}
}

// Name returns the topic name.
func (t *Topic[T]) Name() string {
	return t.name
}

// Subscribe registers fn and returns a function that removes it again.
// The returned function is idempotent and may be called from within fn.
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, s := range t.subs {
		if s.id == id {
			// Copy instead of shifting in place: Publish may be iterating
			// over a snapshot of the old slice.
			next := make([]subscriber[T], 0, len(t.subs)-1)
			next = append(next, t.subs[:i]...)
			next = append(next, t.subs[i+1:]...)
			t.subs = next
			return
		}
	}
}

// Publish delivers v to every current subscriber before returning.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	subs := t.subs
	t.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len reports the number of current subscribers.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Topic names used by the storefront.
const (
	TopicCartChanged     = "cartChanged"
	TopicWishlistChanged = "wishlistChanged"
	TopicCheckoutState   = "checkoutState"
)

// Bus groups the process-wide change topics.
type Bus struct {
	CartChanged     *Topic[Signal]
	WishlistChanged *Topic[Signal]
}

// NewBus creates a Bus with fresh topics.
func NewBus() *Bus {
	return &Bus{
		CartChanged:     NewTopic[Signal](TopicCartChanged),
		WishlistChanged: NewTopic[Signal](TopicWishlistChanged),
	}
}
