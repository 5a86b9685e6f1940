package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic_PublishInSubscriptionOrder(t *testing.T) {
	topic := NewTopic[int]("numbers")

	var got []string
	topic.Subscribe(func(v int) { got = append(got, "a") })
	topic.Subscribe(func(v int) { got = append(got, "b") })

	topic.Publish(1)
	topic.Publish(2)

	assert.Equal(t, []string{"a", "b", "a", "b"}, got)
}

func TestTopic_Unsubscribe(t *testing.T) {
	topic := NewTopic[Signal]("cart")

	calls := 0
	unsubscribe := topic.Subscribe(func(Signal) { calls++ })
	require.Equal(t, 1, topic.Len())

	topic.Publish(Signal{})
	unsubscribe()
	unsubscribe()
	topic.Publish(Signal{})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, topic.Len())
}

func TestTopic_UnsubscribeDuringPublish(t *testing.T) {
	topic := NewTopic[Signal]("cart")

	var first, second int
	var unsubscribe func()
	unsubscribe = topic.Subscribe(func(Signal) {
		first++
		unsubscribe()
	})
	topic.Subscribe(func(Signal) { second++ })

	topic.Publish(Signal{})
	topic.Publish(Signal{})

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestTopic_NoSubscribers(t *testing.T) {
	topic := NewTopic[Signal]("empty")
	assert.NotPanics(t, func() { topic.Publish(Signal{}) })
}

func TestBus_TopicsAreIndependent(t *testing.T) {
	bus := NewBus()

	var cart, wishlist int
	bus.CartChanged.Subscribe(func(Signal) { cart++ })
	bus.WishlistChanged.Subscribe(func(Signal) { wishlist++ })

	bus.CartChanged.Publish(Signal{})

	assert.Equal(t, 1, cart)
	assert.Equal(t, 0, wishlist)
	assert.Equal(t, TopicCartChanged, bus.CartChanged.Name())
	assert.Equal(t, TopicWishlistChanged, bus.WishlistChanged.Name())
}
