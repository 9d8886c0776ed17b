package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicFanOut(t *testing.T) {
	topic := NewTopic[int]()
	a := topic.Subscribe()
	b := topic.Subscribe()

	topic.Publish(1)
	topic.Publish(2)

	assert.Equal(t, 1, <-a)
	assert.Equal(t, 2, <-a)
	assert.Equal(t, 1, <-b)
	assert.Equal(t, 2, <-b)
}

func TestTopicSlowSubscriberKeepsEvents(t *testing.T) {
	topic := NewTopic[int]()
	slow := topic.Subscribe()

	// Publish far past the delivery channel capacity without draining;
	// Publish must not block, and nothing may be lost.
	const n = subscriberBuffer * 4
	for i := 0; i < n; i++ {
		topic.Publish(i)
	}

	for i := 0; i < n; i++ {
		assert.Equal(t, i, recv(t, slow))
	}

	topic.Close()
	_, ok := <-slow
	assert.False(t, ok)
}

func TestTopicClose(t *testing.T) {
	topic := NewTopic[string]()
	ch := topic.Subscribe()

	topic.Close()
	_, ok := <-ch
	assert.False(t, ok)

	// Publishing and closing again are no-ops.
	topic.Publish("late")
	topic.Close()

	// Subscribing after close yields an already-closed channel.
	late := topic.Subscribe()
	_, ok = <-late
	require.False(t, ok)
}
