package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	b := New[string](4)
	sub := b.Subscribe("events")

	require.True(t, b.Publish("events", "first"))
	require.True(t, b.Publish("events", "second"))

	assert.Equal(t, "first", <-sub)
	assert.Equal(t, "second", <-sub)
}

func TestPublishDropsWhenTopicFull(t *testing.T) {
	b := New[int](2)

	require.True(t, b.Publish("events", 1))
	require.True(t, b.Publish("events", 2))
	assert.False(t, b.Publish("events", 3))

	sub := b.Subscribe("events")
	assert.Equal(t, 1, <-sub)
	assert.Equal(t, 2, <-sub)
}

func TestTopicsAreIndependent(t *testing.T) {
	b := New[string](1)

	require.True(t, b.Publish("a", "for-a"))
	require.True(t, b.Publish("b", "for-b"))

	assert.Equal(t, "for-a", <-b.Subscribe("a"))
	assert.Equal(t, "for-b", <-b.Subscribe("b"))
}

func TestCloseTopic(t *testing.T) {
	b := New[string](1)
	sub := b.Subscribe("events")

	b.CloseTopic("events")

	_, open := <-sub
	assert.False(t, open)

	// Publishing after close creates a fresh topic instead of panicking.
	assert.True(t, b.Publish("events", "again"))
}
