package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicDeliversInOrder(t *testing.T) {
	topic := NewTopic[int]()
	var got []int
	topic.Subscribe(func(v int) { got = append(got, v) })

	topic.Publish(1)
	topic.Publish(2)
	topic.Publish(3)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestTopicMultipleSubscribers(t *testing.T) {
	topic := NewTopic[string]()
	var a, b []string
	topic.Subscribe(func(v string) { a = append(a, v) })
	topic.Subscribe(func(v string) { b = append(b, v) })

	topic.Publish("x")
	assert.Equal(t, []string{"x"}, a)
	assert.Equal(t, []string{"x"}, b)
}

func TestTopicDeliversInSubscriptionOrder(t *testing.T) {
	topic := NewTopic[int]()
	var order []string
	topic.Subscribe(func(int) { order = append(order, "a") })
	mid := topic.Subscribe(func(int) { order = append(order, "b") })
	topic.Subscribe(func(int) { order = append(order, "c") })

	topic.Publish(1)
	assert.Equal(t, []string{"a", "b", "c"}, order)

	// Removing a middle subscriber keeps the remaining order intact.
	mid()
	order = nil
	topic.Publish(2)
	assert.Equal(t, []string{"a", "c"}, order)
}

func TestTopicUnsubscribe(t *testing.T) {
	topic := NewTopic[int]()
	var got []int
	unsub := topic.Subscribe(func(v int) { got = append(got, v) })

	topic.Publish(1)
	unsub()
	unsub() // double unsubscribe is harmless
	topic.Publish(2)
	assert.Equal(t, []int{1}, got)
}

func TestTopicPublishWithoutSubscribers(t *testing.T) {
	topic := NewTopic[int]()
	assert.NotPanics(t, func() { topic.Publish(42) })
}
