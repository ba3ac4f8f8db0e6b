package observe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestSubject_SubscribeEmitsCurrentValue(t *testing.T) {
	s := New(3)
	ch, cancel := s.Subscribe()
	defer cancel()

	assert.Equal(t, 3, receive(t, ch))
}

func TestSubject_PublishReachesAllSubscribers(t *testing.T) {
	s := New("a")
	ch1, cancel1 := s.Subscribe()
	defer cancel1()
	ch2, cancel2 := s.Subscribe()
	defer cancel2()

	receive(t, ch1)
	receive(t, ch2)

	s.Publish("b")
	assert.Equal(t, "b", receive(t, ch1))
	assert.Equal(t, "b", receive(t, ch2))
	assert.Equal(t, "b", s.Value())
}

func TestSubject_SlowSubscriberSeesLatest(t *testing.T) {
	s := New(0)
	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 1; i <= 10; i++ {
		s.Publish(i)
	}
	assert.Equal(t, 10, receive(t, ch))
}

func TestSubject_Unsubscribe(t *testing.T) {
	s := New(0)
	ch, cancel := s.Subscribe()
	assert.Equal(t, 1, s.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, s.Subscribers())

	s.Publish(1)

	// Drain the initial value, then the channel must be closed.
	<-ch
	_, ok := <-ch
	assert.False(t, ok)
}
