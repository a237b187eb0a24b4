package events

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(TopicAppCreated, "sb-1", "ready")
	b := NewEvent(TopicAppCreated, "sb-1", "ready")

	assert.Len(t, a.ID, 26)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "sb-1", a.AppID)

	raw, err := a.WithReason("heartbeat").Encode()
	require.NoError(t, err)
	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "heartbeat", got.Reason)
	assert.Equal(t, a.ID, got.ID)
}

func TestEventIDsIncrease(t *testing.T) {
	prev := NewEvent(TopicAppEdited, "sb-1", "active").ID
	for i := 0; i < 1000; i++ {
		id := NewEvent(TopicAppEdited, "sb-1", "active").ID
		require.Greater(t, id, prev, "event %d", i)
		prev = id
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	p.Publish(NewEvent(TopicAppRemoved, "x", ""))
	assert.NoError(t, p.Close())
}

func TestZMQPublishSubscribe(t *testing.T) {
	port := freePort(t)

	pub, err := NewZMQPublisher(fmt.Sprintf("tcp://127.0.0.1:%d", port))
	require.NoError(t, err)
	defer pub.Close()

	var (
		mu  sync.Mutex
		got []Event
	)
	sub := NewZMQSubscriber(fmt.Sprintf("tcp://127.0.0.1:%d", port), func(e Event) error {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		return nil
	}, "app.")
	sub.SetReconnectInterval(50 * time.Millisecond)
	require.NoError(t, sub.Start())
	defer sub.Stop()

	// PUB drops messages until the subscription has propagated
	assert.Eventually(t, func() bool {
		pub.Publish(NewEvent(TopicAppEdited, "sb-1", "active"))
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 5*time.Second, 50*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, TopicAppEdited, got[0].Topic)
	assert.Equal(t, "sb-1", got[0].AppID)
}

func TestSubscriberRequiresHandler(t *testing.T) {
	assert.Error(t, NewZMQSubscriber("tcp://127.0.0.1:1", nil).Start())
}
