package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishUser(context.Background(), "u1", "payload"))
	assert.NoError(t, n.PublishBroadcast(context.Background(), "payload"))
	assert.NoError(t, n.StartSubscriber(context.Background(), func(string, string) {}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "uboard:user:abc", UserChannel("abc"))

	id, ok := UserFromChannel("uboard:user:abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = UserFromChannel("uboard:user:")
	assert.False(t, ok)
	_, ok = UserFromChannel(BroadcastChannel)
	assert.False(t, ok)
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	payloads := make(chan string, 4)
	require.NoError(t, n.StartSubscriber(ctx, func(_ string, payload string) {
		payloads <- payload
	}))

	require.NoError(t, n.PublishBroadcast(context.Background(), "first"))
	assert.Eventually(t, func() bool { return len(payloads) == 1 }, testEventuallyTimeout, testPollInterval)
	assert.Equal(t, "first", <-payloads)

	cancel()
	time.Sleep(5 * testPollInterval)
	_ = n.PublishBroadcast(context.Background(), "second")
	assert.Never(t, func() bool { return len(payloads) > 0 }, 20*testPollInterval, testPollInterval)
}
