package service

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestPickFanoutUsesOneBroker(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	conn := &nats.Conn{}

	require.Equal(t, fanoutNATS, pickFanout(client, "edudash:attendance", conn, "edudash.attendance"))
	require.Equal(t, fanoutRedis, pickFanout(client, "edudash:attendance", nil, "edudash.attendance"))
	require.Equal(t, fanoutRedis, pickFanout(client, "edudash:attendance", conn, ""))
	require.Equal(t, fanoutNone, pickFanout(nil, "", nil, ""))
	require.Equal(t, "nats", fanoutNATS.String())
}

func TestServicesFanOutOverOneBroker(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	conn := &nats.Conn{}

	live := NewLiveGridService(client, "edudash", conn, testLogger()).(*liveGridService)
	require.Equal(t, fanoutNATS, live.fanout)

	notifications := NewNotificationService(nil, nil, client, "edudash", conn, testValidator(), testLogger()).(*notificationService)
	require.Equal(t, fanoutNATS, notifications.fanout)

	redisOnly := NewLiveGridService(client, "edudash", nil, testLogger()).(*liveGridService)
	require.Equal(t, fanoutRedis, redisOnly.fanout)
}
