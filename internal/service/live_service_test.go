package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
)

func watch(svc *liveGridService, userID uint, room string) *liveClient {
	client := &liveClient{
		send:    make(chan dto.AttendanceSavedEvent, liveSendBufferSize),
		options: LiveConnectionOptions{UserID: userID, Room: room},
		service: svc,
		closed:  make(chan struct{}),
	}
	svc.hub.register(client)
	return client
}

func TestLiveRoom(t *testing.T) {
	require.Equal(t, "students:4", LiveRoom(models.KindStudents, ptrUint(4)))
	require.Equal(t, "smes:all", LiveRoom(models.KindSMEs, nil))
}

func TestLiveBroadcastReachesBatchAndUnfilteredRooms(t *testing.T) {
	svc := NewLiveGridService(nil, "", nil, testLogger()).(*liveGridService)

	saver := watch(svc, 1, "students:4")
	peer := watch(svc, 2, "students:4")
	overview := watch(svc, 3, "students:all")
	other := watch(svc, 4, "students:5")

	svc.Broadcast(context.Background(), dto.AttendanceSavedEvent{Type: "attendance.saved", Kind: models.KindStudents, BatchID: ptrUint(4), SavedBy: 1, Saved: 2})

	require.Len(t, peer.send, 1)
	require.Len(t, overview.send, 1)
	require.Empty(t, saver.send)
	require.Empty(t, other.send)

	event := <-peer.send
	require.Equal(t, 2, event.Saved)
}

func TestLiveHandleEventIgnoresOwnNode(t *testing.T) {
	svc := NewLiveGridService(nil, "", nil, testLogger()).(*liveGridService)
	peer := watch(svc, 2, "smes:all")

	own, err := json.Marshal(liveEvent{Source: svc.nodeID, Event: dto.AttendanceSavedEvent{Kind: models.KindSMEs}})
	require.NoError(t, err)
	svc.handleEvent(own)
	require.Empty(t, peer.send)

	remote, err := json.Marshal(liveEvent{Source: "node-b", Event: dto.AttendanceSavedEvent{Kind: models.KindSMEs, SavedBy: 9}})
	require.NoError(t, err)
	svc.handleEvent(remote)
	require.Len(t, peer.send, 1)

	svc.hub.unregister(peer)
	require.Empty(t, svc.hub.rooms)
}

func TestLiveEventsReachRemoteNodeOnce(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	nodeA := NewLiveGridService(client, "edudash", nil, testLogger()).(*liveGridService)
	nodeB := NewLiveGridService(client, "edudash", nil, testLogger()).(*liveGridService)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	nodeB.Start(ctx)
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(nodeB.redisStream)[nodeB.redisStream] == 1
	}, time.Second, 10*time.Millisecond)

	remote := watch(nodeB, 2, "students:4")
	nodeA.Broadcast(ctx, dto.AttendanceSavedEvent{Type: "attendance.saved", Kind: models.KindStudents, BatchID: ptrUint(4), SavedBy: 1, Saved: 3})

	select {
	case event := <-remote.send:
		require.Equal(t, 3, event.Saved)
	case <-time.After(time.Second):
		t.Fatal("remote watcher did not receive the event")
	}
	select {
	case <-remote.send:
		t.Fatal("remote watcher received the event twice")
	case <-time.After(100 * time.Millisecond):
	}
}
