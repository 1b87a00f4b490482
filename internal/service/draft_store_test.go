package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edudash-api/internal/attendance"
	"github.com/noah-isme/edudash-api/internal/models"
)

func TestDraftScopeKey(t *testing.T) {
	require.Equal(t, "attendance:draft:7:students:3", DraftScope{UserID: 7, Kind: models.KindStudents, BatchID: ptrUint(3)}.key())
	require.Equal(t, "attendance:draft:7:smes:0", DraftScope{UserID: 7, Kind: models.KindSMEs}.key())
}

func TestRedisDraftStoreApplyAndExpire(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	store := NewDraftStore(client, time.Hour, testLogger())
	scope := DraftScope{UserID: 1, Kind: models.KindStudents, BatchID: ptrUint(2)}

	require.NoError(t, store.Apply(ctx, scope, map[string]attendance.Status{
		"10|2024-01-08": attendance.StatusPresent,
		"11|2024-01-08": attendance.StatusAbsent,
	}, nil))
	require.NoError(t, store.Apply(ctx, scope, map[string]attendance.Status{
		"10|2024-01-09": attendance.StatusAbsent,
	}, []string{"11|2024-01-08"}))

	draft, err := store.Load(ctx, scope)
	require.NoError(t, err)
	require.Equal(t, map[string]attendance.Status{
		"10|2024-01-08": attendance.StatusPresent,
		"10|2024-01-09": attendance.StatusAbsent,
	}, draft)

	other, err := store.Load(ctx, DraftScope{UserID: 2, Kind: models.KindStudents, BatchID: ptrUint(2)})
	require.NoError(t, err)
	require.Empty(t, other)

	mr.FastForward(2 * time.Hour)
	expired, err := store.Load(ctx, scope)
	require.NoError(t, err)
	require.Empty(t, expired)
}

func TestRedisDraftStoreSkipsUnreadableCells(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	scope := DraftScope{UserID: 1, Kind: models.KindSMEs}
	mr.HSet(scope.key(), "4|2024-01-08", "present", "5|2024-01-08", "late")

	draft, err := NewDraftStore(client, time.Hour, testLogger()).Load(context.Background(), scope)
	require.NoError(t, err)
	require.Equal(t, map[string]attendance.Status{"4|2024-01-08": attendance.StatusPresent}, draft)
}

func TestMemoryDraftStore(t *testing.T) {
	ctx := context.Background()
	store := NewDraftStore(nil, time.Minute, testLogger()).(*memoryDraftStore)
	now := time.Date(2024, time.January, 11, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	scope := DraftScope{UserID: 3, Kind: models.KindStudents, BatchID: ptrUint(1)}

	require.NoError(t, store.Apply(ctx, scope, map[string]attendance.Status{"1|2024-01-08": attendance.StatusPresent}, nil))
	draft, err := store.Load(ctx, scope)
	require.NoError(t, err)
	require.Len(t, draft, 1)

	draft["2|2024-01-08"] = attendance.StatusAbsent
	again, err := store.Load(ctx, scope)
	require.NoError(t, err)
	require.Len(t, again, 1)

	require.NoError(t, store.Apply(ctx, scope, nil, []string{"1|2024-01-08"}))
	empty, err := store.Load(ctx, scope)
	require.NoError(t, err)
	require.Empty(t, empty)

	require.NoError(t, store.Apply(ctx, scope, map[string]attendance.Status{"1|2024-01-09": attendance.StatusAbsent}, nil))
	now = now.Add(2 * time.Minute)
	expired, err := store.Load(ctx, scope)
	require.NoError(t, err)
	require.Empty(t, expired)

	require.NoError(t, store.Apply(ctx, scope, map[string]attendance.Status{"1|2024-01-09": attendance.StatusAbsent}, nil))
	require.NoError(t, store.Clear(ctx, scope))
	cleared, err := store.Load(ctx, scope)
	require.NoError(t, err)
	require.Empty(t, cleared)
}
