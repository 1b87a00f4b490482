package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksEmail(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		ActorRole:  "Admin",
		Action:     "Student.Updated",
		EntityType: "student",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"email": "student@example.com",
			"field": "status",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["email"])
	require.Equal(t, "status", entry.Metadata["field"])
	require.Equal(t, uint(1), entry.ActorID)
	require.Equal(t, "admin", repo.entries[0].ActorRole)
	require.Equal(t, "student.updated", repo.entries[0].Action)
}

func TestActivityServiceRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "batch"})
	require.Error(t, err)
}

func TestActivityServiceList(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())
	record(context.Background(), svc, testLogger(), ActivityActor{ID: 2}, "school.created", "school", ptrUint(1), nil)

	resp, err := svc.List(context.Background(), dto.AdminActivityListRequest{PageSize: 10})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "system", resp.Items[0].ActorRole)
	require.Equal(t, int64(1), resp.Pagination.TotalItems)
}
