package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edudash-api/internal/dto"
)

func TestSchoolServiceCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewSchoolService(f.schools, nil, testValidator(), nil, testLogger())
	actor := ActivityActor{ID: 1}

	created, err := svc.Create(ctx, actor, dto.SchoolCreateRequest{Name: " North High ", Phone: "+62 812 3456 789"})
	require.NoError(t, err)
	require.Equal(t, "North High", created.Name)

	_, err = svc.Create(ctx, actor, dto.SchoolCreateRequest{Name: "North High"})
	require.ErrorIs(t, err, ErrNameTaken)

	updated, err := svc.Update(ctx, actor, created.ID, dto.SchoolUpdateRequest{Address: ptrString("1 Main St")})
	require.NoError(t, err)
	require.Equal(t, "1 Main St", updated.Address)

	list, err := svc.List(ctx, "north", 0, 500)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, maxPageSize, list.Pagination.PageSize)

	require.NoError(t, svc.Delete(ctx, actor, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrSchoolNotFound)
	require.ErrorIs(t, svc.Delete(ctx, actor, created.ID), ErrSchoolNotFound)
}

func TestSchoolServiceUploadLogo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	storage := &storageStub{}
	svc := NewSchoolService(f.schools, NewUploadService(storage, 5, testLogger()), testValidator(), nil, testLogger())

	created, err := svc.Create(ctx, ActivityActor{ID: 1}, dto.SchoolCreateRequest{Name: "North High"})
	require.NoError(t, err)

	withLogo, err := svc.UploadLogo(ctx, ActivityActor{ID: 1}, created.ID, buildFileHeader(t, "crest.png", pngHeader))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/logos/crest.png", withLogo.LogoURL)

	_, err = svc.UploadLogo(ctx, ActivityActor{ID: 1}, 999, buildFileHeader(t, "crest.png", pngHeader))
	require.ErrorIs(t, err, ErrSchoolNotFound)
}

func TestBatchServiceValidatesWindowAndSchool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewBatchService(f.batches, f.schools, testValidator(), nil, nil, testLogger())
	actor := ActivityActor{ID: 1}

	_, err := svc.Create(ctx, actor, dto.BatchCreateRequest{Name: "2024-Alpha", StartDate: "2024-02-01", EndDate: "2024-01-01"})
	require.ErrorIs(t, err, ErrInvalidBatchWindow)

	_, err = svc.Create(ctx, actor, dto.BatchCreateRequest{Name: "2024-Alpha", SchoolID: ptrUint(9)})
	require.ErrorIs(t, err, ErrSchoolNotFound)

	created, err := svc.Create(ctx, actor, dto.BatchCreateRequest{Name: "2024-Alpha", StartDate: "2024-01-08"})
	require.NoError(t, err)
	require.Equal(t, "2024-01-08", *created.StartDate)
	require.Nil(t, created.EndDate)

	_, err = svc.Update(ctx, actor, created.ID, dto.BatchUpdateRequest{EndDate: ptrString("2024-01-01")})
	require.ErrorIs(t, err, ErrInvalidBatchWindow)

	_, err = svc.Update(ctx, actor, created.ID, dto.BatchUpdateRequest{EndDate: ptrString("01/02/2024")})
	require.ErrorIs(t, err, ErrInvalidInput)

	cleared, err := svc.Update(ctx, actor, created.ID, dto.BatchUpdateRequest{StartDate: ptrString(""), EndDate: ptrString("2024-06-30")})
	require.NoError(t, err)
	require.Nil(t, cleared.StartDate)
	require.Equal(t, "2024-06-30", *cleared.EndDate)

	_, err = svc.Create(ctx, actor, dto.BatchCreateRequest{Name: "2024-Alpha"})
	require.ErrorIs(t, err, ErrNameTaken)

	list, err := svc.List(ctx, dto.BatchListRequest{Search: "alpha"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	require.NoError(t, svc.Delete(ctx, actor, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrBatchNotFound)
}
