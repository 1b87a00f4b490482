package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
)

type notifierStub struct {
	sent []dto.NotificationCreateRequest
}

func (n *notifierStub) Publish(_ context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	n.sent = append(n.sent, payload)
	return dto.NotificationResponse{ID: uint(len(n.sent)), UserID: payload.UserID, Type: payload.Type, Message: payload.Message}, nil
}

type sessionHarness struct {
	*fixture
	svc      SessionService
	notifier *notifierStub
	batch    models.Batch
	teacher  models.Teacher
}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()
	f := newFixture(t)
	start := day(2024, time.January, 1)
	batch := f.batch(t, "2024-Alpha", &start, nil, nil)
	teacher := f.teacher(t, "tom", nil)
	notifier := &notifierStub{}
	return &sessionHarness{
		fixture:  f,
		svc:      NewSessionService(f.sessions, f.members, f.batches, notifier, testValidator(), nil, testLogger()),
		notifier: notifier,
		batch:    batch,
		teacher:  teacher,
	}
}

func (h *sessionHarness) schedule(t *testing.T) dto.SessionResponse {
	t.Helper()
	resp, err := h.svc.Create(context.Background(), ActivityActor{ID: 9000, Role: models.RoleAdmin}, dto.SessionCreateRequest{
		Course:    "Algebra",
		TeacherID: h.teacher.ProfileID,
		BatchID:   h.batch.ID,
		StartsAt:  "2024-01-10T09:00:00Z",
		EndsAt:    "2024-01-10T10:30:00Z",
	})
	require.NoError(t, err)
	return resp
}

func TestSessionCreate(t *testing.T) {
	h := newSessionHarness(t)

	resp := h.schedule(t)
	require.Equal(t, models.SessionStatusScheduled, resp.Status)
	require.Equal(t, "tom", resp.TeacherName)
	require.Equal(t, "2024-Alpha", resp.BatchName)

	_, err := h.svc.Create(context.Background(), ActivityActor{ID: 9000}, dto.SessionCreateRequest{
		Course:    "Algebra",
		TeacherID: h.teacher.ProfileID,
		BatchID:   h.batch.ID,
		StartsAt:  "2024-01-10T09:00:00Z",
		EndsAt:    "2024-01-10T08:00:00Z",
	})
	require.ErrorIs(t, err, ErrInvalidSessionWindow)

	_, err = h.svc.Create(context.Background(), ActivityActor{ID: 9000}, dto.SessionCreateRequest{
		Course:    "Algebra",
		TeacherID: 4242,
		BatchID:   h.batch.ID,
		StartsAt:  "2024-01-10T09:00:00Z",
		EndsAt:    "2024-01-10T10:00:00Z",
	})
	require.ErrorIs(t, err, ErrMemberNotFound)

	_, err = h.svc.Create(context.Background(), ActivityActor{ID: 9000}, dto.SessionCreateRequest{
		Course:    " ",
		TeacherID: h.teacher.ProfileID,
		BatchID:   h.batch.ID,
		StartsAt:  "2024-01-10T09:00:00Z",
		EndsAt:    "2024-01-10T10:00:00Z",
	})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestSessionLifecycle(t *testing.T) {
	h := newSessionHarness(t)
	ctx := context.Background()
	created := h.schedule(t)
	teacher := auth.Session{UserID: h.teacher.ProfileID, Role: models.RoleTeacher}

	ongoing, err := h.svc.ChangeStatus(ctx, teacher, created.ID, dto.SessionStatusRequest{Status: models.SessionStatusOngoing})
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusOngoing, ongoing.Status)

	_, err = h.svc.Update(ctx, ActivityActor{ID: 9000}, created.ID, dto.SessionUpdateRequest{Course: ptrString("Geometry")})
	require.ErrorIs(t, err, ErrInvalidTransition)

	completed, err := h.svc.ChangeStatus(ctx, teacher, created.ID, dto.SessionStatusRequest{Status: models.SessionStatusCompleted})
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusCompleted, completed.Status)

	_, err = h.svc.ChangeStatus(ctx, teacher, created.ID, dto.SessionStatusRequest{Status: models.SessionStatusCancelled})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Empty(t, h.notifier.sent)
}

func TestSessionScheduledCannotComplete(t *testing.T) {
	h := newSessionHarness(t)
	created := h.schedule(t)

	_, err := h.svc.ChangeStatus(context.Background(), adminSession(), created.ID, dto.SessionStatusRequest{Status: models.SessionStatusCompleted})
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = h.svc.ChangeStatus(context.Background(), adminSession(), 999, dto.SessionStatusRequest{Status: models.SessionStatusOngoing})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionCancelNotifiesTeacher(t *testing.T) {
	h := newSessionHarness(t)
	created := h.schedule(t)

	cancelled, err := h.svc.ChangeStatus(context.Background(), adminSession(), created.ID, dto.SessionStatusRequest{Status: models.SessionStatusCancelled})
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusCancelled, cancelled.Status)

	require.Len(t, h.notifier.sent, 1)
	require.Equal(t, h.teacher.ProfileID, h.notifier.sent[0].UserID)
	require.Equal(t, models.NotificationWarning, h.notifier.sent[0].Type)
	require.Contains(t, h.notifier.sent[0].Message, "Algebra")
}

func TestSessionOtherTeacherOutOfScope(t *testing.T) {
	h := newSessionHarness(t)
	created := h.schedule(t)
	other := h.fixture.teacher(t, "olga", nil)

	_, err := h.svc.ChangeStatus(context.Background(), auth.Session{UserID: other.ProfileID, Role: models.RoleTeacher}, created.ID, dto.SessionStatusRequest{Status: models.SessionStatusOngoing})
	require.ErrorIs(t, err, ErrOutOfScope)

	list, err := h.svc.List(context.Background(), auth.Session{UserID: other.ProfileID, Role: models.RoleTeacher}, dto.SessionListRequest{})
	require.NoError(t, err)
	require.Empty(t, list.Items)

	mine, err := h.svc.List(context.Background(), auth.Session{UserID: h.teacher.ProfileID, Role: models.RoleTeacher}, dto.SessionListRequest{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
}

func TestSessionUpdateAndDelete(t *testing.T) {
	h := newSessionHarness(t)
	ctx := context.Background()
	created := h.schedule(t)

	updated, err := h.svc.Update(ctx, ActivityActor{ID: 9000}, created.ID, dto.SessionUpdateRequest{
		Course: ptrString("Geometry"),
		EndsAt: ptrString("2024-01-10T11:00:00Z"),
	})
	require.NoError(t, err)
	require.Equal(t, "Geometry", updated.Course)
	require.Equal(t, 11, updated.EndsAt.UTC().Hour())

	_, err = h.svc.Update(ctx, ActivityActor{ID: 9000}, created.ID, dto.SessionUpdateRequest{EndsAt: ptrString("2024-01-10T08:00:00Z")})
	require.ErrorIs(t, err, ErrInvalidSessionWindow)

	require.NoError(t, h.svc.Delete(ctx, ActivityActor{ID: 9000}, created.ID))
	require.ErrorIs(t, h.svc.Delete(ctx, ActivityActor{ID: 9000}, created.ID), ErrSessionNotFound)
}
