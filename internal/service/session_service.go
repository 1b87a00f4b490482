package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/repository"
)

// SessionService schedules sessions and drives their lifecycle.
type SessionService interface {
	List(ctx context.Context, session auth.Session, req dto.SessionListRequest) (dto.SessionListResponse, error)
	Get(ctx context.Context, id uint) (dto.SessionResponse, error)
	Create(ctx context.Context, actor ActivityActor, req dto.SessionCreateRequest) (dto.SessionResponse, error)
	Update(ctx context.Context, actor ActivityActor, id uint, req dto.SessionUpdateRequest) (dto.SessionResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
	ChangeStatus(ctx context.Context, session auth.Session, id uint, req dto.SessionStatusRequest) (dto.SessionResponse, error)
}

type sessionService struct {
	repo      repository.SessionRepository
	members   repository.MemberRepository
	batches   repository.BatchRepository
	scope     batchScope
	notifier  Notifier
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewSessionService constructs the session service.
// A nil notifier disables cancellation notices.
func NewSessionService(repo repository.SessionRepository, members repository.MemberRepository, batches repository.BatchRepository, notifier Notifier, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) SessionService {
	return &sessionService{
		repo:      repo,
		members:   members,
		batches:   batches,
		scope:     batchScope{batches: batches, members: members},
		notifier:  notifier,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "session_service").Logger(),
	}
}

func (s *sessionService) List(ctx context.Context, session auth.Session, req dto.SessionListRequest) (dto.SessionListResponse, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)

	allowed, err := s.scope.allowed(ctx, session)
	if err != nil {
		return dto.SessionListResponse{}, err
	}

	filter := repository.SessionFilter{
		BatchID:   req.BatchID,
		BatchIDs:  allowed,
		TeacherID: req.TeacherID,
		Status:    strings.TrimSpace(req.Status),
		From:      req.From,
		To:        req.To,
		Page:      page,
		PageSize:  pageSize,
	}

	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.SessionListResponse{}, err
	}

	items := make([]dto.SessionResponse, 0, len(sessions))
	for _, item := range sessions {
		items = append(items, dto.NewSessionResponse(item))
	}
	return dto.SessionListResponse{Items: items, Pagination: dto.NewPaginationMeta(page, pageSize, total)}, nil
}

func (s *sessionService) Get(ctx context.Context, id uint) (dto.SessionResponse, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}
	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Create(ctx context.Context, actor ActivityActor, req dto.SessionCreateRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SessionResponse{}, err
	}

	startsAt, endsAt, err := parseSessionWindow(req.StartsAt, req.EndsAt)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	if err := s.ensureRefs(ctx, &req.TeacherID, &req.BatchID); err != nil {
		return dto.SessionResponse{}, err
	}

	model := models.Session{
		Course:      strings.TrimSpace(req.Course),
		TeacherID:   req.TeacherID,
		BatchID:     req.BatchID,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		MeetingLink: strings.TrimSpace(req.MeetingLink),
		Status:      models.SessionStatusScheduled,
	}
	if err := s.repo.Create(ctx, &model); err != nil {
		return dto.SessionResponse{}, err
	}

	record(ctx, s.activity, s.logger, actor, "session.created", "session", uintPtr(model.ID), map[string]interface{}{
		"course":   model.Course,
		"batch_id": model.BatchID,
	})
	return s.Get(ctx, model.ID)
}

func (s *sessionService) Update(ctx context.Context, actor ActivityActor, id uint, req dto.SessionUpdateRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SessionResponse{}, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}
	if current.Status != models.SessionStatusScheduled {
		return dto.SessionResponse{}, fmt.Errorf("session is %s: %w", current.Status, ErrInvalidTransition)
	}
	if err := s.ensureRefs(ctx, req.TeacherID, req.BatchID); err != nil {
		return dto.SessionResponse{}, err
	}

	updates := map[string]interface{}{}
	if req.Course != nil {
		updates["course"] = strings.TrimSpace(*req.Course)
	}
	if req.TeacherID != nil {
		updates["teacher_id"] = *req.TeacherID
	}
	if req.BatchID != nil {
		updates["batch_id"] = *req.BatchID
	}
	if req.MeetingLink != nil {
		updates["meeting_link"] = strings.TrimSpace(*req.MeetingLink)
	}

	startsAt, endsAt := current.StartsAt, current.EndsAt
	if req.StartsAt != nil {
		if startsAt, err = time.Parse(time.RFC3339, *req.StartsAt); err != nil {
			return dto.SessionResponse{}, ErrInvalidInput
		}
		updates["starts_at"] = startsAt.UTC()
	}
	if req.EndsAt != nil {
		if endsAt, err = time.Parse(time.RFC3339, *req.EndsAt); err != nil {
			return dto.SessionResponse{}, ErrInvalidInput
		}
		updates["ends_at"] = endsAt.UTC()
	}
	if !endsAt.After(startsAt) {
		return dto.SessionResponse{}, ErrInvalidSessionWindow
	}

	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	record(ctx, s.activity, s.logger, actor, "session.updated", "session", uintPtr(id), map[string]interface{}{"fields": len(updates)})
	return dto.NewSessionResponse(updated), nil
}

func (s *sessionService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	record(ctx, s.activity, s.logger, actor, "session.deleted", "session", uintPtr(id), nil)
	return nil
}

func (s *sessionService) ChangeStatus(ctx context.Context, session auth.Session, id uint, req dto.SessionStatusRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SessionResponse{}, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}

	if session.Role == models.RoleTeacher && current.TeacherID != session.UserID {
		allowed, err := s.scope.allowed(ctx, session)
		if err != nil {
			return dto.SessionResponse{}, err
		}
		if !containsID(allowed, current.BatchID) {
			return dto.SessionResponse{}, ErrOutOfScope
		}
	}

	if !models.CanTransition(current.Status, req.Status) {
		return dto.SessionResponse{}, fmt.Errorf("%s to %s: %w", current.Status, req.Status, ErrInvalidTransition)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, req.Status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, fmt.Errorf("session changed concurrently: %w", ErrInvalidTransition)
		}
		return dto.SessionResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActorFromSession(session), "session.status_changed", "session", uintPtr(id), map[string]interface{}{
		"from": current.Status,
		"to":   req.Status,
	})

	if req.Status == models.SessionStatusCancelled && updated.TeacherID != session.UserID && s.notifier != nil {
		message := fmt.Sprintf("Session %q on %s was cancelled", updated.Course, updated.StartsAt.Format("2006-01-02 15:04"))
		if _, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
			UserID:  updated.TeacherID,
			Type:    models.NotificationWarning,
			Message: message,
		}); err != nil {
			s.logger.Warn().Err(err).Uint("session_id", id).Msg("failed to notify teacher of cancellation")
		}
	}
	return dto.NewSessionResponse(updated), nil
}

func (s *sessionService) ensureRefs(ctx context.Context, teacherID, batchID *uint) error {
	if teacherID != nil {
		if _, err := s.members.GetTeacher(ctx, *teacherID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("teacher %d: %w", *teacherID, ErrMemberNotFound)
			}
			return err
		}
	}
	if batchID != nil {
		if _, err := s.batches.GetByID(ctx, *batchID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBatchNotFound
			}
			return err
		}
	}
	return nil
}

func parseSessionWindow(start, end string) (time.Time, time.Time, error) {
	startsAt, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidInput
	}
	endsAt, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidInput
	}
	if !endsAt.After(startsAt) {
		return time.Time{}, time.Time{}, ErrInvalidSessionWindow
	}
	return startsAt.UTC(), endsAt.UTC(), nil
}
