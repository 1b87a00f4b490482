package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/attendance"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/repository"
)

// BatchService manages batches, the cohorts that bound attendance windows.
type BatchService interface {
	List(ctx context.Context, req dto.BatchListRequest) (dto.BatchListResponse, error)
	Get(ctx context.Context, id uint) (dto.BatchResponse, error)
	Create(ctx context.Context, actor ActivityActor, req dto.BatchCreateRequest) (dto.BatchResponse, error)
	Update(ctx context.Context, actor ActivityActor, id uint, req dto.BatchUpdateRequest) (dto.BatchResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
}

type batchService struct {
	repo      repository.BatchRepository
	schools   repository.SchoolRepository
	validator *validator.Validate
	activity  ActivityRecorder
	reports   ReportInvalidator
	logger    zerolog.Logger
}

// NewBatchService constructs the batch service.
func NewBatchService(repo repository.BatchRepository, schools repository.SchoolRepository, validate *validator.Validate, activity ActivityRecorder, reports ReportInvalidator, logger zerolog.Logger) BatchService {
	return &batchService{
		repo:      repo,
		schools:   schools,
		validator: validate,
		activity:  activity,
		reports:   reports,
		logger:    logger.With().Str("component", "batch_service").Logger(),
	}
}

func (s *batchService) List(ctx context.Context, req dto.BatchListRequest) (dto.BatchListResponse, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	batches, total, err := s.repo.List(ctx, repository.BatchFilter{
		Search:   strings.TrimSpace(req.Search),
		SchoolID: req.SchoolID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.BatchListResponse{}, err
	}

	items := make([]dto.BatchResponse, 0, len(batches))
	for _, batch := range batches {
		items = append(items, dto.NewBatchResponse(batch))
	}
	return dto.BatchListResponse{Items: items, Pagination: dto.NewPaginationMeta(page, pageSize, total)}, nil
}

func (s *batchService) Get(ctx context.Context, id uint) (dto.BatchResponse, error) {
	batch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BatchResponse{}, ErrBatchNotFound
		}
		return dto.BatchResponse{}, err
	}
	return dto.NewBatchResponse(batch), nil
}

func (s *batchService) Create(ctx context.Context, actor ActivityActor, req dto.BatchCreateRequest) (dto.BatchResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.BatchResponse{}, err
	}
	if err := s.ensureSchool(ctx, req.SchoolID); err != nil {
		return dto.BatchResponse{}, err
	}

	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return dto.BatchResponse{}, err
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return dto.BatchResponse{}, err
	}
	if err := checkBatchWindow(start, end); err != nil {
		return dto.BatchResponse{}, err
	}

	batch := models.Batch{
		Name:      strings.TrimSpace(req.Name),
		SchoolID:  req.SchoolID,
		StartDate: start,
		EndDate:   end,
	}
	if err := s.repo.Create(ctx, &batch); err != nil {
		if isUniqueViolation(err) {
			return dto.BatchResponse{}, ErrNameTaken
		}
		return dto.BatchResponse{}, err
	}

	record(ctx, s.activity, s.logger, actor, "batch.created", "batch", uintPtr(batch.ID), map[string]interface{}{"name": batch.Name})
	return dto.NewBatchResponse(batch), nil
}

func (s *batchService) Update(ctx context.Context, actor ActivityActor, id uint, req dto.BatchUpdateRequest) (dto.BatchResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.BatchResponse{}, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BatchResponse{}, ErrBatchNotFound
		}
		return dto.BatchResponse{}, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.SchoolID != nil {
		if err := s.ensureSchool(ctx, req.SchoolID); err != nil {
			return dto.BatchResponse{}, err
		}
		updates["school_id"] = *req.SchoolID
	}

	start, end := current.StartDate, current.EndDate
	if req.StartDate != nil {
		if start, err = parseOptionalDate(*req.StartDate); err != nil {
			return dto.BatchResponse{}, err
		}
		updates["start_date"] = start
	}
	if req.EndDate != nil {
		if end, err = parseOptionalDate(*req.EndDate); err != nil {
			return dto.BatchResponse{}, err
		}
		updates["end_date"] = end
	}
	if err := checkBatchWindow(start, end); err != nil {
		return dto.BatchResponse{}, err
	}

	batch, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if isUniqueViolation(err) {
			return dto.BatchResponse{}, ErrNameTaken
		}
		return dto.BatchResponse{}, err
	}

	s.invalidateReports(ctx, id)
	record(ctx, s.activity, s.logger, actor, "batch.updated", "batch", uintPtr(id), map[string]interface{}{"fields": len(updates)})
	return dto.NewBatchResponse(batch), nil
}

func (s *batchService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBatchNotFound
		}
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateReports(ctx, id)
	record(ctx, s.activity, s.logger, actor, "batch.deleted", "batch", uintPtr(id), nil)
	return nil
}

// invalidateReports drops the cached reports that show the batch name or roster.
func (s *batchService) invalidateReports(ctx context.Context, id uint) {
	for _, kind := range []string{models.KindStudents, models.KindSMEs} {
		invalidateReports(ctx, s.reports, kind, uintPtr(id))
	}
}

func (s *batchService) ensureSchool(ctx context.Context, schoolID *uint) error {
	if schoolID == nil {
		return nil
	}
	if _, err := s.schools.GetByID(ctx, *schoolID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSchoolNotFound
		}
		return err
	}
	return nil
}

func parseOptionalDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	date, err := attendance.ParseDate(value)
	if err != nil {
		return nil, ErrInvalidInput
	}
	return &date, nil
}

func checkBatchWindow(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return ErrInvalidBatchWindow
	}
	return nil
}
