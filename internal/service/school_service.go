package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	logoFolder      = "logos"
)

// SchoolService manages schools and their logos.
type SchoolService interface {
	List(ctx context.Context, search string, page, pageSize int) (dto.SchoolListResponse, error)
	Get(ctx context.Context, id uint) (dto.SchoolResponse, error)
	Create(ctx context.Context, actor ActivityActor, req dto.SchoolCreateRequest) (dto.SchoolResponse, error)
	Update(ctx context.Context, actor ActivityActor, id uint, req dto.SchoolUpdateRequest) (dto.SchoolResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
	UploadLogo(ctx context.Context, actor ActivityActor, id uint, file *multipart.FileHeader) (dto.SchoolResponse, error)
}

type schoolService struct {
	repo      repository.SchoolRepository
	uploads   UploadService
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewSchoolService constructs the school service.
func NewSchoolService(repo repository.SchoolRepository, uploads UploadService, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) SchoolService {
	return &schoolService{
		repo:      repo,
		uploads:   uploads,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "school_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/edudash-api/internal/service/school"),
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func (s *schoolService) List(ctx context.Context, search string, page, pageSize int) (dto.SchoolListResponse, error) {
	page, pageSize = normalizePage(page, pageSize)
	schools, total, err := s.repo.List(ctx, strings.TrimSpace(search), page, pageSize)
	if err != nil {
		return dto.SchoolListResponse{}, err
	}

	items := make([]dto.SchoolResponse, 0, len(schools))
	for _, school := range schools {
		items = append(items, dto.NewSchoolResponse(school))
	}
	return dto.SchoolListResponse{Items: items, Pagination: dto.NewPaginationMeta(page, pageSize, total)}, nil
}

func (s *schoolService) Get(ctx context.Context, id uint) (dto.SchoolResponse, error) {
	school, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SchoolResponse{}, ErrSchoolNotFound
		}
		return dto.SchoolResponse{}, err
	}
	return dto.NewSchoolResponse(school), nil
}

func (s *schoolService) Create(ctx context.Context, actor ActivityActor, req dto.SchoolCreateRequest) (dto.SchoolResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SchoolResponse{}, err
	}

	school := models.School{
		Name:    strings.TrimSpace(req.Name),
		Address: strings.TrimSpace(req.Address),
		Phone:   strings.TrimSpace(req.Phone),
	}
	if err := s.repo.Create(ctx, &school); err != nil {
		if isUniqueViolation(err) {
			return dto.SchoolResponse{}, ErrNameTaken
		}
		return dto.SchoolResponse{}, err
	}

	record(ctx, s.activity, s.logger, actor, "school.created", "school", uintPtr(school.ID), map[string]interface{}{"name": school.Name})
	return dto.NewSchoolResponse(school), nil
}

func (s *schoolService) Update(ctx context.Context, actor ActivityActor, id uint, req dto.SchoolUpdateRequest) (dto.SchoolResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SchoolResponse{}, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}

	school, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.SchoolResponse{}, ErrSchoolNotFound
		case isUniqueViolation(err):
			return dto.SchoolResponse{}, ErrNameTaken
		}
		return dto.SchoolResponse{}, err
	}

	record(ctx, s.activity, s.logger, actor, "school.updated", "school", uintPtr(id), map[string]interface{}{"fields": len(updates)})
	return dto.NewSchoolResponse(school), nil
}

func (s *schoolService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSchoolNotFound
		}
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	record(ctx, s.activity, s.logger, actor, "school.deleted", "school", uintPtr(id), nil)
	return nil
}

func (s *schoolService) UploadLogo(ctx context.Context, actor ActivityActor, id uint, file *multipart.FileHeader) (dto.SchoolResponse, error) {
	ctx, span := s.tracer.Start(ctx, "school.upload_logo")
	defer span.End()
	span.SetAttributes(attribute.Int("school.id", int(id)))

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SchoolResponse{}, ErrSchoolNotFound
		}
		return dto.SchoolResponse{}, err
	}

	asset, err := s.uploads.UploadImage(ctx, logoFolder, file)
	if err != nil {
		span.RecordError(err)
		return dto.SchoolResponse{}, err
	}

	school, err := s.repo.Update(ctx, id, map[string]interface{}{"logo_url": asset.URL})
	if err != nil {
		return dto.SchoolResponse{}, err
	}

	record(ctx, s.activity, s.logger, actor, "school.logo_uploaded", "school", uintPtr(id), map[string]interface{}{"public_id": asset.PublicID})
	return dto.NewSchoolResponse(school), nil
}
