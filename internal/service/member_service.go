package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/repository"
)

// MemberService manages students, teachers and SMEs. The kind argument is one of
// models.KindStudents, models.KindTeachers or models.KindSMEs.
type MemberService interface {
	List(ctx context.Context, kind string, req dto.MemberListRequest) (dto.MemberListResponse, error)
	Get(ctx context.Context, kind string, id uint) (dto.MemberResponse, error)
	Create(ctx context.Context, actor ActivityActor, kind string, req dto.MemberCreateRequest) (dto.MemberResponse, error)
	Update(ctx context.Context, actor ActivityActor, kind string, id uint, req dto.MemberUpdateRequest) (dto.MemberResponse, error)
	Delete(ctx context.Context, actor ActivityActor, kind string, id uint) error
}

type memberService struct {
	repo      repository.MemberRepository
	accounts  repository.AccountRepository
	batches   repository.BatchRepository
	schools   repository.SchoolRepository
	resolver  SessionResolver
	validator *validator.Validate
	activity  ActivityRecorder
	reports   ReportInvalidator
	logger    zerolog.Logger
}

// NewMemberService constructs the member service.
func NewMemberService(repo repository.MemberRepository, accounts repository.AccountRepository, batches repository.BatchRepository, schools repository.SchoolRepository, resolver SessionResolver, validate *validator.Validate, activity ActivityRecorder, reports ReportInvalidator, logger zerolog.Logger) MemberService {
	return &memberService{
		repo:      repo,
		accounts:  accounts,
		batches:   batches,
		schools:   schools,
		resolver:  resolver,
		validator: validate,
		activity:  activity,
		reports:   reports,
		logger:    logger.With().Str("component", "member_service").Logger(),
	}
}

func validKind(kind string) bool {
	switch kind {
	case models.KindStudents, models.KindTeachers, models.KindSMEs:
		return true
	}
	return false
}

func entityType(kind string) string {
	return strings.TrimSuffix(kind, "s")
}

func (s *memberService) List(ctx context.Context, kind string, req dto.MemberListRequest) (dto.MemberListResponse, error) {
	if !validKind(kind) {
		return dto.MemberListResponse{}, ErrInvalidKind
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	filter := repository.MemberFilter{
		Search:   strings.TrimSpace(req.Search),
		Status:   strings.TrimSpace(req.Status),
		BatchID:  req.BatchID,
		SchoolID: req.SchoolID,
		Page:     page,
		PageSize: pageSize,
	}

	var (
		items []dto.MemberResponse
		total int64
	)
	switch kind {
	case models.KindStudents:
		rows, count, err := s.repo.ListStudents(ctx, filter)
		if err != nil {
			return dto.MemberListResponse{}, err
		}
		items, total = make([]dto.MemberResponse, 0, len(rows)), count
		for _, row := range rows {
			items = append(items, dto.NewStudentResponse(row))
		}
	case models.KindTeachers:
		rows, count, err := s.repo.ListTeachers(ctx, filter)
		if err != nil {
			return dto.MemberListResponse{}, err
		}
		items, total = make([]dto.MemberResponse, 0, len(rows)), count
		for _, row := range rows {
			items = append(items, dto.NewTeacherResponse(row))
		}
	default:
		rows, count, err := s.repo.ListSMEs(ctx, filter)
		if err != nil {
			return dto.MemberListResponse{}, err
		}
		items, total = make([]dto.MemberResponse, 0, len(rows)), count
		for _, row := range rows {
			items = append(items, dto.NewSMEResponse(row))
		}
	}

	return dto.MemberListResponse{Items: items, Pagination: dto.NewPaginationMeta(page, pageSize, total)}, nil
}

func (s *memberService) Get(ctx context.Context, kind string, id uint) (dto.MemberResponse, error) {
	if !validKind(kind) {
		return dto.MemberResponse{}, ErrInvalidKind
	}

	var (
		resp dto.MemberResponse
		err  error
	)
	switch kind {
	case models.KindStudents:
		var student models.Student
		if student, err = s.repo.GetStudent(ctx, id); err == nil {
			resp = dto.NewStudentResponse(student)
		}
	case models.KindTeachers:
		var teacher models.Teacher
		if teacher, err = s.repo.GetTeacher(ctx, id); err == nil {
			resp = dto.NewTeacherResponse(teacher)
		}
	default:
		var sme models.SME
		if sme, err = s.repo.GetSME(ctx, id); err == nil {
			resp = dto.NewSMEResponse(sme)
		}
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MemberResponse{}, ErrMemberNotFound
		}
		return dto.MemberResponse{}, err
	}
	return resp, nil
}

func (s *memberService) Create(ctx context.Context, actor ActivityActor, kind string, req dto.MemberCreateRequest) (dto.MemberResponse, error) {
	if !validKind(kind) {
		return dto.MemberResponse{}, ErrInvalidKind
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.MemberResponse{}, err
	}
	if err := s.ensureRefs(ctx, req.BatchID, req.SchoolID); err != nil {
		return dto.MemberResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.accounts.FindByEmail(ctx, email); err == nil {
		return dto.MemberResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.MemberResponse{}, err
	}

	profile := models.Profile{
		Name:   strings.TrimSpace(req.Name),
		Email:  email,
		Phone:  strings.TrimSpace(req.Phone),
		Status: req.Status,
	}
	if profile.Status == "" {
		profile.Status = models.ProfileStatusActive
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return dto.MemberResponse{}, err
		}
		profile.PasswordHash = hash
	}

	var (
		id  uint
		err error
	)
	switch kind {
	case models.KindStudents:
		student := models.Student{
			BatchID:          req.BatchID,
			SchoolID:         req.SchoolID,
			EnrollmentNumber: strings.TrimSpace(req.EnrollmentNumber),
			GuardianName:     strings.TrimSpace(req.GuardianName),
			Profile:          profile,
		}
		err = s.repo.CreateStudent(ctx, &student)
		id = student.ProfileID
	case models.KindTeachers:
		teacher := models.Teacher{
			BatchID:  req.BatchID,
			SchoolID: req.SchoolID,
			Subject:  strings.TrimSpace(req.Subject),
			Profile:  profile,
		}
		err = s.repo.CreateTeacher(ctx, &teacher)
		id = teacher.ProfileID
	default:
		sme := models.SME{
			BatchID:   req.BatchID,
			SchoolID:  req.SchoolID,
			Expertise: strings.TrimSpace(req.Expertise),
			Profile:   profile,
		}
		err = s.repo.CreateSME(ctx, &sme)
		id = sme.ProfileID
	}
	if err != nil {
		if isUniqueViolation(err) {
			return dto.MemberResponse{}, ErrEmailTaken
		}
		return dto.MemberResponse{}, err
	}
	invalidateReports(ctx, s.reports, kind, nil)

	record(ctx, s.activity, s.logger, actor, entityType(kind)+".created", entityType(kind), uintPtr(id), map[string]interface{}{
		"email":    email,
		"batch_id": req.BatchID,
	})
	return s.Get(ctx, kind, id)
}

func (s *memberService) Update(ctx context.Context, actor ActivityActor, kind string, id uint, req dto.MemberUpdateRequest) (dto.MemberResponse, error) {
	if !validKind(kind) {
		return dto.MemberResponse{}, ErrInvalidKind
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.MemberResponse{}, err
	}
	if err := s.ensureRefs(ctx, req.BatchID, req.SchoolID); err != nil {
		return dto.MemberResponse{}, err
	}

	profileUpdates := map[string]interface{}{}
	if req.Name != nil {
		profileUpdates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		existing, err := s.accounts.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != id:
			return dto.MemberResponse{}, ErrEmailTaken
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return dto.MemberResponse{}, err
		}
		profileUpdates["email"] = email
	}
	if req.Phone != nil {
		profileUpdates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Status != nil {
		profileUpdates["status"] = *req.Status
	}

	memberUpdates := map[string]interface{}{}
	switch {
	case req.ClearBatch:
		memberUpdates["batch_id"] = nil
	case req.BatchID != nil:
		memberUpdates["batch_id"] = *req.BatchID
	}
	if req.SchoolID != nil {
		memberUpdates["school_id"] = *req.SchoolID
	}
	switch kind {
	case models.KindStudents:
		if req.EnrollmentNumber != nil {
			memberUpdates["enrollment_number"] = strings.TrimSpace(*req.EnrollmentNumber)
		}
		if req.GuardianName != nil {
			memberUpdates["guardian_name"] = strings.TrimSpace(*req.GuardianName)
		}
	case models.KindTeachers:
		if req.Subject != nil {
			memberUpdates["subject"] = strings.TrimSpace(*req.Subject)
		}
	default:
		if req.Expertise != nil {
			memberUpdates["expertise"] = strings.TrimSpace(*req.Expertise)
		}
	}

	if err := s.repo.Update(ctx, kind, id, profileUpdates, memberUpdates); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.MemberResponse{}, ErrMemberNotFound
		case isUniqueViolation(err):
			return dto.MemberResponse{}, ErrEmailTaken
		}
		return dto.MemberResponse{}, err
	}
	if s.resolver != nil {
		s.resolver.Invalidate(ctx, id)
	}
	invalidateReports(ctx, s.reports, kind, nil)

	record(ctx, s.activity, s.logger, actor, entityType(kind)+".updated", entityType(kind), uintPtr(id), map[string]interface{}{
		"fields": len(profileUpdates) + len(memberUpdates),
	})
	return s.Get(ctx, kind, id)
}

func (s *memberService) Delete(ctx context.Context, actor ActivityActor, kind string, id uint) error {
	if !validKind(kind) {
		return ErrInvalidKind
	}
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}
	if s.resolver != nil {
		s.resolver.Invalidate(ctx, id)
	}
	invalidateReports(ctx, s.reports, kind, nil)

	record(ctx, s.activity, s.logger, actor, entityType(kind)+".deleted", entityType(kind), uintPtr(id), nil)
	return nil
}

func (s *memberService) ensureRefs(ctx context.Context, batchID, schoolID *uint) error {
	if batchID != nil {
		if _, err := s.batches.GetByID(ctx, *batchID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBatchNotFound
			}
			return err
		}
	}
	if schoolID != nil {
		if _, err := s.schools.GetByID(ctx, *schoolID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSchoolNotFound
			}
			return err
		}
	}
	return nil
}
