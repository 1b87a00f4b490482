package service

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/repository"
)

//go:embed schema/student_import.schema.json
var studentImportSchema []byte

const studentImportSchemaURL = "edudash://schema/student_import.schema.json"

// ImportValidationError lists the roster entries that failed schema validation.
type ImportValidationError struct {
	Details map[string]string
}

func (e *ImportValidationError) Error() string {
	return fmt.Sprintf("roster failed validation (%d problems)", len(e.Details))
}

// ImportService bulk-creates or updates students from a JSON roster.
type ImportService interface {
	ImportStudents(ctx context.Context, actor ActivityActor, payload []byte) (dto.StudentImportResponse, error)
}

type importService struct {
	repo     repository.MemberRepository
	batches  repository.BatchRepository
	schema   *jsonschema.Schema
	activity ActivityRecorder
	reports  ReportInvalidator
	logger   zerolog.Logger
}

// NewImportService compiles the roster schema and constructs the import service.
func NewImportService(repo repository.MemberRepository, batches repository.BatchRepository, activity ActivityRecorder, reports ReportInvalidator, logger zerolog.Logger) (ImportService, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(studentImportSchemaURL, bytes.NewReader(studentImportSchema)); err != nil {
		return nil, fmt.Errorf("load roster schema: %w", err)
	}
	schema, err := compiler.Compile(studentImportSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile roster schema: %w", err)
	}

	return &importService{
		repo:     repo,
		batches:  batches,
		schema:   schema,
		activity: activity,
		reports:  reports,
		logger:   logger.With().Str("component", "import_service").Logger(),
	}, nil
}

func (s *importService) ImportStudents(ctx context.Context, actor ActivityActor, payload []byte) (dto.StudentImportResponse, error) {
	var document interface{}
	if err := json.Unmarshal(payload, &document); err != nil {
		return dto.StudentImportResponse{}, &ImportValidationError{Details: map[string]string{"body": "invalid JSON payload"}}
	}
	if err := s.schema.Validate(document); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return dto.StudentImportResponse{}, &ImportValidationError{Details: schemaDetails(validationErr)}
		}
		return dto.StudentImportResponse{}, err
	}

	var req dto.StudentImportRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return dto.StudentImportResponse{}, err
	}

	seen := make(map[string]int, len(req.Students))
	batchIDs := map[uint]struct{}{}
	students := make([]models.Student, 0, len(req.Students))
	for i, row := range req.Students {
		email := strings.ToLower(strings.TrimSpace(row.Email))
		if first, ok := seen[email]; ok {
			return dto.StudentImportResponse{}, &ImportValidationError{Details: map[string]string{
				fmt.Sprintf("/students/%d/email", i): fmt.Sprintf("duplicates entry %d", first),
			}}
		}
		seen[email] = i
		if row.BatchID != nil {
			batchIDs[*row.BatchID] = struct{}{}
		}

		students = append(students, models.Student{
			BatchID:          row.BatchID,
			SchoolID:         row.SchoolID,
			EnrollmentNumber: strings.TrimSpace(row.EnrollmentNumber),
			GuardianName:     strings.TrimSpace(row.GuardianName),
			Profile: models.Profile{
				Name:   strings.TrimSpace(row.Name),
				Email:  email,
				Phone:  strings.TrimSpace(row.Phone),
				Status: models.ProfileStatusActive,
			},
		})
	}

	for batchID := range batchIDs {
		if _, err := s.batches.GetByID(ctx, batchID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.StudentImportResponse{}, fmt.Errorf("batch %d: %w", batchID, ErrBatchNotFound)
			}
			return dto.StudentImportResponse{}, err
		}
	}

	result, err := s.repo.ImportStudents(ctx, students)
	if err != nil {
		s.logger.Error().Err(err).Int("rows", len(students)).Msg("student import failed")
		return dto.StudentImportResponse{}, err
	}
	invalidateReports(ctx, s.reports, models.KindStudents, nil)

	record(ctx, s.activity, s.logger, actor, "student.imported", "student", nil, map[string]interface{}{
		"created": result.Created,
		"updated": result.Updated,
	})
	return dto.StudentImportResponse{Created: result.Created, Updated: result.Updated}, nil
}

func schemaDetails(err *jsonschema.ValidationError) map[string]string {
	details := map[string]string{}
	output := err.BasicOutput()
	for _, item := range output.Errors {
		if item.Error == "" || strings.HasPrefix(item.Error, "doesn't validate with") {
			continue
		}
		location := item.InstanceLocation
		if location == "" {
			location = "/"
		}
		if _, exists := details[location]; !exists {
			details[location] = item.Error
		}
	}
	if len(details) == 0 {
		details["/"] = err.Message
	}
	return details
}

