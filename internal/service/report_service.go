package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/edudash-api/internal/attendance"
	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/observability"
	"github.com/noah-isme/edudash-api/internal/report"
	"github.com/noah-isme/edudash-api/internal/repository"
)

const reportArchiveFolder = "reports"

// RenderedReport is a generated report file.
type RenderedReport struct {
	FileName    string
	ContentType string
	Body        []byte
}

// ReportService aggregates monthly attendance and renders it as files.
type ReportService interface {
	ReportInvalidator
	Attendance(ctx context.Context, session auth.Session, req dto.AttendanceReportRequest) (dto.AttendanceReportResponse, error)
	Render(ctx context.Context, session auth.Session, req dto.AttendanceReportRequest, format report.Format) (RenderedReport, error)
	Archive(ctx context.Context, session auth.Session, req dto.AttendanceReportRequest) (dto.AttendanceReportArchiveResponse, error)
}

type reportService struct {
	repo     repository.AttendanceRepository
	scope    batchScope
	cache    *redis.Client
	cacheTTL time.Duration
	uploads  UploadService
	activity ActivityRecorder
	location *time.Location
	now      func() time.Time
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// ReportServiceOptions carries the optional collaborators of the report service.
type ReportServiceOptions struct {
	Cache    *redis.Client
	CacheTTL time.Duration
	Uploads  UploadService
	Activity ActivityRecorder
	Location *time.Location
	Now      func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo repository.AttendanceRepository, batches repository.BatchRepository, members repository.MemberRepository, opts ReportServiceOptions, logger zerolog.Logger) ReportService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &reportService{
		repo:     repo,
		scope:    batchScope{batches: batches, members: members},
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		uploads:  opts.Uploads,
		activity: opts.Activity,
		location: opts.Location,
		now:      opts.Now,
		logger:   logger.With().Str("component", "report_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/edudash-api/internal/service/report"),
	}
}

func reportCacheKey(kind string, batchID *uint, month string) string {
	batch := "all"
	if batchID != nil {
		batch = fmt.Sprintf("%d", *batchID)
	}
	return fmt.Sprintf("report:attendance:%s:%s:%s", kind, batch, month)
}

func (s *reportService) month(value string) (time.Time, error) {
	if value == "" {
		first, _ := attendance.MonthBounds(attendance.DateOf(s.now().In(s.location)))
		return first, nil
	}
	month, err := attendance.ParseMonth(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return month, nil
}

func (s *reportService) Attendance(ctx context.Context, session auth.Session, req dto.AttendanceReportRequest) (dto.AttendanceReportResponse, error) {
	resp, _, err := s.build(ctx, session, req)
	return resp, err
}

// build returns the JSON report plus the summary for renderers.
func (s *reportService) build(ctx context.Context, session auth.Session, req dto.AttendanceReportRequest) (dto.AttendanceReportResponse, attendance.Summary, error) {
	ctx, span := s.tracer.Start(ctx, "report.attendance")
	defer span.End()

	batch, err := s.scope.resolveGrid(ctx, session, req.Kind, req.BatchID)
	if err != nil {
		return dto.AttendanceReportResponse{}, attendance.Summary{}, err
	}
	month, err := s.month(req.Month)
	if err != nil {
		return dto.AttendanceReportResponse{}, attendance.Summary{}, err
	}
	monthLabel := month.Format(attendance.MonthLayout)
	span.SetAttributes(
		attribute.String("report.kind", req.Kind),
		attribute.String("report.month", monthLabel),
	)

	key := reportCacheKey(req.Kind, req.BatchID, monthLabel)
	if cached, ok := s.fromCache(ctx, key); ok {
		span.SetAttributes(attribute.Bool("report.cache_hit", true))
		return cached, summaryFromResponse(cached), nil
	}

	from, to := attendance.MonthBounds(month)
	attendees, err := s.repo.ListAttendees(ctx, repository.AttendeeFilter{Kind: req.Kind, BatchID: req.BatchID})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list attendees")
		return dto.AttendanceReportResponse{}, attendance.Summary{}, err
	}

	people := make([]attendance.Person, 0, len(attendees))
	ids := make([]uint, 0, len(attendees))
	for _, a := range attendees {
		people = append(people, attendance.Person{ID: a.PersonID, Name: a.Name})
		ids = append(ids, a.PersonID)
	}

	records, err := s.repo.ListRecords(ctx, ids, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list records")
		return dto.AttendanceReportResponse{}, attendance.Summary{}, err
	}

	summary := attendance.Aggregate(people, toAttendanceRecords(records), from, to)

	batchName := ""
	if batch != nil {
		batchName = batch.Name
	}
	resp := dto.AttendanceReportResponse{
		Kind:           req.Kind,
		BatchID:        req.BatchID,
		BatchName:      batchName,
		Month:          monthLabel,
		From:           attendance.FormatDate(from),
		To:             attendance.FormatDate(to),
		FileName:       report.FileName(batchName, month, report.FormatPDF),
		SessionCount:   summary.SessionCount,
		TotalPresent:   summary.TotalPresent,
		TotalAbsent:    summary.TotalAbsent,
		OverallPercent: summary.OverallPercent,
		Rows:           make([]dto.AttendanceReportRow, 0, len(summary.Rows)),
		Chart: dto.AttendanceChartResponse{
			Labels: make([]string, 0, len(summary.Rows)),
			Values: make([]int, 0, len(summary.Rows)),
		},
		GeneratedAt: s.now().UTC(),
	}
	for _, row := range summary.Rows {
		resp.Rows = append(resp.Rows, dto.AttendanceReportRow{
			PersonID: row.PersonID,
			Name:     row.Name,
			Present:  row.Present,
			Absent:   row.Absent,
			Percent:  row.Percent,
		})
		resp.Chart.Labels = append(resp.Chart.Labels, row.Name)
		resp.Chart.Values = append(resp.Chart.Values, row.Percent)
	}

	s.toCache(ctx, key, resp)
	span.SetStatus(codes.Ok, "aggregated")
	return resp, summary, nil
}

func summaryFromResponse(resp dto.AttendanceReportResponse) attendance.Summary {
	from, _ := attendance.ParseDate(resp.From)
	to, _ := attendance.ParseDate(resp.To)
	summary := attendance.Summary{
		From:           from,
		To:             to,
		Rows:           make([]attendance.Tally, 0, len(resp.Rows)),
		SessionCount:   resp.SessionCount,
		TotalPresent:   resp.TotalPresent,
		TotalAbsent:    resp.TotalAbsent,
		OverallPercent: resp.OverallPercent,
	}
	for _, row := range resp.Rows {
		summary.Rows = append(summary.Rows, attendance.Tally{
			PersonID: row.PersonID,
			Name:     row.Name,
			Present:  row.Present,
			Absent:   row.Absent,
			Percent:  row.Percent,
		})
	}
	return summary
}

func (s *reportService) fromCache(ctx context.Context, key string) (dto.AttendanceReportResponse, bool) {
	if s.cache == nil {
		return dto.AttendanceReportResponse{}, false
	}
	payload, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read report cache")
		}
		return dto.AttendanceReportResponse{}, false
	}
	var resp dto.AttendanceReportResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to decode cached report")
		return dto.AttendanceReportResponse{}, false
	}
	resp.CacheHit = true
	return resp, true
}

func (s *reportService) toCache(ctx context.Context, key string, resp dto.AttendanceReportResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache report")
	}
}

// invalidateReports drops every cached month of a roster after it changed.
// Teachers are not report rows, so their kind is ignored.
func invalidateReports(ctx context.Context, reports ReportInvalidator, kind string, batchID *uint) {
	if reports == nil || gridKind(kind) != nil {
		return
	}
	reports.Invalidate(ctx, kind, batchID, nil)
}

func (s *reportService) Invalidate(ctx context.Context, kind string, batchID *uint, months []string) {
	if s.cache == nil {
		return
	}
	if len(months) == 0 {
		s.invalidateAll(ctx, kind, batchID)
		return
	}

	keys := make([]string, 0, len(months)*2)
	for _, month := range months {
		keys = append(keys, reportCacheKey(kind, nil, month))
		if batchID != nil {
			keys = append(keys, reportCacheKey(kind, batchID, month))
			continue
		}
		// An unfiltered save may touch any batch of the month.
		iter := s.cache.Scan(ctx, 0, fmt.Sprintf("report:attendance:%s:*:%s", kind, month), 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to scan report cache")
		}
	}

	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("failed to invalidate report cache")
	}
}

// invalidateAll clears every month of the batch plus the unfiltered reports,
// or every report of the kind when batchID is nil.
func (s *reportService) invalidateAll(ctx context.Context, kind string, batchID *uint) {
	patterns := []string{fmt.Sprintf("report:attendance:%s:*", kind)}
	if batchID != nil {
		patterns = []string{
			fmt.Sprintf("report:attendance:%s:%d:*", kind, *batchID),
			fmt.Sprintf("report:attendance:%s:all:*", kind),
		}
	}

	var keys []string
	for _, pattern := range patterns {
		iter := s.cache.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			s.logger.Warn().Err(err).Str("pattern", pattern).Msg("failed to scan report cache")
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("failed to invalidate report cache")
	}
}

func (s *reportService) Render(ctx context.Context, session auth.Session, req dto.AttendanceReportRequest, format report.Format) (RenderedReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.render")
	defer span.End()
	span.SetAttributes(attribute.String("report.format", string(format)))

	resp, summary, err := s.build(ctx, session, req)
	if err != nil {
		return RenderedReport{}, err
	}
	month, _ := attendance.ParseMonth(resp.Month)

	doc := report.Document{
		Title:       reportTitle(req.Kind),
		BatchName:   resp.BatchName,
		Month:       month,
		GeneratedAt: s.now().In(s.location),
		Summary:     summary,
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, format, doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return RenderedReport{}, err
	}
	observability.ReportRenders().WithLabelValues(string(format)).Inc()

	return RenderedReport{
		FileName:    report.FileName(resp.BatchName, month, format),
		ContentType: format.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}

func (s *reportService) Archive(ctx context.Context, session auth.Session, req dto.AttendanceReportRequest) (dto.AttendanceReportArchiveResponse, error) {
	if s.uploads == nil {
		return dto.AttendanceReportArchiveResponse{}, ErrStorageUnavailable
	}

	rendered, err := s.Render(ctx, session, req, report.FormatPDF)
	if err != nil {
		return dto.AttendanceReportArchiveResponse{}, err
	}

	asset, err := s.uploads.UploadDocument(ctx, reportArchiveFolder, rendered.FileName, rendered.Body)
	if err != nil {
		return dto.AttendanceReportArchiveResponse{}, err
	}

	var entityID *uint
	if req.BatchID != nil {
		entityID = uintPtr(*req.BatchID)
	}
	record(ctx, s.activity, s.logger, ActorFromSession(session), "report.archived", "batch", entityID, map[string]interface{}{
		"kind":      req.Kind,
		"file_name": rendered.FileName,
		"public_id": asset.PublicID,
	})

	return dto.AttendanceReportArchiveResponse{
		FileName: rendered.FileName,
		URL:      asset.URL,
		PublicID: asset.PublicID,
	}, nil
}

func reportTitle(kind string) string {
	if kind == models.KindSMEs {
		return "SME Attendance Report"
	}
	return "Student Attendance Report"
}
