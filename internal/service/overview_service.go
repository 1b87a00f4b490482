package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/edudash-api/internal/attendance"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/repository"
)

// OverviewService builds the admin landing page counters.
type OverviewService interface {
	Overview(ctx context.Context) (dto.AdminOverviewResponse, error)
}

type overviewService struct {
	members    repository.MemberRepository
	schools    repository.SchoolRepository
	batches    repository.BatchRepository
	sessions   repository.SessionRepository
	attendance repository.AttendanceRepository
	location   *time.Location
	now        func() time.Time
	logger     zerolog.Logger
}

// NewOverviewService constructs the overview service.
func NewOverviewService(members repository.MemberRepository, schools repository.SchoolRepository, batches repository.BatchRepository, sessions repository.SessionRepository, attendanceRepo repository.AttendanceRepository, location *time.Location, logger zerolog.Logger) OverviewService {
	if location == nil {
		location = time.UTC
	}
	return &overviewService{
		members:    members,
		schools:    schools,
		batches:    batches,
		sessions:   sessions,
		attendance: attendanceRepo,
		location:   location,
		now:        time.Now,
		logger:     logger.With().Str("component", "overview_service").Logger(),
	}
}

func (s *overviewService) Overview(ctx context.Context) (dto.AdminOverviewResponse, error) {
	now := s.now().In(s.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	dayEnd := dayStart.AddDate(0, 0, 1)
	weekEnd := dayStart.AddDate(0, 0, 7)

	var resp dto.AdminOverviewResponse
	var statusCounts map[string]int64

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		resp.Students, err = s.members.Count(gctx, models.KindStudents)
		return err
	})
	group.Go(func() (err error) {
		resp.Teachers, err = s.members.Count(gctx, models.KindTeachers)
		return err
	})
	group.Go(func() (err error) {
		resp.SMEs, err = s.members.Count(gctx, models.KindSMEs)
		return err
	})
	group.Go(func() (err error) {
		resp.Schools, err = s.schools.Count(gctx)
		return err
	})
	group.Go(func() (err error) {
		resp.Batches, err = s.batches.Count(gctx)
		return err
	})
	group.Go(func() (err error) {
		resp.SessionsToday, err = s.sessions.CountBetween(gctx, dayStart.UTC(), dayEnd.UTC())
		return err
	})
	group.Go(func() (err error) {
		resp.UpcomingSessions, err = s.sessions.CountBetween(gctx, now.UTC(), weekEnd.UTC(), models.SessionStatusScheduled)
		return err
	})
	group.Go(func() (err error) {
		statusCounts, err = s.attendance.CountByStatus(gctx, attendance.DateOf(now))
		return err
	})

	if err := group.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("failed to build admin overview")
		return dto.AdminOverviewResponse{}, err
	}

	resp.PresentToday = statusCounts[string(attendance.StatusPresent)]
	resp.AbsentToday = statusCounts[string(attendance.StatusAbsent)]
	resp.GeneratedAt = now.UTC()
	return resp, nil
}
