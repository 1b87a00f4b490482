package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/attendance"
	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/observability"
	"github.com/noah-isme/edudash-api/internal/repository"
)

// ReportInvalidator drops cached reports that a save or roster change made
// stale. No months means every cached month of the scope.
type ReportInvalidator interface {
	Invalidate(ctx context.Context, kind string, batchID *uint, months []string)
}

// AttendanceBroadcaster notifies live grid watchers.
type AttendanceBroadcaster interface {
	Broadcast(ctx context.Context, event dto.AttendanceSavedEvent)
}

// AttendanceService renders attendance grids and persists edits to them.
type AttendanceService interface {
	Grid(ctx context.Context, session auth.Session, req dto.AttendanceGridRequest) (dto.AttendanceGridResponse, error)
	Draft(ctx context.Context, session auth.Session, req dto.AttendanceGridRequest, body dto.AttendanceDraftRequest) (dto.AttendanceDraftResponse, error)
	DiscardDraft(ctx context.Context, session auth.Session, req dto.AttendanceGridRequest) (dto.AttendanceGridResponse, error)
	Save(ctx context.Context, session auth.Session, req dto.AttendanceGridRequest, body dto.AttendanceSaveRequest) (dto.AttendanceSaveResponse, error)
	MyAttendance(ctx context.Context, session auth.Session, month string) (dto.MyAttendanceResponse, error)
	AuthorizeScope(ctx context.Context, session auth.Session, kind string, batchID *uint) error
}

type attendanceService struct {
	repo        repository.AttendanceRepository
	scope       batchScope
	drafts      DraftStore
	reports     ReportInvalidator
	broadcaster AttendanceBroadcaster
	validator   *validator.Validate
	activity    ActivityRecorder
	location    *time.Location
	now         func() time.Time
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// AttendanceServiceOptions carries the optional collaborators of the attendance service.
type AttendanceServiceOptions struct {
	Drafts      DraftStore
	Reports     ReportInvalidator
	Broadcaster AttendanceBroadcaster
	Activity    ActivityRecorder
	Location    *time.Location
	Now         func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo repository.AttendanceRepository, batches repository.BatchRepository, members repository.MemberRepository, validate *validator.Validate, opts AttendanceServiceOptions, logger zerolog.Logger) AttendanceService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Drafts == nil {
		opts.Drafts = NewDraftStore(nil, 0, logger)
	}

	return &attendanceService{
		repo:        repo,
		scope:       batchScope{batches: batches, members: members},
		drafts:      opts.Drafts,
		reports:     opts.Reports,
		broadcaster: opts.Broadcaster,
		validator:   validate,
		activity:    opts.Activity,
		location:    opts.Location,
		now:         opts.Now,
		logger:      logger.With().Str("component", "attendance_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/edudash-api/internal/service/attendance"),
	}
}

// gridState is a loaded grid plus the request context it was built for.
type gridState struct {
	kind      string
	batch     *models.Batch
	view      attendance.View
	mode      attendance.ToggleMode
	reference time.Time
	today     time.Time
	window    attendance.Window
	grid      *attendance.Grid
	draft     map[string]attendance.Status
	scope     DraftScope
}

func (s *attendanceService) today() time.Time {
	return attendance.DateOf(s.now().In(s.location))
}

func (s *attendanceService) load(ctx context.Context, session auth.Session, req dto.AttendanceGridRequest, extra []time.Time) (*gridState, error) {
	view, err := attendance.ParseView(req.View)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	batch, err := s.scope.resolveGrid(ctx, session, req.Kind, req.BatchID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	reference := today
	if req.Date != "" {
		if reference, err = attendance.ParseDate(req.Date); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	var window attendance.Window
	if batch != nil {
		window = batch.Window()
	}
	reference = window.Clamp(attendance.DateOf(reference))
	dates := attendance.Range(view, reference, window)
	for _, d := range extra {
		if window.Contains(d) {
			dates = append(dates, d)
		}
	}

	attendees, err := s.repo.ListAttendees(ctx, repository.AttendeeFilter{Kind: req.Kind, BatchID: req.BatchID})
	if err != nil {
		return nil, err
	}

	people := make([]attendance.Person, 0, len(attendees))
	ids := make([]uint, 0, len(attendees))
	for _, a := range attendees {
		people = append(people, attendance.Person{
			ID:     a.PersonID,
			Name:   a.Name,
			Active: a.Status != models.ProfileStatusInactive,
			Window: attendance.NewWindow(a.StartDate, a.EndDate),
		})
		ids = append(ids, a.PersonID)
	}

	grid := attendance.NewGrid(people, dates, attendance.Rules{Today: today})
	if gridDates := grid.Dates(); len(gridDates) > 0 && len(ids) > 0 {
		records, err := s.repo.ListRecords(ctx, ids, gridDates[0], gridDates[len(gridDates)-1])
		if err != nil {
			return nil, err
		}
		grid.Merge(toAttendanceRecords(records))
	}

	scope := DraftScope{UserID: session.UserID, Kind: req.Kind, BatchID: req.BatchID}
	draft, err := s.drafts.Load(ctx, scope)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load attendance draft")
		draft = map[string]attendance.Status{}
	}
	for field, status := range draft {
		key, err := attendance.ParseKey(field)
		if err != nil {
			continue
		}
		if err := grid.Set(key, status); err != nil && !errors.Is(err, attendance.ErrCellDisabled) && !errors.Is(err, attendance.ErrUnknownPerson) {
			s.logger.Debug().Err(err).Str("cell", field).Msg("skipping draft cell")
		}
	}

	return &gridState{
		kind:      req.Kind,
		batch:     batch,
		view:      view,
		mode:      attendance.ParseToggleMode(req.Mode),
		reference: reference,
		today:     today,
		window:    window,
		grid:      grid,
		draft:     draft,
		scope:     scope,
	}, nil
}

func toAttendanceRecords(records []models.AttendanceRecord) []attendance.Record {
	out := make([]attendance.Record, 0, len(records))
	for _, rec := range records {
		status, err := attendance.ParseStatus(rec.Status)
		if err != nil {
			continue
		}
		out = append(out, attendance.Record{PersonID: rec.PersonID, Date: rec.Date, Status: status})
	}
	return out
}

func (s *attendanceService) Grid(ctx context.Context, session auth.Session, req dto.AttendanceGridRequest) (dto.AttendanceGridResponse, error) {
	state, err := s.load(ctx, session, req, nil)
	if err != nil {
		return dto.AttendanceGridResponse{}, err
	}
	return state.response(), nil
}

// applyEdits runs edits against the grid and returns the cells that changed
// along with the rejected ones.
func (s *attendanceService) applyEdits(state *gridState, edits []dto.AttendanceEdit) ([]string, []dto.AttendanceRejectedCell) {
	touched := make([]string, 0, len(edits))
	rejected := make([]dto.AttendanceRejectedCell, 0)

	for _, edit := range edits {
		date, err := attendance.ParseDate(edit.Date)
		if err != nil {
			rejected = append(rejected, dto.AttendanceRejectedCell{PersonID: edit.PersonID, Date: edit.Date, Reason: "invalid_date"})
			continue
		}
		key := attendance.NewKey(edit.PersonID, date)

		if edit.Toggle {
			_, err = state.grid.Toggle(key, state.mode)
		} else {
			var status attendance.Status
			if status, err = attendance.ParseStatus(edit.Status); err == nil {
				err = state.grid.Set(key, status)
			}
		}
		if err != nil {
			rejected = append(rejected, dto.AttendanceRejectedCell{PersonID: edit.PersonID, Date: edit.Date, Reason: rejectReason(state.grid, key, err)})
			continue
		}
		touched = append(touched, key.String())
	}
	return touched, rejected
}

func rejectReason(grid *attendance.Grid, key attendance.Key, err error) string {
	switch {
	case errors.Is(err, attendance.ErrUnknownPerson):
		return "unknown_person"
	case errors.Is(err, attendance.ErrCellDisabled):
		return string(grid.Disabled(key))
	default:
		return "invalid_status"
	}
}

// persistDraft mirrors the grid's pending edits for the touched cells into the draft store.
func (s *attendanceService) persistDraft(ctx context.Context, state *gridState, touched []string) error {
	pending := make(map[string]attendance.Status)
	for _, rec := range state.grid.Edits() {
		pending[rec.Key().String()] = rec.Status
	}

	set := make(map[string]attendance.Status)
	remove := make([]string, 0)
	for _, field := range touched {
		if status, ok := pending[field]; ok {
			set[field] = status
			state.draft[field] = status
			continue
		}
		remove = append(remove, field)
		delete(state.draft, field)
	}
	return s.drafts.Apply(ctx, state.scope, set, remove)
}

func (s *attendanceService) Draft(ctx context.Context, session auth.Session, req dto.AttendanceGridRequest, body dto.AttendanceDraftRequest) (dto.AttendanceDraftResponse, error) {
	if err := s.validator.Struct(body); err != nil {
		return dto.AttendanceDraftResponse{}, err
	}

	state, err := s.load(ctx, session, req, nil)
	if err != nil {
		return dto.AttendanceDraftResponse{}, err
	}

	touched, rejected := s.applyEdits(state, body.Edits)
	if err := s.persistDraft(ctx, state, touched); err != nil {
		return dto.AttendanceDraftResponse{}, err
	}

	return dto.AttendanceDraftResponse{Grid: state.response(), Rejected: rejected}, nil
}

func (s *attendanceService) DiscardDraft(ctx context.Context, session auth.Session, req dto.AttendanceGridRequest) (dto.AttendanceGridResponse, error) {
	if err := gridKind(req.Kind); err != nil {
		return dto.AttendanceGridResponse{}, err
	}
	if err := s.drafts.Clear(ctx, DraftScope{UserID: session.UserID, Kind: req.Kind, BatchID: req.BatchID}); err != nil {
		return dto.AttendanceGridResponse{}, err
	}
	return s.Grid(ctx, session, req)
}

// AuthorizeScope applies the grid access rules without loading the grid.
func (s *attendanceService) AuthorizeScope(ctx context.Context, session auth.Session, kind string, batchID *uint) error {
	_, err := s.scope.resolveGrid(ctx, session, kind, batchID)
	return err
}

func (s *attendanceService) Save(ctx context.Context, session auth.Session, req dto.AttendanceGridRequest, body dto.AttendanceSaveRequest) (dto.AttendanceSaveResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("attendance.kind", req.Kind),
		attribute.Int("attendance.request_edits", len(body.Edits)),
	)

	if err := s.validator.Struct(body); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.AttendanceSaveResponse{}, err
	}

	// The draft may hold edits for dates outside the visible range; load them too.
	extra := append(s.draftDates(ctx, session, req), editDates(body.Edits)...)
	state, err := s.load(ctx, session, req, extra)
	if err != nil {
		span.RecordError(err)
		return dto.AttendanceSaveResponse{}, err
	}

	touched, rejected := s.applyEdits(state, body.Edits)
	if len(touched) > 0 {
		if err := s.persistDraft(ctx, state, touched); err != nil {
			s.logger.Warn().Err(err).Msg("failed to keep save edits in draft")
		}
	}

	upserts := state.grid.Upserts()
	rows := make([]models.AttendanceRecord, 0, len(upserts))
	for _, rec := range upserts {
		rows = append(rows, toAttendanceModel(rec, session.UserID))
	}
	span.SetAttributes(attribute.Int("attendance.upserts", len(rows)))

	if err := s.repo.Upsert(ctx, rows); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		s.logger.Error().Err(err).Int("cells", len(rows)).Msg("attendance save failed")
		return dto.AttendanceSaveResponse{}, fmt.Errorf("save attendance: %w", err)
	}
	state.grid.Commit()

	if err := s.drafts.Clear(ctx, state.scope); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear attendance draft")
	}

	if len(upserts) > 0 {
		s.afterSave(ctx, session, state, upserts)
	}

	fresh, err := s.load(ctx, session, req, nil)
	if err != nil {
		return dto.AttendanceSaveResponse{}, err
	}

	span.SetStatus(codes.Ok, "saved")
	return dto.AttendanceSaveResponse{Saved: len(upserts), Rejected: rejected, Grid: fresh.response()}, nil
}

func (s *attendanceService) afterSave(ctx context.Context, session auth.Session, state *gridState, saved []attendance.Record) {
	months := map[string]struct{}{}
	dates := map[string]struct{}{}
	for _, rec := range saved {
		observability.AttendanceCellsSaved().WithLabelValues(state.kind, string(rec.Status)).Inc()
		months[rec.Date.Format(attendance.MonthLayout)] = struct{}{}
		dates[attendance.FormatDate(rec.Date)] = struct{}{}
	}

	if s.reports != nil && len(months) > 0 {
		s.reports.Invalidate(ctx, state.kind, state.scope.BatchID, sortedSet(months))
	}

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ctx, dto.AttendanceSavedEvent{
			Type:    "attendance.saved",
			Kind:    state.kind,
			BatchID: state.scope.BatchID,
			Dates:   sortedSet(dates),
			SavedBy: session.UserID,
			Saved:   len(saved),
		})
	}

	var entityID *uint
	if state.batch != nil {
		entityID = uintPtr(state.batch.ID)
	}
	record(ctx, s.activity, s.logger, ActorFromSession(session), "attendance.saved", "batch", entityID, map[string]interface{}{
		"kind":  state.kind,
		"cells": len(saved),
	})
}

func (s *attendanceService) draftDates(ctx context.Context, session auth.Session, req dto.AttendanceGridRequest) []time.Time {
	draft, err := s.drafts.Load(ctx, DraftScope{UserID: session.UserID, Kind: req.Kind, BatchID: req.BatchID})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load attendance draft")
		return nil
	}
	dates := make([]time.Time, 0, len(draft))
	for field := range draft {
		if key, err := attendance.ParseKey(field); err == nil {
			dates = append(dates, key.Date)
		}
	}
	return dates
}

func editDates(edits []dto.AttendanceEdit) []time.Time {
	dates := make([]time.Time, 0, len(edits))
	for _, edit := range edits {
		if date, err := attendance.ParseDate(edit.Date); err == nil {
			dates = append(dates, date)
		}
	}
	return dates
}

func toAttendanceModel(rec attendance.Record, markedBy uint) models.AttendanceRecord {
	return models.AttendanceRecord{
		PersonID: rec.PersonID,
		Date:     attendance.DateOf(rec.Date),
		Status:   string(rec.Status),
		MarkedBy: uintPtr(markedBy),
	}
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func (s *attendanceService) MyAttendance(ctx context.Context, session auth.Session, month string) (dto.MyAttendanceResponse, error) {
	var kind string
	switch session.Role {
	case models.RoleStudent:
		kind = models.KindStudents
	case models.RoleSME:
		kind = models.KindSMEs
	default:
		return dto.MyAttendanceResponse{}, ErrOutOfScope
	}

	first, _ := attendance.MonthBounds(s.today())
	if month != "" {
		parsed, err := attendance.ParseMonth(month)
		if err != nil {
			return dto.MyAttendanceResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		first = parsed
	}
	from, to := attendance.MonthBounds(first)

	attendee, err := s.repo.GetAttendee(ctx, kind, session.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MyAttendanceResponse{}, ErrMemberNotFound
		}
		return dto.MyAttendanceResponse{}, err
	}

	rows, err := s.repo.ListRecords(ctx, []uint{session.UserID}, from, to)
	if err != nil {
		return dto.MyAttendanceResponse{}, err
	}
	records := toAttendanceRecords(rows)
	summary := attendance.Aggregate([]attendance.Person{{ID: attendee.PersonID, Name: attendee.Name}}, records, from, to)

	days := make([]dto.AttendanceDayResponse, 0, len(records))
	for _, rec := range records {
		days = append(days, dto.AttendanceDayResponse{Date: attendance.FormatDate(rec.Date), Status: string(rec.Status)})
	}

	resp := dto.MyAttendanceResponse{Month: from.Format(attendance.MonthLayout), Days: days}
	if len(summary.Rows) > 0 {
		resp.Present = summary.Rows[0].Present
		resp.Absent = summary.Rows[0].Absent
		resp.Percent = summary.Rows[0].Percent
	}
	return resp, nil
}

func (st *gridState) response() dto.AttendanceGridResponse {
	resp := dto.AttendanceGridResponse{
		Kind:      st.kind,
		BatchID:   st.scope.BatchID,
		View:      string(st.view),
		Mode:      modeName(st.mode),
		Reference: attendance.FormatDate(st.reference),
		Today:     attendance.FormatDate(st.today),
		Window: dto.AttendanceWindowResponse{
			Start: optionalDate(st.window.Start),
			End:   optionalDate(st.window.End),
		},
		Dirty: st.grid.Dirty() || len(st.draft) > 0,
	}
	if st.batch != nil {
		resp.BatchName = st.batch.Name
	}

	dates := st.grid.Dates()
	resp.Dates = make([]string, 0, len(dates))
	for _, d := range dates {
		resp.Dates = append(resp.Dates, attendance.FormatDate(d))
	}

	prev := attendance.Navigate(st.view, st.reference, attendance.Backward, st.window)
	next := attendance.Navigate(st.view, st.reference, attendance.Forward, st.window)
	resp.Prev = navResponse(prev)
	resp.Next = navResponse(next)

	people := st.grid.People()
	resp.Rows = make([]dto.AttendanceRowResponse, 0, len(people))
	for _, person := range people {
		cells := st.grid.Row(person.ID)
		row := dto.AttendanceRowResponse{
			PersonID: person.ID,
			Name:     person.Name,
			Active:   person.Active,
			Cells:    make([]dto.AttendanceCellResponse, 0, len(cells)),
		}
		for _, cell := range cells {
			row.Cells = append(row.Cells, dto.AttendanceCellResponse{
				Date:     attendance.FormatDate(cell.Date),
				Status:   optionalStatus(cell.Status),
				Display:  string(cell.Display),
				Edited:   cell.Edited,
				Disabled: cell.Disabled != attendance.Editable,
				Reason:   string(cell.Disabled),
			})
		}
		resp.Rows = append(resp.Rows, row)
	}
	return resp
}

func modeName(mode attendance.ToggleMode) string {
	if mode == attendance.ToggleBoolean {
		return "boolean"
	}
	return "tri"
}

func navResponse(step attendance.Step) dto.AttendanceNavResponse {
	if !step.Enabled {
		return dto.AttendanceNavResponse{}
	}
	return dto.AttendanceNavResponse{Enabled: true, Date: attendance.FormatDate(step.Date)}
}

func optionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := attendance.FormatDate(*t)
	return &s
}

func optionalStatus(status attendance.Status) *string {
	if status == attendance.StatusNone {
		return nil
	}
	s := string(status)
	return &s
}
