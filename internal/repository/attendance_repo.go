package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/edudash-api/internal/models"
)

// Attendee is a person that can appear as a grid row, with their batch window.
type Attendee struct {
	PersonID  uint
	Name      string
	Status    string
	BatchID   *uint
	StartDate *time.Time
	EndDate   *time.Time
}

// AttendeeFilter scopes attendees by member kind and optional batch or batches.
type AttendeeFilter struct {
	Kind     string
	BatchID  *uint
	BatchIDs []uint
	SchoolID *uint
}

// AttendanceRepository persists attendance records.
type AttendanceRepository interface {
	ListAttendees(ctx context.Context, filter AttendeeFilter) ([]Attendee, error)
	GetAttendee(ctx context.Context, kind string, personID uint) (Attendee, error)
	ListRecords(ctx context.Context, personIDs []uint, from, to time.Time) ([]models.AttendanceRecord, error)
	Upsert(ctx context.Context, records []models.AttendanceRecord) error
	CountByStatus(ctx context.Context, date time.Time) (map[string]int64, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository constructs the attendance repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) attendeeQuery(ctx context.Context, kind string) (*gorm.DB, string, error) {
	table, err := memberTable(kind)
	if err != nil {
		return nil, "", err
	}
	query := r.db.WithContext(ctx).Table(table).
		Select(fmt.Sprintf("profiles.id AS person_id, profiles.name AS name, profiles.status AS status, %[1]s.batch_id AS batch_id, batches.start_date AS start_date, batches.end_date AS end_date", table)).
		Joins(fmt.Sprintf("JOIN profiles ON profiles.id = %s.profile_id", table)).
		Joins(fmt.Sprintf("LEFT JOIN batches ON batches.id = %s.batch_id", table))
	return query, table, nil
}

func (r *attendanceRepository) ListAttendees(ctx context.Context, filter AttendeeFilter) ([]Attendee, error) {
	query, table, err := r.attendeeQuery(ctx, filter.Kind)
	if err != nil {
		return nil, err
	}
	if filter.BatchID != nil {
		query = query.Where(table+".batch_id = ?", *filter.BatchID)
	}
	if filter.BatchIDs != nil {
		if len(filter.BatchIDs) == 0 {
			return []Attendee{}, nil
		}
		query = query.Where(table+".batch_id IN ?", filter.BatchIDs)
	}
	if filter.SchoolID != nil {
		query = query.Where(table+".school_id = ?", *filter.SchoolID)
	}

	var attendees []Attendee
	if err := query.Order("profiles.name ASC").Order("profiles.id ASC").Scan(&attendees).Error; err != nil {
		return nil, err
	}
	return attendees, nil
}

func (r *attendanceRepository) GetAttendee(ctx context.Context, kind string, personID uint) (Attendee, error) {
	query, _, err := r.attendeeQuery(ctx, kind)
	if err != nil {
		return Attendee{}, err
	}
	var attendees []Attendee
	if err := query.Where("profiles.id = ?", personID).Limit(1).Scan(&attendees).Error; err != nil {
		return Attendee{}, err
	}
	if len(attendees) == 0 {
		return Attendee{}, gorm.ErrRecordNotFound
	}
	return attendees[0], nil
}

func (r *attendanceRepository) ListRecords(ctx context.Context, personIDs []uint, from, to time.Time) ([]models.AttendanceRecord, error) {
	if len(personIDs) == 0 {
		return []models.AttendanceRecord{}, nil
	}
	var records []models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("person_id IN ?", personIDs).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC").Order("person_id ASC").
		Find(&records).Error
	return records, err
}

// Upsert writes every record in one transaction, updating rows that already
// exist for the same person and date.
func (r *attendanceRepository) Upsert(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "person_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "marked_by", "updated_at"}),
		}).CreateInBatches(&records, 200).Error
	})
}

func (r *attendanceRepository) CountByStatus(ctx context.Context, date time.Time) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&models.AttendanceRecord{}).
		Select("status, COUNT(*) AS total").
		Where("date = ?", date).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
