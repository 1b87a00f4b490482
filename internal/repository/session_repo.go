package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/models"
)

// SessionFilter narrows session listings. BatchIDs restricts to any of the given batches.
type SessionFilter struct {
	BatchID   *uint
	BatchIDs  []uint
	TeacherID *uint
	Status    string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// SessionRepository persists scheduled sessions.
type SessionRepository interface {
	List(ctx context.Context, filter SessionFilter) ([]models.Session, int64, error)
	GetByID(ctx context.Context, id uint) (models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Session, error)
	UpdateStatus(ctx context.Context, id uint, from, to string) (models.Session, error)
	Delete(ctx context.Context, id uint) error
	CountBetween(ctx context.Context, from, to time.Time, statuses ...string) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository constructs the session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) List(ctx context.Context, filter SessionFilter) ([]models.Session, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Session{})
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.BatchIDs != nil {
		if len(filter.BatchIDs) == 0 {
			return []models.Session{}, 0, nil
		}
		query = query.Where("batch_id IN ?", filter.BatchIDs)
	}
	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("starts_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("starts_at < ?", *filter.To)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []models.Session
	err := paginate(query.Order("starts_at ASC").Order("id ASC"), filter.Page, filter.PageSize).
		Preload("Teacher").
		Preload("Batch").
		Find(&sessions).Error
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).Preload("Teacher").Preload("Batch").First(&session, id).Error
	return session, err
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Omit("Teacher", "Batch").Create(session).Error
}

func (r *sessionRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Session, error) {
	if err := r.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return models.Session{}, err
	}
	return r.GetByID(ctx, id)
}

// UpdateStatus moves a session only if it still has the expected status.
func (r *sessionRepository) UpdateStatus(ctx context.Context, id uint, from, to string) (models.Session, error) {
	result := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return models.Session{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Session{}, gorm.ErrRecordNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *sessionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Session{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sessionRepository) CountBetween(ctx context.Context, from, to time.Time, statuses ...string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("starts_at >= ? AND starts_at < ?", from, to)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}
