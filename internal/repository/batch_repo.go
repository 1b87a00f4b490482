package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/models"
)

// BatchFilter narrows batch listings.
type BatchFilter struct {
	Search   string
	SchoolID *uint
	Page     int
	PageSize int
}

// BatchRepository persists batches.
type BatchRepository interface {
	List(ctx context.Context, filter BatchFilter) ([]models.Batch, int64, error)
	GetByID(ctx context.Context, id uint) (models.Batch, error)
	Create(ctx context.Context, batch *models.Batch) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Batch, error)
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
	TeacherBatchIDs(ctx context.Context, teacherID uint) ([]uint, error)
}

type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository constructs the batch repository.
func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

func (r *batchRepository) List(ctx context.Context, filter BatchFilter) ([]models.Batch, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Batch{})
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(filter.Search))
	}
	if filter.SchoolID != nil {
		query = query.Where("school_id = ?", *filter.SchoolID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var batches []models.Batch
	if err := paginate(query.Order("name ASC"), filter.Page, filter.PageSize).Find(&batches).Error; err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

func (r *batchRepository) GetByID(ctx context.Context, id uint) (models.Batch, error) {
	var batch models.Batch
	if err := r.db.WithContext(ctx).First(&batch, id).Error; err != nil {
		return models.Batch{}, err
	}
	return batch, nil
}

func (r *batchRepository) Create(ctx context.Context, batch *models.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *batchRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Batch, error) {
	if err := r.db.WithContext(ctx).Model(&models.Batch{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return models.Batch{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes the batch with its sessions and detaches its members.
func (r *batchRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Batch{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		for _, table := range []string{"students", "teachers", "smes"} {
			if err := tx.Table(table).Where("batch_id = ?", id).Update("batch_id", nil).Error; err != nil {
				return err
			}
		}
		return tx.Where("batch_id = ?", id).Delete(&models.Session{}).Error
	})
}

func (r *batchRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Batch{}).Count(&count).Error
	return count, err
}

// TeacherBatchIDs returns the teacher's home batch plus every batch they run sessions for.
func (r *batchRepository) TeacherBatchIDs(ctx context.Context, teacherID uint) ([]uint, error) {
	var fromSessions []uint
	if err := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("teacher_id = ?", teacherID).
		Distinct().
		Pluck("batch_id", &fromSessions).Error; err != nil {
		return nil, err
	}

	var home []uint
	if err := r.db.WithContext(ctx).Model(&models.Teacher{}).
		Where("profile_id = ? AND batch_id IS NOT NULL", teacherID).
		Pluck("batch_id", &home).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{}, len(fromSessions)+len(home))
	ids := make([]uint, 0, len(fromSessions)+len(home))
	for _, id := range append(home, fromSessions...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
