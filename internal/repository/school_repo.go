package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/models"
)

// SchoolRepository persists schools.
type SchoolRepository interface {
	List(ctx context.Context, search string, page, pageSize int) ([]models.School, int64, error)
	GetByID(ctx context.Context, id uint) (models.School, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.School, error)
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

type schoolRepository struct {
	db *gorm.DB
}

// NewSchoolRepository constructs the school repository.
func NewSchoolRepository(db *gorm.DB) SchoolRepository {
	return &schoolRepository{db: db}
}

func (r *schoolRepository) List(ctx context.Context, search string, page, pageSize int) ([]models.School, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.School{})
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(search))
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var schools []models.School
	if err := paginate(query.Order("name ASC"), page, pageSize).Find(&schools).Error; err != nil {
		return nil, 0, err
	}
	return schools, total, nil
}

func (r *schoolRepository) GetByID(ctx context.Context, id uint) (models.School, error) {
	var school models.School
	if err := r.db.WithContext(ctx).First(&school, id).Error; err != nil {
		return models.School{}, err
	}
	return school, nil
}

func (r *schoolRepository) Create(ctx context.Context, school *models.School) error {
	return r.db.WithContext(ctx).Create(school).Error
}

func (r *schoolRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.School, error) {
	result := r.db.WithContext(ctx).Model(&models.School{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return models.School{}, result.Error
	}
	return r.GetByID(ctx, id)
}

// Delete removes the school and detaches its batches, members and school admins.
func (r *schoolRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.School{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		for _, table := range []string{"batches", "students", "teachers", "smes", "user_roles"} {
			if err := tx.Table(table).Where("school_id = ?", id).Update("school_id", nil).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *schoolRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.School{}).Count(&count).Error
	return count, err
}
