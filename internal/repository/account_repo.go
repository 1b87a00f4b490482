package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/models"
)

// AccountRepository persists profiles and their role assignments.
type AccountRepository interface {
	Create(ctx context.Context, profile *models.Profile, role *models.UserRole) error
	FindByID(ctx context.Context, id uint) (models.Profile, error)
	FindByEmail(ctx context.Context, email string) (models.Profile, error)
	FindRole(ctx context.Context, profileID uint) (models.UserRole, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository constructs the account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, profile *models.Profile, role *models.UserRole) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		role.ProfileID = profile.ID
		return tx.Create(role).Error
	})
}

func (r *accountRepository) FindByID(ctx context.Context, id uint) (models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&profile).Error
	if err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

func (r *accountRepository) FindRole(ctx context.Context, profileID uint) (models.UserRole, error) {
	var role models.UserRole
	if err := r.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&role).Error; err != nil {
		return models.UserRole{}, err
	}
	return role, nil
}
