package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/edudash-api/internal/models"
)

// MemberFilter narrows student, teacher and SME listings.
type MemberFilter struct {
	Search   string
	Status   string
	BatchID  *uint
	SchoolID *uint
	Page     int
	PageSize int
}

// MemberImportResult counts rows touched by a roster import.
type MemberImportResult struct {
	Created int
	Updated int
}

// MemberRepository persists students, teachers and SMEs together with their profiles.
type MemberRepository interface {
	ListStudents(ctx context.Context, filter MemberFilter) ([]models.Student, int64, error)
	ListTeachers(ctx context.Context, filter MemberFilter) ([]models.Teacher, int64, error)
	ListSMEs(ctx context.Context, filter MemberFilter) ([]models.SME, int64, error)
	GetStudent(ctx context.Context, id uint) (models.Student, error)
	GetTeacher(ctx context.Context, id uint) (models.Teacher, error)
	GetSME(ctx context.Context, id uint) (models.SME, error)
	CreateStudent(ctx context.Context, student *models.Student) error
	CreateTeacher(ctx context.Context, teacher *models.Teacher) error
	CreateSME(ctx context.Context, sme *models.SME) error
	Update(ctx context.Context, kind string, id uint, profileUpdates, memberUpdates map[string]interface{}) error
	Delete(ctx context.Context, kind string, id uint) error
	ImportStudents(ctx context.Context, students []models.Student) (MemberImportResult, error)
	Count(ctx context.Context, kind string) (int64, error)
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository constructs the member repository.
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func memberTable(kind string) (string, error) {
	switch kind {
	case models.KindStudents, models.KindTeachers, models.KindSMEs:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown member kind %q", kind)
	}
}

func (r *memberRepository) listQuery(ctx context.Context, model interface{}, table string, filter MemberFilter) (*gorm.DB, int64, error) {
	query := r.db.WithContext(ctx).Model(model).
		Joins(fmt.Sprintf("JOIN profiles ON profiles.id = %s.profile_id", table))

	if filter.Search != "" {
		like := likePattern(filter.Search)
		query = query.Where("LOWER(profiles.name) LIKE ? OR LOWER(profiles.email) LIKE ?", like, like)
	}
	if filter.Status != "" {
		query = query.Where("profiles.status = ?", filter.Status)
	}
	if filter.BatchID != nil {
		query = query.Where(table+".batch_id = ?", *filter.BatchID)
	}
	if filter.SchoolID != nil {
		query = query.Where(table+".school_id = ?", *filter.SchoolID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = paginate(query.Order("profiles.name ASC").Order(table+".profile_id ASC"), filter.Page, filter.PageSize)
	return query.Preload("Profile").Preload("Batch"), total, nil
}

func (r *memberRepository) ListStudents(ctx context.Context, filter MemberFilter) ([]models.Student, int64, error) {
	query, total, err := r.listQuery(ctx, &models.Student{}, models.KindStudents, filter)
	if err != nil {
		return nil, 0, err
	}
	var students []models.Student
	if err := query.Find(&students).Error; err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

func (r *memberRepository) ListTeachers(ctx context.Context, filter MemberFilter) ([]models.Teacher, int64, error) {
	query, total, err := r.listQuery(ctx, &models.Teacher{}, models.KindTeachers, filter)
	if err != nil {
		return nil, 0, err
	}
	var teachers []models.Teacher
	if err := query.Find(&teachers).Error; err != nil {
		return nil, 0, err
	}
	return teachers, total, nil
}

func (r *memberRepository) ListSMEs(ctx context.Context, filter MemberFilter) ([]models.SME, int64, error) {
	query, total, err := r.listQuery(ctx, &models.SME{}, models.KindSMEs, filter)
	if err != nil {
		return nil, 0, err
	}
	var smes []models.SME
	if err := query.Find(&smes).Error; err != nil {
		return nil, 0, err
	}
	return smes, total, nil
}

func (r *memberRepository) GetStudent(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).Preload("Profile").Preload("Batch").
		Where("profile_id = ?", id).First(&student).Error
	return student, err
}

func (r *memberRepository) GetTeacher(ctx context.Context, id uint) (models.Teacher, error) {
	var teacher models.Teacher
	err := r.db.WithContext(ctx).Preload("Profile").Preload("Batch").
		Where("profile_id = ?", id).First(&teacher).Error
	return teacher, err
}

func (r *memberRepository) GetSME(ctx context.Context, id uint) (models.SME, error) {
	var sme models.SME
	err := r.db.WithContext(ctx).Preload("Profile").Preload("Batch").
		Where("profile_id = ?", id).First(&sme).Error
	return sme, err
}

// createMember inserts the profile, the role row and the member row in one transaction.
func (r *memberRepository) createMember(ctx context.Context, profile *models.Profile, role string, schoolID *uint, insert func(tx *gorm.DB, profileID uint) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.UserRole{ProfileID: profile.ID, Role: role, SchoolID: schoolID}).Error; err != nil {
			return err
		}
		return insert(tx, profile.ID)
	})
}

func (r *memberRepository) CreateStudent(ctx context.Context, student *models.Student) error {
	return r.createMember(ctx, &student.Profile, models.RoleStudent, student.SchoolID, func(tx *gorm.DB, profileID uint) error {
		student.ProfileID = profileID
		return tx.Omit(clause.Associations).Create(student).Error
	})
}

func (r *memberRepository) CreateTeacher(ctx context.Context, teacher *models.Teacher) error {
	return r.createMember(ctx, &teacher.Profile, models.RoleTeacher, teacher.SchoolID, func(tx *gorm.DB, profileID uint) error {
		teacher.ProfileID = profileID
		return tx.Omit(clause.Associations).Create(teacher).Error
	})
}

func (r *memberRepository) CreateSME(ctx context.Context, sme *models.SME) error {
	return r.createMember(ctx, &sme.Profile, models.RoleSME, sme.SchoolID, func(tx *gorm.DB, profileID uint) error {
		sme.ProfileID = profileID
		return tx.Omit(clause.Associations).Create(sme).Error
	})
}

func (r *memberRepository) Update(ctx context.Context, kind string, id uint, profileUpdates, memberUpdates map[string]interface{}) error {
	table, err := memberTable(kind)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Table(table).Where("profile_id = ?", id).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}

		if len(profileUpdates) > 0 {
			if err := tx.Model(&models.Profile{}).Where("id = ?", id).Updates(profileUpdates).Error; err != nil {
				return err
			}
		}
		if len(memberUpdates) > 0 {
			if err := tx.Table(table).Where("profile_id = ?", id).Updates(memberUpdates).Error; err != nil {
				return err
			}
			if schoolID, ok := memberUpdates["school_id"]; ok {
				if err := tx.Model(&models.UserRole{}).Where("profile_id = ?", id).Update("school_id", schoolID).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *memberRepository) Delete(ctx context.Context, kind string, id uint) error {
	table, err := memberTable(kind)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE profile_id = ?", table), id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("person_id = ?", id).Delete(&models.AttendanceRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("profile_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Profile{}, id).Error
	})
}

// ImportStudents creates or updates students matched by profile email.
func (r *memberRepository) ImportStudents(ctx context.Context, students []models.Student) (MemberImportResult, error) {
	var result MemberImportResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range students {
			student := students[i]
			email := strings.ToLower(strings.TrimSpace(student.Profile.Email))

			var existing models.Profile
			err := tx.Where("LOWER(email) = ?", email).First(&existing).Error
			switch {
			case err == nil:
				if err := tx.Model(&existing).Updates(map[string]interface{}{
					"name":  student.Profile.Name,
					"phone": student.Profile.Phone,
				}).Error; err != nil {
					return err
				}
				student.ProfileID = existing.ID
				result.Updated++
			case errors.Is(err, gorm.ErrRecordNotFound):
				profile := student.Profile
				profile.Email = email
				if profile.Status == "" {
					profile.Status = models.ProfileStatusActive
				}
				if err := tx.Create(&profile).Error; err != nil {
					return err
				}
				student.ProfileID = profile.ID
				result.Created++
			default:
				return err
			}

			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.UserRole{ProfileID: student.ProfileID, Role: models.RoleStudent, SchoolID: student.SchoolID}).Error; err != nil {
				return err
			}

			if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "profile_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"batch_id", "school_id", "enrollment_number", "guardian_name", "updated_at"}),
			}).Create(&student).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return MemberImportResult{}, err
	}

	return result, nil
}

func (r *memberRepository) Count(ctx context.Context, kind string) (int64, error) {
	table, err := memberTable(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.db.WithContext(ctx).Table(table).Count(&count).Error
	return count, err
}
