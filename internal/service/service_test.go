package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/repository"
	"github.com/noah-isme/edudash-api/internal/utils"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return utils.NewValidation().Validate
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptrUint(v uint) *uint {
	return &v
}

func ptrString(v string) *string {
	return &v
}

// fixture bundles repositories over one database.
type fixture struct {
	db         *gorm.DB
	accounts   repository.AccountRepository
	members    repository.MemberRepository
	schools    repository.SchoolRepository
	batches    repository.BatchRepository
	sessions   repository.SessionRepository
	attendance repository.AttendanceRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupServiceDB(t)
	return &fixture{
		db:         db,
		accounts:   repository.NewAccountRepository(db),
		members:    repository.NewMemberRepository(db),
		schools:    repository.NewSchoolRepository(db),
		batches:    repository.NewBatchRepository(db),
		sessions:   repository.NewSessionRepository(db),
		attendance: repository.NewAttendanceRepository(db),
	}
}

func (f *fixture) batch(t *testing.T, name string, start, end *time.Time, schoolID *uint) models.Batch {
	t.Helper()
	batch := models.Batch{Name: name, StartDate: start, EndDate: end, SchoolID: schoolID}
	require.NoError(t, f.batches.Create(context.Background(), &batch))
	return batch
}

func (f *fixture) student(t *testing.T, name string, batchID *uint, status string) models.Student {
	t.Helper()
	student := models.Student{
		BatchID: batchID,
		Profile: models.Profile{Name: name, Email: fmt.Sprintf("%s@example.com", name), Status: status},
	}
	require.NoError(t, f.members.CreateStudent(context.Background(), &student))
	return student
}

func (f *fixture) sme(t *testing.T, name string, batchID *uint) models.SME {
	t.Helper()
	sme := models.SME{
		BatchID: batchID,
		Profile: models.Profile{Name: name, Email: fmt.Sprintf("%s@example.com", name), Status: models.ProfileStatusActive},
	}
	require.NoError(t, f.members.CreateSME(context.Background(), &sme))
	return sme
}

func (f *fixture) teacher(t *testing.T, name string, batchID *uint) models.Teacher {
	t.Helper()
	teacher := models.Teacher{
		BatchID: batchID,
		Profile: models.Profile{Name: name, Email: fmt.Sprintf("%s@example.com", name), Status: models.ProfileStatusActive},
	}
	require.NoError(t, f.members.CreateTeacher(context.Background(), &teacher))
	return teacher
}

func adminSession() auth.Session {
	return auth.Session{UserID: 9000, Role: models.RoleAdmin, Active: true}
}
