package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/repository"
)

// batchScope works out which batches a signed-in user may read or edit.
type batchScope struct {
	batches repository.BatchRepository
	members repository.MemberRepository
}

// allowed returns nil when the role is unrestricted, otherwise the permitted batch ids
// (possibly empty).
func (s batchScope) allowed(ctx context.Context, session auth.Session) ([]uint, error) {
	switch session.Role {
	case models.RoleAdmin:
		return nil, nil
	case models.RoleTeacher:
		ids, err := s.batches.TeacherBatchIDs(ctx, session.UserID)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []uint{}
		}
		return ids, nil
	case models.RoleSchoolAdmin:
		if session.SchoolID == nil {
			return []uint{}, nil
		}
		batches, _, err := s.batches.List(ctx, repository.BatchFilter{SchoolID: session.SchoolID})
		if err != nil {
			return nil, err
		}
		ids := make([]uint, 0, len(batches))
		for _, batch := range batches {
			ids = append(ids, batch.ID)
		}
		return ids, nil
	case models.RoleStudent, models.RoleSME:
		batchID, err := s.ownBatch(ctx, session)
		if err != nil {
			return nil, err
		}
		if batchID == nil {
			return []uint{}, nil
		}
		return []uint{*batchID}, nil
	default:
		return []uint{}, nil
	}
}

func (s batchScope) ownBatch(ctx context.Context, session auth.Session) (*uint, error) {
	var (
		batchID *uint
		err     error
	)
	switch session.Role {
	case models.RoleStudent:
		var student models.Student
		student, err = s.members.GetStudent(ctx, session.UserID)
		batchID = student.BatchID
	case models.RoleSME:
		var sme models.SME
		sme, err = s.members.GetSME(ctx, session.UserID)
		batchID = sme.BatchID
	default:
		return nil, nil
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return batchID, nil
}

// authorize loads the batch and checks the session may access it.
func (s batchScope) authorize(ctx context.Context, session auth.Session, batchID uint) (models.Batch, error) {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Batch{}, ErrBatchNotFound
		}
		return models.Batch{}, err
	}

	ids, err := s.allowed(ctx, session)
	if err != nil {
		return models.Batch{}, err
	}
	if ids != nil && !containsID(ids, batchID) {
		return models.Batch{}, ErrOutOfScope
	}
	return batch, nil
}

func gridKind(kind string) error {
	switch kind {
	case models.KindStudents, models.KindSMEs:
		return nil
	}
	return ErrInvalidKind
}

// resolveGrid checks access to a grid or report scope. Only admins may omit the
// batch, and only for SMEs; teachers only see student grids.
func (s batchScope) resolveGrid(ctx context.Context, session auth.Session, kind string, batchID *uint) (*models.Batch, error) {
	if err := gridKind(kind); err != nil {
		return nil, err
	}
	if session.Role == models.RoleTeacher && kind != models.KindStudents {
		return nil, ErrOutOfScope
	}
	if batchID == nil {
		if session.Role != models.RoleAdmin || kind != models.KindSMEs {
			return nil, fmt.Errorf("%w: batch_id is required", ErrInvalidInput)
		}
		return nil, nil
	}
	batch, err := s.authorize(ctx, session, *batchID)
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func containsID(ids []uint, id uint) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
