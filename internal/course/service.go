package course

import (
	"context"
	"fmt"

	"campusattend/internal/apperr"
	"campusattend/internal/store"
)

type (
	// Tx is the unit-of-work handed to the registration checker. All reads
	// and writes inside one RegisterCourses call go through the same
	// transaction; the repository commits or rolls back as a whole.
	Tx interface {
		GetCurriculumCourse(ctx context.Context, id string) (*CurriculumCourse, error)
		FindRegistration(ctx context.Context, key RegistrationKey) (*UserCourse, error)
		InsertUserCourses(ctx context.Context, rows []UserCourse) ([]UserCourse, error)
	}

	// Repository persists curriculum courses and registrations.
	Repository interface {
		InTx(ctx context.Context, fn func(tx Tx) error) error
		CreateCurriculumCourse(ctx context.Context, cc CurriculumCourse) (CurriculumCourse, error)
		GetCurriculumCourse(ctx context.Context, id string) (*CurriculumCourse, error)
		GetUserCourse(ctx context.Context, id string) (*UserCourse, error)
		ListUserCourses(ctx context.Context, userID string, f Filter) ([]UserCourse, error)
		UpdateUserCourseStatus(ctx context.Context, id, status string) (*UserCourse, error)
		DeleteUserCourse(ctx context.Context, id string) error
	}

	// Service enforces registration consistency.
	Service struct {
		repo Repository
	}
)

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput is one registration batch for a user.
type RegisterInput struct {
	AcademicYear         string   `json:"academicYear" binding:"required"`
	Department           string   `json:"department" binding:"required"`
	Level                int      `json:"level" binding:"required"`
	Semester             string   `json:"semester" binding:"required,oneof=first second"`
	CurriculumCourses    []string `json:"curriculumCourses" binding:"required,min=1"`
	CurriculumCourseRole string   `json:"curriculumCourseRole" binding:"required"`
}

// RegisterCourses registers the actor for the given curriculum courses inside
// one all-or-nothing transaction. Students register against the submitted
// department/level/semester; for lecturers those fields are derived from each
// curriculum course row. Any duplicate aborts the whole batch.
func (s *Service) RegisterCourses(ctx context.Context, actor Actor, in RegisterInput) ([]UserCourse, error) {
	if actor.Role != RoleStudent && actor.Role != RoleLecturer {
		return nil, apperr.Forbidden("only students and lecturers can register courses")
	}

	var created []UserCourse
	err := s.repo.InTx(ctx, func(tx Tx) error {
		var pending []UserCourse
		for _, ccID := range in.CurriculumCourses {
			cc, err := tx.GetCurriculumCourse(ctx, ccID)
			if err != nil {
				return apperr.Internal(err)
			}
			if cc == nil {
				return apperr.Validation("invalid curriculum course ID")
			}

			row := UserCourse{
				UserID:               actor.ID,
				CurriculumCourseID:   ccID,
				CurriculumCourseRole: in.CurriculumCourseRole,
				AcademicYear:         in.AcademicYear,
				Department:           in.Department,
				Level:                in.Level,
				Semester:             in.Semester,
				Status:               StatusInProgress,
			}
			if actor.Role == RoleLecturer {
				// the curriculum course is the source of truth for lecturers
				row.Department = cc.Department
				row.Level = cc.Level
				row.Semester = cc.Semester
			}

			existing, err := tx.FindRegistration(ctx, RegistrationKey{
				UserID:             actor.ID,
				AcademicYear:       in.AcademicYear,
				Semester:           row.Semester,
				CurriculumCourseID: ccID,
				Role:               in.CurriculumCourseRole,
			})
			if err != nil {
				return apperr.Internal(err)
			}
			if existing != nil {
				return apperr.Validation(fmt.Sprintf("%s already registered for this semester", cc.CourseCode))
			}
			pending = append(pending, row)
		}

		inserted, err := tx.InsertUserCourses(ctx, pending)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return apperr.Conflict("course registration already exists")
			}
			return apperr.Internal(err)
		}
		created = inserted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateCurriculumCourse adds a curriculum entry; the unique index rejects a
// second identical (department, course, level, semester, academicYear) tuple.
func (s *Service) CreateCurriculumCourse(ctx context.Context, cc CurriculumCourse) (CurriculumCourse, error) {
	created, err := s.repo.CreateCurriculumCourse(ctx, cc)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return CurriculumCourse{}, apperr.Conflict("curriculum course already exists for this department, level, semester and academic year")
		}
		return CurriculumCourse{}, apperr.Internal(err)
	}
	return created, nil
}

// GetUserCourse resolves a registration by id.
func (s *Service) GetUserCourse(ctx context.Context, id string) (*UserCourse, error) {
	uc, err := s.repo.GetUserCourse(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if uc == nil {
		return nil, apperr.NotFound("user course not found")
	}
	return uc, nil
}

// ListUserCourses returns the actor's registrations, optionally filtered.
func (s *Service) ListUserCourses(ctx context.Context, userID string, f Filter) ([]UserCourse, error) {
	rows, err := s.repo.ListUserCourses(ctx, userID, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

// CompleteUserCourse moves a registration from in_progress to completed.
func (s *Service) CompleteUserCourse(ctx context.Context, id string) (*UserCourse, error) {
	uc, err := s.repo.UpdateUserCourseStatus(ctx, id, StatusCompleted)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if uc == nil {
		return nil, apperr.NotFound("user course not found")
	}
	return uc, nil
}

// RemoveUserCourse deletes a registration outright.
func (s *Service) RemoveUserCourse(ctx context.Context, id string) error {
	if err := s.repo.DeleteUserCourse(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
