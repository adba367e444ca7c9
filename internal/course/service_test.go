package course

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusattend/internal/apperr"
)

// fakeRepo implements Repository with copy-on-write transactions so rollback
// semantics can be asserted.
type fakeRepo struct {
	courses     map[string]CurriculumCourse
	userCourses map[string]UserCourse
	nextID      int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		courses:     make(map[string]CurriculumCourse),
		userCourses: make(map[string]UserCourse),
	}
}

func (f *fakeRepo) addCourse(id, dept, code string, level int, semester, year string) {
	f.courses[id] = CurriculumCourse{
		ID: id, Department: dept, CourseCode: code, CourseName: code + " name",
		Level: level, Semester: semester, AcademicYear: year,
		CourseType: "core", CreditUnits: 3,
	}
}

type fakeTx struct {
	repo    *fakeRepo
	staged  map[string]UserCourse
}

func (f *fakeRepo) InTx(_ context.Context, fn func(tx Tx) error) error {
	tx := &fakeTx{repo: f, staged: make(map[string]UserCourse)}
	if err := fn(tx); err != nil {
		return err // nothing staged is visible
	}
	for id, uc := range tx.staged {
		f.userCourses[id] = uc
	}
	return nil
}

func (t *fakeTx) GetCurriculumCourse(_ context.Context, id string) (*CurriculumCourse, error) {
	cc, ok := t.repo.courses[id]
	if !ok {
		return nil, nil
	}
	return &cc, nil
}

func (t *fakeTx) FindRegistration(_ context.Context, key RegistrationKey) (*UserCourse, error) {
	match := func(uc UserCourse) bool {
		return uc.UserID == key.UserID && uc.AcademicYear == key.AcademicYear &&
			uc.Semester == key.Semester && uc.CurriculumCourseID == key.CurriculumCourseID &&
			uc.CurriculumCourseRole == key.Role
	}
	for _, uc := range t.repo.userCourses {
		if match(uc) {
			return &uc, nil
		}
	}
	for _, uc := range t.staged {
		if match(uc) {
			return &uc, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) InsertUserCourses(ctx context.Context, rows []UserCourse) ([]UserCourse, error) {
	out := make([]UserCourse, 0, len(rows))
	for _, uc := range rows {
		// the unique index on the registration tuple
		existing, _ := t.FindRegistration(ctx, RegistrationKey{
			UserID:             uc.UserID,
			AcademicYear:       uc.AcademicYear,
			Semester:           uc.Semester,
			CurriculumCourseID: uc.CurriculumCourseID,
			Role:               uc.CurriculumCourseRole,
		})
		if existing != nil {
			return nil, &pgconn.PgError{Code: "23505"}
		}
		t.repo.nextID++
		uc.ID = fmt.Sprintf("uc-%d", t.repo.nextID)
		t.staged[uc.ID] = uc
		out = append(out, uc)
	}
	return out, nil
}

func (f *fakeRepo) CreateCurriculumCourse(_ context.Context, cc CurriculumCourse) (CurriculumCourse, error) {
	f.courses[cc.ID] = cc
	return cc, nil
}

func (f *fakeRepo) GetCurriculumCourse(_ context.Context, id string) (*CurriculumCourse, error) {
	cc, ok := f.courses[id]
	if !ok {
		return nil, nil
	}
	return &cc, nil
}

func (f *fakeRepo) GetUserCourse(_ context.Context, id string) (*UserCourse, error) {
	uc, ok := f.userCourses[id]
	if !ok {
		return nil, nil
	}
	return &uc, nil
}

func (f *fakeRepo) ListUserCourses(_ context.Context, userID string, _ Filter) ([]UserCourse, error) {
	var out []UserCourse
	for _, uc := range f.userCourses {
		if uc.UserID == userID {
			out = append(out, uc)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateUserCourseStatus(_ context.Context, id, status string) (*UserCourse, error) {
	uc, ok := f.userCourses[id]
	if !ok {
		return nil, nil
	}
	uc.Status = status
	f.userCourses[id] = uc
	return &uc, nil
}

func (f *fakeRepo) DeleteUserCourse(_ context.Context, id string) error {
	delete(f.userCourses, id)
	return nil
}

func studentInput(courses ...string) RegisterInput {
	return RegisterInput{
		AcademicYear:         "2024/2025",
		Department:           "computer-science",
		Level:                300,
		Semester:             "first",
		CurriculumCourses:    courses,
		CurriculumCourseRole: CourseRoleStudent,
	}
}

func TestRegisterCourses(t *testing.T) {
	ctx := context.Background()
	student := Actor{ID: "user-1", Role: RoleStudent}

	t.Run("student batch succeeds in input order", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addCourse("cc-1", "computer-science", "CSC301", 300, "first", "2024/2025")
		repo.addCourse("cc-2", "computer-science", "CSC305", 300, "first", "2024/2025")
		svc := NewService(repo)

		created, err := svc.RegisterCourses(ctx, student, studentInput("cc-1", "cc-2"))
		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.Equal(t, "cc-1", created[0].CurriculumCourseID)
		assert.Equal(t, "cc-2", created[1].CurriculumCourseID)
		assert.Equal(t, StatusInProgress, created[0].Status)
		assert.Equal(t, "computer-science", created[0].Department)
	})

	t.Run("duplicate aborts the whole batch", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addCourse("cc-1", "computer-science", "CSC301", 300, "first", "2024/2025")
		repo.addCourse("cc-2", "computer-science", "CSC305", 300, "first", "2024/2025")
		svc := NewService(repo)

		_, err := svc.RegisterCourses(ctx, student, studentInput("cc-1"))
		require.NoError(t, err)

		_, err = svc.RegisterCourses(ctx, student, studentInput("cc-2", "cc-1"))
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Contains(t, err.Error(), "CSC301")
		// cc-2 from the failed batch must not be visible
		assert.Len(t, repo.userCourses, 1)
	})

	t.Run("duplicate within one batch is rejected", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addCourse("cc-1", "computer-science", "CSC301", 300, "first", "2024/2025")
		svc := NewService(repo)

		_, err := svc.RegisterCourses(ctx, student, studentInput("cc-1", "cc-1"))
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindConflict))
		assert.Empty(t, repo.userCourses)
	})

	t.Run("lecturer fields derive from the curriculum course", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addCourse("cc-1", "mathematics", "MTH201", 200, "second", "2024/2025")
		svc := NewService(repo)

		in := studentInput("cc-1")
		in.CurriculumCourseRole = CourseRoleLecturerPrimary
		created, err := svc.RegisterCourses(ctx, Actor{ID: "lect-1", Role: RoleLecturer}, in)
		require.NoError(t, err)
		require.Len(t, created, 1)
		// not the caller-supplied computer-science/300/first
		assert.Equal(t, "mathematics", created[0].Department)
		assert.Equal(t, 200, created[0].Level)
		assert.Equal(t, "second", created[0].Semester)
	})

	t.Run("lecturer with unknown course id fails the batch", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)

		in := studentInput("missing")
		in.CurriculumCourseRole = CourseRoleLecturerPrimary
		_, err := svc.RegisterCourses(ctx, Actor{ID: "lect-1", Role: RoleLecturer}, in)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Empty(t, repo.userCourses)
	})

	t.Run("admin role is rejected", func(t *testing.T) {
		svc := NewService(newFakeRepo())
		_, err := svc.RegisterCourses(ctx, Actor{ID: "admin-1", Role: RoleAdmin}, studentInput("cc-1"))
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
	})
}

func TestUserCourseLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.addCourse("cc-1", "computer-science", "CSC301", 300, "first", "2024/2025")
	svc := NewService(repo)

	created, err := svc.RegisterCourses(ctx, Actor{ID: "user-1", Role: RoleStudent}, studentInput("cc-1"))
	require.NoError(t, err)

	uc, err := svc.CompleteUserCourse(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, uc.Status)

	_, err = svc.CompleteUserCourse(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, svc.RemoveUserCourse(ctx, created[0].ID))
	_, err = svc.GetUserCourse(ctx, created[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
