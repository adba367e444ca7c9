package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	rows map[string]ClassSetting
}

func newFakeRepo() *fakeRepo { return &fakeRepo{rows: make(map[string]ClassSetting)} }

func (f *fakeRepo) GetByCourse(_ context.Context, courseID string) (*ClassSetting, error) {
	s, ok := f.rows[courseID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeRepo) Upsert(_ context.Context, s ClassSetting) (ClassSetting, error) {
	if existing, ok := f.rows[s.CurriculumCourseID]; ok {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	} else if s.ID == "" {
		s.ID = "setting-" + s.CurriculumCourseID
		s.CreatedAt = time.Now().UTC()
	}
	s.UpdatedAt = time.Now().UTC()
	s.IsDefault = false
	f.rows[s.CurriculumCourseID] = s
	return s, nil
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("absent course yields defaults without persisting", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo, nil)

		got, err := svc.Resolve(ctx, "course-1")
		require.NoError(t, err)
		assert.True(t, got.IsDefault)
		assert.Equal(t, DefaultRadiusMeters, got.AllowedRadius)
		assert.Equal(t, DefaultWindowMin, got.AttendanceWindowMin)
		assert.Equal(t, DefaultPassMark, got.AttendancePassMark)
		assert.Equal(t, []int{-1, 30, 10, 0}, got.NotificationTimes)
		assert.Empty(t, repo.rows)
	})

	t.Run("persisted setting returned verbatim", func(t *testing.T) {
		repo := newFakeRepo()
		radius := 60.0
		svc := NewService(repo, nil)
		_, err := svc.UpsertForCourse(ctx, "course-1", Patch{AllowedRadius: &radius})
		require.NoError(t, err)

		got, err := svc.Resolve(ctx, "course-1")
		require.NoError(t, err)
		assert.False(t, got.IsDefault)
		assert.Equal(t, 60.0, got.AllowedRadius)
		assert.Equal(t, DefaultPassMark, got.AttendancePassMark)
	})
}

func TestResetToDefault(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	radius := 100.0
	mark := 90
	_, err := svc.UpsertForCourse(ctx, "course-1", Patch{AllowedRadius: &radius, AttendancePassMark: &mark})
	require.NoError(t, err)

	first, err := svc.ResetToDefault(ctx, "course-1")
	require.NoError(t, err)
	second, err := svc.ResetToDefault(ctx, "course-1")
	require.NoError(t, err)

	assert.Equal(t, DefaultRadiusMeters, first.AllowedRadius)
	assert.Equal(t, DefaultPassMark, first.AttendancePassMark)
	// idempotent: the tuple is identical either way
	first.UpdatedAt, second.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, first, second)
	assert.Len(t, repo.rows, 1)
}

func TestUpsertForCourse(t *testing.T) {
	ctx := context.Background()

	t.Run("create merges patch into defaults", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo, nil)
		window := 30

		got, err := svc.UpsertForCourse(ctx, "course-1", Patch{AttendanceWindowMin: &window})
		require.NoError(t, err)
		assert.Equal(t, 30, got.AttendanceWindowMin)
		assert.Equal(t, DefaultRadiusMeters, got.AllowedRadius)
		assert.False(t, got.IsDefault)
	})

	t.Run("patch leaves other fields alone", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo, nil)
		radius := 40.0
		_, err := svc.UpsertForCourse(ctx, "course-1", Patch{AllowedRadius: &radius})
		require.NoError(t, err)

		mark := 80
		got, err := svc.UpsertForCourse(ctx, "course-1", Patch{AttendancePassMark: &mark})
		require.NoError(t, err)
		assert.Equal(t, 40.0, got.AllowedRadius)
		assert.Equal(t, 80, got.AttendancePassMark)
		assert.Len(t, repo.rows, 1)
	})

	t.Run("rejects radius below one meter", func(t *testing.T) {
		svc := NewService(newFakeRepo(), nil)
		radius := 0.5
		_, err := svc.UpsertForCourse(ctx, "course-1", Patch{AllowedRadius: &radius})
		assert.Error(t, err)
	})
}
