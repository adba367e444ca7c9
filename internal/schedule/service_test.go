package schedule

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusattend/internal/apperr"
	"campusattend/internal/geo"
)

type fakeRepo struct {
	schedules map[string]Schedule
	classes   map[string]Class
	nextID    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{schedules: make(map[string]Schedule), classes: make(map[string]Class)}
}

func (f *fakeRepo) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeRepo) CreateSchedule(_ context.Context, s Schedule) (Schedule, error) {
	s.ID = f.id("sched")
	s.CreatedAt = time.Now().UTC()
	f.schedules[s.ID] = s
	return s, nil
}

func (f *fakeRepo) CountClassesForCourse(_ context.Context, courseID string) (int, error) {
	n := 0
	for _, c := range f.classes {
		if c.CurriculumCourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CreateClass(_ context.Context, c Class) (Class, error) {
	c.ID = f.id("class")
	c.CreatedAt = time.Now().UTC()
	f.classes[c.ID] = c
	return c, nil
}

func (f *fakeRepo) GetClass(_ context.Context, id string) (*Class, error) {
	c, ok := f.classes[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeRepo) ListClassesByCourse(_ context.Context, courseID string) ([]Class, error) {
	var out []Class
	for _, c := range f.classes {
		if c.CurriculumCourseID == courseID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateClass(_ context.Context, c Class) (Class, error) {
	f.classes[c.ID] = c
	return c, nil
}

func scheduleInput(courseID string) ScheduleInput {
	return ScheduleInput{
		CurriculumCourseID: courseID,
		Day:                "monday",
		StartTime:          "09:00",
		EndTime:            "11:00",
		DurationMin:        120,
		LocationName:       "LT1",
		Location:           geo.Coordinates{Latitude: 6.5244, Longitude: 3.3792},
	}
}

func TestCreateSchedule(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	_, cls1, err := svc.CreateSchedule(ctx, scheduleInput("cc-1"))
	require.NoError(t, err)
	_, cls2, err := svc.CreateSchedule(ctx, scheduleInput("cc-1"))
	require.NoError(t, err)
	_, other, err := svc.CreateSchedule(ctx, scheduleInput("cc-2"))
	require.NoError(t, err)

	assert.Equal(t, "Class 1", cls1.Name)
	assert.Equal(t, "Class 2", cls2.Name)
	assert.Equal(t, "Class 1", other.Name) // numbering is per course
	assert.Equal(t, StatusScheduled, cls1.Status)
	require.NotNil(t, cls1.Geolocation)
	assert.Equal(t, 6.5244, cls1.Geolocation.Latitude)
}

func TestClassLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	_, cls, err := svc.CreateSchedule(ctx, scheduleInput("cc-1"))
	require.NoError(t, err)

	t.Run("complete before start is rejected", func(t *testing.T) {
		_, err := svc.CompleteClass(ctx, cls.ID, time.Time{})
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	startAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	started, err := svc.StartClass(ctx, cls.ID, &geo.Coordinates{Latitude: 6.53, Longitude: 3.38}, startAt)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)
	require.NotNil(t, started.ActualStartTime)
	assert.Equal(t, startAt, *started.ActualStartTime)
	assert.Equal(t, 6.53, started.Geolocation.Latitude)

	t.Run("double start is rejected", func(t *testing.T) {
		_, err := svc.StartClass(ctx, cls.ID, nil, time.Time{})
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	endAt := startAt.Add(2 * time.Hour)
	completed, err := svc.CompleteClass(ctx, cls.ID, endAt)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.ActualEndTime)
	assert.Equal(t, endAt, *completed.ActualEndTime)

	t.Run("cancel after completion is rejected", func(t *testing.T) {
		_, err := svc.CancelClass(ctx, cls.ID)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("unknown class is not found", func(t *testing.T) {
		_, err := svc.StartClass(ctx, "missing", nil, time.Time{})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}
