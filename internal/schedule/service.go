package schedule

import (
	"context"
	"fmt"
	"time"

	"campusattend/internal/apperr"
	"campusattend/internal/geo"
)

type (
	// Repository persists schedules and classes.
	Repository interface {
		CreateSchedule(ctx context.Context, s Schedule) (Schedule, error)
		CountClassesForCourse(ctx context.Context, courseID string) (int, error)
		CreateClass(ctx context.Context, c Class) (Class, error)
		GetClass(ctx context.Context, id string) (*Class, error)
		ListClassesByCourse(ctx context.Context, courseID string) ([]Class, error)
		UpdateClass(ctx context.Context, c Class) (Class, error)
	}

	// Service manages schedules and the class lifecycle.
	Service struct {
		repo Repository
	}
)

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ScheduleInput is the payload for creating a schedule.
type ScheduleInput struct {
	CurriculumCourseID string          `json:"curriculumCourse" binding:"required"`
	Day                string          `json:"day" binding:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime          string          `json:"startTime" binding:"required"`
	EndTime            string          `json:"endTime" binding:"required"`
	DurationMin        int             `json:"duration" binding:"required,gte=1"`
	LocationName       string          `json:"locationName" binding:"required"`
	Location           geo.Coordinates `json:"locationCoordinates" binding:"required"`
}

// CreateSchedule saves the schedule and generates its class row, named
// sequentially per course.
func (s *Service) CreateSchedule(ctx context.Context, in ScheduleInput) (Schedule, Class, error) {
	sched, err := s.repo.CreateSchedule(ctx, Schedule{
		CurriculumCourseID: in.CurriculumCourseID,
		Day:                in.Day,
		StartTime:          in.StartTime,
		EndTime:            in.EndTime,
		DurationMin:        in.DurationMin,
		LocationName:       in.LocationName,
		Location:           in.Location,
	})
	if err != nil {
		return Schedule{}, Class{}, apperr.Internal(err)
	}

	count, err := s.repo.CountClassesForCourse(ctx, in.CurriculumCourseID)
	if err != nil {
		return Schedule{}, Class{}, apperr.Internal(err)
	}
	loc := in.Location
	cls, err := s.repo.CreateClass(ctx, Class{
		CurriculumCourseID: in.CurriculumCourseID,
		ScheduleID:         sched.ID,
		Name:               fmt.Sprintf("Class %d", count+1),
		Status:             StatusScheduled,
		Geolocation:        &loc,
	})
	if err != nil {
		return Schedule{}, Class{}, apperr.Internal(err)
	}
	return sched, cls, nil
}

// GetClass returns a class by id.
func (s *Service) GetClass(ctx context.Context, id string) (*Class, error) {
	cls, err := s.repo.GetClass(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if cls == nil {
		return nil, apperr.NotFound("class not found")
	}
	return cls, nil
}

// ListClassesByCourse returns all classes for a course, newest first.
func (s *Service) ListClassesByCourse(ctx context.Context, courseID string) ([]Class, error) {
	rows, err := s.repo.ListClassesByCourse(ctx, courseID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

// StartClass moves a scheduled class to in_progress, stamping the actual
// start instant and the authoritative classroom coordinates for the session.
func (s *Service) StartClass(ctx context.Context, classID string, coords *geo.Coordinates, at time.Time) (*Class, error) {
	cls, err := s.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if cls.Status != StatusScheduled {
		return nil, apperr.Validation("class cannot be started from status " + cls.Status)
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	day := at.Truncate(24 * time.Hour)
	cls.Status = StatusInProgress
	cls.ActualStartTime = &at
	cls.ActualDate = &day
	if coords != nil {
		cls.Geolocation = coords
	}
	updated, err := s.repo.UpdateClass(ctx, *cls)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &updated, nil
}

// CompleteClass moves an in_progress class to completed, stamping the actual
// end instant.
func (s *Service) CompleteClass(ctx context.Context, classID string, at time.Time) (*Class, error) {
	cls, err := s.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if cls.Status != StatusInProgress {
		return nil, apperr.Validation("class cannot be completed from status " + cls.Status)
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	cls.Status = StatusCompleted
	cls.ActualEndTime = &at
	updated, err := s.repo.UpdateClass(ctx, *cls)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &updated, nil
}

// CancelClass marks a scheduled class cancelled.
func (s *Service) CancelClass(ctx context.Context, classID string) (*Class, error) {
	cls, err := s.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if cls.Status != StatusScheduled {
		return nil, apperr.Validation("only scheduled classes can be cancelled")
	}
	cls.Status = StatusCancelled
	updated, err := s.repo.UpdateClass(ctx, *cls)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &updated, nil
}
