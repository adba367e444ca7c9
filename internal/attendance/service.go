package attendance

import (
	"context"
	"log"
	"math"
	"time"

	"campusattend/internal/apperr"
	"campusattend/internal/course"
	"campusattend/internal/geo"
	"campusattend/internal/schedule"
	"campusattend/internal/settings"
	"campusattend/internal/store"
)

// borderBandMeters is the tolerance band logged as "border" in the audit
// trail. Purely informational; the accept rule is the radius itself.
const borderBandMeters = 2.0

type (
	// ClassDirectory is the read-only view of classes the state machine
	// consults. Implemented by the schedule repository.
	ClassDirectory interface {
		GetClass(ctx context.Context, id string) (*schedule.Class, error)
		CountClassesForCourse(ctx context.Context, courseID string) (int, error)
	}

	// RegistrationDirectory is the read-only view of course registrations.
	// Implemented by the course repository.
	RegistrationDirectory interface {
		IsRegistered(ctx context.Context, userID, curriculumCourseID string) (bool, error)
		GetUserCourse(ctx context.Context, id string) (*course.UserCourse, error)
	}

	// SettingsResolver yields the effective per-course configuration.
	SettingsResolver interface {
		Resolve(ctx context.Context, courseID string) (settings.ClassSetting, error)
	}

	// Repository persists attendance records and audit logs.
	Repository interface {
		Insert(ctx context.Context, rec Record) (Record, error)
		GetByUserAndClass(ctx context.Context, userID, classID string) (*Record, error)
		CompleteCheckOut(ctx context.Context, id string, at time.Time, coords geo.Coordinates, status string) (*Record, error)
		ListByClass(ctx context.Context, classID string) ([]Record, error)
		ListByUser(ctx context.Context, userID string) ([]Record, error)
		StatusCounts(ctx context.Context, userID, curriculumCourseID string) (map[string]int, error)
		AppendLog(ctx context.Context, entry LogEntry) error
	}

	// Service is the attendance state machine: it decides whether a
	// geolocated, timestamped clock action is accepted as valid attendance.
	Service struct {
		repo     Repository
		classes  ClassDirectory
		regs     RegistrationDirectory
		settings SettingsResolver
	}
)

// NewService wires the state machine.
func NewService(repo Repository, classes ClassDirectory, regs RegistrationDirectory, resolver SettingsResolver) *Service {
	return &Service{repo: repo, classes: classes, regs: regs, settings: resolver}
}

// ClockIn validates and records a check-in for (user, class). Checks run in a
// fixed order and fail fast; nothing is persisted on rejection. Races on the
// same (user, class) pair are settled by the unique index: exactly one insert
// wins and every loser gets the conflict error.
func (s *Service) ClockIn(ctx context.Context, classID, userID string, coords geo.Coordinates, at time.Time) (*Record, error) {
	cls, err := s.classes.GetClass(ctx, classID)
	if err != nil {
		reject("clock_in", "store")
		return nil, apperr.Internal(err)
	}
	if cls == nil {
		reject("clock_in", "class_not_found")
		return nil, apperr.NotFound("class not found")
	}
	if cls.Status != schedule.StatusInProgress {
		reject("clock_in", "class_not_in_progress")
		return nil, apperr.Validation("class is not in progress")
	}

	registered, err := s.regs.IsRegistered(ctx, userID, cls.CurriculumCourseID)
	if err != nil {
		reject("clock_in", "store")
		return nil, apperr.Internal(err)
	}
	if !registered {
		reject("clock_in", "not_registered")
		return nil, apperr.Validation("not registered for this course")
	}

	set, err := s.settings.Resolve(ctx, cls.CurriculumCourseID)
	if err != nil {
		reject("clock_in", "store")
		return nil, err
	}

	distance, err := classDistance(cls, coords)
	if err != nil {
		reject("clock_in", "no_class_location")
		return nil, err
	}
	if distance > set.AllowedRadius {
		reject("clock_in", "outside_radius")
		return nil, apperr.Validation("check-in location is outside the allowed class radius")
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	if outsideWindow(at, cls.ActualStartTime, set.AttendanceWindowMin) {
		reject("clock_in", "outside_window")
		return nil, apperr.Validation("check-in time is outside the attendance window")
	}

	rec, err := s.repo.Insert(ctx, Record{
		UserID:             userID,
		ClassID:            classID,
		CheckInTime:        &at,
		CheckInCoordinates: &coords,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			reject("clock_in", "already_recorded")
			return nil, apperr.Conflict("Attendance record already exists for this user and class")
		}
		reject("clock_in", "store")
		return nil, apperr.Internal(err)
	}

	s.appendLog(ctx, rec.ID, coords, distance, set.AllowedRadius)
	accept("clock_in")
	return &rec, nil
}

// ClockOut validates and finalizes the check-out for (user, class). All
// checks pass before any field is written; rejection never partially mutates
// the record.
func (s *Service) ClockOut(ctx context.Context, classID, userID string, coords geo.Coordinates, at time.Time) (*Record, error) {
	rec, err := s.repo.GetByUserAndClass(ctx, userID, classID)
	if err != nil {
		reject("clock_out", "store")
		return nil, apperr.Internal(err)
	}
	if rec == nil {
		reject("clock_out", "no_clock_in")
		return nil, apperr.Validation("did not clock in for this class")
	}

	cls, err := s.classes.GetClass(ctx, classID)
	if err != nil {
		reject("clock_out", "store")
		return nil, apperr.Internal(err)
	}
	if cls == nil {
		reject("clock_out", "class_not_found")
		return nil, apperr.NotFound("class not found")
	}
	if cls.Status != schedule.StatusCompleted {
		reject("clock_out", "class_not_completed")
		return nil, apperr.Validation("class is not completed")
	}

	set, err := s.settings.Resolve(ctx, cls.CurriculumCourseID)
	if err != nil {
		reject("clock_out", "store")
		return nil, err
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	if outsideWindow(at, cls.ActualEndTime, set.AttendanceWindowMin) {
		reject("clock_out", "outside_window")
		return nil, apperr.Validation("check-out time is outside the attendance window")
	}

	distance, err := classDistance(cls, coords)
	if err != nil {
		reject("clock_out", "no_class_location")
		return nil, err
	}
	if distance > set.AllowedRadius {
		reject("clock_out", "outside_radius")
		return nil, apperr.Validation("check-out location is outside the allowed class radius")
	}

	updated, err := s.repo.CompleteCheckOut(ctx, rec.ID, at, coords, StatusPresent)
	if err != nil {
		reject("clock_out", "store")
		return nil, apperr.Internal(err)
	}

	s.appendLog(ctx, rec.ID, coords, distance, set.AllowedRadius)
	accept("clock_out")
	return updated, nil
}

// Summarize computes attendance statistics for one registration. Classes the
// user never acted on stay uncounted in every status bucket; absence is a
// recorded status, not an inference.
func (s *Service) Summarize(ctx context.Context, userID, userCourseID string) (Summary, error) {
	uc, err := s.regs.GetUserCourse(ctx, userCourseID)
	if err != nil {
		return Summary{}, apperr.Internal(err)
	}
	if uc == nil {
		return Summary{}, apperr.NotFound("user course not found")
	}

	total, err := s.classes.CountClassesForCourse(ctx, uc.CurriculumCourseID)
	if err != nil {
		return Summary{}, apperr.Internal(err)
	}
	counts, err := s.repo.StatusCounts(ctx, userID, uc.CurriculumCourseID)
	if err != nil {
		return Summary{}, apperr.Internal(err)
	}

	sum := Summary{
		TotalClasses: total,
		Present:      counts[StatusPresent],
		Absent:       counts[StatusAbsent],
		Late:         counts[StatusLate],
		Excused:      counts[StatusExcused],
	}
	for _, n := range counts {
		sum.ForStudent += n
	}
	return sum, nil
}

// GetByUserAndClass returns the single record for the pair, if any.
func (s *Service) GetByUserAndClass(ctx context.Context, userID, classID string) (*Record, error) {
	rec, err := s.repo.GetByUserAndClass(ctx, userID, classID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if rec == nil {
		return nil, apperr.NotFound("no attendance record found for this user and class")
	}
	return rec, nil
}

// ListByClass returns a class roster's attendance, newest first.
func (s *Service) ListByClass(ctx context.Context, classID string) ([]Record, error) {
	rows, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

// ListByUser returns a user's attendance history, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

// appendLog writes the audit entry; failures are logged, never fatal.
func (s *Service) appendLog(ctx context.Context, attendanceID string, coords geo.Coordinates, distance, radius float64) {
	err := s.repo.AppendLog(ctx, LogEntry{
		AttendanceID:   attendanceID,
		Coordinates:    coords,
		LocationStatus: geo.Classify(distance, radius, borderBandMeters),
	})
	if err != nil {
		log.Printf("attendance log append failed for %s: %v", attendanceID, err)
	}
}

func classDistance(cls *schedule.Class, coords geo.Coordinates) (float64, error) {
	if cls.Geolocation == nil {
		return 0, apperr.Validation("class has no registered location")
	}
	return geo.Between(*cls.Geolocation, coords), nil
}

// outsideWindow reports whether at deviates from ref by strictly more than
// windowMin minutes. An unstamped ref is treated as the current instant, so a
// backdated timestamp is still measured against a real reference.
func outsideWindow(at time.Time, ref *time.Time, windowMin int) bool {
	refAt := time.Now().UTC()
	if ref != nil {
		refAt = *ref
	}
	deviation := math.Abs(at.Sub(refAt).Minutes())
	return deviation > float64(windowMin)
}
