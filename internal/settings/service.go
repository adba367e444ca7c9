package settings

import (
	"context"
	"time"

	"campusattend/internal/apperr"
)

// Compiled-in defaults applied when a course has no persisted setting.
// DefaultPassMark is intentionally a single constant; product has floated
// both 70 and 75 for it.
const (
	DefaultRadiusMeters = 25.0
	DefaultWindowMin    = 15
	DefaultPassMark     = 70
)

// ClassSetting is the per-course attendance configuration.
type ClassSetting struct {
	ID                      string    `json:"id,omitempty"`
	CurriculumCourseID      string    `json:"curriculumCourse"`
	AllowedRadius           float64   `json:"allowedRadius"`
	AttendanceWindowMin     int       `json:"attendanceWindow"`
	AttendancePassMark      int       `json:"attendancePassMark"`
	RecurringClasses        bool      `json:"recurringClasses"`
	AutoCreateClass         bool      `json:"autoCreateClass"`
	ShouldSendNotifications bool      `json:"shouldSendNotifications"`
	NotificationTimes       []int     `json:"notificationTimes"`
	IsDefault               bool      `json:"isDefault"`
	CreatedAt               time.Time `json:"createdAt,omitempty"`
	UpdatedAt               time.Time `json:"updatedAt,omitempty"`
}

// Defaults returns the default tuple for a course. Not persisted by itself.
func Defaults(courseID string) ClassSetting {
	return ClassSetting{
		CurriculumCourseID:      courseID,
		AllowedRadius:           DefaultRadiusMeters,
		AttendanceWindowMin:     DefaultWindowMin,
		AttendancePassMark:      DefaultPassMark,
		RecurringClasses:        true,
		AutoCreateClass:         false,
		ShouldSendNotifications: true,
		NotificationTimes:       []int{-1, 30, 10, 0},
		IsDefault:               true,
	}
}

// Patch carries the fields of a partial update; nil means "leave unchanged".
type Patch struct {
	AllowedRadius           *float64 `json:"allowedRadius" binding:"omitempty,gte=1"`
	AttendanceWindowMin     *int     `json:"attendanceWindow" binding:"omitempty,gte=0"`
	AttendancePassMark      *int     `json:"attendancePassMark" binding:"omitempty,gte=0,lte=100"`
	RecurringClasses        *bool    `json:"recurringClasses"`
	AutoCreateClass         *bool    `json:"autoCreateClass"`
	ShouldSendNotifications *bool    `json:"shouldSendNotifications"`
	NotificationTimes       []int    `json:"notificationTimes"`
}

type (
	// Repository persists class settings; GetByCourse returns (nil, nil)
	// when the course has no row.
	Repository interface {
		GetByCourse(ctx context.Context, courseID string) (*ClassSetting, error)
		Upsert(ctx context.Context, s ClassSetting) (ClassSetting, error)
	}

	// Cache is a best-effort read-through cache; misses and failures fall
	// back to the repository.
	Cache interface {
		Get(ctx context.Context, courseID string) (*ClassSetting, bool)
		Set(ctx context.Context, courseID string, s ClassSetting)
		Invalidate(ctx context.Context, courseID string)
	}

	// Service resolves per-course settings with fallback to defaults.
	Service struct {
		repo  Repository
		cache Cache
	}
)

// NewService creates a resolver. cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Resolve returns the persisted setting for the course verbatim, or the
// default tuple flagged IsDefault without persisting it.
func (s *Service) Resolve(ctx context.Context, courseID string) (ClassSetting, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, courseID); ok {
			return *cached, nil
		}
	}
	found, err := s.repo.GetByCourse(ctx, courseID)
	if err != nil {
		return ClassSetting{}, apperr.Internal(err)
	}
	if found == nil {
		return Defaults(courseID), nil
	}
	if s.cache != nil {
		s.cache.Set(ctx, courseID, *found)
	}
	return *found, nil
}

// ResetToDefault upserts the default tuple for the course, overwriting any
// customization. Idempotent.
func (s *Service) ResetToDefault(ctx context.Context, courseID string) (ClassSetting, error) {
	def := Defaults(courseID)
	def.IsDefault = false // persisted from here on
	saved, err := s.repo.Upsert(ctx, def)
	if err != nil {
		return ClassSetting{}, apperr.Internal(err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, courseID)
	}
	return saved, nil
}

// UpsertForCourse creates the setting from defaults merged with the patch, or
// patches the existing row. The unique index on curriculum_course_id keeps
// this to one row per course.
func (s *Service) UpsertForCourse(ctx context.Context, courseID string, p Patch) (ClassSetting, error) {
	current, err := s.repo.GetByCourse(ctx, courseID)
	if err != nil {
		return ClassSetting{}, apperr.Internal(err)
	}
	base := Defaults(courseID)
	if current != nil {
		base = *current
	}
	base.IsDefault = false
	apply(&base, p)
	if base.AllowedRadius < 1 {
		return ClassSetting{}, apperr.Validation("allowedRadius must be at least 1 meter")
	}
	if base.AttendancePassMark < 0 || base.AttendancePassMark > 100 {
		return ClassSetting{}, apperr.Validation("attendancePassMark must be between 0 and 100")
	}
	saved, err := s.repo.Upsert(ctx, base)
	if err != nil {
		return ClassSetting{}, apperr.Internal(err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, courseID)
	}
	return saved, nil
}

func apply(base *ClassSetting, p Patch) {
	if p.AllowedRadius != nil {
		base.AllowedRadius = *p.AllowedRadius
	}
	if p.AttendanceWindowMin != nil {
		base.AttendanceWindowMin = *p.AttendanceWindowMin
	}
	if p.AttendancePassMark != nil {
		base.AttendancePassMark = *p.AttendancePassMark
	}
	if p.RecurringClasses != nil {
		base.RecurringClasses = *p.RecurringClasses
	}
	if p.AutoCreateClass != nil {
		base.AutoCreateClass = *p.AutoCreateClass
	}
	if p.ShouldSendNotifications != nil {
		base.ShouldSendNotifications = *p.ShouldSendNotifications
	}
	if p.NotificationTimes != nil {
		base.NotificationTimes = p.NotificationTimes
	}
}
