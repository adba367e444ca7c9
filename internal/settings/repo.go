package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// PostgresRepository persists class settings in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByCourse returns the setting for a course, or (nil, nil) when absent.
func (r *PostgresRepository) GetByCourse(ctx context.Context, courseID string) (*ClassSetting, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, curriculum_course_id, allowed_radius_m, attendance_window_min,
		       attendance_pass_mark, recurring_classes, auto_create_class,
		       should_send_notifications, notification_times, created_at, updated_at
		FROM class_settings
		WHERE curriculum_course_id = $1
	`, courseID)

	var s ClassSetting
	var times []byte
	err := row.Scan(&s.ID, &s.CurriculumCourseID, &s.AllowedRadius, &s.AttendanceWindowMin,
		&s.AttendancePassMark, &s.RecurringClasses, &s.AutoCreateClass,
		&s.ShouldSendNotifications, &times, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(times, &s.NotificationTimes); err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert writes the setting, creating or overwriting the course's single row.
func (r *PostgresRepository) Upsert(ctx context.Context, s ClassSetting) (ClassSetting, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	times, err := json.Marshal(s.NotificationTimes)
	if err != nil {
		return ClassSetting{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO class_settings (id, curriculum_course_id, allowed_radius_m,
			attendance_window_min, attendance_pass_mark, recurring_classes,
			auto_create_class, should_send_notifications, notification_times)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (curriculum_course_id) DO UPDATE SET
			allowed_radius_m          = EXCLUDED.allowed_radius_m,
			attendance_window_min     = EXCLUDED.attendance_window_min,
			attendance_pass_mark      = EXCLUDED.attendance_pass_mark,
			recurring_classes         = EXCLUDED.recurring_classes,
			auto_create_class         = EXCLUDED.auto_create_class,
			should_send_notifications = EXCLUDED.should_send_notifications,
			notification_times        = EXCLUDED.notification_times,
			updated_at                = NOW()
		RETURNING id, created_at, updated_at
	`, s.ID, s.CurriculumCourseID, s.AllowedRadius, s.AttendanceWindowMin,
		s.AttendancePassMark, s.RecurringClasses, s.AutoCreateClass,
		s.ShouldSendNotifications, times)
	if err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return ClassSetting{}, err
	}
	s.IsDefault = false
	return s, nil
}
