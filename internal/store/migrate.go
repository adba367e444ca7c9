package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies the schema. Statements are idempotent so the binary can be
// restarted against an already-provisioned database.
func Migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		email       TEXT UNIQUE NOT NULL,
		role        TEXT NOT NULL CHECK (role IN ('student', 'lecturer', 'admin')),
		department  TEXT NOT NULL DEFAULT '',
		level       INT,
		semester    TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS curriculum_courses (
		id            UUID PRIMARY KEY,
		department    TEXT NOT NULL,
		course_code   TEXT NOT NULL,
		course_name   TEXT NOT NULL,
		level         INT NOT NULL,
		semester      TEXT NOT NULL CHECK (semester IN ('first', 'second')),
		academic_year TEXT NOT NULL,
		course_type   TEXT NOT NULL CHECK (course_type IN ('core', 'elective', 'general')),
		credit_units  INT NOT NULL CHECK (credit_units BETWEEN 1 AND 6),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (department, course_code, level, semester, academic_year)
	);

	CREATE TABLE IF NOT EXISTS user_courses (
		id                     UUID PRIMARY KEY,
		user_id                UUID NOT NULL REFERENCES users(id),
		curriculum_course_id   UUID NOT NULL REFERENCES curriculum_courses(id),
		curriculum_course_role TEXT NOT NULL CHECK (curriculum_course_role IN
			('student', 'lecturer_primary', 'lecturer_secondary', 'lecturer_assistant', 'course_representative')),
		academic_year          TEXT NOT NULL,
		department             TEXT NOT NULL,
		level                  INT NOT NULL,
		semester               TEXT NOT NULL,
		status                 TEXT NOT NULL DEFAULT 'in_progress' CHECK (status IN ('in_progress', 'completed')),
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, semester, academic_year, curriculum_course_id, curriculum_course_role)
	);
	CREATE INDEX IF NOT EXISTS idx_user_courses_course ON user_courses(curriculum_course_id, semester, academic_year);

	CREATE TABLE IF NOT EXISTS class_settings (
		id                        UUID PRIMARY KEY,
		curriculum_course_id      UUID NOT NULL UNIQUE REFERENCES curriculum_courses(id),
		allowed_radius_m          DOUBLE PRECISION NOT NULL CHECK (allowed_radius_m >= 1),
		attendance_window_min     INT NOT NULL,
		attendance_pass_mark      INT NOT NULL CHECK (attendance_pass_mark BETWEEN 0 AND 100),
		recurring_classes         BOOLEAN NOT NULL,
		auto_create_class         BOOLEAN NOT NULL,
		should_send_notifications BOOLEAN NOT NULL,
		notification_times        JSONB NOT NULL,
		created_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at                TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS class_schedules (
		id                   UUID PRIMARY KEY,
		curriculum_course_id UUID NOT NULL REFERENCES curriculum_courses(id),
		day                  TEXT NOT NULL CHECK (day IN
			('monday', 'tuesday', 'wednesday', 'thursday', 'friday', 'saturday', 'sunday')),
		start_time           TEXT NOT NULL,
		end_time             TEXT NOT NULL,
		duration_min         INT NOT NULL CHECK (duration_min >= 1),
		location_name        TEXT NOT NULL,
		location             JSONB NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS classes (
		id                   UUID PRIMARY KEY,
		curriculum_course_id UUID NOT NULL REFERENCES curriculum_courses(id),
		schedule_id          UUID NOT NULL REFERENCES class_schedules(id),
		name                 TEXT NOT NULL,
		status               TEXT NOT NULL DEFAULT 'scheduled' CHECK (status IN
			('scheduled', 'in_progress', 'completed', 'cancelled')),
		geolocation          JSONB,
		actual_date          DATE,
		actual_start_time    TIMESTAMPTZ,
		actual_end_time      TIMESTAMPTZ,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_classes_course ON classes(curriculum_course_id, status);

	CREATE TABLE IF NOT EXISTS class_attendance (
		id                    UUID PRIMARY KEY,
		user_id               UUID NOT NULL REFERENCES users(id),
		class_id              UUID NOT NULL REFERENCES classes(id),
		check_in_time         TIMESTAMPTZ,
		check_in_coordinates  JSONB,
		check_out_time        TIMESTAMPTZ,
		check_out_coordinates JSONB,
		status                TEXT CHECK (status IN ('present', 'absent', 'late', 'excused')),
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, class_id)
	);
	CREATE INDEX IF NOT EXISTS idx_class_attendance_class ON class_attendance(class_id, status);
	CREATE INDEX IF NOT EXISTS idx_class_attendance_user  ON class_attendance(user_id, status);

	CREATE TABLE IF NOT EXISTS class_attendance_logs (
		id              UUID PRIMARY KEY,
		attendance_id   UUID NOT NULL REFERENCES class_attendance(id),
		coordinates     JSONB NOT NULL,
		location_status TEXT NOT NULL CHECK (location_status IN ('inside', 'outside', 'border')),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_attendance_logs_attendance ON class_attendance_logs(attendance_id, created_at DESC);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
