package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"campusattend/internal/geo"
)

// PostgresRepository persists schedules and classes.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateSchedule inserts a schedule row.
func (r *PostgresRepository) CreateSchedule(ctx context.Context, s Schedule) (Schedule, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	loc, err := json.Marshal(s.Location)
	if err != nil {
		return Schedule{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO class_schedules (id, curriculum_course_id, day, start_time, end_time,
			duration_min, location_name, location)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, s.ID, s.CurriculumCourseID, s.Day, s.StartTime, s.EndTime, s.DurationMin, s.LocationName, loc)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// CountClassesForCourse counts existing classes, used for sequential naming.
func (r *PostgresRepository) CountClassesForCourse(ctx context.Context, courseID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM classes WHERE curriculum_course_id = $1`, courseID).Scan(&n)
	return n, err
}

// CreateClass inserts a class row.
func (r *PostgresRepository) CreateClass(ctx context.Context, c Class) (Class, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	loc, err := marshalCoords(c.Geolocation)
	if err != nil {
		return Class{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO classes (id, curriculum_course_id, schedule_id, name, status, geolocation)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, c.ID, c.CurriculumCourseID, c.ScheduleID, c.Name, c.Status, loc)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Class{}, err
	}
	return c, nil
}

const classQuery = `
	SELECT id, curriculum_course_id, schedule_id, name, status, geolocation,
	       actual_date, actual_start_time, actual_end_time, created_at
	FROM classes`

// GetClass returns a class or (nil, nil) when absent.
func (r *PostgresRepository) GetClass(ctx context.Context, id string) (*Class, error) {
	return scanClass(r.db.QueryRowContext(ctx, classQuery+` WHERE id = $1`, id))
}

// ListClassesByCourse returns all classes for a course, newest first.
func (r *PostgresRepository) ListClassesByCourse(ctx context.Context, courseID string) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, classQuery+` WHERE curriculum_course_id = $1 ORDER BY created_at DESC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateClass writes lifecycle mutations (status, stamps, geolocation).
func (r *PostgresRepository) UpdateClass(ctx context.Context, c Class) (Class, error) {
	loc, err := marshalCoords(c.Geolocation)
	if err != nil {
		return Class{}, err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE classes
		SET status = $2, geolocation = $3, actual_date = $4,
		    actual_start_time = $5, actual_end_time = $6
		WHERE id = $1
	`, c.ID, c.Status, loc, c.ActualDate, c.ActualStartTime, c.ActualEndTime)
	if err != nil {
		return Class{}, err
	}
	return c, nil
}

func marshalCoords(c *geo.Coordinates) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClass(row rowScanner) (*Class, error) {
	var c Class
	var loc []byte
	err := row.Scan(&c.ID, &c.CurriculumCourseID, &c.ScheduleID, &c.Name, &c.Status,
		&loc, &c.ActualDate, &c.ActualStartTime, &c.ActualEndTime, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if loc != nil {
		var coords geo.Coordinates
		if err := json.Unmarshal(loc, &coords); err != nil {
			return nil, err
		}
		c.Geolocation = &coords
	}
	return &c, nil
}
