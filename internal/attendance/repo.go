package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"campusattend/internal/geo"
)

// PostgresRepository persists attendance data in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordQuery = `
	SELECT id, user_id, class_id, check_in_time, check_in_coordinates,
	       check_out_time, check_out_coordinates, status, created_at, updated_at
	FROM class_attendance`

// Insert writes a new record. The unique index on (user_id, class_id) is the
// single arbiter for concurrent clock-ins on the same pair.
func (r *PostgresRepository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	coords, err := marshalCoords(rec.CheckInCoordinates)
	if err != nil {
		return Record{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO class_attendance (id, user_id, class_id, check_in_time, check_in_coordinates, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`, rec.ID, rec.UserID, rec.ClassID, rec.CheckInTime, coords, rec.Status)
	if err := row.Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// GetByUserAndClass returns the pair's record, or (nil, nil) when absent.
func (r *PostgresRepository) GetByUserAndClass(ctx context.Context, userID, classID string) (*Record, error) {
	return scanRecord(r.db.QueryRowContext(ctx,
		recordQuery+` WHERE user_id = $1 AND class_id = $2`, userID, classID))
}

// CompleteCheckOut finalizes the record in one write: check-out stamp,
// coordinates and status land together or not at all.
func (r *PostgresRepository) CompleteCheckOut(ctx context.Context, id string, at time.Time, coords geo.Coordinates, status string) (*Record, error) {
	raw, err := json.Marshal(coords)
	if err != nil {
		return nil, err
	}
	return scanRecord(r.db.QueryRowContext(ctx, `
		UPDATE class_attendance
		SET check_out_time = $2, check_out_coordinates = $3, status = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, class_id, check_in_time, check_in_coordinates,
		          check_out_time, check_out_coordinates, status, created_at, updated_at
	`, id, at, raw, status))
}

// ListByClass returns a class's records, newest first.
func (r *PostgresRepository) ListByClass(ctx context.Context, classID string) ([]Record, error) {
	return r.list(ctx, recordQuery+` WHERE class_id = $1 ORDER BY created_at DESC`, classID)
}

// ListByUser returns a user's records, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	return r.list(ctx, recordQuery+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// StatusCounts buckets the user's records across the course's classes by
// status. Records still awaiting clock-out land under the empty key.
func (r *PostgresRepository) StatusCounts(ctx context.Context, userID, curriculumCourseID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(a.status, ''), COUNT(*)
		FROM class_attendance a
		JOIN classes c ON c.id = a.class_id
		WHERE a.user_id = $1 AND c.curriculum_course_id = $2
		GROUP BY COALESCE(a.status, '')
	`, userID, curriculumCourseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// AppendLog writes one immutable audit row.
func (r *PostgresRepository) AppendLog(ctx context.Context, entry LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	coords, err := json.Marshal(entry.Coordinates)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO class_attendance_logs (id, attendance_id, coordinates, location_status)
		VALUES ($1,$2,$3,$4)
	`, entry.ID, entry.AttendanceID, coords, entry.LocationStatus)
	return err
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

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var in, out []byte
	err := row.Scan(&rec.ID, &rec.UserID, &rec.ClassID, &rec.CheckInTime, &in,
		&rec.CheckOutTime, &out, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if in != nil {
		var c geo.Coordinates
		if err := json.Unmarshal(in, &c); err != nil {
			return nil, err
		}
		rec.CheckInCoordinates = &c
	}
	if out != nil {
		var c geo.Coordinates
		if err := json.Unmarshal(out, &c); err != nil {
			return nil, err
		}
		rec.CheckOutCoordinates = &c
	}
	return &rec, nil
}
