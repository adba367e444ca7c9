package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresRepository persists curriculum courses and registrations.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InTx runs fn inside one transaction; any error rolls the whole unit back.
func (r *PostgresRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&pgTx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

// pgTx adapts sql.Tx to the registration unit-of-work.
type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) GetCurriculumCourse(ctx context.Context, id string) (*CurriculumCourse, error) {
	return scanCurriculumCourse(t.tx.QueryRowContext(ctx, curriculumCourseQuery+` WHERE id = $1`, id))
}

func (t *pgTx) FindRegistration(ctx context.Context, key RegistrationKey) (*UserCourse, error) {
	row := t.tx.QueryRowContext(ctx, userCourseQuery+`
		WHERE user_id = $1 AND academic_year = $2 AND semester = $3
		  AND curriculum_course_id = $4 AND curriculum_course_role = $5
	`, key.UserID, key.AcademicYear, key.Semester, key.CurriculumCourseID, key.Role)
	return scanUserCourse(row)
}

func (t *pgTx) InsertUserCourses(ctx context.Context, rows []UserCourse) ([]UserCourse, error) {
	out := make([]UserCourse, 0, len(rows))
	for _, uc := range rows {
		if uc.ID == "" {
			uc.ID = uuid.NewString()
		}
		row := t.tx.QueryRowContext(ctx, `
			INSERT INTO user_courses (id, user_id, curriculum_course_id, curriculum_course_role,
				academic_year, department, level, semester, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			RETURNING created_at
		`, uc.ID, uc.UserID, uc.CurriculumCourseID, uc.CurriculumCourseRole,
			uc.AcademicYear, uc.Department, uc.Level, uc.Semester, uc.Status)
		if err := row.Scan(&uc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, uc)
	}
	return out, nil
}

const curriculumCourseQuery = `
	SELECT id, department, course_code, course_name, level, semester,
	       academic_year, course_type, credit_units, created_at
	FROM curriculum_courses`

const userCourseQuery = `
	SELECT id, user_id, curriculum_course_id, curriculum_course_role,
	       academic_year, department, level, semester, status, created_at
	FROM user_courses`

// CreateCurriculumCourse inserts a curriculum entry.
func (r *PostgresRepository) CreateCurriculumCourse(ctx context.Context, cc CurriculumCourse) (CurriculumCourse, error) {
	if cc.ID == "" {
		cc.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO curriculum_courses (id, department, course_code, course_name,
			level, semester, academic_year, course_type, credit_units)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, cc.ID, cc.Department, cc.CourseCode, cc.CourseName, cc.Level, cc.Semester,
		cc.AcademicYear, cc.CourseType, cc.CreditUnits)
	if err := row.Scan(&cc.CreatedAt); err != nil {
		return CurriculumCourse{}, err
	}
	return cc, nil
}

// GetCurriculumCourse returns a course or (nil, nil) when absent.
func (r *PostgresRepository) GetCurriculumCourse(ctx context.Context, id string) (*CurriculumCourse, error) {
	return scanCurriculumCourse(r.db.QueryRowContext(ctx, curriculumCourseQuery+` WHERE id = $1`, id))
}

// GetUserCourse returns a registration or (nil, nil) when absent.
func (r *PostgresRepository) GetUserCourse(ctx context.Context, id string) (*UserCourse, error) {
	return scanUserCourse(r.db.QueryRowContext(ctx, userCourseQuery+` WHERE id = $1`, id))
}

// ListUserCourses lists a user's registrations, newest first.
func (r *PostgresRepository) ListUserCourses(ctx context.Context, userID string, f Filter) ([]UserCourse, error) {
	query := userCourseQuery + ` WHERE user_id = $1`
	args := []any{userID}
	add := func(clause string, val any) {
		args = append(args, val)
		query += fmt.Sprintf(" AND %s = $%d", clause, len(args))
	}
	if f.AcademicYear != "" {
		add("academic_year", f.AcademicYear)
	}
	if f.Department != "" {
		add("department", f.Department)
	}
	if f.Level != 0 {
		add("level", f.Level)
	}
	if f.Semester != "" {
		add("semester", f.Semester)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserCourse
	for rows.Next() {
		uc, err := scanUserCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *uc)
	}
	return out, rows.Err()
}

// UpdateUserCourseStatus sets the status; returns (nil, nil) when absent.
func (r *PostgresRepository) UpdateUserCourseStatus(ctx context.Context, id, status string) (*UserCourse, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE user_courses SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.GetUserCourse(ctx, id)
}

// DeleteUserCourse removes a registration.
func (r *PostgresRepository) DeleteUserCourse(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_courses WHERE id = $1`, id)
	return err
}

// IsRegistered reports whether the user holds any registration on the course.
// The attendance engine consults this before accepting a clock-in.
func (r *PostgresRepository) IsRegistered(ctx context.Context, userID, curriculumCourseID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_courses WHERE user_id = $1 AND curriculum_course_id = $2
		)
	`, userID, curriculumCourseID).Scan(&exists)
	return exists, err
}

// ListRegistrants returns name and email for every user registered to the
// course, for notification fan-out.
func (r *PostgresRepository) ListRegistrants(ctx context.Context, curriculumCourseID string) ([]Registrant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT u.name, u.email
		FROM user_courses uc
		JOIN users u ON u.id = uc.user_id
		WHERE uc.curriculum_course_id = $1
	`, curriculumCourseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Registrant
	for rows.Next() {
		var reg Registrant
		if err := rows.Scan(&reg.Name, &reg.Email); err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCurriculumCourse(row rowScanner) (*CurriculumCourse, error) {
	var cc CurriculumCourse
	err := row.Scan(&cc.ID, &cc.Department, &cc.CourseCode, &cc.CourseName, &cc.Level,
		&cc.Semester, &cc.AcademicYear, &cc.CourseType, &cc.CreditUnits, &cc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cc, nil
}

func scanUserCourse(row rowScanner) (*UserCourse, error) {
	var uc UserCourse
	err := row.Scan(&uc.ID, &uc.UserID, &uc.CurriculumCourseID, &uc.CurriculumCourseRole,
		&uc.AcademicYear, &uc.Department, &uc.Level, &uc.Semester, &uc.Status, &uc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &uc, nil
}

