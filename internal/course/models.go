package course

import "time"

// System-wide user roles. The identity subsystem owns users; only the role
// matters here.
const (
	RoleStudent  = "student"
	RoleLecturer = "lecturer"
	RoleAdmin    = "admin"
)

// Per-course registration roles.
const (
	CourseRoleStudent            = "student"
	CourseRoleLecturerPrimary    = "lecturer_primary"
	CourseRoleLecturerSecondary  = "lecturer_secondary"
	CourseRoleLecturerAssistant  = "lecturer_assistant"
	CourseRoleCourseRep          = "course_representative"
)

// Registration statuses.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   string
	Role string
}

// CurriculumCourse is a course offered within a department's curriculum for a
// given level/semester/academic year. Immutable reference data once created;
// unique on (department, courseCode, level, semester, academicYear).
type CurriculumCourse struct {
	ID           string    `json:"id"`
	Department   string    `json:"department"`
	CourseCode   string    `json:"courseCode"`
	CourseName   string    `json:"courseName"`
	Level        int       `json:"level"`
	Semester     string    `json:"semester"`
	AcademicYear string    `json:"academicYear"`
	CourseType   string    `json:"courseType"`
	CreditUnits  int       `json:"creditUnits"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserCourse registers a user into a curriculum course with a specific role
// for one semester. Unique on (user, semester, academicYear, curriculumCourse,
// curriculumCourseRole).
type UserCourse struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user"`
	CurriculumCourseID   string    `json:"curriculumCourse"`
	CurriculumCourseRole string    `json:"curriculumCourseRole"`
	AcademicYear         string    `json:"academicYear"`
	Department           string    `json:"department"`
	Level                int       `json:"level"`
	Semester             string    `json:"semester"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"createdAt"`
}

// RegistrationKey identifies the unique registration tuple.
type RegistrationKey struct {
	UserID             string
	AcademicYear       string
	Semester           string
	CurriculumCourseID string
	Role               string
}

// Registrant is a notification recipient pulled from a course's roster.
type Registrant struct {
	Name  string
	Email string
}

// Filter narrows user-course listings.
type Filter struct {
	AcademicYear string
	Department   string
	Level        int
	Semester     string
}
