package schedule

import (
	"time"

	"campusattend/internal/geo"
)

// Class lifecycle states.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Schedule is the recurring slot a curriculum course meets in, including the
// registered classroom location.
type Schedule struct {
	ID                 string          `json:"id"`
	CurriculumCourseID string          `json:"curriculumCourse"`
	Day                string          `json:"day"`
	StartTime          string          `json:"startTime"`
	EndTime            string          `json:"endTime"`
	DurationMin        int             `json:"duration"`
	LocationName       string          `json:"locationName"`
	Location           geo.Coordinates `json:"locationCoordinates"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// Class is one concrete scheduled session of a curriculum course. Classes are
// generated when a schedule is saved, named sequentially per course
// ("Class 1", "Class 2", ...), and never auto-deleted.
type Class struct {
	ID                 string           `json:"id"`
	CurriculumCourseID string           `json:"curriculumCourse"`
	ScheduleID         string           `json:"schedule"`
	Name               string           `json:"name"`
	Status             string           `json:"status"`
	Geolocation        *geo.Coordinates `json:"geolocationData,omitempty"`
	ActualDate         *time.Time       `json:"actualDate,omitempty"`
	ActualStartTime    *time.Time       `json:"actualStartTime,omitempty"`
	ActualEndTime      *time.Time       `json:"actualEndTime,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
}
