package attendance

import (
	"time"

	"campusattend/internal/geo"
)

// Attendance statuses. A record is created with no status and is finalized to
// present only by a fully valid clock-out; absent/late/excused are recorded
// explicitly, never inferred.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

// Record is the single attendance row per (user, class).
type Record struct {
	ID                  string           `json:"id"`
	UserID              string           `json:"user"`
	ClassID             string           `json:"class"`
	CheckInTime         *time.Time       `json:"checkInTime"`
	CheckInCoordinates  *geo.Coordinates `json:"checkInCoordinates,omitempty"`
	CheckOutTime        *time.Time       `json:"checkOutTime"`
	CheckOutCoordinates *geo.Coordinates `json:"checkOutCoordinates,omitempty"`
	Status              *string          `json:"status"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// DurationMinutes derives the attended duration; zero when either endpoint is
// missing. Not stored.
func (r Record) DurationMinutes() int {
	if r.CheckInTime == nil || r.CheckOutTime == nil {
		return 0
	}
	return int(r.CheckOutTime.Sub(*r.CheckInTime).Round(time.Minute) / time.Minute)
}

// LogEntry is one append-only audit row per accepted clock action.
type LogEntry struct {
	ID             string          `json:"id"`
	AttendanceID   string          `json:"attendance"`
	Coordinates    geo.Coordinates `json:"locationCoordinates"`
	LocationStatus geo.Status      `json:"locationStatus"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Summary is the per-user-per-course attendance statistic set.
type Summary struct {
	TotalClasses int `json:"totalClasses"`
	Present      int `json:"present"`
	Absent       int `json:"absent"`
	Late         int `json:"late"`
	Excused      int `json:"excused"`
	ForStudent   int `json:"forStudent"`
}
