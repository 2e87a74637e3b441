package models

import "time"

// AttendanceStatus represents the status for attendance records. The
// conduct core only reads these rows; the attendance module owns them.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// AttendanceRecord is one session-hour of attendance for a student.
type AttendanceRecord struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	Status       AttendanceStatus `db:"status" json:"status"`
	Date         time.Time        `db:"date" json:"date"`
	SchoolYearID string           `db:"school_year_id" json:"school_year_id"`
	SemesterID   string           `db:"semester_id" json:"semester_id"`
}

// AttendanceStats summarises the records behind an attendance score.
type AttendanceStats struct {
	TotalSessions  int     `json:"total_sessions"`
	Absences       int     `json:"absences"`
	Lates          int     `json:"lates"`
	AttendanceRate float64 `json:"attendance_rate"`
}
