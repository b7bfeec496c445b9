// model.go this code defines the data model for the application
package datastore

import (
	"strings"
	"time"
)

// Attendance type values for AttendanceRecord.AttendanceType.
const (
	AttendanceEntry = "entry"
	AttendanceExit  = "exit"
)

// Status lifecycle values for AttendanceRecord.Status.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
)

// Student represents a registered student. The face encoding itself lives in
// the external detector; we only keep an opaque reference to it.
type Student struct {
	ID               uint   `gorm:"primaryKey"`
	RollNumber       string `gorm:"uniqueIndex;not null"`
	Name             string
	Grade            string `gorm:"index"`
	ParentName       string
	ParentPhone      string
	FaceEncodingPath string // opaque reference, managed by the detector
	IsActive         bool   `gorm:"index"`
}

// Camera represents a detection camera.
type Camera struct {
	ID       uint `gorm:"primaryKey"`
	Name     string
	Location string
	RTSPURL  string
	IsActive bool `gorm:"index"`
}

// DetectionWindow is a weekly per-camera time range during which detections
// from that camera are honored. Multiple windows may exist per camera and
// day; overlapping windows are allowed and combined with OR semantics.
type DetectionWindow struct {
	ID        uint   `gorm:"primaryKey"`
	CameraID  uint   `gorm:"index:idx_windows_camera_day"`
	DayOfWeek string `gorm:"index:idx_windows_camera_day;type:varchar(9)"` // lowercase day name, "monday".."sunday"
	StartTime string `gorm:"type:varchar(8)"`                              // wall clock "HH:MM:SS"
	EndTime   string `gorm:"type:varchar(8)"`                              // wall clock "HH:MM:SS", inclusive
	IsActive  bool
}

// AttendanceRecord represents a single accepted recognition event. Records
// are immutable once written except for Status, which transitions at most
// once from pending to confirmed or rejected.
type AttendanceRecord struct {
	ID              uint      `gorm:"primaryKey"`
	StudentID       uint      `gorm:"index;index:idx_attendance_student_detected"`
	CameraID        uint      `gorm:"index"`
	AttendanceType  string    `gorm:"type:varchar(8)"`
	DetectedAt      time.Time `gorm:"index:idx_attendance_student_detected"`
	Date            string    `gorm:"index;type:varchar(10)"` // "YYYY-MM-DD" in local time, set at insert
	ConfidenceScore float64
	ImagePath       string
	Status          string `gorm:"type:varchar(10);index"`
}

// DailySummary holds per-date record counts split by attendance type.
type DailySummary struct {
	Total   int64 `json:"total"`
	Entries int64 `json:"entries"`
	Exits   int64 `json:"exits"`
}

// DailyPresence is the derived entry/exit completeness of a student for one
// date. It is a projection over AttendanceRecord, never persisted.
type DailyPresence struct {
	HasEntry bool `json:"has_entry"`
	HasExit  bool `json:"has_exit"`
}

// DayStatus derives the daily state for a student from presence flags.
func (p DailyPresence) DayStatus() string {
	switch {
	case p.HasEntry && p.HasExit:
		return "complete"
	case p.HasEntry:
		return "entry-only"
	default:
		return "absent"
	}
}

// DailyStats holds aggregated attendance figures for one date within a
// reporting range.
type DailyStats struct {
	Date           string `json:"date"`
	TotalRecords   int64  `json:"total_records"`
	Entries        int64  `json:"entries"`
	Exits          int64  `json:"exits"`
	UniqueStudents int64  `json:"unique_students"`
}

// DateOf formats a timestamp as the date string stored on attendance records.
func DateOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekdayName returns the lowercase day name used by detection windows.
func WeekdayName(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// ClockOf formats a timestamp as the wall clock string used by detection windows.
func ClockOf(t time.Time) string {
	return t.Format("15:04:05")
}
