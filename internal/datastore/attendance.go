// attendance.go: ledger writes and the derived attendance queries.
package datastore

import (
	stderrors "errors"
	"time"

	"github.com/smart-attendance/attendance-go/internal/errors"
	"gorm.io/gorm"
)

// SaveAttendance inserts a new attendance record. The insert is a single-row
// atomic write; the Date column is derived from DetectedAt at insert time so
// daily aggregations work identically on SQLite and MySQL.
func (ds *DataStore) SaveAttendance(record *AttendanceRecord) error {
	if record.Date == "" {
		record.Date = DateOf(record.DetectedAt)
	}
	if err := ds.DB.Create(record).Error; err != nil {
		return storageError(err, "save attendance")
	}
	return nil
}

// GetAttendance retrieves an attendance record by its ID.
func (ds *DataStore) GetAttendance(id uint) (AttendanceRecord, error) {
	var record AttendanceRecord
	if err := ds.DB.First(&record, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return AttendanceRecord{}, ErrNotFound
		}
		return AttendanceRecord{}, storageError(err, "get attendance")
	}
	return record, nil
}

// MostRecentAttendance returns the latest record for the student with
// detected_at in [at-within, at], regardless of camera or type, or nil when
// no such record exists.
func (ds *DataStore) MostRecentAttendance(studentID uint, at time.Time, within time.Duration) (*AttendanceRecord, error) {
	var records []AttendanceRecord
	err := ds.DB.
		Where("student_id = ? AND detected_at >= ? AND detected_at <= ?", studentID, at.Add(-within), at).
		Order("detected_at DESC").
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, storageError(err, "most recent attendance")
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// UpdateAttendanceStatus transitions a pending record to confirmed or
// rejected. The transition is a conditional UPDATE so two concurrent reviews
// cannot both succeed; attempting to change a record that already left the
// pending state returns ErrInvalidTransition and leaves the row untouched.
func (ds *DataStore) UpdateAttendanceStatus(id uint, status string) error {
	if status != StatusConfirmed && status != StatusRejected {
		return errors.Newf("invalid target status %q", status).
			Component("datastore").Category(errors.CategoryValidation).Build()
	}

	res := ds.DB.Model(&AttendanceRecord{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Update("status", status)
	if res.Error != nil {
		return storageError(res.Error, "update attendance status")
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing row from a terminal-state row.
		var count int64
		if err := ds.DB.Model(&AttendanceRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return storageError(err, "update attendance status")
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

// DailyAttendanceSummary returns the record counts for the given date, split
// by attendance type.
func (ds *DataStore) DailyAttendanceSummary(date string) (DailySummary, error) {
	var summary DailySummary
	err := ds.DB.Model(&AttendanceRecord{}).
		Select("COUNT(*) as total, "+
			"COUNT(CASE WHEN attendance_type = 'entry' THEN 1 END) as entries, "+
			"COUNT(CASE WHEN attendance_type = 'exit' THEN 1 END) as exits").
		Where("date = ?", date).
		Scan(&summary).Error
	if err != nil {
		return DailySummary{}, storageError(err, "daily attendance summary")
	}
	return summary, nil
}

// StudentDailyPresence aggregates a student's records for one date into the
// derived entry/exit presence flags. Recomputed on every call, never cached
// or persisted.
func (ds *DataStore) StudentDailyPresence(studentID uint, date string) (DailyPresence, error) {
	var counts struct {
		Entries int64
		Exits   int64
	}
	err := ds.DB.Model(&AttendanceRecord{}).
		Select("COUNT(CASE WHEN attendance_type = 'entry' THEN 1 END) as entries, "+
			"COUNT(CASE WHEN attendance_type = 'exit' THEN 1 END) as exits").
		Where("student_id = ? AND date = ?", studentID, date).
		Scan(&counts).Error
	if err != nil {
		return DailyPresence{}, storageError(err, "student daily presence")
	}
	return DailyPresence{HasEntry: counts.Entries > 0, HasExit: counts.Exits > 0}, nil
}

// RecentAttendance retrieves the most recent attendance records.
func (ds *DataStore) RecentAttendance(limit int) ([]AttendanceRecord, error) {
	var records []AttendanceRecord
	err := ds.DB.Order("detected_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, storageError(err, "recent attendance")
	}
	return records, nil
}

// AttendanceByDateRange lists records with dates in [startDate, endDate],
// newest first, with pagination.
func (ds *DataStore) AttendanceByDateRange(startDate, endDate string, limit, offset int) ([]AttendanceRecord, error) {
	var records []AttendanceRecord
	err := ds.DB.
		Where("date >= ? AND date <= ?", startDate, endDate).
		Order("detected_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, storageError(err, "attendance by date range")
	}
	return records, nil
}

// StudentAttendance lists a student's records, optionally restricted to one
// date, newest first.
func (ds *DataStore) StudentAttendance(studentID uint, date string) ([]AttendanceRecord, error) {
	query := ds.DB.Where("student_id = ?", studentID)
	if date != "" {
		query = query.Where("date = ?", date)
	}

	var records []AttendanceRecord
	if err := query.Order("detected_at DESC").Find(&records).Error; err != nil {
		return nil, storageError(err, "student attendance")
	}
	return records, nil
}

// AttendanceStats returns per-date aggregate figures for dates in
// [startDate, endDate], newest date first.
func (ds *DataStore) AttendanceStats(startDate, endDate string) ([]DailyStats, error) {
	var stats []DailyStats
	err := ds.DB.Model(&AttendanceRecord{}).
		Select("date, COUNT(*) as total_records, "+
			"COUNT(CASE WHEN attendance_type = 'entry' THEN 1 END) as entries, "+
			"COUNT(CASE WHEN attendance_type = 'exit' THEN 1 END) as exits, "+
			"COUNT(DISTINCT student_id) as unique_students").
		Where("date >= ? AND date <= ?", startDate, endDate).
		Group("date").
		Order("date DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, storageError(err, "attendance stats")
	}
	return stats, nil
}
