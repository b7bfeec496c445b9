package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-attendance/attendance-go/internal/conf"
	"github.com/smart-attendance/attendance-go/internal/errors"
)

// newTestStore opens a SQLite store in a temporary directory.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store := &SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedRecord(t *testing.T, store *SQLiteStore, studentID uint, attendanceType string, detectedAt time.Time, status string) *AttendanceRecord {
	t.Helper()
	record := &AttendanceRecord{
		StudentID:       studentID,
		CameraID:        1,
		AttendanceType:  attendanceType,
		DetectedAt:      detectedAt,
		ConfidenceScore: 0.9,
		Status:          status,
	}
	require.NoError(t, store.SaveAttendance(record))
	return record
}

func TestSaveAttendanceDerivesDate(t *testing.T) {
	store := newTestStore(t)

	at := time.Date(2026, 8, 24, 8, 15, 0, 0, time.Local)
	record := seedRecord(t, store, 1, AttendanceEntry, at, StatusConfirmed)

	loaded, err := store.GetAttendance(record.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-24", loaded.Date)
}

func TestGetAttendanceNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetAttendance(12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMostRecentAttendance(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	t.Run("empty store", func(t *testing.T) {
		recent, err := store.MostRecentAttendance(1, now, 30*time.Minute)
		require.NoError(t, err)
		assert.Nil(t, recent)
	})

	seedRecord(t, store, 1, AttendanceEntry, now.Add(-20*time.Minute), StatusConfirmed)
	latest := seedRecord(t, store, 1, AttendanceExit, now.Add(-5*time.Minute), StatusConfirmed)
	seedRecord(t, store, 2, AttendanceEntry, now.Add(-1*time.Minute), StatusConfirmed)

	t.Run("returns latest in window for the student", func(t *testing.T) {
		recent, err := store.MostRecentAttendance(1, now, 30*time.Minute)
		require.NoError(t, err)
		require.NotNil(t, recent)
		assert.Equal(t, latest.ID, recent.ID)
		assert.Equal(t, AttendanceExit, recent.AttendanceType)
	})

	t.Run("records outside the window are ignored", func(t *testing.T) {
		recent, err := store.MostRecentAttendance(1, now, 2*time.Minute)
		require.NoError(t, err)
		assert.Nil(t, recent)
	})

	t.Run("records after the reference time are ignored", func(t *testing.T) {
		recent, err := store.MostRecentAttendance(1, now.Add(-10*time.Minute), 30*time.Minute)
		require.NoError(t, err)
		require.NotNil(t, recent)
		assert.Equal(t, AttendanceEntry, recent.AttendanceType)
	})
}

func TestUpdateAttendanceStatus(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	t.Run("pending to confirmed", func(t *testing.T) {
		record := seedRecord(t, store, 1, AttendanceEntry, now, StatusPending)
		require.NoError(t, store.UpdateAttendanceStatus(record.ID, StatusConfirmed))

		loaded, err := store.GetAttendance(record.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, loaded.Status)
	})

	t.Run("pending to rejected", func(t *testing.T) {
		record := seedRecord(t, store, 1, AttendanceEntry, now, StatusPending)
		require.NoError(t, store.UpdateAttendanceStatus(record.ID, StatusRejected))
	})

	t.Run("terminal record cannot transition again", func(t *testing.T) {
		record := seedRecord(t, store, 1, AttendanceEntry, now, StatusPending)
		require.NoError(t, store.UpdateAttendanceStatus(record.ID, StatusConfirmed))

		err := store.UpdateAttendanceStatus(record.ID, StatusRejected)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		loaded, err := store.GetAttendance(record.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, loaded.Status)
	})

	t.Run("missing record", func(t *testing.T) {
		err := store.UpdateAttendanceStatus(99999, StatusConfirmed)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid target status", func(t *testing.T) {
		record := seedRecord(t, store, 1, AttendanceEntry, now, StatusPending)
		err := store.UpdateAttendanceStatus(record.ID, "archived")
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	})
}

func TestDailyAttendanceSummary(t *testing.T) {
	store := newTestStore(t)
	day := time.Date(2026, 8, 24, 8, 0, 0, 0, time.Local)

	seedRecord(t, store, 1, AttendanceEntry, day, StatusConfirmed)
	seedRecord(t, store, 2, AttendanceEntry, day.Add(time.Minute), StatusConfirmed)
	seedRecord(t, store, 1, AttendanceExit, day.Add(7*time.Hour), StatusConfirmed)
	// Different day, must not be counted.
	seedRecord(t, store, 1, AttendanceEntry, day.AddDate(0, 0, 1), StatusConfirmed)

	summary, err := store.DailyAttendanceSummary("2026-08-24")
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Total)
	assert.Equal(t, int64(2), summary.Entries)
	assert.Equal(t, int64(1), summary.Exits)
}

func TestDailyAttendanceSummaryEmptyDate(t *testing.T) {
	store := newTestStore(t)

	summary, err := store.DailyAttendanceSummary("2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, DailySummary{}, summary)
}

func TestStudentDailyPresence(t *testing.T) {
	store := newTestStore(t)
	day := time.Date(2026, 8, 24, 8, 0, 0, 0, time.Local)

	t.Run("absent", func(t *testing.T) {
		presence, err := store.StudentDailyPresence(1, "2026-08-24")
		require.NoError(t, err)
		assert.False(t, presence.HasEntry)
		assert.False(t, presence.HasExit)
		assert.Equal(t, "absent", presence.DayStatus())
	})

	seedRecord(t, store, 1, AttendanceEntry, day, StatusConfirmed)

	t.Run("entry only", func(t *testing.T) {
		presence, err := store.StudentDailyPresence(1, "2026-08-24")
		require.NoError(t, err)
		assert.True(t, presence.HasEntry)
		assert.False(t, presence.HasExit)
		assert.Equal(t, "entry-only", presence.DayStatus())
	})

	seedRecord(t, store, 1, AttendanceExit, day.Add(7*time.Hour), StatusConfirmed)

	t.Run("complete", func(t *testing.T) {
		presence, err := store.StudentDailyPresence(1, "2026-08-24")
		require.NoError(t, err)
		assert.Equal(t, "complete", presence.DayStatus())
	})
}

func TestAttendanceByDateRange(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 8, 20, 8, 0, 0, 0, time.Local)

	for i := 0; i < 5; i++ {
		seedRecord(t, store, 1, AttendanceEntry, base.AddDate(0, 0, i), StatusConfirmed)
	}

	records, err := store.AttendanceByDateRange("2026-08-21", "2026-08-23", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	// Newest first.
	assert.Equal(t, "2026-08-23", records[0].Date)
	assert.Equal(t, "2026-08-21", records[2].Date)

	paged, err := store.AttendanceByDateRange("2026-08-20", "2026-08-24", 2, 2)
	require.NoError(t, err)
	require.Len(t, paged, 2)
	assert.Equal(t, "2026-08-22", paged[0].Date)
}

func TestAttendanceStats(t *testing.T) {
	store := newTestStore(t)
	day1 := time.Date(2026, 8, 24, 8, 0, 0, 0, time.Local)
	day2 := day1.AddDate(0, 0, 1)

	seedRecord(t, store, 1, AttendanceEntry, day1, StatusConfirmed)
	seedRecord(t, store, 2, AttendanceEntry, day1.Add(time.Minute), StatusConfirmed)
	seedRecord(t, store, 1, AttendanceExit, day1.Add(7*time.Hour), StatusConfirmed)
	seedRecord(t, store, 1, AttendanceEntry, day2, StatusConfirmed)

	stats, err := store.AttendanceStats("2026-08-24", "2026-08-25")
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Newest date first.
	assert.Equal(t, "2026-08-25", stats[0].Date)
	assert.Equal(t, int64(1), stats[0].TotalRecords)

	assert.Equal(t, "2026-08-24", stats[1].Date)
	assert.Equal(t, int64(3), stats[1].TotalRecords)
	assert.Equal(t, int64(2), stats[1].Entries)
	assert.Equal(t, int64(1), stats[1].Exits)
	assert.Equal(t, int64(2), stats[1].UniqueStudents)
}

func TestStudentAttendance(t *testing.T) {
	store := newTestStore(t)
	day := time.Date(2026, 8, 24, 8, 0, 0, 0, time.Local)

	seedRecord(t, store, 1, AttendanceEntry, day, StatusConfirmed)
	seedRecord(t, store, 1, AttendanceExit, day.Add(7*time.Hour), StatusConfirmed)
	seedRecord(t, store, 2, AttendanceEntry, day, StatusConfirmed)
	seedRecord(t, store, 1, AttendanceEntry, day.AddDate(0, 0, 1), StatusConfirmed)

	byDate, err := store.StudentAttendance(1, "2026-08-24")
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	all, err := store.StudentAttendance(1, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
