// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/smart-attendance/attendance-go/internal/conf"
	"github.com/smart-attendance/attendance-go/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines the
// operations the rest of the application may perform against storage.
type Interface interface {
	Open() error
	Close() error

	// attendance ledger
	SaveAttendance(record *AttendanceRecord) error
	GetAttendance(id uint) (AttendanceRecord, error)
	MostRecentAttendance(studentID uint, at time.Time, within time.Duration) (*AttendanceRecord, error)
	UpdateAttendanceStatus(id uint, status string) error
	DailyAttendanceSummary(date string) (DailySummary, error)
	StudentDailyPresence(studentID uint, date string) (DailyPresence, error)
	RecentAttendance(limit int) ([]AttendanceRecord, error)
	AttendanceByDateRange(startDate, endDate string, limit, offset int) ([]AttendanceRecord, error)
	StudentAttendance(studentID uint, date string) ([]AttendanceRecord, error)
	AttendanceStats(startDate, endDate string) ([]DailyStats, error)

	// detection schedule
	SaveDetectionWindow(window *DetectionWindow) error
	GetDetectionWindow(id uint) (DetectionWindow, error)
	UpdateDetectionWindow(window *DetectionWindow) error
	DeleteDetectionWindow(id uint) error
	DeleteCameraDetectionWindows(cameraID uint) error
	DetectionWindowsForCamera(cameraID uint, dayOfWeek string) ([]DetectionWindow, error)
	AllDetectionWindows() ([]DetectionWindow, error)

	// registry lookups
	GetStudent(id uint) (Student, error)
	SaveStudent(student *Student) error
	GetCamera(id uint) (Camera, error)
	SaveCamera(camera *Camera) error
}

// Sentinel errors surfaced by ledger operations.
var (
	// ErrInvalidTransition is returned when a status update is attempted on a
	// record that already left the pending state.
	ErrInvalidTransition = errors.Newf("attendance status is no longer pending").
				Component("datastore").Category(errors.CategoryState).Build()

	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.Newf("record not found").
			Component("datastore").Category(errors.CategoryNotFound).Build()
)

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided settings.
func New(settings *conf.Settings) (Interface, error) {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}, nil
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}, nil
	default:
		return nil, errors.Newf("no database backend enabled in settings").
			Component("datastore").Category(errors.CategoryConfiguration).Build()
	}
}

// storageError wraps a database failure with component and category metadata.
func storageError(err error, operation string) error {
	return errors.New(fmt.Errorf("%s: %w", operation, err)).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Student{}, &Camera{}, &DetectionWindow{}, &AttendanceRecord{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		slog.Debug("database connection initialized", "type", dbType, "connection", connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}
