// Package attendance implements the event-processing core: it receives
// candidate recognition events from the detector, applies schedule,
// confidence and deduplication policy, writes accepted records to the
// ledger and emits parent-notification intents.
package attendance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/smart-attendance/attendance-go/internal/conf"
	"github.com/smart-attendance/attendance-go/internal/datastore"
	"github.com/smart-attendance/attendance-go/internal/errors"
	"github.com/smart-attendance/attendance-go/internal/logging"
	"github.com/smart-attendance/attendance-go/internal/notification"
)

// Ledger is the narrow storage view the processor needs.
type Ledger interface {
	SaveAttendance(record *datastore.AttendanceRecord) error
	MostRecentAttendance(studentID uint, at time.Time, within time.Duration) (*datastore.AttendanceRecord, error)
	GetStudent(id uint) (datastore.Student, error)
	GetCamera(id uint) (datastore.Camera, error)
}

// Gate decides whether detection is active for a camera at a point in time.
type Gate interface {
	IsActive(cameraID uint, at time.Time) bool
}

// Notifier receives notification intents for accepted records. Publishing
// must never block the ingest path.
type Notifier interface {
	Publish(ctx context.Context, intent notification.Intent)
}

// LiveFeed receives accepted records for live dashboards, best effort.
type LiveFeed interface {
	PublishAccepted(record *datastore.AttendanceRecord, student *datastore.Student)
}

// MetricsRecorder counts ingest outcomes.
type MetricsRecorder interface {
	IngestOutcome(outcome string)
}

// Processor is the attendance state-transition core. Safe for concurrent
// use; ingest calls for distinct students proceed in parallel while calls
// for the same student are serialized so the dedup check and the insert are
// atomic with respect to each other.
type Processor struct {
	Settings func() conf.AttendanceSettings // re-read on every ingest, never cached
	Ds       Ledger
	Gate     Gate
	Notifier Notifier
	Live     LiveFeed
	Metrics  MetricsRecorder

	validate *validator.Validate
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[uint]*sync.Mutex // per-student ingest locks
}

// New creates a processor wired to the given collaborators. Notifier, Live
// and Metrics may be nil.
func New(settings func() conf.AttendanceSettings, ds Ledger, gate Gate) *Processor {
	if settings == nil {
		settings = conf.Attendance
	}
	return &Processor{
		Settings: settings,
		Ds:       ds,
		Gate:     gate,
		validate: newValidator(),
		logger:   logging.ForService("attendance"),
		locks:    make(map[uint]*sync.Mutex),
	}
}

// studentLock returns the mutex serializing ingest calls for one student.
func (p *Processor) studentLock(studentID uint) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[studentID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[studentID] = lock
	}
	return lock
}

// Ingest processes one candidate recognition event and returns the policy
// outcome. Validation failures and storage failures are returned as errors;
// policy rejections are ordinary Result values. The attendance write is
// never rolled back once made, even if ctx is cancelled before the
// notification intent is emitted.
func (p *Processor) Ingest(ctx context.Context, event *RecognitionEvent) (Result, error) {
	if err := checkEvent(p.validate, event); err != nil {
		return Result{}, err
	}

	at := time.Now()
	if event.DetectedAt != nil {
		at = *event.DetectedAt
	}

	student, camera, err := p.resolveRegistry(event)
	if err != nil {
		return Result{}, err
	}

	// Fresh policy snapshot for this event; updates through the API take
	// effect on the next call.
	settings := p.Settings()

	if !settings.DetectionEnabled {
		return p.finish(Result{Outcome: OutcomeRejectedDetectionDisabled}, event, at)
	}

	if !p.Gate.IsActive(event.CameraID, at) {
		return p.finish(Result{Outcome: OutcomeRejectedScheduleInactive}, event, at)
	}

	if event.ConfidenceScore < settings.ConfidenceThreshold {
		return p.finish(Result{Outcome: OutcomeRejectedLowConfidence}, event, at)
	}

	// The dedup lookup and the insert must be atomic per student, otherwise
	// two near-simultaneous events could both pass the lookup and
	// double-insert.
	lock := p.studentLock(event.StudentID)
	lock.Lock()
	defer lock.Unlock()

	within := time.Duration(settings.DedupTimeoutMinutes) * time.Minute
	recent, err := p.Ds.MostRecentAttendance(event.StudentID, at, within)
	if err != nil {
		return Result{}, err
	}
	if recent != nil && recent.AttendanceType == event.AttendanceType {
		// Same type within the window is a duplicate. A different type is
		// legitimate: entry followed shortly by exit records both.
		return p.finish(Result{Outcome: OutcomeDuplicateIgnored}, event, at)
	}

	status := datastore.StatusPending
	if settings.AutoConfirm {
		status = datastore.StatusConfirmed
	}

	record := &datastore.AttendanceRecord{
		StudentID:       event.StudentID,
		CameraID:        camera.ID,
		AttendanceType:  event.AttendanceType,
		DetectedAt:      at,
		Date:            datastore.DateOf(at),
		ConfidenceScore: event.ConfidenceScore,
		ImagePath:       event.ImagePath,
		Status:          status,
	}
	if err := p.Ds.SaveAttendance(record); err != nil {
		return Result{}, err
	}

	p.logger.Info("attendance recorded",
		"student_id", record.StudentID,
		"camera_id", record.CameraID,
		"type", record.AttendanceType,
		"confidence", record.ConfidenceScore,
		"status", record.Status)

	// Notification and live updates are fire and forget; failures here never
	// touch the ledger write.
	if settings.SMSEnabled && p.Notifier != nil {
		p.Notifier.Publish(ctx, notification.NewIntent(record.StudentID, record.AttendanceType, record.DetectedAt))
	}
	if p.Live != nil {
		p.Live.PublishAccepted(record, &student)
	}

	return p.finish(Result{Outcome: OutcomeAccepted, Record: record}, event, at)
}

// resolveRegistry rejects events that reference unknown or inactive students
// or cameras before any policy evaluation.
func (p *Processor) resolveRegistry(event *RecognitionEvent) (datastore.Student, datastore.Camera, error) {
	student, err := p.Ds.GetStudent(event.StudentID)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return datastore.Student{}, datastore.Camera{}, errors.Newf("unknown student id %d", event.StudentID).
				Component("attendance").Category(errors.CategoryValidation).Build()
		}
		return datastore.Student{}, datastore.Camera{}, err
	}

	camera, err := p.Ds.GetCamera(event.CameraID)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return datastore.Student{}, datastore.Camera{}, errors.Newf("unknown camera id %d", event.CameraID).
				Component("attendance").Category(errors.CategoryValidation).Build()
		}
		return datastore.Student{}, datastore.Camera{}, err
	}

	return student, camera, nil
}

// finish records metrics and debug logging for the outcome.
func (p *Processor) finish(result Result, event *RecognitionEvent, at time.Time) (Result, error) {
	if p.Metrics != nil {
		p.Metrics.IngestOutcome(result.Outcome.String())
	}
	if !result.Outcome.Accepted() {
		p.logger.Debug("recognition event not recorded",
			"outcome", result.Outcome.String(),
			"student_id", event.StudentID,
			"camera_id", event.CameraID,
			"type", event.AttendanceType,
			"at", at)
	}
	return result, nil
}
