// Package notification turns accepted attendance records into parent SMS
// messages. Delivery is best effort and fully decoupled from the ledger:
// a failed or cancelled notification never affects the attendance write.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smart-attendance/attendance-go/internal/datastore"
	"github.com/smart-attendance/attendance-go/internal/logging"
)

// Intent is the notify request emitted by the attendance processor for an
// accepted record.
type Intent struct {
	ID             string    `json:"id"`
	StudentID      uint      `json:"student_id"`
	AttendanceType string    `json:"attendance_type"`
	DetectedAt     time.Time `json:"detected_at"`
}

// NewIntent creates an intent with a fresh unique ID.
func NewIntent(studentID uint, attendanceType string, detectedAt time.Time) Intent {
	return Intent{
		ID:             uuid.New().String(),
		StudentID:      studentID,
		AttendanceType: attendanceType,
		DetectedAt:     detectedAt,
	}
}

// StudentDirectory resolves the student a message is about.
type StudentDirectory interface {
	GetStudent(id uint) (datastore.Student, error)
}

// defaultQueueSize bounds the intent queue; beyond it intents are dropped
// with a warning rather than blocking the ingest path.
const defaultQueueSize = 64

// Service owns the notification worker. Create with NewService, hand it to
// the processor as its Notifier, and Stop it on shutdown.
type Service struct {
	provider Provider
	students StudentDirectory
	logger   *slog.Logger

	queue    chan Intent
	stopOnce sync.Once
	done     chan struct{}
}

// NewService creates a notification service and starts its worker goroutine.
func NewService(provider Provider, students StudentDirectory) *Service {
	s := &Service{
		provider: provider,
		students: students,
		logger:   logging.ForService("notification"),
		queue:    make(chan Intent, defaultQueueSize),
		done:     make(chan struct{}),
	}
	go s.worker()
	return s
}

// Publish enqueues an intent without blocking. When the queue is full the
// intent is dropped and logged; attendance records are the source of truth
// and the message is not worth stalling ingestion for. A cancelled ctx only
// skips the enqueue, it cannot undo the attendance write that preceded it.
func (s *Service) Publish(ctx context.Context, intent Intent) {
	if ctx.Err() != nil {
		s.logger.Debug("notification skipped, context cancelled", "intent_id", intent.ID)
		return
	}
	select {
	case s.queue <- intent:
	default:
		s.logger.Warn("notification queue full, dropping intent",
			"intent_id", intent.ID, "student_id", intent.StudentID)
	}
}

// Stop shuts down the worker after draining queued intents.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.queue)
		<-s.done
	})
}

func (s *Service) worker() {
	defer close(s.done)
	for intent := range s.queue {
		s.deliver(intent)
	}
}

// deliver resolves the student and hands the composed message to the
// provider. Errors are logged and swallowed.
func (s *Service) deliver(intent Intent) {
	student, err := s.students.GetStudent(intent.StudentID)
	if err != nil {
		s.logger.Error("failed to resolve student for notification",
			"intent_id", intent.ID, "student_id", intent.StudentID, "error", err)
		return
	}
	if student.ParentPhone == "" {
		s.logger.Debug("student has no parent phone, skipping notification",
			"intent_id", intent.ID, "student_id", intent.StudentID)
		return
	}

	message := composeMessage(&student, intent.AttendanceType, intent.DetectedAt)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.provider.Send(ctx, student.ParentPhone, message); err != nil {
		s.logger.Error("failed to send notification",
			"intent_id", intent.ID, "student_id", intent.StudentID,
			"provider", s.provider.Name(), "error", err)
		return
	}

	s.logger.Info("notification sent",
		"intent_id", intent.ID, "student_id", intent.StudentID,
		"type", intent.AttendanceType, "provider", s.provider.Name())
}

// composeMessage renders the parent-facing SMS text.
func composeMessage(student *datastore.Student, attendanceType string, detectedAt time.Time) string {
	action := "entered"
	if attendanceType == datastore.AttendanceExit {
		action = "left"
	}
	return fmt.Sprintf("Dear %s, your child %s (Roll: %s) has %s the school at %s.",
		student.ParentName, student.Name, student.RollNumber, action, detectedAt.Format("15:04"))
}
