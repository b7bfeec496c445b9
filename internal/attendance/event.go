// event.go: the ingress contract with the external face-recognition detector.
package attendance

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/smart-attendance/attendance-go/internal/errors"
)

// RecognitionEvent is a single recognition result pushed by the detector.
// DetectedAt is optional and defaults to the ingest time.
type RecognitionEvent struct {
	StudentID       uint       `json:"student_id" validate:"required,gt=0"`
	CameraID        uint       `json:"camera_id" validate:"required,gt=0"`
	AttendanceType  string     `json:"attendance_type" validate:"required,oneof=entry exit"`
	ConfidenceScore float64    `json:"confidence_score" validate:"gte=0,lte=1"`
	ImagePath       string     `json:"image_path"`
	DetectedAt      *time.Time `json:"detected_at,omitempty"`
}

// newValidator builds the validator instance shared by the processor.
func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validationError wraps a payload problem so callers can map it to a 400
// without retrying.
func validationError(err error) error {
	return errors.New(err).
		Component("attendance").
		Category(errors.CategoryValidation).
		Build()
}

// checkEvent validates the event payload shape. Referential checks against
// the student and camera registry happen in the processor, which owns the
// storage handle.
func checkEvent(v *validator.Validate, event *RecognitionEvent) error {
	if err := v.Struct(event); err != nil {
		return validationError(fmt.Errorf("malformed recognition event: %w", err))
	}
	return nil
}
