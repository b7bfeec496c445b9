package attendance

import "github.com/smart-attendance/attendance-go/internal/datastore"

// Outcome is the policy decision for one ingested recognition event.
// Rejections and duplicates are expected results of policy evaluation, not
// errors; callers can log or ignore them without failure handling.
type Outcome int

const (
	// OutcomeAccepted means a new attendance record was written.
	OutcomeAccepted Outcome = iota
	// OutcomeRejectedDetectionDisabled means the global detection switch is off.
	OutcomeRejectedDetectionDisabled
	// OutcomeRejectedScheduleInactive means no detection window covers the
	// camera at the event time.
	OutcomeRejectedScheduleInactive
	// OutcomeRejectedLowConfidence means the recognition confidence fell
	// below the configured threshold.
	OutcomeRejectedLowConfidence
	// OutcomeDuplicateIgnored means a record of the same type already exists
	// for the student within the dedup window.
	OutcomeDuplicateIgnored
)

// String returns the wire name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejectedDetectionDisabled:
		return "rejected_detection_disabled"
	case OutcomeRejectedScheduleInactive:
		return "rejected_schedule_inactive"
	case OutcomeRejectedLowConfidence:
		return "rejected_low_confidence"
	case OutcomeDuplicateIgnored:
		return "duplicate_ignored"
	default:
		return "unknown"
	}
}

// Accepted reports whether the outcome produced a record.
func (o Outcome) Accepted() bool {
	return o == OutcomeAccepted
}

// Result carries the outcome of one ingest call and, when accepted, the
// record that was written.
type Result struct {
	Outcome Outcome
	Record  *datastore.AttendanceRecord
}
