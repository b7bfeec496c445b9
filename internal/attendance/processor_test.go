package attendance

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-attendance/attendance-go/internal/conf"
	"github.com/smart-attendance/attendance-go/internal/datastore"
	"github.com/smart-attendance/attendance-go/internal/errors"
	"github.com/smart-attendance/attendance-go/internal/notification"
)

// fakeLedger is an in-memory Ledger. MostRecentAttendance scans saved
// records, so dedup behaves like the real store.
type fakeLedger struct {
	mu       sync.Mutex
	records  []datastore.AttendanceRecord
	students map[uint]datastore.Student
	cameras  map[uint]datastore.Camera
	saveErr  error
	queryErr error
	nextID   uint
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		students: map[uint]datastore.Student{
			1: {ID: 1, RollNumber: "R-101", Name: "Aye Chan", ParentName: "Daw Mya", ParentPhone: "+95911111111"},
		},
		cameras: map[uint]datastore.Camera{
			1: {ID: 1, Name: "main-gate", IsActive: true},
		},
	}
}

func (f *fakeLedger) SaveAttendance(record *datastore.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.nextID++
	record.ID = f.nextID
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeLedger) MostRecentAttendance(studentID uint, at time.Time, within time.Duration) (*datastore.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var latest *datastore.AttendanceRecord
	for i := range f.records {
		r := &f.records[i]
		if r.StudentID != studentID || r.DetectedAt.After(at) || r.DetectedAt.Before(at.Add(-within)) {
			continue
		}
		if latest == nil || r.DetectedAt.After(latest.DetectedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeLedger) GetStudent(id uint) (datastore.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return datastore.Student{}, datastore.ErrNotFound
	}
	return s, nil
}

func (f *fakeLedger) GetCamera(id uint) (datastore.Camera, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cameras[id]
	if !ok {
		return datastore.Camera{}, datastore.ErrNotFound
	}
	return c, nil
}

func (f *fakeLedger) saved() []datastore.AttendanceRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]datastore.AttendanceRecord, len(f.records))
	copy(out, f.records)
	return out
}

type fakeGate struct{ active bool }

func (g *fakeGate) IsActive(cameraID uint, at time.Time) bool { return g.active }

type fakeNotifier struct {
	mu      sync.Mutex
	intents []notification.Intent
}

func (n *fakeNotifier) Publish(_ context.Context, intent notification.Intent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = append(n.intents, intent)
}

func (n *fakeNotifier) published() []notification.Intent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.Intent, len(n.intents))
	copy(out, n.intents)
	return out
}

func testSettings() conf.AttendanceSettings {
	return conf.AttendanceSettings{
		ConfidenceThreshold: 0.6,
		DedupTimeoutMinutes: 30,
		AutoConfirm:         true,
		DetectionEnabled:    true,
		SMSEnabled:          true,
	}
}

func newTestProcessor(ledger *fakeLedger, settings conf.AttendanceSettings) (*Processor, *fakeNotifier) {
	notifier := &fakeNotifier{}
	p := New(func() conf.AttendanceSettings { return settings }, ledger, &fakeGate{active: true})
	p.Notifier = notifier
	return p, notifier
}

func entryEvent(confidence float64) *RecognitionEvent {
	return &RecognitionEvent{
		StudentID:       1,
		CameraID:        1,
		AttendanceType:  datastore.AttendanceEntry,
		ConfidenceScore: confidence,
	}
}

func TestIngestAcceptsAndConfirms(t *testing.T) {
	ledger := newFakeLedger()
	p, notifier := newTestProcessor(ledger, testSettings())

	result, err := p.Ingest(context.Background(), entryEvent(0.9))
	require.NoError(t, err)

	assert.Equal(t, OutcomeAccepted, result.Outcome)
	require.NotNil(t, result.Record)
	assert.Equal(t, datastore.StatusConfirmed, result.Record.Status)
	assert.Equal(t, datastore.DateOf(result.Record.DetectedAt), result.Record.Date)

	require.Len(t, ledger.saved(), 1)
	require.Len(t, notifier.published(), 1)
	assert.Equal(t, uint(1), notifier.published()[0].StudentID)
}

func TestIngestPendingWhenAutoConfirmOff(t *testing.T) {
	settings := testSettings()
	settings.AutoConfirm = false
	ledger := newFakeLedger()
	p, _ := newTestProcessor(ledger, settings)

	result, err := p.Ingest(context.Background(), entryEvent(0.9))
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusPending, result.Record.Status)
}

func TestIngestIgnoresDuplicateSameType(t *testing.T) {
	ledger := newFakeLedger()
	p, notifier := newTestProcessor(ledger, testSettings())

	first, err := p.Ingest(context.Background(), entryEvent(0.9))
	require.NoError(t, err)
	require.Equal(t, OutcomeAccepted, first.Outcome)

	second, err := p.Ingest(context.Background(), entryEvent(0.95))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicateIgnored, second.Outcome)
	assert.Nil(t, second.Record)

	// Only the first event wrote a record and notified.
	assert.Len(t, ledger.saved(), 1)
	assert.Len(t, notifier.published(), 1)
}

func TestIngestAcceptsExitAfterEntry(t *testing.T) {
	ledger := newFakeLedger()
	p, _ := newTestProcessor(ledger, testSettings())

	_, err := p.Ingest(context.Background(), entryEvent(0.9))
	require.NoError(t, err)

	exit := entryEvent(0.9)
	exit.AttendanceType = datastore.AttendanceExit
	result, err := p.Ingest(context.Background(), exit)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAccepted, result.Outcome)
	assert.Len(t, ledger.saved(), 2)
}

func TestIngestAcceptsSameTypeAfterDedupWindow(t *testing.T) {
	ledger := newFakeLedger()
	p, _ := newTestProcessor(ledger, testSettings())

	past := time.Now().Add(-45 * time.Minute)
	first := entryEvent(0.9)
	first.DetectedAt = &past
	_, err := p.Ingest(context.Background(), first)
	require.NoError(t, err)

	result, err := p.Ingest(context.Background(), entryEvent(0.9))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, result.Outcome)
}

func TestIngestRejectsLowConfidence(t *testing.T) {
	ledger := newFakeLedger()
	p, notifier := newTestProcessor(ledger, testSettings())

	result, err := p.Ingest(context.Background(), entryEvent(0.59))
	require.NoError(t, err)

	assert.Equal(t, OutcomeRejectedLowConfidence, result.Outcome)
	assert.Empty(t, ledger.saved())
	assert.Empty(t, notifier.published())
}

func TestIngestAcceptsConfidenceAtThreshold(t *testing.T) {
	ledger := newFakeLedger()
	p, _ := newTestProcessor(ledger, testSettings())

	result, err := p.Ingest(context.Background(), entryEvent(0.6))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, result.Outcome)
}

func TestIngestRejectsOutsideSchedule(t *testing.T) {
	ledger := newFakeLedger()
	p, _ := newTestProcessor(ledger, testSettings())
	p.Gate = &fakeGate{active: false}

	result, err := p.Ingest(context.Background(), entryEvent(0.9))
	require.NoError(t, err)

	assert.Equal(t, OutcomeRejectedScheduleInactive, result.Outcome)
	assert.Empty(t, ledger.saved())
}

func TestIngestRejectsWhenDetectionDisabled(t *testing.T) {
	settings := testSettings()
	settings.DetectionEnabled = false
	ledger := newFakeLedger()
	p, _ := newTestProcessor(ledger, settings)

	result, err := p.Ingest(context.Background(), entryEvent(0.9))
	require.NoError(t, err)

	assert.Equal(t, OutcomeRejectedDetectionDisabled, result.Outcome)
	assert.Empty(t, ledger.saved())
}

func TestIngestSkipsNotificationWhenSMSDisabled(t *testing.T) {
	settings := testSettings()
	settings.SMSEnabled = false
	ledger := newFakeLedger()
	p, notifier := newTestProcessor(ledger, settings)

	result, err := p.Ingest(context.Background(), entryEvent(0.9))
	require.NoError(t, err)

	assert.Equal(t, OutcomeAccepted, result.Outcome)
	assert.Empty(t, notifier.published())
}

func TestIngestRejectsMalformedEvent(t *testing.T) {
	ledger := newFakeLedger()
	p, _ := newTestProcessor(ledger, testSettings())

	event := entryEvent(0.9)
	event.AttendanceType = "loitering"
	_, err := p.Ingest(context.Background(), event)

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Empty(t, ledger.saved())
}

func TestIngestRejectsUnknownStudent(t *testing.T) {
	ledger := newFakeLedger()
	p, _ := newTestProcessor(ledger, testSettings())

	event := entryEvent(0.9)
	event.StudentID = 42
	_, err := p.Ingest(context.Background(), event)

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestIngestRejectsUnknownCamera(t *testing.T) {
	ledger := newFakeLedger()
	p, _ := newTestProcessor(ledger, testSettings())

	event := entryEvent(0.9)
	event.CameraID = 42
	_, err := p.Ingest(context.Background(), event)

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestIngestSurfacesStorageError(t *testing.T) {
	ledger := newFakeLedger()
	ledger.saveErr = fmt.Errorf("disk full")
	p, notifier := newTestProcessor(ledger, testSettings())

	_, err := p.Ingest(context.Background(), entryEvent(0.9))
	require.Error(t, err)
	assert.Empty(t, notifier.published())
}

func TestIngestWriteSurvivesCancelledContext(t *testing.T) {
	ledger := newFakeLedger()
	p, _ := newTestProcessor(ledger, testSettings())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Ingest(ctx, entryEvent(0.9))
	require.NoError(t, err)

	// The record stays written even though the context was already cancelled.
	assert.Equal(t, OutcomeAccepted, result.Outcome)
	assert.Len(t, ledger.saved(), 1)
}

func TestIngestSerializesPerStudent(t *testing.T) {
	ledger := newFakeLedger()
	p, _ := newTestProcessor(ledger, testSettings())

	const attempts = 16
	var wg sync.WaitGroup
	outcomes := make([]Outcome, attempts)
	for i := range outcomes {
		outcomes[i] = Outcome(-1)
	}
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := p.Ingest(context.Background(), entryEvent(0.9))
			if assert.NoError(t, err) {
				outcomes[i] = result.Outcome
			}
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, o := range outcomes {
		if o == OutcomeAccepted {
			accepted++
		}
	}
	// Exactly one of the racing same-type events may win.
	assert.Equal(t, 1, accepted)
	assert.Len(t, ledger.saved(), 1)
}
