package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/smart-attendance/attendance-go/internal/datastore"
)

type recordingProvider struct {
	mu       sync.Mutex
	messages []string
	phones   []string
	block    chan struct{} // when set, Send waits until closed
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Send(_ context.Context, phone, message string) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phones = append(p.phones, phone)
	p.messages = append(p.messages, message)
	return nil
}

func (p *recordingProvider) sent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	copy(out, p.messages)
	return out
}

type staticDirectory struct {
	students map[uint]datastore.Student
}

func (d *staticDirectory) GetStudent(id uint) (datastore.Student, error) {
	s, ok := d.students[id]
	if !ok {
		return datastore.Student{}, datastore.ErrNotFound
	}
	return s, nil
}

func testDirectory() *staticDirectory {
	return &staticDirectory{students: map[uint]datastore.Student{
		1: {ID: 1, RollNumber: "R-101", Name: "Aye Chan", ParentName: "Daw Mya", ParentPhone: "+95911111111"},
		2: {ID: 2, RollNumber: "R-102", Name: "Ko Ko", ParentName: "U Hla", ParentPhone: ""},
	}}
}

func TestServiceDeliversIntent(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &recordingProvider{}
	service := NewService(provider, testDirectory())

	detectedAt := time.Date(2026, 8, 24, 8, 15, 0, 0, time.Local)
	service.Publish(context.Background(), NewIntent(1, datastore.AttendanceEntry, detectedAt))
	service.Stop()

	messages := provider.sent()
	require.Len(t, messages, 1)
	assert.Equal(t, "Dear Daw Mya, your child Aye Chan (Roll: R-101) has entered the school at 08:15.", messages[0])
	assert.Equal(t, "+95911111111", provider.phones[0])
}

func TestServiceComposesExitMessage(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &recordingProvider{}
	service := NewService(provider, testDirectory())

	detectedAt := time.Date(2026, 8, 24, 15, 0, 0, 0, time.Local)
	service.Publish(context.Background(), NewIntent(1, datastore.AttendanceExit, detectedAt))
	service.Stop()

	messages := provider.sent()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "has left the school at 15:00")
}

func TestServiceSkipsStudentWithoutPhone(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &recordingProvider{}
	service := NewService(provider, testDirectory())

	service.Publish(context.Background(), NewIntent(2, datastore.AttendanceEntry, time.Now()))
	service.Stop()

	assert.Empty(t, provider.sent())
}

func TestServiceSkipsUnknownStudent(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &recordingProvider{}
	service := NewService(provider, testDirectory())

	service.Publish(context.Background(), NewIntent(42, datastore.AttendanceEntry, time.Now()))
	service.Stop()

	assert.Empty(t, provider.sent())
}

func TestPublishSkipsCancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &recordingProvider{}
	service := NewService(provider, testDirectory())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	service.Publish(ctx, NewIntent(1, datastore.AttendanceEntry, time.Now()))
	service.Stop()

	assert.Empty(t, provider.sent())
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Block the worker so the queue fills up.
	provider := &recordingProvider{block: make(chan struct{})}
	service := NewService(provider, testDirectory())

	// One intent occupies the worker, defaultQueueSize fill the queue, the
	// rest must be dropped without blocking.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < defaultQueueSize+10; i++ {
			service.Publish(context.Background(), NewIntent(1, datastore.AttendanceEntry, time.Now()))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}

	close(provider.block)
	service.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	service := NewService(&recordingProvider{}, testDirectory())
	service.Stop()
	service.Stop()
}
