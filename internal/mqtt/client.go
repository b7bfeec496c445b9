// Package mqtt publishes accepted attendance records to an MQTT topic so
// live dashboards can follow detections without polling the API.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/smart-attendance/attendance-go/internal/conf"
	"github.com/smart-attendance/attendance-go/internal/datastore"
	"github.com/smart-attendance/attendance-go/internal/logging"
)

// LiveUpdate is the payload published for each accepted record.
type LiveUpdate struct {
	AttendanceID    uint      `json:"attendance_id"`
	StudentID       uint      `json:"student_id"`
	StudentName     string    `json:"student_name"`
	RollNumber      string    `json:"roll_number"`
	AttendanceType  string    `json:"attendance_type"`
	ConfidenceScore float64   `json:"confidence_score"`
	Timestamp       time.Time `json:"timestamp"`
}

// Publisher owns the broker connection. Publishing is best effort: broker
// problems are logged and never surfaced to the ingest path.
type Publisher struct {
	settings conf.MQTTSettings
	logger   *slog.Logger

	mu     sync.Mutex
	client paho.Client
}

// NewPublisher creates a publisher for the given MQTT settings.
func NewPublisher(settings conf.MQTTSettings, clientID string) *Publisher {
	opts := paho.NewClientOptions()
	opts.AddBroker(settings.Broker)
	opts.SetClientID(clientID)
	opts.SetUsername(settings.Username)
	opts.SetPassword(settings.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)

	return &Publisher{
		settings: settings,
		logger:   logging.ForService("mqtt"),
		client:   paho.NewClient(opts),
	}
}

// Connect establishes the broker connection.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	token := p.client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return fmt.Errorf("mqtt connection timeout to %s", p.settings.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection error: %w", err)
	}
	return nil
}

// Disconnect closes the broker connection.
func (p *Publisher) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client.Disconnect(250)
}

// PublishAccepted sends a live update for an accepted attendance record.
func (p *Publisher) PublishAccepted(record *datastore.AttendanceRecord, student *datastore.Student) {
	update := LiveUpdate{
		AttendanceID:    record.ID,
		StudentID:       record.StudentID,
		StudentName:     student.Name,
		RollNumber:      student.RollNumber,
		AttendanceType:  record.AttendanceType,
		ConfidenceScore: record.ConfidenceScore,
		Timestamp:       record.DetectedAt,
	}

	payload, err := json.Marshal(update)
	if err != nil {
		p.logger.Error("failed to marshal live update", "error", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnected() {
		p.logger.Warn("mqtt broker not connected, dropping live update",
			"attendance_id", record.ID)
		return
	}

	token := p.client.Publish(p.settings.Topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		p.logger.Warn("mqtt publish timeout", "topic", p.settings.Topic)
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Error("mqtt publish failed", "topic", p.settings.Topic, "error", err)
	}
}
