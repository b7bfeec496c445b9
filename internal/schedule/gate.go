// Package schedule decides whether face detection is honored for a camera at
// a given wall-clock time, based on the weekly detection windows configured
// by administrators.
package schedule

import (
	"log/slog"
	"time"

	"github.com/smart-attendance/attendance-go/internal/datastore"
	"github.com/smart-attendance/attendance-go/internal/logging"
)

// WindowSource is the narrow storage view the gate needs.
type WindowSource interface {
	DetectionWindowsForCamera(cameraID uint, dayOfWeek string) ([]datastore.DetectionWindow, error)
}

// Gate evaluates detection windows. It is read-only and safe for concurrent
// use.
type Gate struct {
	source WindowSource
	logger *slog.Logger
}

// NewGate creates a schedule gate backed by the given window source.
func NewGate(source WindowSource) *Gate {
	return &Gate{
		source: source,
		logger: logging.ForService("schedule"),
	}
}

// IsActive reports whether detection is permitted for the camera at the
// given time. A camera with no configured windows is inactive, and a storage
// failure is treated as inactive as well: the gate fails closed rather than
// letting detections through on an unreadable schedule.
func (g *Gate) IsActive(cameraID uint, at time.Time) bool {
	day := datastore.WeekdayName(at)
	clock := datastore.ClockOf(at)

	windows, err := g.source.DetectionWindowsForCamera(cameraID, day)
	if err != nil {
		g.logger.Error("failed to load detection windows, treating camera as inactive",
			"camera_id", cameraID, "day", day, "error", err)
		return false
	}

	for i := range windows {
		if windowMatches(&windows[i], clock) {
			return true
		}
	}
	return false
}

// windowMatches reports whether the clock string falls inside the window.
// Bounds are inclusive on both ends. Overlapping windows need no tie-break:
// any single match is sufficient.
func windowMatches(w *datastore.DetectionWindow, clock string) bool {
	if !w.IsActive {
		return false
	}
	// "HH:MM:SS" strings compare correctly lexicographically.
	return w.StartTime <= clock && clock <= w.EndTime
}
