package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smart-attendance/attendance-go/internal/datastore"
	"github.com/smart-attendance/attendance-go/internal/errors"
)

// initScheduleRoutes registers detection window administration endpoints.
func (c *Controller) initScheduleRoutes() {
	c.Group.GET("/schedules", c.ListDetectionWindows)
	c.Group.POST("/schedules", c.CreateDetectionWindow)
	c.Group.GET("/schedules/:id", c.GetDetectionWindow)
	c.Group.PUT("/schedules/:id", c.PutDetectionWindow)
	c.Group.DELETE("/schedules/:id", c.DeleteDetectionWindow)

	c.Group.GET("/cameras/:id/schedules", c.ListCameraDetectionWindows)
	c.Group.DELETE("/cameras/:id/schedules", c.DeleteCameraDetectionWindows)
}

// WindowRequest is the body for creating or replacing a detection window.
type WindowRequest struct {
	CameraID  uint   `json:"camera_id"`
	DayOfWeek string `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  *bool  `json:"is_active"`
}

var weekdayNames = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// toWindow validates the request and converts it to a storage row.
func (r *WindowRequest) toWindow() (datastore.DetectionWindow, error) {
	if r.CameraID == 0 {
		return datastore.DetectionWindow{}, fmt.Errorf("camera_id is required")
	}
	if !weekdayNames[r.DayOfWeek] {
		return datastore.DetectionWindow{}, fmt.Errorf("day_of_week must be a lowercase day name, got %q", r.DayOfWeek)
	}
	if err := checkClock(r.StartTime); err != nil {
		return datastore.DetectionWindow{}, fmt.Errorf("start_time: %w", err)
	}
	if err := checkClock(r.EndTime); err != nil {
		return datastore.DetectionWindow{}, fmt.Errorf("end_time: %w", err)
	}
	if r.StartTime > r.EndTime {
		return datastore.DetectionWindow{}, fmt.Errorf("start_time %q is after end_time %q", r.StartTime, r.EndTime)
	}

	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return datastore.DetectionWindow{
		CameraID:  r.CameraID,
		DayOfWeek: r.DayOfWeek,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		IsActive:  active,
	}, nil
}

// checkClock validates an "HH:MM:SS" wall clock string.
func checkClock(clock string) error {
	if _, err := time.Parse("15:04:05", clock); err != nil {
		return fmt.Errorf("must be HH:MM:SS, got %q", clock)
	}
	return nil
}

// ListDetectionWindows handles GET /api/v1/schedules.
func (c *Controller) ListDetectionWindows(ctx echo.Context) error {
	windows, err := c.DS.AllDetectionWindows()
	if err != nil {
		return c.HandleError(ctx, err, "failed to load detection windows", storageStatus(err))
	}
	return ctx.JSON(http.StatusOK, windows)
}

// CreateDetectionWindow handles POST /api/v1/schedules. The referenced camera
// must exist; window changes take effect on the next gate evaluation with no
// restart needed.
func (c *Controller) CreateDetectionWindow(ctx echo.Context) error {
	var req WindowRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	window, err := req.toWindow()
	if err != nil {
		return c.HandleError(ctx, err, "invalid detection window", http.StatusBadRequest)
	}

	if _, err := c.DS.GetCamera(window.CameraID); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return c.HandleError(ctx, err, "camera not found", http.StatusBadRequest)
		}
		return c.HandleError(ctx, err, "failed to load camera", storageStatus(err))
	}

	if err := c.DS.SaveDetectionWindow(&window); err != nil {
		return c.HandleError(ctx, err, "failed to save detection window", storageStatus(err))
	}
	return ctx.JSON(http.StatusCreated, window)
}

// GetDetectionWindow handles GET /api/v1/schedules/:id.
func (c *Controller) GetDetectionWindow(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid window id", http.StatusBadRequest)
	}

	window, err := c.DS.GetDetectionWindow(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return c.HandleError(ctx, err, "detection window not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "failed to load detection window", storageStatus(err))
	}
	return ctx.JSON(http.StatusOK, window)
}

// PutDetectionWindow handles PUT /api/v1/schedules/:id, replacing all fields.
func (c *Controller) PutDetectionWindow(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid window id", http.StatusBadRequest)
	}

	var req WindowRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	window, err := req.toWindow()
	if err != nil {
		return c.HandleError(ctx, err, "invalid detection window", http.StatusBadRequest)
	}
	window.ID = id

	if err := c.DS.UpdateDetectionWindow(&window); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return c.HandleError(ctx, err, "detection window not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "failed to update detection window", storageStatus(err))
	}
	return ctx.JSON(http.StatusOK, window)
}

// DeleteDetectionWindow handles DELETE /api/v1/schedules/:id.
func (c *Controller) DeleteDetectionWindow(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid window id", http.StatusBadRequest)
	}

	if err := c.DS.DeleteDetectionWindow(id); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return c.HandleError(ctx, err, "detection window not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "failed to delete detection window", storageStatus(err))
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ListCameraDetectionWindows handles GET /api/v1/cameras/:id/schedules?day=.
func (c *Controller) ListCameraDetectionWindows(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid camera id", http.StatusBadRequest)
	}

	day := ctx.QueryParam("day")
	if day == "" {
		day = datastore.WeekdayName(time.Now())
	}
	if !weekdayNames[day] {
		return c.HandleError(ctx, fmt.Errorf("invalid day %q", day), "invalid day", http.StatusBadRequest)
	}

	windows, err := c.DS.DetectionWindowsForCamera(id, day)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load detection windows", storageStatus(err))
	}
	return ctx.JSON(http.StatusOK, windows)
}

// DeleteCameraDetectionWindows handles DELETE /api/v1/cameras/:id/schedules.
func (c *Controller) DeleteCameraDetectionWindows(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid camera id", http.StatusBadRequest)
	}

	if err := c.DS.DeleteCameraDetectionWindows(id); err != nil {
		return c.HandleError(ctx, err, "failed to delete camera detection windows", storageStatus(err))
	}
	return ctx.NoContent(http.StatusNoContent)
}
