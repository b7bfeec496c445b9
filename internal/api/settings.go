package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smart-attendance/attendance-go/internal/conf"
)

// initSettingsRoutes registers the attendance policy settings endpoints.
func (c *Controller) initSettingsRoutes() {
	c.Group.GET("/settings/attendance", c.GetAttendanceSettings)
	c.Group.PATCH("/settings/attendance", c.UpdateAttendanceSettings)
}

// AttendanceSettingsResponse mirrors the attendance policy settings on the wire.
type AttendanceSettingsResponse struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	DedupTimeoutMinutes int     `json:"dedup_timeout_minutes"`
	AutoConfirm         bool    `json:"auto_confirm"`
	DetectionEnabled    bool    `json:"detection_enabled"`
	SMSEnabled          bool    `json:"sms_enabled"`
}

// AttendanceSettingsRequest is a partial update; absent fields are left as is.
type AttendanceSettingsRequest struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
	DedupTimeoutMinutes *int     `json:"dedup_timeout_minutes"`
	AutoConfirm         *bool    `json:"auto_confirm"`
	DetectionEnabled    *bool    `json:"detection_enabled"`
	SMSEnabled          *bool    `json:"sms_enabled"`
}

func settingsResponse(s conf.AttendanceSettings) AttendanceSettingsResponse {
	return AttendanceSettingsResponse{
		ConfidenceThreshold: s.ConfidenceThreshold,
		DedupTimeoutMinutes: s.DedupTimeoutMinutes,
		AutoConfirm:         s.AutoConfirm,
		DetectionEnabled:    s.DetectionEnabled,
		SMSEnabled:          s.SMSEnabled,
	}
}

// GetAttendanceSettings handles GET /api/v1/settings/attendance.
func (c *Controller) GetAttendanceSettings(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, settingsResponse(conf.Attendance()))
}

// UpdateAttendanceSettings handles PATCH /api/v1/settings/attendance. Updates
// apply to events ingested after this call; in-flight events keep the policy
// snapshot they started with.
func (c *Controller) UpdateAttendanceSettings(ctx echo.Context) error {
	var req AttendanceSettingsRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	if req.ConfidenceThreshold != nil {
		if *req.ConfidenceThreshold <= 0 || *req.ConfidenceThreshold > 1 {
			return c.HandleError(ctx,
				fmt.Errorf("confidence_threshold must be in (0, 1], got %v", *req.ConfidenceThreshold),
				"invalid settings", http.StatusBadRequest)
		}
	}
	if req.DedupTimeoutMinutes != nil && *req.DedupTimeoutMinutes < 1 {
		return c.HandleError(ctx,
			fmt.Errorf("dedup_timeout_minutes must be at least 1, got %d", *req.DedupTimeoutMinutes),
			"invalid settings", http.StatusBadRequest)
	}

	conf.UpdateAttendance(func(s *conf.AttendanceSettings) {
		if req.ConfidenceThreshold != nil {
			s.ConfidenceThreshold = *req.ConfidenceThreshold
		}
		if req.DedupTimeoutMinutes != nil {
			s.DedupTimeoutMinutes = *req.DedupTimeoutMinutes
		}
		if req.AutoConfirm != nil {
			s.AutoConfirm = *req.AutoConfirm
		}
		if req.DetectionEnabled != nil {
			s.DetectionEnabled = *req.DetectionEnabled
		}
		if req.SMSEnabled != nil {
			s.SMSEnabled = *req.SMSEnabled
		}
	})

	if !c.DisableSaveSettings {
		if err := conf.SaveSettings(); err != nil {
			c.apiLogger.Error("failed to persist settings, update applied in memory only", "error", err)
		}
	}

	return ctx.JSON(http.StatusOK, settingsResponse(conf.Attendance()))
}
