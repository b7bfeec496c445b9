package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smart-attendance/attendance-go/internal/attendance"
	"github.com/smart-attendance/attendance-go/internal/errors"
)

// initDetectionRoutes registers the detector-facing ingest endpoint.
func (c *Controller) initDetectionRoutes() {
	c.Group.POST("/detections", c.PostDetection)
}

// IngestResponse is the response for an ingested recognition event.
type IngestResponse struct {
	Outcome      string `json:"outcome"`
	AttendanceID uint   `json:"attendance_id,omitempty"`
	Status       string `json:"status,omitempty"`
}

// PostDetection handles POST /api/v1/detections. The detector pushes one
// recognition event per call; the response carries the policy outcome.
// Accepted events return 201, policy rejections and duplicates return 200
// with the outcome so the detector can tell "rejected" from "broken".
func (c *Controller) PostDetection(ctx echo.Context) error {
	var event attendance.RecognitionEvent
	if err := ctx.Bind(&event); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	result, err := c.Processor.Ingest(ctx.Request().Context(), &event)
	if err != nil {
		if errors.HasCategory(err, errors.CategoryValidation) {
			return c.HandleError(ctx, err, "invalid recognition event", http.StatusBadRequest)
		}
		return c.HandleError(ctx, err, "failed to process recognition event", storageStatus(err))
	}

	resp := IngestResponse{Outcome: result.Outcome.String()}
	if result.Outcome.Accepted() {
		resp.AttendanceID = result.Record.ID
		resp.Status = result.Record.Status
		c.invalidateSummaryCache(result.Record.Date)
		return ctx.JSON(http.StatusCreated, resp)
	}
	return ctx.JSON(http.StatusOK, resp)
}

// invalidateSummaryCache drops the cached daily summary for a date after an
// accepted write.
func (c *Controller) invalidateSummaryCache(date string) {
	c.summaryCache.Delete(summaryCacheKey(date))
}
