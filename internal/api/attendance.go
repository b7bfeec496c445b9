package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smart-attendance/attendance-go/internal/datastore"
	"github.com/smart-attendance/attendance-go/internal/errors"
)

// defaultListLimit caps listing endpoints that do not specify a limit.
const defaultListLimit = 100

// initAttendanceRoutes registers attendance record and reporting endpoints.
func (c *Controller) initAttendanceRoutes() {
	c.Group.GET("/attendance/recent", c.GetRecentAttendance)
	c.Group.GET("/attendance/summary", c.GetDailySummary)
	c.Group.GET("/attendance/stats", c.GetAttendanceStats)
	c.Group.GET("/attendance/range", c.GetAttendanceByDateRange)
	c.Group.GET("/attendance/:id", c.GetAttendanceRecord)
	c.Group.PATCH("/attendance/:id/status", c.UpdateAttendanceStatus)

	c.Group.GET("/students/:id/presence", c.GetStudentPresence)
	c.Group.GET("/students/:id/attendance", c.GetStudentAttendance)
}

// GetAttendanceRecord handles GET /api/v1/attendance/:id.
func (c *Controller) GetAttendanceRecord(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid record id", http.StatusBadRequest)
	}

	record, err := c.DS.GetAttendance(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return c.HandleError(ctx, err, "attendance record not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "failed to load attendance record", storageStatus(err))
	}
	return ctx.JSON(http.StatusOK, record)
}

// GetRecentAttendance handles GET /api/v1/attendance/recent?limit=N.
func (c *Controller) GetRecentAttendance(ctx echo.Context) error {
	limit := queryLimit(ctx, defaultListLimit)

	records, err := c.DS.RecentAttendance(limit)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load recent attendance", storageStatus(err))
	}
	return ctx.JSON(http.StatusOK, records)
}

// GetDailySummary handles GET /api/v1/attendance/summary?date=YYYY-MM-DD.
// The date defaults to today. Results are cached briefly; accepted ingests
// invalidate the cache for their date.
func (c *Controller) GetDailySummary(ctx echo.Context) error {
	date := ctx.QueryParam("date")
	if date == "" {
		date = datastore.DateOf(time.Now())
	}
	if err := checkDate(date); err != nil {
		return c.HandleError(ctx, err, "invalid date", http.StatusBadRequest)
	}

	key := summaryCacheKey(date)
	if cached, found := c.summaryCache.Get(key); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	summary, err := c.DS.DailyAttendanceSummary(date)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load daily summary", storageStatus(err))
	}

	resp := map[string]any{
		"date":    date,
		"total":   summary.Total,
		"entries": summary.Entries,
		"exits":   summary.Exits,
	}
	c.summaryCache.SetDefault(key, resp)
	return ctx.JSON(http.StatusOK, resp)
}

// GetAttendanceStats handles GET /api/v1/attendance/stats?start_date=&end_date=.
func (c *Controller) GetAttendanceStats(ctx echo.Context) error {
	startDate, endDate, err := dateRange(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid date range", http.StatusBadRequest)
	}

	stats, err := c.DS.AttendanceStats(startDate, endDate)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load attendance stats", storageStatus(err))
	}
	return ctx.JSON(http.StatusOK, stats)
}

// GetAttendanceByDateRange handles GET /api/v1/attendance/range with
// start_date, end_date, limit and offset query parameters.
func (c *Controller) GetAttendanceByDateRange(ctx echo.Context) error {
	startDate, endDate, err := dateRange(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid date range", http.StatusBadRequest)
	}

	limit := queryLimit(ctx, defaultListLimit)
	offset, _ := strconv.Atoi(ctx.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	records, err := c.DS.AttendanceByDateRange(startDate, endDate, limit, offset)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load attendance records", storageStatus(err))
	}
	return ctx.JSON(http.StatusOK, records)
}

// StatusUpdateRequest is the body for PATCH /attendance/:id/status.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// UpdateAttendanceStatus handles PATCH /api/v1/attendance/:id/status. Only
// pending records can transition; a record that already left pending yields
// 409 so reviewers see their decision raced with another.
func (c *Controller) UpdateAttendanceStatus(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid record id", http.StatusBadRequest)
	}

	var req StatusUpdateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	if err := c.DS.UpdateAttendanceStatus(id, req.Status); err != nil {
		switch {
		case errors.Is(err, datastore.ErrNotFound):
			return c.HandleError(ctx, err, "attendance record not found", http.StatusNotFound)
		case errors.Is(err, datastore.ErrInvalidTransition):
			return c.HandleError(ctx, err, "attendance record is no longer pending", http.StatusConflict)
		case errors.HasCategory(err, errors.CategoryValidation):
			return c.HandleError(ctx, err, "invalid target status", http.StatusBadRequest)
		default:
			return c.HandleError(ctx, err, "failed to update attendance status", storageStatus(err))
		}
	}

	record, err := c.DS.GetAttendance(id)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load updated record", storageStatus(err))
	}
	return ctx.JSON(http.StatusOK, record)
}

// GetStudentPresence handles GET /api/v1/students/:id/presence?date=.
func (c *Controller) GetStudentPresence(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid student id", http.StatusBadRequest)
	}

	date := ctx.QueryParam("date")
	if date == "" {
		date = datastore.DateOf(time.Now())
	}
	if err := checkDate(date); err != nil {
		return c.HandleError(ctx, err, "invalid date", http.StatusBadRequest)
	}

	if _, err := c.DS.GetStudent(id); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return c.HandleError(ctx, err, "student not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "failed to load student", storageStatus(err))
	}

	presence, err := c.DS.StudentDailyPresence(id, date)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load student presence", storageStatus(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"student_id": id,
		"date":       date,
		"has_entry":  presence.HasEntry,
		"has_exit":   presence.HasExit,
		"day_status": presence.DayStatus(),
	})
}

// GetStudentAttendance handles GET /api/v1/students/:id/attendance?date=.
func (c *Controller) GetStudentAttendance(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid student id", http.StatusBadRequest)
	}

	date := ctx.QueryParam("date")
	if date == "" {
		date = datastore.DateOf(time.Now())
	}
	if err := checkDate(date); err != nil {
		return c.HandleError(ctx, err, "invalid date", http.StatusBadRequest)
	}

	records, err := c.DS.StudentAttendance(id, date)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load student attendance", storageStatus(err))
	}
	return ctx.JSON(http.StatusOK, records)
}

// pathID parses the :id path parameter.
func pathID(ctx echo.Context) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// queryLimit parses the limit query parameter, falling back to def and
// capping at 1000.
func queryLimit(ctx echo.Context, def int) int {
	limit, err := strconv.Atoi(ctx.QueryParam("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

// checkDate validates a YYYY-MM-DD query parameter.
func checkDate(date string) error {
	_, err := time.Parse("2006-01-02", date)
	return err
}

// dateRange parses and validates start_date/end_date query parameters.
func dateRange(ctx echo.Context) (startDate, endDate string, err error) {
	startDate = ctx.QueryParam("start_date")
	endDate = ctx.QueryParam("end_date")
	if err = checkDate(startDate); err != nil {
		return "", "", err
	}
	if err = checkDate(endDate); err != nil {
		return "", "", err
	}
	return startDate, endDate, nil
}

// summaryCacheKey builds the daily summary cache key for a date.
func summaryCacheKey(date string) string {
	return "summary:" + date
}
