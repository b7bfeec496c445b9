// Package api implements the JSON HTTP API for the attendance service using
// the Echo framework. All routes live under /api/v1.
package api

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/smart-attendance/attendance-go/internal/attendance"
	"github.com/smart-attendance/attendance-go/internal/conf"
	"github.com/smart-attendance/attendance-go/internal/datastore"
	"github.com/smart-attendance/attendance-go/internal/errors"
	"github.com/smart-attendance/attendance-go/internal/logging"
	"github.com/smart-attendance/attendance-go/internal/observability"
)

// summaryCacheTTL bounds how stale the daily summary endpoint may be. The
// cache is invalidated on every accepted ingest, so the TTL only matters for
// writes that bypass this process.
const summaryCacheTTL = 10 * time.Second

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Settings *conf.Settings

	Processor *attendance.Processor
	Metrics   *observability.Metrics

	// DisableSaveSettings keeps settings changes in memory only. Used in
	// tests and read-only deployments.
	DisableSaveSettings bool

	summaryCache *cache.Cache
	apiLogger    *slog.Logger
}

// New creates the API controller and registers all routes on e.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings, proc *attendance.Processor, metrics *observability.Metrics) *Controller {
	c := &Controller{
		Echo:         e,
		DS:           ds,
		Settings:     settings,
		Processor:    proc,
		Metrics:      metrics,
		summaryCache: cache.New(summaryCacheTTL, time.Minute),
		apiLogger:    logging.ForService("api"),
	}

	e.Use(middleware.Recover())
	e.Use(c.loggingMiddleware())

	c.Group = e.Group("/api/v1")
	c.initRoutes()

	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	return c
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.initDetectionRoutes()
	c.initAttendanceRoutes()
	c.initScheduleRoutes()
	c.initSettingsRoutes()
	c.initRegistryRoutes()
}

// HealthCheck handles GET /api/v1/health.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": c.Settings.Version,
	})
}

// loggingMiddleware logs each request and records HTTP metrics.
func (c *Controller) loggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			elapsed := time.Since(start)

			status := ctx.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			c.apiLogger.Info("http request",
				"method", ctx.Request().Method,
				"path", ctx.Path(),
				"status", status,
				"ip", ctx.RealIP(),
				"duration_ms", elapsed.Milliseconds())

			if c.Metrics != nil {
				c.Metrics.HTTPRequest(ctx.Request().Method, ctx.Path(),
					fmt.Sprintf("%d", status), elapsed.Seconds())
			}
			return err
		}
	}
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError logs err and returns the standard error payload. The
// correlation ID ties the response to the server-side log line.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := ErrorResponse{
		Message:       message,
		Code:          code,
		CorrelationID: correlationID(),
	}
	if err != nil {
		resp.Error = err.Error()
	}

	c.apiLogger.Error("api error",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"error", resp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP())

	return ctx.JSON(code, resp)
}

// storageStatus maps storage errors to a response code: not-found rows are
// 404, anything else from the database layer is 503.
func storageStatus(err error) int {
	switch {
	case errors.Is(err, datastore.ErrNotFound):
		return http.StatusNotFound
	case errors.HasCategory(err, errors.CategoryDatabase):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// correlationID generates a short random identifier for error responses.
func correlationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "err-rand"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}
