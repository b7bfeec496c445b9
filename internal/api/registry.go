package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smart-attendance/attendance-go/internal/datastore"
	"github.com/smart-attendance/attendance-go/internal/errors"
)

// initRegistryRoutes registers student and camera registry endpoints. The
// registry is managed by the school portal; the attendance service only needs
// enough CRUD to keep the two in sync.
func (c *Controller) initRegistryRoutes() {
	c.Group.GET("/students/:id", c.GetStudent)
	c.Group.POST("/students", c.SaveStudent)
	c.Group.GET("/cameras/:id", c.GetCamera)
	c.Group.POST("/cameras", c.SaveCamera)
}

// GetStudent handles GET /api/v1/students/:id.
func (c *Controller) GetStudent(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid student id", http.StatusBadRequest)
	}

	student, err := c.DS.GetStudent(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return c.HandleError(ctx, err, "student not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "failed to load student", storageStatus(err))
	}
	return ctx.JSON(http.StatusOK, student)
}

// SaveStudent handles POST /api/v1/students, creating or updating a student.
func (c *Controller) SaveStudent(ctx echo.Context) error {
	var student datastore.Student
	if err := ctx.Bind(&student); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	if student.RollNumber == "" {
		return c.HandleError(ctx, fmt.Errorf("roll_number is required"), "invalid student", http.StatusBadRequest)
	}

	if err := c.DS.SaveStudent(&student); err != nil {
		return c.HandleError(ctx, err, "failed to save student", storageStatus(err))
	}
	return ctx.JSON(http.StatusCreated, student)
}

// GetCamera handles GET /api/v1/cameras/:id.
func (c *Controller) GetCamera(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid camera id", http.StatusBadRequest)
	}

	camera, err := c.DS.GetCamera(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return c.HandleError(ctx, err, "camera not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "failed to load camera", storageStatus(err))
	}
	return ctx.JSON(http.StatusOK, camera)
}

// SaveCamera handles POST /api/v1/cameras, creating or updating a camera.
func (c *Controller) SaveCamera(ctx echo.Context) error {
	var camera datastore.Camera
	if err := ctx.Bind(&camera); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	if camera.Name == "" {
		return c.HandleError(ctx, fmt.Errorf("name is required"), "invalid camera", http.StatusBadRequest)
	}

	if err := c.DS.SaveCamera(&camera); err != nil {
		return c.HandleError(ctx, err, "failed to save camera", storageStatus(err))
	}
	return ctx.JSON(http.StatusCreated, camera)
}
