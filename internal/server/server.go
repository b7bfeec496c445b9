// Package server wires the attendance service together and runs the HTTP
// front end until interrupted.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smart-attendance/attendance-go/internal/api"
	"github.com/smart-attendance/attendance-go/internal/attendance"
	"github.com/smart-attendance/attendance-go/internal/conf"
	"github.com/smart-attendance/attendance-go/internal/datastore"
	"github.com/smart-attendance/attendance-go/internal/logging"
	"github.com/smart-attendance/attendance-go/internal/mqtt"
	"github.com/smart-attendance/attendance-go/internal/notification"
	"github.com/smart-attendance/attendance-go/internal/observability"
	"github.com/smart-attendance/attendance-go/internal/schedule"
)

// Run starts the attendance service and blocks until SIGINT or SIGTERM.
func Run(settings *conf.Settings) error {
	logger := logging.ForService("server")

	ds, err := datastore.New(settings)
	if err != nil {
		return err
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	gate := schedule.NewGate(ds)

	notifier := notification.NewService(notification.NewProvider(settings.SMS), ds)
	defer notifier.Stop()

	processor := attendance.New(conf.Attendance, ds, gate)
	processor.Notifier = notifier
	processor.Metrics = metrics

	if settings.MQTT.Enabled {
		publisher := mqtt.NewPublisher(settings.MQTT, settings.Main.Name)
		if err := publisher.Connect(); err != nil {
			// Live updates are optional; run without them rather than abort.
			logger.Error("mqtt connection failed, live updates disabled", "error", err)
		} else {
			processor.Live = publisher
			defer publisher.Disconnect()
		}
	}

	e := echo.New()
	e.HideBanner = true
	api.New(e, ds, settings, processor, metrics)

	errChan := make(chan error, 1)
	go func() {
		addr := ":" + settings.WebServer.Port
		logger.Info("starting web server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("web server failed: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("web server shutdown failed: %w", err)
	}
	return nil
}
