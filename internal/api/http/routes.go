// Package httpapi serves the operational HTTP endpoints: health, Prometheus
// metrics and the live connection table. Sensor data is only reachable over
// the TCP protocol.
package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-warning-service/internal/metrics"
	"github.com/i474232898/weather-warning-service/internal/server"
)

const serviceName = "weather-warning-service"

var validate = validator.New()

// Monitor is the read-only view of the service the endpoints report on.
type Monitor interface {
	Counts() metrics.Counts
	Connections() []server.ConnectionRecord
}

// NewApp returns a Fiber app with the centralized JSON error handler.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. A nil gatherer
// leaves /metrics unregistered.
func RegisterRoutes(app *fiber.App, mon Monitor, gatherer prometheus.Gatherer) {
	app.Get("/health", func(c *fiber.Ctx) error {
		counts := mon.Counts()
		return c.JSON(fiber.Map{
			"status":            "ok",
			"service":           serviceName,
			"activeConnections": counts.ActiveConnections,
			"dataPointsStored":  counts.DataPoints,
			"series":            counts.Series,
			"warnings":          counts.Warnings,
		})
	})

	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	app.Get("/connections", func(c *fiber.Ctx) error {
		var q connectionsQuery
		if err := c.QueryParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records := mon.Connections()
		total := len(records)
		if q.Limit > 0 && total > q.Limit {
			records = records[total-q.Limit:]
		}
		return c.JSON(fiber.Map{
			"total":       total,
			"connections": records,
		})
	})
}

// connectionsQuery holds query parameters for the connections endpoint.
type connectionsQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=1000"`
}
