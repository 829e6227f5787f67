package routes

import (
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/api/fixtures"
	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/gofiber/fiber/v2"
)

func AdminRouter(router fiber.Router, dataset *fixtures.Dataset) {
	router.Get("/dashboard/stats", func(c *fiber.Ctx) error {
		return c.JSON(dataset.Stats())
	})

	router.Get("/buses/status", func(c *fiber.Ctx) error {
		return c.JSON(dataset.BusStatuses())
	})

	router.Get("/alerts", func(c *fiber.Ctx) error {
		return c.JSON(dataset.Alerts())
	})

	router.Post("/alerts", func(c *fiber.Ctx) error {
		return createAlert(c, dataset)
	})
}

func createAlert(c *fiber.Ctx, dataset *fixtures.Dataset) error {
	var alert ctdf.Alert
	if err := c.BodyParser(&alert); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Request body must be a JSON alert",
		})
	}

	switch alert.AlertType {
	case ctdf.AlertTypeDelay, ctdf.AlertTypeBreakdown, ctdf.AlertTypeAccident, ctdf.AlertTypeOther:
	default:
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "alertType must be one of delay, breakdown, accident, other",
		})
	}

	if alert.Message == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "message is required",
		})
	}

	now := time.Now()
	alert.ID = len(dataset.Alerts()) + 1
	alert.CreatedAt = now
	alert.UpdatedAt = now

	dataset.AddAlert(alert)

	c.Status(fiber.StatusCreated)
	return c.JSON(alert)
}
