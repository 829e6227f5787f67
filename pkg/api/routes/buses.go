package routes

import (
	"strconv"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/api/fixtures"
	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/Shahir-collab/bus-routes-website/pkg/util"
	"github.com/gofiber/fiber/v2"
)

func BusesRouter(router fiber.Router, dataset *fixtures.Dataset) {
	router.Get("/search", func(c *fiber.Ctx) error {
		return searchBuses(c, dataset)
	})

	router.Get("/:id", func(c *fiber.Ctx) error {
		return getBus(c, dataset)
	})

	router.Get("/:id/location", func(c *fiber.Ctx) error {
		return getBusLocation(c, dataset)
	})
}

// LocationUpdateRouter accepts positions pushed by on-board trackers.
func LocationUpdateRouter(router fiber.Router, dataset *fixtures.Dataset) {
	router.Post("/update", func(c *fiber.Ctx) error {
		return updateBusLocation(c, dataset)
	})
}

func searchBuses(c *fiber.Ctx, dataset *fixtures.Dataset) error {
	startStation := c.Query("startStation")
	endStation := c.Query("endStation")
	timeString := c.Query("time")

	if startStation == "" || endStation == "" || timeString == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Start station, end station, and time are required",
		})
	}

	departure, err := util.ParseClockTime(timeString)
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Invalid time format. Use HH:MM",
		})
	}

	return c.JSON(dataset.Search(startStation, endStation, departure))
}

func busIDParam(c *fiber.Ctx) (int, bool) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return 0, false
	}

	return id, true
}

func getBus(c *fiber.Ctx, dataset *fixtures.Dataset) error {
	id, ok := busIDParam(c)
	if !ok {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Bus identifier must be a number",
		})
	}

	bus, found := dataset.Bus(id)
	if !found {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Bus matching identifier",
		})
	}

	return c.JSON(bus)
}

func getBusLocation(c *fiber.Ctx, dataset *fixtures.Dataset) error {
	id, ok := busIDParam(c)
	if !ok {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Bus identifier must be a number",
		})
	}

	location, found := dataset.Location(id)
	if !found {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Location not available for this bus",
		})
	}

	return c.JSON(location)
}

func updateBusLocation(c *fiber.Ctx, dataset *fixtures.Dataset) error {
	var requestBody struct {
		BusID int `json:"busId"`
		ctdf.BusLocation
	}

	if err := c.BodyParser(&requestBody); err != nil || requestBody.BusID == 0 {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "busId, latitude and longitude are required",
		})
	}

	if _, found := dataset.Bus(requestBody.BusID); !found {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Bus matching identifier",
		})
	}

	if requestBody.Timestamp.IsZero() {
		requestBody.Timestamp = time.Now()
	}

	dataset.SetLocation(requestBody.BusID, requestBody.BusLocation)

	return c.JSON(fiber.Map{
		"success": true,
	})
}
