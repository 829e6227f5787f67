package routes

import (
	"strconv"

	"github.com/Shahir-collab/bus-routes-website/pkg/api/fixtures"
	"github.com/gofiber/fiber/v2"
)

func StationsRouter(router fiber.Router, dataset *fixtures.Dataset) {
	router.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(dataset.Stations())
	})
}

func BusRoutesRouter(router fiber.Router, dataset *fixtures.Dataset) {
	router.Get("/:id", func(c *fiber.Ctx) error {
		id, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			c.SendStatus(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"error": "Route identifier must be a number",
			})
		}

		route, found := dataset.Route(id)
		if !found {
			c.SendStatus(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"error": "Could not find Route matching identifier",
			})
		}

		return c.JSON(route)
	})
}
