// Package api serves the bus tracker backend endpoints from fixture data, for
// development and for exercising the client against a real HTTP server.
package api

import (
	"github.com/Shahir-collab/bus-routes-website/pkg/api/fixtures"
	"github.com/Shahir-collab/bus-routes-website/pkg/api/routes"
	"github.com/gofiber/fiber/v2"
)

// NewApp builds the web app. When auth is not nil every /api route requires it.
func NewApp(dataset *fixtures.Dataset, auth fiber.Handler) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	webApp.Get("/version", routes.APIVersion)

	var group fiber.Router
	if auth != nil {
		group = webApp.Group("/api", auth)
	} else {
		group = webApp.Group("/api")
	}

	routes.AdminRouter(group.Group("/admin"), dataset)

	routes.BusesRouter(group.Group("/buses"), dataset)
	routes.LocationUpdateRouter(group.Group("/bus/location"), dataset)

	routes.BusRoutesRouter(group.Group("/routes"), dataset)
	routes.StationsRouter(group.Group("/stations"), dataset)

	return webApp
}

func SetupServer(listen string, dataset *fixtures.Dataset, auth fiber.Handler) error {
	return NewApp(dataset, auth).Listen(listen)
}
