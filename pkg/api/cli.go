package api

import (
	"github.com/Shahir-collab/bus-routes-website/pkg/api/fixtures"
	"github.com/Shahir-collab/bus-routes-website/pkg/config"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "fixture-api",
		Usage: "Provides a development backend serving fixture data",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run fixture api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8000",
						Usage: "listen target for the web server",
					},
					&cli.StringFlag{
						Name:  "fixtures",
						Usage: "YAML fixture file, the built in data set is used when empty",
					},
					&cli.BoolFlag{
						Name:  "require-auth",
						Usage: "require a valid Firebase ID token on every API call",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}

					var dataset *fixtures.Dataset
					if path := c.String("fixtures"); path != "" {
						dataset, err = fixtures.Load(path)
					} else {
						dataset, err = fixtures.Default()
					}
					if err != nil {
						return err
					}

					var auth fiber.Handler
					if c.Bool("require-auth") {
						auth, err = EnsureValidToken(cfg.Firebase.ProjectID)
						if err != nil {
							return err
						}
					}

					log.Info().Str("listen", c.String("listen")).Bool("auth", auth != nil).Msg("Starting fixture API")

					return SetupServer(c.String("listen"), dataset, auth)
				},
			},
		},
	}
}
