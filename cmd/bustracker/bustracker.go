package main

import (
	"os"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/api"
	"github.com/Shahir-collab/bus-routes-website/pkg/notify"
	"github.com/Shahir-collab/bus-routes-website/pkg/views"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("BUSTRACKER_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if os.Getenv("BUSTRACKER_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	commands := views.RegisterCLI()
	commands = append(commands,
		api.RegisterCLI(),
		notify.RegisterCLI(),
	)

	app := &cli.App{
		Name:        "bustracker",
		Description: "Bus tracker client - live bus positions, search and the admin dashboard",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "email",
				Usage:   "sign in with this account",
				EnvVars: []string{"BUSTRACKER_EMAIL"},
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "password for --email",
				EnvVars: []string{"BUSTRACKER_PASSWORD"},
			},
			&cli.BoolFlag{
				Name:  "detailed",
				Usage: "include detailed fields in the output",
			},
		},

		Commands: commands,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
