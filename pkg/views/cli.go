package views

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/Shahir-collab/bus-routes-website/pkg/search"
	"github.com/kr/pretty"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const dashboardPath = "/admin/dashboard"

func RegisterCLI() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "bus",
			Usage:     "Show a bus with its route and live position",
			ArgsUsage: "<bus id>",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "follow",
					Usage: "keep polling the live position until interrupted",
				},
			},
			Action: busAction,
		},
		{
			Name:  "dashboard",
			Usage: "Show the admin dashboard",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "follow",
					Usage: "keep polling and push new alerts until interrupted",
				},
			},
			Action: dashboardAction,
		},
		{
			Name:  "search",
			Usage: "Search buses between two stations, lists the stations without --from and --to",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "from", Usage: "start station id or name"},
				&cli.StringFlag{Name: "to", Usage: "end station id or name"},
				&cli.StringFlag{Name: "time", Value: "00:00", Usage: "earliest departure as HH:MM"},
				&cli.StringFlag{Name: "type", Usage: "only show regular, fast or superfast buses"},
				&cli.StringFlag{Name: "after", Usage: "only show buses departing at or after HH:MM"},
			},
			Action: searchAction,
		},
		{
			Name:   "whoami",
			Usage:  "Show the current session",
			Action: whoamiAction,
		},
	}
}

func busAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowSubcommandHelp(c)
	}

	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer env.close()

	page, err := env.open(c.Context, "/bus/"+c.Args().First())
	if err != nil {
		return err
	}
	defer page.close()

	follow := c.Bool("follow")
	onChange := func(state BusDetailsState) {
		if follow && state.Location != nil {
			printJSON(c, state.Location)
		}
	}

	details := NewBusDetails(env.client, page.params["id"], onChange, env.viewOptions(env.cfg.LocationInterval)...)
	if err := details.Mount(page.ctx); err != nil {
		return err
	}
	defer details.Unmount()

	state := details.State()
	log.Debug().Msg(pretty.Sprint(state.Scene))

	if state.Err != nil {
		log.Error().Err(state.Err).Msg("Route unavailable")
	}

	if err := printJSON(c, state.Bus); err != nil {
		return err
	}

	if follow {
		waitForSignal(page.ctx)
	}

	return page.err()
}

func dashboardAction(c *cli.Context) error {
	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer env.close()

	page, err := env.open(c.Context, dashboardPath)
	if err != nil {
		return err
	}
	defer page.close()

	if !c.Bool("follow") {
		state, err := LoadDashboard(page.ctx, env.client)
		if err != nil {
			return err
		}
		return printDashboard(c, state)
	}

	opts := append(env.viewOptions(env.cfg.DashboardInterval), WithAlertSink(env.dashboardSink()))

	var lastStats *ctdf.DashboardStats
	dashboard := NewDashboard(env.client, func(state DashboardState) {
		if state.Stats == nil || state.Stats == lastStats {
			return
		}
		lastStats = state.Stats
		printDashboard(c, state)
	}, opts...)

	dashboard.Mount(page.ctx)
	defer dashboard.Unmount()

	waitForSignal(page.ctx)

	return page.err()
}

func printDashboard(c *cli.Context, state DashboardState) error {
	return printJSON(c, map[string]any{
		"stats":            state.Stats,
		"buses":            state.Buses,
		"unresolvedAlerts": state.UnresolvedAlerts(),
	})
}

func searchAction(c *cli.Context) error {
	criteria, err := search.ParseCriteria(c.String("type"), c.String("after"))
	if err != nil {
		return err
	}

	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer env.close()

	page, err := env.open(c.Context, "/search")
	if err != nil {
		return err
	}
	defer page.close()

	view := NewSearch(env.client, nil, WithFetchTimeout(env.cfg.RequestTimeout))
	defer view.Unmount()

	if c.String("from") == "" && c.String("to") == "" {
		stations, err := env.client.Stations(page.ctx)
		if err != nil {
			return err
		}
		return printJSON(c, stations)
	}

	results, err := view.Search(page.ctx, search.Query{
		StartStation: c.String("from"),
		EndStation:   c.String("to"),
		Time:         c.String("time"),
	})
	if err != nil {
		return err
	}

	if criteria != search.AllCriteria() {
		results = view.SetCriteria(criteria)
	}

	log.Info().Int("results", len(results)).Bool("filtered", criteria != search.AllCriteria()).Msg("Search complete")

	return printJSON(c, results)
}

func whoamiAction(c *cli.Context) error {
	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer env.close()

	current := env.store.Current()

	return printJSON(c, map[string]any{
		"identity": current.Identity,
		"email":    current.Email,
		"role":     current.Role.String(),
		"ready":    current.IsReady(),
	})
}

func printJSON(c *cli.Context, value any) error {
	groups := []string{"basic"}
	if c.Bool("detailed") {
		groups = append(groups, "detailed")
	}

	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, value)
	if err != nil {
		return fmt.Errorf("views: reduce output: %w", err)
	}

	output, err := json.MarshalIndent(reduced, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.App.Writer, string(output))
	return err
}

func waitForSignal(ctx context.Context) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case <-signals:
	case <-ctx.Done():
	}
}
