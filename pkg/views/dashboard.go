package views

import (
	"context"
	"fmt"
	"sync"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/Shahir-collab/bus-routes-website/pkg/poller"
	"github.com/Shahir-collab/bus-routes-website/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/slices"
)

type DashboardState struct {
	// Loading is only true before the first stats payload arrives
	Loading bool

	Stats  *ctdf.DashboardStats
	Buses  []ctdf.BusStatus
	Alerts []ctdf.Alert

	StatsErr  error
	BusesErr  error
	AlertsErr error
}

func (s DashboardState) UnresolvedAlerts() []ctdf.Alert {
	return util.Filter(s.Alerts, func(alert ctdf.Alert) bool {
		return !alert.IsResolved
	})
}

// Dashboard is the admin dashboard: fleet stats, bus status and alerts,
// each refreshed by its own polling task.
type Dashboard struct {
	backend  DashboardBackend
	options  options
	onChange func(DashboardState)

	mu         sync.Mutex
	state      DashboardState
	seenAlerts map[int]bool
	primed     bool

	group poller.Group
}

// NewDashboard creates the view. onChange is called with every new state and
// must not call back into the view.
func NewDashboard(backend DashboardBackend, onChange func(DashboardState), opts ...Option) *Dashboard {
	return &Dashboard{
		backend:    backend,
		options:    buildOptions(DefaultDashboardInterval, opts),
		onChange:   onChange,
		state:      DashboardState{Loading: true},
		seenAlerts: map[int]bool{},
	}
}

func (d *Dashboard) Mount(ctx context.Context) {
	d.update(func(state *DashboardState) {})

	d.group.Track(poller.Start(ctx, "dashboard.stats", d.options.interval, d.backend.DashboardStats,
		func(stats ctdf.DashboardStats) {
			d.update(func(state *DashboardState) {
				state.Stats = &stats
				state.StatsErr = nil
				state.Loading = false
			})
		},
		d.options.pollerOptions(func(err error) {
			d.update(func(state *DashboardState) {
				state.StatsErr = err
			})
		})...,
	))

	d.group.Track(poller.Start(ctx, "dashboard.buses", d.options.interval, d.backend.BusStatuses,
		func(buses []ctdf.BusStatus) {
			d.update(func(state *DashboardState) {
				state.Buses = buses
				state.BusesErr = nil
			})
		},
		d.options.pollerOptions(func(err error) {
			d.update(func(state *DashboardState) {
				state.BusesErr = err
			})
		})...,
	))

	d.group.Track(poller.Start(ctx, "dashboard.alerts", d.options.interval, d.backend.Alerts,
		func(alerts []ctdf.Alert) {
			d.publishAlerts(d.markAlerts(alerts))

			d.update(func(state *DashboardState) {
				state.Alerts = alerts
				state.AlertsErr = nil
			})
		},
		d.options.pollerOptions(func(err error) {
			d.update(func(state *DashboardState) {
				state.AlertsErr = err
			})
		})...,
	))
}

func (d *Dashboard) Unmount() {
	d.group.CancelAll()
}

// Refresh fetches every panel immediately.
func (d *Dashboard) Refresh() {
	d.group.Refresh()
}

func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

func (d *Dashboard) update(change func(state *DashboardState)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	change(&d.state)

	if d.onChange != nil {
		d.onChange(d.state)
	}
}

// markAlerts records the alerts and returns the unresolved ones not seen
// before. The first payload only primes the seen set.
func (d *Dashboard) markAlerts(alerts []ctdf.Alert) []ctdf.Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	var fresh []ctdf.Alert
	for _, alert := range alerts {
		if d.seenAlerts[alert.ID] {
			continue
		}
		d.seenAlerts[alert.ID] = true

		if d.primed && !alert.IsResolved {
			fresh = append(fresh, alert)
		}
	}
	d.primed = true

	slices.SortFunc(fresh, func(a, b ctdf.Alert) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return fresh
}

func (d *Dashboard) publishAlerts(alerts []ctdf.Alert) {
	if d.options.alertSink == nil {
		return
	}

	for _, alert := range alerts {
		if err := d.options.alertSink.PublishAlert(alert); err != nil {
			log.Error().Err(err).Int("alert", alert.ID).Msg("Failed to publish alert")
		}
	}
}

// LoadDashboard fetches the three panels once, concurrently.
func LoadDashboard(ctx context.Context, backend DashboardBackend) (DashboardState, error) {
	var state DashboardState

	p := pool.New().WithErrors().WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		stats, err := backend.DashboardStats(ctx)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		state.Stats = &stats
		return nil
	})
	p.Go(func(ctx context.Context) error {
		buses, err := backend.BusStatuses(ctx)
		if err != nil {
			return fmt.Errorf("buses: %w", err)
		}
		state.Buses = buses
		return nil
	})
	p.Go(func(ctx context.Context) error {
		alerts, err := backend.Alerts(ctx)
		if err != nil {
			return fmt.Errorf("alerts: %w", err)
		}
		state.Alerts = alerts
		return nil
	})

	if err := p.Wait(); err != nil {
		return state, fmt.Errorf("views: dashboard: %w", err)
	}

	return state, nil
}
