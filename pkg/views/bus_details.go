package views

import (
	"context"
	"fmt"
	"sync"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/Shahir-collab/bus-routes-website/pkg/mapscene"
	"github.com/Shahir-collab/bus-routes-website/pkg/poller"
	"github.com/rs/zerolog/log"
)

type BusDetailsState struct {
	Loading bool
	// Err is the bus or route lookup failure, shown inline
	Err error
	// LocationErr is the last failed location poll, cleared by the next success
	LocationErr error

	Bus      *ctdf.Bus
	Route    *ctdf.Route
	Location *ctdf.BusLocation

	Scene mapscene.Scene
}

// BusDetails is the single bus page with its live map.
type BusDetails struct {
	backend  BusBackend
	busID    string
	options  options
	onChange func(BusDetailsState)

	mu         sync.Mutex
	state      BusDetailsState
	reconciler mapscene.Reconciler

	group poller.Group
}

// NewBusDetails creates the view. onChange is called with every new state and
// must not call back into the view.
func NewBusDetails(backend BusBackend, busID string, onChange func(BusDetailsState), opts ...Option) *BusDetails {
	return &BusDetails{
		backend:  backend,
		busID:    busID,
		options:  buildOptions(DefaultLocationInterval, opts),
		onChange: onChange,
	}
}

// Mount loads the bus and its route and then starts following its location.
// A failed bus lookup is returned and nothing is started. A failed route
// lookup is shown inline and the location is followed anyway. The location
// stays unset until the first poll succeeds.
func (v *BusDetails) Mount(ctx context.Context) error {
	v.update(func(state *BusDetailsState) {
		state.Loading = true
	})

	bus, err := v.backend.Bus(ctx, v.busID)
	if err != nil {
		err = fmt.Errorf("views: bus %s: %w", v.busID, err)
		v.update(func(state *BusDetailsState) {
			state.Loading = false
			state.Err = err
		})
		return err
	}

	v.update(func(state *BusDetailsState) {
		state.Bus = &bus
		state.Scene = v.reconciler.SetStations(bus.Stations)
	})

	route, err := v.backend.Route(ctx, bus.RouteID)
	if err != nil {
		log.Error().Err(err).Str("bus", v.busID).Int("route", bus.RouteID).Msg("Failed to load route")
	}

	v.update(func(state *BusDetailsState) {
		state.Loading = false

		if err != nil {
			state.Err = fmt.Errorf("views: route %d: %w", bus.RouteID, err)
			return
		}

		state.Route = &route
		state.Scene = v.reconciler.SetRoute(route.Points)
	})

	fetchLocation := func(ctx context.Context) (ctdf.BusLocation, error) {
		return v.backend.BusLocation(ctx, v.busID)
	}

	v.group.Track(poller.Start(ctx, "bus.location", v.options.interval, fetchLocation,
		func(location ctdf.BusLocation) {
			v.update(func(state *BusDetailsState) {
				state.Location = &location
				state.LocationErr = nil
				state.Scene = v.reconciler.SetLocation(location.Location)
			})
		},
		v.options.pollerOptions(func(err error) {
			v.update(func(state *BusDetailsState) {
				state.LocationErr = err
			})
		})...,
	))

	return nil
}

func (v *BusDetails) Unmount() {
	v.group.CancelAll()
}

func (v *BusDetails) State() BusDetailsState {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.state
}

func (v *BusDetails) update(change func(state *BusDetailsState)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	change(&v.state)

	if v.onChange != nil {
		v.onChange(v.state)
	}
}
