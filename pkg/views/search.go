package views

import (
	"context"
	"sync"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/Shahir-collab/bus-routes-website/pkg/poller"
	"github.com/Shahir-collab/bus-routes-website/pkg/search"
)

type SearchState struct {
	Loading bool
	Err     error

	Stations    []ctdf.Station
	StationsErr error

	Query       *search.Query
	Results     []ctdf.Bus
	ShowFilters bool
	Criteria    search.Criteria
}

// Search is the bus search page. Filtering works on the last results
// without going back to the backend.
type Search struct {
	backend  SearchBackend
	pipeline *search.Pipeline
	options  options
	onChange func(SearchState)

	mu    sync.Mutex
	state SearchState

	stations *poller.Handle
	group    poller.Group
}

// NewSearch creates the view. onChange is called with every new state and
// must not call back into the view.
func NewSearch(backend SearchBackend, onChange func(SearchState), opts ...Option) *Search {
	pipeline := search.NewPipeline(backend)

	return &Search{
		backend:  backend,
		pipeline: pipeline,
		options:  buildOptions(0, opts),
		onChange: onChange,
		state:    SearchState{Criteria: pipeline.Criteria()},
	}
}

// Mount loads the station list in the background. Stations are fetched once;
// ReloadStations fetches them again.
func (v *Search) Mount(ctx context.Context) {
	v.stations = v.group.Track(poller.Start(ctx, "search.stations", 0, v.backend.Stations,
		func(stations []ctdf.Station) {
			v.update(func(state *SearchState) {
				state.Stations = stations
				state.StationsErr = nil
			})
		},
		v.options.pollerOptions(func(err error) {
			v.update(func(state *SearchState) {
				state.StationsErr = err
			})
		})...,
	))
}

func (v *Search) ReloadStations() {
	if v.stations != nil {
		v.stations.Refresh()
	}
}

func (v *Search) Unmount() {
	v.group.CancelAll()
}

// Search runs the query. On failure the previous results stay visible next to the error.
func (v *Search) Search(ctx context.Context, query search.Query) ([]ctdf.Bus, error) {
	v.update(func(state *SearchState) {
		state.Loading = true
		state.Err = nil
	})

	results, err := v.pipeline.Search(ctx, query)

	v.update(func(state *SearchState) {
		state.Loading = false

		if err != nil {
			state.Err = err
			return
		}

		state.Query = &query
		state.Results = results
		state.ShowFilters = v.pipeline.ShowFilters()
	})

	return results, err
}

func (v *Search) SetCriteria(criteria search.Criteria) []ctdf.Bus {
	results := v.pipeline.SetCriteria(criteria)

	v.update(func(state *SearchState) {
		state.Criteria = criteria
		state.Results = results
	})

	return results
}

func (v *Search) State() SearchState {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.state
}

func (v *Search) update(change func(state *SearchState)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	change(&v.state)

	if v.onChange != nil {
		v.onChange(v.state)
	}
}
