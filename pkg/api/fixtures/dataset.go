// Package fixtures holds the in-memory data served by the development backend.
package fixtures

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/Shahir-collab/bus-routes-website/pkg/util"
	"gopkg.in/yaml.v3"
)

//go:embed default.yml
var defaultFixtures []byte

type busLocation struct {
	BusID int `json:"busId"`
	ctdf.BusLocation
}

type fixtureFile struct {
	Stats       ctdf.DashboardStats `json:"stats"`
	Stations    []ctdf.Station      `json:"stations"`
	Routes      []ctdf.Route        `json:"routes"`
	Buses       []ctdf.Bus          `json:"buses"`
	BusStatuses []ctdf.BusStatus    `json:"busStatuses"`
	Alerts      []ctdf.Alert        `json:"alerts"`
	Locations   []busLocation       `json:"locations"`
}

// Dataset is safe for concurrent use; tests mutate it while a server reads it.
type Dataset struct {
	mu sync.RWMutex

	stats       ctdf.DashboardStats
	stations    []ctdf.Station
	routes      map[int]ctdf.Route
	buses       []ctdf.Bus
	busStatuses []ctdf.BusStatus
	alerts      []ctdf.Alert
	locations   map[int]ctdf.BusLocation
}

func Default() (*Dataset, error) {
	return Parse(defaultFixtures)
}

func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixtures: read %s: %w", path, err)
	}

	return Parse(data)
}

// Parse reads a YAML fixture file. Keys use the same names as the JSON API.
func Parse(data []byte) (*Dataset, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("fixtures: parse: %w", err)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("fixtures: convert: %w", err)
	}

	var file fixtureFile
	if err := json.Unmarshal(encoded, &file); err != nil {
		return nil, fmt.Errorf("fixtures: decode: %w", err)
	}

	dataset := Empty()
	dataset.stats = file.Stats
	dataset.stations = file.Stations
	dataset.buses = file.Buses
	dataset.busStatuses = file.BusStatuses
	dataset.alerts = file.Alerts

	for _, route := range file.Routes {
		dataset.routes[route.ID] = route
	}
	for _, location := range file.Locations {
		dataset.locations[location.BusID] = location.BusLocation
	}

	return dataset, nil
}

func Empty() *Dataset {
	return &Dataset{
		routes:    map[int]ctdf.Route{},
		locations: map[int]ctdf.BusLocation{},
	}
}

func (d *Dataset) Stats() ctdf.DashboardStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.stats
}

func (d *Dataset) SetStats(stats ctdf.DashboardStats) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats = stats
}

func (d *Dataset) Stations() []ctdf.Station {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]ctdf.Station{}, d.stations...)
}

func (d *Dataset) Route(id int) (ctdf.Route, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	route, ok := d.routes[id]
	return route, ok
}

func (d *Dataset) SetRoute(route ctdf.Route) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.routes[route.ID] = route
}

func (d *Dataset) PutBus(bus ctdf.Bus) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.buses {
		if d.buses[i].ID == bus.ID {
			d.buses[i] = bus
			return
		}
	}
	d.buses = append(d.buses, bus)
}

// Bus returns the bus record alone. Its location is served by Location.
func (d *Dataset) Bus(id int) (ctdf.Bus, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, bus := range d.buses {
		if bus.ID == id {
			return bus, true
		}
	}

	return ctdf.Bus{}, false
}

func (d *Dataset) withLocation(bus ctdf.Bus) ctdf.Bus {
	if location, ok := d.locations[bus.ID]; ok {
		bus.CurrentLocation = &location
	}

	return bus
}

func (d *Dataset) Location(busID int) (ctdf.BusLocation, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	location, ok := d.locations[busID]
	return location, ok
}

func (d *Dataset) SetLocation(busID int, location ctdf.BusLocation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.locations[busID] = location
}

func (d *Dataset) BusStatuses() []ctdf.BusStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]ctdf.BusStatus{}, d.busStatuses...)
}

// Alerts are returned newest first.
func (d *Dataset) Alerts() []ctdf.Alert {
	d.mu.RLock()
	alerts := append([]ctdf.Alert{}, d.alerts...)
	d.mu.RUnlock()

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})

	return alerts
}

func (d *Dataset) AddAlert(alert ctdf.Alert) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.alerts = append(d.alerts, alert)
}

// Search returns buses between the two stations, matched by id or name,
// departing at or after the given time of day.
func (d *Dataset) Search(startStation string, endStation string, departure time.Time) []ctdf.Bus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	startName := d.stationName(startStation)
	endName := d.stationName(endStation)

	results := []ctdf.Bus{}
	for _, bus := range d.buses {
		if !strings.EqualFold(bus.StartStation, startName) || !strings.EqualFold(bus.EndStation, endName) {
			continue
		}

		if bus.DepartureTime.Before(util.AddTimeToDate(bus.DepartureTime, departure)) {
			continue
		}

		results = append(results, d.withLocation(bus))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DepartureTime.Before(results[j].DepartureTime)
	})

	return results
}

func (d *Dataset) stationName(reference string) string {
	for _, station := range d.stations {
		if fmt.Sprint(station.ID) == reference {
			return station.Name
		}
	}

	return reference
}
