// Package mapscene derives what the live bus map shows from the route
// geometry, the stops and the latest polled position.
package mapscene

import (
	"sync"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
)

const DefaultZoom = 12

type MarkerKind string

const (
	MarkerStation MarkerKind = "station"
	MarkerBus     MarkerKind = "bus"
)

type Marker struct {
	Kind     MarkerKind    `json:"kind"`
	Label    string        `json:"label,omitempty"`
	Position ctdf.Location `json:"position"`
}

// Scene is a renderable map state. Center is nil when nothing is known yet.
type Scene struct {
	Center         *ctdf.Location  `json:"center"`
	Zoom           int             `json:"zoom"`
	Polyline       []ctdf.Location `json:"polyline"`
	StationMarkers []Marker        `json:"stationMarkers"`
	BusMarker      *Marker         `json:"busMarker"`
}

func (s Scene) Empty() bool {
	return s.Center == nil && len(s.Polyline) == 0 && len(s.StationMarkers) == 0
}

// Reconcile builds a scene from whatever inputs are available. The live
// position wins as the center, then the first route point.
func Reconcile(routePoints []ctdf.Location, stations []ctdf.StationStop, current *ctdf.Location) Scene {
	scene := Scene{
		Zoom:           DefaultZoom,
		Polyline:       append([]ctdf.Location(nil), routePoints...),
		StationMarkers: make([]Marker, 0, len(stations)),
	}

	for _, station := range stations {
		scene.StationMarkers = append(scene.StationMarkers, Marker{
			Kind:     MarkerStation,
			Label:    station.Name,
			Position: station.Location(),
		})
	}

	if current != nil {
		position := *current
		scene.Center = &position
		scene.BusMarker = &Marker{Kind: MarkerBus, Position: position}
	} else if len(routePoints) > 0 {
		first := routePoints[0]
		scene.Center = &first
	}

	return scene
}

// Reconciler collects scene inputs arriving from independent sources.
type Reconciler struct {
	mu          sync.RWMutex
	routePoints []ctdf.Location
	stations    []ctdf.StationStop
	current     *ctdf.Location
}

func (r *Reconciler) SetRoute(points []ctdf.Location) Scene {
	r.mu.Lock()
	r.routePoints = append([]ctdf.Location(nil), points...)
	r.mu.Unlock()

	return r.Scene()
}

func (r *Reconciler) SetStations(stations []ctdf.StationStop) Scene {
	r.mu.Lock()
	r.stations = append([]ctdf.StationStop(nil), stations...)
	r.mu.Unlock()

	return r.Scene()
}

func (r *Reconciler) SetLocation(location ctdf.Location) Scene {
	r.mu.Lock()
	r.current = &location
	r.mu.Unlock()

	return r.Scene()
}

func (r *Reconciler) Scene() Scene {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Reconcile(r.routePoints, r.stations, r.current)
}
