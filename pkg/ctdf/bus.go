package ctdf

import "time"

type Bus struct {
	ID     int     `json:"id" groups:"basic"`
	Number string  `json:"number" groups:"basic"`
	Type   BusType `json:"type" groups:"basic"`

	RouteID int `json:"routeId" groups:"detailed"`

	DepartureTime time.Time `json:"departureTime" groups:"basic"`
	ArrivalTime   time.Time `json:"arrivalTime" groups:"basic"`

	StartStation string `json:"startStation" groups:"basic"`
	EndStation   string `json:"endStation" groups:"basic"`

	CurrentLocation *BusLocation `json:"currentLocation" groups:"basic"`

	Stations []StationStop `json:"stations" groups:"detailed"`
}

// StationStop is one entry of a bus's route in visiting order.
// The first stop has no arrival time and the last stop has no departure time.
type StationStop struct {
	ID        int     `json:"id" groups:"basic"`
	Name      string  `json:"name" groups:"basic"`
	Latitude  float64 `json:"latitude" groups:"basic"`
	Longitude float64 `json:"longitude" groups:"basic"`

	ArrivalTime   *time.Time `json:"arrivalTime" groups:"basic"`
	DepartureTime *time.Time `json:"departureTime" groups:"basic"`
}

func (s StationStop) Location() Location {
	return Location{Latitude: s.Latitude, Longitude: s.Longitude}
}

func (s StationStop) ArrivalDisplay() string {
	if s.ArrivalTime == nil {
		return "Start"
	}

	return s.ArrivalTime.Format("15:04")
}

func (s StationStop) DepartureDisplay() string {
	if s.DepartureTime == nil {
		return "End"
	}

	return s.DepartureTime.Format("15:04")
}
