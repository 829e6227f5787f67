package ctdf

import (
	"fmt"
	"time"
)

type Location struct {
	Latitude  float64 `json:"latitude" groups:"basic"`
	Longitude float64 `json:"longitude" groups:"basic"`
}

func (l Location) String() string {
	return fmt.Sprintf("%.6f,%.6f", l.Latitude, l.Longitude)
}

// BusLocation is the payload of the live location endpoint.
type BusLocation struct {
	Location

	Speed     float64   `json:"speed,omitempty" groups:"detailed"`
	Heading   float64   `json:"heading,omitempty" groups:"detailed"`
	Timestamp time.Time `json:"timestamp,omitempty" groups:"detailed"`
}
