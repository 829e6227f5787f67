package ctdf

import "time"

type Alert struct {
	ID int `json:"id" groups:"basic"`

	Bus       *int   `json:"bus" groups:"detailed"`
	BusNumber string `json:"busNumber" groups:"basic"`

	Station     *int   `json:"station" groups:"detailed"`
	StationName string `json:"stationName" groups:"basic"`

	AlertType AlertType `json:"alertType" groups:"basic"`
	Message   string    `json:"message" groups:"basic"`

	IsResolved bool `json:"isResolved" groups:"basic"`

	CreatedAt time.Time `json:"createdAt" groups:"basic"`
	UpdatedAt time.Time `json:"updatedAt" groups:"detailed"`
}

type AlertType string

const (
	AlertTypeDelay     AlertType = "delay"
	AlertTypeBreakdown AlertType = "breakdown"
	AlertTypeAccident  AlertType = "accident"
	AlertTypeOther     AlertType = "other"
)

// Subject is the bus number or station name the alert was raised against.
func (a *Alert) Subject() string {
	if a.BusNumber != "" {
		return "Bus " + a.BusNumber
	}

	return a.StationName
}
