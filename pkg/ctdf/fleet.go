package ctdf

import "time"

type DashboardStats struct {
	TotalBuses    int `json:"totalBuses" groups:"basic"`
	ActiveBuses   int `json:"activeBuses" groups:"basic"`
	TotalStations int `json:"totalStations" groups:"basic"`
	TotalRoutes   int `json:"totalRoutes" groups:"basic"`

	TodayBookings    int `json:"todayBookings,omitempty" groups:"detailed"`
	ActiveSchedules  int `json:"activeSchedules,omitempty" groups:"detailed"`
	UnresolvedAlerts int `json:"unresolvedAlerts,omitempty" groups:"detailed"`
}

type BusStatus struct {
	ID     int     `json:"id" groups:"basic"`
	Number string  `json:"number" groups:"basic"`
	Type   BusType `json:"type" groups:"basic"`

	Location        *BusStatusLocation `json:"location" groups:"basic"`
	CurrentSchedule *BusStatusSchedule `json:"currentSchedule" groups:"detailed"`
}

type BusStatusLocation struct {
	Location

	UpdatedAt time.Time `json:"updatedAt" groups:"basic"`
}

type BusStatusSchedule struct {
	ID            int       `json:"id" groups:"detailed"`
	StartStation  string    `json:"startStation" groups:"detailed"`
	EndStation    string    `json:"endStation" groups:"detailed"`
	DepartureTime time.Time `json:"departureTime" groups:"detailed"`
	ArrivalTime   time.Time `json:"arrivalTime" groups:"detailed"`
}
