package search

import (
	"fmt"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/Shahir-collab/bus-routes-website/pkg/util"
)

// Criteria narrows an already fetched result set.
type Criteria struct {
	BusType ctdf.BusType

	// MinDepartureTime is a time of day, applied on each bus's own service date
	MinDepartureTime *time.Time
}

func AllCriteria() Criteria {
	return Criteria{BusType: ctdf.BusTypeAll}
}

// ParseCriteria builds Criteria from form values. An empty bus type means all
// and an empty departure time means no minimum.
func ParseCriteria(busType string, minDepartureTime string) (Criteria, error) {
	criteria := AllCriteria()

	if busType != "" {
		criteria.BusType = ctdf.BusType(busType)
		if criteria.BusType != ctdf.BusTypeAll && !criteria.BusType.Valid() {
			return criteria, fmt.Errorf("search: unknown bus type %q", busType)
		}
	}

	if minDepartureTime != "" {
		clock, err := util.ParseClockTime(minDepartureTime)
		if err != nil {
			return criteria, fmt.Errorf("search: minimum departure time: %w", err)
		}
		criteria.MinDepartureTime = &clock
	}

	return criteria, nil
}

func (c Criteria) matchesType(bus ctdf.Bus) bool {
	return c.BusType == "" || c.BusType == ctdf.BusTypeAll || bus.Type == c.BusType
}

func (c Criteria) matchesDeparture(bus ctdf.Bus) bool {
	if c.MinDepartureTime == nil {
		return true
	}

	minimum := util.AddTimeToDate(bus.DepartureTime, *c.MinDepartureTime)

	return !bus.DepartureTime.Before(minimum)
}

func (c Criteria) Matches(bus ctdf.Bus) bool {
	return c.matchesType(bus) && c.matchesDeparture(bus)
}

// ApplyFilter returns the buses of base matching criteria in their original
// order. base is not modified.
func ApplyFilter(base []ctdf.Bus, criteria Criteria) []ctdf.Bus {
	return util.Filter(base, criteria.Matches)
}
