package ctdf

type BusType string

const (
	BusTypeRegular   BusType = "regular"
	BusTypeFast      BusType = "fast"
	BusTypeSuperfast BusType = "superfast"

	// BusTypeAll is only meaningful as a filter value
	BusTypeAll BusType = "all"
)

var BusTypes = []BusType{BusTypeRegular, BusTypeFast, BusTypeSuperfast}

func (t BusType) Valid() bool {
	switch t {
	case BusTypeRegular, BusTypeFast, BusTypeSuperfast:
		return true
	default:
		return false
	}
}
