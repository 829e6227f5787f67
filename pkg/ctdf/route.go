package ctdf

type Route struct {
	ID     int        `json:"id" groups:"basic"`
	Name   string     `json:"name" groups:"basic"`
	Points []Location `json:"points" groups:"basic"`
}
