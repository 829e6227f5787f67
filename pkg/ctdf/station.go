package ctdf

type Station struct {
	ID        int     `json:"id" groups:"basic"`
	Name      string  `json:"name" groups:"basic"`
	Address   string  `json:"address" groups:"detailed"`
	Latitude  float64 `json:"latitude" groups:"basic"`
	Longitude float64 `json:"longitude" groups:"basic"`
	Capacity  int     `json:"capacity" groups:"detailed"`
}
