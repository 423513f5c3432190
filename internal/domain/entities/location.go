package entities

// Place is an address with optional coordinates. Coordinates are zero when the
// caller only supplied a text address.
type Place struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"lat,omitempty"`
	Longitude float64 `json:"lng,omitempty"`
}

// HasCoordinates reports whether at least one coordinate was supplied.
func (p Place) HasCoordinates() bool {
	return p.Latitude != 0 || p.Longitude != 0
}
