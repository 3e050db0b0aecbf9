package domain

// LocationResult is a resolved place. Values are never mutated after construction.
type LocationResult struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// CurrentLocationName labels a device fix that reverse geocoding could not resolve.
const CurrentLocationName = "Current Location"

// SearchLimit is the maximum number of candidates requested per text search
const SearchLimit = 8

// MinQueryLength is the shortest trimmed query that reaches the geocoder
const MinQueryLength = 2
