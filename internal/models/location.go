package models

// GeoPoint represents a geographical location with latitude and longitude coordinates.
type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// Location is a structured place inside a site where work happens.
type Location struct {
	Building    string    `bson:"building,omitempty" json:"building,omitempty"`
	Floor       string    `bson:"floor,omitempty" json:"floor,omitempty"`
	Room        string    `bson:"room,omitempty" json:"room,omitempty"`
	Area        string    `bson:"area,omitempty" json:"area,omitempty"`
	Coordinates *GeoPoint `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}
