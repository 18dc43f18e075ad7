package types

// LatLng is a geographic coordinate pair in WGS 84 degrees. Zero is a valid
// value on both axes (equator, prime meridian); request types that need a
// presence check hold a *LatLng instead.
type LatLng struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}
