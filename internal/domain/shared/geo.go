package shared

import "math"

const earthRadiusMiles = 3958.8

// GeoPoint is a WGS84 coordinate
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects coordinates outside the valid latitude/longitude range
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return NewDomainError("INVALID_COORDINATES", "Latitude must be within [-90,90] and longitude within [-180,180]")
	}
	return nil
}

// IsZero reports whether the point was never set
func (p GeoPoint) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// DistanceMiles returns the great-circle (haversine) distance to q
func (p GeoPoint) DistanceMiles(q GeoPoint) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := q.Lat * math.Pi / 180
	dLat := (q.Lat - p.Lat) * math.Pi / 180
	dLng := (q.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(a)))
}
