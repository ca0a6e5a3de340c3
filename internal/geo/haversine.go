package geo

import "math"

const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two coordinates,
// rounded to 3 decimals.
func HaversineKM(a, b Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * earthRadiusKM * math.Asin(math.Sqrt(h))

	return math.Round(d*1000) / 1000
}
