// Package geo provides the pure geographic math used by tracking and
// routing: great-circle distances, bearings, and distances from a point
// to a route polyline.
package geo

import "math"

const earthRadiusM = 6371000.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Haversine returns the great-circle distance between two coordinates
// in meters.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// Bearing returns the initial bearing from the first coordinate to the
// second, in degrees clockwise from north, normalized to [0, 360).
func Bearing(lat1, lng1, lat2, lng2 float64) float64 {
	φ1 := toRad(lat1)
	φ2 := toRad(lat2)
	dLng := toRad(lng2 - lng1)
	y := math.Sin(dLng) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(dLng)
	θ := math.Atan2(y, x)
	return math.Mod(θ*180/math.Pi+360, 360)
}

// LerpBearing interpolates between two bearings along the shortest arc,
// handling the wrap at 0/360. t is clamped to [0, 1].
func LerpBearing(from, to, t float64) float64 {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	diff := math.Mod(to-from+540, 360) - 180
	return math.Mod(from+diff*t+360, 360)
}

// PointToSegmentMeters returns the distance in meters from point p to the
// segment [a, b]. The segment is projected onto a local equirectangular
// plane centered on p; the planar approximation is fine at city scale and
// degrades only over very long segments or near the poles.
func PointToSegmentMeters(p, a, b Point) float64 {
	cosLat := math.Cos(toRad(p.Lat))

	// Local planar coordinates in meters, origin at p.
	ax := toRad(a.Lng-p.Lng) * cosLat * earthRadiusM
	ay := toRad(a.Lat-p.Lat) * earthRadiusM
	bx := toRad(b.Lng-p.Lng) * cosLat * earthRadiusM
	by := toRad(b.Lat-p.Lat) * earthRadiusM

	dx := bx - ax
	dy := by - ay
	segLenSq := dx*dx + dy*dy
	if segLenSq == 0 {
		return math.Hypot(ax, ay)
	}

	// Projection of origin onto the segment, clamped to its ends.
	t := -(ax*dx + ay*dy) / segLenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(ax+t*dx, ay+t*dy)
}

// DistanceToPolylineMeters returns the minimum distance in meters from the
// point to any segment of the polyline. A single-vertex polyline degrades
// to point distance; an empty polyline returns +Inf.
func DistanceToPolylineMeters(p Point, polyline []Point) float64 {
	switch len(polyline) {
	case 0:
		return math.Inf(1)
	case 1:
		return Haversine(p.Lat, p.Lng, polyline[0].Lat, polyline[0].Lng)
	}

	min := math.Inf(1)
	for i := 0; i < len(polyline)-1; i++ {
		d := PointToSegmentMeters(p, polyline[i], polyline[i+1])
		if d < min {
			min = d
		}
	}
	return min
}

// ValidLatitude reports whether lat is a usable latitude.
func ValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lng is a usable longitude.
func ValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
